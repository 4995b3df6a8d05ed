package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"bizdesk/internal/clipboard"
	"bizdesk/internal/redis"
	"bizdesk/internal/reveal"
	"bizdesk/internal/upload"

	"github.com/google/uuid"
)

var (
	ErrViewNotFound  = errors.New("view not found")
	ErrBatchNotFound = errors.New("upload batch not found")
)

// Workspace is the data side the manager needs: secrets for copies, folders
// and a sink for finished uploads.
type Workspace interface {
	ResolveSecret(ctx context.Context, fieldKey string) (string, error)
	FolderExists(ctx context.Context, name string) error
	upload.DocumentSink
}

type Options struct {
	// Clipboard is nil when the platform has none; copies then fail with
	// clipboard.ErrClipboardUnavailable.
	Clipboard       clipboard.Writer
	ClipboardExpiry time.Duration
	Upload          upload.Options
	Redis           *redis.Client
	Logger          *slog.Logger
	// BatchHistory caps the batches each view keeps. Zero means 32.
	BatchHistory    int
}

// UploadRequest is a file selection dropped on a folder.
type UploadRequest struct {
	EntityID string
	Folder   string
	Files    []upload.FileDescriptor
}

// Manager owns the UI state of every open view and runs their uploads on the
// dispatcher's worker pool.
type Manager struct {
	workspace  Workspace
	engine     *upload.Engine
	clip       clipboard.Writer
	clipExpiry time.Duration
	dispatcher *Dispatcher
	cache      *stateRedis
	logger     *slog.Logger
	history    int

	listenCancel context.CancelFunc
	shutdown     sync.Once

	mu    sync.Mutex
	views map[string]*viewState
}

type uploadTask struct {
	view  *viewState
	batch *upload.Batch
}

func NewManager(ws Workspace, cfg DispatcherConfig, opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Upload.Logger == nil {
		opts.Upload.Logger = logger
	}
	history := opts.BatchHistory
	if history <= 0 {
		history = batchHistory
	}
	m := &Manager{
		workspace:  ws,
		engine:     upload.NewEngine(ws, opts.Upload),
		clip:       opts.Clipboard,
		clipExpiry: opts.ClipboardExpiry,
		cache:      newStateCache(opts.Redis, logger),
		logger:     logger,
		history:    history,
		views:      make(map[string]*viewState),
	}
	m.dispatcher = NewDispatcher(cfg, m)

	ctx, cancel := context.WithCancel(context.Background())
	m.listenCancel = cancel
	m.cache.startListener(ctx, m.handleInvalidation)
	return m
}

// OpenView starts a fresh UI state: nothing revealed, nothing copied.
func (m *Manager) OpenView() string {
	id := uuid.NewString()
	helper := clipboard.NewHelper(m.clip, clipboard.Options{Expiry: m.clipExpiry, Logger: m.logger})
	m.mu.Lock()
	m.views[id] = newViewState(id, helper)
	m.mu.Unlock()
	m.logger.Debug("view opened", "view", id)
	return id
}

func (m *Manager) view(id string) (*viewState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.views[id]
	if !ok {
		return nil, ErrViewNotFound
	}
	return v, nil
}

// Views reports how many views are open.
func (m *Manager) Views() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.views)
}

// ToggleReveal flips one masked field of a view and returns whether it is now shown.
func (m *Manager) ToggleReveal(viewID, fieldKey string) (bool, error) {
	if _, _, _, err := reveal.ParseFieldKey(fieldKey); err != nil {
		return false, err
	}
	v, err := m.view(viewID)
	if err != nil {
		return false, err
	}
	return v.reveal.Toggle(fieldKey), nil
}

// RevealSet returns the visibility set of a view for masking responses.
func (m *Manager) RevealSet(viewID string) (*reveal.Set, error) {
	v, err := m.view(viewID)
	if err != nil {
		return nil, err
	}
	return v.reveal, nil
}

// Copy puts the clear value of fieldKey on the clipboard. The view receives a
// copied event once the write succeeded and an expired event when the
// indicator lapses.
func (m *Manager) Copy(ctx context.Context, viewID, fieldKey string) error {
	v, err := m.view(viewID)
	if err != nil {
		return err
	}
	text, err := m.workspace.ResolveSecret(ctx, fieldKey)
	if err != nil {
		return err
	}
	return v.clip.Copy(ctx, clipboard.CopyRequest{Text: text, FieldKey: fieldKey}, clipboard.Hooks{
		OnCommitted: func(key string) {
			m.emit(v, Event{Type: EventCopied, FieldKey: key})
		},
		OnExpired: func(key string) {
			m.emit(v, Event{Type: EventExpired, FieldKey: key})
		},
	})
}

// Copied reports whether fieldKey of a view still shows the copied indicator.
func (m *Manager) Copied(viewID, fieldKey string) (bool, error) {
	v, err := m.view(viewID)
	if err != nil {
		return false, err
	}
	return v.clip.Active(fieldKey), nil
}

// StartUpload queues a simulated upload of files into folder. Jobs are keyed
// by entity so the dispatcher interleaves uploads of different entities.
func (m *Manager) StartUpload(ctx context.Context, viewID string, req UploadRequest) (*upload.Batch, error) {
	v, err := m.view(viewID)
	if err != nil {
		return nil, err
	}
	if err := m.workspace.FolderExists(ctx, req.Folder); err != nil {
		return nil, err
	}
	batch, err := m.engine.Prepare(upload.BatchRequest{
		EntityID: req.EntityID,
		Folder:   req.Folder,
		Files:    req.Files,
		OnProgress: func(t upload.TaskSnapshot) {
			m.emit(v, Event{Type: EventProgress, BatchID: t.BatchID, Task: &t})
		},
	})
	if err != nil {
		return nil, err
	}
	if err := v.addBatch(batch); err != nil {
		return nil, err
	}

	key := req.EntityID
	if key == "" {
		key = viewID
	}
	job := Job{Type: Upload, Key: key, upload: &uploadTask{view: v, batch: batch}}
	if err := m.dispatcher.Submit(job); err != nil {
		batch.Cancel()
		v.removeBatch(batch.ID)
		if errors.Is(err, errDispatcherClosed) {
			return nil, ErrViewNotFound
		}
		return nil, err
	}
	m.emit(v, Event{Type: EventBatchQueued, BatchID: batch.ID})
	m.cache.cacheBatch(batch.Snapshot())
	return batch, nil
}

// Batch returns the current state of one upload batch. Batches of views this
// process no longer hosts are looked up in redis.
func (m *Manager) Batch(viewID, batchID string) (upload.BatchSnapshot, error) {
	v, err := m.view(viewID)
	if err != nil {
		if snap, ok := m.cache.loadBatch(batchID); ok {
			return snap, nil
		}
		return upload.BatchSnapshot{}, err
	}
	b := v.getBatch(batchID)
	if b == nil {
		return upload.BatchSnapshot{}, ErrBatchNotFound
	}
	return b.Snapshot(), nil
}

func (m *Manager) Batches(viewID string) ([]upload.BatchSnapshot, error) {
	v, err := m.view(viewID)
	if err != nil {
		return nil, err
	}
	batches := v.listBatches()
	out := make([]upload.BatchSnapshot, 0, len(batches))
	for _, b := range batches {
		out = append(out, b.Snapshot())
	}
	return out, nil
}

// CancelUpload aborts a batch. Cancelling a finished batch is a no-op.
func (m *Manager) CancelUpload(viewID, batchID string) error {
	v, err := m.view(viewID)
	if err != nil {
		return err
	}
	b := v.getBatch(batchID)
	if b == nil {
		return ErrBatchNotFound
	}
	b.Cancel()
	return nil
}

// Events returns the event stream of a view. It is closed by CloseView.
func (m *Manager) Events(viewID string) (<-chan Event, error) {
	v, err := m.view(viewID)
	if err != nil {
		return nil, err
	}
	return v.events, nil
}

// CloseView tears a view down: uploads are aborted, copy timers stopped and
// revealed fields hidden. No events are delivered afterwards.
func (m *Manager) CloseView(viewID string) error {
	if err := m.closeView(viewID); err != nil {
		return err
	}
	m.cache.publishInvalidation(invalidateMessage{ViewID: viewID, Scope: scopeView})
	return nil
}

func (m *Manager) closeView(viewID string) error {
	m.mu.Lock()
	v, ok := m.views[viewID]
	delete(m.views, viewID)
	m.mu.Unlock()
	if !ok {
		return ErrViewNotFound
	}

	batches, first := v.markClosed()
	if !first {
		return nil
	}
	v.cancel()
	for _, b := range batches {
		b.Cancel()
	}
	v.clip.Close()
	v.reveal.Reset()
	v.closeEvents()
	m.logger.Debug("view closed", "view", viewID, "batches", len(batches))
	return nil
}

func (m *Manager) handleInvalidation(msg invalidateMessage) {
	if msg.Scope != scopeView || msg.ViewID == "" {
		return
	}
	if err := m.closeView(msg.ViewID); err == nil {
		m.logger.Info("view closed by peer", "view", msg.ViewID)
	}
}

// Shutdown closes every view, which ends their event streams, and stops the
// worker pool. Calls after the first are no-ops.
func (m *Manager) Shutdown() {
	m.shutdown.Do(func() {
		m.mu.Lock()
		ids := make([]string, 0, len(m.views))
		for id := range m.views {
			ids = append(ids, id)
		}
		m.mu.Unlock()
		for _, id := range ids {
			_ = m.closeView(id)
		}
		m.listenCancel()
		m.dispatcher.Close()
	})
}

// handleUpload runs on a pool worker. It is the only place batch outcome
// events are emitted.
func (m *Manager) handleUpload(task *uploadTask) {
	if task == nil || task.batch == nil {
		return
	}
	b := task.batch
	docs, err := b.Run(task.view.ctx)
	m.cache.cacheBatch(b.Snapshot())

	switch {
	case errors.Is(err, upload.ErrUploadAborted):
		m.logger.Info("upload aborted", "batch", b.ID, "folder", b.Folder)
		m.emit(task.view, Event{Type: EventBatchAborted, BatchID: b.ID})
	case err != nil:
		m.logger.Error("upload failed", "batch", b.ID, "folder", b.Folder, "error", err)
		m.emit(task.view, Event{Type: EventBatchFailed, BatchID: b.ID, Error: err.Error()})
	default:
		m.logger.Info("upload finished", "batch", b.ID, "folder", b.Folder, "documents", len(docs))
		m.emit(task.view, Event{Type: EventBatchDone, BatchID: b.ID, Documents: docs})
	}

	if dropped := task.view.pruneBatches(m.history); len(dropped) > 0 {
		m.cache.dropBatches(dropped...)
		debugLog("[view %s] pruned %d finished batches", task.view.id, len(dropped))
	}
}

func (m *Manager) emit(v *viewState, ev Event) {
	ev.ViewID = v.id
	ev.At = time.Now().UTC()
	if !v.emit(ev) {
		return
	}
	if ev.Type != EventProgress {
		m.cache.publishEvent(ev)
	}
}
