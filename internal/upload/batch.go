package upload

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"bizdesk/internal/models"
)

// Batch is one multi-file upload. It resolves only when every task reaches 100.
type Batch struct {
	ID        string
	EntityID  string
	Folder    string
	CreatedAt time.Time

	engine     *Engine
	onProgress func(TaskSnapshot)

	mu     sync.Mutex
	tasks  []*Task
	state  State
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	done     chan struct{}
	finished bool
	docs     []*models.Document
	err      error
}

// BatchSnapshot is a point-in-time view of a batch and its tasks.
type BatchSnapshot struct {
	ID        string             `json:"id"`
	EntityID  string             `json:"entity_id,omitempty"`
	Folder    string             `json:"folder"`
	State     State              `json:"state"`
	Progress  int                `json:"progress"`
	Tasks     []Task             `json:"tasks"`
	Documents []*models.Document `json:"documents,omitempty"`
	Error     string             `json:"error,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
}

// Run drives every task until the batch completes or is cancelled and returns
// the created documents. Cancelling ctx aborts the batch. Calling Run on a batch
// that already started waits for that run instead.
func (b *Batch) Run(ctx context.Context) ([]*models.Document, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	stop := context.AfterFunc(ctx, b.cancel)
	defer stop()

	b.mu.Lock()
	if b.state != StateQueued {
		b.mu.Unlock()
		<-b.done
		return b.result()
	}
	if b.ctx.Err() != nil {
		b.abortLocked()
		b.finishLocked(nil, ErrUploadAborted)
		b.mu.Unlock()
		return b.result()
	}
	b.state = StateUploading
	for _, t := range b.tasks {
		t.State = StateUploading
	}
	b.wg.Add(len(b.tasks))
	for _, t := range b.tasks {
		go b.runTask(t)
	}
	b.mu.Unlock()

	b.wg.Wait()

	b.mu.Lock()
	if b.ctx.Err() != nil || !b.allCompleteLocked() {
		b.abortLocked()
		b.finishLocked(nil, ErrUploadAborted)
		b.mu.Unlock()
		b.engine.opts.Logger.Info("upload batch aborted", "batch", b.ID, "folder", b.Folder)
		return b.result()
	}
	b.state = StateComplete
	docs := b.documentsLocked()
	b.mu.Unlock()

	var err error
	if sink := b.engine.sink; sink != nil {
		if serr := sink.PrependDocuments(context.WithoutCancel(ctx), b.Folder, docs); serr != nil {
			err = fmt.Errorf("store uploaded documents: %w", serr)
			docs = nil
		}
	}

	b.mu.Lock()
	b.finishLocked(docs, err)
	b.mu.Unlock()
	if err != nil {
		b.engine.opts.Logger.Error("upload batch completion failed", "batch", b.ID, "error", err)
	} else {
		b.engine.opts.Logger.Info("upload batch complete", "batch", b.ID, "folder", b.Folder, "documents", len(docs))
	}
	return b.result()
}

func (b *Batch) runTask(t *Task) {
	defer b.wg.Done()
	ticker := time.NewTicker(b.engine.opts.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.ctx.Done():
			return
		case <-ticker.C:
		}

		b.mu.Lock()
		if b.ctx.Err() != nil {
			b.mu.Unlock()
			return
		}
		completed := t.advance(b.engine.step())
		snap := TaskSnapshot{BatchID: b.ID, Task: *t}
		b.mu.Unlock()

		if b.onProgress != nil {
			b.onProgress(snap)
		}
		if completed {
			return
		}
	}
}

// Wait blocks until the batch resolves or ctx is done.
func (b *Batch) Wait(ctx context.Context) ([]*models.Document, error) {
	select {
	case <-b.done:
		return b.result()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Done is closed once the batch completed or aborted.
func (b *Batch) Done() <-chan struct{} {
	return b.done
}

// Cancel aborts the batch and blocks until every task goroutine has exited.
// A cancelled batch creates no documents. Cancel is a no-op on a resolved batch.
func (b *Batch) Cancel() {
	b.mu.Lock()
	switch b.state {
	case StateQueued:
		b.cancel()
		b.abortLocked()
		b.finishLocked(nil, ErrUploadAborted)
		b.mu.Unlock()
		return
	case StateUploading:
		b.cancel()
	}
	b.mu.Unlock()
	<-b.done
}

func (b *Batch) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Batch) Snapshot() BatchSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	snap := BatchSnapshot{
		ID:        b.ID,
		EntityID:  b.EntityID,
		Folder:    b.Folder,
		State:     b.state,
		Tasks:     make([]Task, 0, len(b.tasks)),
		Documents: b.docs,
		CreatedAt: b.CreatedAt,
	}
	total := 0
	for _, t := range b.tasks {
		snap.Tasks = append(snap.Tasks, *t)
		total += t.Progress
	}
	if len(b.tasks) > 0 {
		snap.Progress = total / len(b.tasks)
	}
	if b.err != nil {
		snap.Error = b.err.Error()
	}
	return snap
}

func (b *Batch) allCompleteLocked() bool {
	for _, t := range b.tasks {
		if t.State != StateComplete || t.Progress < 100 {
			return false
		}
	}
	return true
}

func (b *Batch) abortLocked() {
	b.state = StateAborted
	for _, t := range b.tasks {
		if t.State != StateComplete {
			t.State = StateAborted
		}
	}
}

func (b *Batch) documentsLocked() []*models.Document {
	date := b.engine.opts.Now().UTC().Format(models.DateLayout)
	docs := make([]*models.Document, 0, len(b.tasks))
	for _, t := range b.tasks {
		docs = append(docs, &models.Document{
			ID:     uuid.NewString(),
			Name:   t.FileName,
			Type:   models.DocumentTypeFromName(t.FileName),
			Size:   t.SizeLabel,
			Date:   date,
			Folder: b.Folder,
		})
	}
	return docs
}

func (b *Batch) finishLocked(docs []*models.Document, err error) {
	if b.finished {
		return
	}
	b.finished = true
	b.docs = docs
	b.err = err
	b.cancel()
	close(b.done)
}

func (b *Batch) result() ([]*models.Document, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.docs, b.err
}
