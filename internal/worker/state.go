package worker

import (
	"context"
	"sync"
	"time"

	"bizdesk/internal/clipboard"
	"bizdesk/internal/models"
	"bizdesk/internal/reveal"
	"bizdesk/internal/upload"
)

const (
	eventBuffer = 256
	// batchHistory is how many batches a view lists before resolved ones are pruned.
	batchHistory = 32
)

type EventType string

const (
	EventCopied       EventType = "copied"
	EventExpired      EventType = "expired"
	EventBatchQueued  EventType = "batch_queued"
	EventProgress     EventType = "progress"
	EventBatchDone    EventType = "batch_done"
	EventBatchAborted EventType = "batch_aborted"
	EventBatchFailed  EventType = "batch_failed"
)

// Event is a UI-state change pushed to the view that caused it.
type Event struct {
	Type      EventType            `json:"type"`
	ViewID    string               `json:"view_id"`
	FieldKey  string               `json:"field_key,omitempty"`
	BatchID   string               `json:"batch_id,omitempty"`
	Task      *upload.TaskSnapshot `json:"task,omitempty"`
	Documents []*models.Document   `json:"documents,omitempty"`
	Error     string               `json:"error,omitempty"`
	At        time.Time            `json:"at"`
}

// viewState is everything one open screen owns: revealed fields, copy timers,
// upload batches and its event stream.
type viewState struct {
	id     string
	reveal *reveal.Set
	clip   *clipboard.Helper
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.RWMutex
	batches map[string]*upload.Batch
	order   []string
	events  chan Event
	closed  bool
}

func newViewState(id string, clip *clipboard.Helper) *viewState {
	ctx, cancel := context.WithCancel(context.Background())
	return &viewState{
		id:      id,
		reveal:  reveal.NewSet(),
		clip:    clip,
		ctx:     ctx,
		cancel:  cancel,
		batches: make(map[string]*upload.Batch),
		events:  make(chan Event, eventBuffer),
	}
}

// emit delivers ev unless the view is closed or its buffer is full.
func (s *viewState) emit(ev Event) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false
	}
	select {
	case s.events <- ev:
		return true
	default:
		debugLog("[view %s] event buffer full, dropped %s", s.id, ev.Type)
		return false
	}
}

func (s *viewState) addBatch(b *upload.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrViewNotFound
	}
	s.batches[b.ID] = b
	s.order = append(s.order, b.ID)
	return nil
}

func (s *viewState) removeBatch(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.batches, id)
	for i, bid := range s.order {
		if bid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// pruneBatches drops the oldest resolved batches until at most limit remain
// and returns their ids. Batches still queued or uploading are never dropped.
func (s *viewState) pruneBatches(limit int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	excess := len(s.order) - limit
	if limit <= 0 || excess <= 0 {
		return nil
	}
	var dropped []string
	kept := make([]string, 0, len(s.order))
	for _, id := range s.order {
		if excess > 0 && resolved(s.batches[id]) {
			delete(s.batches, id)
			dropped = append(dropped, id)
			excess--
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
	return dropped
}

func resolved(b *upload.Batch) bool {
	select {
	case <-b.Done():
		return true
	default:
		return false
	}
}

func (s *viewState) getBatch(id string) *upload.Batch {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.batches[id]
}

func (s *viewState) listBatches() []*upload.Batch {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*upload.Batch, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.batches[id])
	}
	return out
}

// markClosed stops event delivery and returns the batches to tear down.
func (s *viewState) markClosed() ([]*upload.Batch, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, false
	}
	s.closed = true
	out := make([]*upload.Batch, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.batches[id])
	}
	return out, true
}

func (s *viewState) closeEvents() {
	s.mu.Lock()
	close(s.events)
	s.mu.Unlock()
}
