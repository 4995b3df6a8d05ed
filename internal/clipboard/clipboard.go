// Package clipboard copies secrets to the platform clipboard and reports when
// the "copied" indicator should be cleared.
//
// Expiry is a UI-state reset only. The platform clipboard is NOT scrubbed when a
// copy expires: whatever was written stays on the clipboard until something else
// overwrites it. Callers must not present expiry as a security guarantee.
package clipboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultExpiry is how long a copy stays marked as copied.
const DefaultExpiry = 60 * time.Second

var (
	// ErrClipboardUnavailable means the platform has no usable clipboard. It is
	// non-fatal: the copy is skipped and no callbacks run.
	ErrClipboardUnavailable = errors.New("clipboard unavailable")
	ErrHelperClosed         = errors.New("clipboard helper closed")
)

// Writer is the platform clipboard.
type Writer interface {
	WriteText(ctx context.Context, text string) error
}

// WriterFunc adapts a function to Writer.
type WriterFunc func(ctx context.Context, text string) error

func (f WriterFunc) WriteText(ctx context.Context, text string) error {
	return f(ctx, text)
}

// CopyRequest is one user copy action.
type CopyRequest struct {
	Text     string
	FieldKey string
}

// Hooks receive UI-state notifications for a copy.
type Hooks struct {
	OnCommitted func(fieldKey string)
	OnExpired   func(fieldKey string)
}

type Options struct {
	Expiry time.Duration
	Logger *slog.Logger
}

type expiryTimer struct {
	timer *time.Timer
	gen   uint64
}

// Helper keeps at most one expiry timer per field key.
type Helper struct {
	writer Writer
	expiry time.Duration
	logger *slog.Logger

	mu     sync.Mutex
	timers map[string]*expiryTimer
	seq    uint64
	closed bool
}

func NewHelper(w Writer, opts Options) *Helper {
	if opts.Expiry <= 0 {
		opts.Expiry = DefaultExpiry
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Helper{
		writer: w,
		expiry: opts.Expiry,
		logger: opts.Logger,
		timers: make(map[string]*expiryTimer),
	}
}

// Expiry reports how long a copy stays marked as copied.
func (h *Helper) Expiry() time.Duration {
	return h.expiry
}

// Copy writes req.Text to the clipboard, calls OnCommitted once the write has
// succeeded and arms the expiry timer for req.FieldKey. A copy to a key that is
// still pending replaces the earlier timer, so OnExpired fires once, measured
// from the latest copy. Empty text is written and committed like any other.
//
// The clipboard contents are left in place when the timer fires.
func (h *Helper) Copy(ctx context.Context, req CopyRequest, hooks Hooks) error {
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		return ErrHelperClosed
	}
	if h.writer == nil {
		h.logger.Warn("clipboard copy skipped", "field", req.FieldKey, "error", ErrClipboardUnavailable)
		return ErrClipboardUnavailable
	}
	if err := h.writer.WriteText(ctx, req.Text); err != nil {
		if errors.Is(err, ErrClipboardUnavailable) {
			h.logger.Warn("clipboard copy skipped", "field", req.FieldKey, "error", err)
			return err
		}
		return fmt.Errorf("write clipboard: %w", err)
	}

	if hooks.OnCommitted != nil {
		hooks.OnCommitted(req.FieldKey)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	if prev, ok := h.timers[req.FieldKey]; ok {
		prev.timer.Stop()
	}
	h.seq++
	gen := h.seq
	key := req.FieldKey
	onExpired := hooks.OnExpired
	t := time.AfterFunc(h.expiry, func() {
		h.expire(key, gen, onExpired)
	})
	h.timers[key] = &expiryTimer{timer: t, gen: gen}
	return nil
}

// expire drops the timer for key and notifies, unless a newer copy replaced it.
func (h *Helper) expire(key string, gen uint64, onExpired func(string)) {
	h.mu.Lock()
	cur, ok := h.timers[key]
	if !ok || cur.gen != gen {
		h.mu.Unlock()
		return
	}
	delete(h.timers, key)
	h.mu.Unlock()

	if onExpired != nil {
		onExpired(key)
	}
}

// Active reports whether fieldKey is currently marked as copied.
func (h *Helper) Active(fieldKey string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.timers[fieldKey]
	return ok
}

// Pending returns the number of armed timers.
func (h *Helper) Pending() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.timers)
}

// Cancel disarms the timer for fieldKey without calling OnExpired.
func (h *Helper) Cancel(fieldKey string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, ok := h.timers[fieldKey]
	if !ok {
		return false
	}
	t.timer.Stop()
	delete(h.timers, fieldKey)
	return true
}

// Close disarms every timer. No OnExpired callback starts after Close returns.
func (h *Helper) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for key, t := range h.timers {
		t.timer.Stop()
		delete(h.timers, key)
	}
}
