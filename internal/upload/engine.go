// Package upload simulates multi-file uploads: every file advances by a random
// step on a fixed tick until it reaches 100%, and the batch turns into document
// records only once every file has finished.
package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"

	"bizdesk/internal/models"
)

const (
	DefaultTickInterval = 200 * time.Millisecond
	DefaultMinStep      = 5
	DefaultMaxStep      = 14
)

var (
	// ErrUploadAborted is returned for a batch torn down before every task completed.
	ErrUploadAborted = errors.New("upload aborted")
	ErrEmptyBatch    = errors.New("upload batch has no files")
	ErrNoFolder      = errors.New("upload folder is required")
	ErrInvalidFile   = errors.New("invalid upload file")
)

// DocumentSink receives the documents of a completed batch.
type DocumentSink interface {
	PrependDocuments(ctx context.Context, folder string, docs []*models.Document) error
}

type Options struct {
	TickInterval time.Duration
	MinStep      int
	MaxStep      int
	// Rand returns a value in [0, n). Defaults to math/rand/v2.IntN.
	Rand   func(n int) int
	Now    func() time.Time
	Logger *slog.Logger
}

type Engine struct {
	sink DocumentSink
	opts Options
}

func NewEngine(sink DocumentSink, opts Options) *Engine {
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	if opts.MinStep <= 0 {
		opts.MinStep = DefaultMinStep
	}
	if opts.MaxStep < opts.MinStep {
		opts.MaxStep = DefaultMaxStep
		if opts.MaxStep < opts.MinStep {
			opts.MaxStep = opts.MinStep
		}
	}
	if opts.Rand == nil {
		opts.Rand = rand.IntN
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Engine{sink: sink, opts: opts}
}

// TickInterval reports the progress tick used by new batches.
func (e *Engine) TickInterval() time.Duration {
	return e.opts.TickInterval
}

func (e *Engine) step() int {
	return e.opts.MinStep + e.opts.Rand(e.opts.MaxStep-e.opts.MinStep+1)
}

type BatchRequest struct {
	EntityID string
	Folder   string
	Files    []FileDescriptor
	// OnProgress runs after every tick of every task. It must not call Cancel.
	OnProgress func(TaskSnapshot)
}

// Prepare validates req and returns a queued batch. Nothing ticks until Run.
func (e *Engine) Prepare(req BatchRequest) (*Batch, error) {
	folder := strings.TrimSpace(req.Folder)
	if folder == "" {
		return nil, ErrNoFolder
	}
	if len(req.Files) == 0 {
		return nil, ErrEmptyBatch
	}
	tasks := make([]*Task, 0, len(req.Files))
	for i, f := range req.Files {
		f.Name = strings.TrimSpace(f.Name)
		if f.Name == "" {
			return nil, fmt.Errorf("%w: file %d has no name", ErrInvalidFile, i)
		}
		if f.Size < 0 {
			return nil, fmt.Errorf("%w: %q has a negative size", ErrInvalidFile, f.Name)
		}
		tasks = append(tasks, newTask(f))
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Batch{
		ID:         uuid.NewString(),
		EntityID:   req.EntityID,
		Folder:     folder,
		CreatedAt:  e.opts.Now(),
		engine:     e,
		onProgress: req.OnProgress,
		tasks:      tasks,
		state:      StateQueued,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}, nil
}

// Start prepares a batch and runs it in the background. ctx bounds the run.
func (e *Engine) Start(ctx context.Context, req BatchRequest) (*Batch, error) {
	b, err := e.Prepare(req)
	if err != nil {
		return nil, err
	}
	go func() {
		_, _ = b.Run(ctx)
	}()
	return b, nil
}
