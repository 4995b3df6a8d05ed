package upload

import (
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

type State string

const (
	StateQueued    State = "queued"
	StateUploading State = "uploading"
	StateComplete  State = "complete"
	StateAborted   State = "aborted"
)

// FileDescriptor is what the file picker hands over: a name and a byte size.
// File contents are never read.
type FileDescriptor struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// Task is one file moving through the simulated upload.
type Task struct {
	ID        string `json:"id"`
	FileName  string `json:"file_name"`
	SizeLabel string `json:"size_label"`
	Size      int64  `json:"size"`
	Progress  int    `json:"progress"`
	State     State  `json:"state"`
}

// TaskSnapshot is a copy of a task taken under the batch lock.
type TaskSnapshot struct {
	BatchID string `json:"batch_id"`
	Task
}

func newTask(f FileDescriptor) *Task {
	return &Task{
		ID:        uuid.NewString(),
		FileName:  f.Name,
		SizeLabel: SizeLabel(f.Size),
		Size:      f.Size,
		State:     StateQueued,
	}
}

// advance adds step to the task's progress, clamped at 100, and reports
// whether the task just completed.
func (t *Task) advance(step int) bool {
	if t.State != StateUploading {
		return false
	}
	if step < 0 {
		step = 0
	}
	t.Progress += step
	if t.Progress >= 100 {
		t.Progress = 100
		t.State = StateComplete
		return true
	}
	return false
}

// SizeLabel renders a byte count the way document sizes are shown, e.g. "2.4 MB".
func SizeLabel(size int64) string {
	if size < 0 {
		size = 0
	}
	return humanize.Bytes(uint64(size))
}
