package worker

type JobType string

const (
	Upload JobType = "upload"
	Stop   JobType = "stop"
)

// Job is one unit handed to a pool worker.
type Job struct {
	Type JobType
	// Key groups jobs for fair scheduling, usually the entity that owns the upload.
	Key    string
	upload *uploadTask
}

type Worker struct {
	id         int
	manager    *Manager
	pool       *jobChannelPool
	jobChannel chan Job
}

func NewWorker(id int, pool *jobChannelPool, manager *Manager) *Worker {
	return &Worker{
		id:         id,
		manager:    manager,
		pool:       pool,
		jobChannel: make(chan Job),
	}
}

func (w *Worker) Start() {
	go func() {
		for {
			if !w.pool.Release(w.jobChannel) {
				w.pool.retire(w.jobChannel)
				return
			}
			job := <-w.jobChannel
			switch job.Type {
			case Stop:
				debugLog("[worker-%d] stopped", w.id)
				w.pool.retire(w.jobChannel)
				return
			case Upload:
				if w.manager != nil {
					w.manager.handleUpload(job.upload)
				}
			}
		}
	}()
}
