package worker

import (
	"container/list"
	"errors"
	"sync"
	"time"
)

// ErrDispatcherBusy is returned when the intake queue is full.
var ErrDispatcherBusy = errors.New("upload queue full")

var errDispatcherClosed = errors.New("dispatcher closed")

type keyQueue struct {
	jobs     []Job
	enqueued bool
}

// DispatcherConfig sizes the worker pool and the intake queue.
type DispatcherConfig struct {
	MinWorkers  int
	MaxWorkers  int
	QueueSize   int
	IdleTimeout time.Duration
}

// Dispatcher hands jobs to pool workers, round-robin across keys so one
// entity with many uploads cannot starve the others.
type Dispatcher struct {
	pool     *jobChannelPool
	JobQueue chan Job // intake for outer jobs
	Manager  *Manager

	mu        sync.Mutex
	queues    map[string]*keyQueue
	ready     *list.List // LRU queue of keys with pending jobs
	positions map[string]*list.Element

	quit      chan struct{}
	closeOnce sync.Once
}

func NewDispatcher(cfg DispatcherConfig, manager *Manager) *Dispatcher {
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 64
	}
	pool := newJobChannelPool(cfg.MinWorkers, cfg.MaxWorkers, cfg.IdleTimeout, manager)

	d := &Dispatcher{
		queues:    make(map[string]*keyQueue),
		ready:     list.New(),
		positions: make(map[string]*list.Element),
		pool:      pool,
		JobQueue:  make(chan Job, queueSize),
		Manager:   manager,
		quit:      make(chan struct{}),
	}

	// warm up
	for i := 0; i < cfg.MinWorkers; i++ {
		d.pool.spawnWorker()
	}

	go d.run()
	return d
}

// Submit queues job without blocking.
func (d *Dispatcher) Submit(job Job) error {
	select {
	case <-d.quit:
		return errDispatcherClosed
	default:
	}
	select {
	case d.JobQueue <- job:
		return nil
	default:
		return ErrDispatcherBusy
	}
}

func (d *Dispatcher) run() {
	for {
		// dispatch one job of the key in front of the LRU queue
		if !d.dispatchOne() {
			select {
			case job := <-d.JobQueue:
				d.enqueueJob(job)
			case <-d.quit:
				return
			}
			continue
		}
		select {
		case job := <-d.JobQueue:
			d.enqueueJob(job)
		case <-d.quit:
			return
		default:
		}
	}
}

func (d *Dispatcher) enqueueJob(job Job) {
	key := job.Key

	d.mu.Lock()
	defer d.mu.Unlock()

	q := d.queues[key]
	if q == nil {
		q = &keyQueue{}
		d.queues[key] = q
	}
	q.jobs = append(q.jobs, job)
	if q.enqueued {
		return
	}
	q.enqueued = true
	d.positions[key] = d.ready.PushBack(key)
}

// dispatchOne hands the next job to a worker, blocking until one is idle.
func (d *Dispatcher) dispatchOne() bool {
	job, ok := d.nextJob()
	if !ok {
		return false
	}
	workerChan := d.pool.acquire()
	if workerChan == nil {
		return false
	}
	debugLog("[dispatcher] assign %s job for %s to worker-%d", job.Type, job.Key, d.pool.workerID(workerChan))
	workerChan <- job
	return true
}

// nextJob pops the oldest job of the key in front of the LRU queue and moves
// that key to the back.
func (d *Dispatcher) nextJob() (Job, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	elem := d.ready.Front()
	if elem == nil {
		return Job{}, false
	}
	key := elem.Value.(string)
	q := d.queues[key]
	job := q.jobs[0]
	q.jobs = q.jobs[1:]
	if len(q.jobs) == 0 {
		q.enqueued = false
		d.ready.Remove(elem)
		delete(d.positions, key)
		delete(d.queues, key)
	} else {
		d.ready.MoveToBack(elem)
	}
	return job, true
}

// Pending reports how many jobs wait for a worker.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	n := 0
	for _, q := range d.queues {
		n += len(q.jobs)
	}
	d.mu.Unlock()
	return n + len(d.JobQueue)
}

// Close stops dispatching and retires the pool. Queued jobs are dropped.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		close(d.quit)
		d.pool.close()
	})
}
