package worker

import (
	"container/list"
	"errors"
	"testing"
	"time"
)

func TestDispatcherRoundRobinsAcrossKeys(t *testing.T) {
	d := &Dispatcher{
		queues:    make(map[string]*keyQueue),
		ready:     list.New(),
		positions: make(map[string]*list.Element),
	}
	d.enqueueJob(Job{Type: Upload, Key: "a"})
	d.enqueueJob(Job{Type: Upload, Key: "a"})
	d.enqueueJob(Job{Type: Upload, Key: "a"})
	d.enqueueJob(Job{Type: Upload, Key: "b"})

	var order []string
	for {
		job, ok := d.nextJob()
		if !ok {
			break
		}
		order = append(order, job.Key)
	}
	want := []string{"a", "b", "a", "a"}
	if len(order) != len(want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, order)
		}
	}
	if d.Pending() != 0 || d.ready.Len() != 0 {
		t.Fatalf("queues should be empty")
	}
}

func TestDispatcherSubmitAfterClose(t *testing.T) {
	d := NewDispatcher(DispatcherConfig{MinWorkers: 1, MaxWorkers: 1, QueueSize: 1}, nil)
	d.Close()
	if err := d.Submit(Job{Type: Upload, Key: "a"}); !errors.Is(err, errDispatcherClosed) {
		t.Fatalf("expected errDispatcherClosed, got %v", err)
	}
	d.Close()
}

func TestPoolGrowsToMaxAndShrinksOnClose(t *testing.T) {
	p := newJobChannelPool(0, 2, time.Hour, nil)

	first := p.acquire()
	second := p.acquire()
	if first == nil || second == nil || first == second {
		t.Fatalf("expected two distinct workers")
	}
	if running, _ := p.size(); running != 2 {
		t.Fatalf("expected 2 running workers, got %d", running)
	}

	first <- Job{Type: Upload, Key: "a"}
	second <- Job{Type: Upload, Key: "b"}

	deadline := time.Now().Add(time.Second)
	for {
		if _, idle := p.size(); idle == 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("workers did not return to the idle queue")
		}
		time.Sleep(5 * time.Millisecond)
	}

	p.close()
	deadline = time.Now().Add(time.Second)
	for {
		if running, _ := p.size(); running == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("workers still running after close")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if p.acquire() != nil {
		t.Fatalf("closed pool must not hand out workers")
	}
}

func TestPoolRetiresIdleWorkersAboveMin(t *testing.T) {
	p := newJobChannelPool(1, 3, 20*time.Millisecond, nil)
	defer p.close()

	chans := []chan Job{p.acquire(), p.acquire(), p.acquire()}
	for _, ch := range chans {
		ch <- Job{Type: Upload}
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if running, _ := p.size(); running == 1 {
			return
		}
		if time.Now().After(deadline) {
			running, idle := p.size()
			t.Fatalf("expected pool to shrink to min, running=%d idle=%d", running, idle)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
