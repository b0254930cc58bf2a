package reporting

import (
	"sync"
	"time"
)

// pipeline executes submitted tasks one at a time, in submission order, on a
// single worker goroutine.
type pipeline struct {
	mu        sync.Mutex
	queue     []func()
	closed    bool
	submitted int64
	completed int64

	once sync.Once
	wake chan struct{}
	done chan struct{}
}

func newPipeline() *pipeline {
	p := newIdlePipeline()
	p.start()
	return p
}

// newIdlePipeline returns a pipeline that queues tasks but runs none of them
// until start is called.
func newIdlePipeline() *pipeline {
	return &pipeline{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

func (p *pipeline) start() {
	p.once.Do(func() { go p.run() })
}

// submit enqueues task. It never blocks and fails with ErrRejected once the
// pipeline has been shut down.
func (p *pipeline) submit(task func()) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrRejected
	}
	p.queue = append(p.queue, task)
	p.submitted++
	p.mu.Unlock()
	p.signal()
	return nil
}

func (p *pipeline) signal() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *pipeline) run() {
	defer close(p.done)
	for {
		p.mu.Lock()
		for len(p.queue) == 0 {
			if p.closed {
				p.mu.Unlock()
				return
			}
			p.mu.Unlock()
			<-p.wake
			p.mu.Lock()
		}
		task := p.queue[0]
		p.queue[0] = nil
		p.queue = p.queue[1:]
		p.mu.Unlock()

		task()

		p.mu.Lock()
		p.completed++
		p.mu.Unlock()
	}
}

// pending returns the number of queued and running tasks.
func (p *pipeline) pending() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.submitted - p.completed
}

// shutdown stops accepting tasks. Queued tasks still run.
func (p *pipeline) shutdown() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.signal()
}

// shutdownNow stops accepting tasks and drops the queued ones. The running
// task, if any, is left to finish. Returns the number of dropped tasks.
func (p *pipeline) shutdownNow() int {
	p.mu.Lock()
	p.closed = true
	dropped := len(p.queue)
	p.queue = nil
	p.completed += int64(dropped)
	p.mu.Unlock()
	p.signal()
	return dropped
}

// awaitTermination waits for the worker to exit. It returns false on timeout.
func (p *pipeline) awaitTermination(timeout time.Duration) bool {
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-p.done:
		return true
	case <-t.C:
		return false
	}
}
