package predictor

import (
	"context"
	"fmt"
	"sync"
)

type job struct {
	run  func()
	done chan struct{}
	err  error
}

// pool runs jobs on a fixed number of workers. Submitters block until a
// worker takes their job, so the wait queue is unbounded.
type pool struct {
	jobs chan *job
	quit chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

func newPool(workers int) *pool {
	p := &pool{
		jobs: make(chan *job),
		quit: make(chan struct{}),
	}
	for range workers {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case j := <-p.jobs:
			j.err = safeRun(j.run)
			close(j.done)
		case <-p.quit:
			return
		}
	}
}

// do hands fn to a worker and waits for it to return. ctx is only
// consulted until a worker accepts the job; started reports whether one did.
// A panic in fn is returned as an error.
func (p *pool) do(ctx context.Context, fn func()) (started bool, err error) {
	j := &job{run: fn, done: make(chan struct{})}
	select {
	case <-p.quit:
		return false, ErrClosed
	default:
	}
	select {
	case p.jobs <- j:
	case <-ctx.Done():
		return false, ctx.Err()
	case <-p.quit:
		return false, ErrClosed
	}
	<-j.done
	return true, j.err
}

// safeRun keeps a panicking job from taking its worker down.
func safeRun(fn func()) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in prediction: %v", rec)
		}
	}()
	fn()
	return nil
}

// close stops the workers after their current job. It reports whether this
// call did the closing.
func (p *pool) close() bool {
	closed := false
	p.once.Do(func() {
		close(p.quit)
		p.wg.Wait()
		closed = true
	})
	return closed
}
