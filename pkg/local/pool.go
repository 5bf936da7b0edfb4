package local

import (
	"errors"
	"fmt"
	"sync"
)

// ErrTaskPanic is returned when a task panics instead of returning an error.
var ErrTaskPanic = errors.New("task panicked")

type Task func() error

// Pool runs submitted tasks on a fixed number of goroutines. Close acts as the barrier: it
// waits for every submitted task and reports the first failure.
type Pool struct {
	numWorkers int
	tasks      chan Task
	once       sync.Once
	wg         sync.WaitGroup

	mu  sync.Mutex
	err error
}

func NewPool(numWorkers int) *Pool {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	return &Pool{
		numWorkers: numWorkers,
		tasks:      make(chan Task, numWorkers),
	}
}

func (p *Pool) Start() {
	p.once.Do(func() {
		for i := 0; i < p.numWorkers; i++ {
			p.wg.Go(func() {
				for task := range p.tasks {
					if task != nil {
						p.run(task)
					}
				}
			})
		}
	})
}

func (p *Pool) Submit(task Task) {
	p.tasks <- task
}

// Close stops accepting tasks, waits for the workers to drain the queue and returns the first
// error reported by a task.
func (p *Pool) Close() error {
	close(p.tasks)
	p.wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *Pool) run(task Task) {
	err := safeCall(task)
	if err == nil {
		return
	}
	p.mu.Lock()
	if p.err == nil {
		p.err = err
	}
	p.mu.Unlock()
}

func safeCall(task Task) (err error) {
	defer recoverPanic(&err)
	return task()
}

func recoverPanic(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%w: %v", ErrTaskPanic, r)
	}
}
