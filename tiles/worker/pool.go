package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Pool runs submitted tasks with at most maxWorkers in flight.
type Pool struct {
	workers chan struct{}
	tasks   chan Task
	quit    chan struct{}
	timeout time.Duration
	logger  *slog.Logger

	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

type Task struct {
	Ctx  context.Context
	Name string
	Work func(ctx context.Context) error
}

func NewPool(maxWorkers, queueSize int, timeout time.Duration, logger *slog.Logger) *Pool {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pool{
		workers: make(chan struct{}, maxWorkers),
		tasks:   make(chan Task, queueSize),
		quit:    make(chan struct{}),
		timeout: timeout,
		logger:  logger,
	}

	go p.dispatcher()
	return p
}

func (p *Pool) dispatcher() {
	for {
		select {
		case <-p.quit:
			return
		case task := <-p.tasks:
			// blocks until a worker slot frees up
			select {
			case p.workers <- struct{}{}:
			case <-p.quit:
				p.wg.Done()
				return
			}
			go p.run(task)
		}
	}
}

func (p *Pool) run(task Task) {
	defer p.wg.Done()
	defer func() { <-p.workers }()

	ctx := task.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if ctx.Err() != nil {
		return
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	if err := task.Work(ctx); err != nil {
		p.logger.Debug("task failed", "task", task.Name, "error", err)
	}
}

// Submit queues a task without blocking. It returns false if the queue is full
// or the pool has been shut down.
func (p *Pool) Submit(task Task) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}

	p.wg.Add(1)
	select {
	case p.tasks <- task:
		return true
	default:
		p.wg.Done()
		return false
	}
}

// Shutdown stops accepting tasks and waits for running ones.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.quit)
	}
	p.mu.Unlock()

	// drain tasks that never reached a worker
	for {
		select {
		case <-p.tasks:
			p.wg.Done()
		default:
			p.wg.Wait()
			return
		}
	}
}
