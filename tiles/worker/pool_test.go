package worker_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/olablt/gio-events/tiles/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_RunsAllTasks(t *testing.T) {
	p := worker.NewPool(3, 16, time.Second, nil)

	var done atomic.Int32
	for i := 0; i < 10; i++ {
		ok := p.Submit(worker.Task{
			Name: "count",
			Work: func(context.Context) error {
				done.Add(1)
				return nil
			},
		})
		require.True(t, ok)
	}

	assert.Eventually(t, func() bool { return done.Load() == 10 }, time.Second, 5*time.Millisecond)
	p.Shutdown()
}

func TestPool_LimitsConcurrency(t *testing.T) {
	p := worker.NewPool(2, 16, time.Second, nil)

	var running, peak atomic.Int32
	release := make(chan struct{})
	started := make(chan struct{}, 6)
	for i := 0; i < 6; i++ {
		p.Submit(worker.Task{Work: func(context.Context) error {
			n := running.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			started <- struct{}{}
			<-release
			running.Add(-1)
			return nil
		}})
	}

	<-started
	<-started
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(2), peak.Load())

	close(release)
	p.Shutdown()
	assert.Equal(t, int32(2), peak.Load())
}

func TestPool_SkipsCancelledTasks(t *testing.T) {
	p := worker.NewPool(1, 4, time.Second, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran atomic.Bool
	p.Submit(worker.Task{Ctx: ctx, Work: func(context.Context) error {
		ran.Store(true)
		return errors.New("should not run")
	}})

	p.Shutdown()
	assert.False(t, ran.Load())
}

func TestPool_TimeoutReachesWork(t *testing.T) {
	p := worker.NewPool(1, 4, 10*time.Millisecond, nil)

	errCh := make(chan error, 1)
	p.Submit(worker.Task{Work: func(ctx context.Context) error {
		<-ctx.Done()
		errCh <- ctx.Err()
		return ctx.Err()
	}})

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(time.Second):
		t.Fatal("task was not cancelled by the pool timeout")
	}
	p.Shutdown()
}

func TestPool_RejectsAfterShutdown(t *testing.T) {
	p := worker.NewPool(1, 4, 0, nil)
	p.Shutdown()
	p.Shutdown()

	assert.False(t, p.Submit(worker.Task{Work: func(context.Context) error { return nil }}))
}
