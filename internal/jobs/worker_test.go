package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingProcessor struct {
	calls atomic.Int64
	err   error
}

func (p *countingProcessor) ProcessJobs(ctx context.Context) error {
	p.calls.Add(1)
	return p.err
}

func TestWorker(t *testing.T) {
	t.Run("drains the queue before the first tick", func(t *testing.T) {
		processor := &countingProcessor{}
		worker := NewWorker(processor, time.Hour)

		go worker.Start(context.Background())
		time.Sleep(50 * time.Millisecond)
		worker.Stop()

		assert.Equal(t, int64(1), processor.calls.Load())
	})

	t.Run("keeps polling on the interval", func(t *testing.T) {
		processor := &countingProcessor{}
		worker := NewWorker(processor, 10*time.Millisecond)

		go worker.Start(context.Background())
		time.Sleep(100 * time.Millisecond)
		worker.Stop()

		assert.GreaterOrEqual(t, processor.calls.Load(), int64(3))
	})

	t.Run("processing errors do not stop the loop", func(t *testing.T) {
		processor := &countingProcessor{err: errors.New("transient")}
		worker := NewWorker(processor, 10*time.Millisecond)

		go worker.Start(context.Background())
		time.Sleep(60 * time.Millisecond)
		worker.Stop()

		assert.GreaterOrEqual(t, processor.calls.Load(), int64(2))
	})

	t.Run("stops when the context is cancelled", func(t *testing.T) {
		processor := &countingProcessor{}
		worker := NewWorker(processor, time.Hour)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			worker.Start(ctx)
			close(done)
		}()

		cancel()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("worker did not stop after context cancellation")
		}
	})
}
