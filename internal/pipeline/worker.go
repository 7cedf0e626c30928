package pipeline

import (
	"context"
	"log"
	"sync"
)

// queueDepth bounds the listener-to-pipeline hand-off. A full queue
// blocks the enqueuer, which is the back-pressure that keeps a burst
// of inbox mail from piling up unprocessed work in memory.
const queueDepth = 64

// Worker consumes queued email IDs and runs the workflow for each
type Worker struct {
	pipeline *Pipeline
	queue    chan string
	stopCh   chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
}

// NewWorker creates a stopped worker around the pipeline
func NewWorker(p *Pipeline) *Worker {
	return &Worker{
		pipeline: p,
		queue:    make(chan string, queueDepth),
		stopCh:   make(chan struct{}),
	}
}

// Enqueue hands an email to the worker. Blocks when the queue is full
// until the worker drains or the context ends.
func (w *Worker) Enqueue(ctx context.Context, emailID string) error {
	select {
	case w.queue <- emailID:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-w.stopCh:
		return context.Canceled
	}
}

// Start launches the consumer goroutine
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		log.Println("[pipeline] worker started")
		for {
			select {
			case emailID := <-w.queue:
				if _, err := w.pipeline.ProcessEmail(ctx, emailID); err != nil {
					log.Printf("[pipeline] process email %s: %v", emailID, err)
				}
			case <-w.stopCh:
				log.Println("[pipeline] worker stopped")
				return
			case <-ctx.Done():
				log.Println("[pipeline] worker context done")
				return
			}
		}
	}()
}

// Stop signals the worker and waits for it to finish the current item
func (w *Worker) Stop() {
	w.once.Do(func() { close(w.stopCh) })
	w.wg.Wait()
}
