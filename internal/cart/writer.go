package cart

import (
	"context"
	"sync"
	"time"

	"github.com/flexystyles/storefront-backend/pkg/logger"
)

// ApplyFunc persists one snapshot that was bound when the write was queued.
type ApplyFunc func(ctx context.Context) error

type writeJob struct {
	key      string
	apply    ApplyFunc
	attempts int
}

// WriterStats is a point-in-time view of the queue.
type WriterStats struct {
	Pending int `json:"pending"`
	Parked  int `json:"parked"`
	Dropped int `json:"dropped"`
}

// Writer queues cart persistence. Only the latest snapshot per key is kept,
// writes run one at a time in the order their keys were first queued, and a
// failed write is parked until Retry unless a newer snapshot replaces it.
// A write that fails maxAttempts times is dropped and logged.
type Writer struct {
	mu      sync.Mutex
	pending map[string]*writeJob
	order   []string
	parked  map[string]*writeJob
	dropped int

	// runMu serialises appliers so writes for one key never overlap.
	runMu sync.Mutex
	wake  chan struct{}

	timeout     time.Duration
	maxAttempts int
}

func NewWriter(timeout time.Duration, maxAttempts int) *Writer {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &Writer{
		pending:     make(map[string]*writeJob),
		parked:      make(map[string]*writeJob),
		wake:        make(chan struct{}, 1),
		timeout:     timeout,
		maxAttempts: maxAttempts,
	}
}

// Enqueue replaces any queued or parked write for key with apply.
func (w *Writer) Enqueue(key string, apply ApplyFunc) {
	w.mu.Lock()
	if _, queued := w.pending[key]; !queued {
		w.order = append(w.order, key)
	}
	w.pending[key] = &writeJob{key: key, apply: apply}
	delete(w.parked, key)
	w.mu.Unlock()

	w.signal()
}

func (w *Writer) signal() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Run applies queued writes until ctx is done.
func (w *Writer) Run(ctx context.Context) {
	logger.Info("Cart writer started")
	for {
		select {
		case <-ctx.Done():
			logger.Info("Cart writer stopped", map[string]interface{}{
				"pending": w.Stats().Pending,
			})
			return
		case <-w.wake:
			w.Drain(ctx)
		}
	}
}

// Drain applies every queued write before returning.
func (w *Writer) Drain(ctx context.Context) {
	w.runMu.Lock()
	defer w.runMu.Unlock()

	for {
		job := w.pop()
		if job == nil {
			return
		}
		w.apply(ctx, job)
	}
}

// Settle applies the queued writes for keys now, ahead of the rest of the queue.
func (w *Writer) Settle(ctx context.Context, keys ...string) {
	w.runMu.Lock()
	defer w.runMu.Unlock()

	for _, key := range keys {
		if job := w.take(key); job != nil {
			w.apply(ctx, job)
		}
	}
}

// Retry moves parked writes back onto the queue and returns how many moved.
func (w *Writer) Retry() int {
	w.mu.Lock()
	moved := 0
	for key, job := range w.parked {
		delete(w.parked, key)
		if _, queued := w.pending[key]; queued {
			continue
		}
		w.pending[key] = job
		w.order = append(w.order, key)
		moved++
	}
	w.mu.Unlock()

	if moved > 0 {
		logger.Info("Retrying parked cart writes", map[string]interface{}{
			"count": moved,
		})
		w.signal()
	}
	return moved
}

func (w *Writer) Stats() WriterStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return WriterStats{Pending: len(w.pending), Parked: len(w.parked), Dropped: w.dropped}
}

func (w *Writer) pop() *writeJob {
	w.mu.Lock()
	defer w.mu.Unlock()

	for len(w.order) > 0 {
		key := w.order[0]
		w.order = w.order[1:]
		if job, ok := w.pending[key]; ok {
			delete(w.pending, key)
			return job
		}
	}
	return nil
}

func (w *Writer) take(key string) *writeJob {
	w.mu.Lock()
	defer w.mu.Unlock()

	job, ok := w.pending[key]
	if !ok {
		return nil
	}
	delete(w.pending, key)
	for i, k := range w.order {
		if k == key {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
	return job
}

func (w *Writer) apply(ctx context.Context, job *writeJob) {
	wctx, cancel := context.WithTimeout(ctx, w.timeout)
	err := job.apply(wctx)
	cancel()
	if err == nil {
		return
	}
	job.attempts++

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, superseded := w.pending[job.key]; superseded {
		logger.Debug("Failed cart write superseded by newer snapshot", map[string]interface{}{
			"key": job.key,
		})
		return
	}
	if job.attempts >= w.maxAttempts {
		w.dropped++
		logger.Error("Cart write dropped after retries", err, map[string]interface{}{
			"key":      job.key,
			"attempts": job.attempts,
		})
		return
	}
	w.parked[job.key] = job
	logger.Warn("Cart write failed, parked for retry", map[string]interface{}{
		"key":      job.key,
		"attempts": job.attempts,
		"error":    err.Error(),
	})
}
