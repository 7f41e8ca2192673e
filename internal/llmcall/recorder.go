package llmcall

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Writer persists batches of calls.
type Writer interface {
	SaveCalls(ctx context.Context, calls []*Call) error
}

// RecorderConfig configures the recorder.
type RecorderConfig struct {
	Writer        Writer
	BatchSize     int           // Flush after N calls (default: 50)
	FlushInterval time.Duration // Or after duration (default: 2s)
	QueueSize     int           // Buffer size (default: 500)
	Logger        *slog.Logger
}

// Recorder handles fire-and-forget LLM call recording.
// Calls are queued and written in batches by a single goroutine.
type Recorder struct {
	writer        Writer
	logger        *slog.Logger
	batchSize     int
	flushInterval time.Duration

	queue   chan *Call
	flushCh chan chan struct{}

	wg       sync.WaitGroup
	stopOnce sync.Once
	mu       sync.RWMutex
	stopped  bool
}

// NewRecorder creates a new LLM call recorder and starts its batcher.
// A nil writer yields a recorder that drops everything.
func NewRecorder(cfg RecorderConfig) *Recorder {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 2 * time.Second
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 500
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	r := &Recorder{
		writer:        cfg.Writer,
		logger:        cfg.Logger,
		batchSize:     cfg.BatchSize,
		flushInterval: cfg.FlushInterval,
		queue:         make(chan *Call, cfg.QueueSize),
		flushCh:       make(chan chan struct{}),
	}
	if r.writer != nil {
		r.wg.Add(1)
		go r.run()
	}
	return r
}

// Record captures an LLM call asynchronously.
// This is non-blocking unless the queue is full.
func (r *Recorder) Record(call *Call) {
	if r == nil || r.writer == nil || call == nil {
		return
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.stopped {
		r.logger.Warn("recorder stopped, dropping LLM call", "operation", call.Operation, "report_id", call.ReportID)
		return
	}
	r.queue <- call
}

// Flush blocks until every call queued so far has been written.
func (r *Recorder) Flush(ctx context.Context) error {
	if r == nil || r.writer == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.stopped {
		return nil
	}

	done := make(chan struct{})
	select {
	case r.flushCh <- done:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop drains the queue, writes the remainder and stops the batcher.
func (r *Recorder) Stop() {
	if r == nil || r.writer == nil {
		return
	}
	r.stopOnce.Do(func() {
		r.mu.Lock()
		r.stopped = true
		close(r.queue)
		r.mu.Unlock()
		r.wg.Wait()
	})
}

func (r *Recorder) run() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.flushInterval)
	defer ticker.Stop()

	batch := make([]*Call, 0, r.batchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		// Writes outlive the caller's context so a cancelled run still
		// persists what it paid for.
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := r.writer.SaveCalls(ctx, batch); err != nil {
			r.logger.Error("failed to write LLM calls", "count", len(batch), "error", err)
		}
		batch = make([]*Call, 0, r.batchSize)
	}

	for {
		select {
		case call, ok := <-r.queue:
			if !ok {
				flush()
				return
			}
			batch = append(batch, call)
			if len(batch) >= r.batchSize {
				flush()
			}
		case done := <-r.flushCh:
			// Drain whatever is already queued before acknowledging.
			for drained := false; !drained; {
				select {
				case call, ok := <-r.queue:
					if !ok {
						drained = true
						break
					}
					batch = append(batch, call)
				default:
					drained = true
				}
			}
			flush()
			close(done)
		case <-ticker.C:
			flush()
		}
	}
}
