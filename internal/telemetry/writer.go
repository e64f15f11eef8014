package telemetry

import (
	"context"
	"log"
	"sync"
	"time"
)

// Sink persists a batch of points.
type Sink interface {
	WriteBatch(ctx context.Context, points []Point) error
	Close() error
}

// WriterConfig tunes the background writer. Zero values fall back to the
// defaults below.
type WriterConfig struct {
	QueueSize     int
	BatchSize     int
	FlushInterval time.Duration
	MaxRetries    int
	RetryDelay    time.Duration
}

const (
	defaultQueueSize     = 4096
	defaultBatchSize     = 100
	defaultFlushInterval = time.Second
	defaultMaxRetries    = 3
	defaultRetryDelay    = 200 * time.Millisecond
)

// Writer queues points and flushes them to a sink from a background
// worker. Write never blocks the trading path: when the queue is full the
// point is dropped and counted.
type Writer struct {
	sink Sink
	cfg  WriterConfig

	queue    chan Point
	flushReq chan chan struct{}
	done     chan struct{}
	stopped  chan struct{}
	once     sync.Once

	closeOnce sync.Once
	closeErr  error

	mu      sync.Mutex
	dropped int
}

// NewWriter starts the background worker.
func NewWriter(sink Sink, cfg WriterConfig) *Writer {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = defaultFlushInterval
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}

	w := &Writer{
		sink:     sink,
		cfg:      cfg,
		queue:    make(chan Point, cfg.QueueSize),
		flushReq: make(chan chan struct{}),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go w.worker()
	return w
}

// Write enqueues one point. It is best effort: a full queue drops the
// point rather than stalling the caller.
func (w *Writer) Write(p Point) {
	select {
	case <-w.done:
		return
	default:
	}
	select {
	case w.queue <- p:
	default:
		w.mu.Lock()
		w.dropped++
		n := w.dropped
		w.mu.Unlock()
		if n%1000 == 1 {
			log.Printf("telemetry: queue full, %d points dropped so far", n)
		}
	}
}

// Dropped reports how many points were discarded on a full queue.
func (w *Writer) Dropped() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dropped
}

// Flush blocks until the worker has drained everything queued before the
// call. Returns immediately after Close.
func (w *Writer) Flush() {
	ack := make(chan struct{})
	select {
	case w.flushReq <- ack:
		select {
		case <-ack:
		case <-w.stopped:
		}
	case <-w.stopped:
	}
}

// Close drains the queue, closes the sink, and is safe to call more than
// once.
func (w *Writer) Close() error {
	w.once.Do(func() {
		close(w.done)
	})
	<-w.stopped
	w.closeOnce.Do(func() {
		w.closeErr = w.sink.Close()
	})
	return w.closeErr
}

func (w *Writer) worker() {
	defer close(w.stopped)

	batch := make([]Point, 0, w.cfg.BatchSize)
	ticker := time.NewTicker(w.cfg.FlushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		w.writeBatch(batch)
		batch = batch[:0]
	}

	drain := func() {
		for {
			select {
			case p := <-w.queue:
				batch = append(batch, p)
				if len(batch) >= w.cfg.BatchSize {
					flush()
				}
			default:
				flush()
				return
			}
		}
	}

	for {
		select {
		case p := <-w.queue:
			batch = append(batch, p)
			if len(batch) >= w.cfg.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case ack := <-w.flushReq:
			drain()
			close(ack)
		case <-w.done:
			drain()
			return
		}
	}
}

// writeBatch retries a bounded number of times, then drops the batch so
// the worker never wedges on a dead sink.
func (w *Writer) writeBatch(points []Point) {
	var err error
	for attempt := 0; attempt < w.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(w.cfg.RetryDelay)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = w.sink.WriteBatch(ctx, points)
		cancel()
		if err == nil {
			return
		}
	}
	w.mu.Lock()
	w.dropped += len(points)
	w.mu.Unlock()
	log.Printf("telemetry: dropping batch of %d points after %d attempts: %v",
		len(points), w.cfg.MaxRetries, err)
}
