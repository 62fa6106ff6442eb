package serving

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cardioguard/platform/pkg/common/logger"
	"github.com/cardioguard/platform/pkg/common/models"
	"github.com/cardioguard/platform/pkg/observability/metrics"
	"github.com/sirupsen/logrus"
)

const EventPredictionRecorded = "prediction.recorded"

var (
	ErrQueueFull    = errors.New("prediction log queue full")
	ErrWriterClosed = errors.New("prediction log writer closed")
)

type EventPublisher interface {
	PublishEvent(ctx context.Context, eventType string, source string, data map[string]interface{}) error
}

type WriterOptions struct {
	QueueSize     int
	AppendTimeout time.Duration
	Events        EventPublisher
}

// Writer makes appends fire-and-forget. Records are queued and stored in
// order by a single goroutine, so a slow store never holds up a caller.
type Writer struct {
	log     PredictionLog
	events  EventPublisher
	timeout time.Duration
	queue   chan models.PredictionRecord
	done    chan struct{}
	now     func() time.Time

	mu     sync.RWMutex
	closed bool
}

func NewWriter(log PredictionLog, opts WriterOptions) *Writer {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.AppendTimeout <= 0 {
		opts.AppendTimeout = 5 * time.Second
	}
	w := &Writer{
		log:     log,
		events:  opts.Events,
		timeout: opts.AppendTimeout,
		queue:   make(chan models.PredictionRecord, opts.QueueSize),
		done:    make(chan struct{}),
		now:     time.Now,
	}
	go w.run()
	return w
}

// Append enqueues a copy of record without blocking.
func (w *Writer) Append(_ context.Context, record *models.PredictionRecord) error {
	if record == nil {
		return errors.New("nil prediction record")
	}
	stamp(record, w.now)

	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return ErrWriterClosed
	}
	select {
	case w.queue <- *record:
		return nil
	default:
		metrics.IncLogDropped()
		logger.Log.WithFields(logrus.Fields{
			"risk":       record.Risk,
			"created_at": record.CreatedAt,
		}).Error("prediction log queue full, dropping record")
		return ErrQueueFull
	}
}

func (w *Writer) List(ctx context.Context) ([]models.PredictionRecord, error) {
	return w.log.List(ctx)
}

func (w *Writer) run() {
	defer close(w.done)
	for record := range w.queue {
		w.store(record)
	}
}

func (w *Writer) store(record models.PredictionRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	if err := w.log.Append(ctx, &record); err != nil {
		metrics.IncLogAppendFailure()
		logger.Log.WithError(err).WithFields(logrus.Fields{
			"risk":       record.Risk,
			"created_at": record.CreatedAt,
		}).Error("failed to append prediction record")
		return
	}

	if w.events == nil {
		return
	}
	if err := w.events.PublishEvent(ctx, EventPredictionRecorded, "cardioguard", eventData(record)); err != nil {
		logger.Log.WithError(err).Warn("failed to publish prediction event")
	}
}

// Close stops accepting records and waits for the queue to drain.
func (w *Writer) Close(ctx context.Context) error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func eventData(record models.PredictionRecord) map[string]interface{} {
	return map[string]interface{}{
		"patient":    record.Patient,
		"medical":    record.Medical,
		"risk":       record.Risk,
		"confidence": record.Confidence,
		"created_at": record.CreatedAt,
	}
}
