package serving

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cardioguard/platform/pkg/common/models"
	"github.com/cardioguard/platform/pkg/observability/metrics"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []map[string]interface{}
	types  []string
}

func (p *recordingPublisher) PublishEvent(ctx context.Context, eventType, source string, data map[string]interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.types = append(p.types, eventType)
	p.events = append(p.events, data)
	return nil
}

// blockingLog holds every append until release is closed.
type blockingLog struct {
	memoryLog
	release chan struct{}
}

func (b *blockingLog) Append(ctx context.Context, record *models.PredictionRecord) error {
	<-b.release
	return b.memoryLog.Append(ctx, record)
}

func TestWriterStoresInOrderAndPublishes(t *testing.T) {
	inner := &memoryLog{}
	events := &recordingPublisher{}
	w := NewWriter(inner, WriterOptions{QueueSize: 16, Events: events})

	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		if err := w.Append(context.Background(), sampleRecord(float64(i), base.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}

	stored := inner.snapshot()
	if len(stored) != 10 {
		t.Fatalf("expected 10 stored records, got %d", len(stored))
	}
	for i, rec := range stored {
		if rec.Patient.Age != float64(i) {
			t.Fatalf("records stored out of order at %d: %v", i, rec.Patient.Age)
		}
	}

	history, err := w.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if history[0].Patient.Age != 9 {
		t.Fatalf("List should delegate newest first, got %v", history[0].Patient.Age)
	}

	if len(events.types) != 10 || events.types[0] != EventPredictionRecorded {
		t.Fatalf("expected 10 prediction events, got %v", events.types)
	}
	if events.events[0]["risk"] != models.HighRisk {
		t.Fatalf("unexpected event payload %v", events.events[0])
	}
}

func TestWriterStampsAtEnqueue(t *testing.T) {
	inner := &memoryLog{}
	w := NewWriter(inner, WriterOptions{QueueSize: 1})
	fixed := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return fixed }

	record := sampleRecord(1, time.Time{})
	if err := w.Append(context.Background(), record); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !record.CreatedAt.Equal(fixed) || !inner.snapshot()[0].CreatedAt.Equal(fixed) {
		t.Fatalf("expected enqueue timestamp, got %s", record.CreatedAt)
	}
}

func TestWriterDoesNotBlockOnSlowStore(t *testing.T) {
	inner := &blockingLog{release: make(chan struct{})}
	w := NewWriter(inner, WriterOptions{QueueSize: 1})
	dropped := metrics.Snapshot().LogDropped

	// One record is picked up by the writer goroutine and one fills the queue;
	// eventually a further append must be rejected instead of blocking.
	var err error
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			if err = w.Append(context.Background(), sampleRecord(float64(i), time.Now())); err != nil {
				return
			}
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Append blocked on a slow store")
	}
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if metrics.Snapshot().LogDropped <= dropped {
		t.Fatal("dropped record should be counted")
	}

	close(inner.release)
	if err := w.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestWriterLogsAppendFailures(t *testing.T) {
	before := metrics.Snapshot().LogAppendFailures
	events := &recordingPublisher{}
	w := NewWriter(&memoryLog{appendErr: errStoreDown}, WriterOptions{Events: events})

	if err := w.Append(context.Background(), sampleRecord(1, time.Now())); err != nil {
		t.Fatalf("enqueue should succeed even if the store is down: %v", err)
	}
	if err := w.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
	if metrics.Snapshot().LogAppendFailures != before+1 {
		t.Fatal("expected append failure to be counted")
	}
	if len(events.types) != 0 {
		t.Fatal("unrecorded predictions must not be published")
	}
}

func TestWriterRejectsAfterClose(t *testing.T) {
	w := NewWriter(&memoryLog{}, WriterOptions{})
	if err := w.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(context.Background()); err != nil {
		t.Fatalf("second close should be a no-op: %v", err)
	}
	if err := w.Append(context.Background(), sampleRecord(1, time.Now())); !errors.Is(err, ErrWriterClosed) {
		t.Fatalf("expected ErrWriterClosed, got %v", err)
	}
}

func TestServiceWithWriterRespondsDespiteStoreFailure(t *testing.T) {
	w := NewWriter(&memoryLog{appendErr: errStoreDown}, WriterOptions{})
	defer w.Close(context.Background())
	svc := NewService(&fixturePredictor{class: 1, prob: 0.91}, w)

	resp, err := svc.Predict(context.Background(), canonicalRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Risk != models.HighRisk || resp.Confidence != 91 {
		t.Fatalf("unexpected response %+v", resp)
	}
}
