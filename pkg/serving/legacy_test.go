package serving

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cardioguard/platform/pkg/common/models"
	"github.com/cardioguard/platform/pkg/features"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func legacyDoc(risk string, confidence float64, ts interface{}) map[string]interface{} {
	return map[string]interface{}{
		"age":          int32(63),
		"gender":       int32(1),
		"heart_rate":   int32(72),
		"systolic_bp":  int32(145),
		"diastolic_bp": int32(90),
		"blood_sugar":  int32(110),
		"ck_mb":        5.2,
		"troponin":     0.15,
		"risk":         risk,
		"confidence":   confidence,
		"timestamp":    ts,
	}
}

func TestIsLegacy(t *testing.T) {
	if !IsLegacy(legacyDoc("HIGH RISK", 91, nil)) {
		t.Fatal("flat document should be legacy")
	}
	if IsLegacy(map[string]interface{}{"patient": map[string]interface{}{"age": 63}}) {
		t.Fatal("nested document is not legacy")
	}
	if IsLegacy(map[string]interface{}{"name": "Ada"}) {
		t.Fatal("document without features is not legacy")
	}
}

func TestConvertLegacyHighRisk(t *testing.T) {
	ts := time.Date(2023, 11, 5, 9, 30, 0, 0, time.UTC)
	rec, err := ConvertLegacy(legacyDoc("HIGH RISK", 91, primitive.NewDateTimeFromTime(ts)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Risk != models.HighRisk || rec.Confidence != 91 {
		t.Fatalf("unexpected outcome %s / %v", rec.Risk, rec.Confidence)
	}
	if !rec.CreatedAt.Equal(ts) {
		t.Fatalf("expected %s, got %s", ts, rec.CreatedAt)
	}
	if rec.Patient.Age != 63 || rec.Patient.Gender != 1 || rec.Medical.CKMB != 5.2 || rec.Medical.Troponin != 0.15 {
		t.Fatalf("unexpected inputs %+v %+v", rec.Patient, rec.Medical)
	}
}

func TestConvertLegacyNegativeMovesToHighRiskScale(t *testing.T) {
	rec, err := ConvertLegacy(legacyDoc("NEGATIVE", 92, time.Now()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Risk != models.LowRisk {
		t.Fatalf("expected LOW RISK, got %s", rec.Risk)
	}
	if rec.Confidence != 8 {
		t.Fatalf("expected confidence 8, got %v", rec.Confidence)
	}
}

func TestConvertLegacyRejectsBadDocuments(t *testing.T) {
	missing := legacyDoc("HIGH RISK", 91, time.Now())
	delete(missing, "troponin")
	_, err := ConvertLegacy(missing)
	var missingErr *features.MissingFieldError
	if !errors.As(err, &missingErr) || missingErr.Field != "medical.troponin" {
		t.Fatalf("expected missing medical.troponin, got %v", err)
	}

	cases := map[string]map[string]interface{}{
		"unknown label":      legacyDoc("MAYBE", 50, time.Now()),
		"confidence too big": legacyDoc("HIGH RISK", 120, time.Now()),
		"no timestamp":       legacyDoc("HIGH RISK", 91, nil),
		"string timestamp":   legacyDoc("HIGH RISK", 91, "yesterday"),
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ConvertLegacy(doc); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

// sliceCursor replays documents the way *mongo.Cursor does.
type sliceCursor struct {
	docs   []bson.M
	pos    int
	closed bool
}

func (c *sliceCursor) Next(ctx context.Context) bool {
	if c.pos >= len(c.docs) {
		return false
	}
	c.pos++
	return true
}

func (c *sliceCursor) Decode(val interface{}) error {
	out, ok := val.(*bson.M)
	if !ok {
		return errors.New("unsupported decode target")
	}
	*out = c.docs[c.pos-1]
	return nil
}

func (c *sliceCursor) Err() error { return nil }

func (c *sliceCursor) Close(ctx context.Context) error {
	c.closed = true
	return nil
}

func migrationDocs() []bson.M {
	broken := bson.M(legacyDoc("HIGH RISK", 91, time.Now()))
	delete(broken, "ck_mb")
	return []bson.M{
		bson.M(legacyDoc("HIGH RISK", 91, primitive.NewDateTimeFromTime(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)))),
		bson.M(legacyDoc("NEGATIVE", 70, primitive.NewDateTimeFromTime(time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)))),
		{"name": "not a prediction"},
		broken,
	}
}

func TestLegacyFilterSelectsFlatDocuments(t *testing.T) {
	patient, ok := LegacyFilter()["patient"].(bson.M)
	if !ok || patient["$exists"] != false {
		t.Fatalf("unexpected filter %v", LegacyFilter())
	}
}

func TestMigrateConvertsAndCounts(t *testing.T) {
	sink := &memoryLog{}
	cursor := &sliceCursor{docs: migrationDocs()}

	stats, err := Migrate(context.Background(), cursor, sink)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats != (MigrationStats{Converted: 2, Skipped: 1, Failed: 1}) {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if !cursor.closed {
		t.Fatal("cursor should be closed")
	}

	stored := sink.snapshot()
	if len(stored) != 2 {
		t.Fatalf("expected 2 stored records, got %d", len(stored))
	}
	if stored[1].Risk != models.LowRisk || stored[1].Confidence != 30 {
		t.Fatalf("unexpected converted record %+v", stored[1])
	}
	for _, rec := range stored {
		if !rec.Risk.Valid() || rec.CreatedAt.IsZero() {
			t.Fatalf("migrated record is not current: %+v", rec)
		}
	}
}

func TestMigrateDryRunOnlyCounts(t *testing.T) {
	stats, err := Migrate(context.Background(), &sliceCursor{docs: migrationDocs()}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Converted != 2 || stats.Failed != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestMigrateStopsOnSinkFailure(t *testing.T) {
	stats, err := Migrate(context.Background(), &sliceCursor{docs: migrationDocs()}, &memoryLog{appendErr: errStoreDown})
	if !errors.Is(err, errStoreDown) {
		t.Fatalf("expected sink error, got %v", err)
	}
	if stats.Converted != 0 {
		t.Fatalf("nothing should count as converted, got %+v", stats)
	}
}
