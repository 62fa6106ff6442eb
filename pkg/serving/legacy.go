package serving

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/cardioguard/platform/pkg/common/logger"
	"github.com/cardioguard/platform/pkg/common/models"
	"github.com/cardioguard/platform/pkg/features"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Legacy revisions stored one flat document per prediction:
//
//	{age, gender, heart_rate, ..., troponin, risk, confidence, timestamp}
//
// with risk "HIGH RISK" or "NEGATIVE" and a confidence taken from the
// predicted class's own probability.

// IsLegacy reports whether doc uses the flat legacy layout.
func IsLegacy(doc map[string]interface{}) bool {
	if _, nested := doc["patient"]; nested {
		return false
	}
	_, hasAge := doc["age"]
	return hasAge
}

// ConvertLegacy rewrites a flat legacy document into the nested record.
// LOW RISK confidences are moved onto the high-risk probability scale.
func ConvertLegacy(doc map[string]interface{}) (models.PredictionRecord, error) {
	patient := map[string]interface{}{}
	medical := map[string]interface{}{}
	for _, name := range features.Names {
		value, ok := doc[name]
		if !ok {
			continue
		}
		if name == "age" || name == "gender" {
			patient[name] = value
		} else {
			medical[name] = value
		}
	}
	vec, err := features.Build(patient, medical)
	if err != nil {
		return models.PredictionRecord{}, err
	}

	risk, err := legacyRisk(doc["risk"])
	if err != nil {
		return models.PredictionRecord{}, err
	}

	confidence, err := legacyNumber(doc["confidence"])
	if err != nil {
		return models.PredictionRecord{}, fmt.Errorf("confidence: %w", err)
	}
	if confidence < 0 || confidence > 100 {
		return models.PredictionRecord{}, fmt.Errorf("confidence %v outside [0, 100]", confidence)
	}
	if risk == models.LowRisk {
		confidence = math.Round((100-confidence)*100) / 100
	}

	createdAt, err := legacyTime(doc["timestamp"])
	if err != nil {
		return models.PredictionRecord{}, err
	}

	p, m := features.Inputs(vec)
	return models.PredictionRecord{
		Patient:    p,
		Medical:    m,
		Risk:       risk,
		Confidence: confidence,
		CreatedAt:  createdAt,
	}, nil
}

func legacyRisk(value interface{}) (models.Risk, error) {
	label, _ := value.(string)
	switch strings.ToUpper(strings.TrimSpace(label)) {
	case "HIGH RISK":
		return models.HighRisk, nil
	case "NEGATIVE", "LOW RISK":
		return models.LowRisk, nil
	default:
		return "", fmt.Errorf("unknown legacy risk label %v", value)
	}
}

func legacyNumber(value interface{}) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case int:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("unsupported type %T", value)
	}
}

func legacyTime(value interface{}) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v.UTC(), nil
	case primitive.DateTime:
		return v.Time().UTC(), nil
	case nil:
		return time.Time{}, fmt.Errorf("missing timestamp")
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp type %T", value)
	}
}

// LegacyFilter selects documents without the nested patient section.
func LegacyFilter() bson.M {
	return bson.M{"patient": bson.M{"$exists": false}}
}

// DocumentCursor is the subset of *mongo.Cursor read by Migrate.
type DocumentCursor interface {
	Next(ctx context.Context) bool
	Decode(val interface{}) error
	Err() error
	Close(ctx context.Context) error
}

type MigrationStats struct {
	Converted int
	Skipped   int
	Failed    int
}

// Migrate converts every legacy document read from cursor and appends it to
// sink. A nil sink only counts. Unconvertible documents are logged and
// counted; a sink failure aborts the run.
func Migrate(ctx context.Context, cursor DocumentCursor, sink PredictionLog) (MigrationStats, error) {
	var stats MigrationStats
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return stats, err
		}
		if !IsLegacy(doc) {
			stats.Skipped++
			continue
		}

		record, err := ConvertLegacy(doc)
		if err != nil {
			stats.Failed++
			logger.Log.WithError(err).WithField("id", doc["_id"]).Warn("Skipping unconvertible document")
			continue
		}
		if sink != nil {
			if err := sink.Append(ctx, &record); err != nil {
				return stats, err
			}
		}
		stats.Converted++
	}
	return stats, cursor.Err()
}
