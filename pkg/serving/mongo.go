package serving

import (
	"context"
	"errors"
	"time"

	"github.com/cardioguard/platform/pkg/common/logger"
	"github.com/cardioguard/platform/pkg/common/models"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const PredictionsCollection = "predictions"

// MongoLog stores predictions as single documents; each insert is atomic.
type MongoLog struct {
	coll *mongo.Collection
	now  func() time.Time
}

// NewMongoLog stores predictions in the named collection of db, or in
// PredictionsCollection when name is empty.
func NewMongoLog(db *mongo.Database, name string) *MongoLog {
	if name == "" {
		name = PredictionsCollection
	}
	return NewMongoLogForCollection(db.Collection(name))
}

func NewMongoLogForCollection(coll *mongo.Collection) *MongoLog {
	return &MongoLog{coll: coll, now: time.Now}
}

func (l *MongoLog) Collection() string {
	return l.coll.Name()
}

func (l *MongoLog) EnsureIndexes(ctx context.Context) error {
	_, err := l.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "created_at", Value: -1}},
	})
	return err
}

func (l *MongoLog) Append(ctx context.Context, record *models.PredictionRecord) error {
	if record == nil {
		return errors.New("nil prediction record")
	}
	stamp(record, l.now)
	_, err := l.coll.InsertOne(ctx, record)
	return err
}

func (l *MongoLog) List(ctx context.Context) ([]models.PredictionRecord, error) {
	cursor, err := l.coll.Find(ctx, bson.D{}, listOptions())
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	records := make([]models.PredictionRecord, 0)
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return keepCurrent(records, l.coll.Name()), nil
}

// keepCurrent drops documents that do not decode to a nested record, such
// as flat legacy entries left in the collection before history-migrate ran.
func keepCurrent(records []models.PredictionRecord, collection string) []models.PredictionRecord {
	kept := records[:0]
	for _, record := range records {
		if !record.Risk.Valid() || record.CreatedAt.IsZero() {
			continue
		}
		record.CreatedAt = record.CreatedAt.UTC()
		kept = append(kept, record)
	}
	if skipped := len(records) - len(kept); skipped > 0 {
		logger.Log.WithFields(logrus.Fields{
			"collection": collection,
			"skipped":    skipped,
		}).Warn("history contains legacy documents; run history-migrate and set STORE_PREDICTIONS_COLLECTION")
	}
	return kept
}

// listOptions sorts newest first, ObjectID breaking ties, and hides _id.
func listOptions() *options.FindOptions {
	return options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetProjection(bson.D{{Key: "_id", Value: 0}})
}
