package serving

import (
	"context"
	"errors"
	"time"

	"github.com/cardioguard/platform/pkg/common/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PredictionRow is the persistence model for the prediction log.
type PredictionRow struct {
	ID         uint64                                   `gorm:"primaryKey;autoIncrement;column:id"`
	Patient    datatypes.JSONType[models.PatientInput] `gorm:"column:patient"`
	Medical    datatypes.JSONType[models.MedicalInput] `gorm:"column:medical"`
	Risk       string                                   `gorm:"column:risk;size:16;not null"`
	Confidence float64                                  `gorm:"column:confidence;not null"`
	CreatedAt  time.Time                                `gorm:"column:created_at;index;not null"`
}

// TableName overrides gorm naming.
func (PredictionRow) TableName() string {
	return "predictions"
}

func (r PredictionRow) toRecord() models.PredictionRecord {
	return models.PredictionRecord{
		Patient:    r.Patient.Data(),
		Medical:    r.Medical.Data(),
		Risk:       models.Risk(r.Risk),
		Confidence: r.Confidence,
		CreatedAt:  r.CreatedAt.UTC(),
	}
}

// GormLog stores predictions in PostgreSQL or SQLite.
type GormLog struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormLog(db *gorm.DB) *GormLog {
	return &GormLog{db: db, now: time.Now}
}

func (l *GormLog) AutoMigrate() error {
	return l.db.AutoMigrate(&PredictionRow{})
}

func (l *GormLog) Append(ctx context.Context, record *models.PredictionRecord) error {
	if record == nil {
		return errors.New("nil prediction record")
	}
	stamp(record, l.now)
	row := PredictionRow{
		Patient:    datatypes.NewJSONType(record.Patient),
		Medical:    datatypes.NewJSONType(record.Medical),
		Risk:       string(record.Risk),
		Confidence: record.Confidence,
		CreatedAt:  record.CreatedAt,
	}
	return l.db.WithContext(ctx).Create(&row).Error
}

// List returns all predictions, newest first. Equal timestamps fall back
// to insertion order.
func (l *GormLog) List(ctx context.Context) ([]models.PredictionRecord, error) {
	var rows []PredictionRow
	err := l.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	records := make([]models.PredictionRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.toRecord())
	}
	return records, nil
}
