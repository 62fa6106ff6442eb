package patients

import (
	"context"
	"time"

	"github.com/cardioguard/platform/pkg/common/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

const Collection = "patients"

type Repository interface {
	Create(ctx context.Context, patient *models.Patient) error
}

// Row is the relational form of a registry entry.
type Row struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)"`
	Name      string    `gorm:"size:255;not null"`
	Gender    string    `gorm:"size:32;not null"`
	CreatedAt time.Time `gorm:"index;not null"`
}

func (Row) TableName() string {
	return Collection
}

type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&Row{})
}

func (r *GormRepository) Create(ctx context.Context, patient *models.Patient) error {
	row := Row{
		ID:        uuid.New().String(),
		Name:      patient.Name,
		Gender:    patient.Gender,
		CreatedAt: patient.CreatedAt,
	}
	return r.db.WithContext(ctx).Create(&row).Error
}

type MongoRepository struct {
	coll *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{coll: db.Collection(Collection)}
}

func (r *MongoRepository) Create(ctx context.Context, patient *models.Patient) error {
	_, err := r.coll.InsertOne(ctx, patient)
	return err
}
