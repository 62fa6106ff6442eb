package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/cardioguard/platform/pkg/common/config"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// Store is the opened persistence backend selected by STORE_URL.
// Exactly one of SQL and Mongo is set.
type Store struct {
	Kind  string
	SQL   *gorm.DB
	Mongo *mongo.Database
}

// Open connects to the backend named by the store URL scheme.
func Open(ctx context.Context, storeURL, database string) (*Store, error) {
	kind, err := config.StoreScheme(storeURL)
	if err != nil {
		return nil, err
	}

	switch kind {
	case "mongodb":
		db, err := OpenMongo(ctx, storeURL, database)
		if err != nil {
			return nil, err
		}
		return &Store{Kind: kind, Mongo: db}, nil
	case "postgres":
		db, err := OpenPostgres(ctx, storeURL)
		if err != nil {
			return nil, err
		}
		return &Store{Kind: kind, SQL: db}, nil
	case "sqlite":
		dsn, err := SQLiteDSN(storeURL)
		if err != nil {
			return nil, err
		}
		db, err := OpenSQLite(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return &Store{Kind: kind, SQL: db}, nil
	default:
		return nil, fmt.Errorf("unsupported store %q", kind)
	}
}

func (s *Store) Ping(ctx context.Context) error {
	switch {
	case s.SQL != nil:
		return pingGorm(ctx, s.SQL)
	case s.Mongo != nil:
		return s.Mongo.Client().Ping(ctx, nil)
	default:
		return errors.New("store not opened")
	}
}

func (s *Store) Close(ctx context.Context) error {
	switch {
	case s.SQL != nil:
		return CloseGorm(s.SQL)
	case s.Mongo != nil:
		return s.Mongo.Client().Disconnect(ctx)
	default:
		return nil
	}
}
