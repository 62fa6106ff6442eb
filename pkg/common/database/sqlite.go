package database

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/cardioguard/platform/pkg/common/logger"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// OpenSQLite opens an embedded database. The pool is capped at one
// connection so in-memory databases are shared and writes serialise.
func OpenSQLite(ctx context.Context, dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite %s: %w", dsn, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping SQLite %s: %w", dsn, err)
	}

	logger.Log.WithField("dsn", dsn).Info("Opened SQLite")
	return db, nil
}

// SQLiteDSN turns a sqlite:// store URL into a driver DSN.
// file: URIs are passed through untouched.
func SQLiteDSN(raw string) (string, error) {
	if strings.HasPrefix(raw, "file:") {
		return raw, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	path := u.Host + u.Path
	if path == "" {
		return "", fmt.Errorf("sqlite URL %q has no path", raw)
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return path, nil
}
