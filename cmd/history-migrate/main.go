// Command history-migrate copies flat legacy prediction documents into the
// nested prediction log layout. Source documents are never modified.
//
// Switch-over: run it with -target set to a new collection, then restart
// the service with STORE_PREDICTIONS_COLLECTION pointing at that collection.
package main

import (
	"context"
	"flag"
	"time"

	"github.com/cardioguard/platform/pkg/common/config"
	"github.com/cardioguard/platform/pkg/common/database"
	"github.com/cardioguard/platform/pkg/common/logger"
	"github.com/cardioguard/platform/pkg/serving"
	"github.com/sirupsen/logrus"
)

func main() {
	source := flag.String("source", "predictions", "collection holding legacy documents")
	target := flag.String("target", "predictions_v2", "collection receiving converted records")
	dryRun := flag.Bool("dry-run", false, "convert and report without writing")
	timeout := flag.Duration("timeout", 10*time.Minute, "overall migration timeout")
	flag.Parse()

	if err := config.LoadDotEnv(); err != nil {
		logger.Log.WithError(err).Fatal("Failed to load .env")
	}
	logger.Init()
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db, err := database.OpenMongo(ctx, cfg.StoreURL, cfg.StoreDatabase)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	defer db.Client().Disconnect(context.Background())

	var sink serving.PredictionLog
	if !*dryRun {
		log := serving.NewMongoLog(db, *target)
		if err := log.EnsureIndexes(ctx); err != nil {
			logger.Log.WithError(err).Fatal("Failed to create indexes")
		}
		sink = log
	}

	cursor, err := db.Collection(*source).Find(ctx, serving.LegacyFilter())
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to read legacy documents")
	}
	stats, err := serving.Migrate(ctx, cursor, sink)
	fields := logrus.Fields{
		"source":    *source,
		"target":    *target,
		"dry_run":   *dryRun,
		"converted": stats.Converted,
		"skipped":   stats.Skipped,
		"failed":    stats.Failed,
	}
	if err != nil {
		logger.Log.WithError(err).WithFields(fields).Fatal("Migration aborted")
	}
	logger.Log.WithFields(fields).Info("Migration finished")
}
