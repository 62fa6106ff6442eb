package serving

import (
	"context"
	"time"

	"github.com/cardioguard/platform/pkg/common/models"
)

// PredictionLog is the append-only store of inference records.
// List returns every record, newest first; storage ids never leave the store.
type PredictionLog interface {
	Append(ctx context.Context, record *models.PredictionRecord) error
	List(ctx context.Context) ([]models.PredictionRecord, error)
}

// stamp assigns the server-side creation time when the caller left it unset.
func stamp(record *models.PredictionRecord, now func() time.Time) {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now().UTC()
	}
}
