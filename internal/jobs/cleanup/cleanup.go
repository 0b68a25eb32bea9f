package cleanup

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	pgrepo "github.com/dasilvacsv/jadRifas-sub000/internal/repo/postgres"
)

const rejectedBatchSize = 200

type TicketStore interface {
	PurgeExpiredHolds(ctx context.Context, cutoff time.Time) (int64, error)
}

type PurchaseStore interface {
	RejectedScreenshotsBefore(ctx context.Context, cutoff time.Time, limit int) ([]pgrepo.PurchaseRecord, error)
	ClearScreenshot(ctx context.Context, purchaseID uuid.UUID) error
}

type ObjectRemover interface {
	Delete(ctx context.Context, key string) error
}

// Job is the retention pass: it deletes hold rows that lapsed longer
// than the retention window ago and strips payment screenshots from
// old rejected purchases (row kept, object removed). Reservation
// correctness never depends on it; the reserve path reclaims expired
// holds on its own.
type Job struct {
	tickets   TicketStore
	purchases PurchaseStore
	storage   ObjectRemover
	retention time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

func New(tickets TicketStore, purchases PurchaseStore, storage ObjectRemover, retention time.Duration, logger *zap.Logger) *Job {
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Job{
		tickets:   tickets,
		purchases: purchases,
		storage:   storage,
		retention: retention,
		now:       time.Now,
		logger:    logger,
	}
}

func (j *Job) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)

	if j.tickets != nil {
		purged, err := j.tickets.PurgeExpiredHolds(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("purge expired holds: %w", err)
		}
		if purged > 0 {
			j.logger.Info("purged expired holds", zap.Int64("purged", purged))
		}
	}

	if j.purchases == nil || j.storage == nil {
		return nil
	}

	rejected, err := j.purchases.RejectedScreenshotsBefore(ctx, cutoff, rejectedBatchSize)
	if err != nil {
		return fmt.Errorf("list rejected screenshots: %w", err)
	}

	cleared := 0
	for _, purchase := range rejected {
		if purchase.ScreenshotKey == "" {
			continue
		}
		if err := j.storage.Delete(ctx, purchase.ScreenshotKey); err != nil {
			j.logger.Warn("failed to delete screenshot object",
				zap.Error(err), zap.String("object_key", purchase.ScreenshotKey))
			continue
		}
		if err := j.purchases.ClearScreenshot(ctx, purchase.ID); err != nil {
			return fmt.Errorf("clear screenshot reference: %w", err)
		}
		cleared++
	}

	if cleared > 0 {
		j.logger.Info("cleared rejected purchase screenshots", zap.Int("cleared", cleared))
	}
	return nil
}

// RunLoop runs the retention pass once immediately and then on the
// given interval until the context ends.
func (j *Job) RunLoop(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 6 * time.Hour
	}

	if err := j.Run(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				return err
			}
		}
	}
}
