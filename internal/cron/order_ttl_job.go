package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/unimaker/paygate/pkg/db/models"
	"github.com/unimaker/paygate/pkg/logger"
)

const defaultExpiryBatch = 100

// OrderTTLJobParams configure the order expiry sweep.
type OrderTTLJobParams struct {
	Logger    *logger.Logger
	Expired   expiredOrderReader
	Ledger    orderExpirer
	BatchSize int
}

type expiredOrderReader interface {
	FindExpired(ctx context.Context, cutoff time.Time, limit int) ([]models.UnifiedOrder, error)
}

type orderExpirer interface {
	Expire(ctx context.Context, orderID uuid.UUID) (*models.UnifiedOrder, error)
}

// NewOrderTTLJob builds the cron job that expires orders past their TTL.
// Each order is expired in its own transaction through the ledger, so
// one refusal never stalls the rest of the batch.
func NewOrderTTLJob(params OrderTTLJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Expired == nil {
		return nil, fmt.Errorf("expired orders reader required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("order ledger required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultExpiryBatch
	}
	return &orderTTLJob{
		logg:    params.Logger,
		expired: params.Expired,
		ledger:  params.Ledger,
		batch:   batch,
		now:     time.Now,
	}, nil
}

type orderTTLJob struct {
	logg    *logger.Logger
	expired expiredOrderReader
	ledger  orderExpirer
	batch   int
	now     func() time.Time
}

func (j *orderTTLJob) Name() string { return "order-ttl" }

func (j *orderTTLJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC()
	stale, err := j.expired.FindExpired(ctx, cutoff, j.batch)
	if err != nil {
		return fmt.Errorf("find expired orders: %w", err)
	}
	if len(stale) == 0 {
		return nil
	}

	var errs error
	expired := 0
	for _, order := range stale {
		if _, err := j.ledger.Expire(ctx, order.ID); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("expire order %s: %w", order.ID, err))
			continue
		}
		expired++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":  cutoff,
		"found":   len(stale),
		"expired": expired,
	})
	j.logg.Info(logCtx, "order ttl sweep complete")
	return errs
}
