package transfer

import (
	"context"
	"log/slog"
	"time"

	"github.com/feldbank/banking-api/internal/domain"
)

type dueTriggerRepo interface {
	GetDue(ctx context.Context, now time.Time, limit int) ([]domain.TransferTrigger, error)
}

type fulfiller interface {
	Fulfil(ctx context.Context, trigger domain.TransferTrigger) error
}

// Dispatcher fires due transfer triggers. A trigger stays registered
// until its commit transaction succeeds, so a failed fulfilment is
// picked up again on the next tick.
type Dispatcher struct {
	triggers  dueTriggerRepo
	transfers fulfiller
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
}

func NewDispatcher(triggers dueTriggerRepo, transfers fulfiller, logger *slog.Logger, interval time.Duration, batchSize int) *Dispatcher {
	return &Dispatcher{
		triggers:  triggers,
		transfers: transfers,
		logger:    logger,
		interval:  interval,
		batchSize: batchSize,
	}
}

func (d *Dispatcher) Start(ctx context.Context) {
	d.logger.Info("trigger dispatcher started", "interval", d.interval)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("trigger dispatcher stopped")
			return
		case <-ticker.C:
			d.poll(ctx)
		}
	}
}

func (d *Dispatcher) poll(ctx context.Context) {
	due, err := d.triggers.GetDue(ctx, time.Now().UTC(), d.batchSize)
	if err != nil {
		d.logger.Error("failed to fetch due triggers", "error", err)
		return
	}

	for _, trigger := range due {
		if err := d.transfers.Fulfil(ctx, trigger); err != nil {
			d.logger.Error("failed to fulfil scheduled transfer",
				"trigger_id", trigger.ID,
				"iban", trigger.IBAN,
				"error", err,
			)
			continue
		}
		d.logger.Info("scheduled transfer fulfilled",
			"trigger_id", trigger.ID,
			"iban", trigger.IBAN,
		)
	}
}
