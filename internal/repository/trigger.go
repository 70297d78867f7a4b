package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/feldbank/banking-api/internal/domain"
)

// TriggerRepository stores schedule entries for deferred transfers.
// Triggers are addressed two ways: by opaque id (the dispatcher removes
// a fired trigger inside the commit transaction) and by the transfer
// key (cancellation and replacement know only iban and timestamp).
type TriggerRepository struct {
	db *sql.DB
}

func NewTriggerRepository(db *sql.DB) *TriggerRepository {
	return &TriggerRepository{db: db}
}

// CreateTx registers a trigger inside the scheduling transaction.
// Re-registering the same transfer key replaces the existing entry, so
// resubmitting a deferred transfer reschedules it instead of failing.
func (r *TriggerRepository) CreateTx(ctx context.Context, tx *sql.Tx, trigger *domain.TransferTrigger) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO transfer_triggers (id, iban, ts, due_at, payload, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (iban, ts) DO UPDATE SET
			id = EXCLUDED.id,
			due_at = EXCLUDED.due_at,
			payload = EXCLUDED.payload,
			created_at = EXCLUDED.created_at`,
		trigger.ID, trigger.IBAN, trigger.Timestamp, trigger.DueAt, trigger.Payload, trigger.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("CreateTx: %w", err)
	}
	return nil
}

// DeleteByKey unregisters whatever trigger is registered for a transfer.
// Absence is success.
func (r *TriggerRepository) DeleteByKey(ctx context.Context, iban string, ts time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM transfer_triggers WHERE iban = $1 AND ts = $2`, iban, ts,
	)
	if err != nil {
		return fmt.Errorf("DeleteByKey: %w", err)
	}
	return nil
}

// DeleteTx removes a fired trigger inside the ledger commit transaction
// so a transfer can never fire twice.
func (r *TriggerRepository) DeleteTx(ctx context.Context, tx *sql.Tx, id uuid.UUID) error {
	_, err := tx.ExecContext(ctx,
		`DELETE FROM transfer_triggers WHERE id = $1`, id,
	)
	if err != nil {
		return fmt.Errorf("DeleteTx: %w", err)
	}
	return nil
}

func (r *TriggerRepository) GetDue(ctx context.Context, now time.Time, limit int) ([]domain.TransferTrigger, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, iban, ts, due_at, payload, created_at FROM transfer_triggers
		 WHERE due_at <= $1 ORDER BY due_at LIMIT $2`,
		now, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("GetDue: %w", err)
	}
	defer rows.Close()

	var triggers []domain.TransferTrigger
	for rows.Next() {
		var t domain.TransferTrigger
		if err := rows.Scan(&t.ID, &t.IBAN, &t.Timestamp, &t.DueAt, &t.Payload, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("GetDue: scan: %w", err)
		}
		triggers = append(triggers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetDue: rows: %w", err)
	}
	return triggers, nil
}
