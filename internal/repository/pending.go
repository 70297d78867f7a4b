package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/feldbank/banking-api/internal/domain"
)

// PendingTransactionRepository is the staging area for saved-for-later
// transfers. Rows are mutable until a commit fulfils and removes them.
type PendingTransactionRepository struct {
	db *sql.DB
}

func NewPendingTransactionRepository(db *sql.DB) *PendingTransactionRepository {
	return &PendingTransactionRepository{db: db}
}

const pendingUpsert = `INSERT INTO pending_transactions (` + transactionColumns + `)
	 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	 ON CONFLICT (iban, ts) DO UPDATE SET
		amount = EXCLUDED.amount,
		complementary_iban = EXCLUDED.complementary_iban,
		complementary_name = EXCLUDED.complementary_name,
		memo = EXCLUDED.memo,
		memo_type = EXCLUDED.memo_type,
		tx_type = EXCLUDED.tx_type
	 RETURNING (xmax <> 0)`

// Save upserts the record keyed by (iban, ts) and reports whether an
// existing record was replaced. xmax is zero only for freshly inserted
// tuples, which distinguishes insert from overwrite in one round trip.
func (r *PendingTransactionRepository) Save(ctx context.Context, rec *domain.TransactionRecord) (replaced bool, err error) {
	err = r.db.QueryRowContext(ctx, pendingUpsert,
		rec.IBAN, rec.Timestamp, rec.Amount, rec.ComplementaryIBAN, rec.ComplementaryName,
		rec.Text, rec.TextType, rec.Type,
	).Scan(&replaced)
	if err != nil {
		return false, fmt.Errorf("Save: %w", err)
	}
	return replaced, nil
}

// SaveTx is Save inside the scheduling transaction, so the stub and the
// trigger registration land or fail together.
func (r *PendingTransactionRepository) SaveTx(ctx context.Context, tx *sql.Tx, rec *domain.TransactionRecord) (replaced bool, err error) {
	err = tx.QueryRowContext(ctx, pendingUpsert,
		rec.IBAN, rec.Timestamp, rec.Amount, rec.ComplementaryIBAN, rec.ComplementaryName,
		rec.Text, rec.TextType, rec.Type,
	).Scan(&replaced)
	if err != nil {
		return false, fmt.Errorf("SaveTx: %w", err)
	}
	return replaced, nil
}

// Delete is idempotent; deleting an absent record is not an error.
func (r *PendingTransactionRepository) Delete(ctx context.Context, iban string, ts time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM pending_transactions WHERE iban = $1 AND ts = $2`, iban, ts,
	)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	return nil
}

// DeleteTx removes a stub inside the ledger commit transaction so
// fulfilment and stub removal are one atomic step.
func (r *PendingTransactionRepository) DeleteTx(ctx context.Context, tx *sql.Tx, iban string, ts time.Time) error {
	_, err := tx.ExecContext(ctx,
		`DELETE FROM pending_transactions WHERE iban = $1 AND ts = $2`, iban, ts,
	)
	if err != nil {
		return fmt.Errorf("DeleteTx: %w", err)
	}
	return nil
}

func (r *PendingTransactionRepository) ListByIBAN(ctx context.Context, iban string, limit int, after *time.Time) ([]domain.TransactionRecord, error) {
	return listRecords(ctx, r.db, "pending_transactions", iban, limit, after)
}
