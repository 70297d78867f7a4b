package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/feldbank/banking-api/internal/domain"
)

const transactionColumns = `iban, ts, amount, complementary_iban, complementary_name, memo, memo_type, tx_type`

// TransactionRepository is the committed, append-only ledger.
type TransactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(ctx context.Context, tx *sql.Tx, rec *domain.TransactionRecord) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO transactions (`+transactionColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.IBAN, rec.Timestamp, rec.Amount, rec.ComplementaryIBAN, rec.ComplementaryName,
		rec.Text, rec.TextType, rec.Type,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return fmt.Errorf("Create: %w", domain.ErrDuplicateTransaction)
		}
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

// ListByIBAN pages forward through an account's ledger in ascending
// timestamp order. A non-nil after excludes everything at or before it.
func (r *TransactionRepository) ListByIBAN(ctx context.Context, iban string, limit int, after *time.Time) ([]domain.TransactionRecord, error) {
	return listRecords(ctx, r.db, "transactions", iban, limit, after)
}

func listRecords(ctx context.Context, db *sql.DB, table string, iban string, limit int, after *time.Time) ([]domain.TransactionRecord, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if after != nil {
		rows, err = db.QueryContext(ctx,
			`SELECT `+transactionColumns+` FROM `+table+`
			 WHERE iban = $1 AND ts > $2 ORDER BY ts ASC LIMIT $3`,
			iban, *after, limit,
		)
	} else {
		rows, err = db.QueryContext(ctx,
			`SELECT `+transactionColumns+` FROM `+table+`
			 WHERE iban = $1 ORDER BY ts ASC LIMIT $2`,
			iban, limit,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("listRecords %s: %w", table, err)
	}
	defer rows.Close()

	var records []domain.TransactionRecord
	for rows.Next() {
		rec, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("listRecords %s: scan: %w", table, err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listRecords %s: rows: %w", table, err)
	}
	return records, nil
}

func scanTransaction(s scanner) (*domain.TransactionRecord, error) {
	var rec domain.TransactionRecord
	err := s.Scan(
		&rec.IBAN, &rec.Timestamp, &rec.Amount, &rec.ComplementaryIBAN, &rec.ComplementaryName,
		&rec.Text, &rec.TextType, &rec.Type,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
