package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/feldbank/banking-api/internal/domain"
)

const accountColumns = `a.iban, a.username, a.idx, a.name, a.account_type,
	a.balance, a.overdraft_limit, a.version, a.created_at,
	u.first_name, u.last_name`

const accountFrom = ` FROM accounts a JOIN users u ON u.username = a.username `

type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) GetByIBAN(ctx context.Context, iban string) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+accountFrom+`WHERE a.iban = $1`, iban,
	)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByIBAN: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByIBAN: %w", err)
	}
	return a, nil
}

// GetByIBANs batch-resolves accounts. Missing ibans are simply absent
// from the result; the caller decides whether that is an error.
func (r *AccountRepository) GetByIBANs(ctx context.Context, ibans []string) ([]domain.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+accountColumns+accountFrom+`WHERE a.iban = ANY($1)`,
		pq.Array(ibans),
	)
	if err != nil {
		return nil, fmt.Errorf("GetByIBANs: %w", err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("GetByIBANs: scan: %w", err)
		}
		accounts = append(accounts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetByIBANs: rows: %w", err)
	}
	return accounts, nil
}

func (r *AccountRepository) GetByUsername(ctx context.Context, username string) ([]domain.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+accountColumns+accountFrom+`WHERE a.username = $1 ORDER BY a.idx`, username,
	)
	if err != nil {
		return nil, fmt.Errorf("GetByUsername: %w", err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("GetByUsername: scan: %w", err)
		}
		accounts = append(accounts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetByUsername: rows: %w", err)
	}
	return accounts, nil
}

func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	var limit decimal.NullDecimal
	if account.OverdraftLimit != nil {
		limit = decimal.NewNullDecimal(*account.OverdraftLimit)
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (
			iban, username, idx, name, account_type, balance, overdraft_limit, version, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		account.IBAN, account.Username, account.Index, account.Name, account.AccountType,
		account.Balance, limit, account.Version, account.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

// GetTx reads an account inside an open transaction so the balance seen
// is the one the version guard will be checked against.
func (r *AccountRepository) GetTx(ctx context.Context, tx *sql.Tx, iban string) (*domain.Account, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+accountColumns+accountFrom+`WHERE a.iban = $1`, iban,
	)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetTx: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetTx: %w", err)
	}
	return a, nil
}

// UpdateBalance applies a new balance guarded by the version read
// beforehand. A zero-row update means a concurrent commit won the race
// and surfaces as ErrVersionConflict.
func (r *AccountRepository) UpdateBalance(ctx context.Context, tx *sql.Tx, iban string, newBalance decimal.Decimal, newVersion int64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE accounts SET balance = $1, version = $2 WHERE iban = $3 AND version = $4`,
		newBalance, newVersion, iban, newVersion-1,
	)
	if err != nil {
		return fmt.Errorf("UpdateBalance: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("UpdateBalance: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("UpdateBalance: %w", domain.ErrVersionConflict)
	}
	return nil
}

func scanAccount(s scanner) (*domain.Account, error) {
	var (
		a     domain.Account
		limit decimal.NullDecimal
	)
	err := s.Scan(
		&a.IBAN, &a.Username, &a.Index, &a.Name, &a.AccountType,
		&a.Balance, &limit, &a.Version, &a.CreatedAt,
		&a.FirstName, &a.LastName,
	)
	if err != nil {
		return nil, err
	}
	if limit.Valid {
		a.OverdraftLimit = &limit.Decimal
	}
	return &a, nil
}
