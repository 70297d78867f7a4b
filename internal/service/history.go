package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/feldbank/banking-api/internal/domain"
)

type recordLister interface {
	ListByIBAN(ctx context.Context, iban string, limit int, after *time.Time) ([]domain.TransactionRecord, error)
}

// HistoryService reads an account's transaction history, from either
// the committed ledger or the pending store, with forward cursor
// pagination ordered ascending by timestamp.
type HistoryService struct {
	accounts accountRepository
	ledger   recordLister
	pending  recordLister
}

func NewHistoryService(accounts accountRepository, ledger, pending recordLister) *HistoryService {
	return &HistoryService{
		accounts: accounts,
		ledger:   ledger,
		pending:  pending,
	}
}

type HistoryPage struct {
	Records []domain.TransactionRecord
	// LastDate is the cursor for the next page; nil when this page
	// exhausted the account's records.
	LastDate *time.Time
}

// List returns up to n records for iban, strictly after the exclusive
// cursor when one is given. The principal must own the account. Stored
// selects the pending store instead of the ledger.
func (s *HistoryService) List(ctx context.Context, principal, iban string, n int, exclusiveDate *time.Time, stored bool) (*HistoryPage, error) {
	account, err := s.accounts.GetByIBAN(ctx, iban)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("List: %w", domain.ErrNotAccountOwner)
		}
		return nil, fmt.Errorf("List: %w", err)
	}
	if account.Username != principal {
		return nil, fmt.Errorf("List: %w", domain.ErrNotAccountOwner)
	}

	source := s.ledger
	if stored {
		source = s.pending
	}

	records, err := source.ListByIBAN(ctx, iban, n, exclusiveDate)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}

	page := &HistoryPage{Records: records}
	// A full page means the query stopped at the limit; hand back the
	// last timestamp as the next exclusive-start cursor.
	if len(records) == n {
		last := records[len(records)-1].Timestamp
		page.LastDate = &last
	}
	return page, nil
}
