package transfer

import (
	"context"
	"fmt"

	"github.com/feldbank/banking-api/internal/domain"
)

// Validate enforces the ownership, self-transfer, and overdraft rules
// before any mutation. The returned transfer carries both resolved
// accounts; no writes happen here.
func (s *Service) Validate(ctx context.Context, principal string, req Request) (*ValidatedTransfer, error) {
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("Validate: %w", domain.ErrInvalidAmount)
	}

	if req.IBAN == req.ComplementaryIBAN {
		return nil, fmt.Errorf("Validate: %w", domain.ErrSelfTransfer)
	}

	it, complementary, err := s.resolveAccounts(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Validate: %w", err)
	}

	if it.Username != principal {
		return nil, fmt.Errorf("Validate: %w", domain.ErrNotAccountOwner)
	}

	// Re-read balance and limit so the check runs against the freshest
	// snapshot available. A commit racing between this read and ours can
	// still invalidate the check; the store's version guard decides then.
	fresh, err := s.accounts.GetByIBAN(ctx, it.IBAN)
	if err != nil {
		return nil, fmt.Errorf("Validate: %w", err)
	}

	if fresh.Balance.Sub(req.Amount).LessThan(fresh.EffectiveLimit()) {
		return nil, fmt.Errorf("Validate: %w", domain.ErrLimitExceeded)
	}

	return &ValidatedTransfer{
		It:            fresh,
		Complementary: complementary,
		Request:       req,
	}, nil
}

func (s *Service) resolveAccounts(ctx context.Context, req Request) (it, complementary *domain.Account, err error) {
	accounts, err := s.accounts.GetByIBANs(ctx, []string{req.IBAN, req.ComplementaryIBAN})
	if err != nil {
		return nil, nil, fmt.Errorf("resolveAccounts: %w", err)
	}

	for i := range accounts {
		switch accounts[i].IBAN {
		case req.IBAN:
			it = &accounts[i]
		case req.ComplementaryIBAN:
			complementary = &accounts[i]
		}
	}

	if it == nil || complementary == nil {
		return nil, nil, fmt.Errorf("resolveAccounts: %w", domain.ErrAccountNotFound)
	}
	return it, complementary, nil
}
