package service

import (
	"context"
	"fmt"

	"github.com/feldbank/banking-api/internal/domain"
)

type accountRepository interface {
	GetByIBAN(ctx context.Context, iban string) (*domain.Account, error)
	GetByUsername(ctx context.Context, username string) ([]domain.Account, error)
}

// AccountService is the account directory: it resolves accounts and
// answers ownership questions for the other components.
type AccountService struct {
	accounts accountRepository
}

func NewAccountService(accounts accountRepository) *AccountService {
	return &AccountService{accounts: accounts}
}

// GetUserAccounts lists the principal's accounts in creation order.
func (s *AccountService) GetUserAccounts(ctx context.Context, username string) ([]domain.Account, error) {
	accounts, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("GetUserAccounts: %w", err)
	}
	return accounts, nil
}
