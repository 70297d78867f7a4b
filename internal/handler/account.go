package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/feldbank/banking-api/internal/auth"
	"github.com/feldbank/banking-api/internal/domain"
	"github.com/feldbank/banking-api/internal/logging"
)

type accountService interface {
	GetUserAccounts(ctx context.Context, username string) ([]domain.Account, error)
}

type AccountHandler struct {
	accounts accountService
}

func NewAccountHandler(accounts accountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

type accountDTO struct {
	IBAN           string          `json:"iban"`
	Name           string          `json:"name"`
	AccountType    string          `json:"accountType"`
	Balance        decimal.Decimal `json:"balance"`
	OverdraftLimit decimal.Decimal `json:"overdraftLimit"`
	CreatedAt      time.Time       `json:"createdAt"`
}

func toAccountDTO(a *domain.Account) accountDTO {
	return accountDTO{
		IBAN:           a.IBAN,
		Name:           a.Name,
		AccountType:    string(a.AccountType),
		Balance:        a.Balance,
		OverdraftLimit: a.EffectiveLimit(),
		CreatedAt:      a.CreatedAt,
	}
}

func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	username, ok := auth.UsernameFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrInvalidToken, nil)
		return
	}

	accounts, err := h.accounts.GetUserAccounts(r.Context(), username)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to list accounts", "error", err)
		RespondDomainError(w, err)
		return
	}

	dtos := make([]accountDTO, len(accounts))
	for i := range accounts {
		dtos[i] = toAccountDTO(&accounts[i])
	}

	RespondJSON(w, http.StatusOK, dtos)
}
