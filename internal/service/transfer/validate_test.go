package transfer

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feldbank/banking-api/internal/domain"
)

type fakeAccountRepo struct {
	accounts map[string]*domain.Account
}

func (f *fakeAccountRepo) GetByIBAN(_ context.Context, iban string) (*domain.Account, error) {
	a, ok := f.accounts[iban]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAccountRepo) GetByIBANs(_ context.Context, ibans []string) ([]domain.Account, error) {
	var out []domain.Account
	for _, iban := range ibans {
		if a, ok := f.accounts[iban]; ok {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeAccountRepo) GetTx(ctx context.Context, _ *sql.Tx, iban string) (*domain.Account, error) {
	return f.GetByIBAN(ctx, iban)
}

func (f *fakeAccountRepo) UpdateBalance(context.Context, *sql.Tx, string, decimal.Decimal, int64) error {
	return nil
}

func testAccount(iban, username string, balance int64, limit *decimal.Decimal) *domain.Account {
	return &domain.Account{
		IBAN:           iban,
		Username:       username,
		Name:           "Girokonto",
		AccountType:    domain.AccountTypeChecking,
		Balance:        decimal.NewFromInt(balance),
		OverdraftLimit: limit,
		Version:        1,
	}
}

func TestValidate(t *testing.T) {
	zero := decimal.Zero
	repo := &fakeAccountRepo{accounts: map[string]*domain.Account{
		"DE01": testAccount("DE01", "alice", 5000, nil),
		"DE02": testAccount("DE02", "bob", 50, nil),
		"DE03": testAccount("DE03", "alice", 200, &zero),
	}}
	svc := &Service{accounts: repo}
	ctx := context.Background()

	base := Request{
		Timestamp:         time.Now().UTC(),
		Amount:            decimal.NewFromInt(10),
		IBAN:              "DE01",
		ComplementaryIBAN: "DE02",
		ComplementaryName: "Bob Builder",
	}

	tests := []struct {
		name      string
		principal string
		mutate    func(*Request)
		wantErr   error
	}{
		{
			name:      "valid transfer",
			principal: "alice",
		},
		{
			name:      "amount zero",
			principal: "alice",
			mutate:    func(r *Request) { r.Amount = decimal.Zero },
			wantErr:   domain.ErrInvalidAmount,
		},
		{
			name:      "amount negative",
			principal: "alice",
			mutate:    func(r *Request) { r.Amount = decimal.NewFromInt(-5) },
			wantErr:   domain.ErrInvalidAmount,
		},
		{
			name:      "self transfer",
			principal: "alice",
			mutate:    func(r *Request) { r.ComplementaryIBAN = "DE01" },
			wantErr:   domain.ErrSelfTransfer,
		},
		{
			name:      "unknown initiating account",
			principal: "alice",
			mutate:    func(r *Request) { r.IBAN = "DE99" },
			wantErr:   domain.ErrAccountNotFound,
		},
		{
			name:      "unknown complementary account",
			principal: "alice",
			mutate:    func(r *Request) { r.ComplementaryIBAN = "DE99" },
			wantErr:   domain.ErrAccountNotFound,
		},
		{
			name:      "account not owned by principal",
			principal: "bob",
			wantErr:   domain.ErrNotAccountOwner,
		},
		{
			name:      "amount exceeds default overdraft limit",
			principal: "alice",
			mutate:    func(r *Request) { r.Amount = decimal.NewFromInt(8000) },
			wantErr:   domain.ErrLimitExceeded,
		},
		{
			name:      "amount exactly down to default limit is allowed",
			principal: "alice",
			mutate:    func(r *Request) { r.Amount = decimal.NewFromInt(6000) },
		},
		{
			name:      "custom zero limit blocks overdraft",
			principal: "alice",
			mutate: func(r *Request) {
				r.IBAN = "DE03"
				r.Amount = decimal.NewFromInt(201)
			},
			wantErr: domain.ErrLimitExceeded,
		},
		{
			name:      "custom zero limit allows draining to zero",
			principal: "alice",
			mutate: func(r *Request) {
				r.IBAN = "DE03"
				r.Amount = decimal.NewFromInt(200)
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := base
			if tc.mutate != nil {
				tc.mutate(&req)
			}

			vt, err := svc.Validate(ctx, tc.principal, req)

			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, req.IBAN, vt.It.IBAN)
			assert.Equal(t, req.ComplementaryIBAN, vt.Complementary.IBAN)
			assert.Equal(t, tc.principal, vt.It.Username)
		})
	}
}
