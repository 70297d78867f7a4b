package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type AccountType string

const (
	AccountTypeChecking  AccountType = "checking"
	AccountTypeSavings   AccountType = "savings"
	AccountTypeCallMoney AccountType = "call_money"
)

// DefaultOverdraftLimit applies to accounts with no configured limit.
var DefaultOverdraftLimit = decimal.NewFromInt(-1000)

type Account struct {
	IBAN           string
	Username       string
	Index          int
	Name           string
	AccountType    AccountType
	Balance        decimal.Decimal
	OverdraftLimit *decimal.Decimal
	Version        int64
	CreatedAt      time.Time

	// Owner display name, denormalized from the users row on read.
	FirstName string
	LastName  string
}

// EffectiveLimit returns the configured overdraft limit, or the default
// when the account has none.
func (a *Account) EffectiveLimit() decimal.Decimal {
	if a.OverdraftLimit == nil {
		return DefaultOverdraftLimit
	}
	return *a.OverdraftLimit
}

func (a *Account) HolderName() string {
	return a.FirstName + " " + a.LastName
}
