package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/feldbank/banking-api/internal/domain"
	"github.com/feldbank/banking-api/internal/repository"
)

const TestPassword = "password123"

func SeedUser(t *testing.T, db *sql.DB, username, firstName, lastName string) *domain.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	u := &domain.User{
		Username:     username,
		PasswordHash: string(hash),
		FirstName:    firstName,
		LastName:     lastName,
		CreatedAt:    time.Now().UTC(),
	}

	if err := repository.NewUserRepository(db).Create(context.Background(), u); err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
	return u
}

func SeedAccount(t *testing.T, db *sql.DB, iban, username string, idx int, balance decimal.Decimal, overdraftLimit *decimal.Decimal) *domain.Account {
	t.Helper()

	a := &domain.Account{
		IBAN:           iban,
		Username:       username,
		Index:          idx,
		Name:           "Girokonto",
		AccountType:    domain.AccountTypeChecking,
		Balance:        balance,
		OverdraftLimit: overdraftLimit,
		Version:        1,
		CreatedAt:      time.Now().UTC(),
	}

	if err := repository.NewAccountRepository(db).Create(context.Background(), a); err != nil {
		t.Fatalf("seed account %s: %v", iban, err)
	}
	return a
}

func GetAccountBalance(t *testing.T, db *sql.DB, iban string) decimal.Decimal {
	t.Helper()

	var balance decimal.Decimal
	err := db.QueryRow(`SELECT balance FROM accounts WHERE iban = $1`, iban).Scan(&balance)
	if err != nil {
		t.Fatalf("get account balance %s: %v", iban, err)
	}
	return balance
}

func CountTransactions(t *testing.T, db *sql.DB, iban string) int {
	t.Helper()

	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM transactions WHERE iban = $1`, iban).Scan(&count)
	if err != nil {
		t.Fatalf("count transactions for %s: %v", iban, err)
	}
	return count
}

func CountPending(t *testing.T, db *sql.DB, iban string) int {
	t.Helper()

	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM pending_transactions WHERE iban = $1`, iban).Scan(&count)
	if err != nil {
		t.Fatalf("count pending transactions for %s: %v", iban, err)
	}
	return count
}

func CountTriggers(t *testing.T, db *sql.DB, iban string) int {
	t.Helper()

	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM transfer_triggers WHERE iban = $1`, iban).Scan(&count)
	if err != nil {
		t.Fatalf("count triggers for %s: %v", iban, err)
	}
	return count
}
