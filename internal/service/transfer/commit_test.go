package transfer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/feldbank/banking-api/internal/domain"
	"github.com/feldbank/banking-api/internal/repository"
)

func newMockService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	svc := NewService(
		repository.NewAccountRepository(db),
		repository.NewTransactionRepository(db),
		repository.NewPendingTransactionRepository(db),
		repository.NewTriggerRepository(db),
		db,
		3*time.Minute,
	)
	return svc, mock
}

var accountCols = []string{
	"iban", "username", "idx", "name", "account_type",
	"balance", "overdraft_limit", "version", "created_at",
	"first_name", "last_name",
}

func accountRow(iban, username, balance string, version int64) *sqlmock.Rows {
	return sqlmock.NewRows(accountCols).
		AddRow(iban, username, 0, "Girokonto", "checking", balance, nil, version, time.Now(), "Test", "User")
}

func commitRequest() Request {
	return Request{
		Timestamp:         time.Now().UTC(),
		Amount:            decimal.NewFromInt(10),
		IBAN:              "DE01",
		ComplementaryIBAN: "DE02",
		ComplementaryName: "Test User",
	}
}

// One full commit attempt up to and including the first balance update,
// which is where the version guard can miss.
func expectAttemptThroughFirstUpdate(mock sqlmock.Sqlmock, updated int64) {
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT a\.iban`).WithArgs("DE01").WillReturnRows(accountRow("DE01", "alice", "100", 1))
	mock.ExpectQuery(`SELECT a\.iban`).WithArgs("DE02").WillReturnRows(accountRow("DE02", "bob", "50", 1))
	mock.ExpectExec(`INSERT INTO transactions`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO transactions`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE accounts SET balance`).WillReturnResult(sqlmock.NewResult(0, updated))
}

func TestCommit_RetriesOnVersionConflict(t *testing.T) {
	svc, mock := newMockService(t)
	req := commitRequest()

	// First attempt loses the version race and rolls back.
	expectAttemptThroughFirstUpdate(mock, 0)
	mock.ExpectRollback()

	// Second attempt goes through.
	expectAttemptThroughFirstUpdate(mock, 1)
	mock.ExpectExec(`UPDATE accounts SET balance`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM pending_transactions`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := svc.commit(context.Background(), req, req.Timestamp, nil)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCommit_ExhaustsRetryBudget(t *testing.T) {
	svc, mock := newMockService(t)
	req := commitRequest()

	for range maxCommitAttempts {
		expectAttemptThroughFirstUpdate(mock, 0)
		mock.ExpectRollback()
	}

	err := svc.commit(context.Background(), req, req.Timestamp, nil)
	require.ErrorIs(t, err, domain.ErrRetryBudgetExhausted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCommit_DoesNotRetryNonConflictErrors(t *testing.T) {
	svc, mock := newMockService(t)
	req := commitRequest()

	boom := errors.New("connection reset")
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT a\.iban`).WithArgs("DE01").WillReturnRows(accountRow("DE01", "alice", "100", 1))
	mock.ExpectQuery(`SELECT a\.iban`).WithArgs("DE02").WillReturnRows(accountRow("DE02", "bob", "50", 1))
	mock.ExpectExec(`INSERT INTO transactions`).WillReturnError(boom)
	mock.ExpectRollback()

	err := svc.commit(context.Background(), req, req.Timestamp, nil)
	require.Error(t, err)
	require.NotErrorIs(t, err, domain.ErrRetryBudgetExhausted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFulfil_DropsTriggerOnPermanentFailure(t *testing.T) {
	svc, mock := newMockService(t)
	req := commitRequest()

	payload, err := json.Marshal(req)
	require.NoError(t, err)
	trigger := domain.TransferTrigger{
		ID:        uuid.New(),
		IBAN:      req.IBAN,
		Timestamp: req.Timestamp,
		Payload:   payload,
	}

	// The ledger already holds a record at the key; no later tick can
	// succeed, so the trigger and stub are removed instead of refired.
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT a\.iban`).WithArgs("DE01").WillReturnRows(accountRow("DE01", "alice", "100", 1))
	mock.ExpectQuery(`SELECT a\.iban`).WithArgs("DE02").WillReturnRows(accountRow("DE02", "bob", "50", 1))
	mock.ExpectExec(`INSERT INTO transactions`).WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	mock.ExpectExec(`DELETE FROM transfer_triggers`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM pending_transactions`).WillReturnResult(sqlmock.NewResult(0, 1))

	err = svc.Fulfil(context.Background(), trigger)
	require.ErrorIs(t, err, domain.ErrDuplicateTransaction)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCommit_RemovesFiredTriggerInTransaction(t *testing.T) {
	svc, mock := newMockService(t)
	req := commitRequest()
	trigger := domain.TransferTrigger{IBAN: req.IBAN, Timestamp: req.Timestamp}

	expectAttemptThroughFirstUpdate(mock, 1)
	mock.ExpectExec(`UPDATE accounts SET balance`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM pending_transactions`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM transfer_triggers`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := svc.commit(context.Background(), req, req.Timestamp, &trigger.ID)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
