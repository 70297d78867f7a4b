package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feldbank/banking-api/internal/auth"
	"github.com/feldbank/banking-api/internal/domain"
	"github.com/feldbank/banking-api/internal/service"
	"github.com/feldbank/banking-api/internal/service/transfer"
)

type mockTransferService struct {
	validateErr error
	performErr  error
	deferred    bool
	replaced    bool
	cancelled   bool
}

func (m *mockTransferService) Validate(_ context.Context, principal string, req transfer.Request) (*transfer.ValidatedTransfer, error) {
	if m.validateErr != nil {
		return nil, m.validateErr
	}
	return &transfer.ValidatedTransfer{
		It:      &domain.Account{IBAN: req.IBAN, Username: principal},
		Request: req,
	}, nil
}

func (m *mockTransferService) Perform(context.Context, *transfer.ValidatedTransfer) (bool, error) {
	return m.deferred, m.performErr
}

func (m *mockTransferService) SavePending(context.Context, *transfer.ValidatedTransfer) (bool, error) {
	return m.replaced, nil
}

func (m *mockTransferService) Cancel(context.Context, *transfer.ValidatedTransfer) error {
	m.cancelled = true
	return nil
}

type mockHistoryService struct {
	page *service.HistoryPage
	err  error
}

func (m *mockHistoryService) List(context.Context, string, string, int, *time.Time, bool) (*service.HistoryPage, error) {
	return m.page, m.err
}

func validTransactionBody() string {
	return `{
		"timestamp": "2026-01-15T09:00:00Z",
		"amount": 10,
		"text": "rent",
		"textType": "Verwendungszweck",
		"type": "",
		"iban": "DE01",
		"complementaryIban": "DE02",
		"complementaryName": "Bob Builder"
	}`
}

func doRequest(t *testing.T, h http.HandlerFunc, method, body string, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, "/api/v1/transactions", strings.NewReader(body))
	if authed {
		req = req.WithContext(auth.ContextWithUsername(req.Context(), "alice"))
	}
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestTransactionPerform(t *testing.T) {
	tests := []struct {
		name       string
		svc        *mockTransferService
		body       string
		authed     bool
		wantStatus int
		wantCode   string
	}{
		{
			name:       "committed immediately",
			svc:        &mockTransferService{},
			body:       validTransactionBody(),
			authed:     true,
			wantStatus: http.StatusNoContent,
		},
		{
			name:       "deferred",
			svc:        &mockTransferService{deferred: true},
			body:       validTransactionBody(),
			authed:     true,
			wantStatus: http.StatusAccepted,
		},
		{
			name:       "no principal",
			svc:        &mockTransferService{},
			body:       validTransactionBody(),
			wantStatus: http.StatusUnauthorized,
			wantCode:   "INVALID_TOKEN",
		},
		{
			name:       "malformed body",
			svc:        &mockTransferService{},
			body:       `{`,
			authed:     true,
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_REQUEST",
		},
		{
			name:       "unknown text type",
			svc:        &mockTransferService{},
			body:       strings.Replace(validTransactionBody(), "Verwendungszweck", "Memo", 1),
			authed:     true,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "limit exceeded",
			svc:        &mockTransferService{validateErr: domain.ErrLimitExceeded},
			body:       validTransactionBody(),
			authed:     true,
			wantStatus: http.StatusForbidden,
			wantCode:   "LIMIT_EXCEEDED",
		},
		{
			name:       "not account owner",
			svc:        &mockTransferService{validateErr: domain.ErrNotAccountOwner},
			body:       validTransactionBody(),
			authed:     true,
			wantStatus: http.StatusUnauthorized,
			wantCode:   "NOT_ACCOUNT_OWNER",
		},
		{
			name:       "retry budget exhausted",
			svc:        &mockTransferService{performErr: domain.ErrRetryBudgetExhausted},
			body:       validTransactionBody(),
			authed:     true,
			wantStatus: http.StatusTooManyRequests,
			wantCode:   "TOO_MANY_CONFLICTS",
		},
		{
			name:       "self transfer",
			svc:        &mockTransferService{validateErr: domain.ErrSelfTransfer},
			body:       validTransactionBody(),
			authed:     true,
			wantStatus: http.StatusBadRequest,
			wantCode:   "SELF_TRANSFER_NOT_ALLOWED",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewTransactionHandler(tc.svc, &mockHistoryService{})
			rec := doRequest(t, h.Perform, http.MethodPost, tc.body, tc.authed)

			assert.Equal(t, tc.wantStatus, rec.Code)
			if tc.wantCode != "" {
				var resp errorEnvelope
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				require.NotNil(t, resp.Error)
				assert.Equal(t, tc.wantCode, resp.Error.Code)
			}
		})
	}
}

func TestTransactionSave(t *testing.T) {
	h := NewTransactionHandler(&mockTransferService{}, &mockHistoryService{})
	rec := doRequest(t, h.Save, http.MethodPut, validTransactionBody(), true)
	assert.Equal(t, http.StatusCreated, rec.Code)

	h = NewTransactionHandler(&mockTransferService{replaced: true}, &mockHistoryService{})
	rec = doRequest(t, h.Save, http.MethodPut, validTransactionBody(), true)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestTransactionCancel(t *testing.T) {
	svc := &mockTransferService{}
	h := NewTransactionHandler(svc, &mockHistoryService{})
	rec := doRequest(t, h.Cancel, http.MethodDelete, validTransactionBody(), true)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, svc.cancelled)
}

func TestTransactionList(t *testing.T) {
	last := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)
	history := &mockHistoryService{page: &service.HistoryPage{
		Records: []domain.TransactionRecord{
			{IBAN: "DE01", Timestamp: last, Amount: decimal.NewFromInt(-10), ComplementaryIBAN: "DE02"},
		},
		LastDate: &last,
	}}
	h := NewTransactionHandler(&mockTransferService{}, history)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/accounts/DE01/transactions", strings.NewReader(`{"n": 1}`))
	req.SetPathValue("iban", "DE01")
	req = req.WithContext(auth.ContextWithUsername(req.Context(), "alice"))
	rec := httptest.NewRecorder()
	h.List(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp listTransactionsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Transactions, 1)
	assert.Equal(t, "DE01", resp.Transactions[0].IBAN)
	require.NotNil(t, resp.LastDate)
	assert.True(t, resp.LastDate.Equal(last))
}

func TestTransactionList_RejectsNonPositiveN(t *testing.T) {
	h := NewTransactionHandler(&mockTransferService{}, &mockHistoryService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/accounts/DE01/transactions", strings.NewReader(`{"n": 0}`))
	req.SetPathValue("iban", "DE01")
	req = req.WithContext(auth.ContextWithUsername(req.Context(), "alice"))
	rec := httptest.NewRecorder()
	h.List(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
