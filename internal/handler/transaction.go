package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/feldbank/banking-api/internal/auth"
	"github.com/feldbank/banking-api/internal/domain"
	"github.com/feldbank/banking-api/internal/logging"
	"github.com/feldbank/banking-api/internal/service"
	"github.com/feldbank/banking-api/internal/service/transfer"
)

type transferService interface {
	Validate(ctx context.Context, principal string, req transfer.Request) (*transfer.ValidatedTransfer, error)
	Perform(ctx context.Context, vt *transfer.ValidatedTransfer) (deferred bool, err error)
	SavePending(ctx context.Context, vt *transfer.ValidatedTransfer) (replaced bool, err error)
	Cancel(ctx context.Context, vt *transfer.ValidatedTransfer) error
}

type historyService interface {
	List(ctx context.Context, principal, iban string, n int, exclusiveDate *time.Time, stored bool) (*service.HistoryPage, error)
}

type TransactionHandler struct {
	transfers transferService
	history   historyService
}

func NewTransactionHandler(transfers transferService, history historyService) *TransactionHandler {
	return &TransactionHandler{transfers: transfers, history: history}
}

type transactionRequest struct {
	Timestamp         time.Time       `json:"timestamp"`
	Amount            decimal.Decimal `json:"amount"`
	Text              string          `json:"text"`
	TextType          string          `json:"textType"`
	Type              string          `json:"type"`
	IBAN              string          `json:"iban"`
	ComplementaryIBAN string          `json:"complementaryIban"`
	ComplementaryName string          `json:"complementaryName"`
}

func (r transactionRequest) Validate() []FieldError {
	var errs []FieldError

	if r.Timestamp.IsZero() {
		errs = append(errs, FieldError{Field: "timestamp", Message: "required"})
	}
	if r.IBAN == "" {
		errs = append(errs, FieldError{Field: "iban", Message: "required"})
	}
	if r.ComplementaryIBAN == "" {
		errs = append(errs, FieldError{Field: "complementaryIban", Message: "required"})
	}
	if !domain.TextType(r.TextType).IsValid() {
		errs = append(errs, FieldError{Field: "textType", Message: "must be Verwendungszweck or Zahlungsreferenz"})
	}
	if !domain.TransactionType(r.Type).IsValid() {
		errs = append(errs, FieldError{Field: "type", Message: "unknown transaction type"})
	}

	return errs
}

func (r transactionRequest) toTransfer() transfer.Request {
	return transfer.Request{
		Timestamp:         r.Timestamp,
		Amount:            r.Amount,
		Text:              r.Text,
		TextType:          domain.TextType(r.TextType),
		Type:              domain.TransactionType(r.Type),
		IBAN:              r.IBAN,
		ComplementaryIBAN: r.ComplementaryIBAN,
		ComplementaryName: r.ComplementaryName,
	}
}

// Perform validates a transfer and either commits it immediately or,
// when the timestamp lies beyond the scheduling tolerance, registers
// it for deferred execution.
func (h *TransactionHandler) Perform(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	vt, ok := h.validated(w, r)
	if !ok {
		return
	}

	deferred, err := h.transfers.Perform(r.Context(), vt)
	if err != nil {
		log.Warn("transfer failed", "iban", vt.Request.IBAN, "error", err)
		RespondDomainError(w, err)
		return
	}

	if deferred {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Save stages a transfer in the pending store without executing it.
// 201 on first save, 204 when an existing entry was replaced.
func (h *TransactionHandler) Save(w http.ResponseWriter, r *http.Request) {
	vt, ok := h.validated(w, r)
	if !ok {
		return
	}

	replaced, err := h.transfers.SavePending(r.Context(), vt)
	if err != nil {
		logging.FromContext(r.Context()).Warn("saving transfer failed", "iban", vt.Request.IBAN, "error", err)
		RespondDomainError(w, err)
		return
	}

	if replaced {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// Cancel removes a staged or scheduled transfer. Cancelling something
// that no longer exists is still a success.
func (h *TransactionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	vt, ok := h.validated(w, r)
	if !ok {
		return
	}

	if err := h.transfers.Cancel(r.Context(), vt); err != nil {
		logging.FromContext(r.Context()).Warn("cancelling transfer failed", "iban", vt.Request.IBAN, "error", err)
		RespondDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *TransactionHandler) validated(w http.ResponseWriter, r *http.Request) (*transfer.ValidatedTransfer, bool) {
	username, ok := auth.UsernameFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrInvalidToken, nil)
		return nil, false
	}

	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return nil, false
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return nil, false
	}

	vt, err := h.transfers.Validate(r.Context(), username, req.toTransfer())
	if err != nil {
		logging.FromContext(r.Context()).Warn("transfer validation failed", "iban", req.IBAN, "error", err)
		RespondDomainError(w, err)
		return nil, false
	}
	return vt, true
}

type listTransactionsRequest struct {
	N             int        `json:"n"`
	ExclusiveDate *time.Time `json:"exclusiveDate"`
	Stored        bool       `json:"stored"`
}

func (r listTransactionsRequest) Validate() []FieldError {
	var errs []FieldError
	if r.N <= 0 {
		errs = append(errs, FieldError{Field: "n", Message: "must be greater than 0"})
	}
	return errs
}

type transactionDTO struct {
	IBAN              string          `json:"iban"`
	Timestamp         time.Time       `json:"timestamp"`
	Amount            decimal.Decimal `json:"amount"`
	ComplementaryIBAN string          `json:"complementaryIban"`
	ComplementaryName string          `json:"complementaryName"`
	Text              string          `json:"text"`
	TextType          string          `json:"textType"`
	Type              string          `json:"type"`
}

type listTransactionsResponse struct {
	Transactions []transactionDTO `json:"transactions"`
	LastDate     *time.Time       `json:"lastDate,omitempty"`
}

func toTransactionDTO(rec *domain.TransactionRecord) transactionDTO {
	return transactionDTO{
		IBAN:              rec.IBAN,
		Timestamp:         rec.Timestamp,
		Amount:            rec.Amount,
		ComplementaryIBAN: rec.ComplementaryIBAN,
		ComplementaryName: rec.ComplementaryName,
		Text:              rec.Text,
		TextType:          string(rec.TextType),
		Type:              string(rec.Type),
	}
}

// List pages through an account's committed or staged transactions,
// ascending by timestamp.
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	username, ok := auth.UsernameFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrInvalidToken, nil)
		return
	}

	iban := r.PathValue("iban")

	var req listTransactionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	page, err := h.history.List(r.Context(), username, iban, req.N, req.ExclusiveDate, req.Stored)
	if err != nil {
		logging.FromContext(r.Context()).Warn("listing transactions failed", "iban", iban, "error", err)
		RespondDomainError(w, err)
		return
	}

	resp := listTransactionsResponse{
		Transactions: make([]transactionDTO, len(page.Records)),
		LastDate:     page.LastDate,
	}
	for i := range page.Records {
		resp.Transactions[i] = toTransactionDTO(&page.Records[i])
	}

	RespondJSON(w, http.StatusOK, resp)
}
