package transfer

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/feldbank/banking-api/internal/domain"
)

type accountRepo interface {
	GetByIBAN(ctx context.Context, iban string) (*domain.Account, error)
	GetByIBANs(ctx context.Context, ibans []string) ([]domain.Account, error)
	GetTx(ctx context.Context, tx *sql.Tx, iban string) (*domain.Account, error)
	UpdateBalance(ctx context.Context, tx *sql.Tx, iban string, newBalance decimal.Decimal, newVersion int64) error
}

type ledgerRepo interface {
	Create(ctx context.Context, tx *sql.Tx, rec *domain.TransactionRecord) error
}

type pendingRepo interface {
	Save(ctx context.Context, rec *domain.TransactionRecord) (bool, error)
	SaveTx(ctx context.Context, tx *sql.Tx, rec *domain.TransactionRecord) (bool, error)
	Delete(ctx context.Context, iban string, ts time.Time) error
	DeleteTx(ctx context.Context, tx *sql.Tx, iban string, ts time.Time) error
}

type triggerRepo interface {
	CreateTx(ctx context.Context, tx *sql.Tx, trigger *domain.TransferTrigger) error
	DeleteByKey(ctx context.Context, iban string, ts time.Time) error
	DeleteTx(ctx context.Context, tx *sql.Tx, id uuid.UUID) error
}

// Request is a parsed, well-formed transfer request. Amount is always
// positive; the debit side is negated at commit time.
type Request struct {
	Timestamp         time.Time              `json:"timestamp"`
	Amount            decimal.Decimal        `json:"amount"`
	Text              string                 `json:"text"`
	TextType          domain.TextType        `json:"textType"`
	Type              domain.TransactionType `json:"type"`
	IBAN              string                 `json:"iban"`
	ComplementaryIBAN string                 `json:"complementaryIban"`
	ComplementaryName string                 `json:"complementaryName"`
}

// ValidatedTransfer pairs a request with the two resolved accounts.
// It is the initiating account, Complementary the receiving one.
type ValidatedTransfer struct {
	It            *domain.Account
	Complementary *domain.Account
	Request       Request
}

type Service struct {
	accounts  accountRepo
	ledger    ledgerRepo
	pending   pendingRepo
	triggers  triggerRepo
	db        *sql.DB
	tolerance time.Duration
}

func NewService(
	accounts accountRepo,
	ledger ledgerRepo,
	pending pendingRepo,
	triggers triggerRepo,
	db *sql.DB,
	tolerance time.Duration,
) *Service {
	return &Service{
		accounts:  accounts,
		ledger:    ledger,
		pending:   pending,
		triggers:  triggers,
		db:        db,
		tolerance: tolerance,
	}
}
