package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type TextType string

const (
	TextTypeReference  TextType = "Verwendungszweck"
	TextTypePaymentRef TextType = "Zahlungsreferenz"
)

func (t TextType) IsValid() bool {
	return t == TextTypeReference || t == TextTypePaymentRef
}

type TransactionType string

const (
	TransactionTypeStandingOrder TransactionType = "Dauerauftrag"
	TransactionTypeExpress       TransactionType = "Eilauftrag"
	TransactionTypeOwnTransfer   TransactionType = "Eigenuebertragung"
	TransactionTypeNone          TransactionType = ""
)

func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeStandingOrder, TransactionTypeExpress, TransactionTypeOwnTransfer, TransactionTypeNone:
		return true
	}
	return false
}

// TransactionRecord is one side of an executed or staged transfer, keyed
// by (iban, timestamp). Ledger records are append-only; pending records
// may be overwritten or deleted until fulfilled.
type TransactionRecord struct {
	IBAN              string
	Timestamp         time.Time
	Amount            decimal.Decimal
	ComplementaryIBAN string
	ComplementaryName string
	Text              string
	TextType          TextType
	Type              TransactionType
}
