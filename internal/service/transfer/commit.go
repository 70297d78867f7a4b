package transfer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/feldbank/banking-api/internal/domain"
	"github.com/feldbank/banking-api/internal/logging"
)

// Concurrent commits on overlapping accounts surface as version-guard
// misses and are retried whole; the bound keeps a hot account from
// pinning a request forever.
const maxCommitAttempts = 10

// commit writes both ledger records, applies both balance deltas, and
// removes the pending stub at (iban, originalTS) plus the fired trigger,
// all in one transaction. Only conflict-class failures are retried.
func (s *Service) commit(ctx context.Context, req Request, originalTS time.Time, triggerID *uuid.UUID) error {
	log := logging.FromContext(ctx)

	for attempt := 1; attempt <= maxCommitAttempts; attempt++ {
		err := s.commitOnce(ctx, req, originalTS, triggerID)
		if err == nil {
			return nil
		}
		if !isConflict(err) {
			return fmt.Errorf("commit: %w", err)
		}
		log.Debug("commit conflict, retrying",
			"iban", req.IBAN,
			"attempt", attempt,
		)
	}

	return fmt.Errorf("commit: %w", domain.ErrRetryBudgetExhausted)
}

func (s *Service) commitOnce(ctx context.Context, req Request, originalTS time.Time, triggerID *uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("commitOnce: begin tx: %w", err)
	}
	defer tx.Rollback()

	it, err := s.accounts.GetTx(ctx, tx, req.IBAN)
	if err != nil {
		return fmt.Errorf("commitOnce: initiating account: %w", err)
	}
	complementary, err := s.accounts.GetTx(ctx, tx, req.ComplementaryIBAN)
	if err != nil {
		return fmt.Errorf("commitOnce: complementary account: %w", err)
	}

	debit := &domain.TransactionRecord{
		IBAN:              it.IBAN,
		Timestamp:         req.Timestamp,
		Amount:            req.Amount.Neg(),
		ComplementaryIBAN: req.ComplementaryIBAN,
		ComplementaryName: req.ComplementaryName,
		Text:              req.Text,
		TextType:          req.TextType,
		Type:              req.Type,
	}
	if err := s.ledger.Create(ctx, tx, debit); err != nil {
		return fmt.Errorf("commitOnce: debit record: %w", err)
	}

	credit := &domain.TransactionRecord{
		IBAN:              complementary.IBAN,
		Timestamp:         req.Timestamp,
		Amount:            req.Amount,
		ComplementaryIBAN: it.IBAN,
		ComplementaryName: it.HolderName(),
		Text:              req.Text,
		TextType:          req.TextType,
		Type:              req.Type,
	}
	if err := s.ledger.Create(ctx, tx, credit); err != nil {
		return fmt.Errorf("commitOnce: credit record: %w", err)
	}

	if err := s.accounts.UpdateBalance(ctx, tx, it.IBAN, it.Balance.Sub(req.Amount), it.Version+1); err != nil {
		return fmt.Errorf("commitOnce: update initiating: %w", err)
	}
	if err := s.accounts.UpdateBalance(ctx, tx, complementary.IBAN, complementary.Balance.Add(req.Amount), complementary.Version+1); err != nil {
		return fmt.Errorf("commitOnce: update complementary: %w", err)
	}

	if err := s.pending.DeleteTx(ctx, tx, it.IBAN, originalTS); err != nil {
		return fmt.Errorf("commitOnce: delete pending stub: %w", err)
	}

	if triggerID != nil {
		if err := s.triggers.DeleteTx(ctx, tx, *triggerID); err != nil {
			return fmt.Errorf("commitOnce: delete trigger: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commitOnce: commit: %w", err)
	}
	return nil
}

func isConflict(err error) bool {
	if errors.Is(err, domain.ErrVersionConflict) {
		return true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// Class 40: serialization_failure, deadlock_detected.
		return pqErr.Code.Class() == "40"
	}
	return false
}
