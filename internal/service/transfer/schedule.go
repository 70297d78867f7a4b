package transfer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/feldbank/banking-api/internal/domain"
	"github.com/feldbank/banking-api/internal/logging"
)

// Perform either commits a transfer now or registers it for later.
// Requests dated within the tolerance window execute immediately; any
// trigger previously registered for the same transfer is removed first,
// so replaying a scheduled transfer early fulfils instead of doubling.
// Deferred requests only register a trigger and a pending stub; no
// ledger or balance writes happen until the trigger fires.
func (s *Service) Perform(ctx context.Context, vt *ValidatedTransfer) (deferred bool, err error) {
	now := time.Now().UTC()

	if !vt.Request.Timestamp.After(now.Add(s.tolerance)) {
		originalTS := vt.Request.Timestamp

		if err := s.triggers.DeleteByKey(ctx, vt.Request.IBAN, originalTS); err != nil {
			return false, fmt.Errorf("Perform: %w", err)
		}

		req := vt.Request
		req.Timestamp = now
		if err := s.commit(ctx, req, originalTS, nil); err != nil {
			return false, fmt.Errorf("Perform: %w", err)
		}

		logging.FromContext(ctx).Info("transfer committed",
			"iban", req.IBAN,
			"complementary_iban", req.ComplementaryIBAN,
			"amount", req.Amount,
		)
		return false, nil
	}

	trigger := &domain.TransferTrigger{
		ID:        uuid.New(),
		IBAN:      vt.Request.IBAN,
		Timestamp: vt.Request.Timestamp,
		DueAt:     vt.Request.Timestamp,
		CreatedAt: now,
	}

	payload, err := json.Marshal(vt.Request)
	if err != nil {
		return false, fmt.Errorf("Perform: marshal payload: %w", err)
	}
	trigger.Payload = payload

	// Trigger and pending stub register in one transaction; a trigger
	// without its stub would fire but never show up in stored listings.
	// Registering over an existing transfer key replaces both rows.
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("Perform: begin registration: %w", err)
	}
	defer tx.Rollback()

	if err := s.triggers.CreateTx(ctx, tx, trigger); err != nil {
		return false, fmt.Errorf("Perform: register trigger: %w", err)
	}
	if _, err := s.pending.SaveTx(ctx, tx, pendingRecord(vt.Request)); err != nil {
		return false, fmt.Errorf("Perform: save pending stub: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("Perform: commit registration: %w", err)
	}

	logging.FromContext(ctx).Info("transfer scheduled",
		"iban", vt.Request.IBAN,
		"due_at", trigger.DueAt,
		"trigger_id", trigger.ID,
	)
	return true, nil
}

// SavePending stages a transfer for later without registering a trigger.
// Reports whether an existing stub at the same key was replaced.
func (s *Service) SavePending(ctx context.Context, vt *ValidatedTransfer) (replaced bool, err error) {
	replaced, err = s.pending.Save(ctx, pendingRecord(vt.Request))
	if err != nil {
		return false, fmt.Errorf("SavePending: %w", err)
	}
	return replaced, nil
}

// Cancel removes a transfer's registered trigger and pending stub.
// Neither existing is an error.
func (s *Service) Cancel(ctx context.Context, vt *ValidatedTransfer) error {
	if err := s.removeRegistration(ctx, vt.Request.IBAN, vt.Request.Timestamp); err != nil {
		return fmt.Errorf("Cancel: %w", err)
	}
	return nil
}

func (s *Service) removeRegistration(ctx context.Context, iban string, ts time.Time) error {
	if err := s.triggers.DeleteByKey(ctx, iban, ts); err != nil {
		return err
	}
	return s.pending.Delete(ctx, iban, ts)
}

// Fulfil executes a fired trigger. The timestamp is stamped to the
// actual fire time; ownership and limit are not re-checked, trust was
// placed at registration time. The trigger row itself is removed inside
// the commit transaction. A trigger that can never commit is dropped
// along with its stub so the dispatcher does not refire it every tick.
func (s *Service) Fulfil(ctx context.Context, trigger domain.TransferTrigger) error {
	var req Request
	if err := json.Unmarshal(trigger.Payload, &req); err != nil {
		s.dropTrigger(ctx, trigger, err)
		return fmt.Errorf("Fulfil: unmarshal payload: %w", err)
	}

	originalTS := req.Timestamp
	req.Timestamp = time.Now().UTC()

	if err := s.commit(ctx, req, originalTS, &trigger.ID); err != nil {
		if isPermanent(err) {
			s.dropTrigger(ctx, trigger, err)
		}
		return fmt.Errorf("Fulfil: %w", err)
	}
	return nil
}

func (s *Service) dropTrigger(ctx context.Context, trigger domain.TransferTrigger, cause error) {
	log := logging.FromContext(ctx)
	log.Warn("dropping unfulfillable trigger",
		"trigger_id", trigger.ID,
		"iban", trigger.IBAN,
		"error", cause,
	)
	if err := s.removeRegistration(ctx, trigger.IBAN, trigger.Timestamp); err != nil {
		log.Error("failed to drop trigger", "trigger_id", trigger.ID, "error", err)
	}
}

// Permanent failures cannot succeed on a later tick: the ledger already
// holds a record at the key, or an account no longer resolves.
func isPermanent(err error) bool {
	return errors.Is(err, domain.ErrDuplicateTransaction) || errors.Is(err, domain.ErrNotFound)
}

// Pending stubs keep the requested (positive) amount; the sign split
// into debit and credit happens only at commit.
func pendingRecord(req Request) *domain.TransactionRecord {
	return &domain.TransactionRecord{
		IBAN:              req.IBAN,
		Timestamp:         req.Timestamp,
		Amount:            req.Amount,
		ComplementaryIBAN: req.ComplementaryIBAN,
		ComplementaryName: req.ComplementaryName,
		Text:              req.Text,
		TextType:          req.TextType,
		Type:              req.Type,
	}
}
