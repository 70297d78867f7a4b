package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TransferTrigger schedules a deferred transfer for a future instant.
// Payload carries the serialized transfer request; (IBAN, Timestamp)
// is the transfer key a later request uses to cancel or replace it.
type TransferTrigger struct {
	ID        uuid.UUID
	IBAN      string
	Timestamp time.Time
	DueAt     time.Time
	Payload   json.RawMessage
	CreatedAt time.Time
}
