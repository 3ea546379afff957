package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// OutboxStatus enumerates the lifecycle states of a durable event record
// (spec §4.5): pending -> processing -> delivered, or pending -> processing
// -> pending (transient retry) -> ... -> failed (terminal).
type OutboxStatus string

const (
	OutboxPending    OutboxStatus = "pending"
	OutboxProcessing OutboxStatus = "processing"
	OutboxDelivered  OutboxStatus = "delivered"
	OutboxFailed     OutboxStatus = "failed"
)

// EventMoneyTransferred is the only event type the Transfer Engine writes.
const EventMoneyTransferred = "money.transferred"

// MaxOutboxAttempts is the attempt budget after which a pending entry is
// moved to the terminal Failed state (spec §4.5 step 8).
const MaxOutboxAttempts = 5

// BackoffSchedule keyed by attempt number (1-indexed): BackoffSchedule[0]
// is the backoff applied after the first failed attempt, and so on.
var BackoffSchedule = [MaxOutboxAttempts]time.Duration{
	10 * time.Second,
	20 * time.Second,
	40 * time.Second,
	80 * time.Second,
	160 * time.Second,
}

// NextEligibleAt returns when a pending entry with the given attempt count
// and last-attempt timestamp becomes eligible for another delivery attempt.
func NextEligibleAt(attempts int, lastAttemptedAt time.Time) time.Time {
	if attempts <= 0 || lastAttemptedAt.IsZero() {
		return time.Time{}
	}
	idx := attempts - 1
	if idx >= len(BackoffSchedule) {
		idx = len(BackoffSchedule) - 1
	}
	return lastAttemptedAt.Add(BackoffSchedule[idx])
}

// TransferredPayload is the structured body of a money.transferred outbox
// entry (spec §4.4 step 9). It carries everything the Outbox Worker needs
// to build the wire push event (§6) without re-reading the Transaction row.
type TransferredPayload struct {
	TransactionUUID      uuid.UUID `json:"transaction_uuid"`
	SenderID             int64     `json:"sender_id"`
	ReceiverID           int64     `json:"receiver_id"`
	Amount               int64     `json:"amount"`
	Commission           int64     `json:"commission"`
	SenderBalanceAfter   int64     `json:"sender_balance_after"`
	ReceiverBalanceAfter int64     `json:"receiver_balance_after"`
}

// MissingFields reports which of transaction_uuid, sender_id, receiver_id
// and amount are zero-valued (amount: not positive), for the worker's
// validate-before-deliver check. Commission and the two post-transfer
// balances are not checked.
func (p TransferredPayload) MissingFields() []string {
	var missing []string
	if p.TransactionUUID == uuid.Nil {
		missing = append(missing, "transaction_uuid")
	}
	if p.SenderID == 0 {
		missing = append(missing, "sender_id")
	}
	if p.ReceiverID == 0 {
		missing = append(missing, "receiver_id")
	}
	if p.Amount <= 0 {
		missing = append(missing, "amount")
	}
	return missing
}

// OutboxEntry is the durable event record co-committed with a Transaction.
type OutboxEntry struct {
	ID              int64           `json:"id"`
	TransactionUUID uuid.UUID       `json:"transaction_uuid"`
	EventType       string          `json:"event_type"`
	Payload         json.RawMessage `json:"payload"`
	Status          OutboxStatus    `json:"status"`
	Attempts        int             `json:"attempts"`
	LastAttemptedAt *time.Time      `json:"last_attempted_at,omitempty"`
	DeliveredAt     *time.Time      `json:"delivered_at,omitempty"`
	Error           *string         `json:"error,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// NewMoneyTransferredEntry builds the pending OutboxEntry inserted inside
// the Transfer Engine's atomic unit (spec §4.4 step 9).
func NewMoneyTransferredEntry(txUUID uuid.UUID, payload TransferredPayload) (OutboxEntry, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return OutboxEntry{}, err
	}
	return OutboxEntry{
		TransactionUUID: txUUID,
		EventType:       EventMoneyTransferred,
		Payload:         raw,
		Status:          OutboxPending,
	}, nil
}

// MoneyReceivedEvent is the wire shape the Outbox Worker publishes to the
// push sink (spec §6). NewBalance is sourced from the payload's
// ReceiverBalanceAfter, never recomputed by the worker (spec §9 open
// question resolution, recorded in DESIGN.md).
type MoneyReceivedEvent struct {
	TransactionUUID uuid.UUID    `json:"transaction_uuid"`
	Amount          int64        `json:"amount"`
	NewBalance      int64        `json:"new_balance"`
	Sender          SenderSummary `json:"sender"`
	ReceiverID      int64        `json:"receiver_id"`
	Message         string       `json:"message"`
	Timestamp       time.Time    `json:"timestamp"`
}

// SenderSummary is the sender enrichment the worker attaches after looking
// up the sender user (spec §4.5 step 5).
type SenderSummary struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
