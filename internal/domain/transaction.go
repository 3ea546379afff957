package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TransactionStatus enumerates the lifecycle states of a ledger entry.
// The core engine only ever writes Completed; Failed exists for
// seeded/historical data (spec §9).
type TransactionStatus string

const (
	TransactionCompleted TransactionStatus = "completed"
	TransactionFailed    TransactionStatus = "failed"
)

// Direction filters a transaction list by the caller's role in it.
type Direction string

const (
	DirectionAny      Direction = "any"
	DirectionSent     Direction = "sent"
	DirectionReceived Direction = "received"
)

// Transaction is an immutable ledger entry. Once inserted, the core never
// updates or deletes a row (append-only ledger, invariant I in spec §3).
type Transaction struct {
	UUID           uuid.UUID         `json:"uuid"`
	SenderID       int64             `json:"sender_id"`
	ReceiverID     int64             `json:"receiver_id"`
	Amount         int64             `json:"amount"`
	Commission     int64             `json:"commission"`
	Status         TransactionStatus `json:"status"`
	IdempotencyKey string            `json:"-"`
	Metadata       json.RawMessage   `json:"metadata,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

// TotalDebited is the derived amount that leaves the sender's balance.
func (t Transaction) TotalDebited() int64 {
	return t.Amount + t.Commission
}

// BalanceSnapshot is a post-transfer audit record. Exactly two are created
// per committed transfer, inside the same atomic unit as the Transaction.
type BalanceSnapshot struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	Balance        int64     `json:"balance"`
	TransactionUUID uuid.UUID `json:"transaction_uuid"`
	CreatedAt      time.Time `json:"created_at"`
}

// TransactionStats is the aggregate view behind GET /api/transactions/stats.
type TransactionStats struct {
	SentTotalWithCommission int64 `json:"sent_total_with_commission"`
	ReceivedTotal           int64 `json:"received_total"`
	CommissionPaid          int64 `json:"commission_paid"`
	SentCount               int64 `json:"sent_count"`
	ReceivedCount           int64 `json:"received_count"`
}

// NetBalanceChange is the user's total received minus total debited.
func (s TransactionStats) NetBalanceChange() int64 {
	return s.ReceivedTotal - s.SentTotalWithCommission
}
