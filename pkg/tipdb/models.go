// Package tipdb is the Postgres store for the tip bot: idempotency claims,
// transaction records, durable nonce state and the audit log.
package tipdb

import "time"

// TransactionStatus is the lifecycle state of a tip transaction.
type TransactionStatus string

const (
	// StatusPending means the record exists but nothing was broadcast yet.
	StatusPending TransactionStatus = "pending"
	// StatusSubmitted means a transaction was broadcast and awaits a receipt.
	StatusSubmitted TransactionStatus = "submitted"
	// StatusConfirmed is terminal: the transaction succeeded onchain.
	StatusConfirmed TransactionStatus = "confirmed"
	// StatusFailed is terminal: the tip will never be retried as this event.
	StatusFailed TransactionStatus = "failed"
)

// Terminal reports whether the status can never change again.
func (s TransactionStatus) Terminal() bool {
	return s == StatusConfirmed || s == StatusFailed
}

// TransactionRecord tracks one tip transaction keyed by its event ID. The
// dispatcher is the only writer.
type TransactionRecord struct {
	EventID     string
	Status      TransactionStatus
	TxHash      string
	Nonce       int64
	RetryCount  int
	LastError   string
	BlockNumber int64
	GasUsed     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IdempotencyClaim marks an event as seen. OutcomeRef is empty until the
// event reaches a terminal outcome.
type IdempotencyClaim struct {
	EventID     string
	FirstSeenAt time.Time
	OutcomeRef  string
}

// AuditRecord is one append-only row per terminal tip outcome.
type AuditRecord struct {
	ID                string
	EventID           string
	SenderFID         int64
	SenderUsername    string
	SenderWallet      string
	RecipientFID      int64
	RecipientUsername string
	RecipientWallet   string
	TokenSymbol       string
	TokenContract     string
	Amount            string
	Status            string
	TxHash            string
	FailureReason     string
	BlockNumber       int64
	GasUsed           int64
	CastHash          string
	ParentCastHash    string
	CastTimestamp     time.Time
	CreatedAt         time.Time
}
