// Package tip holds the domain types for a single tip request as it moves
// through the pipeline, from parsed command to resolved on-chain transfer.
package tip

import (
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// Request is the structured tip intent extracted from an inbound cast.
// It is immutable once created; the event ID doubles as the idempotency key.
type Request struct {
	EventID        string
	SenderFID      int64
	SenderUsername string
	TokenSymbol    string
	Amount         decimal.Decimal
	RawText        string
	CastHash       string
	ParentCastHash string
	CastTimestamp  time.Time
}

// Resolved is a Request with both wallets and the token resolved, ready for
// dispatch. AmountBaseUnits is the amount scaled to the token's smallest unit.
type Resolved struct {
	Request

	SenderAddress     string
	RecipientFID      int64
	RecipientUsername string
	RecipientAddress  string
	TokenContract     string
	TokenDecimals     int
	TokenNative       bool
	AmountBaseUnits   *big.Int
}
