package dao

import "time"

// AuditDao is a data access object that maps directly to the 'audit_log' table in PostgreSQL.
type AuditDao struct {
	tableName         struct{}  `bun:"table:audit_log,alias:al"` // nolint
	ID                string    `json:"id" bun:",pk,type:uuid"`
	EventID           string    `json:"event_id" bun:",notnull,type:varchar(128)"`
	SenderFID         int64     `json:"sender_fid" bun:"sender_fid,notnull"`
	SenderUsername    string    `json:"sender_username" bun:",notnull,type:varchar(255)"`
	SenderWallet      string    `json:"sender_wallet" bun:",type:varchar(42)"`
	RecipientFID      int64     `json:"recipient_fid" bun:"recipient_fid"`
	RecipientUsername string    `json:"recipient_username" bun:",type:varchar(255)"`
	RecipientWallet   string    `json:"recipient_wallet" bun:",type:varchar(42)"`
	TokenSymbol       string    `json:"token_symbol" bun:",notnull,type:varchar(32)"`
	TokenContract     string    `json:"token_contract" bun:",type:varchar(42)"`
	Amount            string    `json:"amount" bun:",notnull,type:numeric(38,18)"`
	Status            string    `json:"status" bun:",notnull,type:varchar(20)"`
	TxHash            *string   `json:"tx_hash,omitempty" bun:"tx_hash,type:varchar(66)"`
	FailureReason     *string   `json:"failure_reason,omitempty" bun:"failure_reason,type:varchar(255)"`
	BlockNumber       *int64    `json:"block_number,omitempty" bun:"block_number"`
	GasUsed           *int64    `json:"gas_used,omitempty" bun:"gas_used"`
	CastHash          string    `json:"cast_hash" bun:",notnull,type:varchar(66)"`
	ParentCastHash    string    `json:"parent_cast_hash" bun:",type:varchar(66)"`
	CastTimestamp     time.Time `json:"cast_timestamp" bun:",nullzero"`
	CreatedAt         time.Time `json:"created_at" bun:",notnull,nullzero,default:current_timestamp"`
}
