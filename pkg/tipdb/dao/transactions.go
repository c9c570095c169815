package dao

import "time"

// TransactionDao is a data access object that maps directly to the 'transactions' table in PostgreSQL.
type TransactionDao struct {
	tableName   struct{}  `bun:"table:transactions,alias:tx"` // nolint
	EventID     string    `json:"event_id" bun:",pk,type:varchar(128)"`
	Status      string    `json:"status" bun:",notnull,type:varchar(20)"`
	TxHash      *string   `json:"tx_hash,omitempty" bun:"tx_hash,type:varchar(66)"`
	Nonce       *int64    `json:"nonce,omitempty" bun:"nonce"`
	RetryCount  int       `json:"retry_count" bun:",notnull,use_zero,default:0"`
	LastError   *string   `json:"last_error,omitempty" bun:"last_error,type:text"`
	BlockNumber *int64    `json:"block_number,omitempty" bun:"block_number"`
	GasUsed     *int64    `json:"gas_used,omitempty" bun:"gas_used"`
	CreatedAt   time.Time `json:"created_at" bun:",notnull,nullzero,default:current_timestamp"`
	UpdatedAt   time.Time `json:"updated_at" bun:",notnull,nullzero,default:current_timestamp"`
}
