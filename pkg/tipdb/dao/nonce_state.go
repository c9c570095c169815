package dao

import "time"

// NonceStateDao is a data access object that maps directly to the 'nonce_state' table in PostgreSQL.
type NonceStateDao struct {
	tableName struct{}  `bun:"table:nonce_state,alias:ns"` // nolint
	Address   string    `json:"address" bun:",pk,type:varchar(42)"`
	Nonce     int64     `json:"nonce" bun:",notnull,use_zero"`
	UpdatedAt time.Time `json:"updated_at" bun:",notnull,nullzero,default:current_timestamp"`
}
