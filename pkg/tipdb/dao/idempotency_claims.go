package dao

import "time"

// IdempotencyClaimDao is a data access object that maps directly to the 'idempotency_claims' table in PostgreSQL.
type IdempotencyClaimDao struct {
	tableName   struct{}  `bun:"table:idempotency_claims,alias:ic"` // nolint
	EventID     string    `json:"event_id" bun:",pk,type:varchar(128)"`
	FirstSeenAt time.Time `json:"first_seen_at" bun:",notnull,nullzero,default:current_timestamp"`
	OutcomeRef  *string   `json:"outcome_ref,omitempty" bun:"outcome_ref,type:varchar(255)"`
}
