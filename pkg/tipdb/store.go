package tipdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/montip/tipbot-middleware/pkg/tipdb/dao"
)

// Store provides database operations for the tip bot.
type Store struct {
	db *bun.DB
}

// NewStore creates a store over an existing bun connection.
func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// TryClaim atomically claims an event. Returns (true, nil) when this caller
// won the claim, or (false, existing) when an earlier delivery holds it.
func (s *Store) TryClaim(ctx context.Context, eventID string) (bool, *IdempotencyClaim, error) {
	claim := &dao.IdempotencyClaimDao{EventID: eventID}

	res, err := s.db.NewInsert().
		Model(claim).
		On("CONFLICT (event_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, nil, fmt.Errorf("failed to insert claim: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, nil, fmt.Errorf("failed to read claim result: %w", err)
	}
	if affected == 1 {
		return true, nil, nil
	}

	existing := &dao.IdempotencyClaimDao{}
	err = s.db.NewSelect().
		Model(existing).
		Where("event_id = ?", eventID).
		Scan(ctx)
	if err != nil {
		return false, nil, fmt.Errorf("failed to load existing claim: %w", err)
	}
	return false, claimFromDao(existing), nil
}

// SetClaimOutcome records the terminal outcome ref on a claim.
func (s *Store) SetClaimOutcome(ctx context.Context, eventID, outcomeRef string) error {
	_, err := s.db.NewUpdate().
		Model((*dao.IdempotencyClaimDao)(nil)).
		Set("outcome_ref = ?", outcomeRef).
		Where("event_id = ?", eventID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to set claim outcome: %w", err)
	}
	return nil
}

// PruneClaims deletes claims first seen before the cutoff, excluding any whose
// transaction record is still in flight.
func (s *Store) PruneClaims(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.NewDelete().
		Model((*dao.IdempotencyClaimDao)(nil)).
		Where("first_seen_at < ?", cutoff).
		Where("NOT EXISTS (SELECT 1 FROM transactions tx WHERE tx.event_id = ic.event_id AND tx.status IN (?, ?))",
			string(StatusPending), string(StatusSubmitted)).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to prune claims: %w", err)
	}
	return res.RowsAffected()
}

// CreateTransaction inserts a new pending transaction record.
func (s *Store) CreateTransaction(ctx context.Context, eventID string) error {
	record := &dao.TransactionDao{
		EventID: eventID,
		Status:  string(StatusPending),
	}
	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		return fmt.Errorf("failed to create transaction record: %w", err)
	}
	return nil
}

// GetTransaction returns the record for an event, or nil when none exists.
func (s *Store) GetTransaction(ctx context.Context, eventID string) (*TransactionRecord, error) {
	record := &dao.TransactionDao{}
	err := s.db.NewSelect().
		Model(record).
		Where("event_id = ?", eventID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction record: %w", err)
	}
	return transactionFromDao(record), nil
}

// MarkSubmitted records a broadcast: hash, nonce and the attempt count.
func (s *Store) MarkSubmitted(ctx context.Context, eventID, txHash string, nonce int64, retryCount int) error {
	_, err := s.db.NewUpdate().
		Model((*dao.TransactionDao)(nil)).
		Set("status = ?", string(StatusSubmitted)).
		Set("tx_hash = ?", txHash).
		Set("nonce = ?", nonce).
		Set("retry_count = ?", retryCount).
		Set("updated_at = now()").
		Where("event_id = ?", eventID).
		Where("status IN (?, ?)", string(StatusPending), string(StatusSubmitted)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to mark transaction submitted: %w", err)
	}
	return nil
}

// MarkConfirmed finalizes a successful transaction. Terminal states are never
// overwritten.
func (s *Store) MarkConfirmed(ctx context.Context, eventID string, blockNumber, gasUsed int64) error {
	_, err := s.db.NewUpdate().
		Model((*dao.TransactionDao)(nil)).
		Set("status = ?", string(StatusConfirmed)).
		Set("block_number = ?", blockNumber).
		Set("gas_used = ?", gasUsed).
		Set("updated_at = now()").
		Where("event_id = ?", eventID).
		Where("status IN (?, ?)", string(StatusPending), string(StatusSubmitted)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to mark transaction confirmed: %w", err)
	}
	return nil
}

// MarkFailed finalizes a failed transaction with its reason. Terminal states
// are never overwritten.
func (s *Store) MarkFailed(ctx context.Context, eventID, reason string) error {
	_, err := s.db.NewUpdate().
		Model((*dao.TransactionDao)(nil)).
		Set("status = ?", string(StatusFailed)).
		Set("last_error = ?", reason).
		Set("updated_at = now()").
		Where("event_id = ?", eventID).
		Where("status IN (?, ?)", string(StatusPending), string(StatusSubmitted)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to mark transaction failed: %w", err)
	}
	return nil
}

// RecordAttemptError stores the latest transient error without changing state.
func (s *Store) RecordAttemptError(ctx context.Context, eventID, lastError string, retryCount int) error {
	_, err := s.db.NewUpdate().
		Model((*dao.TransactionDao)(nil)).
		Set("last_error = ?", lastError).
		Set("retry_count = ?", retryCount).
		Set("updated_at = now()").
		Where("event_id = ?", eventID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to record attempt error: %w", err)
	}
	return nil
}

// ListInFlight returns records not yet in a terminal state, oldest first.
// Used for startup recovery.
func (s *Store) ListInFlight(ctx context.Context) ([]*TransactionRecord, error) {
	var records []*dao.TransactionDao
	err := s.db.NewSelect().
		Model(&records).
		Where("status IN (?, ?)", string(StatusPending), string(StatusSubmitted)).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list in-flight transactions: %w", err)
	}

	out := make([]*TransactionRecord, 0, len(records))
	for _, record := range records {
		out = append(out, transactionFromDao(record))
	}
	return out, nil
}

// ReserveNonce allocates the next nonce for a signing address. The floor is
// the chain's pending nonce; the stored counter never goes backwards, so the
// reservation takes whichever is higher.
func (s *Store) ReserveNonce(ctx context.Context, address string, floor int64) (int64, error) {
	query := `
		INSERT INTO nonce_state (address, nonce, updated_at)
		VALUES (?, ?, now())
		ON CONFLICT (address)
		DO UPDATE SET nonce = GREATEST(nonce_state.nonce + 1, EXCLUDED.nonce), updated_at = now()
		RETURNING nonce
	`
	var nonce int64
	if err := s.db.QueryRowContext(ctx, query, address, floor).Scan(&nonce); err != nil {
		return 0, fmt.Errorf("failed to reserve nonce: %w", err)
	}
	return nonce, nil
}

// AppendAudit inserts one audit row.
func (s *Store) AppendAudit(ctx context.Context, record *AuditRecord) error {
	if _, err := s.db.NewInsert().Model(auditToDao(record)).Exec(ctx); err != nil {
		return fmt.Errorf("failed to append audit record: %w", err)
	}
	return nil
}

// ListAudit returns the most recent audit rows.
func (s *Store) ListAudit(ctx context.Context, limit int) ([]*AuditRecord, error) {
	var records []*dao.AuditDao
	err := s.db.NewSelect().
		Model(&records).
		Order("created_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit records: %w", err)
	}

	out := make([]*AuditRecord, 0, len(records))
	for _, record := range records {
		out = append(out, auditFromDao(record))
	}
	return out, nil
}

func claimFromDao(d *dao.IdempotencyClaimDao) *IdempotencyClaim {
	claim := &IdempotencyClaim{
		EventID:     d.EventID,
		FirstSeenAt: d.FirstSeenAt,
	}
	if d.OutcomeRef != nil {
		claim.OutcomeRef = *d.OutcomeRef
	}
	return claim
}

func transactionFromDao(d *dao.TransactionDao) *TransactionRecord {
	record := &TransactionRecord{
		EventID:    d.EventID,
		Status:     TransactionStatus(d.Status),
		RetryCount: d.RetryCount,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
	if d.TxHash != nil {
		record.TxHash = *d.TxHash
	}
	if d.Nonce != nil {
		record.Nonce = *d.Nonce
	}
	if d.LastError != nil {
		record.LastError = *d.LastError
	}
	if d.BlockNumber != nil {
		record.BlockNumber = *d.BlockNumber
	}
	if d.GasUsed != nil {
		record.GasUsed = *d.GasUsed
	}
	return record
}

func auditToDao(r *AuditRecord) *dao.AuditDao {
	d := &dao.AuditDao{
		ID:                r.ID,
		EventID:           r.EventID,
		SenderFID:         r.SenderFID,
		SenderUsername:    r.SenderUsername,
		SenderWallet:      r.SenderWallet,
		RecipientFID:      r.RecipientFID,
		RecipientUsername: r.RecipientUsername,
		RecipientWallet:   r.RecipientWallet,
		TokenSymbol:       r.TokenSymbol,
		TokenContract:     r.TokenContract,
		Amount:            r.Amount,
		Status:            r.Status,
		CastHash:          r.CastHash,
		ParentCastHash:    r.ParentCastHash,
		CastTimestamp:     r.CastTimestamp,
	}
	if r.TxHash != "" {
		d.TxHash = &r.TxHash
	}
	if r.FailureReason != "" {
		d.FailureReason = &r.FailureReason
	}
	if r.BlockNumber != 0 {
		d.BlockNumber = &r.BlockNumber
	}
	if r.GasUsed != 0 {
		d.GasUsed = &r.GasUsed
	}
	return d
}

func auditFromDao(d *dao.AuditDao) *AuditRecord {
	record := &AuditRecord{
		ID:                d.ID,
		EventID:           d.EventID,
		SenderFID:         d.SenderFID,
		SenderUsername:    d.SenderUsername,
		SenderWallet:      d.SenderWallet,
		RecipientFID:      d.RecipientFID,
		RecipientUsername: d.RecipientUsername,
		RecipientWallet:   d.RecipientWallet,
		TokenSymbol:       d.TokenSymbol,
		TokenContract:     d.TokenContract,
		Amount:            d.Amount,
		Status:            d.Status,
		CastHash:          d.CastHash,
		ParentCastHash:    d.ParentCastHash,
		CastTimestamp:     d.CastTimestamp,
		CreatedAt:         d.CreatedAt,
	}
	if d.TxHash != nil {
		record.TxHash = *d.TxHash
	}
	if d.FailureReason != nil {
		record.FailureReason = *d.FailureReason
	}
	if d.BlockNumber != nil {
		record.BlockNumber = *d.BlockNumber
	}
	if d.GasUsed != nil {
		record.GasUsed = *d.GasUsed
	}
	return record
}
