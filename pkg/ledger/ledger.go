// Package ledger is the idempotency ledger: it decides, atomically, whether a
// webhook delivery is the first of its event or a duplicate.
package ledger

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/montip/tipbot-middleware/pkg/tipdb"
)

// ClaimStore is the persistence the ledger needs.
type ClaimStore interface {
	TryClaim(ctx context.Context, eventID string) (bool, *tipdb.IdempotencyClaim, error)
	SetClaimOutcome(ctx context.Context, eventID, outcomeRef string) error
	PruneClaims(ctx context.Context, cutoff time.Time) (int64, error)
}

// ClaimResult is the verdict on one delivery.
type ClaimResult struct {
	// Claimed is true when this caller owns the event.
	Claimed bool
	// OutcomeRef is the recorded outcome of a duplicate, empty while the
	// original delivery is still in flight.
	OutcomeRef string
	FirstSeenAt time.Time
}

// Ledger claims events exactly once. Concurrent deliveries of the same event
// race on a single conditional insert; exactly one wins.
type Ledger struct {
	store  ClaimStore
	logger *zap.Logger
}

// New creates a ledger.
func New(store ClaimStore, logger *zap.Logger) *Ledger {
	return &Ledger{store: store, logger: logger}
}

// TryClaim attempts to claim the event for the caller.
func (l *Ledger) TryClaim(ctx context.Context, eventID string) (ClaimResult, error) {
	claimed, existing, err := l.store.TryClaim(ctx, eventID)
	if err != nil {
		return ClaimResult{}, err
	}
	if claimed {
		return ClaimResult{Claimed: true}, nil
	}

	l.logger.Info("Duplicate event delivery",
		zap.String("event_id", eventID),
		zap.String("outcome_ref", existing.OutcomeRef))
	return ClaimResult{
		Claimed:     false,
		OutcomeRef:  existing.OutcomeRef,
		FirstSeenAt: existing.FirstSeenAt,
	}, nil
}

// RecordOutcome stores the terminal outcome ref so later duplicate deliveries
// can report it.
func (l *Ledger) RecordOutcome(ctx context.Context, eventID, outcomeRef string) error {
	return l.store.SetClaimOutcome(ctx, eventID, outcomeRef)
}
