package ledger

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/montip/tipbot-middleware/pkg/config"
)

// Sweeper prunes old idempotency claims on a timer. Claims whose transaction
// record is still in flight are never pruned, so an in-flight event can never
// be re-claimed as new.
type Sweeper struct {
	store     ClaimStore
	retention time.Duration
	interval  time.Duration
	logger    *zap.Logger

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewSweeper creates a retention sweeper.
func NewSweeper(store ClaimStore, cfg *config.LedgerConfig, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		store:     store,
		retention: cfg.Retention,
		interval:  cfg.SweepInterval,
		logger:    logger,
		stopCh:    make(chan struct{}),
	}
}

// Start launches the sweep loop.
func (s *Sweeper) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.run(ctx)
	s.logger.Info("Claim sweeper started",
		zap.Duration("retention", s.retention),
		zap.Duration("interval", s.interval))
}

// Stop stops the sweep loop and waits for it to exit.
func (s *Sweeper) Stop() {
	close(s.stopCh)
	s.wg.Wait()
	s.logger.Info("Claim sweeper stopped")
}

func (s *Sweeper) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-s.retention)
	pruned, err := s.store.PruneClaims(ctx, cutoff)
	if err != nil {
		s.logger.Error("Claim sweep failed", zap.Error(err))
		return
	}
	if pruned > 0 {
		s.logger.Info("Pruned expired claims",
			zap.Int64("pruned", pruned),
			zap.Time("cutoff", cutoff))
	}
}
