package dispatch

import (
	"context"
	"fmt"
	"sync"
)

// NonceStore persists the per-address nonce counter.
type NonceStore interface {
	ReserveNonce(ctx context.Context, address string, floor int64) (int64, error)
}

// PendingNonceSource reads the signing address's pending nonce from the chain.
type PendingNonceSource interface {
	PendingNonce(ctx context.Context) (uint64, error)
}

// NonceManager serializes nonce allocation for the bot EOA. Each reservation
// takes max(stored+1, chain pending), so a restart or an external transaction
// from the same key cannot hand out a stale nonce. The lock is held through
// the broadcast so allocation order matches broadcast order; it is never held
// across confirmation waits.
type NonceManager struct {
	store   NonceStore
	chain   PendingNonceSource
	address string

	mu sync.Mutex
}

// NewNonceManager creates a nonce manager for the given signing address.
func NewNonceManager(store NonceStore, chain PendingNonceSource, address string) *NonceManager {
	return &NonceManager{
		store:   store,
		chain:   chain,
		address: address,
	}
}

// Reserve allocates the next nonce. The returned release function must be
// called once the broadcast attempt finishes, success or not.
func (m *NonceManager) Reserve(ctx context.Context) (uint64, func(), error) {
	m.mu.Lock()

	floor, err := m.chain.PendingNonce(ctx)
	if err != nil {
		m.mu.Unlock()
		return 0, nil, fmt.Errorf("failed to read chain nonce: %w", err)
	}

	nonce, err := m.store.ReserveNonce(ctx, m.address, int64(floor))
	if err != nil {
		m.mu.Unlock()
		return 0, nil, fmt.Errorf("failed to reserve nonce: %w", err)
	}

	var once sync.Once
	release := func() {
		once.Do(m.mu.Unlock)
	}
	return uint64(nonce), release, nil
}
