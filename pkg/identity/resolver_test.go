package identity

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/montip/tipbot-middleware/pkg/farcaster"
	"github.com/montip/tipbot-middleware/pkg/tip"
	"github.com/montip/tipbot-middleware/pkg/token"
)

// MockCastReader is a mock implementation of CastReader
type MockCastReader struct {
	CastFunc func(ctx context.Context, hash string) (*farcaster.Cast, error)
}

func (m *MockCastReader) Cast(ctx context.Context, hash string) (*farcaster.Cast, error) {
	if m.CastFunc != nil {
		return m.CastFunc(ctx, hash)
	}
	return nil, nil
}

// MockWalletSource is a mock implementation of WalletSource
type MockWalletSource struct {
	WalletOfFunc func(ctx context.Context, fid int64) (string, error)
	Calls        int
}

func (m *MockWalletSource) WalletOf(ctx context.Context, fid int64) (string, error) {
	m.Calls++
	if m.WalletOfFunc != nil {
		return m.WalletOfFunc(ctx, fid)
	}
	return "", nil
}

// MockCache is an in-memory Cache
type MockCache struct {
	entries map[int64]string
}

func NewMockCache() *MockCache {
	return &MockCache{entries: make(map[int64]string)}
}

func (m *MockCache) Get(ctx context.Context, fid int64) (string, bool) {
	addr, ok := m.entries[fid]
	return addr, ok
}

func (m *MockCache) Set(ctx context.Context, fid int64, address string) {
	m.entries[fid] = address
}

const (
	senderWallet  = "0x1000000000000000000000000000000000000001"
	recipientAddr = "0x2000000000000000000000000000000000000002"
)

func testRequest() tip.Request {
	return tip.Request{
		EventID:        "0xcast",
		SenderFID:      42,
		SenderUsername: "alice",
		TokenSymbol:    "USDC",
		Amount:         decimal.NewFromInt(5),
		CastHash:       "0xcast",
		ParentCastHash: "0xparent",
		CastTimestamp:  time.Now(),
	}
}

func usdc(t *testing.T) token.Token {
	t.Helper()
	tok, ok := token.Default().Lookup("USDC")
	if !ok {
		t.Fatal("USDC missing from registry")
	}
	return tok
}

func parentCast(fid int64, address string) *farcaster.Cast {
	cast := &farcaster.Cast{Hash: "0xparent"}
	cast.Author.FID = fid
	cast.Author.Username = "bob"
	cast.Author.VerifiedAddresses.Primary.EthAddress = address
	return cast
}

func TestResolve(t *testing.T) {
	casts := &MockCastReader{
		CastFunc: func(ctx context.Context, hash string) (*farcaster.Cast, error) {
			return parentCast(7, recipientAddr), nil
		},
	}
	wallets := &MockWalletSource{
		WalletOfFunc: func(ctx context.Context, fid int64) (string, error) {
			return senderWallet, nil
		},
	}
	resolver := NewResolver(casts, wallets, NewMockCache(), zap.NewNop())

	resolved, err := resolver.Resolve(context.Background(), testRequest(), usdc(t))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if resolved.SenderAddress != senderWallet {
		t.Errorf("sender = %s", resolved.SenderAddress)
	}
	if resolved.RecipientFID != 7 || resolved.RecipientUsername != "bob" {
		t.Errorf("recipient = %d %s", resolved.RecipientFID, resolved.RecipientUsername)
	}
	if resolved.RecipientAddress != recipientAddr {
		t.Errorf("recipient address = %s", resolved.RecipientAddress)
	}
	if resolved.AmountBaseUnits.String() != "5000000" {
		t.Errorf("base units = %s, want 5000000", resolved.AmountBaseUnits.String())
	}
	if resolved.TokenNative {
		t.Error("USDC should not resolve as native")
	}
}

func TestResolve_CacheHit(t *testing.T) {
	casts := &MockCastReader{
		CastFunc: func(ctx context.Context, hash string) (*farcaster.Cast, error) {
			return parentCast(7, recipientAddr), nil
		},
	}
	wallets := &MockWalletSource{
		WalletOfFunc: func(ctx context.Context, fid int64) (string, error) {
			return senderWallet, nil
		},
	}
	cache := NewMockCache()
	resolver := NewResolver(casts, wallets, cache, zap.NewNop())

	for i := 0; i < 3; i++ {
		if _, err := resolver.Resolve(context.Background(), testRequest(), usdc(t)); err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
	}
	if wallets.Calls != 1 {
		t.Errorf("chain lookups = %d, want 1 (cache should serve the rest)", wallets.Calls)
	}
}

func TestResolve_NoSenderWallet(t *testing.T) {
	wallets := &MockWalletSource{
		WalletOfFunc: func(ctx context.Context, fid int64) (string, error) {
			return "", nil
		},
	}
	resolver := NewResolver(&MockCastReader{}, wallets, NewMockCache(), zap.NewNop())

	_, err := resolver.Resolve(context.Background(), testRequest(), usdc(t))
	if !tip.IsKind(err, tip.KindUnresolvedIdentity) {
		t.Fatalf("expected unresolved identity, got %v", err)
	}
	if tip.ReasonOf(err) != "sender_wallet_not_found" {
		t.Errorf("reason = %s", tip.ReasonOf(err))
	}
}

func TestResolve_RecipientNotLinked(t *testing.T) {
	casts := &MockCastReader{
		CastFunc: func(ctx context.Context, hash string) (*farcaster.Cast, error) {
			return parentCast(7, ""), nil
		},
	}
	wallets := &MockWalletSource{
		WalletOfFunc: func(ctx context.Context, fid int64) (string, error) {
			return senderWallet, nil
		},
	}
	resolver := NewResolver(casts, wallets, NewMockCache(), zap.NewNop())

	_, err := resolver.Resolve(context.Background(), testRequest(), usdc(t))
	if tip.ReasonOf(err) != "recipient_wallet_not_linked" {
		t.Fatalf("expected recipient_wallet_not_linked, got %v", err)
	}
}

func TestResolve_ParentNotFound(t *testing.T) {
	casts := &MockCastReader{
		CastFunc: func(ctx context.Context, hash string) (*farcaster.Cast, error) {
			return nil, farcaster.ErrNotFound
		},
	}
	wallets := &MockWalletSource{
		WalletOfFunc: func(ctx context.Context, fid int64) (string, error) {
			return senderWallet, nil
		},
	}
	resolver := NewResolver(casts, wallets, NewMockCache(), zap.NewNop())

	_, err := resolver.Resolve(context.Background(), testRequest(), usdc(t))
	if tip.ReasonOf(err) != "parent_cast_not_found" {
		t.Fatalf("expected parent_cast_not_found, got %v", err)
	}
}

func TestResolve_SelfTip(t *testing.T) {
	casts := &MockCastReader{
		CastFunc: func(ctx context.Context, hash string) (*farcaster.Cast, error) {
			// Parent author is the sender themselves.
			return parentCast(42, recipientAddr), nil
		},
	}
	wallets := &MockWalletSource{
		WalletOfFunc: func(ctx context.Context, fid int64) (string, error) {
			return senderWallet, nil
		},
	}
	resolver := NewResolver(casts, wallets, NewMockCache(), zap.NewNop())

	_, err := resolver.Resolve(context.Background(), testRequest(), usdc(t))
	if !tip.IsKind(err, tip.KindInvalidRecipient) {
		t.Fatalf("expected invalid recipient, got %v", err)
	}
}
