// Package identity resolves Farcaster identities to onchain addresses.
package identity

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/montip/tipbot-middleware/pkg/farcaster"
	"github.com/montip/tipbot-middleware/pkg/tip"
	"github.com/montip/tipbot-middleware/pkg/token"
)

// CastReader looks up casts on Farcaster.
type CastReader interface {
	Cast(ctx context.Context, hash string) (*farcaster.Cast, error)
}

// WalletSource resolves a FID to its factory-derived smart wallet address.
// An empty string means no wallet has been deployed for the FID.
type WalletSource interface {
	WalletOf(ctx context.Context, fid int64) (string, error)
}

// Cache is the wallet lookup cache consulted before the chain.
type Cache interface {
	Get(ctx context.Context, fid int64) (string, bool)
	Set(ctx context.Context, fid int64, address string)
}

// Resolver turns a parsed tip request into a fully resolved one: sender smart
// wallet, recipient verified address, token contract and base-unit amount.
type Resolver struct {
	casts   CastReader
	wallets WalletSource
	cache   Cache
	logger  *zap.Logger
}

// NewResolver creates a resolver.
func NewResolver(casts CastReader, wallets WalletSource, cache Cache, logger *zap.Logger) *Resolver {
	return &Resolver{
		casts:   casts,
		wallets: wallets,
		cache:   cache,
		logger:  logger,
	}
}

// Resolve fills in every onchain detail needed to dispatch the tip. The
// request must be a reply; the parent cast's author is the recipient.
func (r *Resolver) Resolve(ctx context.Context, req tip.Request, tok token.Token) (*tip.Resolved, error) {
	senderWallet, err := r.senderWallet(ctx, req.SenderFID)
	if err != nil {
		return nil, err
	}

	parent, err := r.casts.Cast(ctx, req.ParentCastHash)
	if err != nil {
		if errors.Is(err, farcaster.ErrNotFound) {
			return nil, tip.UnresolvedIdentityError("parent_cast_not_found", err)
		}
		return nil, tip.UnresolvedIdentityError("recipient_lookup_failed", err)
	}

	recipientAddr := parent.Author.PrimaryEthAddress()
	if recipientAddr == "" {
		return nil, tip.UnresolvedIdentityError("recipient_wallet_not_linked", nil)
	}

	if parent.Author.FID == req.SenderFID || strings.EqualFold(senderWallet, recipientAddr) {
		return nil, tip.InvalidRecipientError("self_tip")
	}

	baseUnits, err := tok.BaseUnits(req.Amount)
	if err != nil {
		return nil, err
	}

	resolved := &tip.Resolved{
		Request:           req,
		SenderAddress:     senderWallet,
		RecipientFID:      parent.Author.FID,
		RecipientUsername: parent.Author.Username,
		RecipientAddress:  recipientAddr,
		TokenContract:     tok.Address,
		TokenDecimals:     tok.Decimals,
		TokenNative:       tok.Native(),
		AmountBaseUnits:   baseUnits,
	}

	r.logger.Debug("Resolved tip",
		zap.String("event_id", req.EventID),
		zap.Int64("sender_fid", req.SenderFID),
		zap.Int64("recipient_fid", parent.Author.FID),
		zap.String("sender_wallet", senderWallet),
		zap.String("recipient_address", recipientAddr))

	return resolved, nil
}

// senderWallet resolves the sender's smart wallet, consulting the cache first.
func (r *Resolver) senderWallet(ctx context.Context, fid int64) (string, error) {
	if addr, ok := r.cache.Get(ctx, fid); ok {
		return addr, nil
	}

	addr, err := r.wallets.WalletOf(ctx, fid)
	if err != nil {
		return "", tip.UnresolvedIdentityError("sender_wallet_lookup_failed", err)
	}
	if addr == "" {
		return "", tip.UnresolvedIdentityError("sender_wallet_not_found", nil)
	}

	r.cache.Set(ctx, fid, addr)
	return addr, nil
}
