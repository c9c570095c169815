// Package notify posts reply casts reporting tip outcomes. Notification is
// strictly downstream of the transaction record: a failed reply never changes
// what happened onchain or what was recorded.
package notify

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/montip/tipbot-middleware/internal/metrics"
	"github.com/montip/tipbot-middleware/pkg/dispatch"
	"github.com/montip/tipbot-middleware/pkg/tip"
	"github.com/montip/tipbot-middleware/pkg/tipdb"
)

// ReplyPoster publishes a reply cast.
type ReplyPoster interface {
	PostReply(ctx context.Context, parentHash, text string) error
}

const postTimeout = 15 * time.Second

// Notifier builds and posts outcome replies.
type Notifier struct {
	poster ReplyPoster
	logger *zap.Logger
}

// NewNotifier creates a notifier.
func NewNotifier(poster ReplyPoster, logger *zap.Logger) *Notifier {
	return &Notifier{poster: poster, logger: logger}
}

// NotifyOutcome replies to the tip cast with the terminal outcome. Runs in
// its own goroutine; failures are logged and counted only.
func (n *Notifier) NotifyOutcome(resolved *tip.Resolved, outcome *dispatch.Outcome) {
	text := outcomeText(resolved, outcome)
	n.post(resolved.CastHash, text)
}

// NotifyError replies to the tip cast with a pre-dispatch failure.
func (n *Notifier) NotifyError(castHash string, err error) {
	text := errorText(err)
	if text == "" {
		return
	}
	n.post(castHash, text)
}

func (n *Notifier) post(castHash, text string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), postTimeout)
		defer cancel()

		if err := n.poster.PostReply(ctx, castHash, text); err != nil {
			metrics.NotifyFailures.Inc()
			n.logger.Warn("Failed to post reply",
				zap.String("cast_hash", castHash),
				zap.Error(err))
		}
	}()
}

func outcomeText(resolved *tip.Resolved, outcome *dispatch.Outcome) string {
	if outcome.Status == tipdb.StatusConfirmed {
		return fmt.Sprintf("Sent %s %s! tx: %s",
			resolved.Amount.String(), resolved.TokenSymbol, outcome.TxHash)
	}

	switch outcome.FailureKind {
	case tip.KindInsufficientFunds:
		return fmt.Sprintf("Tip failed: insufficient %s balance in your wallet.", resolved.TokenSymbol)
	case tip.KindConfirmationTimeout:
		return fmt.Sprintf("Tip submitted but not yet confirmed. tx: %s", outcome.TxHash)
	case tip.KindPermanentSubmission:
		if outcome.FailureReason == "wallet_not_authorized" {
			return "Tip failed: your wallet is not set up for tipping yet."
		}
		return "Tip failed: the transaction could not be completed."
	default:
		return "Tip failed. Please try again later."
	}
}

func errorText(err error) string {
	switch tip.KindOf(err) {
	case tip.KindUnsupportedToken:
		return "Tip failed: that token isn't supported."
	case tip.KindUnresolvedIdentity:
		switch tip.ReasonOf(err) {
		case "sender_wallet_not_found":
			return "Tip failed: you don't have a tipping wallet yet."
		default:
			return "Tip failed: couldn't find a wallet for the recipient."
		}
	case tip.KindInvalidRecipient:
		return "You can't tip yourself!"
	case tip.KindParse:
		switch tip.ReasonOf(err) {
		case "incomplete_command":
			return "Usage: !montip tip <amount> <token>"
		case "invalid_amount", "non_positive_amount":
			return "Tip failed: that amount doesn't look right."
		case "amount_too_large":
			return "Tip failed: that amount is above the tipping limit."
		}
	}
	return ""
}
