// Package dispatch turns a resolved tip into exactly one onchain transfer.
// It owns the transaction record lifecycle, the retry policy and the nonce
// sequence for the bot EOA.
package dispatch

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/montip/tipbot-middleware/internal/metrics"
	"github.com/montip/tipbot-middleware/pkg/chain"
	"github.com/montip/tipbot-middleware/pkg/config"
	"github.com/montip/tipbot-middleware/pkg/tip"
	"github.com/montip/tipbot-middleware/pkg/tipdb"
)

// ChainClient is the chain surface the dispatcher needs.
type ChainClient interface {
	BotAddress() string
	BotAddressOf(ctx context.Context, wallet string) (string, error)
	NativeBalance(ctx context.Context, address string) (*big.Int, error)
	TokenBalance(ctx context.Context, tokenContract, holder string) (*big.Int, error)
	PendingNonce(ctx context.Context) (uint64, error)
	SendTip(ctx context.Context, wallet, recipient, tokenContract string, amount *big.Int, nonce uint64) (string, error)
	Receipt(ctx context.Context, txHash string) (*chain.Receipt, error)
	KnownTransaction(ctx context.Context, txHash string) (bool, error)
}

// TransactionStore persists transaction records and nonce state.
type TransactionStore interface {
	NonceStore
	CreateTransaction(ctx context.Context, eventID string) error
	GetTransaction(ctx context.Context, eventID string) (*tipdb.TransactionRecord, error)
	MarkSubmitted(ctx context.Context, eventID, txHash string, nonce int64, retryCount int) error
	MarkConfirmed(ctx context.Context, eventID string, blockNumber, gasUsed int64) error
	MarkFailed(ctx context.Context, eventID, reason string) error
	RecordAttemptError(ctx context.Context, eventID, lastError string, retryCount int) error
	ListInFlight(ctx context.Context) ([]*tipdb.TransactionRecord, error)
}

// Outcome is the terminal result of a dispatch.
type Outcome struct {
	Status      tipdb.TransactionStatus
	TxHash      string
	BlockNumber int64
	GasUsed     int64

	// FailureKind and FailureReason are set when Status is failed.
	FailureKind   tip.Kind
	FailureReason string
}

// Ref is the stable outcome reference stored on the idempotency claim.
func (o *Outcome) Ref() string {
	if o.Status == tipdb.StatusConfirmed {
		return o.TxHash
	}
	return "failed:" + o.FailureReason
}

// Dispatcher executes tips under bounded concurrency.
type Dispatcher struct {
	chain  ChainClient
	store  TransactionStore
	nonces *NonceManager
	gate   *Gate
	logger *zap.Logger

	maxRetries          int
	retryBaseDelay      time.Duration
	retryMaxDelay       time.Duration
	confirmationTimeout time.Duration
	receiptPollInterval time.Duration
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(
	chainClient ChainClient,
	store TransactionStore,
	dispatchCfg *config.DispatchConfig,
	chainCfg *config.ChainConfig,
	logger *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		chain:               chainClient,
		store:               store,
		nonces:              NewNonceManager(store, chainClient, chainClient.BotAddress()),
		gate:                NewGate(dispatchCfg.MaxConcurrent, dispatchCfg.QueueDepth),
		logger:              logger,
		maxRetries:          dispatchCfg.MaxRetries,
		retryBaseDelay:      dispatchCfg.RetryBaseDelay,
		retryMaxDelay:       dispatchCfg.RetryMaxDelay,
		confirmationTimeout: chainCfg.ConfirmationTimeout,
		receiptPollInterval: chainCfg.ReceiptPollInterval,
	}
}

// Admit reserves admission capacity for one dispatch. Callers must pair a
// successful Admit with Release.
func (d *Dispatcher) Admit(ctx context.Context) error {
	return d.gate.Acquire(ctx)
}

// Release frees admission capacity reserved by Admit.
func (d *Dispatcher) Release() {
	d.gate.Release()
}

// Execute runs one admitted tip to a terminal state. It never returns a
// non-terminal outcome: every path ends in confirmed or failed, recorded in
// the transaction record before returning.
func (d *Dispatcher) Execute(ctx context.Context, resolved *tip.Resolved) *Outcome {
	started := time.Now()
	defer func() {
		metrics.DispatchDuration.Observe(time.Since(started).Seconds())
	}()

	eventID := resolved.EventID
	logger := d.logger.With(zap.String("event_id", eventID))

	if err := d.store.CreateTransaction(ctx, eventID); err != nil {
		logger.Error("Failed to create transaction record", zap.Error(err))
		return d.fail(ctx, eventID, tip.KindTransientSubmission, "store_unavailable")
	}

	if outcome := d.precheck(ctx, resolved, logger); outcome != nil {
		return outcome
	}

	txHash, outcome := d.submit(ctx, resolved, logger)
	if outcome != nil {
		return outcome
	}

	return d.awaitConfirmation(ctx, eventID, txHash, logger)
}

// precheck verifies wallet authorization and balance before anything is
// broadcast. Both failures are permanent; nothing was sent.
func (d *Dispatcher) precheck(ctx context.Context, resolved *tip.Resolved, logger *zap.Logger) *Outcome {
	botAddr, err := d.chain.BotAddressOf(ctx, resolved.SenderAddress)
	if err != nil {
		logger.Warn("Wallet authorization check failed", zap.Error(err))
		return d.fail(ctx, resolved.EventID, tip.KindTransientSubmission, "authorization_check_failed")
	}
	if !strings.EqualFold(botAddr, d.chain.BotAddress()) {
		logger.Warn("Wallet not authorized for bot",
			zap.String("wallet", resolved.SenderAddress),
			zap.String("wallet_bot", botAddr))
		return d.fail(ctx, resolved.EventID, tip.KindPermanentSubmission, "wallet_not_authorized")
	}

	var balance *big.Int
	if resolved.TokenNative {
		balance, err = d.chain.NativeBalance(ctx, resolved.SenderAddress)
	} else {
		balance, err = d.chain.TokenBalance(ctx, resolved.TokenContract, resolved.SenderAddress)
	}
	if err != nil {
		logger.Warn("Balance precheck failed", zap.Error(err))
		return d.fail(ctx, resolved.EventID, tip.KindTransientSubmission, "balance_check_failed")
	}
	if balance.Cmp(resolved.AmountBaseUnits) < 0 {
		logger.Info("Insufficient balance for tip",
			zap.String("balance", balance.String()),
			zap.String("amount", resolved.AmountBaseUnits.String()))
		reason := tip.ReasonOf(tip.InsufficientFundsError(strings.ToLower(resolved.TokenSymbol)))
		return d.fail(ctx, resolved.EventID, tip.KindInsufficientFunds, reason)
	}
	return nil
}

// submit broadcasts the transaction with bounded retries. On success it
// returns the transaction hash and a nil outcome; every failure path returns
// a terminal outcome.
func (d *Dispatcher) submit(ctx context.Context, resolved *tip.Resolved, logger *zap.Logger) (string, *Outcome) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = d.retryBaseDelay
	bo.MaxInterval = d.retryMaxDelay
	bo.MaxElapsedTime = 0
	bo.Reset()

	var lastHash string
	var lastNonce uint64

	for attempt := 0; attempt <= d.maxRetries; attempt++ {
		if attempt > 0 {
			metrics.SubmissionRetries.Inc()
			select {
			case <-time.After(bo.NextBackOff()):
			case <-ctx.Done():
				return "", d.fail(ctx, resolved.EventID, tip.KindTransientSubmission, "dispatch_canceled")
			}

			// The previous attempt may have reached the network even though
			// it errored. Adopt the broadcast instead of double-spending.
			if lastHash != "" {
				known, err := d.chain.KnownTransaction(ctx, lastHash)
				if err != nil {
					logger.Warn("Failed to check for previous broadcast", zap.Error(err))
				} else if known {
					logger.Info("Adopting previous broadcast",
						zap.String("tx_hash", lastHash),
						zap.Uint64("nonce", lastNonce))
					if err := d.store.MarkSubmitted(ctx, resolved.EventID, lastHash, int64(lastNonce), attempt); err != nil {
						logger.Error("Failed to mark transaction submitted", zap.Error(err))
					}
					return lastHash, nil
				}
			}
		}

		nonce, release, err := d.nonces.Reserve(ctx)
		if err != nil {
			logger.Warn("Nonce reservation failed", zap.Error(err), zap.Int("attempt", attempt))
			_ = d.store.RecordAttemptError(ctx, resolved.EventID, err.Error(), attempt)
			continue
		}

		txHash, err := d.chain.SendTip(ctx,
			resolved.SenderAddress,
			resolved.RecipientAddress,
			resolved.TokenContract,
			resolved.AmountBaseUnits,
			nonce)
		release()

		if txHash != "" {
			lastHash = txHash
			lastNonce = nonce
		}

		if err == nil || isAlreadyKnown(err) {
			if err := d.store.MarkSubmitted(ctx, resolved.EventID, txHash, int64(nonce), attempt); err != nil {
				logger.Error("Failed to mark transaction submitted", zap.Error(err))
			}
			return txHash, nil
		}

		if reason, permanent := classifyPermanent(err); permanent {
			logger.Warn("Permanent broadcast failure",
				zap.String("reason", reason),
				zap.Error(err))
			return "", d.fail(ctx, resolved.EventID, tip.KindPermanentSubmission, reason)
		}

		logger.Warn("Transient broadcast failure",
			zap.Int("attempt", attempt),
			zap.Uint64("nonce", nonce),
			zap.Error(err))
		_ = d.store.RecordAttemptError(ctx, resolved.EventID, err.Error(), attempt)
	}

	// The last attempt may have reached the network despite erroring. Check
	// once more before declaring the submission lost.
	if lastHash != "" {
		known, err := d.chain.KnownTransaction(ctx, lastHash)
		if err != nil {
			logger.Warn("Failed to check for previous broadcast", zap.Error(err))
		} else if known {
			logger.Info("Adopting previous broadcast after retries",
				zap.String("tx_hash", lastHash),
				zap.Uint64("nonce", lastNonce))
			if err := d.store.MarkSubmitted(ctx, resolved.EventID, lastHash, int64(lastNonce), d.maxRetries); err != nil {
				logger.Error("Failed to mark transaction submitted", zap.Error(err))
			}
			return lastHash, nil
		}
	}

	return "", d.fail(ctx, resolved.EventID, tip.KindTransientSubmission, "submission_retries_exhausted")
}

// awaitConfirmation polls for the receipt until the configured timeout. A
// timeout is a distinct terminal reason: the transaction may still land.
func (d *Dispatcher) awaitConfirmation(ctx context.Context, eventID, txHash string, logger *zap.Logger) *Outcome {
	deadline := time.NewTimer(d.confirmationTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(d.receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := d.chain.Receipt(ctx, txHash)
		if err != nil {
			logger.Warn("Receipt poll failed", zap.Error(err))
		} else if receipt != nil {
			return d.finalize(ctx, eventID, txHash, receipt, logger)
		}

		select {
		case <-ctx.Done():
			// Shutdown is not a timeout: the transaction may confirm while we
			// are gone, and recovery picks it up on the next start.
			return d.fail(ctx, eventID, tip.KindTransientSubmission, "dispatch_canceled")
		case <-deadline.C:
			logger.Warn("Confirmation timed out", zap.String("tx_hash", txHash))
			return d.fail(ctx, eventID, tip.KindConfirmationTimeout, "confirmation_timeout")
		case <-ticker.C:
		}
	}
}

// finalize records the terminal state implied by a receipt.
func (d *Dispatcher) finalize(ctx context.Context, eventID, txHash string, receipt *chain.Receipt, logger *zap.Logger) *Outcome {
	if receipt.Status == 1 {
		if err := d.store.MarkConfirmed(ctx, eventID, int64(receipt.BlockNumber), int64(receipt.GasUsed)); err != nil {
			logger.Error("Failed to mark transaction confirmed", zap.Error(err))
		}
		metrics.TipsTotal.WithLabelValues(string(tipdb.StatusConfirmed)).Inc()
		metrics.GasUsed.Observe(float64(receipt.GasUsed))
		logger.Info("Tip confirmed",
			zap.String("tx_hash", txHash),
			zap.Uint64("block_number", receipt.BlockNumber),
			zap.Uint64("gas_used", receipt.GasUsed))
		return &Outcome{
			Status:      tipdb.StatusConfirmed,
			TxHash:      txHash,
			BlockNumber: int64(receipt.BlockNumber),
			GasUsed:     int64(receipt.GasUsed),
		}
	}

	logger.Warn("Tip transaction reverted", zap.String("tx_hash", txHash))
	outcome := d.fail(ctx, eventID, tip.KindPermanentSubmission, "transaction_reverted")
	outcome.TxHash = txHash
	return outcome
}

// fail marks the record failed and returns the terminal outcome.
func (d *Dispatcher) fail(ctx context.Context, eventID string, kind tip.Kind, reason string) *Outcome {
	if err := d.store.MarkFailed(ctx, eventID, reason); err != nil {
		d.logger.Error("Failed to mark transaction failed",
			zap.String("event_id", eventID),
			zap.Error(err))
	}
	metrics.TipsTotal.WithLabelValues(string(tipdb.StatusFailed)).Inc()
	metrics.TipFailures.WithLabelValues(kind.String()).Inc()
	return &Outcome{
		Status:        tipdb.StatusFailed,
		FailureKind:   kind,
		FailureReason: reason,
	}
}

// RecoverInFlight reconciles records left non-terminal by a previous run.
// Records stuck in pending never reached the network and fail immediately;
// submitted records without a hash fail too, and the rest resume receipt
// polling in the background. onOutcome is invoked for every terminal result.
func (d *Dispatcher) RecoverInFlight(ctx context.Context, onOutcome func(eventID string, outcome *Outcome)) error {
	records, err := d.store.ListInFlight(ctx)
	if err != nil {
		return fmt.Errorf("failed to list in-flight transactions: %w", err)
	}
	if len(records) == 0 {
		return nil
	}

	d.logger.Info("Recovering in-flight transactions", zap.Int("count", len(records)))

	for _, record := range records {
		record := record
		logger := d.logger.With(zap.String("event_id", record.EventID))

		if record.Status == tipdb.StatusPending {
			outcome := d.fail(ctx, record.EventID, tip.KindTransientSubmission, "recovered_before_broadcast")
			onOutcome(record.EventID, outcome)
			continue
		}

		if record.TxHash == "" {
			outcome := d.fail(ctx, record.EventID, tip.KindTransientSubmission, "recovered_without_hash")
			onOutcome(record.EventID, outcome)
			continue
		}

		go func() {
			outcome := d.awaitConfirmation(ctx, record.EventID, record.TxHash, logger)
			onOutcome(record.EventID, outcome)
		}()
	}
	return nil
}
