// Package pipeline orchestrates one webhook event end to end: trigger checks,
// parsing, the idempotency claim, identity resolution, dispatch and the
// downstream audit and notification fanout.
package pipeline

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/montip/tipbot-middleware/internal/metrics"
	"github.com/montip/tipbot-middleware/pkg/command"
	"github.com/montip/tipbot-middleware/pkg/dispatch"
	"github.com/montip/tipbot-middleware/pkg/ledger"
	"github.com/montip/tipbot-middleware/pkg/tip"
	"github.com/montip/tipbot-middleware/pkg/tipdb"
	"github.com/montip/tipbot-middleware/pkg/token"
	"github.com/montip/tipbot-middleware/pkg/webhook"
)

// Claimer is the idempotency ledger surface the pipeline needs.
type Claimer interface {
	TryClaim(ctx context.Context, eventID string) (ledger.ClaimResult, error)
	RecordOutcome(ctx context.Context, eventID, outcomeRef string) error
}

// Resolver resolves a tip request to wallets and base units.
type Resolver interface {
	Resolve(ctx context.Context, req tip.Request, tok token.Token) (*tip.Resolved, error)
}

// Dispatcher executes admitted tips.
type Dispatcher interface {
	Admit(ctx context.Context) error
	Release()
	Execute(ctx context.Context, resolved *tip.Resolved) *dispatch.Outcome
}

// Auditor records terminal outcomes.
type Auditor interface {
	Record(record *tipdb.AuditRecord)
}

// Notifier posts outcome replies.
type Notifier interface {
	NotifyOutcome(resolved *tip.Resolved, outcome *dispatch.Outcome)
	NotifyError(castHash string, err error)
}

// Pipeline wires the tip flow together. Intake is synchronous up to the
// idempotency claim; everything after runs in a background goroutine tied to
// the pipeline's lifetime, not the webhook request.
type Pipeline struct {
	parser     *command.Parser
	claims     Claimer
	resolver   Resolver
	dispatcher Dispatcher
	auditor    Auditor
	notifier   Notifier
	botFID     int64
	logger     *zap.Logger

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a pipeline.
func New(
	parser *command.Parser,
	claims Claimer,
	resolver Resolver,
	dispatcher Dispatcher,
	auditor Auditor,
	notifier Notifier,
	botFID int64,
	logger *zap.Logger,
) *Pipeline {
	ctx, cancel := context.WithCancel(context.Background())
	return &Pipeline{
		parser:     parser,
		claims:     claims,
		resolver:   resolver,
		dispatcher: dispatcher,
		auditor:    auditor,
		notifier:   notifier,
		botFID:     botFID,
		logger:     logger,
		baseCtx:    ctx,
		cancel:     cancel,
	}
}

// Stop cancels in-flight processing and waits for it to wind down.
func (p *Pipeline) Stop() {
	p.cancel()
	p.wg.Wait()
	p.logger.Info("Pipeline stopped")
}

// Intake decides the fate of one authenticated cast event.
func (p *Pipeline) Intake(ctx context.Context, event *webhook.CastEvent) (webhook.IntakeResult, error) {
	if event.Author.FID == p.botFID {
		return ignored("own_cast"), nil
	}
	if !command.HasTrigger(event.Text) {
		return ignored("not_a_command"), nil
	}
	if !event.IsReply() {
		return ignored("not_a_reply"), nil
	}

	cmd, parseErr := p.parser.Parse(event.Text)
	if parseErr != nil {
		return p.rejectCommand(ctx, event, parseErr)
	}

	// Admission comes before the claim: a rejected delivery stays unclaimed
	// and the sender's retry gets a fresh chance once load drops.
	if err := p.dispatcher.Admit(ctx); err != nil {
		return webhook.IntakeResult{}, err
	}

	claim, err := p.claims.TryClaim(ctx, event.Hash)
	if err != nil {
		p.dispatcher.Release()
		return webhook.IntakeResult{}, err
	}
	if !claim.Claimed {
		p.dispatcher.Release()
		return webhook.IntakeResult{
			Disposition: webhook.DispositionDuplicate,
			OutcomeRef:  claim.OutcomeRef,
		}, nil
	}

	req := tip.Request{
		EventID:        event.Hash,
		SenderFID:      event.Author.FID,
		SenderUsername: event.Author.Username,
		TokenSymbol:    cmd.Token.Symbol,
		Amount:         cmd.Amount,
		RawText:        event.Text,
		CastHash:       event.Hash,
		ParentCastHash: event.ParentHash,
		CastTimestamp:  event.Timestamp,
	}

	p.wg.Add(1)
	go p.process(req, cmd.Token)

	return webhook.IntakeResult{Disposition: webhook.DispositionAccepted}, nil
}

// rejectCommand claims a malformed command so redeliveries answer from the
// ledger instead of reprocessing, then records and reports the failure.
func (p *Pipeline) rejectCommand(ctx context.Context, event *webhook.CastEvent, parseErr error) (webhook.IntakeResult, error) {
	claim, err := p.claims.TryClaim(ctx, event.Hash)
	if err != nil {
		return webhook.IntakeResult{}, err
	}
	if !claim.Claimed {
		return webhook.IntakeResult{
			Disposition: webhook.DispositionDuplicate,
			OutcomeRef:  claim.OutcomeRef,
		}, nil
	}

	reason := tip.ReasonOf(parseErr)
	if err := p.claims.RecordOutcome(ctx, event.Hash, "failed:"+reason); err != nil {
		p.logger.Error("Failed to record rejection outcome",
			zap.String("event_id", event.Hash),
			zap.Error(err))
	}

	metrics.TipFailures.WithLabelValues(tip.KindOf(parseErr).String()).Inc()
	p.auditor.Record(rejectionAudit(event, reason))
	p.notifier.NotifyError(event.Hash, parseErr)

	p.logger.Info("Rejected tip command",
		zap.String("event_id", event.Hash),
		zap.String("reason", reason))

	return webhook.IntakeResult{}, parseErr
}

// process runs a claimed tip to its terminal outcome.
func (p *Pipeline) process(req tip.Request, tok token.Token) {
	defer p.wg.Done()
	defer p.dispatcher.Release()

	ctx := p.baseCtx
	logger := p.logger.With(zap.String("event_id", req.EventID))

	resolved, err := p.resolver.Resolve(ctx, req, tok)
	if err != nil {
		reason := tip.ReasonOf(err)
		logger.Info("Tip resolution failed", zap.String("reason", reason))

		if recErr := p.claims.RecordOutcome(ctx, req.EventID, "failed:"+reason); recErr != nil {
			logger.Error("Failed to record resolution outcome", zap.Error(recErr))
		}
		metrics.TipFailures.WithLabelValues(tip.KindOf(err).String()).Inc()
		p.auditor.Record(resolutionFailureAudit(req, tok, reason))
		p.notifier.NotifyError(req.CastHash, err)
		return
	}

	amount, _ := resolved.Amount.Float64()
	metrics.TipAmount.WithLabelValues(resolved.TokenSymbol).Observe(amount)

	outcome := p.dispatcher.Execute(ctx, resolved)

	if err := p.claims.RecordOutcome(ctx, req.EventID, outcome.Ref()); err != nil {
		logger.Error("Failed to record outcome", zap.Error(err))
	}
	p.auditor.Record(outcomeAudit(resolved, outcome))
	p.notifier.NotifyOutcome(resolved, outcome)
}

// RecordRecovered finalizes the claim for a transaction recovered at startup.
// The full tip context is gone by then, so only the ledger is updated.
func (p *Pipeline) RecordRecovered(eventID string, outcome *dispatch.Outcome) {
	ctx := p.baseCtx
	if err := p.claims.RecordOutcome(ctx, eventID, outcome.Ref()); err != nil {
		p.logger.Error("Failed to record recovered outcome",
			zap.String("event_id", eventID),
			zap.Error(err))
		return
	}
	p.logger.Info("Recovered transaction finalized",
		zap.String("event_id", eventID),
		zap.String("outcome_ref", outcome.Ref()))
}

func ignored(reason string) webhook.IntakeResult {
	return webhook.IntakeResult{
		Disposition: webhook.DispositionIgnored,
		Reason:      reason,
	}
}

func rejectionAudit(event *webhook.CastEvent, reason string) *tipdb.AuditRecord {
	return &tipdb.AuditRecord{
		EventID:        event.Hash,
		SenderFID:      event.Author.FID,
		SenderUsername: event.Author.Username,
		TokenSymbol:    "",
		Amount:         "0",
		Status:         string(tipdb.StatusFailed),
		FailureReason:  reason,
		CastHash:       event.Hash,
		ParentCastHash: event.ParentHash,
		CastTimestamp:  event.Timestamp,
	}
}

func resolutionFailureAudit(req tip.Request, tok token.Token, reason string) *tipdb.AuditRecord {
	return &tipdb.AuditRecord{
		EventID:        req.EventID,
		SenderFID:      req.SenderFID,
		SenderUsername: req.SenderUsername,
		TokenSymbol:    tok.Symbol,
		TokenContract:  tok.Address,
		Amount:         req.Amount.String(),
		Status:         string(tipdb.StatusFailed),
		FailureReason:  reason,
		CastHash:       req.CastHash,
		ParentCastHash: req.ParentCastHash,
		CastTimestamp:  req.CastTimestamp,
	}
}

func outcomeAudit(resolved *tip.Resolved, outcome *dispatch.Outcome) *tipdb.AuditRecord {
	record := &tipdb.AuditRecord{
		EventID:           resolved.EventID,
		SenderFID:         resolved.SenderFID,
		SenderUsername:    resolved.SenderUsername,
		SenderWallet:      resolved.SenderAddress,
		RecipientFID:      resolved.RecipientFID,
		RecipientUsername: resolved.RecipientUsername,
		RecipientWallet:   resolved.RecipientAddress,
		TokenSymbol:       resolved.TokenSymbol,
		TokenContract:     resolved.TokenContract,
		Amount:            resolved.Amount.String(),
		Status:            string(outcome.Status),
		TxHash:            outcome.TxHash,
		BlockNumber:       outcome.BlockNumber,
		GasUsed:           outcome.GasUsed,
		CastHash:          resolved.CastHash,
		ParentCastHash:    resolved.ParentCastHash,
		CastTimestamp:     resolved.CastTimestamp,
	}
	if outcome.Status == tipdb.StatusFailed {
		record.FailureReason = outcome.FailureReason
	}
	return record
}
