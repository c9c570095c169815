package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/montip/tipbot-middleware/internal/metrics"
	apperrors "github.com/montip/tipbot-middleware/pkg/app/errors"
	"github.com/montip/tipbot-middleware/pkg/tip"
)

// maxBodyBytes bounds webhook payload size.
const maxBodyBytes = 1 << 20

// Disposition is the handler's synchronous verdict on a delivery.
type Disposition string

const (
	// DispositionIgnored covers non-commands, non-replies and non-cast events.
	DispositionIgnored Disposition = "ignored"
	// DispositionDuplicate means the event was already claimed by an earlier delivery.
	DispositionDuplicate Disposition = "already_processed"
	// DispositionRejected means the command failed validation before any claim.
	DispositionRejected Disposition = "invalid_command"
	// DispositionAccepted means the event was claimed and handed to the dispatcher.
	DispositionAccepted Disposition = "processing"
)

// IntakeResult is what the pipeline reports back for the HTTP response.
type IntakeResult struct {
	Disposition Disposition
	// Reason qualifies ignored/rejected dispositions.
	Reason string
	// OutcomeRef is the recorded outcome of a duplicate event, when known.
	OutcomeRef string
}

// TipPipeline processes a decoded cast event. Intake returns synchronously
// once the event's fate is decided; accepted events continue asynchronously.
type TipPipeline interface {
	Intake(ctx context.Context, event *CastEvent) (IntakeResult, error)
}

// Handler is the POST /webhook endpoint.
type Handler struct {
	verifier *Verifier
	pipeline TipPipeline
	logger   *zap.Logger
}

// NewHandler creates a webhook handler.
func NewHandler(verifier *Verifier, pipeline TipPipeline, logger *zap.Logger) *Handler {
	return &Handler{
		verifier: verifier,
		pipeline: pipeline,
		logger:   logger,
	}
}

type webhookResponse struct {
	Status     string `json:"status"`
	Reason     string `json:"reason,omitempty"`
	OutcomeRef string `json:"outcome_ref,omitempty"`
}

// Receive handles one webhook delivery. The response is sent as soon as the
// event is authenticated and claimed; transaction work continues in the
// background.
func (h *Handler) Receive(w http.ResponseWriter, r *http.Request) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return apperrors.BadRequestError(err, "failed to read request body")
	}

	if err := h.verifier.Verify(body, r.Header.Get(SignatureHeader)); err != nil {
		metrics.WebhooksTotal.WithLabelValues("unauthenticated").Inc()
		h.logger.Warn("Rejected webhook with bad signature",
			zap.String("reason", tip.ReasonOf(err)))
		return apperrors.UnAuthorizedError(err, "invalid webhook signature")
	}

	event, err := DecodeCastEvent(body)
	if err != nil {
		return apperrors.BadRequestError(err, "malformed webhook payload")
	}
	if event == nil {
		// Subscribed event type mismatch; acknowledge so Neynar stops retrying.
		metrics.WebhooksTotal.WithLabelValues(string(DispositionIgnored)).Inc()
		return writeJSON(w, http.StatusOK, webhookResponse{Status: string(DispositionIgnored), Reason: "unsupported_event_type"})
	}

	result, err := h.pipeline.Intake(r.Context(), event)
	if err != nil {
		if tip.IsKind(err, tip.KindBackpressure) {
			metrics.WebhooksTotal.WithLabelValues("backpressure").Inc()
			return writeJSON(w, http.StatusTooManyRequests, webhookResponse{
				Status: "rejected",
				Reason: tip.ReasonOf(err),
			})
		}
		var te *tip.Error
		if errors.As(err, &te) {
			// Classified failures are a normal outcome for the webhook; the
			// pipeline has already recorded them.
			metrics.WebhooksTotal.WithLabelValues(string(DispositionRejected)).Inc()
			return writeJSON(w, http.StatusOK, webhookResponse{
				Status: string(DispositionRejected),
				Reason: te.Reason,
			})
		}
		h.logger.Error("Webhook intake failed",
			zap.String("cast_hash", event.Hash),
			zap.Error(err))
		return apperrors.GeneralError(err)
	}

	metrics.WebhooksTotal.WithLabelValues(string(result.Disposition)).Inc()

	status := http.StatusOK
	if result.Disposition == DispositionAccepted {
		status = http.StatusAccepted
	}
	return writeJSON(w, status, webhookResponse{
		Status:     string(result.Disposition),
		Reason:     result.Reason,
		OutcomeRef: result.OutcomeRef,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(body)
}
