package tip

import (
	"errors"
	"fmt"
)

// Kind classifies every way a tip can fail. The pipeline uses it to decide
// whether a transaction was attempted, whether a retry is allowed, and what
// to tell the user.
type Kind int

const (
	KindAuthentication Kind = iota + 1
	KindParse
	KindUnresolvedIdentity
	KindInvalidRecipient
	KindUnsupportedToken
	KindInsufficientFunds
	KindTransientSubmission
	KindPermanentSubmission
	KindConfirmationTimeout
	KindBackpressure
)

func (k Kind) String() string {
	switch k {
	case KindAuthentication:
		return "authentication"
	case KindParse:
		return "parse"
	case KindUnresolvedIdentity:
		return "unresolved_identity"
	case KindInvalidRecipient:
		return "invalid_recipient"
	case KindUnsupportedToken:
		return "unsupported_token"
	case KindInsufficientFunds:
		return "insufficient_funds"
	case KindTransientSubmission:
		return "transient_submission"
	case KindPermanentSubmission:
		return "permanent_submission"
	case KindConfirmationTimeout:
		return "confirmation_timeout"
	case KindBackpressure:
		return "backpressure"
	default:
		return "unknown"
	}
}

// Error is a classified tipping failure. Reason is a stable machine-readable
// code (audit log, outcome refs); Err carries the underlying cause, if any.
type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a tip.Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var te *Error
	return errors.As(err, &te) && te.Kind == kind
}

// ReasonOf returns the stable reason code of err, or "internal_error" when err
// is not a classified tipping failure.
func ReasonOf(err error) string {
	var te *Error
	if errors.As(err, &te) {
		return te.Reason
	}
	return "internal_error"
}

// KindOf returns the classification of err, or zero when unclassified.
func KindOf(err error) Kind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return 0
}

func AuthenticationError(reason string, err error) error {
	return &Error{Kind: KindAuthentication, Reason: reason, Err: err}
}

func ParseError(reason string) error {
	return &Error{Kind: KindParse, Reason: reason}
}

func UnresolvedIdentityError(reason string, err error) error {
	return &Error{Kind: KindUnresolvedIdentity, Reason: reason, Err: err}
}

func InvalidRecipientError(reason string) error {
	return &Error{Kind: KindInvalidRecipient, Reason: reason}
}

func UnsupportedTokenError(symbol string) error {
	return &Error{Kind: KindUnsupportedToken, Reason: "unsupported_token", Err: fmt.Errorf("token %q not in registry", symbol)}
}

func InsufficientFundsError(symbol string) error {
	return &Error{Kind: KindInsufficientFunds, Reason: "insufficient_" + symbol + "_balance"}
}

func TransientSubmissionError(reason string, err error) error {
	return &Error{Kind: KindTransientSubmission, Reason: reason, Err: err}
}

func PermanentSubmissionError(reason string, err error) error {
	return &Error{Kind: KindPermanentSubmission, Reason: reason, Err: err}
}

func ConfirmationTimeoutError(txHash string) error {
	return &Error{Kind: KindConfirmationTimeout, Reason: "confirmation_timeout", Err: fmt.Errorf("no receipt for %s within timeout", txHash)}
}

func BackpressureError() error {
	return &Error{Kind: KindBackpressure, Reason: "backpressure"}
}
