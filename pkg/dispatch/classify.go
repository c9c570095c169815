package dispatch

import "strings"

// permanentPatterns are broadcast errors that no amount of retrying will fix.
// Everything else is treated as transient; an unrecognized error is retried
// only after the chain is checked for the previous broadcast.
var permanentPatterns = map[string]string{
	"insufficient funds":      "insufficient_gas_funds",
	"execution reverted":      "execution_reverted",
	"gas required exceeds":    "gas_limit_exceeded",
	"intrinsic gas too low":   "gas_limit_too_low",
	"invalid sender":          "invalid_sender",
	"exceeds block gas limit": "gas_limit_exceeded",
	"invalid transaction":     "invalid_transaction",
	"invalid opcode":          "execution_reverted",
}

// alreadyKnownPatterns mean the node already holds this exact transaction;
// the broadcast effectively succeeded.
var alreadyKnownPatterns = []string{
	"already known",
	"known transaction",
	"transaction already imported",
}

// classifyPermanent returns a stable reason code when the error is permanent.
func classifyPermanent(err error) (string, bool) {
	msg := strings.ToLower(err.Error())
	for pattern, reason := range permanentPatterns {
		if strings.Contains(msg, pattern) {
			return reason, true
		}
	}
	return "", false
}

// isAlreadyKnown reports whether the node rejected the broadcast because it
// already has the transaction.
func isAlreadyKnown(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, pattern := range alreadyKnownPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
