// Package webhook receives and authenticates Neynar cast events.
package webhook

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"fmt"

	"github.com/montip/tipbot-middleware/pkg/tip"
)

// SignatureHeader carries the hex-encoded HMAC of the request body.
const SignatureHeader = "X-Neynar-Signature"

// Verifier authenticates webhook deliveries with a shared secret.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a verifier for the given webhook secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify checks the HMAC-SHA512 signature over the raw request body. A missing
// or malformed header fails before any comparison is attempted.
func (v *Verifier) Verify(body []byte, signature string) error {
	if signature == "" {
		return tip.AuthenticationError("missing_signature", nil)
	}

	provided, err := hex.DecodeString(signature)
	if err != nil {
		return tip.AuthenticationError("malformed_signature", err)
	}

	mac := hmac.New(sha512.New, v.secret)
	mac.Write(body)
	expected := mac.Sum(nil)

	if !hmac.Equal(provided, expected) {
		return tip.AuthenticationError("invalid_signature", fmt.Errorf("signature mismatch"))
	}
	return nil
}
