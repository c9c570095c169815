// Package command parses tip commands out of cast text.
package command

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/montip/tipbot-middleware/pkg/tip"
	"github.com/montip/tipbot-middleware/pkg/token"
)

// Trigger is the keyword that marks a cast as a tip command.
const Trigger = "!montip"

// Command is a successfully parsed tip command.
type Command struct {
	Amount decimal.Decimal
	Token  token.Token
	// RawSymbol is the symbol exactly as the user typed it (minus any $ prefix).
	RawSymbol string
}

// Parser validates tip commands against the token registry and the configured
// amount ceiling.
type Parser struct {
	registry  *token.Registry
	maxAmount decimal.Decimal
}

// NewParser creates a parser. maxAmount is expressed in whole tokens and
// applies to every token uniformly.
func NewParser(registry *token.Registry, maxAmount decimal.Decimal) *Parser {
	return &Parser{
		registry:  registry,
		maxAmount: maxAmount,
	}
}

// HasTrigger reports whether the text contains the trigger keyword at all.
// Used by the webhook handler to cheaply ignore ordinary casts.
func HasTrigger(text string) bool {
	for _, word := range strings.Fields(text) {
		if strings.ToLower(word) == Trigger {
			return true
		}
	}
	return false
}

// Parse extracts the tip command from cast text.
//
// Grammar: the trigger may appear anywhere in the text; an optional literal
// "tip" may follow it; then an amount and a token symbol. The symbol may carry
// a leading "$" and is matched case-insensitively. Only the first trigger
// occurrence is honored; anything after the token symbol is ignored.
func (p *Parser) Parse(text string) (*Command, error) {
	words := strings.Fields(text)

	at := -1
	for i, word := range words {
		if strings.ToLower(word) == Trigger {
			at = i
			break
		}
	}
	if at == -1 {
		return nil, tip.ParseError("missing_trigger")
	}

	args := words[at+1:]
	if len(args) > 0 && strings.ToLower(args[0]) == "tip" {
		args = args[1:]
	}
	if len(args) < 2 {
		return nil, tip.ParseError("incomplete_command")
	}

	amount, err := decimal.NewFromString(args[0])
	if err != nil {
		return nil, tip.ParseError("invalid_amount")
	}
	if !amount.IsPositive() {
		return nil, tip.ParseError("non_positive_amount")
	}
	if amount.GreaterThan(p.maxAmount) {
		return nil, tip.ParseError("amount_too_large")
	}

	symbol := strings.TrimPrefix(args[1], "$")
	tok, ok := p.registry.Lookup(symbol)
	if !ok {
		return nil, tip.UnsupportedTokenError(symbol)
	}

	return &Command{
		Amount:    amount,
		Token:     tok,
		RawSymbol: symbol,
	}, nil
}
