// Package token maintains the registry of tippable tokens: symbol to contract
// address and decimals, plus conversion from human amounts to base units.
package token

import (
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/montip/tipbot-middleware/pkg/tip"
)

// ZeroAddress marks the native token (MON) in place of a contract address.
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// Token describes a single supported token.
type Token struct {
	Symbol   string
	Address  string
	Decimals int
}

// Native reports whether the token is the chain's native asset.
func (t Token) Native() bool {
	return t.Address == ZeroAddress
}

// Registry maps token symbols to their on-chain metadata. Lookups are
// case-insensitive; the canonical symbol casing is preserved for display.
type Registry struct {
	bySymbol map[string]Token
}

// NewRegistry builds a registry from the given tokens. Later entries with the
// same symbol (case-insensitive) override earlier ones.
func NewRegistry(tokens []Token) *Registry {
	r := &Registry{bySymbol: make(map[string]Token, len(tokens))}
	for _, t := range tokens {
		r.bySymbol[strings.ToUpper(t.Symbol)] = t
	}
	return r
}

// Default returns the registry seeded with the built-in token table.
func Default() *Registry {
	return NewRegistry(builtin)
}

// Lookup resolves a symbol case-insensitively.
func (r *Registry) Lookup(symbol string) (Token, bool) {
	t, ok := r.bySymbol[strings.ToUpper(symbol)]
	return t, ok
}

// Len returns the number of registered tokens.
func (r *Registry) Len() int {
	return len(r.bySymbol)
}

// BaseUnits converts a human-readable amount to the token's smallest unit,
// rounding half away from zero at the smallest unit. The result must be a
// positive integer; anything that rounds to zero or below fails validation.
func (t Token) BaseUnits(amount decimal.Decimal) (*big.Int, error) {
	scaled := amount.Shift(int32(t.Decimals)).Round(0)
	if !scaled.IsPositive() {
		return nil, tip.ParseError("non_positive_amount")
	}
	return scaled.BigInt(), nil
}

// builtin is the token table shipped with the bot (Monad testnet).
var builtin = []Token{
	{Symbol: "MON", Address: ZeroAddress, Decimals: 18},
	{Symbol: "USDC", Address: "0xf817257fed379853cDe0fa4F97AB987181B1E5Ea", Decimals: 6},
	{Symbol: "USDT", Address: "0x88B8E2161DEDC77EF4AB7585569D2415A1C1055D", Decimals: 6},
	{Symbol: "BEAN", Address: "0x268E4E24E0051EC27B3D27A95977E71CE6875A05", Decimals: 18},
	{Symbol: "BMONAD", Address: "0x3552F8254263EA8880C7F7E25CB8DBBD79C0C4B1", Decimals: 18},
	{Symbol: "CHOG", Address: "0xE0590015A873BF326BD645C3E1266D4DB41C4E6B", Decimals: 18},
	{Symbol: "DAK", Address: "0x0F0BDEBF0F83CD1EE3974779BCB7315F9808C714", Decimals: 18},
	{Symbol: "HALLI", Address: "0x6CE1890EEADAE7DB01026F4B294CB8EC5ECC6563", Decimals: 18},
	{Symbol: "HEDGE", Address: "0x04A9D9D4AEA93F512A4C7B71993915004325ED38", Decimals: 18},
	{Symbol: "JAI", Address: "0xCC5B42F9D6144DFDFB6FB3987A2A916AF902F5F8", Decimals: 6},
	{Symbol: "KEYS", Address: "0x8A056DF4D7F23121A90ACA1CA1364063D43FF3B8", Decimals: 18},
	{Symbol: "MAD", Address: "0xC8527E96C3CB9522F6E35E95C0A28FEAB8144F15", Decimals: 18},
	{Symbol: "MAD-LP", Address: "0x786F4AA162457ECDF8FA4657759FA3E86C9394FF", Decimals: 18},
	{Symbol: "MIST", Address: "0xB38BB873CCA844B20A9EE448A87AF3626A6E1EF5", Decimals: 18},
	{Symbol: "MONDA", Address: "0x0C0C92FCF37AE2CBCC512E59714CD3A1A1CBC411", Decimals: 18},
	{Symbol: "MOON", Address: "0x4AA50E8208095D9594D18E8E3008ABB811125DCE", Decimals: 18},
	{Symbol: "NOM", Address: "0x43E52CBC0073CAA7C0CF6E64B576CE2D6FB14EB8", Decimals: 18},
	{Symbol: "NSTR", Address: "0xC85548E0191CD34BE8092B0D42EB4E45EBA0D581", Decimals: 18},
	{Symbol: "P1", Address: "0x44369AAFDD04CD9609A57EC0237884F45DD80818", Decimals: 18},
	{Symbol: "RBSD", Address: "0x8A86D48C867B76FF74A36D3AF4D2F1E707B143ED", Decimals: 18},
	{Symbol: "RED", Address: "0x92EAC40C98B383EA0F0EFDA747BDAC7AC891D300", Decimals: 18},
	{Symbol: "TFAT", Address: "0x24D2FD6C5B29EEBD5169CC7D6E8014CD65DECD73", Decimals: 18},
	{Symbol: "USDX", Address: "0xD875BA8E2CAD3C0F7E2973277C360C8D2F92B510", Decimals: 6},
	{Symbol: "USDm", Address: "0xBDD352F339E27E07089039BA80029F9135F6146F", Decimals: 6},
	{Symbol: "WBTC", Address: "0xCF5A6076CFA32686C0DF13ABADA2B40DEC133F1D", Decimals: 8},
	{Symbol: "WETH", Address: "0xB5A30B0FDC5EA94A52FDC42E3E9760CB8449FB37", Decimals: 18},
	{Symbol: "WMON", Address: "0x760AFE86E5DE5FA0EE542FC7B7B713E1C5425701", Decimals: 18},
	{Symbol: "WSOL", Address: "0x5387C85A4965769F6B0DF430638A1388493486F1", Decimals: 9},
	{Symbol: "YAKI", Address: "0xFE140E1DCE99BE9F4F15D657CD9B7BF622270C50", Decimals: 18},
	{Symbol: "aprMON", Address: "0xB2F82D0F38DC453D596AD40A37799446CC89274A", Decimals: 18},
	{Symbol: "gMON", Address: "0xAEEF2F6B429CB59C9B2D7BB2141ADA993E8571C3", Decimals: 18},
	{Symbol: "iceMON", Address: "0xCEB564775415B524640D9F688278490A7F3EF9CD", Decimals: 18},
	{Symbol: "mamaBTC", Address: "0x3B428DF09C3508D884C30266AC1577F099313CF6", Decimals: 8},
	{Symbol: "muBOND", Address: "0x0EFED4D9FB7863CCC7BB392847C08DCD00FE9BE2", Decimals: 18},
	{Symbol: "sMON", Address: "0xE1D2439B75FB9746E7BC6CB777AE10AA7F7EF9C5", Decimals: 18},
	{Symbol: "shMON", Address: "0x3A98250F98DD388C211206983453837C8365BDC1", Decimals: 18},
	{Symbol: "stMON", Address: "0x199C0DA6F291A897302300AAAE4F20D139162916", Decimals: 18},
}
