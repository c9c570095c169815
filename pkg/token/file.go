package token

import (
	"fmt"
	"os"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// registryFile is the on-disk format for extending the built-in table.
type registryFile struct {
	Tokens []tokenEntry `yaml:"tokens"`
}

type tokenEntry struct {
	Symbol  string `yaml:"symbol" validate:"required"`
	Address string `yaml:"address" validate:"required,len=42,startswith=0x"`
	// Pointer so an explicit "decimals: 0" is distinguishable from an
	// omitted field; only the latter takes the default.
	Decimals *int `yaml:"decimals" default:"18" validate:"min=0,max=36"`
}

// LoadFile returns the built-in registry extended (or overridden, per symbol)
// by the entries in the given yaml file.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read token registry file: %w", err)
	}

	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse token registry file: %w", err)
	}

	validate := validator.New()
	tokens := append([]Token(nil), builtin...)
	for i := range file.Tokens {
		entry := &file.Tokens[i]
		if err := defaults.Set(entry); err != nil {
			return nil, fmt.Errorf("failed to apply token defaults: %w", err)
		}
		if err := validate.Struct(entry); err != nil {
			return nil, fmt.Errorf("invalid token entry %q: %w", entry.Symbol, err)
		}
		tokens = append(tokens, Token{
			Symbol:   entry.Symbol,
			Address:  entry.Address,
			Decimals: *entry.Decimals,
		})
	}

	return NewRegistry(tokens), nil
}
