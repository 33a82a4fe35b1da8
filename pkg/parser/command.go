package parser

import (
	"fmt"
	"regexp"
	"strings"
)

// plainAmountPattern matches digits with an optional single decimal point.
// No sign, no exponent. The empty string also matches.
var plainAmountPattern = regexp.MustCompile(`^\d*\.?\d*$`)

// overridePattern matches "<symbol>=<amount>" and "<chain>:<symbol>=<amount>"
var overridePattern = regexp.MustCompile(`^(?:(\d+):)?([A-Z0-9.$_-]+)=(.*)$`)

// IsPlainAmount reports whether text is an acceptable amount edit
func IsPlainAmount(text string) bool {
	return plainAmountPattern.MatchString(text)
}

// AmountOverride is a per-token amount supplied on the command line
type AmountOverride struct {
	ChainID int64
	Symbol  string
	Amount  string
}

// ParseAmountOverride parses an override flag value
// Examples:
//   - "DEGEN=1500"
//   - "8453:DEGEN=0.5"
func ParseAmountOverride(value string) (*AmountOverride, error) {
	value = strings.TrimSpace(value)
	upper := strings.ToUpper(value)

	matches := overridePattern.FindStringSubmatch(upper)
	if matches == nil {
		return nil, fmt.Errorf("invalid amount override %q. Expected: '<symbol>=<amount>' or '<chain-id>:<symbol>=<amount>'", value)
	}

	override := &AmountOverride{
		Symbol: NormalizeTokenSymbol(matches[2]),
		Amount: matches[3],
	}
	if matches[1] != "" {
		if _, err := fmt.Sscan(matches[1], &override.ChainID); err != nil {
			return nil, fmt.Errorf("invalid chain id in %q: %w", value, err)
		}
	}

	if !IsPlainAmount(override.Amount) {
		return nil, fmt.Errorf("invalid amount %q for %s: use plain digits with an optional decimal point", override.Amount, override.Symbol)
	}

	return override, nil
}

// NormalizeTokenSymbol normalizes token symbols to standard format
func NormalizeTokenSymbol(symbol string) string {
	return strings.TrimSpace(strings.ToUpper(symbol))
}
