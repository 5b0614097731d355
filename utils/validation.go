package utils

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// ValidateAmount checks if an amount string is a valid positive decimal
func ValidateAmount(amount string) (*decimal.Decimal, error) {
	if strings.TrimSpace(amount) == "" {
		return nil, fmt.Errorf("amount cannot be empty")
	}

	dec, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return nil, fmt.Errorf("invalid amount format: %w", err)
	}

	if !dec.IsPositive() {
		return nil, fmt.Errorf("amount must be greater than zero")
	}

	return &dec, nil
}

// ParseAmountWithDecimals parses a decimal amount string and converts it to base units.
// Amounts with more fractional digits than the token supports are rejected rather than truncated.
func ParseAmountWithDecimals(amount string, decimals int32) (*big.Int, error) {
	dec, err := ValidateAmount(amount)
	if err != nil {
		return nil, err
	}

	scaled := dec.Shift(decimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("amount %s has more than %d decimal places", amount, decimals)
	}

	return scaled.BigInt(), nil
}

// FormatAmountFromBigInt formats a base-unit amount as a decimal string
func FormatAmountFromBigInt(amount *big.Int, decimals int32) string {
	return decimal.NewFromBigInt(amount, -decimals).String()
}

// MinimumAfterSlippage returns amount reduced by pct percent, truncated to
// whole base units.
func MinimumAfterSlippage(amount *big.Int, pct float64) *big.Int {
	keep := decimal.NewFromInt(100).Sub(decimal.NewFromFloat(pct))
	return decimal.NewFromBigInt(amount, 0).Mul(keep).Div(decimal.NewFromInt(100)).Truncate(0).BigInt()
}
