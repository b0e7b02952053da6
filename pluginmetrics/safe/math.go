package safe

import (
	"errors"
	"math/big"

	"github.com/shopspring/decimal"
)

// ErrDivisionByZero is returned when attempting to divide by zero.
var ErrDivisionByZero = errors.New("division by zero")

var hundredDecimal = decimal.NewFromInt(100)

// Divide performs decimal division with zero check.
func Divide(numerator, denominator decimal.Decimal) (decimal.Decimal, error) {
	if denominator.IsZero() {
		return decimal.Zero, ErrDivisionByZero
	}

	return numerator.Div(denominator), nil
}

// DivideOrZero performs decimal division, returning zero if denominator is zero.
func DivideOrZero(numerator, denominator decimal.Decimal) decimal.Decimal {
	if denominator.IsZero() {
		return decimal.Zero
	}

	return numerator.Div(denominator)
}

// FromUint64 converts a counter to a decimal without going through int64.
func FromUint64(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)
}

// Percentage returns part/total*100. A zero total yields ErrDivisionByZero.
//
//	pct, err := safe.Percentage(rec.SuccessfulResponses, rec.TotalRequests)
func Percentage(part, total uint64) (decimal.Decimal, error) {
	ratio, err := Divide(FromUint64(part), FromUint64(total))
	if err != nil {
		return decimal.Zero, err
	}

	return ratio.Mul(hundredDecimal), nil
}
