package chain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var one = decimal.NewFromInt(1)

// Roundup maps a purchase amount to its micro-donation: the complement to
// the next whole unit for fractional amounts, a full unit for positive whole
// amounts, and zero for anything non-positive.
func Roundup(amount decimal.Decimal) decimal.Decimal {
	if !amount.IsPositive() {
		return decimal.Zero
	}
	if amount.IsInteger() {
		return one
	}
	return amount.Ceil().Sub(amount)
}

// ParseAmount parses a monetary string into an exact decimal. This is the
// JSON boundary where non-finite or garbage input can appear; such input
// fails with ErrInvalidAmount.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return d, nil
}
