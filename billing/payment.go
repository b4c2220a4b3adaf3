package billing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentDue     PaymentStatus = "Due"
	PaymentPartial PaymentStatus = "Partial Paid"
	PaymentPaid    PaymentStatus = "Paid"
)

// DerivePaymentStatus is recomputed on every payment change and never stored
// independently of paid and total.
func DerivePaymentStatus(paid, total decimal.Decimal) PaymentStatus {
	switch {
	case !paid.IsPositive():
		return PaymentDue
	case paid.LessThan(total):
		return PaymentPartial
	default:
		return PaymentPaid
	}
}

// AddPayment returns the new paid amount after receiving amount.
func AddPayment(paid, total, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return paid, ErrInvalidPaymentAmount
	}
	next := paid.Add(amount)
	if next.GreaterThan(total) {
		return paid, fmt.Errorf("%w: paying %s on top of %s exceeds %s",
			ErrPaymentExceedsTotal, amount.StringFixed(2), paid.StringFixed(2), total.StringFixed(2))
	}
	return next, nil
}

// CheckTotalCoversPaid rejects a new total lower than what was already paid.
func CheckTotalCoversPaid(paid, newTotal decimal.Decimal) error {
	if paid.GreaterThan(newTotal) {
		return fmt.Errorf("%w: paid %s, new total %s", ErrTotalBelowPaid, paid.StringFixed(2), newTotal.StringFixed(2))
	}
	return nil
}
