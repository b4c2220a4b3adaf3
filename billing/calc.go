package billing

import (
	"github.com/shopspring/decimal"
)

// Line is one billable test on an invoice.
type Line struct {
	Ref      string
	Name     string
	Category string
	Price    decimal.Decimal
	Quantity int
	Discount decimal.Decimal
}

// NetPayablePolicy decides how the quoted net payable treats discounts.
//
// PolicyLineNet: net payable is the sum of line net amounts.
// PolicyLegacyDoubleDiscount: net payable subtracts the total discount from
// a subtotal that already has line discounts applied, which is what the
// old cash receipt screen did.
type NetPayablePolicy string

const (
	PolicyLineNet              NetPayablePolicy = "line-net"
	PolicyLegacyDoubleDiscount NetPayablePolicy = "legacy-double-discount"
)

// ParsePolicy validates a configured policy name. Empty means PolicyLineNet.
func ParsePolicy(s string) (NetPayablePolicy, error) {
	switch NetPayablePolicy(s) {
	case "", PolicyLineNet:
		return PolicyLineNet, nil
	case PolicyLegacyDoubleDiscount:
		return PolicyLegacyDoubleDiscount, nil
	}
	return "", ErrUnknownPolicy
}

// Validate checks the inputs that feed money arithmetic.
func (l Line) Validate() error {
	if l.Quantity < 1 {
		return ErrInvalidQuantity
	}
	if l.Price.IsNegative() {
		return ErrNegativePrice
	}
	if l.Discount.IsNegative() {
		return ErrNegativeDiscount
	}
	return nil
}

// Gross is price * quantity.
func (l Line) Gross() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// EffectiveDiscount is the discount clamped to the line gross.
func (l Line) EffectiveDiscount() decimal.Decimal {
	gross := l.Gross()
	if l.Discount.GreaterThan(gross) {
		return gross
	}
	if l.Discount.IsNegative() {
		return decimal.Zero
	}
	return l.Discount
}

// NetAmount is gross minus the clamped discount. It is never negative.
func (l Line) NetAmount() decimal.Decimal {
	return l.Gross().Sub(l.EffectiveDiscount())
}

// NetAmount computes price*quantity - discount after validating the inputs.
func NetAmount(price decimal.Decimal, quantity int, discount decimal.Decimal) (decimal.Decimal, error) {
	l := Line{Price: price, Quantity: quantity, Discount: discount}
	if err := l.Validate(); err != nil {
		return decimal.Zero, err
	}
	return l.NetAmount(), nil
}

// Summary is the quoted bill for a set of lines.
type Summary struct {
	Gross         decimal.Decimal `json:"gross"`
	TotalDiscount decimal.Decimal `json:"totalDiscount"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	NetPayable    decimal.Decimal `json:"netPayable"`
	Received      decimal.Decimal `json:"received"`
	Balance       decimal.Decimal `json:"balance"`
}

// Summarize totals lines and the balance left after amountReceived.
// Balance is rounded to whole units and never negative.
func Summarize(lines []Line, amountReceived decimal.Decimal, policy NetPayablePolicy) (Summary, error) {
	var s Summary
	for _, l := range lines {
		if err := l.Validate(); err != nil {
			return Summary{}, err
		}
		s.Gross = s.Gross.Add(l.Gross())
		s.TotalDiscount = s.TotalDiscount.Add(l.EffectiveDiscount())
		s.Subtotal = s.Subtotal.Add(l.NetAmount())
	}

	switch policy {
	case PolicyLegacyDoubleDiscount:
		s.NetPayable = s.Subtotal.Sub(s.TotalDiscount)
	case PolicyLineNet, "":
		s.NetPayable = s.Subtotal
	default:
		return Summary{}, ErrUnknownPolicy
	}

	s.Received = amountReceived
	s.Balance = decimal.Max(decimal.Zero, s.NetPayable.Sub(amountReceived).Round(0))
	return s, nil
}

// Total is the sum of line net amounts, the stored invoice total.
func Total(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.NetAmount())
	}
	return total
}
