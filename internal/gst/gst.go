// Package gst computes Indian Goods and Services Tax for billing documents.
//
// Intra-state supplies carry CGST and SGST at half the rate each; inter-state
// supplies carry the whole rate as IGST. Every component is rounded half-up to
// paise once, and the total is the exact sum of the rounded parts.
package gst

import (
	"strings"

	"invoicing/pkg/apperror"

	"github.com/shopspring/decimal"
)

// Scale is the number of decimal places kept for rupee amounts.
const Scale = 2

// minExponent bounds how many fractional digits an input may carry.
const minExponent = -18

// MaxAmount is the exclusive upper bound for any single input amount. With
// GST added the total still fits the decimal(15,2) columns.
var MaxAmount = decimal.New(1, 10)

var (
	// Rate is the combined GST rate applied to estimates and invoices.
	Rate = decimal.RequireFromString("0.18")
	// HalfRate is the CGST (and SGST) share of Rate.
	HalfRate = decimal.RequireFromString("0.09")
)

// Breakdown is the tax snapshot stored on an invoice.
type Breakdown struct {
	Subtotal decimal.Decimal
	CGST     decimal.Decimal
	SGST     decimal.Decimal
	IGST     decimal.Decimal
	Total    decimal.Decimal
}

// TaxAmount is the sum of all tax components.
func (b Breakdown) TaxAmount() decimal.Decimal {
	return b.CGST.Add(b.SGST).Add(b.IGST)
}

// Round rounds a non-negative amount half-up to Scale places.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Scale)
}

// Compute splits GST for the given subtotal.
func Compute(subtotal decimal.Decimal, interState bool) (Breakdown, error) {
	if subtotal.IsNegative() {
		return Breakdown{}, apperror.InvalidAmount("subtotal must not be negative, got %s", subtotal.String())
	}
	subtotal = Round(subtotal)

	b := Breakdown{
		Subtotal: subtotal,
		CGST:     decimal.Zero,
		SGST:     decimal.Zero,
		IGST:     decimal.Zero,
	}
	if interState {
		b.IGST = Round(subtotal.Mul(Rate))
	} else {
		half := Round(subtotal.Mul(HalfRate))
		b.CGST = half
		b.SGST = half
	}
	b.Total = subtotal.Add(b.TaxAmount())
	return b, nil
}

// EstimateTax returns the flat, unsplit GST preview used on estimates.
func EstimateTax(subtotal decimal.Decimal) (gstAmount, total decimal.Decimal, err error) {
	if subtotal.IsNegative() {
		return decimal.Zero, decimal.Zero, apperror.InvalidAmount("subtotal must not be negative, got %s", subtotal.String())
	}
	subtotal = Round(subtotal)
	gstAmount = Round(subtotal.Mul(Rate))
	return gstAmount, subtotal.Add(gstAmount), nil
}

// ParseAmount parses a decimal string such as "1180.00" and rounds it to Scale.
// NaN, infinities, malformed input, exponent notation and magnitudes of
// MaxAmount or more are rejected with InvalidAmount.
func ParseAmount(field, raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, apperror.InvalidAmount("%s is required", field)
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, apperror.Wrap(apperror.KindInvalidAmount, err, "invalid "+field)
	}
	// Check the exponent before anything rescales: 1e99999999 would allocate a huge big.Int.
	if exp := d.Exponent(); exp > 0 || exp < minExponent {
		return decimal.Zero, apperror.InvalidAmount("%s %q is out of range", field, raw)
	}
	if d.Abs().Cmp(MaxAmount) >= 0 {
		return decimal.Zero, apperror.InvalidAmount("%s must be less than %s", field, MaxAmount.String())
	}
	return Round(d), nil
}
