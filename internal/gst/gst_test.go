package gst

import (
	"testing"

	"invoicing/pkg/apperror"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCompute(t *testing.T) {
	tests := []struct {
		name       string
		subtotal   string
		interState bool
		wantCGST   string
		wantSGST   string
		wantIGST   string
		wantTotal  string
	}{
		{name: "intra-state 1000", subtotal: "1000.00", wantCGST: "90.00", wantSGST: "90.00", wantIGST: "0.00", wantTotal: "1180.00"},
		{name: "inter-state 1000", subtotal: "1000.00", interState: true, wantCGST: "0.00", wantSGST: "0.00", wantIGST: "180.00", wantTotal: "1180.00"},
		{name: "zero subtotal", subtotal: "0", wantCGST: "0.00", wantSGST: "0.00", wantIGST: "0.00", wantTotal: "0.00"},
		{name: "half paisa rounds up per component", subtotal: "0.50", wantCGST: "0.05", wantSGST: "0.05", wantIGST: "0.00", wantTotal: "0.60"},
		{name: "inter-state rounding", subtotal: "1000.05", interState: true, wantCGST: "0.00", wantSGST: "0.00", wantIGST: "180.01", wantTotal: "1180.06"},
		{name: "intra-state rounding", subtotal: "1000.05", wantCGST: "90.00", wantSGST: "90.00", wantIGST: "0.00", wantTotal: "1180.05"},
		{name: "subtotal beyond paise is rounded first", subtotal: "99.995", wantCGST: "9.00", wantSGST: "9.00", wantIGST: "0.00", wantTotal: "118.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := Compute(d(tt.subtotal), tt.interState)
			require.NoError(t, err)

			assert.Equal(t, tt.wantCGST, b.CGST.StringFixed(2))
			assert.Equal(t, tt.wantSGST, b.SGST.StringFixed(2))
			assert.Equal(t, tt.wantIGST, b.IGST.StringFixed(2))
			assert.Equal(t, tt.wantTotal, b.Total.StringFixed(2))
		})
	}
}

func TestComputeTotalIsSubtotalPlusComponents(t *testing.T) {
	for cents := int64(0); cents <= 250000; cents += 137 {
		subtotal := decimal.New(cents, -2)
		for _, interState := range []bool{false, true} {
			b, err := Compute(subtotal, interState)
			require.NoError(t, err)

			assert.True(t, b.Total.Equal(b.Subtotal.Add(b.CGST).Add(b.SGST).Add(b.IGST)), "subtotal %s", subtotal)
			if interState {
				assert.True(t, b.CGST.IsZero() && b.SGST.IsZero(), "split taxes must be zero for inter-state, subtotal %s", subtotal)
			} else {
				assert.True(t, b.IGST.IsZero(), "IGST must be zero for intra-state, subtotal %s", subtotal)
				assert.True(t, b.CGST.Equal(b.SGST))
			}
		}
	}
}

func TestComputeRejectsNegativeSubtotal(t *testing.T) {
	_, err := Compute(d("-0.01"), false)
	assert.ErrorIs(t, err, apperror.ErrInvalidAmount)
}

func TestEstimateTax(t *testing.T) {
	gstAmount, total, err := EstimateTax(d("500.00"))
	require.NoError(t, err)
	assert.Equal(t, "90.00", gstAmount.StringFixed(2))
	assert.Equal(t, "590.00", total.StringFixed(2))

	_, _, err = EstimateTax(d("-1"))
	assert.ErrorIs(t, err, apperror.ErrInvalidAmount)
}

func TestParseAmount(t *testing.T) {
	got, err := ParseAmount("amount", " 1180.005 ")
	require.NoError(t, err)
	assert.Equal(t, "1180.01", got.StringFixed(2))

	got, err = ParseAmount("amount", "9999999999.99")
	require.NoError(t, err)
	assert.Equal(t, "9999999999.99", got.StringFixed(2))

	for _, raw := range []string{
		"", "NaN", "Inf", "-Infinity", "12,50", "abc",
		"1e99999999", "1e-99999999", "1E3",
		"10000000000", "12345678901234567890.00", "-12345678901234567890",
	} {
		_, err := ParseAmount("amount", raw)
		assert.ErrorIs(t, err, apperror.ErrInvalidAmount, "input %q", raw)
	}
}
