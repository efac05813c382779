package uom

import (
	"github.com/shopspring/decimal"
)

// scale is the decimal precision for base-unit quantities. Rounding is
// half-away-from-zero, which keeps conversions deterministic across the
// round trip ToBase(FromBase(x)).
const scale = 4

// ToBase converts a quantity from the given unit into base units:
// quantity * conversionFactor, rounded to 4 decimal places.
//
// A nil unit or a zero conversion factor degrades to identity conversion.
// That is a documented quirk, not a valid domain state: callers are expected
// to validate unit presence upstream, and the fallback exists so a malformed
// reference never corrupts a quantity by multiplying with zero.
func ToBase(quantity decimal.Decimal, unit *Unit) decimal.Decimal {
	if unit == nil || unit.ConversionFactor.IsZero() {
		return quantity
	}
	return quantity.Mul(unit.ConversionFactor).Round(scale)
}

// FromBase converts a base-unit quantity into the given unit:
// baseQuantity / conversionFactor, rounded to 4 decimal places.
// A nil unit or zero factor degrades to identity (guards division by zero).
func FromBase(baseQuantity decimal.Decimal, unit *Unit) decimal.Decimal {
	if unit == nil || unit.ConversionFactor.IsZero() {
		return baseQuantity
	}
	return baseQuantity.Div(unit.ConversionFactor).Round(scale)
}

// QuantityInUnit pairs a quantity with the unit it is expressed in
type QuantityInUnit struct {
	Quantity decimal.Decimal
	Unit     *Unit
}

// TotalBaseQuantity sums the base-unit equivalent of each entry.
// An empty sequence yields zero.
func TotalBaseQuantity(items []QuantityInUnit) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(ToBase(item.Quantity, item.Unit))
	}
	return total
}
