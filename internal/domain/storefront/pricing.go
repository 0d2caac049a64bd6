package storefront

import (
	"github.com/shopspring/decimal"

	"github.com/storesync/backend/internal/domain/shared"
)

// PriceUnit is a currency denomination unit used by either side of the sync.
// The ERP and the storefront may disagree on the unit (e.g. a subdivision
// factor of 10 between them); conversion is a simple multiplicative table
// applied consistently to both regular and sale price before transmission.
type PriceUnit string

const (
	// PriceUnitMinor is the currency subdivision unit (factor 1)
	PriceUnitMinor PriceUnit = "MINOR"
	// PriceUnitMajor is the main currency unit (1 major = 10 minor)
	PriceUnitMajor PriceUnit = "MAJOR"
)

// unitFactors maps a price unit to its value in minor units
var unitFactors = map[PriceUnit]decimal.Decimal{
	PriceUnitMinor: decimal.NewFromInt(1),
	PriceUnitMajor: decimal.NewFromInt(10),
}

// IsValid returns true if the price unit is known
func (u PriceUnit) IsValid() bool {
	_, ok := unitFactors[u]
	return ok
}

// hundred is reused for percentage math
var hundred = decimal.NewFromInt(100)

// PriceCalculator converts ERP prices into the shape the storefront expects.
// This is a domain service: it is stateless and operates on values from
// multiple aggregates (item pricing plus tenant settings).
type PriceCalculator struct{}

// NewPriceCalculator creates a new price calculator
func NewPriceCalculator() *PriceCalculator {
	return &PriceCalculator{}
}

// FinalPrice applies a discount percentage and then an increase percentage to
// the base price, rounded to 2 decimals. FinalPrice(1000, 10, 5) = 945.00.
func (c *PriceCalculator) FinalPrice(base, discountPercent, increasePercent decimal.Decimal) decimal.Decimal {
	price := base
	if discountPercent.IsPositive() {
		price = price.Sub(price.Mul(discountPercent).Div(hundred))
	}
	if increasePercent.IsPositive() {
		price = price.Add(price.Mul(increasePercent).Div(hundred))
	}
	return price.Round(2)
}

// SalePrice derives the sale price for an item. Precedence:
// an explicit discounted price wins when positive and strictly below base;
// otherwise a discount percentage reduces the base when positive;
// otherwise there is no sale price and ok is false — the caller must clear
// any stale discount on update.
func (c *PriceCalculator) SalePrice(base, discounted, discountPercent decimal.Decimal) (decimal.Decimal, bool) {
	if discounted.IsPositive() && discounted.LessThan(base) {
		return discounted.Round(2), true
	}
	if discountPercent.IsPositive() {
		return base.Sub(base.Mul(discountPercent).Div(hundred)).Round(2), true
	}
	return decimal.Zero, false
}

// ConvertUnit converts an amount between price units using the multiplicative
// factor table. Unknown units are rejected rather than silently passed
// through, since a wrong denomination corrupts every price in the batch.
func (c *PriceCalculator) ConvertUnit(amount decimal.Decimal, from, to PriceUnit) (decimal.Decimal, error) {
	if from == to {
		return amount, nil
	}
	fromFactor, ok := unitFactors[from]
	if !ok {
		return decimal.Zero, shared.NewDomainError("INVALID_PRICE_UNIT", "Unknown source price unit: "+string(from))
	}
	toFactor, ok := unitFactors[to]
	if !ok {
		return decimal.Zero, shared.NewDomainError("INVALID_PRICE_UNIT", "Unknown target price unit: "+string(to))
	}
	return amount.Mul(fromFactor).Div(toFactor), nil
}
