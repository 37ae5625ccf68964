package domain

import "math"

// factors holds the kg CO2e emitted per unit for each legitimate pair.
var factors = map[Category]map[Unit]float64{
	CategoryTransport: {UnitKilometre: 0.15},
	CategoryEnergy:    {UnitKilowattHour: 0.4},
	CategoryFood:      {UnitKilogram: 2.0},
	CategoryWaste:     {UnitKilogram: 1.5},
}

// Factor returns the conversion factor for the pair, or 0 when the pair has
// no entry in the table.
func Factor(category Category, unit Unit) float64 {
	return factors[category][unit]
}

// CO2Kg converts amount into kilograms of CO2e rounded to three decimals.
// The result is always finite; non-finite input contributes 0.
func CO2Kg(category Category, unit Unit, amount float64) float64 {
	if !finite(amount) {
		return 0
	}
	v := Round3(amount * Factor(category, unit))
	if !finite(v) {
		return 0
	}
	return v
}

// Round3 rounds v to three decimal places, halves away from zero.
func Round3(v float64) float64 {
	r := math.Round(v*1000) / 1000
	if r == 0 {
		// normalise -0
		return 0
	}
	return r
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
