package core

import (
	"time"

	"carbonledger/pkg/domain"
)

type seedEntry struct {
	category domain.Category
	activity string
	amount   float64
	unit     domain.Unit
	month    time.Month
	day      int
	notes    string
}

var seedEntries = []seedEntry{
	{domain.CategoryTransport, "Car commute to office", 15, domain.UnitKilometre, time.September, 15, "Daily commute"},
	{domain.CategoryTransport, "Flight to Boston", 1500, domain.UnitKilometre, time.September, 10, "Conference trip"},
	{domain.CategoryEnergy, "Electricity usage", 95, domain.UnitKilowattHour, time.September, 20, "Monthly household electricity"},
	{domain.CategoryFood, "Beef dinner", 0.3, domain.UnitKilogram, time.September, 18, "Red meat high carbon"},

	{domain.CategoryTransport, "Car commute to office", 18, domain.UnitKilometre, time.October, 12, "Daily commute"},
	{domain.CategoryTransport, "Uber ride", 8, domain.UnitKilometre, time.October, 15, "Evening trip downtown"},
	{domain.CategoryEnergy, "Home heating", 150, domain.UnitKilowattHour, time.October, 10, "Natural gas heating"},
	{domain.CategoryEnergy, "Office power consumption", 40, domain.UnitKilowattHour, time.October, 22, "Work computer and lights"},
	{domain.CategoryFood, "Chicken lunch", 0.2, domain.UnitKilogram, time.October, 20, "White meat"},
	{domain.CategoryWaste, "Plastic packaging", 0.5, domain.UnitKilogram, time.October, 25, "Non-recyclable plastic"},

	{domain.CategoryTransport, "Flight to NYC", 2200, domain.UnitKilometre, time.November, 5, "Business trip"},
	{domain.CategoryTransport, "Bus commute", 20, domain.UnitKilometre, time.November, 18, "Public transport"},
	{domain.CategoryEnergy, "Home heating", 200, domain.UnitKilowattHour, time.November, 12, "Natural gas heating"},
	{domain.CategoryFood, "Vegetarian meal", 0.4, domain.UnitKilogram, time.November, 15, "Plant-based dinner"},
	{domain.CategoryWaste, "Paper waste", 0.8, domain.UnitKilogram, time.November, 20, "Office paper"},

	{domain.CategoryTransport, "Car commute to office", 12, domain.UnitKilometre, time.December, 10, "Daily commute"},
	{domain.CategoryTransport, "Flight to NYC", 2200, domain.UnitKilometre, time.December, 5, "Holiday trip"},
	{domain.CategoryEnergy, "Electricity usage", 120, domain.UnitKilowattHour, time.December, 11, "Monthly household electricity"},
	{domain.CategoryEnergy, "Home heating", 280, domain.UnitKilowattHour, time.December, 8, "Winter heating"},
	{domain.CategoryFood, "Dairy products", 0.15, domain.UnitKilogram, time.December, 15, "Cheese and milk"},
	{domain.CategoryWaste, "Electronic waste", 0.2, domain.UnitKilogram, time.December, 8, "Old laptop disposed"},
}

// SeedDrafts returns the demo dataset installed when nothing could be
// restored: Sept to Dec 2024 across every category, dated at UTC midnight.
func SeedDrafts() []domain.Draft {
	out := make([]domain.Draft, 0, len(seedEntries))
	for _, s := range seedEntries {
		out = append(out, domain.Draft{
			Category: s.category,
			Activity: s.activity,
			Amount:   s.amount,
			Unit:     s.unit,
			Date:     domain.FormatDate(time.Date(2024, s.month, s.day, 0, 0, 0, 0, time.UTC)),
			Notes:    s.notes,
		})
	}
	return out
}
