package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"carbonledger/pkg/domain"

	"github.com/spf13/cobra"
)

const maxActivityLen = 120

var nowFunc = time.Now

type draftFlags struct {
	category string
	activity string
	amount   float64
	unit     string
	date     string
	notes    string
}

func (f *draftFlags) bind(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.category, "category", "", "Transport|Energy|Food|Waste")
	flags.StringVar(&f.activity, "activity", "", "short description of the activity")
	flags.Float64Var(&f.amount, "amount", 0, "magnitude in --unit, must be positive")
	flags.StringVar(&f.unit, "unit", "", "km|kWh|kg")
	flags.StringVar(&f.date, "date", "", "YYYY-MM-DD or RFC 3339 timestamp (default today)")
	flags.StringVar(&f.notes, "notes", "", "optional free text")
	for _, name := range []string{"category", "activity", "amount", "unit"} {
		_ = cmd.MarkFlagRequired(name)
	}
}

// draft validates the flags the way the entry form does: every field except
// notes is required, the amount is positive and the date is not in the future.
func (f *draftFlags) draft() (domain.Draft, error) {
	var errs []error
	category := domain.Category(f.category)
	if !category.Valid() {
		errs = append(errs, fmt.Errorf("category %q: must be one of %v", f.category, domain.Categories()))
	}
	activity := strings.TrimSpace(f.activity)
	switch {
	case activity == "":
		errs = append(errs, errors.New("activity is required"))
	case len([]rune(activity)) > maxActivityLen:
		errs = append(errs, fmt.Errorf("activity exceeds %d characters", maxActivityLen))
	}
	if !(f.amount > 0) {
		errs = append(errs, errors.New("amount must be positive"))
	}
	unit := domain.Unit(f.unit)
	if !unit.Valid() {
		errs = append(errs, fmt.Errorf("unit %q: must be one of %v", f.unit, domain.Units()))
	}
	date, err := resolveDate(f.date, nowFunc())
	if err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return domain.Draft{}, errors.Join(errs...)
	}
	return domain.Draft{
		Category: category,
		Activity: activity,
		Amount:   f.amount,
		Unit:     unit,
		Date:     date,
		Notes:    strings.TrimSpace(f.notes),
	}, nil
}

// resolveDate normalises a calendar date to UTC midnight in RFC 3339 and
// rejects dates after today.
func resolveDate(raw string, now time.Time) (string, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if strings.TrimSpace(raw) == "" {
		return domain.FormatDate(today), nil
	}
	t, ok := domain.ParseDate(strings.TrimSpace(raw))
	if !ok {
		return "", fmt.Errorf("date %q: want YYYY-MM-DD or RFC 3339", raw)
	}
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	if day.After(today) {
		return "", fmt.Errorf("date %s is in the future", day.Format("2006-01-02"))
	}
	return domain.FormatDate(day), nil
}
