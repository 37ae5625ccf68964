package main

import (
	"context"
	"errors"
	"fmt"

	"carbonledger/internal/analytics"
	"carbonledger/pkg/domain"

	"github.com/spf13/cobra"
)

func newSummaryCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show total, monthly average, highest source and trend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, opts, func(_ context.Context, s *session) error {
				records := s.engine.Records()
				return s.out.summary(analytics.Summarize(records), analytics.ByCategory(records))
			})
		},
	}
}

func newListCommand(opts *rootOptions) *cobra.Command {
	var (
		filter analytics.Filter
		sortBy string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List records, newest first by default",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch analytics.SortField(sortBy) {
			case analytics.SortByDate, analytics.SortByCO2:
				filter.SortField = analytics.SortField(sortBy)
			default:
				return fmt.Errorf("invalid sort %q: must be date or co2", sortBy)
			}
			if filter.Category != "" && filter.Category != analytics.AllCategories && !domain.Category(filter.Category).Valid() {
				return fmt.Errorf("category %q: must be All or one of %v", filter.Category, domain.Categories())
			}
			return withSession(cmd, opts, func(_ context.Context, s *session) error {
				return s.out.records(analytics.Query(s.engine.Records(), filter))
			})
		},
	}
	cmd.Flags().StringVar(&filter.Category, "category", analytics.AllCategories, "only this category")
	cmd.Flags().StringVar(&filter.Search, "search", "", "case-insensitive activity substring")
	cmd.Flags().StringVar(&sortBy, "sort", string(analytics.SortByDate), "date|co2")
	cmd.Flags().BoolVar(&filter.Ascending, "asc", false, "ascending order")
	return cmd
}

func newMonthlyCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "monthly",
		Short: "Show CO2 totals per month in chronological order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, opts, func(_ context.Context, s *session) error {
				return s.out.monthly(analytics.MonthlyTotals(s.engine.Records()))
			})
		},
	}
}

func newAddCommand(opts *rootOptions) *cobra.Command {
	var f draftFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a new activity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := f.draft()
			if err != nil {
				return err
			}
			return withSession(cmd, opts, func(ctx context.Context, s *session) error {
				return s.out.record(s.engine.Add(ctx, d))
			})
		},
	}
	f.bind(cmd)
	return cmd
}

func newUpdateCommand(opts *rootOptions) *cobra.Command {
	var f draftFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Replace every field of an existing record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := f.draft()
			if err != nil {
				return err
			}
			return withSession(cmd, opts, func(ctx context.Context, s *session) error {
				updated, ok := s.engine.Update(ctx, args[0], d)
				if !ok {
					return fmt.Errorf("no record with id %s", args[0])
				}
				return s.out.record(updated)
			})
		},
	}
	f.bind(cmd)
	return cmd
}

func newRemoveCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Delete one record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, func(ctx context.Context, s *session) error {
				if !s.engine.Remove(ctx, args[0]) {
					return fmt.Errorf("no record with id %s", args[0])
				}
				return s.out.message("removed " + args[0])
			})
		},
	}
}

func newClearCommand(opts *rootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("clear deletes every record; pass --yes to confirm")
			}
			return withSession(cmd, opts, func(ctx context.Context, s *session) error {
				n := len(s.engine.Records())
				s.engine.Clear(ctx)
				return s.out.message(fmt.Sprintf("cleared %d records", n))
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion")
	return cmd
}

func newPreviewCommand(opts *rootOptions) *cobra.Command {
	var (
		category, unit string
		amount         float64
	)
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Show the CO2 value a draft would get without storing it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, u := domain.Category(category), domain.Unit(unit)
			return newPrinter(cmd.OutOrStdout(), opts.format).preview(c, u, amount, domain.CO2Kg(c, u, amount))
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "Transport|Energy|Food|Waste")
	cmd.Flags().StringVar(&unit, "unit", "", "km|kWh|kg")
	cmd.Flags().Float64Var(&amount, "amount", 0, "magnitude in --unit")
	return cmd
}
