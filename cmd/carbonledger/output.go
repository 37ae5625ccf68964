package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"carbonledger/internal/analytics"
	"carbonledger/pkg/domain"
)

type printer struct {
	w    io.Writer
	json bool
}

func newPrinter(w io.Writer, format string) *printer {
	return &printer{w: w, json: format == "json"}
}

func (p *printer) encode(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (p *printer) table(fn func(tw *tabwriter.Writer)) error {
	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	fn(tw)
	return tw.Flush()
}

func (p *printer) summary(s analytics.Summary, cats []analytics.CategoryTotal) error {
	if p.json {
		return p.encode(struct {
			analytics.Summary
			Categories []analytics.CategoryTotal `json:"categories"`
		}{s, cats})
	}
	return p.table(func(tw *tabwriter.Writer) {
		_, _ = fmt.Fprintf(tw, "Records:\t%d\n", s.Count)
		_, _ = fmt.Fprintf(tw, "Total CO2:\t%.3f kg\n", s.TotalKg)
		_, _ = fmt.Fprintf(tw, "Monthly average:\t%.3f kg\n", s.MonthlyAverage)
		if s.Highest != nil {
			_, _ = fmt.Fprintf(tw, "Highest source:\t%s (%s, %.3f kg)\n", s.Highest.Activity, s.Highest.Category, s.Highest.CO2Kg)
		} else {
			_, _ = fmt.Fprintf(tw, "Highest source:\tnone\n")
		}
		_, _ = fmt.Fprintf(tw, "Trend:\t%s\n", s.Trend)
		for _, c := range cats {
			_, _ = fmt.Fprintf(tw, "  %s:\t%.3f kg (%d)\n", c.Category, c.TotalKg, c.Count)
		}
	})
}

func (p *printer) records(rs []domain.Record) error {
	if p.json {
		if rs == nil {
			rs = []domain.Record{}
		}
		return p.encode(rs)
	}
	return p.table(func(tw *tabwriter.Writer) {
		_, _ = fmt.Fprintln(tw, "ID\tDATE\tCATEGORY\tACTIVITY\tAMOUNT\tCO2 KG")
		for _, r := range rs {
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%g %s\t%.3f\n", r.ID, shortDate(r.Date), r.Category, r.Activity, r.Amount, r.Unit, r.CO2Kg)
		}
	})
}

func (p *printer) record(r domain.Record) error {
	if p.json {
		return p.encode(r)
	}
	return p.records([]domain.Record{r})
}

func (p *printer) monthly(series []analytics.MonthTotal) error {
	if p.json {
		if series == nil {
			series = []analytics.MonthTotal{}
		}
		return p.encode(series)
	}
	return p.table(func(tw *tabwriter.Writer) {
		_, _ = fmt.Fprintln(tw, "MONTH\tCO2 KG")
		for _, m := range series {
			_, _ = fmt.Fprintf(tw, "%s\t%.3f\n", m.Label, m.TotalKg)
		}
	})
}

func (p *printer) preview(c domain.Category, u domain.Unit, amount, kg float64) error {
	if p.json {
		return p.encode(map[string]any{"category": c, "unit": u, "amount": amount, "co2Kg": kg, "factor": domain.Factor(c, u)})
	}
	_, err := fmt.Fprintf(p.w, "%g %s (%s) = %.3f kg CO2\n", amount, u, c, kg)
	return err
}

func (p *printer) message(msg string) error {
	if p.json {
		return p.encode(map[string]string{"status": msg})
	}
	_, err := fmt.Fprintln(p.w, msg)
	return err
}

func shortDate(date string) string {
	if t, ok := domain.ParseDate(date); ok {
		return t.Format("2006-01-02")
	}
	return date
}
