// Package output provides utilities for formatting and displaying tariff
// optimization results.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/iwvelando/carshare-tariff/internal/engine"
	"github.com/iwvelando/carshare-tariff/pkg/constants"
	"github.com/iwvelando/carshare-tariff/pkg/mathutil"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Render writes reports in the named format.
func Render(w io.Writer, format string, reports []engine.Report) error {
	switch format {
	case constants.OutputFormatPretty:
		PrettyFormat(w, reports)
		return nil
	case constants.OutputFormatCSV:
		return CsvFormat(w, reports)
	case constants.OutputFormatJSON:
		return JSONFormat(w, reports)
	}
	return fmt.Errorf("unsupported output format %q", format)
}

// PrettyFormat outputs a human-readable rather than machine-readable report.
func PrettyFormat(w io.Writer, reports []engine.Report) {
	p := message.NewPrinter(language.English)
	for i, report := range reports {
		s := report.Summary
		t := s.Tariff
		_, _ = fmt.Fprintf(w, "--- Results for variant %s (%s) ---\n", s.Variant, s.Status)
		_, _ = p.Fprintf(w, "Hour rate: €%.2f | Km rate: €%.2f | Fixed fee: €%.2f\n", t.HourRate, t.KmRate, s.FixedMonthlyFee)
		_, _ = p.Fprintf(w, "Heavy users: %.1f%% off above %.1f h | Off-peak: %.1f%% off | Weekend: %.1f%% off\n",
			t.HeavyDiscountPct*100, t.HeavyThresholdHours, t.OffpeakDiscountPct*100, t.WeekendDiscountPct*100)
		_, _ = p.Fprintf(w, "Objective: %.4f (heavy %.4f, proportionality %.4f, overall %.4f)\n",
			s.Objective, s.Components.Heavy, s.Components.Proportionality, s.Components.Overall)
		_, _ = p.Fprintf(w, "Lease coverage: %.1f%% of %d coop-months | Worst gap: €%.2f\n",
			s.FractionFeasible*100, s.CoopMonths, s.WorstGap)
		if s.Message != "" {
			_, _ = fmt.Fprintf(w, "Solver: %s (%d iterations)\n", s.Message, s.Iterations)
		}
		for _, note := range s.Notes {
			_, _ = fmt.Fprintf(w, "Note: %s\n", note)
		}

		if len(report.Insight.Households) > 0 {
			_, _ = fmt.Fprintf(w, "Household | Samples | Mean cost          | Mean hours   | Mean km\n")
			_, _ = fmt.Fprintf(w, "_________ | _______ | __________________ | ____________ | _______\n")
			for _, h := range report.Insight.Households {
				_, _ = p.Fprintf(w, "%s | %d | €%.2f ± %.2f | %.1f ± %.1f | %.1f ± %.1f\n",
					h.HouseholdID, h.Samples, h.CostMean, h.CostCIHalf, h.HoursMean, h.HoursCIHalf, h.KmMean, h.KmCIHalf)
			}
		}
		if len(reports) > 1 && i < len(reports)-1 {
			_, _ = fmt.Fprintf(w, "\n")
		}
	}
}

// CsvHeader lists the columns written by CsvFormat.
var CsvHeader = []string{
	"variant", "status", "converged", "iterations",
	"hour_rate", "km_rate", "heavy_threshold_hours",
	"heavy_discount_pct", "offpeak_discount_pct", "weekend_discount_pct",
	"objective", "fraction_feasible", "worst_gap", "notes",
}

// CsvFormat outputs one row per variant in comma-separated value format.
func CsvFormat(w io.Writer, reports []engine.Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CsvHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, report := range reports {
		s := report.Summary
		t := s.Tariff
		row := []string{
			s.Variant,
			s.Status,
			strconv.FormatBool(s.Converged),
			strconv.Itoa(s.Iterations),
			formatFloat(t.HourRate),
			formatFloat(t.KmRate),
			formatFloat(t.HeavyThresholdHours),
			formatFloat(t.HeavyDiscountPct),
			formatFloat(t.OffpeakDiscountPct),
			formatFloat(t.WeekendDiscountPct),
			formatFloat(s.Objective),
			formatFloat(s.FractionFeasible),
			strconv.FormatFloat(mathutil.Round(s.WorstGap), 'f', 2, 64),
			strings.Join(s.Notes, "; "),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row for %s: %w", s.Variant, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// JSONFormat outputs v as indented JSON.
func JSONFormat(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON output: %w", err)
	}
	return nil
}

// PrettyFeasibility outputs the lease coverage at maximum prices.
func PrettyFeasibility(w io.Writer, report engine.FeasibilityReport) {
	p := message.NewPrinter(language.English)
	_, _ = p.Fprintf(w, "--- Feasibility at maximum prices (hour €%.2f, km €%.2f) ---\n",
		report.Tariff.HourRate, report.Tariff.KmRate)
	_, _ = p.Fprintf(w, "Lease coverage: %.1f%% of %d coop-months | Worst gap: €%.2f\n",
		report.FractionFeasible*100, report.CoopMonths, report.WorstGap)
	if len(report.Worst) == 0 {
		return
	}
	_, _ = fmt.Fprintf(w, "Cooperative | Month | Revenue | Required | Gap\n")
	_, _ = fmt.Fprintf(w, "___________ | _____ | _______ | ________ | ___\n")
	for _, g := range report.Worst {
		_, _ = p.Fprintf(w, "%s | %s | €%.2f | €%.2f | €%.2f\n", g.Cooperative, g.Month, g.Revenue, g.Required, g.Gap)
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
