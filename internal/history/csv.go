// Package history ingests historical ride exports so the optimizer can run
// on observed usage instead of simulated usage.
package history

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/iwvelando/carshare-tariff/internal/simulator"
	"github.com/iwvelando/carshare-tariff/pkg/datetime"
)

// TimestampLayout is the format of the start timestamp column.
const TimestampLayout = "02-01-06 15:04"

// Column names of the ride export.
const (
	ColumnStatus        = "Status"
	ColumnHouseholdID   = "ID_hh"
	ColumnCooperative   = "Cooperative"
	ColumnMonth         = "Month"
	ColumnReservedHours = "Reserved hours"
	ColumnKilometers    = "Kilometers"
	ColumnDuration      = "Duration"
	ColumnStart         = "Start timestamp"
)

// RequiredColumns must be present in every export.
var RequiredColumns = []string{
	ColumnHouseholdID,
	ColumnCooperative,
	ColumnMonth,
	ColumnReservedHours,
	ColumnKilometers,
	ColumnStart,
}

// ErrMissingColumn is returned when an export lacks a required column.
var ErrMissingColumn = errors.New("missing required column")

// Record is one raw row of a ride export. Unparseable numbers and timestamps
// are nil.
type Record struct {
	Status        string
	HouseholdID   string
	Cooperative   string
	Month         string
	ReservedHours *float64
	Kilometers    *float64
	Duration      *float64
	Start         *time.Time
}

// Export is a parsed ride export. HasStatus records whether the export
// carries a status column; without one every row counts as finished.
type Export struct {
	Records   []Record
	HasStatus bool
}

// Source yields ride exports.
type Source interface {
	Load(ctx context.Context) (*Export, error)
}

// CSVSource reads an export from a file.
type CSVSource struct {
	Path string
}

// Load implements Source.
func (s CSVSource) Load(_ context.Context) (*Export, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("error opening ride export: %w", err)
	}
	defer f.Close()
	export, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("ride export %s: %w", s.Path, err)
	}
	return export, nil
}

// ReadCSV parses a ride export with a header row.
func ReadCSV(r io.Reader) (*Export, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: export is empty", ErrMissingColumn)
	}
	if err != nil {
		return nil, fmt.Errorf("error reading header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, name := range RequiredColumns {
		if _, ok := columns[name]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, name)
		}
	}

	field := func(row []string, name string) string {
		i, ok := columns[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	_, hasStatus := columns[ColumnStatus]
	export := &Export{HasStatus: hasStatus}
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading line %d: %w", line, err)
		}
		export.Records = append(export.Records, Record{
			Status:        field(row, ColumnStatus),
			HouseholdID:   field(row, ColumnHouseholdID),
			Cooperative:   field(row, ColumnCooperative),
			Month:         field(row, ColumnMonth),
			ReservedHours: parseNumber(field(row, ColumnReservedHours)),
			Kilometers:    parseNumber(field(row, ColumnKilometers)),
			Duration:      parseNumber(field(row, ColumnDuration)),
			Start:         parseTimestamp(field(row, ColumnStart)),
		})
	}
	return export, nil
}

// parseNumber returns nil for empty, unparseable and non-finite cells.
func parseNumber(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || !isFinite(v) {
		return nil
	}
	return &v
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func parseTimestamp(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(TimestampLayout, s)
	if err != nil {
		return nil
	}
	return &t
}

// IsFinished reports whether a status marks a completed ride.
func IsFinished(status string) bool {
	switch status {
	case "FINISHED", "Finished", "finished":
		return true
	}
	return false
}

// Rides cleans the export into rides. When the export has a status column
// only finished rows are kept. Rows without household, cooperative or month are dropped.
// Hours come from Duration when the export carries any duration, falling back
// to reserved hours per row. Weekend, start hour and off-peak derive from the
// start timestamp and are false or zero without one.
func (e *Export) Rides() []simulator.Ride {
	useDuration := false
	for _, r := range e.Records {
		if r.Duration != nil {
			useDuration = true
			break
		}
	}

	rides := make([]simulator.Ride, 0, len(e.Records))
	for _, r := range e.Records {
		if e.HasStatus && !IsFinished(r.Status) {
			continue
		}
		if r.HouseholdID == "" || r.Cooperative == "" || r.Month == "" {
			continue
		}

		hours := valueOr(r.ReservedHours, 0)
		if useDuration {
			hours = valueOr(r.Duration, hours)
		}

		ride := simulator.Ride{
			Cooperative: r.Cooperative,
			Month:       r.Month,
			HouseholdID: r.HouseholdID,
			Hours:       hours,
			Km:          valueOr(r.Kilometers, 0),
		}
		if r.Start != nil {
			ride.IsWeekend = datetime.IsWeekend(*r.Start)
			ride.StartHour = datetime.HourOfDay(*r.Start)
			ride.IsOffpeak = simulator.IsOffpeakHour(ride.StartHour)
		}
		rides = append(rides, ride)
	}

	indexMonths(rides)
	return rides
}

// indexMonths numbers the distinct month labels in sorted order.
func indexMonths(rides []simulator.Ride) {
	seen := make(map[string]bool)
	var months []string
	for _, r := range rides {
		if !seen[r.Month] {
			seen[r.Month] = true
			months = append(months, r.Month)
		}
	}
	sort.Strings(months)
	index := make(map[string]int, len(months))
	for i, m := range months {
		index[m] = i
	}
	for i := range rides {
		rides[i].MonthIndex = index[rides[i].Month]
	}
}

// valueOr treats a non-finite value like a missing one; database columns can
// hold NaN too.
func valueOr(v *float64, fallback float64) float64 {
	if v == nil || !isFinite(*v) {
		return fallback
	}
	return *v
}
