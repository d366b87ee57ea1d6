// Package datetime provides month label utilities.
package datetime

import (
	"fmt"
	"time"

	"github.com/iwvelando/carshare-tariff/pkg/constants"
)

const (
	// DateTimeLayout is the format of month labels.
	DateTimeLayout = constants.DateTimeLayout
)

// OffsetDate returns the string-formatted date offset by the given number of
// months relative to the given date.
func OffsetDate(date, layout string, months int) (string, error) {
	t, err := time.Parse(layout, date)
	if err != nil {
		return date, err
	}
	return t.AddDate(0, months, 0).Format(layout), nil
}

// MonthLabels returns count consecutive month labels beginning at start.
func MonthLabels(start string, count int) ([]string, error) {
	if count < 0 {
		return nil, fmt.Errorf("month count %d must not be negative", count)
	}
	labels := make([]string, 0, count)
	for i := 0; i < count; i++ {
		label, err := OffsetDate(start, DateTimeLayout, i)
		if err != nil {
			return nil, fmt.Errorf("invalid start month %q: %w", start, err)
		}
		labels = append(labels, label)
	}
	return labels, nil
}

// IsWeekend reports whether t falls on a Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	day := t.Weekday()
	return day == time.Saturday || day == time.Sunday
}

// HourOfDay returns the fractional hour of t in [0, 24).
func HourOfDay(t time.Time) float64 {
	return float64(t.Hour()) + float64(t.Minute())/60 + float64(t.Second())/3600
}
