// Package tariff defines tariff parameters, their bounds, the variants that
// select which dimensions are optimized, and the household cost model.
package tariff

import "fmt"

// Parameters is a complete tariff.
type Parameters struct {
	HourRate            float64 `json:"hourRate" mapstructure:"hourRate"`
	KmRate              float64 `json:"kmRate" mapstructure:"kmRate"`
	HeavyThresholdHours float64 `json:"heavyThresholdHours" mapstructure:"heavyThresholdHours"`
	HeavyDiscountPct    float64 `json:"heavyDiscountPct" mapstructure:"heavyDiscountPct"`
	OffpeakDiscountPct  float64 `json:"offpeakDiscountPct" mapstructure:"offpeakDiscountPct"`
	WeekendDiscountPct  float64 `json:"weekendDiscountPct" mapstructure:"weekendDiscountPct"`
}

// Dimension identifies one scalar of Parameters.
type Dimension int

// Dimensions in canonical vector order.
const (
	HourRate Dimension = iota
	KmRate
	HeavyThresholdHours
	HeavyDiscountPct
	OffpeakDiscountPct
	WeekendDiscountPct
)

var dimensionNames = [...]string{
	HourRate:            "hour_rate",
	KmRate:              "km_rate",
	HeavyThresholdHours: "heavy_threshold_hours",
	HeavyDiscountPct:    "heavy_discount_pct",
	OffpeakDiscountPct:  "offpeak_discount_pct",
	WeekendDiscountPct:  "weekend_discount_pct",
}

// AllDimensions returns every dimension in canonical order.
func AllDimensions() []Dimension {
	return []Dimension{HourRate, KmRate, HeavyThresholdHours, HeavyDiscountPct, OffpeakDiscountPct, WeekendDiscountPct}
}

func (d Dimension) String() string {
	if d < 0 || int(d) >= len(dimensionNames) {
		return fmt.Sprintf("dimension(%d)", int(d))
	}
	return dimensionNames[d]
}

// MarshalText renders the dimension by name.
func (d Dimension) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Get returns the value of dimension d.
func (p Parameters) Get(d Dimension) float64 {
	switch d {
	case HourRate:
		return p.HourRate
	case KmRate:
		return p.KmRate
	case HeavyThresholdHours:
		return p.HeavyThresholdHours
	case HeavyDiscountPct:
		return p.HeavyDiscountPct
	case OffpeakDiscountPct:
		return p.OffpeakDiscountPct
	case WeekendDiscountPct:
		return p.WeekendDiscountPct
	}
	return 0
}

// With returns a copy of p with dimension d set to value.
func (p Parameters) With(d Dimension, value float64) Parameters {
	switch d {
	case HourRate:
		p.HourRate = value
	case KmRate:
		p.KmRate = value
	case HeavyThresholdHours:
		p.HeavyThresholdHours = value
	case HeavyDiscountPct:
		p.HeavyDiscountPct = value
	case OffpeakDiscountPct:
		p.OffpeakDiscountPct = value
	case WeekendDiscountPct:
		p.WeekendDiscountPct = value
	}
	return p
}

// DefaultSeed is the starting point of the search.
func DefaultSeed() Parameters {
	return Parameters{
		HourRate:            3.0,
		KmRate:              0.30,
		HeavyThresholdHours: 10.0,
		HeavyDiscountPct:    0.10,
		OffpeakDiscountPct:  0.10,
		WeekendDiscountPct:  0.10,
	}
}

// DefaultNeutral fills dimensions a variant does not optimize. The heavy
// threshold stays pinned near the low end of its range.
func DefaultNeutral() Parameters {
	return Parameters{
		HourRate:            3.0,
		KmRate:              0.30,
		HeavyThresholdHours: 1.0,
	}
}
