package tariff

import (
	"fmt"

	"github.com/iwvelando/carshare-tariff/pkg/mathutil"
)

// Interval is a closed range.
type Interval struct {
	Min float64 `json:"min" mapstructure:"min"`
	Max float64 `json:"max" mapstructure:"max"`
}

// Contains reports whether v lies in the interval.
func (i Interval) Contains(v float64) bool {
	return v >= i.Min && v <= i.Max
}

// Clamp limits v to the interval.
func (i Interval) Clamp(v float64) float64 {
	return mathutil.Clamp(v, i.Min, i.Max)
}

// Width returns Max - Min.
func (i Interval) Width() float64 {
	return i.Max - i.Min
}

// Bounds holds one interval per dimension.
type Bounds struct {
	HourRate            Interval `json:"hourRate" mapstructure:"hourRate"`
	KmRate              Interval `json:"kmRate" mapstructure:"kmRate"`
	HeavyThresholdHours Interval `json:"heavyThresholdHours" mapstructure:"heavyThresholdHours"`
	HeavyDiscountPct    Interval `json:"heavyDiscountPct" mapstructure:"heavyDiscountPct"`
	OffpeakDiscountPct  Interval `json:"offpeakDiscountPct" mapstructure:"offpeakDiscountPct"`
	WeekendDiscountPct  Interval `json:"weekendDiscountPct" mapstructure:"weekendDiscountPct"`
}

// DefaultBounds returns the stock search box.
func DefaultBounds() Bounds {
	return Bounds{
		HourRate:            Interval{Min: 1.5, Max: 6.0},
		KmRate:              Interval{Min: 0.10, Max: 0.60},
		HeavyThresholdHours: Interval{Min: 0, Max: 40},
		HeavyDiscountPct:    Interval{Min: 0, Max: 0.40},
		OffpeakDiscountPct:  Interval{Min: 0, Max: 0.50},
		WeekendDiscountPct:  Interval{Min: 0, Max: 0.50},
	}
}

// Get returns the interval of dimension d.
func (b Bounds) Get(d Dimension) Interval {
	switch d {
	case HourRate:
		return b.HourRate
	case KmRate:
		return b.KmRate
	case HeavyThresholdHours:
		return b.HeavyThresholdHours
	case HeavyDiscountPct:
		return b.HeavyDiscountPct
	case OffpeakDiscountPct:
		return b.OffpeakDiscountPct
	case WeekendDiscountPct:
		return b.WeekendDiscountPct
	}
	return Interval{}
}

// Validate requires Min <= Max everywhere and discounts within [0, 1].
func (b Bounds) Validate() error {
	for _, d := range AllDimensions() {
		iv := b.Get(d)
		if iv.Min > iv.Max {
			return fmt.Errorf("bounds for %s: minimum %.4f exceeds maximum %.4f", d, iv.Min, iv.Max)
		}
	}
	for _, d := range []Dimension{HeavyDiscountPct, OffpeakDiscountPct, WeekendDiscountPct} {
		iv := b.Get(d)
		if iv.Min < 0 || iv.Max > 1 {
			return fmt.Errorf("bounds for %s must lie within [0, 1], got [%.4f, %.4f]", d, iv.Min, iv.Max)
		}
	}
	for _, d := range []Dimension{HourRate, KmRate, HeavyThresholdHours} {
		if b.Get(d).Min < 0 {
			return fmt.Errorf("bounds for %s must not be negative", d)
		}
	}
	return nil
}

// Clamp limits every dimension of p to its interval.
func (b Bounds) Clamp(p Parameters) Parameters {
	for _, d := range AllDimensions() {
		p = p.With(d, b.Get(d).Clamp(p.Get(d)))
	}
	return p
}

// Contains reports whether every dimension of p lies in bounds.
func (b Bounds) Contains(p Parameters) bool {
	for _, d := range AllDimensions() {
		if !b.Get(d).Contains(p.Get(d)) {
			return false
		}
	}
	return true
}

// CheckParameters returns an error naming the first dimension of p that lies
// outside its interval.
func (b Bounds) CheckParameters(p Parameters) error {
	for _, d := range AllDimensions() {
		iv := b.Get(d)
		if v := p.Get(d); !iv.Contains(v) {
			return fmt.Errorf("%s value %.4f lies outside [%.4f, %.4f]", d, v, iv.Min, iv.Max)
		}
	}
	return nil
}

// MaxPrices is the most expensive tariff the bounds admit: both rates at
// their upper bound and every discount at zero.
func (b Bounds) MaxPrices() Parameters {
	return Parameters{
		HourRate:            b.HourRate.Max,
		KmRate:              b.KmRate.Max,
		HeavyThresholdHours: b.HeavyThresholdHours.Min,
	}
}
