package tariff

import (
	"fmt"
	"sort"
	"strings"
)

// Discount is a bit set of optional discount dimensions.
type Discount uint8

const (
	DiscountHeavy Discount = 1 << iota
	DiscountOffpeak
	DiscountWeekend
)

// Variant is a named set of discounts the optimizer may adjust.
type Variant struct {
	Name      string
	Discounts Discount
}

// Known variants.
var (
	Base                = Variant{Name: "BASE"}
	Heavy               = Variant{Name: "HEAVY", Discounts: DiscountHeavy}
	Weekend             = Variant{Name: "WEEKEND", Discounts: DiscountWeekend}
	Offpeak             = Variant{Name: "OFFPEAK", Discounts: DiscountOffpeak}
	HeavyWeekend        = Variant{Name: "HEAVY_WEEKEND", Discounts: DiscountHeavy | DiscountWeekend}
	HeavyOffpeak        = Variant{Name: "HEAVY_OFFPEAK", Discounts: DiscountHeavy | DiscountOffpeak}
	WeekendOffpeak      = Variant{Name: "WEEKEND_OFFPEAK", Discounts: DiscountWeekend | DiscountOffpeak}
	HeavyWeekendOffpeak = Variant{Name: "HEAVY_WEEKEND_OFFPEAK", Discounts: DiscountHeavy | DiscountWeekend | DiscountOffpeak}
)

// AllVariantName selects every variant.
const AllVariantName = "ALL"

// Variants returns every known variant, smallest first.
func Variants() []Variant {
	return []Variant{Base, Heavy, Weekend, Offpeak, HeavyWeekend, HeavyOffpeak, WeekendOffpeak, HeavyWeekendOffpeak}
}

// ParseVariant resolves a variant name case-insensitively; dashes and spaces
// are accepted in place of underscores and an empty name means BASE.
func ParseVariant(name string) (Variant, error) {
	normalized := strings.ToUpper(strings.TrimSpace(name))
	normalized = strings.NewReplacer("-", "_", " ", "_").Replace(normalized)
	if normalized == "" {
		return Base, nil
	}
	for _, v := range Variants() {
		if v.Name == normalized {
			return v, nil
		}
	}
	names := make([]string, 0, len(Variants()))
	for _, v := range Variants() {
		names = append(names, v.Name)
	}
	sort.Strings(names)
	return Variant{}, fmt.Errorf("unknown variant %q, expected one of %s", name, strings.Join(names, ", "))
}

// Has reports whether d is active.
func (v Variant) Has(d Discount) bool {
	return v.Discounts&d != 0
}

// Dimensions returns the optimized dimensions in canonical order.
func (v Variant) Dimensions() []Dimension {
	dims := []Dimension{HourRate, KmRate}
	if v.Has(DiscountHeavy) {
		dims = append(dims, HeavyThresholdHours, HeavyDiscountPct)
	}
	if v.Has(DiscountOffpeak) {
		dims = append(dims, OffpeakDiscountPct)
	}
	if v.Has(DiscountWeekend) {
		dims = append(dims, WeekendDiscountPct)
	}
	return dims
}

func (v Variant) String() string {
	return v.Name
}

// MarshalText renders the variant by name.
func (v Variant) MarshalText() ([]byte, error) {
	return []byte(v.Name), nil
}
