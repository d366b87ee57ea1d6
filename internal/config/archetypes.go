package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"reflect"
	"strings"

	"github.com/iwvelando/carshare-tariff/internal/distribution"
	"github.com/iwvelando/carshare-tariff/internal/simulator"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cast"
)

// Archetype describes one household cluster. Keys follow the archetype
// documents: start_time_params is a list of [weight, mean, stddev] triples and
// the ride rates are [alpha, beta, min, max] tuples.
type Archetype struct {
	Name          string                   `yaml:"name" json:"name" mapstructure:"name"`
	Count         int                      `yaml:"count" json:"count" mapstructure:"count"`
	StartTime     []distribution.Component `yaml:"start_time_params" json:"start_time_params" mapstructure:"start_time_params"`
	Family        string                   `yaml:"family,omitempty" json:"family,omitempty" mapstructure:"family"`
	DurationMu    float64                  `yaml:"duration_mu" json:"duration_mu" mapstructure:"duration_mu"`
	DurationSigma float64                  `yaml:"duration_sigma" json:"duration_sigma" mapstructure:"duration_sigma"`
	DistanceMu    float64                  `yaml:"distance_mu" json:"distance_mu" mapstructure:"distance_mu"`
	DistanceSigma float64                  `yaml:"distance_sigma" json:"distance_sigma" mapstructure:"distance_sigma"`
	DurationRate  float64                  `yaml:"duration_rate,omitempty" json:"duration_rate,omitempty" mapstructure:"duration_rate"`
	DistanceRate  float64                  `yaml:"distance_rate,omitempty" json:"distance_rate,omitempty" mapstructure:"distance_rate"`
	Correlation   float64                  `yaml:"r_duration_distance" json:"r_duration_distance" mapstructure:"r_duration_distance"`
	WeekdayRides  distribution.BetaRate    `yaml:"rides_wd_beta" json:"rides_wd_beta" mapstructure:"rides_wd_beta"`
	WeekendRides  distribution.BetaRate    `yaml:"rides_we_beta" json:"rides_we_beta" mapstructure:"rides_we_beta"`
}

// DefaultArchetypes returns the commuter, weekend tripper and occasional
// user clusters in the 3/3/12 proportion of a typical cooperative.
func DefaultArchetypes() []Archetype {
	return []Archetype{
		{
			Name:  "commuter",
			Count: 3,
			StartTime: []distribution.Component{
				{Weight: 0.45, Mean: 8, StdDev: 1},
				{Weight: 0.1, Mean: 13, StdDev: 2.5},
				{Weight: 0.45, Mean: 17.5, StdDev: 1.2},
			},
			Family:        distribution.FamilyLogNormal,
			DurationMu:    0.9,
			DurationSigma: 0.5,
			DistanceMu:    3.2,
			DistanceSigma: 0.6,
			Correlation:   0.7,
			WeekdayRides:  distribution.BetaRate{Alpha: 2, Beta: 5, Min: 0, Max: 0.6},
			WeekendRides:  distribution.BetaRate{Alpha: 2, Beta: 6, Min: 0, Max: 0.5},
		},
		{
			Name:  "weekend_tripper",
			Count: 3,
			StartTime: []distribution.Component{
				{Weight: 0.2, Mean: 10, StdDev: 1.5},
				{Weight: 0.5, Mean: 13, StdDev: 2.5},
				{Weight: 0.3, Mean: 19, StdDev: 2},
			},
			Family:        distribution.FamilyLogNormal,
			DurationMu:    1.39,
			DurationSigma: 0.6,
			DistanceMu:    4.09,
			DistanceSigma: 0.7,
			Correlation:   0.8,
			WeekdayRides:  distribution.BetaRate{Alpha: 1.5, Beta: 8, Min: 0, Max: 0.2},
			WeekendRides:  distribution.BetaRate{Alpha: 3, Beta: 3, Min: 0.1, Max: 0.8},
		},
		{
			Name:  "occasional",
			Count: 12,
			StartTime: []distribution.Component{
				{Weight: 0.3, Mean: 11, StdDev: 2},
				{Weight: 0.4, Mean: 15, StdDev: 2.5},
				{Weight: 0.3, Mean: 19.5, StdDev: 1.5},
			},
			Family:        distribution.FamilyLogNormal,
			DurationMu:    0.4,
			DurationSigma: 0.5,
			DistanceMu:    2.3,
			DistanceSigma: 0.7,
			Correlation:   0.5,
			WeekdayRides:  distribution.BetaRate{Alpha: 1.2, Beta: 10, Min: 0, Max: 0.3},
			WeekendRides:  distribution.BetaRate{Alpha: 1.2, Beta: 8, Min: 0, Max: 0.4},
		},
	}
}

// Normalize canonicalizes the family name.
func (a *Archetype) Normalize() {
	a.Name = strings.TrimSpace(a.Name)
	a.Family = distribution.CanonicalFamily(a.Family)
}

// Validate returns an error when the archetype cannot drive a generator.
func (a Archetype) Validate() error {
	if a.Count < 0 {
		return fmt.Errorf("household count must not be negative, got %d", a.Count)
	}
	if len(a.StartTime) == 0 {
		return fmt.Errorf("start_time_params needs at least one component")
	}
	for i, c := range a.StartTime {
		if c.StdDev <= 0 {
			return fmt.Errorf("start_time_params[%d] standard deviation must be positive, got %.4f", i, c.StdDev)
		}
		if c.Weight < 0 {
			return fmt.Errorf("start_time_params[%d] weight must not be negative, got %.4f", i, c.Weight)
		}
	}
	if _, _, err := a.Marginals(); err != nil {
		return err
	}
	if a.Correlation < 0 || a.Correlation > 1 {
		return fmt.Errorf("r_duration_distance must lie in [0, 1], got %.4f", a.Correlation)
	}
	if err := a.WeekdayRides.Validate(); err != nil {
		return fmt.Errorf("rides_wd_beta: %w", err)
	}
	if err := a.WeekendRides.Validate(); err != nil {
		return fmt.Errorf("rides_we_beta: %w", err)
	}
	return nil
}

// Marginals returns the duration and distance marginals of the archetype.
func (a Archetype) Marginals() (duration, distance distribution.Marginal, err error) {
	family := distribution.CanonicalFamily(a.Family)
	duration, err = distribution.NewMarginal(family, a.DurationMu, a.DurationSigma, a.DurationRate)
	if err != nil {
		return nil, nil, fmt.Errorf("duration: %w", err)
	}
	distance, err = distribution.NewMarginal(family, a.DistanceMu, a.DistanceSigma, a.DistanceRate)
	if err != nil {
		return nil, nil, fmt.Errorf("distance: %w", err)
	}
	return duration, distance, nil
}

// Profile converts the archetype into a generator profile.
func (a Archetype) Profile() (simulator.Profile, error) {
	duration, distance, err := a.Marginals()
	if err != nil {
		return simulator.Profile{}, fmt.Errorf("archetype %s: %w", a.Name, err)
	}
	return simulator.Profile{
		Name:         a.Name,
		StartTime:    append([]distribution.Component(nil), a.StartTime...),
		Duration:     duration,
		Distance:     distance,
		Correlation:  a.Correlation,
		WeekdayRides: a.WeekdayRides,
		WeekendRides: a.WeekendRides,
	}, nil
}

// LoadArchetypes reads a JSON archetype document: a list of archetypes in the
// tuple notation.
func LoadArchetypes(path string) ([]Archetype, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading archetypes file, %w", err)
	}
	var document interface{}
	if err := json.Unmarshal(raw, &document); err != nil {
		return nil, fmt.Errorf("archetypes file %s is not valid JSON: %w", path, err)
	}

	var archetypes []Archetype
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mixtureComponentHook(),
			betaRateHook(),
		),
		WeaklyTypedInput: true,
		Result:           &archetypes,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(document); err != nil {
		return nil, fmt.Errorf("unable to decode archetypes from %s, %w", path, err)
	}
	for i := range archetypes {
		if archetypes[i].Name == "" {
			archetypes[i].Name = fmt.Sprintf("archetype_%d", i+1)
		}
		archetypes[i].Normalize()
	}
	return archetypes, nil
}

var (
	componentType = reflect.TypeOf(distribution.Component{})
	betaRateType  = reflect.TypeOf(distribution.BetaRate{})
)

// mixtureComponentHook decodes a [weight, mean, stddev] triple.
func mixtureComponentHook() mapstructure.DecodeHookFuncType {
	return func(from, to reflect.Type, data interface{}) (interface{}, error) {
		if to != componentType {
			return data, nil
		}
		values, ok, err := numericTuple(from, data, 3)
		if !ok || err != nil {
			return data, err
		}
		return distribution.Component{Weight: values[0], Mean: values[1], StdDev: values[2]}, nil
	}
}

// betaRateHook decodes an [alpha, beta, min, max] tuple.
func betaRateHook() mapstructure.DecodeHookFuncType {
	return func(from, to reflect.Type, data interface{}) (interface{}, error) {
		if to != betaRateType {
			return data, nil
		}
		values, ok, err := numericTuple(from, data, 4)
		if !ok || err != nil {
			return data, err
		}
		return distribution.BetaRate{Alpha: values[0], Beta: values[1], Min: values[2], Max: values[3]}, nil
	}
}

// numericTuple converts data to n floats when it is a slice. ok is false for
// other shapes so the map notation still decodes normally.
func numericTuple(from reflect.Type, data interface{}, n int) ([]float64, bool, error) {
	if from.Kind() != reflect.Slice && from.Kind() != reflect.Array {
		return nil, false, nil
	}
	items := reflect.ValueOf(data)
	if items.Len() != n {
		return nil, true, fmt.Errorf("expected %d values, got %d", n, items.Len())
	}
	values := make([]float64, n)
	for i := 0; i < n; i++ {
		v, err := cast.ToFloat64E(items.Index(i).Interface())
		if err != nil {
			return nil, true, fmt.Errorf("value %d: %w", i, err)
		}
		if math.IsNaN(v) {
			return nil, true, fmt.Errorf("value %d is not a number", i)
		}
		values[i] = v
	}
	return values, true, nil
}
