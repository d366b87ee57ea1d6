// Package config defines the application configuration and the archetype
// documents that drive ride simulation, and loads both through viper.
package config

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/iwvelando/carshare-tariff/internal/objective"
	"github.com/iwvelando/carshare-tariff/internal/tariff"
	"github.com/iwvelando/carshare-tariff/pkg/constants"
	"github.com/iwvelando/carshare-tariff/pkg/datetime"
	"github.com/iwvelando/carshare-tariff/pkg/validation"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. CARSHARE_SIMULATION_SEED.
const EnvPrefix = "CARSHARE"

// Configuration holds all configuration for carshare-tariff.
type Configuration struct {
	Logging    LoggingConfig    `yaml:"logging,omitempty" mapstructure:"logging"`
	Output     OutputConfig     `yaml:"output,omitempty" mapstructure:"output"`
	Simulation SimulationConfig `yaml:"simulation,omitempty" mapstructure:"simulation"`
	Tariff     TariffConfig     `yaml:"tariff,omitempty" mapstructure:"tariff"`
	History    HistoryConfig    `yaml:"history,omitempty" mapstructure:"history"`
	Export     ExportConfig     `yaml:"export,omitempty" mapstructure:"export"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty" mapstructure:"level"`           // debug, info, warn, error
	Format     string `yaml:"format,omitempty" mapstructure:"format"`         // json, console
	OutputFile string `yaml:"outputFile,omitempty" mapstructure:"outputFile"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `yaml:"format,omitempty" mapstructure:"format"` // pretty, csv, json
}

// SimulationConfig describes the synthetic cooperatives.
type SimulationConfig struct {
	Seed           uint64      `yaml:"seed" mapstructure:"seed"`
	Months         int         `yaml:"months" mapstructure:"months"`
	Replications   int         `yaml:"replications" mapstructure:"replications"`
	Weekdays       int         `yaml:"weekdays" mapstructure:"weekdays"`
	WeekendDays    int         `yaml:"weekendDays" mapstructure:"weekendDays"`
	Cooperative    string      `yaml:"cooperative" mapstructure:"cooperative"`
	StartMonth     string      `yaml:"startMonth" mapstructure:"startMonth"`
	ArchetypesFile string      `yaml:"archetypesFile,omitempty" mapstructure:"archetypesFile"`
	Archetypes     []Archetype `yaml:"archetypes,omitempty" mapstructure:"archetypes"`
}

// TariffConfig holds the cost model, lease obligations and solver settings.
type TariffConfig struct {
	FixedMonthlyFee     float64           `yaml:"fixedMonthlyFee" mapstructure:"fixedMonthlyFee"`
	LeasePerCarPerMonth float64           `yaml:"leasePerCarPerMonth" mapstructure:"leasePerCarPerMonth"`
	DefaultLeasedCars   int               `yaml:"defaultLeasedCars" mapstructure:"defaultLeasedCars"`
	LeasedCars          []LeasedCars      `yaml:"leasedCars" mapstructure:"leasedCars"`
	MaxIterations       int               `yaml:"maxIterations" mapstructure:"maxIterations"`
	Variant             string            `yaml:"variant" mapstructure:"variant"`
	Weights             objective.Weights `yaml:"weights" mapstructure:"weights"`
	Bounds              tariff.Bounds     `yaml:"bounds" mapstructure:"bounds"`
	Seed                tariff.Parameters `yaml:"seed" mapstructure:"seed"`
	Neutral             tariff.Parameters `yaml:"neutral" mapstructure:"neutral"`
}

// LeasedCars is one lease table entry. Cooperative names keep their case,
// which is why the table is a list rather than a map.
type LeasedCars struct {
	Cooperative string `yaml:"cooperative" mapstructure:"cooperative"`
	Cars        int    `yaml:"cars" mapstructure:"cars"`
}

// HistoryConfig selects a historical ride source instead of simulation.
type HistoryConfig struct {
	CSVPath  string         `yaml:"csvPath,omitempty" mapstructure:"csvPath"`
	Postgres PostgresConfig `yaml:"postgres,omitempty" mapstructure:"postgres"`
}

// PostgresConfig locates the ride table.
type PostgresConfig struct {
	DSN   string `yaml:"dsn,omitempty" mapstructure:"dsn"`
	Table string `yaml:"table,omitempty" mapstructure:"table"`
}

// Enabled reports whether a DSN is configured.
func (p PostgresConfig) Enabled() bool {
	return strings.TrimSpace(p.DSN) != ""
}

// ExportConfig configures where ledgers and results are written.
type ExportConfig struct {
	ParquetPath string      `yaml:"parquetPath,omitempty" mapstructure:"parquetPath"`
	S3          S3Config    `yaml:"s3,omitempty" mapstructure:"s3"`
	Kafka       KafkaConfig `yaml:"kafka,omitempty" mapstructure:"kafka"`
}

// S3Config names the upload target of the ride ledger.
type S3Config struct {
	Bucket string `yaml:"bucket,omitempty" mapstructure:"bucket"`
	Key    string `yaml:"key,omitempty" mapstructure:"key"`
	Region string `yaml:"region,omitempty" mapstructure:"region"`
}

// Enabled reports whether a bucket is configured.
func (s S3Config) Enabled() bool {
	return strings.TrimSpace(s.Bucket) != ""
}

// KafkaConfig names the brokers and topic optimization results go to.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers,omitempty" mapstructure:"brokers"`
	Topic   string   `yaml:"topic,omitempty" mapstructure:"topic"`
}

// Enabled reports whether any broker is configured.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// Default returns the stock configuration: one simulated cooperative of the
// default archetypes priced with the stock lease table.
func Default() Configuration {
	lease := objective.DefaultLeaseTable()
	leased := make([]LeasedCars, 0, len(lease.Cars))
	for coop, cars := range lease.Cars {
		leased = append(leased, LeasedCars{Cooperative: coop, Cars: cars})
	}
	sortLeasedCars(leased)

	return Configuration{
		Logging: LoggingConfig{Level: "info", Format: "console"},
		Output:  OutputConfig{Format: constants.OutputFormatPretty},
		Simulation: SimulationConfig{
			Seed:         constants.DefaultSeed,
			Months:       1,
			Replications: 1,
			Weekdays:     constants.DefaultWeekdays,
			WeekendDays:  constants.DefaultWeekendDays,
			Cooperative:  constants.DefaultCooperative,
			StartMonth:   constants.DefaultStartMonth,
			Archetypes:   DefaultArchetypes(),
		},
		Tariff: TariffConfig{
			FixedMonthlyFee:     constants.DefaultFixedMonthlyFee,
			LeasePerCarPerMonth: constants.DefaultLeasePerCarPerMonth,
			DefaultLeasedCars:   constants.DefaultLeasedCars,
			LeasedCars:          leased,
			MaxIterations:       constants.DefaultMaxIterations,
			Variant:             tariff.Base.Name,
			Weights:             objective.DefaultWeights(),
			Bounds:              tariff.DefaultBounds(),
			Seed:                tariff.DefaultSeed(),
			Neutral:             tariff.DefaultNeutral(),
		},
		Export: ExportConfig{
			Kafka: KafkaConfig{Topic: constants.DefaultResultsTopic},
		},
	}
}

// LoadConfiguration reads the YAML or JSON configuration at configPath on top
// of Default. An empty path yields the defaults, still subject to environment
// overrides. Archetypes referenced by simulation.archetypesFile are resolved
// relative to the configuration file.
func LoadConfiguration(configPath string) (*Configuration, error) {
	return LoadConfigurationWithFlags(configPath, nil)
}

// FlagBindings maps configuration keys to the command-line flags that
// override them.
var FlagBindings = map[string]string{
	"output.format":           "output-format",
	"simulation.seed":         "seed",
	"simulation.months":       "months",
	"simulation.replications": "replications",
	"tariff.variant":          "variant",
	"history.csvPath":         "history-csv",
	"export.parquetPath":      "parquet",
}

// LoadConfigurationWithFlags is LoadConfiguration with the flags named in
// FlagBindings taking precedence over the file and the environment once they
// are set on the command line. Flags missing from flags are ignored.
func LoadConfigurationWithFlags(configPath string, flags *pflag.FlagSet) (*Configuration, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if flags != nil {
		for key, name := range FlagBindings {
			flag := flags.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("failed to bind flag --%s: %w", name, err)
			}
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		// config.yaml.example parses as YAML
		if ext := filepath.Ext(strings.TrimSuffix(configPath, ".example")); ext != "" {
			v.SetConfigType(strings.TrimPrefix(ext, "."))
		}
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file, %w", err)
		}
	}

	configuration := Default()
	if v.IsSet("simulation.archetypes") {
		configuration.Simulation.Archetypes = nil
	}
	if v.IsSet("tariff.leasedCars") {
		configuration.Tariff.LeasedCars = nil
	}
	if err := v.Unmarshal(&configuration, viper.DecoderConfigOption(decoderOptions)); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %w", err)
	}

	if path := strings.TrimSpace(configuration.Simulation.ArchetypesFile); path != "" {
		if !filepath.IsAbs(path) && configPath != "" {
			path = filepath.Join(filepath.Dir(configPath), path)
		}
		archetypes, err := LoadArchetypes(path)
		if err != nil {
			return nil, err
		}
		configuration.Simulation.Archetypes = archetypes
	}

	configuration.Normalize()
	return &configuration, nil
}

// setDefaults registers the scalar defaults so environment variables can
// override keys absent from the file.
func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.outputFile", "")
	v.SetDefault("output.format", d.Output.Format)
	v.SetDefault("simulation.seed", d.Simulation.Seed)
	v.SetDefault("simulation.months", d.Simulation.Months)
	v.SetDefault("simulation.replications", d.Simulation.Replications)
	v.SetDefault("simulation.weekdays", d.Simulation.Weekdays)
	v.SetDefault("simulation.weekendDays", d.Simulation.WeekendDays)
	v.SetDefault("simulation.cooperative", d.Simulation.Cooperative)
	v.SetDefault("simulation.startMonth", d.Simulation.StartMonth)
	v.SetDefault("simulation.archetypesFile", "")
	v.SetDefault("tariff.fixedMonthlyFee", d.Tariff.FixedMonthlyFee)
	v.SetDefault("tariff.leasePerCarPerMonth", d.Tariff.LeasePerCarPerMonth)
	v.SetDefault("tariff.defaultLeasedCars", d.Tariff.DefaultLeasedCars)
	v.SetDefault("tariff.maxIterations", d.Tariff.MaxIterations)
	v.SetDefault("tariff.variant", d.Tariff.Variant)
	v.SetDefault("history.csvPath", "")
	v.SetDefault("history.postgres.dsn", "")
	v.SetDefault("history.postgres.table", "")
	v.SetDefault("export.parquetPath", "")
	v.SetDefault("export.s3.bucket", "")
	v.SetDefault("export.s3.key", "")
	v.SetDefault("export.s3.region", "")
	v.SetDefault("export.kafka.topic", d.Export.Kafka.Topic)
}

// decoderOptions adds the archetype tuple hooks to viper's default hooks.
func decoderOptions(c *mapstructure.DecoderConfig) {
	c.DecodeHook = mapstructure.ComposeDecodeHookFunc(
		c.DecodeHook,
		mixtureComponentHook(),
		betaRateHook(),
	)
}

// Normalize applies defaults for unset values and canonical spellings.
func (c *Configuration) Normalize() {
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Output.Format = strings.ToLower(strings.TrimSpace(c.Output.Format))
	if c.Output.Format == "" {
		c.Output.Format = constants.OutputFormatPretty
	}

	s := &c.Simulation
	if s.Replications <= 0 {
		s.Replications = 1
	}
	if s.Weekdays == 0 && s.WeekendDays == 0 {
		s.Weekdays = constants.DefaultWeekdays
		s.WeekendDays = constants.DefaultWeekendDays
	}
	s.Cooperative = strings.TrimSpace(s.Cooperative)
	if s.Cooperative == "" {
		s.Cooperative = constants.DefaultCooperative
	}
	s.StartMonth = strings.TrimSpace(s.StartMonth)
	if s.StartMonth == "" {
		s.StartMonth = constants.DefaultStartMonth
	}
	if len(s.Archetypes) == 0 {
		s.Archetypes = DefaultArchetypes()
	}
	for i := range s.Archetypes {
		s.Archetypes[i].Normalize()
	}

	t := &c.Tariff
	if t.MaxIterations <= 0 {
		t.MaxIterations = constants.DefaultMaxIterations
	}
	if strings.TrimSpace(t.Variant) == "" {
		t.Variant = tariff.Base.Name
	}
	if v, err := tariff.ParseVariant(t.Variant); err == nil {
		t.Variant = v.Name
	}
	if t.DefaultLeasedCars <= 0 {
		t.DefaultLeasedCars = constants.DefaultLeasedCars
	}

	if c.Export.Kafka.Enabled() && strings.TrimSpace(c.Export.Kafka.Topic) == "" {
		c.Export.Kafka.Topic = constants.DefaultResultsTopic
	}
}

// Validate returns an error when the configuration cannot be used.
func (c *Configuration) Validate() error {
	if err := validation.ValidateOutputFormat(c.Output.Format); err != nil {
		return err
	}

	s := c.Simulation
	if s.Months < 1 {
		return fmt.Errorf("simulation months must be at least 1, got %d", s.Months)
	}
	if s.Weekdays < 0 || s.WeekendDays < 0 {
		return fmt.Errorf("simulation day counts must not be negative, got %d weekdays and %d weekend days",
			s.Weekdays, s.WeekendDays)
	}
	if _, err := datetime.MonthLabels(s.StartMonth, 1); err != nil {
		return fmt.Errorf("simulation start month: %w", err)
	}
	for i, a := range s.Archetypes {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("archetype %d (%s): %w", i, a.Name, err)
		}
	}

	t := c.Tariff
	if _, err := tariff.ParseVariant(t.Variant); err != nil {
		return err
	}
	if err := t.Bounds.Validate(); err != nil {
		return fmt.Errorf("tariff bounds: %w", err)
	}
	if err := t.Bounds.CheckParameters(t.Neutral); err != nil {
		return fmt.Errorf("tariff neutral: %w", err)
	}
	if t.FixedMonthlyFee < 0 || t.LeasePerCarPerMonth < 0 {
		return fmt.Errorf("tariff fee and lease must not be negative")
	}
	for _, lc := range t.LeasedCars {
		if strings.TrimSpace(lc.Cooperative) == "" {
			return fmt.Errorf("leased cars entry is missing a cooperative name")
		}
		if lc.Cars < 0 {
			return fmt.Errorf("cooperative %q cannot lease %d cars", lc.Cooperative, lc.Cars)
		}
	}
	if err := t.Weights.Validate(); err != nil {
		return fmt.Errorf("invalid objective weights: %w", err)
	}

	if c.History.Postgres.Enabled() && strings.TrimSpace(c.History.Postgres.Table) == "" {
		return fmt.Errorf("history postgres requires a table name")
	}
	if c.Export.S3.Enabled() && strings.TrimSpace(c.Export.ParquetPath) == "" {
		return fmt.Errorf("export s3 requires export.parquetPath to name the ledger to upload")
	}
	return nil
}

// ValidateConfiguration performs general validation of the configuration and returns warnings
func (c *Configuration) ValidateConfiguration() []string {
	var warnings []string

	for _, a := range c.Simulation.Archetypes {
		weights := make([]float64, len(a.StartTime))
		for i, comp := range a.StartTime {
			weights[i] = comp.Weight
		}
		if w := validation.MixtureWeightWarning(a.Name, weights); w != "" {
			warnings = append(warnings, w)
		}
		if a.Count == 0 {
			warnings = append(warnings, fmt.Sprintf("Archetype '%s' has no households and contributes no rides", a.Name))
		}
	}

	t := c.Tariff
	if v, err := tariff.ParseVariant(t.Variant); err == nil {
		for _, d := range []tariff.Dimension{tariff.HeavyDiscountPct, tariff.OffpeakDiscountPct, tariff.WeekendDiscountPct} {
			if containsDimension(v.Dimensions(), d) {
				continue
			}
			if w := validation.PinnedDiscountWarning(v.Name, d.String(), t.Neutral.Get(d)); w != "" {
				warnings = append(warnings, w)
			}
		}
		for _, d := range v.Dimensions() {
			iv := t.Bounds.Get(d)
			if w := validation.SeedBoundsWarning(d.String(), t.Seed.Get(d), iv.Min, iv.Max); w != "" {
				warnings = append(warnings, w)
			}
		}
	}

	seen := make(map[string]bool)
	for _, lc := range t.LeasedCars {
		if seen[lc.Cooperative] {
			warnings = append(warnings, fmt.Sprintf("Cooperative '%s' appears more than once in leasedCars; the last entry wins", lc.Cooperative))
		}
		seen[lc.Cooperative] = true
	}

	if t.Weights == (objective.Weights{}) {
		warnings = append(warnings, "All objective weights are zero; every feasible tariff scores the same")
	}
	if c.History.CSVPath != "" && c.History.Postgres.Enabled() {
		warnings = append(warnings, "Both history.csvPath and history.postgres are set; the CSV file is used")
	}

	return warnings
}

func containsDimension(dims []tariff.Dimension, d tariff.Dimension) bool {
	for _, x := range dims {
		if x == d {
			return true
		}
	}
	return false
}

// LeaseTable builds the lease table of the tariff section.
func (c *Configuration) LeaseTable() objective.LeaseTable {
	cars := make(map[string]int, len(c.Tariff.LeasedCars))
	for _, lc := range c.Tariff.LeasedCars {
		cars[lc.Cooperative] = lc.Cars
	}
	return objective.LeaseTable{
		PerCarPerMonth: c.Tariff.LeasePerCarPerMonth,
		DefaultCars:    c.Tariff.DefaultLeasedCars,
		Cars:           cars,
	}
}

// Variant parses the configured tariff variant.
func (c *Configuration) Variant() (tariff.Variant, error) {
	return tariff.ParseVariant(c.Tariff.Variant)
}

func sortLeasedCars(l []LeasedCars) {
	sort.Slice(l, func(i, j int) bool { return l[i].Cooperative < l[j].Cooperative })
}
