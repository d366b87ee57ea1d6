// Package constants provides shared constants for the carshare-tariff application.
package constants

// DateTimeLayout is the format of month labels in configuration files, ride
// ledgers and output.
const DateTimeLayout = "2006-01"

// Simulation constants
const (
	// DayStartHour is where the modeled day begins; the time-of-day domain is
	// [DayStartHour, DayStartHour+24).
	DayStartHour = 3.0

	// HoursPerDay is the width of the time-of-day domain.
	HoursPerDay = 24.0

	// CDFSteps is the number of discretization steps of the time-of-day CDF.
	CDFSteps = 1000

	// DefaultWeekdays is the nominal number of weekdays in a simulated month.
	DefaultWeekdays = 22

	// DefaultWeekendDays is the nominal number of weekend days in a simulated month.
	DefaultWeekendDays = 8

	// DefaultSeed seeds ride generators when no seed is configured.
	DefaultSeed = 42

	// DefaultStartMonth labels the first simulated month.
	DefaultStartMonth = "2026-01"

	// DefaultCooperative labels simulated rides.
	DefaultCooperative = "Simulated"

	// OffpeakDayStart and OffpeakDayEnd bound the daytime off-peak window (inclusive).
	OffpeakDayStart = 9.0
	OffpeakDayEnd   = 16.0

	// OffpeakEveningStart opens the evening off-peak window.
	OffpeakEveningStart = 18.5

	// UniformClip keeps inverse-CDF draws away from 0 and 1.
	UniformClip = 1e-9
)

// Tariff constants
const (
	// HourToKmEquivalent converts reserved hours into km-equivalent usage units.
	HourToKmEquivalent = 10.0

	// Epsilon floors near-zero denominators.
	Epsilon = 1e-9

	// HeavyUserQuantile is the share of households counted as heavy users.
	HeavyUserQuantile = 0.2

	// FeasibilityTolerance is the slack allowed when classifying a gap as feasible.
	FeasibilityTolerance = 1e-6

	// DefaultFixedMonthlyFee is charged to every household each month.
	DefaultFixedMonthlyFee = 25.0

	// DefaultLeasePerCarPerMonth is the monthly lease payment per car.
	DefaultLeasePerCarPerMonth = 660.0

	// DefaultLeasedCars is used for cooperatives missing from the lease table.
	DefaultLeasedCars = 1

	// DefaultMaxIterations bounds the tariff solver.
	DefaultMaxIterations = 1000

	// ConfidenceZ is the z-score of the reported 95% confidence half-width.
	ConfidenceZ = 1.96
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"

	// OutputFormatJSON is the JSON output format
	OutputFormatJSON = "json"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// ExampleConfigFile is the example configuration file name
	ExampleConfigFile = "config.yaml.example"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address
	DefaultServerAddress = ":7999"

	// DefaultResultsTopic is the Kafka topic optimization results are published to
	DefaultResultsTopic = "tariff_results"
)
