package simulator

import (
	"github.com/iwvelando/carshare-tariff/pkg/constants"
)

// Ride is one reservation in a ride ledger.
type Ride struct {
	Cooperative string  `json:"cooperative"`
	Month       string  `json:"month"`
	MonthIndex  int     `json:"monthIndex"`
	HouseholdID string  `json:"householdId"`
	StartHour   float64 `json:"startHour"`
	Hours       float64 `json:"hours"`
	Km          float64 `json:"km"`
	IsWeekend   bool    `json:"isWeekend"`
	IsOffpeak   bool    `json:"isOffpeak"`
}

// IsOffpeakHour reports whether a start hour falls in the daytime or evening
// off-peak window.
func IsOffpeakHour(hour float64) bool {
	daytime := hour >= constants.OffpeakDayStart && hour <= constants.OffpeakDayEnd
	return daytime || hour >= constants.OffpeakEveningStart
}
