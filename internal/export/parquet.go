package export

import (
	"fmt"

	"github.com/iwvelando/carshare-tariff/internal/simulator"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/writer"
)

// RideRow is the Parquet schema of a ride ledger.
type RideRow struct {
	Cooperative string  `parquet:"name=cooperative,type=BYTE_ARRAY,convertedtype=UTF8"`
	Month       string  `parquet:"name=month,type=BYTE_ARRAY,convertedtype=UTF8"`
	MonthIndex  int64   `parquet:"name=monthIndex,type=INT64"`
	HouseholdID string  `parquet:"name=householdId,type=BYTE_ARRAY,convertedtype=UTF8"`
	StartHour   float64 `parquet:"name=startHour,type=DOUBLE"`
	Hours       float64 `parquet:"name=hours,type=DOUBLE"`
	Km          float64 `parquet:"name=km,type=DOUBLE"`
	IsWeekend   bool    `parquet:"name=isWeekend,type=BOOLEAN"`
	IsOffpeak   bool    `parquet:"name=isOffpeak,type=BOOLEAN"`
}

// NewRideRow converts a ride.
func NewRideRow(r simulator.Ride) RideRow {
	return RideRow{
		Cooperative: r.Cooperative,
		Month:       r.Month,
		MonthIndex:  int64(r.MonthIndex),
		HouseholdID: r.HouseholdID,
		StartHour:   r.StartHour,
		Hours:       r.Hours,
		Km:          r.Km,
		IsWeekend:   r.IsWeekend,
		IsOffpeak:   r.IsOffpeak,
	}
}

// WriteRideLedger writes rides to a Parquet file at path.
func WriteRideLedger(path string, rides []simulator.Ride) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("failed to create local file writer: %w", err)
	}
	defer fw.Close()

	pw, err := writer.NewParquetWriter(fw, new(RideRow), 4)
	if err != nil {
		return fmt.Errorf("failed to create ParquetWriter: %w", err)
	}
	for i, r := range rides {
		if err := pw.Write(NewRideRow(r)); err != nil {
			return fmt.Errorf("failed to write ride %d: %w", i, err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("failed to finish parquet file: %w", err)
	}
	return nil
}
