// Package export writes ride ledgers and optimization results to external
// systems: Parquet files, S3 and Kafka.
package export

import (
	"context"

	"github.com/iwvelando/carshare-tariff/pkg/optimization"
)

// Sink receives finished optimization summaries.
type Sink interface {
	Publish(ctx context.Context, summary optimization.Summary) error
	Close() error
}
