package history

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PostgresSource reads a ride export stored in a table with the columns
// status, id_hh, cooperative, month, reserved_hours, kilometers, duration and
// start_timestamp.
type PostgresSource struct {
	logger *zap.Logger
	pool   *pgxpool.Pool
	table  string
}

// NewPostgresSource connects to dsn. table may be schema-qualified.
func NewPostgresSource(ctx context.Context, logger *zap.Logger, dsn, table string) (*PostgresSource, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(table) == "" {
		return nil, fmt.Errorf("postgres ride source requires a table name")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to postgres: %w", err)
	}
	return &PostgresSource{logger: logger, pool: pool, table: table}, nil
}

// Close releases the connection pool.
func (s *PostgresSource) Close() {
	s.pool.Close()
}

// selectQuery builds the ride query with a sanitized table identifier.
func selectQuery(table string) string {
	ident := pgx.Identifier(strings.Split(strings.TrimSpace(table), "."))
	return fmt.Sprintf(`
        SELECT
            status,
            id_hh::text,
            cooperative,
            month::text,
            reserved_hours,
            kilometers,
            duration,
            start_timestamp
        FROM %s
    `, ident.Sanitize())
}

// Load implements Source. NULL statuses count as unfinished.
func (s *PostgresSource) Load(ctx context.Context) (*Export, error) {
	start := time.Now()
	rows, err := s.pool.Query(ctx, selectQuery(s.table))
	if err != nil {
		return nil, fmt.Errorf("ride query failed: %w", err)
	}
	defer rows.Close()

	export := &Export{HasStatus: true}
	for rows.Next() {
		var (
			status, household, coop, month *string
			record                          Record
		)
		err := rows.Scan(
			&status,
			&household,
			&coop,
			&month,
			&record.ReservedHours,
			&record.Kilometers,
			&record.Duration,
			&record.Start,
		)
		if err != nil {
			return nil, fmt.Errorf("unable to scan ride row: %w", err)
		}
		record.Status = deref(status)
		record.HouseholdID = deref(household)
		record.Cooperative = deref(coop)
		record.Month = deref(month)
		export.Records = append(export.Records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ride query failed: %w", err)
	}

	s.logger.Info("loaded rides from postgres",
		zap.String("op", "history.PostgresSource.Load"),
		zap.String("table", s.table),
		zap.Int("rows", len(export.Records)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return export, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
