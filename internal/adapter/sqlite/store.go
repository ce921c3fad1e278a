// Package sqlite persists run results to a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/couchcryptid/climate-data-etl/internal/domain"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Store writes reports into the annual_stats, monthly_stats, trends and
// correlations tables. It implements pipeline.Sink.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (or creates) the database at path and applies the schema.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	logger.Debug("sqlite store ready", "path", path)
	return &Store{db: db, logger: logger}, nil
}

// Name identifies the sink in logs and metrics.
func (s *Store) Name() string { return "sqlite" }

// Save replaces every row of report.Region with the report's content in one
// transaction. NaN values are stored as NULL.
func (s *Store) Save(ctx context.Context, report domain.Report) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback() //nolint:errcheck // the original error wins
		}
	}()

	for _, table := range []string{"annual_stats", "monthly_stats", "trends", "correlations"} {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE region = ?", report.Region); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	if err = insertTable(ctx, tx, report.Region, report.Annual, false); err != nil {
		return err
	}
	if err = insertTable(ctx, tx, report.Region, report.Monthly, true); err != nil {
		return err
	}

	generated := report.GeneratedAt.UTC().Format(time.RFC3339)
	for _, t := range report.Trends {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO trends (region, variable, slope, intercept, r_value, r_squared, p_value, std_err, n, significant, generated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			report.Region, t.Variable, nullable(t.Slope), nullable(t.Intercept), nullable(t.RValue),
			nullable(t.RSquared), nullable(t.PValue), nullable(t.StdErr), t.N, t.Significant, generated,
		)
		if err != nil {
			return fmt.Errorf("insert trend %s: %w", t.Variable, err)
		}
	}

	for _, c := range report.Correlations {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO correlations (region, left_var, right_var, coefficient, n, defined)
			VALUES (?, ?, ?, ?, ?, ?)`,
			report.Region, c.Left, c.Right, nullable(c.Coefficient), c.N, c.Defined,
		)
		if err != nil {
			return fmt.Errorf("insert correlation %s/%s: %w", c.Left, c.Right, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.logger.Info("results stored",
		"region", report.Region,
		"annual_rows", report.Annual.Len(),
		"monthly_rows", report.Monthly.Len(),
		"trends", len(report.Trends),
	)
	return nil
}

func insertTable(ctx context.Context, tx *sql.Tx, region string, t domain.Table, monthly bool) error {
	for _, row := range t.Rows {
		for i, v := range row.Values {
			var err error
			if monthly {
				_, err = tx.ExecContext(ctx,
					"INSERT INTO monthly_stats (region, year, month, variable, value) VALUES (?, ?, ?, ?, ?)",
					region, row.Period.Year, int(row.Period.Month), t.Columns[i], nullable(v))
			} else {
				_, err = tx.ExecContext(ctx,
					"INSERT INTO annual_stats (region, year, variable, value) VALUES (?, ?, ?, ?)",
					region, row.Period.Year, t.Columns[i], nullable(v))
			}
			if err != nil {
				return fmt.Errorf("insert %s %s %s: %w", t.Name, row.Period, t.Columns[i], err)
			}
		}
	}
	return nil
}

// AnnualSeries reads back one variable of annual_stats in year order.
func (s *Store) AnnualSeries(ctx context.Context, region, variable string) (domain.PeriodSeries, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT year, value FROM annual_stats WHERE region = ? AND variable = ? ORDER BY year",
		region, variable)
	if err != nil {
		return domain.PeriodSeries{}, fmt.Errorf("query annual_stats: %w", err)
	}
	defer rows.Close()

	var pts []domain.PeriodValue
	for rows.Next() {
		var year int
		var v sql.NullFloat64
		if err := rows.Scan(&year, &v); err != nil {
			return domain.PeriodSeries{}, fmt.Errorf("scan annual_stats: %w", err)
		}
		val := math.NaN()
		if v.Valid {
			val = v.Float64
		}
		pts = append(pts, domain.PeriodValue{Period: domain.YearPeriod(year), Value: val})
	}
	if err := rows.Err(); err != nil {
		return domain.PeriodSeries{}, err
	}
	return domain.PeriodSeries{Name: variable, Points: pts}, nil
}

// TrendCount returns the number of stored trends for region.
func (s *Store) TrendCount(ctx context.Context, region string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM trends WHERE region = ?", region).Scan(&n)
	return n, err
}

func (s *Store) Close() error {
	return s.db.Close()
}

func nullable(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}
