// Package catalog queries chunk files and reference tables with DuckDB.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"
)

// FCASView is the view over chunk files created by Build.
const FCASView = "fcas"

// Catalog wraps a DuckDB database. An empty path opens an in-memory one.
type Catalog struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// Open opens or creates the database at path.
func Open(path string, logger *slog.Logger) (*Catalog, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dsn := path
	if path != "" {
		dsn = fmt.Sprintf("%s?access_mode=READ_WRITE", path)
	}
	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open DuckDB: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping DuckDB: %w", err)
	}
	return &Catalog{db: db, path: path, logger: logger.With("component", "Catalog")}, nil
}

// DB exposes the connection for ad hoc queries.
func (c *Catalog) DB() *sql.DB {
	return c.db
}

// Close closes the database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// FileStats summarises one chunk file.
type FileStats struct {
	Path    string
	Rows    int64
	MinTime time.Time
	MaxTime time.Time
	// Sorted is true when datetime never decreases in file order.
	Sorted bool
}

// Inspection summarises a set of chunk files.
type Inspection struct {
	Files   []FileStats
	Rows    int64
	MinTime time.Time
	MaxTime time.Time
	Sorted  bool
}

// Inspect reads the parquet files matching glob and reports row counts,
// time ranges and whether each file is ordered by datetime.
func (c *Catalog) Inspect(ctx context.Context, glob string) (*Inspection, error) {
	query := fmt.Sprintf(`
		SELECT
			filename,
			count(*) AS row_count,
			min(datetime) AS min_time,
			max(datetime) AS max_time,
			count(*) FILTER (WHERE prev IS NOT NULL AND datetime < prev) AS inversions
		FROM (
			SELECT
				filename,
				datetime,
				lag(datetime) OVER (PARTITION BY filename ORDER BY file_row_number) AS prev
			FROM read_parquet(%s, filename = true, file_row_number = true)
		)
		GROUP BY filename
		ORDER BY filename`, quoteLiteral(glob))

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("inspecting %s: %w", glob, err)
	}
	defer rows.Close()

	out := &Inspection{Sorted: true}
	for rows.Next() {
		var (
			fs         FileStats
			inversions int64
		)
		if err := rows.Scan(&fs.Path, &fs.Rows, &fs.MinTime, &fs.MaxTime, &inversions); err != nil {
			return nil, fmt.Errorf("scanning inspection row: %w", err)
		}
		fs.Sorted = inversions == 0
		fs.MinTime, fs.MaxTime = fs.MinTime.UTC(), fs.MaxTime.UTC()

		out.Files = append(out.Files, fs)
		out.Rows += fs.Rows
		out.Sorted = out.Sorted && fs.Sorted
		if out.MinTime.IsZero() || fs.MinTime.Before(out.MinTime) {
			out.MinTime = fs.MinTime
		}
		if fs.MaxTime.After(out.MaxTime) {
			out.MaxTime = fs.MaxTime
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Build creates a view over the chunk files matching chunkGlob and loads each
// reference CSV into a table named by its key. Existing objects are replaced.
func (c *Catalog) Build(ctx context.Context, chunkGlob string, tables map[string]string) error {
	if chunkGlob != "" {
		stmt := fmt.Sprintf("CREATE OR REPLACE VIEW %s AS SELECT * FROM read_parquet(%s)",
			quoteIdent(FCASView), quoteLiteral(chunkGlob))
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating %s view: %w", FCASView, err)
		}
		c.logger.Info("created view", "view", FCASView, "glob", chunkGlob)
	}

	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		stmt := fmt.Sprintf("CREATE OR REPLACE TABLE %s AS SELECT * FROM read_csv_auto(%s, header = true, all_varchar = true)",
			quoteIdent(name), quoteLiteral(tables[name]))
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("loading table %s from %s: %w", name, tables[name], err)
		}
		c.logger.Info("loaded table", "table", name, "source", tables[name])
	}
	return nil
}

// Objects lists the tables and views in the main schema.
func (c *Catalog) Objects(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT table_name FROM information_schema.tables WHERE table_schema = 'main' ORDER BY table_name`)
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// Count returns the number of rows in a table or view.
func (c *Catalog) Count(ctx context.Context, name string) (int64, error) {
	var n int64
	err := c.db.QueryRowContext(ctx, "SELECT count(*) FROM "+quoteIdent(name)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting %s: %w", name, err)
	}
	return n, nil
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
