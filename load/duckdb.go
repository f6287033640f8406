package load

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/KaurMahima/healthcare-sql-analytics/config"
	"github.com/KaurMahima/healthcare-sql-analytics/template"
	"github.com/marcboeker/go-duckdb"
)

//go:embed sql/*.sql
var queries embed.FS

type DuckDB struct {
	Logger    *slog.Logger
	DB        *sql.DB
	Connector *duckdb.Connector
	DBType    string
}

// NewDuckDB opens (or creates) the database at cfg.Path in read-write mode.
// An empty path or ":memory:" opens an in-memory database; "md:" paths connect to MotherDuck.
func NewDuckDB(cfg config.DuckDBConfig, logger *slog.Logger) (*DuckDB, error) {
	var path string
	var dbType string
	if strings.HasPrefix(cfg.Path, "md:") {
		motherduckToken := os.Getenv("MOTHERDUCK_TOKEN")
		if motherduckToken == "" {
			return nil, fmt.Errorf("MOTHERDUCK_TOKEN env variable is not set")
		}
		path = fmt.Sprintf("%s?motherduck_token=%s", cfg.Path, motherduckToken)
		dbType = ":md:"
	} else if cfg.Path == "" || cfg.Path == ":memory:" {
		path = ""
		dbType = ":memory:"
	} else {
		path = cfg.Path
		dbType = path
	}

	var connInitFn func(driver.ExecerContext) error
	if len(cfg.ConnInitFnQueries) > 0 {
		connInitFn = func(exec driver.ExecerContext) error {
			for _, path := range cfg.ConnInitFnQueries {
				query, err := readQuery(path)
				if err != nil {
					return err
				}

				if _, err := exec.ExecContext(context.Background(), string(query), nil); err != nil {
					return fmt.Errorf("failed to execute query from file %s: %w", path, err)
				}
			}
			return nil
		}
		logger.Debug("Connection initialization queries", "queries", cfg.ConnInitFnQueries)
	}

	connector, err := duckdb.NewConnector(path, connInitFn)
	if err != nil {
		return nil, fmt.Errorf("failed to open DuckDB database %s: %w", dbType, err)
	}

	db := sql.OpenDB(connector)

	switch dbType {
	case ":memory:":
		logger.Info("Connected to DuckDB in-memory database")
	case ":md:":
		logger.Info("Connected to MotherDuck database")
	default:
		logger.Info(fmt.Sprintf("Connected to local DuckDB database at %s", dbType))
	}

	return &DuckDB{
		Logger:    logger,
		DB:        db,
		Connector: connector,
		DBType:    dbType,
	}, nil
}

func readQuery(path string) ([]byte, error) {
	query, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return query, nil
}

// Close releases the database handle and the underlying connector.
func (db *DuckDB) Close() error {
	return errors.Join(db.DB.Close(), db.Connector.Close())
}

func (db *DuckDB) render(name string, params map[string]any) (string, error) {
	return template.ExecuteSqlTemplate(queries, "sql/"+name, params)
}

// ReplaceTableFromCSV drops table if it exists and recreates it from the CSV
// file at csvPath, letting DuckDB infer delimiter, header and column types.
// Creation is a single statement: if it fails the table is left absent.
func (db *DuckDB) ReplaceTableFromCSV(ctx context.Context, table, csvPath string) error {
	params := map[string]any{"Table": table, "CsvFile": csvPath}

	drop, err := db.render("drop_table.sql", params)
	if err != nil {
		return err
	}
	if err := db.RunQuery(ctx, drop); err != nil {
		return fmt.Errorf("failed to drop table %s: %w", table, err)
	}

	create, err := db.render("create_table_from_csv.sql", params)
	if err != nil {
		return err
	}
	if err := db.RunQuery(ctx, create); err != nil {
		return fmt.Errorf("failed to create table %s from %s: %w", table, csvPath, err)
	}

	return nil
}

// CountRows returns the number of rows in table.
func (db *DuckDB) CountRows(ctx context.Context, table string) (int64, error) {
	query, err := db.render("count_rows.sql", map[string]any{"Table": table})
	if err != nil {
		return 0, err
	}
	return db.queryInt(ctx, query)
}

// DescribeTable returns the inferred schema of table as "name TYPE" entries in column order.
func (db *DuckDB) DescribeTable(ctx context.Context, table string) ([]string, error) {
	query, err := db.render("describe_table.sql", map[string]any{"Table": table})
	if err != nil {
		return nil, err
	}
	results, err := db.GetQueryResults(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to describe table %s: %w", table, err)
	}

	names, types := results["column_name"], results["column_type"]
	columns := make([]string, 0, len(names))
	for i := range names {
		columns = append(columns, names[i]+" "+types[i])
	}
	return columns, nil
}

// TableExists reports whether a table with the given name exists in any schema.
func (db *DuckDB) TableExists(ctx context.Context, table string) (bool, error) {
	query, err := db.render("table_exists.sql", map[string]any{"Table": table})
	if err != nil {
		return false, err
	}
	n, err := db.queryInt(ctx, query)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (db *DuckDB) queryInt(ctx context.Context, query string) (int64, error) {
	db.Logger.Debug("Executing DuckDB query", "query", query)

	var n int64
	if err := db.DB.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to execute query: %w", err)
	}
	return n, nil
}

func (db *DuckDB) RunQuery(ctx context.Context, query string) error {
	db.Logger.Debug("Executing DuckDB query", "query", query)

	if _, err := db.DB.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to execute query: %w", err)
	}
	return nil
}

// GetQueryResults executes a query and returns the results as a map of column names to slices of values
func (db *DuckDB) GetQueryResults(ctx context.Context, query string) (map[string][]string, error) {
	rows, err := db.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	results := make(map[string][]string)
	for _, col := range columns {
		results[col] = []string{}
	}

	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		for i, col := range columns {
			results[col] = append(results[col], fmt.Sprintf("%v", values[i]))
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over rows: %w", err)
	}

	return results, nil
}
