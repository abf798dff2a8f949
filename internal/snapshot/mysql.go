package snapshot

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/vk/forcinggate/internal/config"
	"github.com/vk/forcinggate/internal/ctxlog"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Execer is the subset of *sql.DB the sink needs.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// MySQLSink upserts time summary rows.
type MySQLSink struct {
	db    Execer
	table string
}

// DSN builds the driver connection string for cfg.
func DSN(cfg *config.MySQL) string {
	c := mysql.NewConfig()
	c.Net = "tcp"
	c.Addr = cfg.Addr
	c.User = cfg.User
	c.Passwd = cfg.Password
	c.DBName = cfg.Database
	c.ParseTime = true
	c.Loc = time.UTC
	return c.FormatDSN()
}

// OpenMySQL opens and pings the database described by cfg.
func OpenMySQL(ctx context.Context, cfg *config.MySQL) (*sql.DB, error) {
	db, err := sql.Open("mysql", DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// NewMySQLSink returns a sink writing to table through db.
func NewMySQLSink(db Execer, table string) (*MySQLSink, error) {
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &MySQLSink{db: db, table: table}, nil
}

func (s *MySQLSink) createStatement() string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	run VARCHAR(128) NOT NULL,
	step DATETIME NOT NULL,
	data_type VARCHAR(8) NOT NULL,
	data_check BOOLEAN NOT NULL,
	data_extra BOOLEAN NOT NULL,
	forcing_gridded BOOLEAN NOT NULL,
	forcing_point BOOLEAN NOT NULL,
	forcing_time_series BOOLEAN NOT NULL,
	updating_gridded BOOLEAN NOT NULL,
	updating_point BOOLEAN NOT NULL,
	restart_gridded BOOLEAN NOT NULL,
	restart_point BOOLEAN NOT NULL,
	updated_at DATETIME NOT NULL,
	PRIMARY KEY (run, step)
)`, s.table)
}

func (s *MySQLSink) upsertStatement() string {
	return fmt.Sprintf(`INSERT INTO %s (
	run, step, data_type, data_check, data_extra,
	forcing_gridded, forcing_point, forcing_time_series,
	updating_gridded, updating_point, restart_gridded, restart_point,
	updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, UTC_TIMESTAMP())
ON DUPLICATE KEY UPDATE
	data_type = VALUES(data_type),
	data_check = VALUES(data_check),
	data_extra = VALUES(data_extra),
	forcing_gridded = VALUES(forcing_gridded),
	forcing_point = VALUES(forcing_point),
	forcing_time_series = VALUES(forcing_time_series),
	updating_gridded = VALUES(updating_gridded),
	updating_point = VALUES(updating_point),
	restart_gridded = VALUES(restart_gridded),
	restart_point = VALUES(restart_point),
	updated_at = UTC_TIMESTAMP()`, s.table)
}

// Write creates the table if needed and upserts rows under run.
func (s *MySQLSink) Write(ctx context.Context, run string, rows []Row) error {
	logger := ctxlog.FromContext(ctx)

	if _, err := s.db.ExecContext(ctx, s.createStatement()); err != nil {
		return fmt.Errorf("failed to create table %s: %w", s.table, err)
	}

	query := s.upsertStatement()
	for _, r := range rows {
		_, err := s.db.ExecContext(ctx, query,
			run, r.Time.UTC(), r.DataType, r.DataCheck, r.DataExtra,
			r.ForcingGridded, r.ForcingPoint, r.ForcingTimeSeries,
			r.UpdatingGridded, r.UpdatingPoint, r.RestartGridded, r.RestartPoint,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert step %s: %w", r.Step, err)
		}
	}
	logger.Debug("Time summary stored.", "table", s.table, "rows", len(rows))
	return nil
}
