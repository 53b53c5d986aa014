package eventsink

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/types"
	"github.com/go-sql-driver/mysql"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,63}$`)

// execer is the part of *sql.DB the sink uses.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// SQLConfig describes the MySQL table events are inserted into.
type SQLConfig struct {
	DSN     string
	Table   string
	Timeout time.Duration
}

// SQLSink inserts one row per event.
type SQLSink struct {
	db      execer
	closer  *sql.DB
	insert  string
	timeout time.Duration
}

// NewSQLSink opens the database, checks the connection and creates the
// table when it is missing.
func NewSQLSink(ctx context.Context, cfg SQLConfig) (*SQLSink, error) {
	if cfg.DSN == "" {
		return nil, errors.New("mysql dsn is empty")
	}
	table := cfg.Table
	if table == "" {
		table = "agent_events"
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}

	dsn, err := mysql.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	dsn.ParseTime = true

	db, err := sql.Open("mysql", dsn.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(10 * time.Minute)

	initCtx, cancel := deliveryContext(ctx, cfg.Timeout)
	defer cancel()
	if err := db.PingContext(initCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect mysql: %w", err)
	}
	if _, err := db.ExecContext(initCtx, createTableSQL(table)); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table %s: %w", table, err)
	}

	s := newSQLSink(db, table, cfg.Timeout)
	s.closer = db
	return s, nil
}

func newSQLSink(db execer, table string, timeout time.Duration) *SQLSink {
	return &SQLSink{
		db:      db,
		insert:  fmt.Sprintf("INSERT INTO %s (run_id, event_type, payload, created_at) VALUES (?, ?, ?, ?)", table),
		timeout: timeout,
	}
}

func createTableSQL(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	run_id VARCHAR(64) NOT NULL,
	event_type VARCHAR(32) NOT NULL,
	payload JSON,
	created_at DATETIME(6) NOT NULL,
	INDEX idx_%s_run (run_id)
)`, table, table)
}

func (s *SQLSink) Emit(ctx context.Context, event *types.AgentEvent) {
	payload, ok := encode(&types.AgentEvent{Type: event.Type, Payload: event.Payload, Time: event.Time})
	if !ok {
		return
	}
	ctx, cancel := deliveryContext(ctx, s.timeout)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, s.insert, event.RunID, event.Name(), string(payload), event.Time.UTC()); err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) {
			sinkLog.Warnf("mysql insert of %s failed (%d): %s", event.Name(), mysqlErr.Number, mysqlErr.Message)
			return
		}
		sinkLog.Warnf("mysql insert of %s failed: %v", event.Name(), err)
	}
}

// Close closes the database opened by NewSQLSink.
func (s *SQLSink) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
