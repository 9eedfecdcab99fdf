package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DB wraps the record store connection.
type DB struct {
	conn   *sql.DB
	driver string
	dsn    string
}

// DefaultDBPath returns ~/.hirefactory/recruitment.db, creating the directory if needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	dir := filepath.Join(home, ".hirefactory")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create directory %s: %w", dir, err)
	}
	return filepath.Join(dir, "recruitment.db"), nil
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	return OpenDriver(DriverSQLite, path)
}

// OpenDriver opens a database for one of the supported drivers. For sqlite the
// dsn is a file path (or ":memory:"); for postgres it is a connection URL.
func OpenDriver(driver, dsn string) (*DB, error) {
	var sqlDriver string
	switch driver {
	case DriverSQLite, "":
		driver, sqlDriver = DriverSQLite, "sqlite3"
	case DriverPostgres:
		sqlDriver = "pgx"
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	conn, err := sql.Open(sqlDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if driver == DriverSQLite {
		conn.SetMaxOpenConns(1)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if driver == DriverSQLite {
		if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
			conn.Close()
			return nil, fmt.Errorf("set journal mode: %w", err)
		}
		if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
			conn.Close()
			return nil, fmt.Errorf("enable foreign keys: %w", err)
		}
	}
	return &DB{conn: conn, driver: driver, dsn: dsn}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.conn.Close()
}

// Conn returns the underlying *sql.DB for advanced queries.
func (d *DB) Conn() *sql.DB {
	return d.conn
}

// Driver reports which driver the connection was opened with.
func (d *DB) Driver() string {
	return d.driver
}

// Rebind rewrites ? placeholders into the driver's native form.
func (d *DB) Rebind(query string) string {
	return rebind(d.driver, query)
}

func rebind(driver, query string) string {
	if driver != DriverPostgres || !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for _, r := range query {
		switch {
		case r == '\'':
			inQuote = !inQuote
			b.WriteRune(r)
		case r == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

const tableDefsSQLite = `
CREATE TABLE IF NOT EXISTS schema_version (
    version    INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS candidates (
    candidate_id    TEXT PRIMARY KEY,
    name            TEXT NOT NULL,
    email           TEXT NOT NULL,
    location        TEXT NOT NULL DEFAULT '',
    resume_attached BOOLEAN NOT NULL DEFAULT FALSE,
    status          TEXT NOT NULL,
    created_at      TEXT NOT NULL,
    updated_at      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_candidates_email ON candidates(email);

CREATE TABLE IF NOT EXISTS salary_bands (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    job_level       TEXT NOT NULL,
    location        TEXT NOT NULL,
    currency        TEXT NOT NULL,
    base_range_min  REAL NOT NULL,
    base_range_max  REAL NOT NULL,
    equity_band_min REAL NOT NULL,
    equity_band_max REAL NOT NULL,
    benefits_notes  TEXT NOT NULL DEFAULT '',
    policy_doc_id   TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_salary_bands_level ON salary_bands(job_level, location);

CREATE TABLE IF NOT EXISTS interview_schedules (
    id                  INTEGER PRIMARY KEY AUTOINCREMENT,
    candidate_id        TEXT NOT NULL,
    interview_type      TEXT NOT NULL,
    interview_log_id    TEXT NOT NULL UNIQUE,
    scheduled_date      TEXT NOT NULL,
    recruiter           TEXT NOT NULL DEFAULT '',
    tech_interviewer    TEXT NOT NULL DEFAULT '',
    availability_window TEXT NOT NULL DEFAULT '',
    status              TEXT NOT NULL,
    created_at          TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_schedules_candidate ON interview_schedules(candidate_id);

CREATE TABLE IF NOT EXISTS compensation_proposals (
    proposal_id      INTEGER PRIMARY KEY AUTOINCREMENT,
    candidate_id     TEXT NOT NULL,
    base_salary      REAL NOT NULL,
    equity_amount    REAL NOT NULL,
    bonus_target     REAL NOT NULL,
    benefits_summary TEXT NOT NULL DEFAULT '',
    status           TEXT NOT NULL,
    created_at       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_proposals_candidate ON compensation_proposals(candidate_id);

CREATE TABLE IF NOT EXISTS compliance_logs (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    candidate_id TEXT NOT NULL,
    check_type   TEXT NOT NULL,
    result       TEXT NOT NULL,
    details      TEXT NOT NULL DEFAULT '',
    checked_by   TEXT NOT NULL,
    checked_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_compliance_candidate ON compliance_logs(candidate_id, check_type);

CREATE TABLE IF NOT EXISTS policies (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    policy_id      TEXT NOT NULL UNIQUE,
    policy_type    TEXT NOT NULL,
    policy_name    TEXT NOT NULL,
    policy_content TEXT NOT NULL,
    doc_id         TEXT NOT NULL DEFAULT '',
    created_at     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS pipeline_events (
    id        INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id    TEXT NOT NULL,
    stage     TEXT NOT NULL,
    event     TEXT NOT NULL CHECK(event IN ('completed','fallback','failed')),
    detail    TEXT NOT NULL DEFAULT '',
    timestamp TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_pipeline_run ON pipeline_events(run_id, id);
`

// tableDefsPostgres mirrors tableDefsSQLite; column names must stay in sync.
const tableDefsPostgres = `
CREATE TABLE IF NOT EXISTS schema_version (
    version    INTEGER PRIMARY KEY,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS candidates (
    candidate_id    TEXT PRIMARY KEY,
    name            TEXT NOT NULL,
    email           TEXT NOT NULL,
    location        TEXT NOT NULL DEFAULT '',
    resume_attached BOOLEAN NOT NULL DEFAULT FALSE,
    status          TEXT NOT NULL,
    created_at      TEXT NOT NULL,
    updated_at      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_candidates_email ON candidates(email);

CREATE TABLE IF NOT EXISTS salary_bands (
    id              BIGSERIAL PRIMARY KEY,
    job_level       TEXT NOT NULL,
    location        TEXT NOT NULL,
    currency        TEXT NOT NULL,
    base_range_min  DOUBLE PRECISION NOT NULL,
    base_range_max  DOUBLE PRECISION NOT NULL,
    equity_band_min DOUBLE PRECISION NOT NULL,
    equity_band_max DOUBLE PRECISION NOT NULL,
    benefits_notes  TEXT NOT NULL DEFAULT '',
    policy_doc_id   TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_salary_bands_level ON salary_bands(job_level, location);

CREATE TABLE IF NOT EXISTS interview_schedules (
    id                  BIGSERIAL PRIMARY KEY,
    candidate_id        TEXT NOT NULL,
    interview_type      TEXT NOT NULL,
    interview_log_id    TEXT NOT NULL UNIQUE,
    scheduled_date      TEXT NOT NULL,
    recruiter           TEXT NOT NULL DEFAULT '',
    tech_interviewer    TEXT NOT NULL DEFAULT '',
    availability_window TEXT NOT NULL DEFAULT '',
    status              TEXT NOT NULL,
    created_at          TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_schedules_candidate ON interview_schedules(candidate_id);

CREATE TABLE IF NOT EXISTS compensation_proposals (
    proposal_id      BIGSERIAL PRIMARY KEY,
    candidate_id     TEXT NOT NULL,
    base_salary      DOUBLE PRECISION NOT NULL,
    equity_amount    DOUBLE PRECISION NOT NULL,
    bonus_target     DOUBLE PRECISION NOT NULL,
    benefits_summary TEXT NOT NULL DEFAULT '',
    status           TEXT NOT NULL,
    created_at       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_proposals_candidate ON compensation_proposals(candidate_id);

CREATE TABLE IF NOT EXISTS compliance_logs (
    id           BIGSERIAL PRIMARY KEY,
    candidate_id TEXT NOT NULL,
    check_type   TEXT NOT NULL,
    result       TEXT NOT NULL,
    details      TEXT NOT NULL DEFAULT '',
    checked_by   TEXT NOT NULL,
    checked_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_compliance_candidate ON compliance_logs(candidate_id, check_type);

CREATE TABLE IF NOT EXISTS policies (
    id             BIGSERIAL PRIMARY KEY,
    policy_id      TEXT NOT NULL UNIQUE,
    policy_type    TEXT NOT NULL,
    policy_name    TEXT NOT NULL,
    policy_content TEXT NOT NULL,
    doc_id         TEXT NOT NULL DEFAULT '',
    created_at     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS pipeline_events (
    id        BIGSERIAL PRIMARY KEY,
    run_id    TEXT NOT NULL,
    stage     TEXT NOT NULL,
    event     TEXT NOT NULL CHECK(event IN ('completed','fallback','failed')),
    detail    TEXT NOT NULL DEFAULT '',
    timestamp TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_pipeline_run ON pipeline_events(run_id, id);
`

// tables lists every table in drop order.
var tables = []string{
	"pipeline_events",
	"compliance_logs",
	"compensation_proposals",
	"interview_schedules",
	"salary_bands",
	"candidates",
	"policies",
	"schema_version",
}

func (d *DB) schema() string {
	if d.driver == DriverPostgres {
		return tableDefsPostgres
	}
	return tableDefsSQLite
}

// Migrate applies the database schema.
func (d *DB) Migrate() error {
	var count int
	err := d.conn.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = 1").Scan(&count)
	if err == nil && count > 0 {
		return nil
	}

	tx, err := d.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range splitStatements(d.schema()) {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema v1: %w", err)
		}
	}
	if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (1)"); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return tx.Commit()
}

// Reset drops all tables and re-applies the schema.
func (d *DB) Reset() error {
	for _, t := range tables {
		if _, err := d.conn.Exec("DROP TABLE IF EXISTS " + t); err != nil {
			return fmt.Errorf("drop table %s: %w", t, err)
		}
	}
	return d.Migrate()
}

// splitStatements breaks a schema script into single statements; pgx does not
// accept several statements in one prepared Exec.
func splitStatements(script string) []string {
	var out []string
	for _, stmt := range strings.Split(script, ";") {
		if s := strings.TrimSpace(stmt); s != "" {
			out = append(out, s)
		}
	}
	return out
}
