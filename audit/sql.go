// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// createTableSQL is the SQLite schema. Postgres and MySQL get their own
// variants below, which differ only in how the id column auto-increments.
const createTableSQL = `
CREATE TABLE IF NOT EXISTS throttlefs_audit (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	occurred_at TIMESTAMP NOT NULL,
	backend VARCHAR(255) NOT NULL,
	op VARCHAR(32) NOT NULL,
	cost BIGINT NOT NULL,
	outcome VARCHAR(32) NOT NULL,
	wait_ns BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_throttlefs_audit_occurred_at ON throttlefs_audit(occurred_at);
CREATE INDEX IF NOT EXISTS idx_throttlefs_audit_backend ON throttlefs_audit(backend);
`

// postgresCreateTableSQL swaps AUTOINCREMENT, which Postgres doesn't
// understand, for its own identity-column syntax.
const postgresCreateTableSQL = `
CREATE TABLE IF NOT EXISTS throttlefs_audit (
	id BIGSERIAL PRIMARY KEY,
	occurred_at TIMESTAMP NOT NULL,
	backend VARCHAR(255) NOT NULL,
	op VARCHAR(32) NOT NULL,
	cost BIGINT NOT NULL,
	outcome VARCHAR(32) NOT NULL,
	wait_ns BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_throttlefs_audit_occurred_at ON throttlefs_audit(occurred_at);
CREATE INDEX IF NOT EXISTS idx_throttlefs_audit_backend ON throttlefs_audit(backend);
`

// mysqlCreateTableSQL swaps SQLite's AUTOINCREMENT keyword for MySQL's.
const mysqlCreateTableSQL = `
CREATE TABLE IF NOT EXISTS throttlefs_audit (
	id BIGINT PRIMARY KEY AUTO_INCREMENT,
	occurred_at TIMESTAMP NOT NULL,
	backend VARCHAR(255) NOT NULL,
	op VARCHAR(32) NOT NULL,
	cost BIGINT NOT NULL,
	outcome VARCHAR(32) NOT NULL,
	wait_ns BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_throttlefs_audit_occurred_at ON throttlefs_audit(occurred_at);
CREATE INDEX IF NOT EXISTS idx_throttlefs_audit_backend ON throttlefs_audit(backend);
`

// SQLStore persists audit Records via database/sql. Supported dialects:
// "postgres" (lib/pq), "mysql" (go-sql-driver/mysql), "sqlite"
// (mattn/go-sqlite3).
type SQLStore struct {
	db      *sql.DB
	dialect string
}

// NewSQLStore wraps an already-opened *sql.DB and ensures the audit table
// exists. Callers own db's lifecycle up to Close.
func NewSQLStore(db *sql.DB, dialect string) (*SQLStore, error) {
	if db == nil {
		return nil, fmt.Errorf("audit: database connection is required")
	}

	var schema string
	switch dialect {
	case "postgres":
		schema = postgresCreateTableSQL
	case "mysql":
		schema = mysqlCreateTableSQL
	case "sqlite":
		schema = createTableSQL
	default:
		return nil, fmt.Errorf("audit: unsupported dialect %q (supported: postgres, mysql, sqlite)", dialect)
	}

	s := &SQLStore{db: db, dialect: dialect}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("audit: failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLStore) placeholder(n int) string {
	if s.dialect == "postgres" {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func (s *SQLStore) Record(ctx context.Context, r Record) error {
	query := fmt.Sprintf(
		`INSERT INTO throttlefs_audit (occurred_at, backend, op, cost, outcome, wait_ns) VALUES (%s, %s, %s, %s, %s, %s)`,
		s.placeholder(1), s.placeholder(2), s.placeholder(3), s.placeholder(4), s.placeholder(5), s.placeholder(6),
	)
	_, err := s.db.ExecContext(ctx, query, r.Time, r.Backend, r.Op, r.Cost, string(r.Outcome), int64(r.Wait))
	if err != nil {
		return fmt.Errorf("audit: insert failed: %w", err)
	}
	return nil
}

func (s *SQLStore) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 100
	}
	query := fmt.Sprintf(
		`SELECT occurred_at, backend, op, cost, outcome, wait_ns FROM throttlefs_audit ORDER BY occurred_at DESC LIMIT %s`,
		s.placeholder(1),
	)
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("audit: query failed: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var outcome string
		var waitNs int64
		if err := rows.Scan(&r.Time, &r.Backend, &r.Op, &r.Cost, &outcome, &waitNs); err != nil {
			return nil, fmt.Errorf("audit: scan failed: %w", err)
		}
		r.Outcome = Outcome(outcome)
		r.Wait = time.Duration(waitNs)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLStore) Close() error { return s.db.Close() }

var _ Store = (*SQLStore)(nil)
