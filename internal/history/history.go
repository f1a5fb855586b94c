/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package history records solve outcomes. The default store is an embedded
// SQLite file; a postgres:// DSN switches to a shared PostgreSQL database.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"

	applog "geosolve/internal/log"
	"geosolve/internal/solver"
)

// Entry is one recorded solve.
type Entry struct {
	ID      int64
	At      time.Time
	Command string
	Shape   string
	// Properties is the ordered JSON object returned by the solver.
	Properties string
	Error      string
	Took       time.Duration
}

// OK reports whether the solve succeeded.
func (e Entry) OK() bool { return e.Error == "" }

// NewEntry builds an entry from a solve outcome.
func NewEntry(command, shape string, props []solver.Property, solveErr error, took time.Duration) Entry {
	e := Entry{At: time.Now().UTC(), Command: command, Shape: shape, Took: took}
	if b, err := solver.MarshalProperties(props); err == nil {
		e.Properties = string(b)
	}
	if solveErr != nil {
		e.Error = solveErr.Error()
	}
	return e
}

type dialect int

const (
	sqliteDialect dialect = iota
	postgresDialect
)

var schema = map[dialect]string{
	sqliteDialect: `CREATE TABLE IF NOT EXISTS solves (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		at_ms       INTEGER NOT NULL,
		command     TEXT NOT NULL,
		shape       TEXT NOT NULL DEFAULT '',
		properties  TEXT NOT NULL DEFAULT '{}',
		error       TEXT NOT NULL DEFAULT '',
		took_ms     INTEGER NOT NULL DEFAULT 0
	)`,
	postgresDialect: `CREATE TABLE IF NOT EXISTS solves (
		id          BIGSERIAL PRIMARY KEY,
		at_ms       BIGINT NOT NULL,
		command     TEXT NOT NULL,
		shape       TEXT NOT NULL DEFAULT '',
		properties  TEXT NOT NULL DEFAULT '{}',
		error       TEXT NOT NULL DEFAULT '',
		took_ms     BIGINT NOT NULL DEFAULT 0
	)`,
}

// Store persists entries.
type Store struct {
	db      *sql.DB
	dialect dialect
	log     *slog.Logger
}

// IsPostgres reports whether dsn addresses a PostgreSQL server.
func IsPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// Open connects to dsn and ensures the schema exists. Non-postgres DSNs are
// SQLite file paths; parent directories are created.
func Open(ctx context.Context, dsn string) (*Store, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("history: empty dsn")
	}
	l := applog.WithOperation(applog.WithComponent("history"), "open")
	s := &Store{log: applog.WithComponent("history")}

	var err error
	if IsPostgres(dsn) {
		s.dialect = postgresDialect
		s.db, err = sql.Open("pgx", dsn)
	} else {
		s.dialect = sqliteDialect
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("history: create dir: %w", err)
		}
		s.db, err = sql.Open("sqlite", fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", filepath.ToSlash(dsn)))
		if err == nil {
			s.db.SetMaxOpenConns(1)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("history: open: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		_ = s.db.Close()
		return nil, fmt.Errorf("history: ping: %w", err)
	}
	if s.dialect == sqliteDialect {
		if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
			l.Warn("enable WAL failed", slog.Any("err", err))
		}
	}
	if _, err := s.db.ExecContext(ctx, schema[s.dialect]); err != nil {
		_ = s.db.Close()
		return nil, fmt.Errorf("history: create schema: %w", err)
	}
	l.Debug("history ready", slog.Bool("postgres", s.dialect == postgresDialect))
	return s, nil
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (s *Store) rebind(q string) string {
	if s.dialect != postgresDialect {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Record stores e and returns its id.
func (s *Store) Record(ctx context.Context, e Entry) (int64, error) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	if e.Properties == "" {
		e.Properties = "{}"
	}
	var id int64
	err := s.db.QueryRowContext(ctx, s.rebind(
		`INSERT INTO solves (at_ms, command, shape, properties, error, took_ms) VALUES (?, ?, ?, ?, ?, ?) RETURNING id`),
		e.At.UnixMilli(), e.Command, e.Shape, e.Properties, e.Error, e.Took.Milliseconds(),
	).Scan(&id)
	if err != nil {
		s.log.Warn("record failed", slog.Any("err", err))
		return 0, fmt.Errorf("history: record: %w", err)
	}
	return id, nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT id, at_ms, command, shape, properties, error, took_ms FROM solves ORDER BY at_ms DESC, id DESC LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("history: query: %w", err)
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var e Entry
		var atMs, tookMs int64
		if err := rows.Scan(&e.ID, &atMs, &e.Command, &e.Shape, &e.Properties, &e.Error, &tookMs); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		e.At = time.UnixMilli(atMs).UTC()
		e.Took = time.Duration(tookMs) * time.Millisecond
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close releases the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
