package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/dstaulcu/skill-enabled-dept-website/internal/domain"
)

// DefaultListLimit caps ListEvents when no limit is given.
const DefaultListLimit = 100

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS audit_events (
			event_id TEXT PRIMARY KEY,
			request_id TEXT NOT NULL,
			identity TEXT NOT NULL,
			mode TEXT NOT NULL,
			ts INTEGER NOT NULL,
			type TEXT NOT NULL,
			payload TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_identity ON audit_events(identity, ts)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_request ON audit_events(request_id)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateEvent creates a new audit event.
func (s *SQLiteStore) CreateEvent(ctx context.Context, event *domain.AuditEvent) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_events (event_id, request_id, identity, mode, ts, type, payload) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.EventID, event.RequestID, event.Identity, event.Mode, event.Ts, event.Type, nullStringBytes(event.Payload))
	return err
}

// ListEvents returns matching events, newest first.
func (s *SQLiteStore) ListEvents(ctx context.Context, filter EventFilter) ([]domain.AuditEvent, error) {
	query := `SELECT event_id, request_id, identity, mode, ts, type, payload FROM audit_events WHERE 1=1`
	var args []any

	if filter.Identity != "" {
		query += ` AND identity = ?`
		args = append(args, filter.Identity)
	}
	if filter.RequestID != "" {
		query += ` AND request_id = ?`
		args = append(args, filter.RequestID)
	}
	if filter.AfterTs > 0 {
		query += ` AND ts > ?`
		args = append(args, filter.AfterTs)
	}
	if len(filter.Types) > 0 {
		placeholders := make([]string, len(filter.Types))
		for i, t := range filter.Types {
			placeholders[i] = "?"
			args = append(args, string(t))
		}
		query += fmt.Sprintf(" AND type IN (%s)", strings.Join(placeholders, ","))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	query += fmt.Sprintf(" ORDER BY ts DESC, rowid DESC LIMIT %d", limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []domain.AuditEvent{}
	for rows.Next() {
		var event domain.AuditEvent
		var payload sql.NullString
		if err := rows.Scan(&event.EventID, &event.RequestID, &event.Identity, &event.Mode, &event.Ts, &event.Type, &payload); err != nil {
			return nil, err
		}
		if payload.Valid {
			event.Payload = json.RawMessage(payload.String)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func nullStringBytes(b []byte) sql.NullString {
	if len(b) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}
