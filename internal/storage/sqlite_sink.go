package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/mattn/go-sqlite3"

	"github.com/nerrad567/gray-logic-climate/internal/buffer"
	"github.com/nerrad567/gray-logic-climate/internal/device"
)

// Logger is the logging interface used by the sink.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// SQLiteSink implements buffer.Sink on a SQLite database.
//
// Each InsertMany call runs in one transaction. Busy and locked errors
// are reported as buffer.ErrTransient; everything else is fatal.
type SQLiteSink struct {
	db     *sql.DB
	logger Logger

	mu    sync.Mutex
	stmts map[string]string
}

// NewSQLiteSink creates a sink on an open database connection.
func NewSQLiteSink(db *sql.DB) *SQLiteSink {
	return &SQLiteSink{
		db:     db,
		logger: noopLogger{},
		stmts:  make(map[string]string),
	}
}

// SetLogger sets the logger for the sink.
func (s *SQLiteSink) SetLogger(logger Logger) {
	s.logger = logger
}

// InsertMany writes rows into spec.Name in one transaction.
// Append tables ignore rows whose key exists; replace tables overwrite them.
func (s *SQLiteSink) InsertMany(ctx context.Context, spec buffer.TableSpec, rows []buffer.Row) error {
	if len(rows) == 0 {
		return nil
	}

	query, err := s.statement(spec)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(fmt.Errorf("starting transaction: %w", err))
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	for i, row := range rows {
		if len(row) != len(spec.Columns) {
			return fmt.Errorf("%w: row %d of %s has %d values, want %d",
				ErrRowShape, i, spec.Name, len(row), len(spec.Columns))
		}
		if _, err := tx.ExecContext(ctx, query, row...); err != nil {
			return classify(fmt.Errorf("inserting into %s: %w", spec.Name, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return classify(fmt.Errorf("committing %s: %w", spec.Name, err))
	}

	s.logger.Debug("rows written", "table", spec.Name, "rows", len(rows), "mode", spec.Mode.String())
	return nil
}

// statement returns the cached INSERT statement for spec.
func (s *SQLiteSink) statement(spec buffer.TableSpec) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if q, ok := s.stmts[spec.Name]; ok {
		return q, nil
	}
	q, err := buildInsert(spec)
	if err != nil {
		return "", err
	}
	s.stmts[spec.Name] = q
	return q, nil
}

// buildInsert renders the upsert statement for a table spec:
//
//	INSERT INTO rooms (room_id, name, health) VALUES (?, ?, ?)
//	ON CONFLICT (room_id) DO UPDATE SET name = excluded.name, health = excluded.health
func buildInsert(spec buffer.TableSpec) (string, error) {
	if spec.Name == "" || len(spec.Columns) == 0 || len(spec.Key) == 0 {
		return "", fmt.Errorf("%w: %q", ErrInvalidTable, spec.Name)
	}

	isKey := make(map[string]bool, len(spec.Key))
	for _, k := range spec.Key {
		isKey[k] = true
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(spec.Columns)), ", ")

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) ",
		spec.Name, strings.Join(spec.Columns, ", "), placeholders, strings.Join(spec.Key, ", "))

	if spec.Mode == buffer.ModeAppend {
		b.WriteString("DO NOTHING")
		return b.String(), nil
	}

	var sets []string
	for _, c := range spec.Columns {
		if !isKey[c] {
			sets = append(sets, c+" = excluded."+c)
		}
	}
	if len(sets) == 0 {
		b.WriteString("DO NOTHING")
		return b.String(), nil
	}
	b.WriteString("DO UPDATE SET " + strings.Join(sets, ", "))
	return b.String(), nil
}

// LoadHealth returns the stored health score per room.
func (s *SQLiteSink) LoadHealth(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT room_id, health FROM rooms")
	if err != nil {
		return nil, classify(fmt.Errorf("querying rooms: %w", err))
	}
	defer rows.Close()

	scores := make(map[string]int)
	for rows.Next() {
		var (
			roomID string
			health int
		)
		if err := rows.Scan(&roomID, &health); err != nil {
			return nil, fmt.Errorf("scanning room row: %w", err)
		}
		scores[roomID] = health
	}
	if err := rows.Err(); err != nil {
		return nil, classify(fmt.Errorf("iterating rooms: %w", err))
	}
	return scores, nil
}

// SeedRooms makes sure every sensor room has a rooms row. New rooms get
// defaultHealth; existing rooms keep their score and get the configured name.
func (s *SQLiteSink) SeedRooms(ctx context.Context, rooms []device.Info, defaultHealth int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(fmt.Errorf("starting transaction: %w", err))
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	for _, r := range rooms {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO rooms (room_id, name, health) VALUES (?, ?, ?) ON CONFLICT (room_id) DO UPDATE SET name = excluded.name",
			r.RoomID, r.Name, defaultHealth,
		); err != nil {
			return classify(fmt.Errorf("seeding room %s: %w", r.RoomID, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return classify(fmt.Errorf("committing room seed: %w", err))
	}
	return nil
}

// classify marks busy and locked SQLite errors as transient.
func classify(err error) error {
	if IsTransient(err) {
		return fmt.Errorf("%w: %w", buffer.ErrTransient, err)
	}
	return err
}

// IsTransient reports whether err is a SQLite busy or locked condition.
func IsTransient(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	return false
}
