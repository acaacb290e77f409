package queue

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"mercator-hq/jupiter/pkg/bridgeerr"
)

// SQLiteConfig configures the durable, crash-safe queue backend.
type SQLiteConfig struct {
	Path        string
	BusyTimeout time.Duration
	WALMode     bool
}

func DefaultSQLiteConfig() SQLiteConfig {
	return SQLiteConfig{
		Path:        "queue.db",
		BusyTimeout: 5 * time.Second,
		WALMode:     true,
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS queue_live (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	destination TEXT NOT NULL,
	payload BLOB NOT NULL,
	priority INTEGER NOT NULL DEFAULT 100,
	status TEXT NOT NULL,
	attempts INTEGER NOT NULL DEFAULT 0,
	last_error TEXT,
	next_attempt INTEGER NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	correlation TEXT,
	trace_parent TEXT
);
CREATE INDEX IF NOT EXISTS idx_queue_live_status_next ON queue_live(status, next_attempt);
CREATE INDEX IF NOT EXISTS idx_queue_live_dest_status ON queue_live(destination, status);

CREATE TABLE IF NOT EXISTS queue_dead (
	id INTEGER PRIMARY KEY,
	destination TEXT NOT NULL,
	payload BLOB NOT NULL,
	priority INTEGER NOT NULL DEFAULT 100,
	status TEXT NOT NULL,
	attempts INTEGER NOT NULL DEFAULT 0,
	last_error TEXT,
	next_attempt INTEGER NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	correlation TEXT,
	trace_parent TEXT
);
`

// SQLiteStore is a durable Store backed by modernc.org/sqlite (pure Go,
// no cgo). The connection pool is capped at one open connection since
// SQLite serializes writers anyway; an additional in-process mutex guards
// the claim-then-update sequence so two Claim calls on the same *sql.DB
// never interleave their transactions.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

var _ Store = (*SQLiteStore)(nil)

func NewSQLiteStore(cfg SQLiteConfig) (*SQLiteStore, error) {
	const op = "queue.NewSQLiteStore"

	dsn := cfg.Path
	if cfg.WALMode {
		dsn = fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
			cfg.Path, cfg.BusyTimeout.Milliseconds())
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, bridgeerr.New(bridgeerr.KindFatalInit, op, err).WithContext("path", cfg.Path)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, bridgeerr.New(bridgeerr.KindFatalInit, op, err).WithContext("reason", "schema init failed")
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) Enqueue(ctx context.Context, e *Entry) (int64, error) {
	const op = "queue.SQLiteStore.Enqueue"
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	nextAttempt := e.NextAttempt
	if nextAttempt.IsZero() {
		nextAttempt = now
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO queue_live
			(destination, payload, priority, status, attempts, last_error, next_attempt, created_at, updated_at, correlation, trace_parent)
		VALUES (?, ?, ?, ?, 0, NULL, ?, ?, ?, ?, ?)`,
		e.Destination, e.Payload, e.Priority, StatusPending,
		nextAttempt.UnixMilli(), now.UnixMilli(), now.UnixMilli(), e.Correlation, e.TraceParent)
	if err != nil {
		return 0, bridgeerr.New(bridgeerr.KindStorage, op, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, bridgeerr.New(bridgeerr.KindStorage, op, err)
	}
	return id, nil
}

func (s *SQLiteStore) Claim(ctx context.Context, limit int) ([]*Entry, error) {
	const op = "queue.SQLiteStore.Claim"
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, bridgeerr.New(bridgeerr.KindStorage, op, err)
	}
	defer tx.Rollback()

	now := time.Now()
	rows, err := tx.QueryContext(ctx, `
		SELECT id, destination, payload, priority, status, attempts, last_error, next_attempt, created_at, updated_at, correlation, trace_parent
		FROM queue_live
		WHERE status = ? AND next_attempt <= ?
		ORDER BY priority ASC, id ASC
		LIMIT ?`, StatusPending, now.UnixMilli(), limit)
	if err != nil {
		return nil, bridgeerr.New(bridgeerr.KindStorage, op, err)
	}
	var candidates []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			rows.Close()
			return nil, bridgeerr.New(bridgeerr.KindStorage, op, err)
		}
		candidates = append(candidates, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, bridgeerr.New(bridgeerr.KindStorage, op, err)
	}

	for _, e := range candidates {
		e.Attempts++
		e.Status = StatusInFlight
		e.UpdatedAt = now
		if _, err := tx.ExecContext(ctx, `
			UPDATE queue_live SET status = ?, attempts = ?, updated_at = ? WHERE id = ?`,
			StatusInFlight, e.Attempts, now.UnixMilli(), e.ID); err != nil {
			return nil, bridgeerr.New(bridgeerr.KindStorage, op, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, bridgeerr.New(bridgeerr.KindStorage, op, err)
	}
	return candidates, nil
}

func (s *SQLiteStore) MarkSuccess(ctx context.Context, id int64) error {
	const op = "queue.SQLiteStore.MarkSuccess"
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM queue_live WHERE id = ?`, id)
	if err != nil {
		return bridgeerr.New(bridgeerr.KindStorage, op, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return bridgeerr.New(bridgeerr.KindStorage, op, nil).WithContext("id", id).WithContext("reason", "not found")
	}
	return nil
}

func (s *SQLiteStore) MarkFailure(ctx context.Context, id int64, errText string, cfg BackoffConfig) (bool, error) {
	const op = "queue.SQLiteStore.MarkFailure"
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, bridgeerr.New(bridgeerr.KindStorage, op, err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		SELECT id, destination, payload, priority, status, attempts, last_error, next_attempt, created_at, updated_at, correlation, trace_parent
		FROM queue_live WHERE id = ?`, id)
	e, err := scanEntry(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, bridgeerr.New(bridgeerr.KindStorage, op, nil).WithContext("id", id).WithContext("reason", "not found")
		}
		return false, bridgeerr.New(bridgeerr.KindStorage, op, err)
	}

	now := time.Now()
	if cfg.Exhausted(e.Attempts) {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO queue_dead (id, destination, payload, priority, status, attempts, last_error, next_attempt, created_at, updated_at, correlation, trace_parent)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.Destination, e.Payload, e.Priority, StatusDead, e.Attempts, errText,
			now.UnixMilli(), e.CreatedAt.UnixMilli(), now.UnixMilli(), e.Correlation, e.TraceParent); err != nil {
			return false, bridgeerr.New(bridgeerr.KindStorage, op, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM queue_live WHERE id = ?`, id); err != nil {
			return false, bridgeerr.New(bridgeerr.KindStorage, op, err)
		}
		if err := tx.Commit(); err != nil {
			return false, bridgeerr.New(bridgeerr.KindStorage, op, err)
		}
		return true, nil
	}

	nextAttempt := now.Add(cfg.NextDelay(e.Attempts))
	if _, err := tx.ExecContext(ctx, `
		UPDATE queue_live SET status = ?, last_error = ?, next_attempt = ?, updated_at = ? WHERE id = ?`,
		StatusPending, errText, nextAttempt.UnixMilli(), now.UnixMilli(), id); err != nil {
		return false, bridgeerr.New(bridgeerr.KindStorage, op, err)
	}
	if err := tx.Commit(); err != nil {
		return false, bridgeerr.New(bridgeerr.KindStorage, op, err)
	}
	return false, nil
}

func (s *SQLiteStore) ReapStale(ctx context.Context, cutoff time.Time) (int, error) {
	const op = "queue.SQLiteStore.ReapStale"
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	res, err := s.db.ExecContext(ctx, `
		UPDATE queue_live SET status = ?, next_attempt = ?, updated_at = ?
		WHERE status = ? AND updated_at < ?`,
		StatusPending, now.UnixMilli(), now.UnixMilli(), StatusInFlight, cutoff.UnixMilli())
	if err != nil {
		return 0, bridgeerr.New(bridgeerr.KindStorage, op, err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *SQLiteStore) RequeueFromDLQ(ctx context.Context, id int64) error {
	const op = "queue.SQLiteStore.RequeueFromDLQ"
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return bridgeerr.New(bridgeerr.KindStorage, op, err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		SELECT id, destination, payload, priority, status, attempts, last_error, next_attempt, created_at, updated_at, correlation, trace_parent
		FROM queue_dead WHERE id = ?`, id)
	e, err := scanEntry(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return bridgeerr.New(bridgeerr.KindStorage, op, nil).WithContext("id", id).WithContext("reason", "not found")
		}
		return bridgeerr.New(bridgeerr.KindStorage, op, err)
	}

	now := time.Now()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO queue_live (id, destination, payload, priority, status, attempts, last_error, next_attempt, created_at, updated_at, correlation, trace_parent)
		VALUES (?, ?, ?, ?, ?, 0, NULL, ?, ?, ?, ?, ?)`,
		e.ID, e.Destination, e.Payload, e.Priority, StatusPending,
		now.UnixMilli(), e.CreatedAt.UnixMilli(), now.UnixMilli(), e.Correlation, e.TraceParent); err != nil {
		return bridgeerr.New(bridgeerr.KindStorage, op, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM queue_dead WHERE id = ?`, id); err != nil {
		return bridgeerr.New(bridgeerr.KindStorage, op, err)
	}
	if err := tx.Commit(); err != nil {
		return bridgeerr.New(bridgeerr.KindStorage, op, err)
	}
	return nil
}

func (s *SQLiteStore) Drop(ctx context.Context, id int64) error {
	const op = "queue.SQLiteStore.Drop"
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM queue_dead WHERE id = ?`, id)
	if err != nil {
		return bridgeerr.New(bridgeerr.KindStorage, op, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return bridgeerr.New(bridgeerr.KindStorage, op, nil).WithContext("id", id).WithContext("reason", "not found")
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id int64) (*Entry, error) {
	const op = "queue.SQLiteStore.Get"
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, destination, payload, priority, status, attempts, last_error, next_attempt, created_at, updated_at, correlation, trace_parent
		FROM queue_live WHERE id = ?`, id)
	e, err := scanEntry(row)
	if err == nil {
		return e, nil
	}
	if err != sql.ErrNoRows {
		return nil, bridgeerr.New(bridgeerr.KindStorage, op, err)
	}

	row = s.db.QueryRowContext(ctx, `
		SELECT id, destination, payload, priority, status, attempts, last_error, next_attempt, created_at, updated_at, correlation, trace_parent
		FROM queue_dead WHERE id = ?`, id)
	e, err = scanEntry(row)
	if err == nil {
		return e, nil
	}
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return nil, bridgeerr.New(bridgeerr.KindStorage, op, err)
}

func (s *SQLiteStore) Depth(ctx context.Context) (int, error) {
	const op = "queue.SQLiteStore.Depth"
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM queue_live`).Scan(&n); err != nil {
		return 0, bridgeerr.New(bridgeerr.KindStorage, op, err)
	}
	return n, nil
}

func (s *SQLiteStore) ListDead(ctx context.Context) ([]*Entry, error) {
	const op = "queue.SQLiteStore.ListDead"
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, destination, payload, priority, status, attempts, last_error, next_attempt, created_at, updated_at, correlation, trace_parent
		FROM queue_dead ORDER BY id ASC`)
	if err != nil {
		return nil, bridgeerr.New(bridgeerr.KindStorage, op, err)
	}
	defer rows.Close()

	var out []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, bridgeerr.New(bridgeerr.KindStorage, op, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(r rowScanner) (*Entry, error) {
	var e Entry
	var lastError, correlation, traceParent sql.NullString
	var nextAttempt, createdAt, updatedAt int64

	if err := r.Scan(&e.ID, &e.Destination, &e.Payload, &e.Priority, &e.Status, &e.Attempts,
		&lastError, &nextAttempt, &createdAt, &updatedAt, &correlation, &traceParent); err != nil {
		return nil, err
	}
	e.LastError = lastError.String
	e.Correlation = correlation.String
	e.TraceParent = traceParent.String
	e.NextAttempt = time.UnixMilli(nextAttempt)
	e.CreatedAt = time.UnixMilli(createdAt)
	e.UpdatedAt = time.UnixMilli(updatedAt)
	return &e, nil
}
