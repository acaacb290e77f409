package mpps

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"mercator-hq/jupiter/pkg/bridgeerr"
)

// SQLiteConfig configures the SQLite-backed MPPS store.
type SQLiteConfig struct {
	Path         string
	MaxOpenConns int
	MaxIdleConns int
	WALMode      bool
	BusyTimeout  time.Duration
}

func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/mpps.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS mpps_record (
	sop_instance_uid     TEXT PRIMARY KEY,
	accession            TEXT NOT NULL,
	performing_station_ae TEXT,
	study_instance_uid   TEXT,
	series_instance_uids TEXT,
	status               TEXT NOT NULL,
	start_time           DATETIME,
	end_time             DATETIME,
	created_at           DATETIME NOT NULL,
	updated_at           DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_mpps_accession ON mpps_record(accession);
CREATE INDEX IF NOT EXISTS idx_mpps_status ON mpps_record(status);
`

// SQLiteStore is a database/sql-backed Store using the cgo
// mattn/go-sqlite3 driver.
type SQLiteStore struct {
	db     *sql.DB
	cfg    *SQLiteConfig
	logger *slog.Logger
}

var _ Store = (*SQLiteStore)(nil)

func NewSQLiteStore(cfg *SQLiteConfig) (*SQLiteStore, error) {
	const op = "mpps.NewSQLiteStore"

	if cfg == nil {
		cfg = DefaultSQLiteConfig()
	}
	logger := slog.Default().With("component", "mpps.sqlite")

	db, err := sql.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, bridgeerr.New(bridgeerr.KindStorage, op, err).WithContext("path", cfg.Path)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)

	s := &SQLiteStore{db: db, cfg: cfg, logger: logger}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	logger.Info("mpps sqlite store initialized", "path", cfg.Path, "wal_mode", cfg.WALMode)
	return s, nil
}

func (s *SQLiteStore) initialize() error {
	const op = "mpps.SQLiteStore.initialize"

	if s.cfg.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return bridgeerr.New(bridgeerr.KindStorage, op, err).WithContext("pragma", "journal_mode")
		}
	}
	busyMs := s.cfg.BusyTimeout.Milliseconds()
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyMs)); err != nil {
		return bridgeerr.New(bridgeerr.KindStorage, op, err).WithContext("pragma", "busy_timeout")
	}
	if _, err := s.db.Exec(schema); err != nil {
		return bridgeerr.New(bridgeerr.KindStorage, op, err).WithContext("phase", "create_schema")
	}
	return nil
}

func (s *SQLiteStore) Insert(ctx context.Context, r *Record) error {
	const op = "mpps.SQLiteStore.Insert"

	now := time.Now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO mpps_record (
			sop_instance_uid, accession, performing_station_ae, study_instance_uid,
			series_instance_uids, status, start_time, end_time, created_at, updated_at
		) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		r.SOPInstanceUID, r.Accession, r.PerformingStationAE, r.StudyInstanceUID,
		strings.Join(r.SeriesInstanceUIDs, ","), r.Status, r.StartTime, r.EndTime, now, now,
	)
	if err != nil {
		return bridgeerr.New(bridgeerr.KindStorage, op, err).WithContext("sop_instance_uid", r.SOPInstanceUID)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, uid string) (*Record, error) {
	const op = "mpps.SQLiteStore.Get"

	row := s.db.QueryRowContext(ctx, selectColumns+" FROM mpps_record WHERE sop_instance_uid=?", uid)
	r, err := scanRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, bridgeerr.New(bridgeerr.KindStorage, op, err).WithContext("sop_instance_uid", uid)
	}
	return r, nil
}

func (s *SQLiteStore) Update(ctx context.Context, r *Record) error {
	const op = "mpps.SQLiteStore.Update"

	res, err := s.db.ExecContext(ctx, `
		UPDATE mpps_record SET
			accession=?, performing_station_ae=?, study_instance_uid=?,
			series_instance_uids=?, status=?, start_time=?, end_time=?, updated_at=?
		WHERE sop_instance_uid=?`,
		r.Accession, r.PerformingStationAE, r.StudyInstanceUID,
		strings.Join(r.SeriesInstanceUIDs, ","), r.Status, r.StartTime, r.EndTime, time.Now(),
		r.SOPInstanceUID,
	)
	if err != nil {
		return bridgeerr.New(bridgeerr.KindStorage, op, err).WithContext("sop_instance_uid", r.SOPInstanceUID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return bridgeerr.New(bridgeerr.KindStorage, op, err)
	}
	if n == 0 {
		return bridgeerr.New(bridgeerr.KindStorage, op, nil).
			WithContext("sop_instance_uid", r.SOPInstanceUID).WithContext("reason", "not found")
	}
	return nil
}

func (s *SQLiteStore) Query(ctx context.Context, filter Filter) ([]*Record, error) {
	const op = "mpps.SQLiteStore.Query"

	var clauses []string
	var args []any
	if filter.Accession != "" {
		clauses = append(clauses, "accession = ?")
		args = append(args, filter.Accession)
	}
	if filter.NonTerminalOnly {
		clauses = append(clauses, "status = ?")
		args = append(args, StatusInProgress)
	} else if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, filter.Status)
	}

	query := selectColumns + " FROM mpps_record"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, bridgeerr.New(bridgeerr.KindStorage, op, err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, bridgeerr.New(bridgeerr.KindStorage, op, err).WithContext("phase", "scan")
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

const selectColumns = `SELECT sop_instance_uid, accession, performing_station_ae, study_instance_uid,
	series_instance_uids, status, start_time, end_time, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRow(row rowScanner) (*Record, error) {
	var r Record
	var series string
	var startTime, endTime sql.NullTime
	err := row.Scan(
		&r.SOPInstanceUID, &r.Accession, &r.PerformingStationAE, &r.StudyInstanceUID,
		&series, &r.Status, &startTime, &endTime, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if series != "" {
		r.SeriesInstanceUIDs = strings.Split(series, ",")
	}
	r.StartTime = startTime.Time
	r.EndTime = endTime.Time
	return &r, nil
}
