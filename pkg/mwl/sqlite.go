package mwl

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

// SQLiteConfig configures the SQLite-backed MWL store.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging for better read concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is how long a writer waits on a locked database.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns sensible defaults for an MWL database.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/mwl.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS mwl_entries (
	accession            TEXT PRIMARY KEY,
	patient_id           TEXT NOT NULL,
	patient_family       TEXT,
	patient_given        TEXT,
	patient_middle       TEXT,
	patient_suffix       TEXT,
	patient_prefix       TEXT,
	birth_date           DATETIME,
	sex                  TEXT,
	scheduled_station_ae TEXT,
	scheduled_start      DATETIME,
	modality             TEXT,
	procedure_code       TEXT,
	procedure_desc       TEXT,
	requesting_physician TEXT,
	status               TEXT NOT NULL,
	created_at           DATETIME NOT NULL,
	updated_at           DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_mwl_patient ON mwl_entries(patient_id);
CREATE INDEX IF NOT EXISTS idx_mwl_scheduled_start ON mwl_entries(scheduled_start);
`

// SQLiteStore is a database/sql-backed Store using the cgo mattn/go-sqlite3
// driver, appropriate for the MWL's relatively low write volume and
// frequent ad-hoc station queries.
type SQLiteStore struct {
	db     *sql.DB
	cfg    *SQLiteConfig
	logger *slog.Logger
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (creating if absent) the MWL database at cfg.Path.
func NewSQLiteStore(cfg *SQLiteConfig) (*SQLiteStore, error) {
	const op = "mwl.NewSQLiteStore"

	if cfg == nil {
		cfg = DefaultSQLiteConfig()
	}
	logger := slog.Default().With("component", "mwl.sqlite")

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
	logger.Info("mwl sqlite store initialized", "path", cfg.Path, "wal_mode", cfg.WALMode)
	return s, nil
}

func (s *SQLiteStore) initialize() error {
	const op = "mwl.SQLiteStore.initialize"

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

func (s *SQLiteStore) Add(ctx context.Context, e *Entry) error {
	const op = "mwl.SQLiteStore.Add"

	now := time.Now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO mwl_entries (
			accession, patient_id, patient_family, patient_given, patient_middle,
			patient_suffix, patient_prefix, birth_date, sex, scheduled_station_ae,
			scheduled_start, modality, procedure_code, procedure_desc,
			requesting_physician, status, created_at, updated_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		e.Accession, e.PatientID, e.PatientName.Family, e.PatientName.Given, e.PatientName.Middle,
		e.PatientName.Suffix, e.PatientName.Prefix, e.BirthDate, e.Sex, e.ScheduledStationAE,
		e.ScheduledStart, e.Modality, e.ProcedureCode, e.ProcedureDesc,
		e.RequestingPhysician, e.Status, now, now,
	)
	if err != nil {
		return bridgeerr.New(bridgeerr.KindStorage, op, err).WithContext("accession", e.Accession)
	}
	return nil
}

func (s *SQLiteStore) UpdateByAccession(ctx context.Context, accession string, mutate func(*Entry)) error {
	const op = "mwl.SQLiteStore.UpdateByAccession"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return bridgeerr.New(bridgeerr.KindStorage, op, err)
	}
	defer tx.Rollback()

	entry, err := scanOne(tx.QueryRowContext(ctx, selectByAccession, accession))
	if err != nil {
		return err
	}
	if entry == nil {
		return bridgeerr.New(bridgeerr.KindStorage, op, nil).
			WithContext("accession", accession).WithContext("reason", "not found")
	}
	mutate(entry)
	entry.UpdatedAt = time.Now()

	_, err = tx.ExecContext(ctx, `
		UPDATE mwl_entries SET
			patient_id=?, patient_family=?, patient_given=?, patient_middle=?,
			patient_suffix=?, patient_prefix=?, birth_date=?, sex=?,
			scheduled_station_ae=?, scheduled_start=?, modality=?, procedure_code=?,
			procedure_desc=?, requesting_physician=?, status=?, updated_at=?
		WHERE accession=?`,
		entry.PatientID, entry.PatientName.Family, entry.PatientName.Given, entry.PatientName.Middle,
		entry.PatientName.Suffix, entry.PatientName.Prefix, entry.BirthDate, entry.Sex,
		entry.ScheduledStationAE, entry.ScheduledStart, entry.Modality, entry.ProcedureCode,
		entry.ProcedureDesc, entry.RequestingPhysician, entry.Status, entry.UpdatedAt,
		accession,
	)
	if err != nil {
		return bridgeerr.New(bridgeerr.KindStorage, op, err).WithContext("accession", accession)
	}
	return tx.Commit()
}

func (s *SQLiteStore) CancelByAccession(ctx context.Context, accession string) error {
	return s.UpdateByAccession(ctx, accession, func(e *Entry) {
		e.Status = StatusDiscontinued
	})
}

func (s *SQLiteStore) RemoveByAccession(ctx context.Context, accession string) error {
	const op = "mwl.SQLiteStore.RemoveByAccession"
	if _, err := s.db.ExecContext(ctx, "DELETE FROM mwl_entries WHERE accession=?", accession); err != nil {
		return bridgeerr.New(bridgeerr.KindStorage, op, err).WithContext("accession", accession)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, accession string) (*Entry, error) {
	const op = "mwl.SQLiteStore.Get"
	entry, err := scanOne(s.db.QueryRowContext(ctx, selectByAccession, accession))
	if err != nil {
		return nil, bridgeerr.New(bridgeerr.KindStorage, op, err).WithContext("accession", accession)
	}
	return entry, nil
}

func (s *SQLiteStore) Query(ctx context.Context, filter Filter) ([]*Entry, error) {
	const op = "mwl.SQLiteStore.Query"

	var clauses []string
	var args []any
	if filter.PatientID != "" {
		clauses = append(clauses, "patient_id = ?")
		args = append(args, filter.PatientID)
	}
	if filter.Accession != "" {
		clauses = append(clauses, "accession = ?")
		args = append(args, filter.Accession)
	}
	if filter.Modality != "" {
		clauses = append(clauses, "modality = ?")
		args = append(args, filter.Modality)
	}
	if filter.AETitle != "" {
		clauses = append(clauses, "scheduled_station_ae = ?")
		args = append(args, filter.AETitle)
	}
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, filter.Status)
	}
	if !filter.StartFrom.IsZero() {
		clauses = append(clauses, "scheduled_start >= ?")
		args = append(args, filter.StartFrom)
	}
	if !filter.StartTo.IsZero() {
		clauses = append(clauses, "scheduled_start <= ?")
		args = append(args, filter.StartTo)
	}

	query := "SELECT " + selectColumns + " FROM mwl_entries"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY scheduled_start ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, bridgeerr.New(bridgeerr.KindStorage, op, err)
	}
	defer rows.Close()

	var out []*Entry
	for rows.Next() {
		entry, err := scanRow(rows)
		if err != nil {
			return nil, bridgeerr.New(bridgeerr.KindStorage, op, err).WithContext("phase", "scan")
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) RewritePatientID(ctx context.Context, oldPatientID, newPatientID string) (int, error) {
	const op = "mwl.SQLiteStore.RewritePatientID"
	res, err := s.db.ExecContext(ctx,
		"UPDATE mwl_entries SET patient_id=?, updated_at=? WHERE patient_id=?",
		newPatientID, time.Now(), oldPatientID,
	)
	if err != nil {
		return 0, bridgeerr.New(bridgeerr.KindStorage, op, err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

const selectColumns = `accession, patient_id, patient_family, patient_given, patient_middle,
	patient_suffix, patient_prefix, birth_date, sex, scheduled_station_ae,
	scheduled_start, modality, procedure_code, procedure_desc,
	requesting_physician, status, created_at, updated_at`

const selectByAccession = "SELECT " + selectColumns + " FROM mwl_entries WHERE accession=?"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOne(row rowScanner) (*Entry, error) {
	entry, err := scanRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return entry, err
}

func scanRow(row rowScanner) (*Entry, error) {
	var e Entry
	var birthDate, scheduledStart sql.NullTime
	err := row.Scan(
		&e.Accession, &e.PatientID, &e.PatientName.Family, &e.PatientName.Given, &e.PatientName.Middle,
		&e.PatientName.Suffix, &e.PatientName.Prefix, &birthDate, &e.Sex, &e.ScheduledStationAE,
		&scheduledStart, &e.Modality, &e.ProcedureCode, &e.ProcedureDesc,
		&e.RequestingPhysician, &e.Status, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.BirthDate = birthDate.Time
	e.ScheduledStart = scheduledStart.Time
	return &e, nil
}
