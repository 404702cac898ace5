package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/okian/dengue/internal/domain/model"
	"github.com/okian/dengue/internal/domain/summary"
	"github.com/okian/dengue/pkg/logger"
	"github.com/okian/dengue/pkg/metrics"

	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// SQLiteStore implements Store on a single SQLite file.
type SQLiteStore struct {
	db      *sql.DB
	log     logger.Logger
	maxOpen int
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (creating if needed) the database at path and applies the
// schema.
func OpenSQLite(path string, opts ...Option) (*SQLiteStore, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	s := &SQLiteStore{log: logger.Nop(), maxOpen: 1}
	for _, opt := range opts {
		opt(s)
	}
	if path == MemoryPath {
		s.maxOpen = 1 // every connection would get its own database
	} else if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	db.SetMaxOpenConns(s.maxOpen)
	db.SetMaxIdleConns(s.maxOpen)
	db.SetConnMaxLifetime(0)
	s.db = db

	if err := s.init(path != MemoryPath); err != nil {
		_ = db.Close()
		return nil, err
	}
	s.log.Info(context.Background(), "results store opened", logger.String("path", path))
	return s, nil
}

func (s *SQLiteStore) init(file bool) error {
	pragmas := []string{
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	if file {
		pragmas = append(pragmas, "PRAGMA journal_mode=WAL;", "PRAGMA synchronous=NORMAL;")
	}
	schema := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id      TEXT PRIMARY KEY,
			fingerprint TEXT NOT NULL,
			seed        INTEGER NOT NULL,
			days        INTEGER NOT NULL,
			serotypes   INTEGER NOT NULL,
			population  INTEGER NOT NULL,
			started_at  TEXT NOT NULL,
			finished_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS runs_fingerprint ON runs(fingerprint);`,
		`CREATE TABLE IF NOT EXISTS daily (
			run_id        TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
			day           INTEGER NOT NULL,
			serotype      INTEGER NOT NULL,
			infected      INTEGER NOT NULL,
			symptomatic   INTEGER NOT NULL,
			severe        INTEGER NOT NULL,
			vaccinated    INTEGER NOT NULL,
			introductions INTEGER NOT NULL,
			PRIMARY KEY (run_id, day, serotype)
		);`,
		`CREATE TABLE IF NOT EXISTS annual (
			run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
			year   INTEGER NOT NULL,
			cases  INTEGER NOT NULL,
			PRIMARY KEY (run_id, year)
		);`,
		`CREATE TABLE IF NOT EXISTS metrics (
			run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
			name   TEXT NOT NULL,
			value  REAL NOT NULL,
			PRIMARY KEY (run_id, name)
		);`,
	}
	for _, stmt := range append(pragmas, schema...) {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// SaveRun stores the run, its daily series, annual totals and metrics in one
// transaction.
func (s *SQLiteStore) SaveRun(ctx context.Context, res model.RunResult) (err error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryWriteLatency(float64(time.Since(start).Microseconds()) / 1000)
		if err != nil {
			metrics.RecordErrorByComponent("repository", "write")
		}
	}()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var exists int
	if err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE run_id = ?`, res.RunID).Scan(&exists); err != nil {
		return fmt.Errorf("check run %s: %w", res.RunID, err)
	}
	if exists > 0 {
		return fmt.Errorf("%w: %s", ErrDuplicate, res.RunID)
	}

	serotypes := 0
	if len(res.Series.NewlyInfected) > 0 {
		serotypes = len(res.Series.NewlyInfected[0])
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, fingerprint, seed, days, serotypes, population, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		res.RunID, res.Fingerprint, int64(res.Seed), res.Days, serotypes, res.Population,
		res.StartedAt.UTC().Format(time.RFC3339Nano), res.FinishedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert run %s: %w", res.RunID, err)
	}

	if err = insertDaily(ctx, tx, res); err != nil {
		return err
	}
	for y, n := range res.AnnualCases {
		if _, err = tx.ExecContext(ctx, `INSERT INTO annual (run_id, year, cases) VALUES (?, ?, ?)`, res.RunID, y, n); err != nil {
			return fmt.Errorf("insert annual %s: %w", res.RunID, err)
		}
	}
	for i, v := range res.Metrics.Vector() {
		if _, err = tx.ExecContext(ctx, `INSERT INTO metrics (run_id, name, value) VALUES (?, ?, ?)`, res.RunID, summary.Names[i], v); err != nil {
			return fmt.Errorf("insert metrics %s: %w", res.RunID, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", res.RunID, err)
	}

	if n, cerr := s.Count(ctx); cerr == nil {
		metrics.UpdateRepositoryRunsTotal(n)
	}
	return nil
}

func insertDaily(ctx context.Context, tx *sql.Tx, res model.RunResult) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO daily (run_id, day, serotype, infected, symptomatic, severe, vaccinated, introductions)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare daily: %w", err)
	}
	defer stmt.Close()

	ser := res.Series
	for d, row := range ser.NewlyInfected {
		for st := range row {
			_, err := stmt.ExecContext(ctx, res.RunID, d, st,
				cell(ser.NewlyInfected, d, st),
				cell(ser.NewlySymptomatic, d, st),
				cell(ser.SevereCases, d, st),
				cell(ser.VaccinatedCases, d, st),
				cell(ser.Introductions, d, st))
			if err != nil {
				return fmt.Errorf("insert daily %s day %d: %w", res.RunID, d, err)
			}
		}
	}
	return nil
}

func cell(series [][]int, d, s int) int {
	if d < len(series) && s < len(series[d]) {
		return series[d][s]
	}
	return 0
}

// Run loads a stored run with its series, annual totals and metrics.
func (s *SQLiteStore) Run(ctx context.Context, runID string) (model.RunResult, error) {
	res := model.RunResult{RunID: runID}
	var (
		seed              int64
		serotypes         int
		started, finished string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT fingerprint, seed, days, serotypes, population, started_at, finished_at FROM runs WHERE run_id = ?`, runID).
		Scan(&res.Fingerprint, &seed, &res.Days, &serotypes, &res.Population, &started, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RunResult{}, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	if err != nil {
		return model.RunResult{}, fmt.Errorf("load run %s: %w", runID, err)
	}
	res.Seed = uint64(seed)
	if res.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
		return model.RunResult{}, fmt.Errorf("run %s started_at: %w", runID, err)
	}
	if res.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
		return model.RunResult{}, fmt.Errorf("run %s finished_at: %w", runID, err)
	}

	if res.Series, err = s.loadDaily(ctx, runID, serotypes); err != nil {
		return model.RunResult{}, err
	}
	if res.AnnualCases, err = s.loadAnnual(ctx, runID); err != nil {
		return model.RunResult{}, err
	}
	if res.Metrics, err = s.Metrics(ctx, runID); err != nil {
		return model.RunResult{}, err
	}
	return res, nil
}

func (s *SQLiteStore) loadDaily(ctx context.Context, runID string, serotypes int) (model.DailySeries, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT day, serotype, infected, symptomatic, severe, vaccinated, introductions
		 FROM daily WHERE run_id = ? ORDER BY day, serotype`, runID)
	if err != nil {
		return model.DailySeries{}, fmt.Errorf("load daily %s: %w", runID, err)
	}
	defer rows.Close()

	var ser model.DailySeries
	all := []*[][]int{&ser.NewlyInfected, &ser.NewlySymptomatic, &ser.SevereCases, &ser.VaccinatedCases, &ser.Introductions}
	for rows.Next() {
		var d, st int
		v := make([]int, len(all))
		if err := rows.Scan(&d, &st, &v[0], &v[1], &v[2], &v[3], &v[4]); err != nil {
			return model.DailySeries{}, fmt.Errorf("scan daily %s: %w", runID, err)
		}
		for i, series := range all {
			for len(*series) <= d {
				*series = append(*series, make([]int, serotypes))
			}
			if st < serotypes {
				(*series)[d][st] = v[i]
			}
		}
	}
	if err := rows.Err(); err != nil {
		return model.DailySeries{}, fmt.Errorf("load daily %s: %w", runID, err)
	}
	return ser, nil
}

func (s *SQLiteStore) loadAnnual(ctx context.Context, runID string) ([]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT cases FROM annual WHERE run_id = ? ORDER BY year`, runID)
	if err != nil {
		return nil, fmt.Errorf("load annual %s: %w", runID, err)
	}
	defer rows.Close()

	var out []int
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan annual %s: %w", runID, err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// Metrics loads the calibration metrics of a run.
func (s *SQLiteStore) Metrics(ctx context.Context, runID string) (summary.Metrics, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, value FROM metrics WHERE run_id = ?`, runID)
	if err != nil {
		return summary.Metrics{}, fmt.Errorf("load metrics %s: %w", runID, err)
	}
	defer rows.Close()

	var m summary.Metrics
	fields := map[string]*float64{
		"mean":             &m.Mean,
		"median":           &m.Median,
		"stddev":           &m.StdDev,
		"max":              &m.Max,
		"skewness":         &m.Skewness,
		"median_crossings": &m.MedianCrossings,
		"seroprevalence":   &m.Seroprevalence,
	}
	found := 0
	for rows.Next() {
		var (
			name string
			v    float64
		)
		if err := rows.Scan(&name, &v); err != nil {
			return summary.Metrics{}, fmt.Errorf("scan metrics %s: %w", runID, err)
		}
		if f, ok := fields[strings.ToLower(name)]; ok {
			*f = v
			found++
		}
	}
	if err := rows.Err(); err != nil {
		return summary.Metrics{}, fmt.Errorf("load metrics %s: %w", runID, err)
	}
	if found == 0 {
		return summary.Metrics{}, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	return m, nil
}

// FindByFingerprint returns the earliest stored run with the fingerprint.
func (s *SQLiteStore) FindByFingerprint(ctx context.Context, fingerprint string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT run_id FROM runs WHERE fingerprint = ? ORDER BY started_at, run_id LIMIT 1`, fingerprint).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: fingerprint %s", ErrNotFound, fingerprint)
	}
	if err != nil {
		return "", fmt.Errorf("find fingerprint %s: %w", fingerprint, err)
	}
	return id, nil
}

// Count returns the number of stored runs.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count runs: %w", err)
	}
	return n, nil
}

// Close releases the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
