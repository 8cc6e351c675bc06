// internal/storage/sqlite.go
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"basin-gateway/internal/data"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS metrics (
	timestamp TEXT PRIMARY KEY,
	temperature REAL,
	ph REAL,
	turbidity REAL,
	water_level REAL,
	humidity REAL
)`

// metricRow is the shared SQL row shape for the sqlite and postgres
// backends. Timestamps travel as RFC 3339 strings so both drivers scan
// identically.
type metricRow struct {
	Timestamp   string  `db:"timestamp"`
	Temperature float64 `db:"temperature"`
	PH          float64 `db:"ph"`
	Turbidity   float64 `db:"turbidity"`
	WaterLevel  float64 `db:"water_level"`
	Humidity    float64 `db:"humidity"`
}

func (r metricRow) sample() (data.Sample, error) {
	ts, err := time.Parse(time.RFC3339, r.Timestamp)
	if err != nil {
		return data.Sample{}, err
	}
	return data.Sample{
		Timestamp:   ts.UTC(),
		Temperature: r.Temperature,
		PH:          r.PH,
		Turbidity:   r.Turbidity,
		WaterLevel:  r.WaterLevel,
		Humidity:    r.Humidity,
	}, nil
}

func rowFromSample(s data.Sample) metricRow {
	return metricRow{
		Timestamp:   s.Timestamp.UTC().Format(time.RFC3339),
		Temperature: s.Temperature,
		PH:          s.PH,
		Turbidity:   s.Turbidity,
		WaterLevel:  s.WaterLevel,
		Humidity:    s.Humidity,
	}
}

type sqliteStore struct {
	path         string
	db           *sqlx.DB
	historyLimit int
	seed         SeedFunc
}

func newSqliteStore(path string, historyLimit int, seed SeedFunc) *sqliteStore {
	return &sqliteStore{path: path, historyLimit: historyLimit, seed: seed}
}

func (s *sqliteStore) Init(ctx context.Context) error {
	if s.db != nil {
		s.db.Close()
		s.db = nil
	}
	if s.path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
			return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
	}
	db, err := sqlx.Open("sqlite3", s.path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	// A pooled :memory: DSN would give every connection its own empty
	// database. One writer also sidesteps SQLITE_BUSY under load.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	s.db = db

	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	var count int
	if err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM metrics"); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if count == 0 && s.seed != nil {
		for _, item := range s.seed() {
			if err := s.insert(ctx, item); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *sqliteStore) insert(ctx context.Context, sample data.Sample) error {
	row := rowFromSample(sample)
	_, err := s.db.NamedExecContext(ctx,
		`INSERT OR REPLACE INTO metrics (timestamp, temperature, ph, turbidity, water_level, humidity)
		 VALUES (:timestamp, :temperature, :ph, :turbidity, :water_level, :humidity)`, row)
	return err
}

func (s *sqliteStore) GetHistory(ctx context.Context, limit int) ([]data.Sample, error) {
	limit = defaultLimit(limit, s.historyLimit)
	var rows []metricRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT timestamp, temperature, ph, turbidity, water_level, humidity
		 FROM metrics ORDER BY timestamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	return samplesAscending(rows)
}

func (s *sqliteStore) GetLatest(ctx context.Context) (*data.Sample, error) {
	items, err := s.GetHistory(ctx, 1)
	if err != nil || len(items) == 0 {
		return nil, err
	}
	return &items[0], nil
}

func (s *sqliteStore) AddMetric(ctx context.Context, sample data.Sample) error {
	if err := s.insert(ctx, sample); err != nil {
		return err
	}
	return s.trim(ctx)
}

func (s *sqliteStore) trim(ctx context.Context) error {
	if s.historyLimit <= 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM metrics WHERE timestamp NOT IN (
			SELECT timestamp FROM metrics ORDER BY timestamp DESC LIMIT ?
		)`, s.historyLimit)
	return err
}

func (s *sqliteStore) Info(ctx context.Context) Info {
	info := Info{
		Backend: "sqlite",
		Engine:  "SQLite",
		Message: fmt.Sprintf("DB path: %s", s.path),
	}
	if s.db == nil {
		info.Message = "not initialized"
		return info
	}
	if err := s.db.PingContext(ctx); err != nil {
		info.Message = err.Error()
		return info
	}
	info.OK = true
	return info
}

// samplesAscending converts newest-first rows into ascending order.
func samplesAscending(rows []metricRow) ([]data.Sample, error) {
	result := make([]data.Sample, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		sample, err := rows[i].sample()
		if err != nil {
			return nil, err
		}
		result = append(result, sample)
	}
	return result, nil
}
