// internal/storage/postgres.go
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"basin-gateway/internal/config"
	"basin-gateway/internal/data"
)

const postgresSchema = `CREATE TABLE IF NOT EXISTS metrics (
	timestamp TIMESTAMPTZ PRIMARY KEY,
	temperature DOUBLE PRECISION,
	ph DOUBLE PRECISION,
	turbidity DOUBLE PRECISION,
	water_level DOUBLE PRECISION,
	humidity DOUBLE PRECISION
)`

type pgRow struct {
	Timestamp   time.Time `db:"timestamp"`
	Temperature float64   `db:"temperature"`
	PH          float64   `db:"ph"`
	Turbidity   float64   `db:"turbidity"`
	WaterLevel  float64   `db:"water_level"`
	Humidity    float64   `db:"humidity"`
}

func (r pgRow) sample() data.Sample {
	return data.Sample{
		Timestamp:   r.Timestamp.UTC(),
		Temperature: r.Temperature,
		PH:          r.PH,
		Turbidity:   r.Turbidity,
		WaterLevel:  r.WaterLevel,
		Humidity:    r.Humidity,
	}
}

type postgresStore struct {
	dsn          string
	db           *sqlx.DB
	historyLimit int
	seed         SeedFunc
}

func newPostgresStore(cfg *config.Config, historyLimit int, seed SeedFunc) *postgresStore {
	dsn := cfg.Postgres.URL
	if dsn == "" {
		dsn = fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.User,
			cfg.Postgres.Password, cfg.Postgres.Database)
	}
	return &postgresStore{dsn: dsn, historyLimit: historyLimit, seed: seed}
}

func (s *postgresStore) Init(ctx context.Context) error {
	db, err := sqlx.Open("postgres", s.dsn)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	s.db = db

	if _, err := s.db.ExecContext(ctx, postgresSchema); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	var count int
	if err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM metrics"); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if count == 0 && s.seed != nil {
		for _, item := range s.seed() {
			if err := s.upsert(ctx, item); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *postgresStore) upsert(ctx context.Context, sample data.Sample) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO metrics (timestamp, temperature, ph, turbidity, water_level, humidity)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (timestamp) DO UPDATE SET
			temperature = EXCLUDED.temperature,
			ph = EXCLUDED.ph,
			turbidity = EXCLUDED.turbidity,
			water_level = EXCLUDED.water_level,
			humidity = EXCLUDED.humidity`,
		sample.Timestamp.UTC(), sample.Temperature, sample.PH,
		sample.Turbidity, sample.WaterLevel, sample.Humidity)
	return err
}

func (s *postgresStore) GetHistory(ctx context.Context, limit int) ([]data.Sample, error) {
	limit = defaultLimit(limit, s.historyLimit)
	var rows []pgRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT timestamp, temperature, ph, turbidity, water_level, humidity
		 FROM metrics ORDER BY timestamp DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	result := make([]data.Sample, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		result = append(result, rows[i].sample())
	}
	return result, nil
}

func (s *postgresStore) GetLatest(ctx context.Context) (*data.Sample, error) {
	items, err := s.GetHistory(ctx, 1)
	if err != nil || len(items) == 0 {
		return nil, err
	}
	return &items[0], nil
}

func (s *postgresStore) AddMetric(ctx context.Context, sample data.Sample) error {
	if err := s.upsert(ctx, sample); err != nil {
		return err
	}
	return s.trim(ctx)
}

func (s *postgresStore) trim(ctx context.Context) error {
	if s.historyLimit <= 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM metrics WHERE timestamp NOT IN (
			SELECT timestamp FROM metrics ORDER BY timestamp DESC LIMIT $1
		)`, s.historyLimit)
	return err
}

func (s *postgresStore) Info(ctx context.Context) Info {
	info := Info{Backend: "postgres", Engine: "PostgreSQL"}
	if s.db == nil {
		info.Message = "not initialized"
		return info
	}
	if err := s.db.PingContext(ctx); err != nil {
		info.Message = err.Error()
		return info
	}
	info.OK = true
	info.Message = "Connected to Postgres"
	return info
}
