// internal/storage/influx.go
package storage

import (
	"context"
	"fmt"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"basin-gateway/internal/config"
	"basin-gateway/internal/data"
)

const influxMeasurement = "water_metrics"

// influxStore persists samples to an InfluxDB 2.x bucket. History
// trimming is the bucket's own retention policy; nothing is deleted on
// insert.
type influxStore struct {
	url          string
	token        string
	org          string
	bucket       string
	queryRange   string
	historyLimit int

	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	queryAPI api.QueryAPI
}

func newInfluxStore(cfg *config.Config, historyLimit int) *influxStore {
	return &influxStore{
		url:          cfg.Influx.URL,
		token:        cfg.Influx.Token,
		org:          cfg.Influx.Org,
		bucket:       cfg.Influx.Bucket,
		queryRange:   cfg.Influx.Range,
		historyLimit: historyLimit,
	}
}

func (s *influxStore) Init(ctx context.Context) error {
	if s.token == "" {
		return fmt.Errorf("%w: influx token is required", ErrBackendUnavailable)
	}
	s.client = influxdb2.NewClient(s.url, s.token)
	s.writeAPI = s.client.WriteAPIBlocking(s.org, s.bucket)
	s.queryAPI = s.client.QueryAPI(s.org)

	ok, err := s.client.Ping(ctx)
	if err != nil || !ok {
		return fmt.Errorf("%w: influx unreachable at %s", ErrBackendUnavailable, s.url)
	}
	return nil
}

func (s *influxStore) GetHistory(ctx context.Context, limit int) ([]data.Sample, error) {
	limit = defaultLimit(limit, s.historyLimit)
	query := fmt.Sprintf(`from(bucket: %q)
		|> range(start: %s)
		|> filter(fn: (r) => r._measurement == %q)
		|> pivot(rowKey:["_time"], columnKey: ["_field"], valueColumn: "_value")
		|> sort(columns: ["_time"], desc: true)
		|> limit(n: %d)`, s.bucket, s.queryRange, influxMeasurement, limit)

	result, err := s.queryAPI.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer result.Close()

	var newestFirst []data.Sample
	for result.Next() {
		record := result.Record()
		newestFirst = append(newestFirst, data.Sample{
			Timestamp:   record.Time().UTC(),
			Temperature: fieldValue(record.ValueByKey("temperature")),
			PH:          fieldValue(record.ValueByKey("ph")),
			Turbidity:   fieldValue(record.ValueByKey("turbidity")),
			WaterLevel:  fieldValue(record.ValueByKey("water_level")),
			Humidity:    fieldValue(record.ValueByKey("humidity")),
		})
	}
	if result.Err() != nil {
		return nil, result.Err()
	}

	ascending := make([]data.Sample, 0, len(newestFirst))
	for i := len(newestFirst) - 1; i >= 0; i-- {
		ascending = append(ascending, newestFirst[i])
	}
	return ascending, nil
}

func (s *influxStore) GetLatest(ctx context.Context) (*data.Sample, error) {
	items, err := s.GetHistory(ctx, 1)
	if err != nil || len(items) == 0 {
		return nil, err
	}
	return &items[0], nil
}

func (s *influxStore) AddMetric(ctx context.Context, sample data.Sample) error {
	point := influxdb2.NewPointWithMeasurement(influxMeasurement).
		AddField("temperature", sample.Temperature).
		AddField("ph", sample.PH).
		AddField("turbidity", sample.Turbidity).
		AddField("water_level", sample.WaterLevel).
		AddField("humidity", sample.Humidity).
		SetTime(sample.Timestamp)
	return s.writeAPI.WritePoint(ctx, point)
}

func (s *influxStore) Info(ctx context.Context) Info {
	info := Info{
		Backend: "influx",
		Engine:  "InfluxDB",
		Message: fmt.Sprintf("Bucket: %s @ %s", s.bucket, s.url),
	}
	if s.client == nil {
		info.Message = "not initialized"
		return info
	}
	if ok, err := s.client.Ping(ctx); err != nil || !ok {
		info.Message = fmt.Sprintf("influx unreachable at %s", s.url)
		return info
	}
	info.OK = true
	return info
}

func fieldValue(v interface{}) float64 {
	f, _ := v.(float64)
	return f
}
