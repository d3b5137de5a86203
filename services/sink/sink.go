// Package sink persists records to the backing store. Every backend
// upserts on (source, source_id) in batches and strips the columns the
// database manages itself.
package sink

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dealmungchi/mirascraper/config"
	"github.com/dealmungchi/mirascraper/helpers"
	"github.com/dealmungchi/mirascraper/internal/model"
	"github.com/dealmungchi/mirascraper/pkg/errors"
)

// BatchSize is the number of rows sent per request
const BatchSize = 50

// ServerManaged lists the columns filled by database defaults
var ServerManaged = []string{"views_count", "saves_count", "created_at", "updated_at"}

// Sink represents a persistence backend
type Sink interface {
	// Upsert writes props and returns the number of rows acknowledged
	Upsert(ctx context.Context, props []model.Property) (int, error)

	// Close releases the connection
	Close() error
}

// New creates the sink selected by cfg.Sink
func New(ctx context.Context, cfg *config.Config) (Sink, error) {
	switch cfg.Sink {
	case config.SinkSupabase:
		s, err := NewSupabaseSink(cfg.SupabaseURL, cfg.SupabaseKey, cfg.SupabaseTable)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.SinkPostgres:
		s, err := NewPostgresSink(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if cfg.PostgresAutoMigrate {
			if err := s.EnsureSchema(ctx); err != nil {
				s.Close()
				return nil, err
			}
		}
		return s, nil
	case config.SinkRedis:
		return NewRedisSink(cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream, cfg.RedisStreamMaxLength), nil
	}
	return nil, errors.NewConfiguration("unknown sink "+cfg.Sink, nil)
}

// Rows converts records into the JSON rows sent to the backend
func Rows(props []model.Property) ([]map[string]any, error) {
	rows := make([]map[string]any, 0, len(props))
	for i := range props {
		data, err := json.Marshal(&props[i])
		if err != nil {
			return nil, err
		}
		var row map[string]any
		if err := json.Unmarshal(data, &row); err != nil {
			return nil, err
		}
		for _, key := range ServerManaged {
			delete(row, key)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Batches splits rows into chunks of at most size
func Batches[T any](rows []T, size int) [][]T {
	var out [][]T
	for start := 0; start < len(rows); start += size {
		end := min(start+size, len(rows))
		out = append(out, rows[start:end])
	}
	return out
}

func defaultBackoff() helpers.Backoff {
	return helpers.Backoff{
		Attempts:   3,
		Multiplier: time.Second,
		Min:        2 * time.Second,
		Max:        10 * time.Second,
	}
}
