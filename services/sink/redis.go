package sink

import (
	"context"
	"encoding/base64"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/dealmungchi/mirascraper/helpers"
	"github.com/dealmungchi/mirascraper/internal/model"
	"github.com/dealmungchi/mirascraper/logger"
	"github.com/dealmungchi/mirascraper/pkg/errors"
)

// RedisSink stores each record under "property:{source}:{source_id}" and
// appends it to a change stream. The record is base64 encoded in the
// stream entry.
type RedisSink struct {
	client          *redis.Client
	stream          string
	streamMaxLength int
	backoff         helpers.Backoff
	log             *logger.Logger
}

// NewRedisSink creates a new Redis sink
func NewRedisSink(addr string, db int, stream string, streamMaxLength int) *RedisSink {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	return &RedisSink{
		client:          client,
		stream:          stream,
		streamMaxLength: streamMaxLength,
		backoff:         defaultBackoff(),
		log:             logger.ForSink("redis"),
	}
}

// RecordKey returns the key a record is stored under
func RecordKey(source, sourceID string) string {
	return "property:" + source + ":" + sourceID
}

// Upsert writes props in pipelined batches, then trims the stream
func (s *RedisSink) Upsert(ctx context.Context, props []model.Property) (int, error) {
	if len(props) == 0 {
		return 0, nil
	}
	rows, err := Rows(props)
	if err != nil {
		return 0, errors.NewSink("redis", "failed to encode rows", err)
	}

	total := 0
	for i, batch := range Batches(rows, BatchSize) {
		err := helpers.Retry(ctx, s.backoff, nil, func() error {
			return s.writeBatch(ctx, batch)
		})
		if err != nil {
			s.log.Error().Err(err).Int("batch", i).Msg("Upsert failed")
			return total, err
		}
		total += len(batch)
	}

	if err := s.TrimStream(ctx); err != nil {
		s.log.Warn().Err(err).Msg("Failed to trim stream")
	}
	return total, nil
}

func (s *RedisSink) writeBatch(ctx context.Context, batch []map[string]any) error {
	pipe := s.client.TxPipeline()
	for _, row := range batch {
		data, err := json.Marshal(row)
		if err != nil {
			return errors.NewSink("redis", "failed to encode row", err)
		}
		source, _ := row["source"].(string)
		sourceID, _ := row["source_id"].(string)

		pipe.Set(ctx, RecordKey(source, sourceID), data, 0)
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: s.stream,
			Values: map[string]interface{}{
				"id":           model.MakeID(source, sourceID),
				"b64_property": base64.StdEncoding.EncodeToString(data),
			},
		})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.NewSink("redis", "pipeline failed", err)
	}
	return nil
}

// TrimStream trims the change stream to the configured maximum length
func (s *RedisSink) TrimStream(ctx context.Context) error {
	if s.streamMaxLength <= 0 {
		return nil
	}
	return s.client.XTrimMaxLen(ctx, s.stream, int64(s.streamMaxLength)).Err()
}

// Close closes the Redis connection
func (s *RedisSink) Close() error {
	return s.client.Close()
}
