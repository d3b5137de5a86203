package sink

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dealmungchi/mirascraper/helpers"
	"github.com/dealmungchi/mirascraper/internal/model"
	"github.com/dealmungchi/mirascraper/logger"
	"github.com/dealmungchi/mirascraper/pkg/errors"
)

const schema = `CREATE TABLE IF NOT EXISTS properties (
	id            TEXT PRIMARY KEY,
	listing_type  TEXT NOT NULL,
	sub_category  TEXT,
	status        TEXT NOT NULL DEFAULT 'available',
	title         TEXT NOT NULL,
	description   TEXT,
	price         DOUBLE PRECISION,
	location      TEXT,
	region        TEXT NOT NULL,
	province      TEXT,
	municipality  TEXT,
	neighborhood  TEXT,
	postal_code   TEXT,
	latitude      DOUBLE PRECISION,
	longitude     DOUBLE PRECISION,
	images        JSONB NOT NULL DEFAULT '[]',
	specs         JSONB NOT NULL DEFAULT '{}',
	features      JSONB NOT NULL DEFAULT '[]',
	source        TEXT NOT NULL,
	source_id     TEXT NOT NULL,
	source_url    TEXT,
	enriched      BOOLEAN NOT NULL DEFAULT FALSE,
	translations  JSONB NOT NULL DEFAULT '[]',
	views_count   INTEGER NOT NULL DEFAULT 0,
	saves_count   INTEGER NOT NULL DEFAULT 0,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (source, source_id)
)`

// columns are the record fields written by the sink, in statement order
var columns = []string{
	"id", "listing_type", "sub_category", "status", "title", "description", "price",
	"location", "region", "province", "municipality", "neighborhood", "postal_code",
	"latitude", "longitude", "images", "specs", "features", "source", "source_id",
	"source_url", "enriched", "translations",
}

func upsertSQL() string {
	placeholders := make([]string, len(columns))
	updates := make([]string, 0, len(columns))
	for i, col := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		switch col {
		case "id", "source", "source_id":
			continue
		}
		updates = append(updates, col+" = EXCLUDED."+col)
	}
	updates = append(updates, "updated_at = NOW()")

	return fmt.Sprintf(
		"INSERT INTO properties (%s) VALUES (%s) ON CONFLICT (source, source_id) DO UPDATE SET %s",
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(updates, ", "),
	)
}

// rowValues orders a row for upsertSQL. Absent fields become NULL.
func rowValues(row map[string]any) []any {
	values := make([]any, len(columns))
	for i, col := range columns {
		values[i] = row[col]
	}
	return values
}

// PostgresSink upserts straight into a Postgres database
type PostgresSink struct {
	pool    *pgxpool.Pool
	query   string
	backoff helpers.Backoff
	log     *logger.Logger
}

// NewPostgresSink connects to databaseURL and checks the connection
func NewPostgresSink(ctx context.Context, databaseURL string) (*PostgresSink, error) {
	if databaseURL == "" {
		return nil, errors.NewConfiguration("DATABASE_URL must be set", errors.ErrMissingCredentials)
	}

	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, errors.NewConfiguration("failed to parse database URL", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, errors.NewSink("postgres", "unable to create connection pool", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.NewSink("postgres", "unable to ping database", err)
	}

	return &PostgresSink{
		pool:    pool,
		query:   upsertSQL(),
		backoff: defaultBackoff(),
		log:     logger.ForSink("postgres"),
	}, nil
}

// EnsureSchema creates the properties table when it does not exist
func (s *PostgresSink) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return errors.NewSink("postgres", "failed to create schema", err)
	}
	return nil
}

// Upsert sends props in batches, one pgx batch per chunk
func (s *PostgresSink) Upsert(ctx context.Context, props []model.Property) (int, error) {
	if len(props) == 0 {
		return 0, nil
	}
	rows, err := Rows(props)
	if err != nil {
		return 0, errors.NewSink("postgres", "failed to encode rows", err)
	}

	total := 0
	for i, chunk := range Batches(rows, BatchSize) {
		err := helpers.Retry(ctx, s.backoff, nil, func() error {
			batch := &pgx.Batch{}
			for _, row := range chunk {
				batch.Queue(s.query, rowValues(row)...)
			}
			if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
				s.log.Warn().Err(err).Int("batch", i).Msg("Upsert failed")
				return errors.NewSink("postgres", "batch upsert failed", err)
			}
			return nil
		})
		if err != nil {
			return total, err
		}
		total += len(chunk)
	}
	return total, nil
}

// Close closes the pool
func (s *PostgresSink) Close() error {
	s.pool.Close()
	return nil
}
