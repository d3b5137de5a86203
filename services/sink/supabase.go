package sink

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/dealmungchi/mirascraper/helpers"
	"github.com/dealmungchi/mirascraper/internal/model"
	"github.com/dealmungchi/mirascraper/logger"
	"github.com/dealmungchi/mirascraper/pkg/errors"
)

// SupabaseSink upserts through the PostgREST API of a Supabase project
type SupabaseSink struct {
	client  *resty.Client
	table   string
	backoff helpers.Backoff
	log     *logger.Logger
}

// NewSupabaseSink creates a Supabase sink. URL and key are required.
func NewSupabaseSink(url, key, table string) (*SupabaseSink, error) {
	if url == "" || key == "" {
		return nil, errors.NewConfiguration("SUPABASE_URL and SUPABASE_KEY must be set", errors.ErrMissingCredentials)
	}
	if table == "" {
		table = "properties"
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(url, "/")+"/rest/v1").
		SetTimeout(30*time.Second).
		SetHeaders(map[string]string{
			"apikey":        key,
			"Authorization": "Bearer " + key,
			"Content-Type":  "application/json",
			"Prefer":        "resolution=merge-duplicates,return=representation",
		})

	return &SupabaseSink{
		client:  client,
		table:   table,
		backoff: defaultBackoff(),
		log:     logger.ForSink("supabase"),
	}, nil
}

// Upsert sends props in batches
func (s *SupabaseSink) Upsert(ctx context.Context, props []model.Property) (int, error) {
	if len(props) == 0 {
		return 0, nil
	}
	rows, err := Rows(props)
	if err != nil {
		return 0, errors.NewSink("supabase", "failed to encode rows", err)
	}

	total := 0
	for i, batch := range Batches(rows, BatchSize) {
		var n int
		err := helpers.Retry(ctx, s.backoff, nil, func() error {
			var err error
			n, err = s.upsertBatch(ctx, batch)
			if err != nil {
				s.log.Warn().Err(err).Int("batch", i).Msg("Upsert failed")
			}
			return err
		})
		if err != nil {
			return total, err
		}
		total += n
		s.log.Debug().Int("batch", i).Int("rows", n).Msg("Upserted batch")
	}
	return total, nil
}

func (s *SupabaseSink) upsertBatch(ctx context.Context, batch []map[string]any) (int, error) {
	var result []map[string]any
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParam("on_conflict", "source,source_id").
		SetBody(batch).
		SetResult(&result).
		Post("/" + s.table)
	if err != nil {
		return 0, errors.NewSink("supabase", "request failed", err)
	}
	if resp.IsError() {
		return 0, errors.NewSink("supabase", fmt.Sprintf("upsert into %s returned %d: %s", s.table, resp.StatusCode(), resp.String()), nil)
	}
	return len(result), nil
}

// Close releases idle connections
func (s *SupabaseSink) Close() error {
	s.client.GetClient().CloseIdleConnections()
	return nil
}
