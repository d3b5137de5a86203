package sink

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealmungchi/mirascraper/config"
	"github.com/dealmungchi/mirascraper/internal/model"
	"github.com/dealmungchi/mirascraper/pkg/errors"
)

func makeProperties(n int) []model.Property {
	props := make([]model.Property, 0, n)
	for i := 0; i < n; i++ {
		p := model.NewProperty("idealista", fmt.Sprint(i+1), model.Sale, fmt.Sprintf("Piso %d", i+1))
		p.SetPrice(float64(100000 + i))
		props = append(props, p)
	}
	return props
}

func TestRows(t *testing.T) {
	props := makeProperties(2)
	props[0].Specs = map[string]any{"habitaciones": "3"}

	rows, err := Rows(props)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	row := rows[0]
	assert.Equal(t, "idealista-1", row["id"])
	assert.Equal(t, "idealista", row["source"])
	assert.Equal(t, "1", row["source_id"])
	assert.Equal(t, 100000.0, row["price"])
	assert.Equal(t, map[string]any{"habitaciones": "3"}, row["specs"])
	assert.Equal(t, []any{}, row["images"])
	assert.Equal(t, false, row["enriched"])
	for _, key := range ServerManaged {
		assert.NotContains(t, row, key)
	}
}

func TestBatches(t *testing.T) {
	rows := make([]int, 120)
	batches := Batches(rows, BatchSize)
	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 50)
	assert.Len(t, batches[1], 50)
	assert.Len(t, batches[2], 20)

	assert.Empty(t, Batches([]int{}, BatchSize))
}

func TestNewRequiresCredentials(t *testing.T) {
	ctx := context.Background()

	_, err := New(ctx, &config.Config{Sink: config.SinkSupabase})
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrMissingCredentials))

	_, err = New(ctx, &config.Config{Sink: config.SinkPostgres})
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrMissingCredentials))

	_, err = New(ctx, &config.Config{Sink: "sqlite"})
	assert.Error(t, err)
}

func TestNewSupabase(t *testing.T) {
	s, err := New(context.Background(), &config.Config{
		Sink:        config.SinkSupabase,
		SupabaseURL: "https://project.supabase.test",
		SupabaseKey: "key",
	})
	require.NoError(t, err)
	defer s.Close()

	supabase, ok := s.(*SupabaseSink)
	require.True(t, ok)
	assert.Equal(t, "properties", supabase.table)
}
