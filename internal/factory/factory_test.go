package factory

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealmungchi/mirascraper/config"
	"github.com/dealmungchi/mirascraper/helpers"
	"github.com/dealmungchi/mirascraper/internal/fetch/fetchtest"
	"github.com/dealmungchi/mirascraper/internal/scraper"
	"github.com/dealmungchi/mirascraper/pkg/errors"
)

func testDeps() scraper.Deps {
	return scraper.Deps{
		Config:  config.LoadConfig(),
		Delay:   helpers.NoDelay{},
		Sleep:   helpers.NoSleep,
		HTTP:    fetchtest.New(),
		Browser: fetchtest.New(),
	}
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"idealista", "spain-real-estate"}, Names())
	assert.True(t, Has("idealista"))
	assert.False(t, Has("fotocasa"))
}

func TestNew(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			s, err := New(name, testDeps())
			require.NoError(t, err)
			defer s.Close()

			assert.Equal(t, name, s.Name())
			_, ok := scraper.AsEnricher(s)
			assert.True(t, ok, "every source supports the enrichment pass")
		})
	}
}

func TestNewUnknownSource(t *testing.T) {
	s, err := New("fotocasa", testDeps())
	require.Error(t, err)
	assert.Nil(t, s)
	assert.True(t, stderrors.Is(err, errors.ErrUnknownSource))
	assert.Contains(t, err.Error(), "fotocasa")
}
