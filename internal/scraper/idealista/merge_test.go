package idealista

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealmungchi/mirascraper/internal/model"
)

func TestMergeFillsGaps(t *testing.T) {
	base := model.NewProperty(Source, "1", model.Sale, "Calle Sueca 12")
	base.Images = []string{"thumb.jpg"}
	base.Specs = map[string]any{"habitaciones": "2"}

	detail := model.NewProperty(Source, "1", model.Sale, "Piso en venta en Ruzafa")
	detail.Description = "Lovely flat."
	detail.SetCoordinates(39.46, -0.37)
	detail.Neighborhood = "Ruzafa"
	detail.PostalCode = "46006"
	detail.Images = []string{"a.jpg", "b.jpg"}
	detail.Specs = map[string]any{"habitaciones": "3", "Superficie": "85 m²"}

	merged := Merge(base, detail)

	assert.Equal(t, "Lovely flat.", merged.Description)
	require.True(t, merged.HasCoordinates())
	assert.Equal(t, 39.46, *merged.Latitude)
	assert.Equal(t, "Ruzafa", merged.Neighborhood)
	assert.Equal(t, "46006", merged.PostalCode)
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, merged.Images)
	assert.Equal(t, "2", merged.Specs["habitaciones"])
	assert.Equal(t, "85 m²", merged.Specs["Superficie"])
	assert.Equal(t, "Piso en venta en Ruzafa", merged.Title)
	assert.Equal(t, model.Apartment, merged.SubCategory)

	// base untouched
	assert.Empty(t, base.Description)
	assert.Equal(t, []string{"thumb.jpg"}, base.Images)
	assert.NotContains(t, base.Specs, "Superficie")
}

func TestMergeNeverOverwrites(t *testing.T) {
	base := model.NewProperty(Source, "2", model.Rent, "Ático en Benimaclet")
	base.Description = "Original."
	base.Neighborhood = "Benimaclet"
	base.SetCoordinates(1, 2)
	base.Images = []string{"a.jpg", "b.jpg"}

	detail := model.NewProperty(Source, "2", model.Rent, "Listing 2")
	detail.Description = "Other."
	detail.Neighborhood = "Algirós"
	detail.SetCoordinates(3, 4)
	detail.Images = []string{"c.jpg"}

	merged := Merge(base, detail)
	want := base.Clone()
	if diff := cmp.Diff(want, merged); diff != "" {
		t.Errorf("merge changed a complete record (-want +got):\n%s", diff)
	}
}

func TestMergeEmptyDetailKeepsBase(t *testing.T) {
	base := model.NewProperty(Source, "3", model.Sale, "Piso en Russafa")
	detail := model.NewProperty(Source, "3", model.Sale, "Listing 3")
	merged := Merge(base, detail)
	assert.Equal(t, "Piso en Russafa", merged.Title)
	assert.Equal(t, model.Unknown, merged.SubCategory)
}

func TestMergePriceOnlyFillsGap(t *testing.T) {
	base := model.NewProperty(Source, "4", model.Sale, "Piso en Campanar")
	detail := model.NewProperty(Source, "4", model.Sale, "Listing 4")
	detail.SetPrice(180000)

	merged := Merge(base, detail)
	require.NotNil(t, merged.Price)
	assert.Equal(t, 180000.0, *merged.Price)

	base.SetPrice(175000)
	merged = Merge(base, detail)
	assert.Equal(t, 175000.0, *merged.Price)
}
