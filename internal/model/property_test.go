package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPropertyDerivesID(t *testing.T) {
	cases := []struct {
		source, sourceID, want string
	}{
		{"idealista", "108123456", "idealista-108123456"},
		{"spain-real-estate", "4821", "spain-real-estate-4821"},
	}
	for _, c := range cases {
		p := NewProperty(c.source, c.sourceID, Sale, "Piso")
		assert.Equal(t, c.want, p.ID)
		assert.Equal(t, DefaultRegion, p.Region)
		assert.Equal(t, DefaultStatus, p.Status)
		assert.NotNil(t, p.Images)
		assert.NotNil(t, p.Specs)
	}
}

func TestNormalizeOverridesStaleID(t *testing.T) {
	p := Property{ID: "something-else", Source: "idealista", SourceID: "1", Title: "x", ListingType: Rent}
	p.Translations = []Translation{{Locale: "en", Title: "Flat"}}
	p.Normalize()

	assert.Equal(t, "idealista-1", p.ID)
	assert.Equal(t, "idealista-1", p.Translations[0].PropertyID)
	assert.NoError(t, p.Validate())
}

func TestValidate(t *testing.T) {
	p := NewProperty("idealista", "1", Sale, "Piso")
	require.NoError(t, p.Validate())

	lat := 39.47
	bad := p.Clone()
	bad.Latitude = &lat
	assert.Error(t, bad.Validate(), "latitude without longitude")

	bad = p.Clone()
	bad.Title = ""
	assert.Error(t, bad.Validate())

	bad = p.Clone()
	bad.ListingType = "auction"
	assert.Error(t, bad.Validate())

	bad = p.Clone()
	bad.SetPrice(-1)
	assert.Error(t, bad.Validate())

	ok := p.Clone()
	ok.SetCoordinates(39.47, -0.37)
	assert.NoError(t, ok.Validate())
}

func TestUnmarshalAppliesDefaults(t *testing.T) {
	line := `{"listing_type":"sale","title":"Villa in Altea, Spain","source":"spain-real-estate","source_id":"77",` +
		`"translations":[{"locale":"ru","title":"Вилла"}]}`

	var p Property
	require.NoError(t, json.Unmarshal([]byte(line), &p))
	assert.Equal(t, "spain-real-estate-77", p.ID)
	assert.Equal(t, DefaultRegion, p.Region)
	assert.Equal(t, "available", p.Status)
	assert.False(t, p.Enriched)
	assert.Equal(t, "spain-real-estate-77", p.Translations[0].PropertyID)
}

func TestUnmarshalRejectsInvalid(t *testing.T) {
	var p Property
	err := json.Unmarshal([]byte(`{"listing_type":"sale","title":"","source":"idealista","source_id":"1"}`), &p)
	assert.Error(t, err)
}

func TestMarshalOmitsAbsentOptionals(t *testing.T) {
	p := NewProperty("idealista", "9", Rent, "Piso en alquiler")
	data, err := json.Marshal(p)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.NotContains(t, fields, "price")
	assert.NotContains(t, fields, "latitude")
	assert.NotContains(t, fields, "sub_category")
	assert.Equal(t, "idealista-9", fields["id"])
	assert.Equal(t, false, fields["enriched"])
}

func TestCloneIsDeep(t *testing.T) {
	p := NewProperty("idealista", "1", Sale, "Piso")
	p.SetPrice(100)
	p.Specs["habitaciones"] = "2"
	p.Images = append(p.Images, "a.jpg")

	c := p.Clone()
	*c.Price = 200
	c.Specs["habitaciones"] = "3"
	c.Images[0] = "b.jpg"

	assert.Equal(t, 100.0, *p.Price)
	assert.Equal(t, "2", p.Specs["habitaciones"])
	assert.Equal(t, "a.jpg", p.Images[0])
}

func TestTranslationLookup(t *testing.T) {
	p := NewProperty("spain-real-estate", "1", Sale, "Piso")
	p.Translations = []Translation{{Locale: "en", Title: "Flat"}, {Locale: "ru", Title: "Квартира"}}

	tr, ok := p.Translation("ru")
	assert.True(t, ok)
	assert.Equal(t, "Квартира", tr.Title)

	_, ok = p.Translation("de")
	assert.False(t, ok)
}
