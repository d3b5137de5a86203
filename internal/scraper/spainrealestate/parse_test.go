package spainrealestate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealmungchi/mirascraper/internal/model"
)

func TestListURL(t *testing.T) {
	tests := []struct {
		name        string
		listingType model.ListingType
		tab         string
		page        int
		region      string
		regionID    int
		want        string
	}{
		{
			name:        "first sale page",
			listingType: model.Sale,
			tab:         "apartment",
			page:        1,
			region:      "Valencian Community",
			regionID:    4120,
			want:        testBaseURL + "/property/?tab=apartment&region=Valencian+Community&prj_region%5B%5D=4120",
		},
		{
			name:        "later rent page",
			listingType: model.Rent,
			tab:         "villa",
			page:        3,
			region:      "Valencian Community",
			regionID:    4120,
			want:        testBaseURL + "/rent/?tab=villa&region=Valencian+Community&prj_region%5B%5D=4120&n=3",
		},
		{
			name:        "no region",
			listingType: model.Sale,
			tab:         "land",
			page:        2,
			want:        testBaseURL + "/property/?tab=land&n=2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ListURL(testBaseURL, tt.listingType, tt.tab, tt.page, tt.region, tt.regionID))
		})
	}
}

func TestParseListPage(t *testing.T) {
	html := listPage("30",
		card{id: "101", title: "Apartment in Benidorm, Spain No. 101", price: "€ 181 000"},
		card{id: "102", title: "Villa in Altea, Spain No. 102", sold: true},
		card{id: "103", title: "Villa in Altea, Spain No. 103", price: "€ 2 500", rental: true},
	)

	items := ParseListPage(html, testBaseURL)
	require.Len(t, items, 2)

	first := items[0]
	assert.Equal(t, "101", first.SourceID)
	assert.Equal(t, "Apartment in Benidorm, Spain No. 101", first.Title)
	assert.Equal(t, testBaseURL+"/property/101/", first.SourceURL)
	assert.Equal(t, "€ 181 000", first.PriceText)
	assert.False(t, first.IsRental)
	assert.Equal(t, map[string]any{"rooms": "3", "bedrooms": "2", "bathrooms": "1", "area": "75 m²"}, first.Params)
	assert.Equal(t, "Bright home near the beach", first.Excerpt)
	assert.Equal(t, "https://img.test/101/thumb.jpg", first.Thumbnail)

	assert.Equal(t, "103", items[1].SourceID)
	assert.True(t, items[1].IsRental)
}

func TestParseListPageKeepsAbsoluteLinks(t *testing.T) {
	html := `<div class="objects-list"><ul>
<li data-object="7"><div class="title"><a href="https://elsewhere.test/p/7">House in Denia, Spain</a></div></li>
<li><div class="title"><a href="/p/8">No id</a></div></li>
</ul></div>`

	items := ParseListPage(html, testBaseURL)
	require.Len(t, items, 1)
	assert.Equal(t, "https://elsewhere.test/p/7", items[0].SourceURL)
}

func TestParseTotalCount(t *testing.T) {
	assert.Equal(t, 15089, ParseTotalCount(`<div class="total_counter">25 - 48 out of 15,089</div>`))
	assert.Equal(t, 312, ParseTotalCount(`<div class="objects_list totals"><span>312 properties</span></div>`))
	assert.Equal(t, 0, ParseTotalCount(`<div class="objects-list"></div>`))
}

func TestParseLastPage(t *testing.T) {
	html := `<ul class="pagination">
<li><a href="?n=1">1</a></li><li class="active">2</li><li><a href="?n=7">7</a></li><li><a href="?n=3">Next</a></li>
</ul>`
	assert.Equal(t, 7, ParseLastPage(html))
	assert.Equal(t, 1, ParseLastPage(`<p>no pagination</p>`))
}

func TestParseDetail(t *testing.T) {
	d := ParseDetail(detailPage("101"))

	require.NotNil(t, d.Latitude)
	require.NotNil(t, d.Longitude)
	assert.Equal(t, 38.5411, *d.Latitude)
	assert.Equal(t, -0.1225, *d.Longitude)

	require.NotNil(t, d.Price)
	assert.Equal(t, 179000.0, *d.Price)

	assert.Equal(t, []string{"https://img.test/a.jpg", "https://img.test/b.jpg", "https://img.test/c.jpg"}, d.Images)
	assert.Equal(t, []string{"Pool", "Garage"}, d.Features)
	assert.Equal(t, "Sea views from every room.", d.Description)
	assert.Equal(t, map[string]any{"Floor": "4", "bedrooms": "2", "bathrooms": "2"}, d.Specs)
	assert.Equal(t, map[string]string{
		"en": detailURL("101"),
		"es": translationURL("es", "101"),
		"ru": translationURL("ru", "101"),
	}, d.TranslationURLs)
	assert.False(t, d.Empty())
}

func TestParseDetailFallbacks(t *testing.T) {
	html := `<html><head>
<meta itemprop="latitude" content="39.47">
<meta itemprop="longitude" content="-0.37">
</head><body>
<div class="main_image"><img src="https://img.test/main.jpg"></div>
<div class="article"><p>Plain article.</p></div>
</body></html>`

	d := ParseDetail(html)
	require.NotNil(t, d.Latitude)
	assert.Equal(t, 39.47, *d.Latitude)
	assert.Equal(t, -0.37, *d.Longitude)
	assert.Nil(t, d.Price)
	assert.Equal(t, []string{"https://img.test/main.jpg"}, d.Images)
	assert.Equal(t, "Plain article.", d.Description)
}

func TestParseDetailIgnoresIncompleteMapData(t *testing.T) {
	html := `<script>var OBJECT_MAP_DATA = {"object": [{"lat": "", "lng": "-0.1"}]};</script>`

	d := ParseDetail(html)
	assert.Nil(t, d.Latitude)
	assert.Nil(t, d.Longitude)
	assert.True(t, d.Empty())
}

func TestParseTranslation(t *testing.T) {
	tr := ParseTranslation(translationPage("Apartamento en Benidorm", "Vistas al mar.", "Piscina"))
	assert.Equal(t, "Apartamento en Benidorm", tr.Title)
	assert.Equal(t, "Vistas al mar.", tr.Description)
	assert.Equal(t, []string{"Piscina"}, tr.Features)
}

func TestNormalizeSpecs(t *testing.T) {
	tests := []struct {
		name  string
		specs map[string]any
		want  map[string]any
	}{
		{
			name:  "area becomes size",
			specs: map[string]any{"area": "120.5 m²", "bedrooms": "3", "bathrooms": 2.0, "rooms": "4"},
			want:  map[string]any{"size": 120, "bedrooms": 3, "bathrooms": 2, "rooms": "4"},
		},
		{
			name:  "size used when area is empty",
			specs: map[string]any{"area": "", "size": "80"},
			want:  map[string]any{"size": 80},
		},
		{
			name:  "non numeric counts dropped",
			specs: map[string]any{"bedrooms": "two", "area": "n/a", "Floor": "4"},
			want:  map[string]any{"Floor": "4"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeSpecs(tt.specs))
		})
	}
}

func TestLocationFromTitle(t *testing.T) {
	tests := []struct {
		title        string
		municipality string
		province     string
	}{
		{"Apartment in Benidorm, Spain No. 101", "Benidorm", "Alicante"},
		{"Villa in Gandia No. 55", "Gandia", "Valencia"},
		{"House in Moraira, Teulada, Spain", "Moraira", "Teulada"},
		{"Penthouse in Somewhere, Spain", "Somewhere", ""},
		{"Apartment with sea views", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			municipality, province := LocationFromTitle(tt.title)
			assert.Equal(t, tt.municipality, municipality)
			assert.Equal(t, tt.province, province)
		})
	}
}

func TestGuessSubCategory(t *testing.T) {
	assert.Equal(t, model.Apartment, GuessSubCategory("Penthouse in Valencia"))
	assert.Equal(t, model.House, GuessSubCategory("Finca in Xàtiva"))
	assert.Equal(t, model.Commerce, GuessSubCategory("Hotel in Calpe"))
	assert.Equal(t, model.Plot, GuessSubCategory("Plot in Altea"))
	assert.Equal(t, model.Unknown, GuessSubCategory("Garage in Elche"))
}

func TestBuildPropertyFromCard(t *testing.T) {
	items := ParseListPage(listPage("", card{id: "101", title: "Apartment in Benidorm, Spain No. 101", price: "€ 181 000"}), testBaseURL)
	require.Len(t, items, 1)

	p := BuildProperty(items[0], model.Sale, "villa")

	assert.Equal(t, "spain-real-estate-101", p.ID)
	assert.Equal(t, model.Sale, p.ListingType)
	assert.Equal(t, model.House, p.SubCategory)
	assert.Equal(t, "Apartment in Benidorm, Spain No. 101", p.Title)
	assert.Equal(t, "Bright home near the beach", p.Description)
	require.NotNil(t, p.Price)
	assert.Equal(t, 181000.0, *p.Price)
	assert.Equal(t, "Benidorm", p.Location)
	assert.Equal(t, "Benidorm", p.Municipality)
	assert.Equal(t, "Alicante", p.Province)
	assert.Equal(t, []string{"https://img.test/101/thumb.jpg"}, p.Images)
	assert.Equal(t, map[string]any{"rooms": "3", "bedrooms": 2, "bathrooms": 1, "size": 75}, p.Specs)
	assert.Equal(t, []string{}, p.Features)
	assert.False(t, p.HasCoordinates())
	assert.False(t, p.Enriched)
	assert.NoError(t, p.Validate())
}

func TestBuildPropertyPrefersDetailAndSpanish(t *testing.T) {
	item := Item{
		SourceID:  "101",
		Title:     "Apartment in Benidorm, Spain No. 101",
		PriceText: "€ 181 000",
		IsRental:  true,
		Thumbnail: "https://img.test/thumb.jpg",
		Spanish:   &model.Translation{Locale: "es", Title: "Apartamento en Benidorm", Description: "Vistas al mar."},
		Translations: []model.Translation{
			{Locale: "en", Title: "Apartment in Benidorm"},
		},
	}
	item.Apply(ParseDetail(detailPage("101")))

	p := BuildProperty(item, model.Sale, "unknown-tab")

	assert.Equal(t, model.Rent, p.ListingType)
	assert.Equal(t, model.Apartment, p.SubCategory)
	assert.Equal(t, "Apartamento en Benidorm", p.Title)
	assert.Equal(t, "Vistas al mar.", p.Description)
	require.NotNil(t, p.Price)
	assert.Equal(t, 179000.0, *p.Price)
	assert.Equal(t, []string{"https://img.test/a.jpg", "https://img.test/b.jpg", "https://img.test/c.jpg"}, p.Images)
	assert.Equal(t, []string{"Pool", "Garage"}, p.Features)
	require.True(t, p.HasCoordinates())
	assert.Equal(t, 38.5411, *p.Latitude)
	require.Len(t, p.Translations, 1)
	assert.Equal(t, "spain-real-estate-101", p.Translations[0].PropertyID)
}

func TestBuildPropertyPlaceholderTitle(t *testing.T) {
	p := BuildProperty(Item{SourceID: "9"}, model.Sale, "land")

	assert.Equal(t, "Listing 9", p.Title)
	assert.Equal(t, model.Plot, p.SubCategory)
	assert.Nil(t, p.Price)
	assert.Equal(t, []string{}, p.Images)
	assert.Equal(t, map[string]any{}, p.Specs)
}

func TestKeepStored(t *testing.T) {
	stored := model.NewProperty(Source, "101", model.Sale, "Apartment in Benidorm, Spain No. 101")
	stored.Images = []string{"thumb.jpg"}
	stored.Description = "Sea views, two bedrooms"
	stored.Specs = map[string]any{"bedrooms": 2, "size": 75}
	stored.Municipality, stored.Province = "Benidorm", "Alicante"
	stored.SetCoordinates(38.5, -0.1)

	rebuilt := model.NewProperty(Source, "101", model.Sale, "Apartamento en Benidorm")
	rebuilt.Specs = map[string]any{"bedrooms": 3, "floor": "4"}

	out := KeepStored(stored, rebuilt)
	assert.Equal(t, "Apartamento en Benidorm", out.Title)
	assert.Equal(t, []string{"thumb.jpg"}, out.Images)
	assert.Equal(t, "Sea views, two bedrooms", out.Description)
	assert.Equal(t, map[string]any{"bedrooms": 3, "size": 75, "floor": "4"}, out.Specs)
	assert.Equal(t, "Alicante", out.Province)
	assert.True(t, out.HasCoordinates())

	rebuilt.Images = []string{"a.jpg", "b.jpg"}
	rebuilt.Description = "Vistas al mar."
	out = KeepStored(stored, rebuilt)
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, out.Images)
	assert.Equal(t, "Vistas al mar.", out.Description)

	rebuilt.Images = []string{"other.jpg"}
	out = KeepStored(stored, rebuilt)
	assert.Equal(t, []string{"thumb.jpg"}, out.Images, "same-size gallery does not replace")
}
