package spainrealestate

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/dealmungchi/mirascraper/helpers"
	"github.com/dealmungchi/mirascraper/internal/model"
)

var (
	outOfRe      = regexp.MustCompile(`out of\s+([\d,]+)`)
	countRe      = regexp.MustCompile(`([\d,]+)`)
	mapDataRe    = regexp.MustCompile(`(?s)OBJECT_MAP_DATA\s*=\s*(\{.*?\});`)
	leadingNumRe = regexp.MustCompile(`^[\d.]+`)
	titlePlaceRe = regexp.MustCompile(`(?i)\bin\s+(.+?)(?:,\s*Spain|\s+No\.)`)
)

func newDocument(html string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		doc, _ = goquery.NewDocumentFromReader(strings.NewReader(""))
	}
	return doc
}

func text(s *goquery.Selection) string {
	return strings.TrimSpace(s.Text())
}

func parseCount(raw string) int {
	n, err := strconv.Atoi(strings.ReplaceAll(raw, ",", ""))
	if err != nil {
		return 0
	}
	return n
}

// ParseTotalCount reads the number of listings the page reports, from the
// "25 - 48 out of 15089" counter or the "15089 properties" heading.
// Returns 0 when neither is present.
func ParseTotalCount(html string) int {
	doc := newDocument(html)

	if counter := doc.Find("div.total_counter").First(); counter.Length() > 0 {
		if m := outOfRe.FindStringSubmatch(counter.Text()); m != nil {
			return parseCount(m[1])
		}
	}
	if totals := doc.Find("div.objects_list.totals span").First(); totals.Length() > 0 {
		if m := countRe.FindStringSubmatch(totals.Text()); m != nil {
			return parseCount(m[1])
		}
	}
	return 0
}

// ParseLastPage returns the highest page number of the pagination list
func ParseLastPage(html string) int {
	doc := newDocument(html)
	last := 1
	doc.Find("ul.pagination li").Each(func(_ int, li *goquery.Selection) {
		label := text(li)
		if a := li.Find("a").First(); a.Length() > 0 {
			label = text(a)
		}
		if n, err := strconv.Atoi(label); err == nil && n > last {
			last = n
		}
	})
	return last
}

// ParseListPage extracts the listing cards of a list page. Sold listings
// are skipped.
func ParseListPage(html, baseURL string) []Item {
	doc := newDocument(html)
	var items []Item

	doc.Find("div.objects-list ul > li[data-object]").Each(func(_ int, li *goquery.Selection) {
		id := li.AttrOr("data-object", "")
		if id == "" {
			return
		}
		item := Item{SourceID: id, Params: map[string]any{}}

		if a := li.Find("div.title a").First(); a.Length() > 0 {
			item.Title = text(a)
			href := a.AttrOr("href", "")
			if href != "" && !strings.HasPrefix(href, "http") {
				href = baseURL + href
			}
			item.SourceURL = href
		}

		if price := li.Find("div.price").First(); price.Length() > 0 {
			if sold := price.Find("span.small").First(); sold.Length() > 0 &&
				strings.Contains(strings.ToLower(text(sold)), "sold") {
				return
			}
			price.Find("span").EachWithBreak(func(_ int, span *goquery.Selection) bool {
				if t := text(span); strings.Contains(t, "€") {
					item.PriceText = t
					return false
				}
				return true
			})
			if li.Find("span.rent-period").Length() > 0 {
				item.IsRental = true
			}
		}

		for _, key := range []string{"rooms", "bedrooms", "bathrooms", "area"} {
			if b := li.Find("span." + key + " b").First(); b.Length() > 0 {
				item.Params[key] = text(b)
			}
		}

		if excerpt := li.Find("div.excerpt").First(); excerpt.Length() > 0 {
			item.Excerpt = text(excerpt)
			if trimmed, ok := strings.CutSuffix(item.Excerpt, "Details"); ok {
				item.Excerpt = strings.TrimRight(trimmed, ". ")
			}
		}

		if thumb := li.Find("img.thumb").First(); thumb.Length() > 0 {
			item.Thumbnail = thumb.AttrOr("src", "")
		}

		items = append(items, item)
	})

	return items
}

// Detail is what a detail page adds to a listing card
type Detail struct {
	Latitude        *float64
	Longitude       *float64
	Price           *float64
	Images          []string
	Features        []string
	Description     string
	Specs           map[string]any
	TranslationURLs map[string]string
}

// Empty reports whether the page yielded nothing usable
func (d Detail) Empty() bool {
	return d.Latitude == nil && d.Price == nil && len(d.Images) == 0 && len(d.Features) == 0 &&
		d.Description == "" && len(d.Specs) == 0 && len(d.TranslationURLs) == 0
}

var metaSpecs = []struct{ itemprop, key string }{
	{"numberOfRooms", "rooms"},
	{"numberOfBedrooms", "bedrooms"},
	{"numberOfBathroomsTotal", "bathrooms"},
}

// ParseDetail extracts coordinates, price, gallery, features, description,
// sidebar specs and the alternate language links of a detail page
func ParseDetail(html string) Detail {
	doc := newDocument(html)
	var d Detail

	if m := mapDataRe.FindStringSubmatch(html); m != nil {
		if lat, lng, ok := firstMapPoint(m[1]); ok {
			d.Latitude, d.Longitude = &lat, &lng
		}
	}
	if d.Latitude == nil {
		lat, latErr := strconv.ParseFloat(doc.Find(`meta[itemprop="latitude"]`).First().AttrOr("content", ""), 64)
		lng, lngErr := strconv.ParseFloat(doc.Find(`meta[itemprop="longitude"]`).First().AttrOr("content", ""), 64)
		if latErr == nil && lngErr == nil {
			d.Latitude, d.Longitude = &lat, &lng
		}
	}

	if v, err := strconv.ParseFloat(doc.Find(`meta[itemprop="price"]`).First().AttrOr("content", ""), 64); err == nil {
		d.Price = &v
	}

	seen := map[string]bool{}
	doc.Find("#gallery_container .thumbs img").Each(func(_ int, img *goquery.Selection) {
		src := img.AttrOr("data-real", "")
		if src == "" {
			src = img.AttrOr("data-big", "")
		}
		if src == "" {
			src = img.AttrOr("src", "")
		}
		if src != "" && !seen[src] {
			seen[src] = true
			d.Images = append(d.Images, src)
		}
	})
	if len(d.Images) == 0 {
		if src := doc.Find(".main_image img").First().AttrOr("src", ""); src != "" {
			d.Images = append(d.Images, src)
		}
	}

	d.Features = featureList(doc)
	d.Description = articleText(doc)

	specs := map[string]any{}
	doc.Find(".right_block.parameters .params > div").Each(func(_ int, div *goquery.Selection) {
		name := div.Find("span.name").First()
		value := div.Find("span.value").First()
		if name.Length() == 0 || value.Length() == 0 {
			return
		}
		if k, v := text(name), text(value); k != "" && v != "" {
			specs[k] = v
		}
	})
	for _, ms := range metaSpecs {
		if _, ok := specs[ms.key]; ok {
			continue
		}
		if v := doc.Find(`meta[itemprop="` + ms.itemprop + `"]`).First().AttrOr("content", ""); v != "" {
			specs[ms.key] = v
		}
	}
	if len(specs) > 0 {
		d.Specs = specs
	}

	urls := map[string]string{}
	doc.Find(`link[rel="alternate"][hreflang]`).Each(func(_ int, link *goquery.Selection) {
		lang := link.AttrOr("hreflang", "")
		href := link.AttrOr("href", "")
		if lang != "" && href != "" && lang != "x-default" {
			urls[lang] = href
		}
	})
	if len(urls) > 0 {
		d.TranslationURLs = urls
	}

	return d
}

// firstMapPoint reads {"key": [{"lat": "..", "lng": ".."}], ...} and returns
// the first point of the first non-empty list, in document order
func firstMapPoint(raw string) (float64, float64, bool) {
	dec := json.NewDecoder(strings.NewReader(raw))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return 0, 0, false
	}
	for dec.More() {
		if _, err := dec.Token(); err != nil {
			return 0, 0, false
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return 0, 0, false
		}
		entries, ok := value.([]any)
		if !ok || len(entries) == 0 {
			continue
		}
		entry, _ := entries[0].(map[string]any)
		if !helpers.Truthy(entry["lat"]) || !helpers.Truthy(entry["lng"]) {
			return 0, 0, false
		}
		lat, latOK := helpers.ToFloat(entry["lat"])
		lng, lngOK := helpers.ToFloat(entry["lng"])
		return lat, lng, latOK && lngOK
	}
	return 0, 0, false
}

func featureList(doc *goquery.Document) []string {
	var features []string
	doc.Find(".features ul li").Each(func(_ int, li *goquery.Selection) {
		if t := text(li); t != "" {
			features = append(features, t)
		}
	})
	return features
}

// articleText returns the description block without its heading
func articleText(doc *goquery.Document) string {
	article := doc.Find(`div.article[itemprop="description"], div.article`).First()
	if article.Length() == 0 {
		return ""
	}
	article = article.Clone()
	article.Find("h2").First().Remove()
	return text(article)
}

// ParseTranslation extracts the localized title, description and features
// of a detail page
func ParseTranslation(html string) model.Translation {
	doc := newDocument(html)
	return model.Translation{
		Title:       text(doc.Find("h1").First()),
		Description: articleText(doc),
		Features:    featureList(doc),
	}
}

// NormalizeSpecs renames area to an integer size and turns bedroom and
// bathroom counts into integers. Other keys pass through.
func NormalizeSpecs(specs map[string]any) map[string]any {
	out := make(map[string]any, len(specs))

	area := specs["area"]
	if !helpers.Truthy(area) {
		area = specs["size"]
	}
	if area != nil {
		if m := leadingNumRe.FindString(strings.TrimSpace(helpers.ToString(area))); m != "" {
			if v, err := strconv.ParseFloat(m, 64); err == nil {
				out["size"] = int(v)
			}
		}
	}

	for _, key := range []string{"bedrooms", "bathrooms"} {
		if n, ok := toInt(specs[key]); ok {
			out[key] = n
		}
	}

	for k, v := range specs {
		switch k {
		case "area", "size", "bedrooms", "bathrooms":
			continue
		}
		out[k] = v
	}
	return out
}

func toInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case float64:
		return int(x), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		return n, err == nil
	}
	return 0, false
}

var categoryKeywords = []struct {
	category model.SubCategory
	words    []string
}{
	{model.Apartment, []string{"apartment", "flat", "penthouse", "duplex", "studio", "townhouse"}},
	{model.House, []string{"villa", "house", "chalet", "bungalow", "finca"}},
	{model.Commerce, []string{"commercial", "office", "shop", "hotel", "business", "restaurant"}},
	{model.Plot, []string{"land", "plot"}},
}

// GuessSubCategory maps an English title to a sub-category by keyword
func GuessSubCategory(title string) model.SubCategory {
	lower := strings.ToLower(title)
	for _, group := range categoryKeywords {
		for _, w := range group.words {
			if strings.Contains(lower, w) {
				return group.category
			}
		}
	}
	return model.Unknown
}

// cityProvince covers the Valencian Community cities the portal lists most
var cityProvince = map[string]string{
	"valencia":             "Valencia",
	"alicante":             "Alicante",
	"castellón":            "Castellón",
	"castellon":            "Castellón",
	"benidorm":             "Alicante",
	"torrevieja":           "Alicante",
	"calpe":                "Alicante",
	"denia":                "Alicante",
	"altea":                "Alicante",
	"orihuela":             "Alicante",
	"elche":                "Alicante",
	"gandia":               "Valencia",
	"sagunto":              "Valencia",
	"xàtiva":               "Valencia",
	"jávea":                "Alicante",
	"javea":                "Alicante",
	"villajoyosa":          "Alicante",
	"guardamar del segura": "Alicante",
	"pilar de la horadada": "Alicante",
	"benicàssim":           "Castellón",
	"peñíscola":            "Castellón",
	"vinaròs":              "Castellón",
}

// LocationFromTitle reads "… in City[, Province], Spain" (or "… in City
// No. 123") titles. The province comes from the city table, else from the
// second comma-separated part.
func LocationFromTitle(title string) (municipality, province string) {
	m := titlePlaceRe.FindStringSubmatch(title)
	if m == nil {
		return "", ""
	}

	var parts []string
	for _, p := range strings.Split(m[1], ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return "", ""
	}

	municipality = parts[0]
	if p, ok := cityProvince[strings.ToLower(municipality)]; ok {
		province = p
	} else if len(parts) > 1 {
		province = parts[1]
	}
	return municipality, province
}
