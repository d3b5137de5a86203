package idealista

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/dealmungchi/mirascraper/helpers"
	"github.com/dealmungchi/mirascraper/internal/model"
)

const maxGalleryImages = 10

var (
	postalCodeRe  = regexp.MustCompile(`\b(\d{5})\b`)
	priceDigitsRe = regexp.MustCompile(`[^\d.,]`)
	latitudeRe    = regexp.MustCompile(`"latitude"\s*:\s*([\d.]+)`)
	longitudeRe   = regexp.MustCompile(`"longitude"\s*:\s*([\d.-]+)`)
)

// Location is the address breakdown of a detail page header
type Location struct {
	Location     string
	Province     string
	Municipality string
	Neighborhood string
	PostalCode   string
}

func newDocument(html string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		// the html tokenizer accepts any input; keep callers total anyway
		doc, _ = goquery.NewDocumentFromReader(strings.NewReader(""))
	}
	return doc
}

// HasListingData reports whether a parsed detail page carried anything
// beyond its title, which a captcha or error page never does
func HasListingData(p model.Property) bool {
	return p.Price != nil || p.Description != "" || p.HasCoordinates() ||
		len(p.Images) > 0 || len(p.Specs) > 0 || len(p.Features) > 0
}

// ParseDetailPage builds a record from a detail page. It never fails:
// missing data is left empty and the title falls back to a placeholder.
func ParseDetailPage(html, id string, listingType model.ListingType, baseURL string) model.Property {
	doc := newDocument(html)

	mortgages, _ := helpers.DecodeJSVar(html, "mortgagesConfig")
	adDetail, _ := helpers.DecodeJSVar(html, "adDetail")
	multimedia, _ := helpers.DecodeJSVar(html, "adMultimediasInfo")

	p := model.Property{
		Source:      Source,
		SourceID:    id,
		ListingType: listingType,
		SourceURL:   detailURL(baseURL, id),
	}

	if price, ok := detailPrice(doc, mortgages); ok {
		p.SetPrice(price)
	}

	p.Title = helpers.ToString(adDetail["headerTitle"])
	if p.Title == "" {
		p.Title = strings.TrimSpace(doc.Find("h1").First().Text())
	}
	if p.Title == "" {
		p.Title = placeholderTitle(id)
	}

	p.Images = galleryImages(multimedia)

	specs := make(map[string]any)
	if groups, ok := multimedia["features"].([]any); ok && len(groups) > 0 {
		for k, v := range ParseLabelFeatures(groups) {
			specs[k] = v
		}
	}
	if groups, ok := adDetail["headerFeatures"].([]any); ok && len(groups) > 0 {
		for k, v := range ParseLabelFeatures(groups) {
			specs[k] = v
		}
	}
	htmlSpecs, features := ParseDetailFeatures(doc)
	for k, v := range htmlSpecs {
		if _, ok := specs[k]; !ok {
			specs[k] = v
		}
	}
	p.Specs = specs
	p.Features = features

	loc := ExtractLocation(doc)
	p.Location = loc.Location
	p.Province = loc.Province
	p.Municipality = loc.Municipality
	p.Neighborhood = loc.Neighborhood
	p.PostalCode = loc.PostalCode

	p.Description = ExtractDescription(doc)

	if lat, lon, ok := ExtractCoordinates(doc, html); ok {
		p.SetCoordinates(lat, lon)
	}

	p.SubCategory = GuessSubCategory(p.Title)
	p.Normalize()
	return p
}

// detailPrice reads the mortgage calculator seed price, then the visible
// price ("185.000 €") as a fallback
func detailPrice(doc *goquery.Document, mortgages map[string]any) (float64, bool) {
	if v, ok := helpers.ToFloat(mortgages["initialPrice"]); ok && v > 0 {
		return v, true
	}

	el := doc.Find(".info-data-price .txt-bold").First()
	if el.Length() == 0 {
		return 0, false
	}
	text := priceDigitsRe.ReplaceAllString(strings.TrimSpace(el.Text()), "")
	text = strings.ReplaceAll(text, ".", "")
	text = strings.ReplaceAll(text, ",", ".")
	v, err := strconv.ParseFloat(text, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

func galleryImages(multimedia map[string]any) []string {
	images := []string{}
	pics, _ := multimedia["fullScreenGalleryPics"].([]any)
	for _, raw := range pics {
		pic, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if helpers.Truthy(pic["isPlan"]) {
			continue
		}
		url := helpers.ToString(pic["src"])
		if url == "" {
			url = helpers.ToString(pic["url"])
		}
		if url != "" {
			images = append(images, url)
		}
		if len(images) >= maxGalleryImages {
			break
		}
	}
	return images
}

// ParseDetailFeatures reads the feature list of the detail page. "key: value"
// items become specs, the rest features.
func ParseDetailFeatures(doc *goquery.Document) (map[string]any, []string) {
	specs := make(map[string]any)
	features := []string{}

	container := doc.Find(".details-property_features").First()
	container.Find("li").Each(func(_ int, li *goquery.Selection) {
		text := helpers.CleanText(li.Text())
		if text == "" {
			return
		}
		if k, v, found := strings.Cut(text, ":"); found {
			specs[strings.TrimSpace(k)] = strings.TrimSpace(v)
			return
		}
		features = append(features, text)
	})
	return specs, features
}

// ExtractLocation reads the address list of the map header. The last three
// items are neighborhood, municipality and province.
func ExtractLocation(doc *goquery.Document) Location {
	var loc Location

	header := doc.Find("#headerMap").First()
	if header.Length() == 0 {
		return loc
	}

	var texts []string
	header.Find("li").Each(func(_ int, li *goquery.Selection) {
		if text := helpers.CleanText(li.Text()); text != "" {
			texts = append(texts, text)
		}
	})

	loc.Location = strings.Join(texts, ", ")
	for _, text := range texts {
		if m := postalCodeRe.FindStringSubmatch(text); m != nil {
			loc.PostalCode = m[1]
		}
	}

	switch n := len(texts); {
	case n >= 3:
		loc.Neighborhood = texts[n-3]
		loc.Municipality = texts[n-2]
		loc.Province = texts[n-1]
	case n == 2:
		loc.Municipality = texts[0]
		loc.Province = texts[1]
	case n == 1:
		loc.Municipality = texts[0]
	}
	return loc
}

// ExtractDescription returns the advertiser's comment
func ExtractDescription(doc *goquery.Document) string {
	comment := doc.Find(".comment").First()
	if comment.Length() == 0 {
		comment = doc.Find("#details-content .adCommentsLanguage").First()
	}
	return strings.TrimSpace(comment.Text())
}

// ExtractCoordinates reads the map container data attributes, then scans
// the raw page for latitude/longitude keys
func ExtractCoordinates(doc *goquery.Document, html string) (float64, float64, bool) {
	if el := doc.Find("#mapWrapper, .map-container, [data-latitude]").First(); el.Length() > 0 {
		lat, latErr := strconv.ParseFloat(el.AttrOr("data-latitude", ""), 64)
		lon, lonErr := strconv.ParseFloat(el.AttrOr("data-longitude", ""), 64)
		if latErr == nil && lonErr == nil {
			return lat, lon, true
		}
	}

	latMatch := latitudeRe.FindStringSubmatch(html)
	lonMatch := longitudeRe.FindStringSubmatch(html)
	if latMatch == nil || lonMatch == nil {
		return 0, 0, false
	}
	lat, latErr := strconv.ParseFloat(latMatch[1], 64)
	lon, lonErr := strconv.ParseFloat(lonMatch[1], 64)
	if latErr != nil || lonErr != nil {
		return 0, 0, false
	}
	return lat, lon, true
}
