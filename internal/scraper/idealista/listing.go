package idealista

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/dealmungchi/mirascraper/helpers"
	"github.com/dealmungchi/mirascraper/internal/model"
	"github.com/dealmungchi/mirascraper/pkg/errors"
)

var (
	ajaxPaths = map[model.ListingType]string{
		model.Sale:        "/es/ajax/listing/georeach/venta-viviendas/valencia-valencia",
		model.Rent:        "/es/ajax/listing/georeach/alquiler-viviendas/valencia-valencia",
		model.NewBuilding: "/es/ajax/listing/georeach/valencia-valencia",
	}

	// HTML list pages only exist for sale and rent
	listPaths = map[model.ListingType]string{
		model.Sale: "/venta-viviendas/valencia-valencia/pagina-%d.htm",
		model.Rent: "/alquiler-viviendas/valencia-valencia/pagina-%d.htm",
	}

	warmupPaths = map[model.ListingType]string{
		model.Sale:        "/venta-viviendas/valencia-valencia/",
		model.Rent:        "/alquiler-viviendas/valencia-valencia/",
		model.NewBuilding: "/obra-nueva/valencia-valencia/",
	}

	detailIDRe = regexp.MustCompile(`/inmueble/(\d+)/`)
)

func ajaxURL(base string, lt model.ListingType) (string, bool) {
	path, ok := ajaxPaths[lt]
	return base + path, ok
}

func listURL(base string, lt model.ListingType, page int) (string, bool) {
	path, ok := listPaths[lt]
	if !ok {
		return "", false
	}
	return base + fmt.Sprintf(path, page), true
}

func warmupURL(base string, lt model.ListingType) string {
	path, ok := warmupPaths[lt]
	if !ok {
		path = warmupPaths[model.Sale]
	}
	return base + path
}

func detailURL(base, id string) string {
	return base + "/inmueble/" + id + "/"
}

// ListingIDs returns the ad ids of a list page and the number of pages the
// pagination announces. Ids come from the analytics data layer when
// present, otherwise from the result cards.
func ListingIDs(html string) ([]string, int) {
	var ids []string

	if utag, ok := helpers.DecodeJSVar(html, "utag_data"); ok {
		switch adIDs := utag["adIds"].(type) {
		case string:
			for _, id := range strings.Split(adIDs, ",") {
				if id = strings.TrimSpace(id); id != "" {
					ids = append(ids, id)
				}
			}
		case []any:
			for _, id := range adIDs {
				ids = append(ids, helpers.ToString(id))
			}
		}
	}

	doc := newDocument(html)

	if len(ids) == 0 {
		doc.Find("article.item").Each(func(_ int, article *goquery.Selection) {
			id := article.AttrOr("data-adid", "")
			if id == "" {
				href := article.Find("a.item-link").First().AttrOr("href", "")
				if m := detailIDRe.FindStringSubmatch(href); m != nil {
					id = m[1]
				}
			}
			if id != "" {
				ids = append(ids, id)
			}
		})
	}

	totalPages := 1
	doc.Find(".pagination-list li a").Each(func(_ int, a *goquery.Selection) {
		if n, err := strconv.Atoi(strings.TrimSpace(a.Text())); err == nil && n > totalPages {
			totalPages = n
		}
	})

	return ids, totalPages
}

// Ads extracts the ad list of a listing endpoint response. The ads sit
// under "body" or at the top level.
func Ads(raw []byte) ([]map[string]any, error) {
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, errors.NewParsing(Source, "listing response is not a JSON object", err)
	}

	body := data
	if b, ok := data["body"].(map[string]any); ok {
		body = b
	}

	list, _ := body["ads"].([]any)
	ads := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if ad, ok := item.(map[string]any); ok {
			ads = append(ads, ad)
		}
	}
	return ads, nil
}

// ParseAjaxAd builds a record from one ad of the listing endpoint. The
// address doubles as title; an "obra nueva" ribbon makes it a new building.
func ParseAjaxAd(ad map[string]any, listingType model.ListingType, baseURL string) (model.Property, error) {
	id := helpers.ToString(ad["adId"])
	if id == "" {
		return model.Property{}, errors.NewParsing(Source, "ad without adId", nil)
	}

	address := helpers.ToString(ad["address"])
	title := address
	if title == "" {
		title = placeholderTitle(id)
	}

	var features []string
	if raw, ok := ad["features"].([]any); ok {
		for _, f := range raw {
			features = append(features, helpers.ToString(f))
		}
	}

	var images []string
	if thumbs, ok := ad["thumbnails"].(map[string]any); ok {
		if thumb := helpers.ToString(thumbs["thumbnail"]); thumb != "" {
			images = append(images, thumb)
		}
	}

	sourceURL := detailURL(baseURL, id)
	if path := helpers.ToString(ad["detailUrl"]); path != "" {
		sourceURL = baseURL + path
	}

	if ribbons, ok := ad["ribbons"].([]any); ok {
		for _, r := range ribbons {
			if strings.Contains(strings.ToLower(helpers.ToString(r)), "obra nueva") {
				listingType = model.NewBuilding
				break
			}
		}
	}

	p := model.Property{
		Source:       Source,
		SourceID:     id,
		ListingType:  listingType,
		SubCategory:  GuessSubCategory(title),
		Title:        title,
		Location:     address,
		Municipality: "Valencia",
		Province:     "Valencia",
		Images:       images,
		Specs:        ParseFeatureStrings(features),
		Features:     features,
		SourceURL:    sourceURL,
	}
	if price, ok := helpers.ToFloat(ad["price"]); ok && price > 0 {
		p.SetPrice(price)
	}
	p.Normalize()

	if err := p.Validate(); err != nil {
		return model.Property{}, err
	}
	return p, nil
}
