package spainrealestate

import (
	"maps"

	"github.com/dealmungchi/mirascraper/helpers"
	"github.com/dealmungchi/mirascraper/internal/model"
)

// Tabs lists the property-type sections in scrape order
var Tabs = []string{"apartment", "villa", "commercial", "land"}

// TabSubCategory maps a section to the sub-category of its listings
var TabSubCategory = map[string]model.SubCategory{
	"apartment":  model.Apartment,
	"villa":      model.House,
	"commercial": model.Commerce,
	"land":       model.Plot,
}

// tabFor returns the section a sub-category is listed under
func tabFor(c model.SubCategory) string {
	for tab, sc := range TabSubCategory {
		if sc == c {
			return tab
		}
	}
	return "apartment"
}

// Item is a listing as it is assembled: the list card, optionally
// completed with its detail page and translations.
type Item struct {
	SourceID  string
	Title     string
	SourceURL string
	PriceText string
	IsRental  bool
	// Params holds the raw rooms, bedrooms, bathrooms and area of the card
	Params    map[string]any
	Excerpt   string
	Thumbnail string

	Detail       Detail
	Spanish      *model.Translation
	Translations []model.Translation
}

// Apply overlays the detail page data
func (it *Item) Apply(d Detail) {
	price := it.Detail.Price
	it.Detail = d
	if d.Price == nil {
		it.Detail.Price = price
	}
}

// BuildProperty turns an item into a canonical record. The English title
// drives category guessing and location; the Spanish translation, when
// present, supplies the stored title and description.
func BuildProperty(item Item, listingType model.ListingType, tab string) model.Property {
	enTitle := item.Title
	if enTitle == "" {
		enTitle = "Listing " + item.SourceID
	}

	if item.IsRental {
		listingType = model.Rent
	}

	title := enTitle
	if item.Spanish != nil && item.Spanish.Title != "" {
		title = item.Spanish.Title
	}

	p := model.NewProperty(Source, item.SourceID, listingType, title)

	if d := item.Detail.Price; d != nil && *d != 0 {
		p.SetPrice(*d)
	} else if v, ok := helpers.ParsePrice(item.PriceText); ok {
		p.SetPrice(v)
	}

	if sc, ok := TabSubCategory[tab]; ok {
		p.SubCategory = sc
	} else {
		p.SubCategory = GuessSubCategory(enTitle)
	}

	p.Municipality, p.Province = LocationFromTitle(enTitle)
	p.Location = p.Municipality

	switch {
	case item.Spanish != nil && item.Spanish.Description != "":
		p.Description = item.Spanish.Description
	case item.Detail.Description != "":
		p.Description = item.Detail.Description
	default:
		p.Description = item.Excerpt
	}

	raw := maps.Clone(item.Params)
	if raw == nil {
		raw = map[string]any{}
	}
	maps.Copy(raw, item.Detail.Specs)
	p.Specs = NormalizeSpecs(raw)

	if item.Thumbnail != "" {
		p.Images = []string{item.Thumbnail}
	}
	if len(item.Detail.Images) > 0 {
		p.Images = append([]string{}, item.Detail.Images...)
	}

	if item.Detail.Latitude != nil && item.Detail.Longitude != nil {
		p.SetCoordinates(*item.Detail.Latitude, *item.Detail.Longitude)
	}
	p.Features = append([]string{}, item.Detail.Features...)
	p.SourceURL = item.SourceURL
	p.Translations = append([]model.Translation{}, item.Translations...)

	p.Normalize()
	return p
}

// KeepStored completes a record rebuilt from the detail page with what the
// stored record already had. Present values are never blanked: the stored
// gallery stays unless the new one is strictly larger, and stored spec keys,
// description, coordinates, features and location fill the gaps.
func KeepStored(stored, rebuilt model.Property) model.Property {
	out := rebuilt.Clone()

	if len(out.Images) <= len(stored.Images) {
		out.Images = append([]string{}, stored.Images...)
	}
	if out.Description == "" {
		out.Description = stored.Description
	}
	if out.Price == nil && stored.Price != nil {
		out.SetPrice(*stored.Price)
	}
	if !out.HasCoordinates() && stored.HasCoordinates() {
		out.SetCoordinates(*stored.Latitude, *stored.Longitude)
	}
	for k, v := range stored.Specs {
		if _, ok := out.Specs[k]; !ok {
			out.Specs[k] = v
		}
	}
	if len(out.Features) == 0 {
		out.Features = append([]string{}, stored.Features...)
	}
	if out.SubCategory == model.Unknown {
		out.SubCategory = stored.SubCategory
	}
	if out.Municipality == "" {
		out.Municipality, out.Province, out.Location = stored.Municipality, stored.Province, stored.Location
	}
	if out.Neighborhood == "" {
		out.Neighborhood = stored.Neighborhood
	}
	if out.PostalCode == "" {
		out.PostalCode = stored.PostalCode
	}
	for _, tr := range stored.Translations {
		if _, ok := out.Translation(tr.Locale); !ok {
			tr.Features = append([]string(nil), tr.Features...)
			out.Translations = append(out.Translations, tr)
		}
	}

	out.Normalize()
	return out
}
