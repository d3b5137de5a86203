package model

import (
	"encoding/json"
	"fmt"

	"github.com/dealmungchi/mirascraper/pkg/errors"
)

// ListingType classifies what the listing offers
type ListingType string

const (
	Sale        ListingType = "sale"
	Rent        ListingType = "rent"
	NewBuilding ListingType = "new-building"
)

// Valid reports whether t is one of the known listing types
func (t ListingType) Valid() bool {
	switch t {
	case Sale, Rent, NewBuilding:
		return true
	}
	return false
}

// SubCategory is the property kind. The zero value means unknown.
type SubCategory string

const (
	Unknown   SubCategory = ""
	Apartment SubCategory = "apartment"
	House     SubCategory = "house"
	Commerce  SubCategory = "commerce"
	Plot      SubCategory = "plot"
)

// Valid reports whether c is unknown or one of the four categories
func (c SubCategory) Valid() bool {
	switch c {
	case Unknown, Apartment, House, Commerce, Plot:
		return true
	}
	return false
}

const (
	DefaultRegion = "Comunidad Valenciana"
	DefaultStatus = "available"
)

// Translation is a localized view of a property
type Translation struct {
	PropertyID  string   `json:"property_id"`
	Locale      string   `json:"locale"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Features    []string `json:"features,omitempty"`
}

// Property is the canonical listing record shared by every source
type Property struct {
	ID           string         `json:"id"`
	ListingType  ListingType    `json:"listing_type"`
	SubCategory  SubCategory    `json:"sub_category,omitempty"`
	Status       string         `json:"status"`
	Title        string         `json:"title"`
	Description  string         `json:"description,omitempty"`
	Price        *float64       `json:"price,omitempty"`
	Location     string         `json:"location,omitempty"`
	Region       string         `json:"region"`
	Province     string         `json:"province,omitempty"`
	Municipality string         `json:"municipality,omitempty"`
	Neighborhood string         `json:"neighborhood,omitempty"`
	PostalCode   string         `json:"postal_code,omitempty"`
	Latitude     *float64       `json:"latitude,omitempty"`
	Longitude    *float64       `json:"longitude,omitempty"`
	Images       []string       `json:"images"`
	Specs        map[string]any `json:"specs"`
	Features     []string       `json:"features"`
	Source       string         `json:"source"`
	SourceID     string         `json:"source_id"`
	SourceURL    string         `json:"source_url,omitempty"`
	Enriched     bool           `json:"enriched"`
	Translations []Translation  `json:"translations"`
}

// NewProperty returns a record with its identity derived and defaults applied
func NewProperty(source, sourceID string, listingType ListingType, title string) Property {
	p := Property{
		Source:      source,
		SourceID:    sourceID,
		ListingType: listingType,
		Title:       title,
	}
	p.Normalize()
	return p
}

// MakeID derives the record id from its natural key
func MakeID(source, sourceID string) string {
	return source + "-" + sourceID
}

// Normalize derives the id, applies defaults, back-fills translation owner
// ids and replaces nil collections with empty ones.
func (p *Property) Normalize() {
	p.ID = MakeID(p.Source, p.SourceID)
	if p.Region == "" {
		p.Region = DefaultRegion
	}
	if p.Status == "" {
		p.Status = DefaultStatus
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	if p.Specs == nil {
		p.Specs = map[string]any{}
	}
	if p.Features == nil {
		p.Features = []string{}
	}
	if p.Translations == nil {
		p.Translations = []Translation{}
	}
	for i := range p.Translations {
		p.Translations[i].PropertyID = p.ID
	}
}

// SetCoordinates sets latitude and longitude together
func (p *Property) SetCoordinates(lat, lon float64) {
	p.Latitude = &lat
	p.Longitude = &lon
}

// HasCoordinates reports whether both coordinates are present
func (p *Property) HasCoordinates() bool {
	return p.Latitude != nil && p.Longitude != nil
}

// SetPrice stores a price value
func (p *Property) SetPrice(v float64) {
	p.Price = &v
}

// Translation returns the translation for locale, if any
func (p *Property) Translation(locale string) (Translation, bool) {
	for _, t := range p.Translations {
		if t.Locale == locale {
			return t, true
		}
	}
	return Translation{}, false
}

// Validate checks the record invariants
func (p *Property) Validate() error {
	if p.Source == "" || p.SourceID == "" {
		return errors.NewValidation(p.Source, "source and source_id are required")
	}
	if p.ID != MakeID(p.Source, p.SourceID) {
		return errors.NewValidation(p.Source, fmt.Sprintf("id %q does not match %s-%s", p.ID, p.Source, p.SourceID))
	}
	if p.Title == "" {
		return errors.NewValidation(p.Source, fmt.Sprintf("%s: title is required", p.ID))
	}
	if !p.ListingType.Valid() {
		return errors.NewValidation(p.Source, fmt.Sprintf("%s: invalid listing_type %q", p.ID, p.ListingType))
	}
	if !p.SubCategory.Valid() {
		return errors.NewValidation(p.Source, fmt.Sprintf("%s: invalid sub_category %q", p.ID, p.SubCategory))
	}
	if p.Price != nil && *p.Price < 0 {
		return errors.NewValidation(p.Source, fmt.Sprintf("%s: negative price", p.ID))
	}
	if (p.Latitude == nil) != (p.Longitude == nil) {
		return errors.NewValidation(p.Source, fmt.Sprintf("%s: latitude and longitude must be set together", p.ID))
	}
	return nil
}

// UnmarshalJSON decodes a persisted record, applying defaults and checking
// invariants the same way construction does.
func (p *Property) UnmarshalJSON(data []byte) error {
	type plain Property
	var raw plain
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = Property(raw)
	p.Normalize()
	return p.Validate()
}

// Clone returns a deep copy so callers can build a new record without
// touching the original.
func (p Property) Clone() Property {
	out := p
	if p.Price != nil {
		v := *p.Price
		out.Price = &v
	}
	if p.Latitude != nil {
		v := *p.Latitude
		out.Latitude = &v
	}
	if p.Longitude != nil {
		v := *p.Longitude
		out.Longitude = &v
	}
	out.Images = append([]string{}, p.Images...)
	out.Features = append([]string{}, p.Features...)
	out.Specs = make(map[string]any, len(p.Specs))
	for k, v := range p.Specs {
		out.Specs[k] = v
	}
	out.Translations = make([]Translation, len(p.Translations))
	for i, t := range p.Translations {
		t.Features = append([]string(nil), t.Features...)
		out.Translations[i] = t
	}
	return out
}
