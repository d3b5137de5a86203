package idealista

import "github.com/dealmungchi/mirascraper/internal/model"

// Merge completes a list-derived record with its detail page record. Only
// gaps are filled: the gallery is taken when it is larger, missing spec
// keys are added, and a real detail title replaces the address title.
// base is not modified.
func Merge(base, detail model.Property) model.Property {
	out := base.Clone()

	if out.Price == nil && detail.Price != nil {
		out.SetPrice(*detail.Price)
	}
	if out.Description == "" && detail.Description != "" {
		out.Description = detail.Description
	}
	if !out.HasCoordinates() && detail.HasCoordinates() {
		out.SetCoordinates(*detail.Latitude, *detail.Longitude)
	}
	if out.Neighborhood == "" && detail.Neighborhood != "" {
		out.Neighborhood = detail.Neighborhood
	}
	if out.PostalCode == "" && detail.PostalCode != "" {
		out.PostalCode = detail.PostalCode
	}
	if len(detail.Images) > len(out.Images) {
		out.Images = append([]string{}, detail.Images...)
	}
	for k, v := range detail.Specs {
		if _, ok := out.Specs[k]; !ok {
			out.Specs[k] = v
		}
	}
	if detail.Title != "" && detail.Title != placeholderTitle(out.SourceID) {
		out.Title = detail.Title
		out.SubCategory = GuessSubCategory(out.Title)
	}

	out.Normalize()
	return out
}
