package idealista

import (
	"regexp"
	"strings"

	"github.com/dealmungchi/mirascraper/helpers"
	"github.com/dealmungchi/mirascraper/internal/model"
)

var (
	roomsRe = regexp.MustCompile(`^(\d+)\s*hab\.`)
	areaRe  = regexp.MustCompile(`^(\d+)\s*m²`)
)

// ParseFeatureStrings turns the compact feature strings of a listing ad,
// like "2 hab.", "97 m²" or "Planta 2ª Con ascensor", into specs.
// Unrecognized strings are kept as flags keyed by their own text.
func ParseFeatureStrings(features []string) map[string]any {
	specs := make(map[string]any)
	for _, raw := range features {
		feat := strings.TrimSpace(raw)
		if feat == "" {
			continue
		}

		if m := roomsRe.FindStringSubmatch(feat); m != nil {
			specs["habitaciones"] = m[1]
			continue
		}
		if m := areaRe.FindStringSubmatch(feat); m != nil {
			specs["superficie"] = m[1] + " m²"
			continue
		}

		lower := strings.ToLower(feat)
		if strings.Contains(lower, "planta") || strings.Contains(lower, "bajo") {
			specs["planta"] = feat
			switch {
			case strings.Contains(lower, "con ascensor"):
				specs["ascensor"] = "true"
			case strings.Contains(lower, "sin ascensor"):
				specs["ascensor"] = "false"
			}
			continue
		}

		specs[feat] = "true"
	}
	return specs
}

// ParseLabelFeatures flattens the feature groups of the embedded page data.
// Each group carries a "label" (or "labels") list; "key: value" labels are
// split, the others become flags.
func ParseLabelFeatures(groups []any) map[string]any {
	specs := make(map[string]any)
	for _, g := range groups {
		group, ok := g.(map[string]any)
		if !ok {
			continue
		}
		labels := group["label"]
		if !helpers.Truthy(labels) {
			labels = group["labels"]
		}

		switch l := labels.(type) {
		case []any:
			for _, item := range l {
				text := strings.TrimSpace(helpers.ToString(item))
				if text == "" {
					continue
				}
				if k, v, found := strings.Cut(text, ":"); found {
					specs[strings.TrimSpace(k)] = strings.TrimSpace(v)
				} else {
					specs[text] = "true"
				}
			}
		case string:
			specs[strings.TrimSpace(l)] = "true"
		}
	}
	return specs
}

var categoryKeywords = []struct {
	category model.SubCategory
	words    []string
}{
	{model.Apartment, []string{"piso", "apartamento", "ático", "atico", "estudio", "dúplex", "duplex"}},
	{model.House, []string{"casa", "chalet", "villa", "adosado", "pareado", "finca"}},
	{model.Commerce, []string{"local", "oficina", "nave", "comercial"}},
	{model.Plot, []string{"terreno", "parcela", "solar"}},
}

// GuessSubCategory maps a Spanish title to a sub-category by keyword.
// The first matching group wins; no match returns model.Unknown.
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

// placeholderTitle is used when a page offers no title at all
func placeholderTitle(id string) string {
	return "Listing " + id
}
