package spainrealestate

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/dealmungchi/mirascraper/internal/model"
)

// ListURL builds a list page URL. Query parameters keep the order the
// site itself uses: tab, region, prj_region[], then n for pages after the
// first.
func ListURL(baseURL string, listingType model.ListingType, tab string, page int, region string, regionID int) string {
	path := "/property/"
	if listingType == model.Rent {
		path = "/rent/"
	}

	params := [][2]string{{"tab", tab}}
	if region != "" {
		params = append(params, [2]string{"region", region})
	}
	if regionID != 0 {
		params = append(params, [2]string{"prj_region[]", strconv.Itoa(regionID)})
	}
	if page > 1 {
		params = append(params, [2]string{"n", strconv.Itoa(page)})
	}

	query := make([]string, 0, len(params))
	for _, kv := range params {
		query = append(query, url.QueryEscape(kv[0])+"="+url.QueryEscape(kv[1]))
	}
	return baseURL + path + "?" + strings.Join(query, "&")
}
