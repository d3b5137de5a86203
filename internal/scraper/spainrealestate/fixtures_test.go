package spainrealestate

import (
	"fmt"
	"strings"
)

const testBaseURL = "https://sre.test"

type card struct {
	id     string
	title  string
	price  string
	sold   bool
	rental bool
}

func listPage(total string, cards ...card) string {
	var b strings.Builder
	b.WriteString("<html><body>\n")
	if total != "" {
		fmt.Fprintf(&b, "<div class=\"total_counter\">1 - 24 out of %s</div>\n", total)
	}
	b.WriteString("<div class=\"objects-list\"><ul>\n")
	for _, c := range cards {
		fmt.Fprintf(&b, "<li data-object=%q>\n", c.id)
		fmt.Fprintf(&b, "  <div class=\"title\"><a href=\"/property/%s/\">%s</a></div>\n", c.id, c.title)
		switch {
		case c.sold:
			b.WriteString("  <div class=\"price\"><span class=\"small\">Sold</span></div>\n")
		case c.rental:
			fmt.Fprintf(&b, "  <div class=\"price\"><span>%s</span><span class=\"rent-period\">monthly</span></div>\n", c.price)
		default:
			fmt.Fprintf(&b, "  <div class=\"price\"><span>%s</span></div>\n", c.price)
		}
		b.WriteString("  <div class=\"params\"><span class=\"rooms\"><b>3</b></span> <span class=\"bedrooms\"><b>2</b></span> <span class=\"bathrooms\"><b>1</b></span> <span class=\"area\"><b>75 m²</b></span></div>\n")
		b.WriteString("  <div class=\"excerpt\">Bright home near the beach. Details</div>\n")
		fmt.Fprintf(&b, "  <img class=\"thumb\" src=\"https://img.test/%s/thumb.jpg\">\n", c.id)
		b.WriteString("</li>\n")
	}
	b.WriteString("</ul></div>\n</body></html>")
	return b.String()
}

func detailURL(id string) string {
	return testBaseURL + "/property/" + id + "/"
}

func translationURL(locale, id string) string {
	return testBaseURL + "/" + locale + "/property/" + id + "/"
}

func detailPage(id string) string {
	return `<html><head>
<link rel="alternate" hreflang="en" href="` + detailURL(id) + `">
<link rel="alternate" hreflang="es" href="` + translationURL("es", id) + `">
<link rel="alternate" hreflang="ru" href="` + translationURL("ru", id) + `">
<link rel="alternate" hreflang="x-default" href="` + detailURL(id) + `">
<meta itemprop="price" content="179000">
<meta itemprop="numberOfBedrooms" content="3">
<meta itemprop="numberOfBathroomsTotal" content="2">
</head><body>
<h1>Apartment in Benidorm, Spain No. ` + id + `</h1>
<div id="gallery_container"><div class="thumbs">
  <img data-real="https://img.test/a.jpg" src="https://img.test/a_t.jpg">
  <img data-big="https://img.test/b.jpg" src="https://img.test/b_t.jpg">
  <img src="https://img.test/c.jpg">
  <img data-real="https://img.test/a.jpg">
</div></div>
<div class="article" itemprop="description"><h2>Description</h2><p>Sea views from every room.</p></div>
<div class="features"><ul><li>Pool</li><li> </li><li>Garage</li></ul></div>
<div class="right_block parameters"><div class="params">
  <div><span class="name">Floor</span><span class="value">4</span></div>
  <div><span class="name">bedrooms</span><span class="value">2</span></div>
  <div><span class="name">Empty</span><span class="value"></span></div>
</div></div>
<script>
var OBJECT_MAP_DATA = {"nearby": [], "object": [{"lat": "38.5411", "lng": "-0.1225"}], "other": [{"lat": "1", "lng": "2"}]};
</script>
</body></html>`
}

func translationPage(title, description, feature string) string {
	return `<html><body><h1>` + title + `</h1>
<div class="article"><h2>Heading</h2><p>` + description + `</p></div>
<div class="features"><ul><li>` + feature + `</li></ul></div>
</body></html>`
}
