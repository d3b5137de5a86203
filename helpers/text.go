package helpers

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var periodWordRe = regexp.MustCompile(`(?i)(monthly|yearly|weekly)`)

// ParsePrice parses texts like "€ 181 000" or "€ 1 977monthly". The period
// word may be glued to the digits. Empty or unparseable input reports false.
func ParsePrice(text string) (float64, bool) {
	if text == "" {
		return 0, false
	}
	s := strings.ReplaceAll(text, "€", "")
	s = periodWordRe.ReplaceAllString(s, "")
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, false
	}
	return v, true
}

// CleanText collapses every whitespace run to a single space and trims
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ToFloat converts a decoded JSON value to a float
func ToFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}

// ToString renders a decoded JSON scalar the way it appeared in the source.
// Whole numbers keep no decimal part.
func ToString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case json.Number:
		return x.String()
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	}
	return fmt.Sprint(v)
}

// Truthy mirrors the loose truthiness of decoded JSON values
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case float64:
		return x != 0
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	}
	return true
}
