package helpers

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	lineCommentRe   = regexp.MustCompile(`(?m)//.*$`)
	blockCommentRe  = regexp.MustCompile(`(?s)/\*.*?\*/`)
	undefinedRe     = regexp.MustCompile(`\bundefined\b`)
	bareKeyRe       = regexp.MustCompile(`([{,])\s*([a-zA-Z_$][a-zA-Z0-9_$]*)\s*:`)
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
)

// ExtractJSVar returns the raw literal assigned to name inside the page's
// scripts. Both "var name = {...}" and "name = {...}" are accepted, the object
// form is tried before the array form and the trailing semicolon is optional.
//
// The literal ends at the last closing brace before the first ';', so a raw
// semicolon inside a string value truncates the match.
func ExtractJSVar(html, name string) (string, bool) {
	quoted := regexp.QuoteMeta(name)
	objectRe := regexp.MustCompile(`(?s)(?:var\s+)?` + quoted + `\s*=\s*(\{[^;]*\});?`)
	if m := objectRe.FindStringSubmatch(html); m != nil {
		return m[1], true
	}

	arrayRe := regexp.MustCompile(`(?s)(?:var\s+)?` + quoted + `\s*=\s*(\[[^;]*\]);?`)
	if m := arrayRe.FindStringSubmatch(html); m != nil {
		return m[1], true
	}
	return "", false
}

// JSToJSON rewrites a permissive JavaScript literal into strict JSON. The
// steps run in a fixed order: quotes, comments, undefined, bare keys,
// trailing commas.
func JSToJSON(js string) string {
	s := js
	s = strings.ReplaceAll(s, "'", `"`)
	s = lineCommentRe.ReplaceAllString(s, "")
	s = blockCommentRe.ReplaceAllString(s, "")
	s = undefinedRe.ReplaceAllString(s, "null")
	s = bareKeyRe.ReplaceAllString(s, `${1} "${2}":`)
	s = trailingCommaRe.ReplaceAllString(s, "${1}")
	return s
}

// DecodeJSVar extracts name from html and decodes it as a JSON object.
// Anything that fails along the way is reported as absent.
func DecodeJSVar(html, name string) (map[string]any, bool) {
	raw, ok := ExtractJSVar(html, name)
	if !ok {
		return nil, false
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(JSToJSON(raw)), &out); err != nil {
		return nil, false
	}
	return out, true
}
