package helpers

import (
	"bytes"
	"fmt"
	"io"
	mathrand "math/rand/v2"
	"strings"

	"golang.org/x/net/html/charset"
)

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36",
}

// DefaultUserAgent is the desktop Chrome identity used when a fixed one is needed
var DefaultUserAgent = userAgents[0]

// RandomUserAgent picks one of the desktop browser identities
func RandomUserAgent() string {
	return userAgents[mathrand.IntN(len(userAgents))]
}

// DecodeBody converts a response body to UTF-8 using the Content-Type header
// and the document's own meta tags.
func DecodeBody(body []byte, contentType string) (string, error) {
	encoding, name, _ := charset.DetermineEncoding(body, contentType)
	if strings.EqualFold(name, "utf-8") {
		return string(body), nil
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, encoding.NewDecoder().Reader(bytes.NewReader(body))); err != nil {
		return "", fmt.Errorf("failed to read converted UTF-8 body: %w", err)
	}
	return buf.String(), nil
}
