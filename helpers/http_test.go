package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeBodyUTF8(t *testing.T) {
	body := []byte("<html><body>Ático en Ruzafa</body></html>")
	out, err := DecodeBody(body, "text/html; charset=utf-8")
	require.NoError(t, err)
	assert.Contains(t, out, "Ático en Ruzafa")
}

func TestDecodeBodyLatin1(t *testing.T) {
	// "Ático" in ISO-8859-1
	body := []byte("<html><body>\xc1tico</body></html>")
	out, err := DecodeBody(body, "text/html; charset=iso-8859-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Ático")
}

func TestRandomUserAgent(t *testing.T) {
	for i := 0; i < 10; i++ {
		assert.Contains(t, userAgents, RandomUserAgent())
	}
}
