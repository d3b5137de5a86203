package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealmungchi/mirascraper/internal/model"
)

func sampleProperties() []model.Property {
	first := model.NewProperty("spain-real-estate", "101", model.Sale, "Apartamento en Benidorm")
	first.SetPrice(179000)
	first.SetCoordinates(38.5411, -0.1225)
	first.Description = "Vistas al mar & <piscina>"
	first.Images = []string{"https://img.test/a.jpg"}
	first.Features = []string{"Pool"}
	first.Translations = []model.Translation{{Locale: "ru", Title: "Квартира"}}
	first.Normalize()

	second := model.NewProperty("idealista", "555", model.Rent, "Piso en Ruzafa")
	second.Specs = map[string]any{"habitaciones": "2"}
	second.Enriched = true

	return []model.Property{first, second}
}

func TestFileName(t *testing.T) {
	at := time.Date(2025, 3, 7, 9, 5, 1, 0, time.UTC)
	assert.Equal(t, "idealista_sale_20250307_090501.jsonl", FileName("idealista", model.Sale, at))
	assert.Equal(t, "spain-real-estate_rent_20250307_090501.jsonl", FileName("spain-real-estate", model.Rent, at))
}

func TestWriteThenRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.jsonl")
	props := sampleProperties()

	require.NoError(t, WriteFile(path, props))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"Vistas al mar & <piscina>"`)
	assert.Contains(t, lines[0], "Квартира")

	got, err := ReadFile(path)
	require.NoError(t, err)
	if diff := cmp.Diff(props, got); diff != "" {
		t.Errorf("records changed on round trip (-want +got):\n%s", diff)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file must not be left behind")
}

func TestWriteFileReplacesContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	props := sampleProperties()

	require.NoError(t, WriteFile(path, props))
	require.NoError(t, WriteFile(path, props[:1]))

	got, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "spain-real-estate-101", got[0].ID)
}

func TestReadFileSkipsBlankLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.jsonl")
	content := `{"listing_type":"sale","title":"Casa","source":"idealista","source_id":"1"}

{"listing_type":"rent","title":"Piso","source":"idealista","source_id":"2","enriched":true}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	got, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "idealista-1", got[0].ID)
	assert.Equal(t, model.DefaultRegion, got[0].Region)
	assert.Equal(t, []string{}, got[0].Images)
	assert.True(t, got[1].Enriched)
}

func TestReadFileErrors(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "missing.jsonl"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	path := filepath.Join(t.TempDir(), "bad.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"source\":\"idealista\",\"source_id\":\"1\",\"title\":\"x\",\"listing_type\":\"sale\"}\nnot json\n"), 0o644))
	_, err = ReadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.jsonl:2")

	invalid := filepath.Join(t.TempDir(), "invalid.jsonl")
	require.NoError(t, os.WriteFile(invalid, []byte(`{"source":"idealista","source_id":"1","title":"x","listing_type":"lease"}`+"\n"), 0o644))
	_, err = ReadFile(invalid)
	assert.Error(t, err)
}

func TestWriteFileMode(t *testing.T) {
	dir := t.TempDir()

	fresh := filepath.Join(dir, "fresh.jsonl")
	require.NoError(t, WriteFile(fresh, sampleProperties()))
	info, err := os.Stat(fresh)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())

	existing := filepath.Join(dir, "existing.jsonl")
	require.NoError(t, os.WriteFile(existing, nil, 0o600))
	require.NoError(t, os.Chmod(existing, 0o640))
	require.NoError(t, WriteFile(existing, sampleProperties()))
	info, err = os.Stat(existing)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())

	props, err := ReadFile(existing)
	require.NoError(t, err)
	assert.Len(t, props, len(sampleProperties()))
}
