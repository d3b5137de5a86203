// Package store reads and writes line-record files: UTF-8 JSON, one
// property per line.
package store

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dealmungchi/mirascraper/internal/model"
	"github.com/dealmungchi/mirascraper/logger"
)

const maxLine = 16 << 20

// FileName returns "{source}_{listingType}_{YYYYMMDD_HHMMSS}.jsonl"
func FileName(source string, listingType model.ListingType, t time.Time) string {
	return fmt.Sprintf("%s_%s_%s.jsonl", source, listingType, t.Format("20060102_150405"))
}

// ReadFile loads every record of path. Blank lines are skipped; a line that
// does not decode into a valid record fails the whole read.
func ReadFile(path string) ([]model.Property, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	props := []model.Property{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64<<10), maxLine)

	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var p model.Property
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		props = append(props, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return props, nil
}

const fileMode os.FileMode = 0o644

// WriteFile writes props to path through a temporary file in the same
// directory that is renamed into place, so readers never see a partial file.
// A replaced file keeps its permissions; a new one gets 0644.
func WriteFile(path string, props []model.Property) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	mode := fileMode
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	} else if !os.IsNotExist(err) {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err := tmp.Chmod(mode); err != nil {
		return err
	}

	w := bufio.NewWriter(tmp)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for i := range props {
		if err := enc.Encode(&props[i]); err != nil {
			return fmt.Errorf("failed to encode %s: %w", props[i].ID, err)
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return err
	}

	logger.ForStore().Debug().Str("path", path).Int("records", len(props)).Msg("Wrote records")
	return nil
}
