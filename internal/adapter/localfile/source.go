// Package localfile reads the bulk animal export files shipped alongside the
// service (cat_info.json, dog_info.json).
package localfile

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"

	"github.com/couchcryptid/shelter-data-etl/internal/domain"
)

// DefaultFiles are the export files read from the data directory, in order.
var DefaultFiles = []string{"cat_info.json", "dog_info.json"}

// Source reads JSON arrays of animal objects from a directory.
type Source struct {
	dir    string
	files  []string
	logger *slog.Logger
}

// NewSource creates a Source over dir. Nil files means DefaultFiles.
func NewSource(dir string, files []string, logger *slog.Logger) *Source {
	if files == nil {
		files = DefaultFiles
	}
	return &Source{dir: dir, files: files, logger: logger}
}

// Name identifies the source in logs and metrics.
func (s *Source) Name() string { return "local" }

// Animals reads every configured file. Missing files are skipped with a
// warning; an unreadable or malformed file fails the whole source. The
// export is a fixed snapshot, so the window is ignored.
func (s *Source) Animals(ctx context.Context, _, _ time.Time) ([]domain.RawRecord, error) {
	if _, err := os.Stat(s.dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("data directory not found, local records skipped", "dir", s.dir)
			return nil, nil
		}
		return nil, eris.Wrapf(err, "localfile: stat %s", s.dir)
	}

	var all []domain.RawRecord
	for _, name := range s.files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := filepath.Join(s.dir, name)
		records, err := readFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("local file not found", "path", path)
			continue
		}
		if err != nil {
			return nil, err
		}
		s.logger.Info("local records loaded", "path", path, "count", len(records))
		all = append(all, records...)
	}
	return all, nil
}

func readFile(path string) ([]domain.RawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := decodeRecords(f)
	if err != nil {
		return nil, eris.Wrapf(err, "localfile: %s", path)
	}
	return records, nil
}

// decodeRecords decodes a JSON array of flat objects. Scalar values are kept
// as strings; nulls and nested values are dropped.
func decodeRecords(r io.Reader) ([]domain.RawRecord, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "read opening token")
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return nil, eris.Errorf("expected '[', got %v", tok)
	}

	var records []domain.RawRecord
	for dec.More() {
		var obj map[string]any
		if err := dec.Decode(&obj); err != nil {
			return nil, eris.Wrap(err, "decode element")
		}
		records = append(records, flatten(obj))
	}
	if _, err := dec.Token(); err != nil {
		return nil, eris.Wrap(err, "read closing token")
	}
	return records, nil
}

func flatten(obj map[string]any) domain.RawRecord {
	rec := make(domain.RawRecord, len(obj))
	for k, v := range obj {
		switch val := v.(type) {
		case string:
			rec[k] = val
		case json.Number:
			rec[k] = val.String()
		case bool:
			if val {
				rec[k] = "true"
			} else {
				rec[k] = "false"
			}
		}
	}
	return rec
}
