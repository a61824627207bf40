package metadata

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ace26597/News-Agent/internal/model"
)

// CSVRecorder appends run records to a CSV file, creating it with a header
// row on first use.
type CSVRecorder struct {
	mu   sync.Mutex
	path string
}

// NewCSVRecorder opens (or creates) the CSV log at path.
func NewCSVRecorder(path string) (*CSVRecorder, error) {
	r := &CSVRecorder{path: path}
	if err := r.ensureHeader(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *CSVRecorder) ensureHeader() error {
	if _, err := os.Stat(r.path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return eris.Wrapf(err, "metadata: stat %s", r.path)
	}

	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil
		}
		return eris.Wrapf(err, "metadata: create %s", r.path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(columns()); err != nil {
		return eris.Wrap(err, "metadata: write header")
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "metadata: flush header")
	}

	zap.L().Info("metadata: created csv log", zap.String("path", r.path))
	return nil
}

// Record implements Recorder.
func (r *CSVRecorder) Record(_ context.Context, rec *model.RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return eris.Wrapf(err, "metadata: open %s", r.path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(row(rec)); err != nil {
		return eris.Wrap(err, "metadata: write row")
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "metadata: flush row")
	}
	return nil
}

// Close implements Recorder. The CSV sink holds no open handles between
// writes.
func (r *CSVRecorder) Close() error { return nil }

// RecentRows returns up to n of the most recent rows as column-keyed maps,
// for effectiveness analysis.
func (r *CSVRecorder) RecentRows(n int) ([]map[string]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.Open(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "metadata: open %s", r.path)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "metadata: read header")
	}

	var rows []map[string]string
	for {
		record, readErr := reader.Read()
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return nil, eris.Wrap(readErr, "metadata: read row")
		}
		m := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(record) {
				m[col] = record[i]
			}
		}
		rows = append(rows, m)
	}

	if n > 0 && len(rows) > n {
		rows = rows[len(rows)-n:]
	}
	return rows, nil
}
