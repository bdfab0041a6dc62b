package orchestrator

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/maastricht-university/svs-labels/label"
)

// writeAtomic writes to a temporary file next to path and renames it into
// place, so a failed write never leaves a truncated output behind.
func writeAtomic(path string, write func(io.Writer) error) (err error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	f, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmp)
		}
	}()

	if err = write(f); err != nil {
		_ = f.Close()
		return err
	}
	// CreateTemp opens 0600; outputs are read by other tools.
	if err = f.Chmod(0o644); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func writeLabels(path string, seq label.Sequence) error {
	return writeAtomic(path, func(w io.Writer) error {
		_, err := seq.WriteTo(w)
		return err
	})
}

func writeJSON(path string, v any) error {
	return writeAtomic(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	})
}

func mkDirs(dirs ...string) error {
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) reportPath(stage string) string {
	return filepath.Join(p.cfg.Paths.Outputs, DirReports, stage+".json")
}

func (p *Pipeline) persist(r *Report) error {
	r.GeneratedAt = time.Now()
	if err := mkDirs(filepath.Dir(p.reportPath(r.Stage))); err != nil {
		return err
	}
	return writeJSON(p.reportPath(r.Stage), r)
}

// LoadReport reads the last report written for stage. A missing report
// returns (nil, nil).
func (p *Pipeline) LoadReport(stage string) (*Report, error) {
	f, err := os.Open(p.reportPath(stage))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var r Report
	if err := json.NewDecoder(f).Decode(&r); err != nil {
		return nil, err
	}
	return &r, nil
}
