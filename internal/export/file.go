package export

import (
	"fmt"
	"os"
	"path/filepath"
)

// Logger is the minimal logging interface the exporters need.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// FileWriter publishes observations as small per-room files for an
// external collector that polls them. Each write goes to a temp file
// first and is renamed into place so the collector never reads a
// half-written file.
type FileWriter struct {
	dir    string
	logger Logger
}

// NewFileWriter builds a file exporter rooted at dir, creating it if
// needed.
func NewFileWriter(dir string, logger Logger) (*FileWriter, error) {
	if logger == nil {
		logger = noopLogger{}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("export: create %s: %w", dir, err)
	}
	return &FileWriter{dir: dir, logger: logger}, nil
}

// Publish writes the room's temperature/target file and, when humidity
// is present, its humidity file. Failures are logged and skipped; the
// collector just sees the previous values a little longer.
func (w *FileWriter) Publish(obs Observation) {
	target := obs.CorrectedDeci
	if obs.TargetDeci != nil {
		target = *obs.TargetDeci
	}

	temperature := fmt.Sprintf("SET temperature = %d\nSET target = %d\n", obs.CorrectedDeci, target)
	if err := w.writeAtomic("current_"+obs.Room, temperature); err != nil {
		w.logger.Warn("temperature export failed", "room", obs.Room, "error", err.Error())
	}

	if obs.HumidityDeci != nil {
		humidity := fmt.Sprintf("SET humidity = %d\n", *obs.HumidityDeci)
		if err := w.writeAtomic("humidity_"+obs.Room, humidity); err != nil {
			w.logger.Warn("humidity export failed", "room", obs.Room, "error", err.Error())
		}
	}
}

func (w *FileWriter) writeAtomic(name, content string) error {
	tmp := filepath.Join(w.dir, "new_"+name)
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, filepath.Join(w.dir, name))
}
