package server

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/cardroom/dealerd/internal/fileutil"
	"github.com/cardroom/dealerd/internal/phh"
)

// HistoryWriter persists one PHH document per hand, alongside (and in
// the same naming scheme as) the JSON hand logs.
type HistoryWriter struct {
	dir    string
	logger *log.Logger
}

// NewHistoryWriter creates the output directory if needed.
func NewHistoryWriter(dir string, logger *log.Logger) (*HistoryWriter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating hand history dir: %w", err)
	}
	return &HistoryWriter{dir: dir, logger: logger.WithPrefix("phh")}, nil
}

// Write persists the history and returns the file path.
func (w *HistoryWriter) Write(hist *phh.HandHistory, seq int) (string, error) {
	data, err := phh.EncodeToBytes(hist)
	if err != nil {
		return "", fmt.Errorf("encoding hand history: %w", err)
	}
	path := filepath.Join(w.dir, fmt.Sprintf("hand-%04d-%s.phh", seq, hist.HandID))
	if err := fileutil.WriteFileAtomic(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing hand history: %w", err)
	}
	w.logger.Debug("hand history written", "path", path)
	return path, nil
}
