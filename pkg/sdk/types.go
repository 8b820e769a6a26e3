package vecdemo

import (
	"fmt"
	"os"
	"path/filepath"
)

// File is a file sent to a backend.
type File struct {
	Name        string
	ContentType string // optional; the backend and previews fall back to sniffing
	Data        []byte
}

// FileFromPath reads a local file.
func FileFromPath(path string) (File, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return File{}, fmt.Errorf("vecdemo: read %s: %w", path, err)
	}
	return File{Name: filepath.Base(path), Data: data}, nil
}

// RankedImage is an image search hit. Rank starts at 1.
type RankedImage struct {
	Rank int
	URL  string
}

// HealthStatus represents the aggregated backend health.
type HealthStatus struct {
	Status string            // "ok", "degraded", "error"
	Checks map[string]string // backend → "ok"/"error"
}
