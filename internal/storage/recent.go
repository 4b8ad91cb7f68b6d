package storage

import (
	"encoding/json"
	"fmt"

	"github.com/datalog-viewer/backend/internal/models"
)

const (
	// RecentFilesKey is the KV key holding the recent files list.
	RecentFilesKey = "recent-files"
	// MaxRecentFiles is how many sources are remembered.
	MaxRecentFiles = 5
)

// RecentFiles keeps the most recently opened standalone sources, newest first.
type RecentFiles struct {
	kv KV
}

func NewRecentFiles(kv KV) *RecentFiles {
	return &RecentFiles{kv: kv}
}

// List returns the remembered sources. A missing or unreadable entry is an
// empty list.
func (r *RecentFiles) List() ([]models.LogSource, error) {
	raw, ok, err := r.kv.Get(RecentFilesKey)
	if err != nil {
		return nil, err
	}

	sources := []models.LogSource{}
	if !ok {
		return sources, nil
	}
	if err := json.Unmarshal([]byte(raw), &sources); err != nil || sources == nil {
		return []models.LogSource{}, nil
	}
	return sources, nil
}

// Add puts src at the front of the list and trims it to MaxRecentFiles.
// The same source may appear more than once.
func (r *RecentFiles) Add(src models.LogSource) ([]models.LogSource, error) {
	existing, err := r.List()
	if err != nil {
		return nil, err
	}

	sources := append([]models.LogSource{src}, existing...)
	if len(sources) > MaxRecentFiles {
		sources = sources[:MaxRecentFiles]
	}

	data, err := json.Marshal(sources)
	if err != nil {
		return nil, fmt.Errorf("encoding recent files: %w", err)
	}
	if err := r.kv.Set(RecentFilesKey, string(data)); err != nil {
		return nil, err
	}
	return sources, nil
}
