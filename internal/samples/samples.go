// Package samples provides example logs that can be opened without a device.
package samples

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/datalog-viewer/backend/internal/models"
)

//go:embed data/gps_temperature.csv
var gpsTemperatureCSV string

//go:embed data/pet_tally.csv
var petTallyCSV string

// Builtin returns the bundled sample logs.
func Builtin() []models.LogSource {
	return []models.LogSource{
		{Title: "GPS and temperature series", Log: gpsTemperatureCSV},
		{Title: "Pet tally", Log: petTallyCSV},
	}
}

// Set is an indexed list of sample logs.
type Set struct {
	sources []models.LogSource
}

// NewSet returns the built-in samples.
func NewSet() *Set {
	return &Set{sources: Builtin()}
}

// LoadFile replaces the samples with the ones listed in a YAML file.
func LoadFile(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var sources []models.LogSource
	if err := yaml.Unmarshal(data, &sources); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	for i, s := range sources {
		if s.Title == "" {
			return nil, fmt.Errorf("sample %d: missing title", i)
		}
	}
	return &Set{sources: sources}, nil
}

// List returns the samples in order.
func (s *Set) List() []models.LogSource {
	out := make([]models.LogSource, len(s.sources))
	copy(out, s.sources)
	return out
}

// Get returns the sample at index.
func (s *Set) Get(index int) (models.LogSource, error) {
	if index < 0 || index >= len(s.sources) {
		return models.LogSource{}, fmt.Errorf("sample %d not found", index)
	}
	return s.sources[index], nil
}
