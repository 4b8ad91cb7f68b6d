// Package fieldtype detects the semantic type of a log column from its header.
package fieldtype

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/datalog-viewer/backend/internal/models"
)

// Built-in field types, in detection order.
var (
	Latitude  = models.FieldType{Name: "Latitude", Validator: regexp.MustCompile(`(?i)latitude`)}
	Longitude = models.FieldType{Name: "Longitude", Validator: regexp.MustCompile(`(?i)longitude`)}
	Timestamp = models.FieldType{Name: "Timestamp", Validator: regexp.MustCompile(`(?i)time \(.+\)`)}
	DateTime  = models.FieldType{Name: "Date/Time", Validator: regexp.MustCompile(`(?i)\bdate\b`)}
)

// Registry is an ordered list of field types. The first match wins.
type Registry struct {
	mu    sync.RWMutex
	types []models.FieldType
}

// Global registry instance
var globalRegistry = NewRegistry()

// NewRegistry returns a registry holding the built-in types.
func NewRegistry() *Registry {
	return &Registry{
		types: []models.FieldType{Latitude, Longitude, Timestamp, DateTime},
	}
}

// GetGlobalRegistry returns the singleton registry.
func GetGlobalRegistry() *Registry {
	return globalRegistry
}

// Register appends a field type after the existing ones.
func (r *Registry) Register(ft models.FieldType) error {
	if ft.Name == "" || ft.Validator == nil {
		return fmt.Errorf("field type needs a name and a validator")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.types {
		if strings.EqualFold(existing.Name, ft.Name) {
			return fmt.Errorf("field type already registered: %s", ft.Name)
		}
	}
	r.types = append(r.types, ft)
	return nil
}

// Detect returns the first field type whose validator matches header.
func (r *Registry) Detect(header string) (models.FieldType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, ft := range r.types {
		if ft.Matches(header) {
			return ft, true
		}
	}
	return models.FieldType{}, false
}

// GetByName returns a field type by name, ignoring case.
func (r *Registry) GetByName(name string) (models.FieldType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, ft := range r.types {
		if strings.EqualFold(ft.Name, name) {
			return ft, nil
		}
	}
	return models.FieldType{}, fmt.Errorf("field type not found: %s", name)
}

// Types returns a copy of the registered types in detection order.
func (r *Registry) Types() []models.FieldType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.FieldType, len(r.types))
	copy(out, r.types)
	return out
}

// Detect classifies header with the global registry.
func Detect(header string) (models.FieldType, bool) {
	return globalRegistry.Detect(header)
}

// DetectHeaders returns the detected type name for each header, or "" when
// nothing matches.
func (r *Registry) DetectHeaders(headers []string) []string {
	names := make([]string, len(headers))
	for i, h := range headers {
		if ft, ok := r.Detect(h); ok {
			names[i] = ft.Name
		}
	}
	return names
}
