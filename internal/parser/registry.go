package parser

import (
	"fmt"
	"strings"

	"github.com/datalog-viewer/backend/internal/models"
)

// Registry holds the available decoders in priority order.
type Registry struct {
	parsers []Parser
}

// Global registry instance
var globalRegistry = NewRegistry()

func NewRegistry() *Registry {
	return &Registry{
		parsers: []Parser{
			NewContainerParser(),
			NewCSVParser(),
		},
	}
}

// GetGlobalRegistry returns the singleton registry.
func GetGlobalRegistry() *Registry {
	return globalRegistry
}

// Register adds a parser ahead of the CSV fallback, which accepts everything.
func (r *Registry) Register(p Parser) {
	n := len(r.parsers)
	if n > 0 {
		if _, ok := r.parsers[n-1].(*CSVParser); ok {
			r.parsers = append(r.parsers[:n-1], p, r.parsers[n-1])
			return
		}
	}
	r.parsers = append(r.parsers, p)
}

// FindParser returns the first parser that recognises raw.
func (r *Registry) FindParser(raw string) (Parser, error) {
	for _, p := range r.parsers {
		if p.CanParse(raw) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("no suitable parser found")
}

// GetParserByName returns a parser by its name.
func (r *Registry) GetParserByName(name string) (Parser, error) {
	name = strings.ToLower(name)
	for _, p := range r.parsers {
		if strings.ToLower(p.Name()) == name {
			return p, nil
		}
	}
	return nil, fmt.Errorf("parser not found: %s", name)
}

// Decode picks a parser for raw and decodes it. The hash always covers the
// whole raw input, including any HTML wrapper around a container.
func (r *Registry) Decode(raw string) (*models.LogData, error) {
	p, err := r.FindParser(raw)
	if err != nil {
		return nil, err
	}

	data, err := p.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.Name(), err)
	}
	data.Hash = HashString(raw)
	return data, nil
}

// Decode decodes raw with the global registry.
func Decode(raw string) (*models.LogData, error) {
	return globalRegistry.Decode(raw)
}

// ParseRawData decodes raw and returns nil when it cannot be decoded.
func ParseRawData(raw string) *models.LogData {
	data, err := Decode(raw)
	if err != nil {
		return nil
	}
	return data
}
