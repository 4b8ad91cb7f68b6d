package fieldtype

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/datalog-viewer/backend/internal/models"
)

// Definition is the YAML form of a field type.
type Definition struct {
	Name    string `yaml:"name"`
	Pattern string `yaml:"pattern"`
}

type definitionFile struct {
	Fields []Definition `yaml:"fields"`
}

// ParseDefinitions compiles field types from YAML. The document is either a
// list of definitions or a mapping with a "fields" list.
func ParseDefinitions(data []byte) ([]models.FieldType, error) {
	var defs []Definition
	if err := yaml.Unmarshal(data, &defs); err != nil {
		var file definitionFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
		defs = file.Fields
	}

	types := make([]models.FieldType, 0, len(defs))
	for i, d := range defs {
		if d.Name == "" {
			return nil, fmt.Errorf("field %d: missing name", i)
		}
		re, err := regexp.Compile(d.Pattern)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", d.Name, err)
		}
		types = append(types, models.FieldType{Name: d.Name, Validator: re})
	}
	return types, nil
}

// LoadFile registers the field types defined in a YAML file. Built-in types
// keep priority since new ones are appended.
func (r *Registry) LoadFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read file: %w", err)
	}

	types, err := ParseDefinitions(data)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}

	for _, ft := range types {
		if err := r.Register(ft); err != nil {
			return 0, err
		}
	}
	return len(types), nil
}
