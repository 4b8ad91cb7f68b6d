package models

import "regexp"

// FieldType is a semantic column classifier matched against header text.
type FieldType struct {
	Name      string
	Validator *regexp.Regexp
}

// Matches reports whether header matches this field type.
func (f FieldType) Matches(header string) bool {
	return f.Validator != nil && f.Validator.MatchString(header)
}
