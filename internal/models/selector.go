package models

import (
	"regexp"
)

// ColumnSelector picks a column of a DataLog by index, by exact header name,
// or by a pattern tested against the headers.
type ColumnSelector interface {
	resolve(headers []string) int
	String() string
}

type byIndex int

type byName string

type byPattern struct {
	re *regexp.Regexp
}

// ByIndex selects a column by position.
func ByIndex(i int) ColumnSelector { return byIndex(i) }

// ByName selects the first column whose header equals name.
func ByName(name string) ColumnSelector { return byName(name) }

// ByPattern selects the first column whose header matches re.
func ByPattern(re *regexp.Regexp) ColumnSelector { return byPattern{re: re} }

func (s byIndex) resolve(_ []string) int {
	if s < 0 {
		return -1
	}
	return int(s)
}

func (s byName) resolve(headers []string) int {
	for i, h := range headers {
		if h == string(s) {
			return i
		}
	}
	return -1
}

func (s byPattern) resolve(headers []string) int {
	if s.re == nil {
		return -1
	}
	for i, h := range headers {
		if s.re.MatchString(h) {
			return i
		}
	}
	return -1
}

func (s byIndex) String() string   { return "index" }
func (s byName) String() string    { return "name:" + string(s) }
func (s byPattern) String() string { return "pattern" }

// ResolveColumnIndex maps a selector to a column index, or -1 if nothing matches.
// Index selectors are not bounds-checked against headers: rows may carry more
// cells than the primary header row.
func ResolveColumnIndex(headers []string, sel ColumnSelector) int {
	if sel == nil {
		return -1
	}
	return sel.resolve(headers)
}

// DataForHeader returns one entry per row for the selected column. Heading rows
// yield nil unless excludeHeadings drops them, and rows too short for the column
// yield nil as well. An unresolved selector yields an empty slice.
func (l *DataLog) DataForHeader(sel ColumnSelector, excludeHeadings bool) []*string {
	index := ResolveColumnIndex(l.Headers, sel)
	if index == -1 {
		return []*string{}
	}

	out := make([]*string, 0, len(l.Data))
	for i := range l.Data {
		row := &l.Data[i]
		if row.IsHeading {
			if !excludeHeadings {
				out = append(out, nil)
			}
			continue
		}
		if index >= len(row.Data) {
			out = append(out, nil)
			continue
		}
		v := row.Data[index]
		out = append(out, &v)
	}
	return out
}

// FindFieldIndex returns the index of the first header matching the field type, or -1.
func (l *DataLog) FindFieldIndex(ft FieldType) int {
	return ResolveColumnIndex(l.Headers, ByPattern(ft.Validator))
}
