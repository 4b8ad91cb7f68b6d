// Package analysis derives views over a decoded data log: which visualisations
// apply to it, column totals, time series segments and map coordinates.
package analysis

import (
	"math"

	"github.com/samber/lo"

	"github.com/datalog-viewer/backend/internal/fieldtype"
	"github.com/datalog-viewer/backend/internal/models"
)

// Visualisation describes one way of presenting a log and the check that
// decides whether it applies.
type Visualisation struct {
	Name        string
	Description string
	// check returns a reason when the log cannot be shown this way.
	check func(log *models.DataLog) string
}

// Availability is the outcome of checking one visualisation against a log.
type Availability struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Available   bool   `json:"available"`
	Reason      string `json:"reason,omitempty"`
}

var (
	LineGraph = Visualisation{
		Name:        "Line Graph",
		Description: "Plots every column against the time column, one line per column",
		check:       lineGraphError,
	}
	Map = Visualisation{
		Name:        "Map",
		Description: "Visualises geographic data using markers on a map",
		check:       mapError,
	}
	Tally = Visualisation{
		Name:        "Tally",
		Description: "Counts up the total of each column and displays it in a bar graph",
		check:       tallyError,
	}
)

// Visualisations lists every known visualisation in display order.
func Visualisations() []Visualisation {
	return []Visualisation{LineGraph, Map, Tally}
}

// Check reports whether v applies to log.
func (v Visualisation) Check(log *models.DataLog) Availability {
	reason := v.check(log)
	return Availability{
		Name:        v.Name,
		Description: v.Description,
		Available:   reason == "",
		Reason:      reason,
	}
}

// CheckAll runs every visualisation check against log.
func CheckAll(log *models.DataLog) []Availability {
	return lo.Map(Visualisations(), func(v Visualisation, _ int) Availability {
		return v.Check(log)
	})
}

// Available returns only the visualisations that apply to log.
func Available(log *models.DataLog) []Availability {
	return lo.Filter(CheckAll(log), func(a Availability, _ int) bool {
		return a.Available
	})
}

func lineGraphError(log *models.DataLog) string {
	if len(log.Headers) < 2 {
		return "Requires two or more columns. Timestamps must be enabled."
	}
	if !fieldtype.Timestamp.Matches(log.Headers[0]) {
		return "Timestamps must be enabled when logging data."
	}
	return ""
}

func mapError(log *models.DataLog) string {
	lats := log.DataForHeader(models.ByIndex(log.FindFieldIndex(fieldtype.Latitude)), true)
	lngs := log.DataForHeader(models.ByIndex(log.FindFieldIndex(fieldtype.Longitude)), true)

	if len(lats) == 0 || len(lngs) == 0 {
		return "Latitude and Longitude columns are required."
	}
	if len(lats) != len(lngs) {
		return "Latitude and Longitude columns need to be the same length."
	}

	numeric := func(cell *string) bool {
		return !math.IsNaN(cellValue(cell))
	}
	if !lo.SomeBy(lats, numeric) && !lo.SomeBy(lngs, numeric) {
		return "Latitude and Longitude fields need to be numeric."
	}
	return ""
}

func tallyError(log *models.DataLog) string {
	if log.IsEmpty() {
		return "Log cannot be empty."
	}
	return ""
}

// cellValue converts a possibly missing cell; a missing cell is NaN.
func cellValue(cell *string) float64 {
	if cell == nil {
		return math.NaN()
	}
	return models.ToNumber(*cell)
}
