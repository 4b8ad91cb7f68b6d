package analysis

import (
	"math"

	"github.com/datalog-viewer/backend/internal/fieldtype"
	"github.com/datalog-viewer/backend/internal/models"
)

// GeoPoint is one latitude/longitude sample.
type GeoPoint struct {
	Row       int     `json:"row" msgpack:"row"` // index among non-heading rows
	Latitude  float64 `json:"latitude" msgpack:"latitude"`
	Longitude float64 `json:"longitude" msgpack:"longitude"`
}

// GeoTrack is the path recorded in a log.
type GeoTrack struct {
	Points []GeoPoint `json:"points" msgpack:"points"`
	// Clamped is set when a coordinate was out of range and pulled back in.
	Clamped bool `json:"clamped" msgpack:"clamped"`
}

// GeoPoints pairs the Latitude and Longitude columns row by row. Rows where
// either value is not a number are skipped.
func GeoPoints(log *models.DataLog) GeoTrack {
	track := GeoTrack{Points: []GeoPoint{}}

	latCol := log.FindFieldIndex(fieldtype.Latitude)
	lngCol := log.FindFieldIndex(fieldtype.Longitude)
	if latCol == -1 || lngCol == -1 {
		return track
	}

	lats := log.DataForHeader(models.ByIndex(latCol), true)
	lngs := log.DataForHeader(models.ByIndex(lngCol), true)

	for i := 0; i < len(lats) && i < len(lngs); i++ {
		lat, lng := cellValue(lats[i]), cellValue(lngs[i])
		if math.IsNaN(lat) || math.IsNaN(lng) {
			continue
		}

		var clamped bool
		lat, clamped = clamp(lat, 90)
		track.Clamped = track.Clamped || clamped
		lng, clamped = clamp(lng, 180)
		track.Clamped = track.Clamped || clamped

		track.Points = append(track.Points, GeoPoint{Row: i, Latitude: lat, Longitude: lng})
	}
	return track
}

func clamp(v, limit float64) (float64, bool) {
	switch {
	case v < -limit:
		return -limit, true
	case v > limit:
		return limit, true
	}
	return v, false
}
