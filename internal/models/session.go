package models

import "time"

// SessionStatus represents the status of a log session.
type SessionStatus string

const (
	SessionStatusLoaded SessionStatus = "loaded"
)

// LogSession describes one loaded log and its update state.
type LogSession struct {
	ID              string        `json:"id"`
	FileID          string        `json:"fileId,omitempty"`
	Title           string        `json:"title"`
	Status          SessionStatus `json:"status"`
	LoadedAt        time.Time     `json:"loadedAt"`
	RowCount        int           `json:"rowCount"`
	Hash            int32         `json:"hash"`
	Standalone      bool          `json:"standalone"`
	UpdateAvailable bool          `json:"updateAvailable"`
	UpdateID        int           `json:"updateId"`
	Error           string        `json:"error,omitempty"`
}

// LogSource is raw log text with a display title, as kept in the recent
// files list and the sample data.
type LogSource struct {
	Title string `json:"title" yaml:"title"`
	Log   string `json:"log" yaml:"log"`
}
