package session

import (
	"errors"
	"sync"

	"github.com/datalog-viewer/backend/internal/models"
)

// ErrNoChanges is returned by Apply when no update is pending.
var ErrNoChanges = errors.New("no changes detected")

// DecodeFunc turns raw log text into LogData.
type DecodeFunc func(raw string) (*models.LogData, error)

// Offer is the outcome of handing new raw text to a Detector.
type Offer struct {
	Available bool            `json:"available"`
	UpdateID  int             `json:"updateId"`
	Data      *models.LogData `json:"-"`
}

// Detector decides whether freshly read log text is an update worth showing.
//
// Text is an update only when its hash differs from both the log on display
// and the update already pending.
type Detector struct {
	mu       sync.Mutex
	decode   DecodeFunc
	current  *models.LogData
	pending  *models.LogData
	updateID int
}

// NewDetector tracks updates to current.
func NewDetector(current *models.LogData, decode DecodeFunc) *Detector {
	return &Detector{current: current, decode: decode}
}

// Offer decodes raw and records it as the pending update when it is new.
// Text that does not decode is never an update; the decode error is returned
// for logging only.
func (d *Detector) Offer(raw string) (Offer, error) {
	data, err := d.decode(raw)
	if err != nil {
		d.mu.Lock()
		defer d.mu.Unlock()
		return Offer{UpdateID: d.updateID}, err
	}
	return d.OfferData(data), nil
}

// OfferData is Offer for already decoded data.
func (d *Detector) OfferData(data *models.LogData) Offer {
	d.mu.Lock()
	defer d.mu.Unlock()

	if data == nil || data.Hash == d.current.Hash || (d.pending != nil && data.Hash == d.pending.Hash) {
		return Offer{UpdateID: d.updateID}
	}

	d.pending = data
	d.updateID++
	return Offer{Available: true, UpdateID: d.updateID, Data: data}
}

// Apply makes the pending update current and returns it. The update id is
// left as is so a later update still counts up.
func (d *Detector) Apply() (*models.LogData, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pending == nil {
		return nil, ErrNoChanges
	}
	d.current = d.pending
	d.pending = nil
	return d.current, nil
}

// Current returns the log on display.
func (d *Detector) Current() *models.LogData {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

// Pending returns the update waiting to be applied, or nil.
func (d *Detector) Pending() *models.LogData {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// UpdateID counts the updates announced so far.
func (d *Detector) UpdateID() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.updateID
}
