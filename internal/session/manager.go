package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/datalog-viewer/backend/internal/models"
	"github.com/datalog-viewer/backend/internal/parser"
	"github.com/datalog-viewer/backend/internal/storage"
)

// MaxSessions limits how many logs are held open at once
const MaxSessions = 10

// SessionMaxAge is how long to keep idle sessions before cleanup
const SessionMaxAge = 30 * time.Minute

// SessionKeepAliveWindow is how long to keep sessions that are actively being used
const SessionKeepAliveWindow = 5 * time.Minute

var (
	// ErrSessionNotFound is returned for an unknown session id.
	ErrSessionNotFound = errors.New("session not found")
	// ErrArchiveDisabled is returned when a query needs the archive and none is configured.
	ErrArchiveDisabled = errors.New("archive disabled")
)

// EventType names a session notification.
type EventType string

const (
	EventUpdate  EventType = "update"
	EventApplied EventType = "applied"
	EventClosed  EventType = "closed"
)

// Event is pushed to subscribers of a session.
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"sessionId"`
	UpdateID  int       `json:"updateId"`
	Hash      int32     `json:"hash"`
}

// Manager holds the open log sessions.
type Manager struct {
	sessions map[string]*SessionState
	mu       sync.RWMutex
	registry *parser.Registry
	archive  storage.Archive

	subsMu sync.Mutex
	subs   map[string]map[chan Event]struct{}
}

// SessionState holds the session metadata, the decoded log and its update detector.
type SessionState struct {
	Session      *models.LogSession
	Detector     *Detector
	LastAccessed time.Time // Last time the session was accessed (for keep-alive)
}

// NewManager creates a session manager. archive may be nil.
func NewManager(archive storage.Archive) *Manager {
	return &Manager{
		sessions: make(map[string]*SessionState),
		registry: parser.GetGlobalRegistry(),
		archive:  archive,
		subs:     make(map[string]map[chan Event]struct{}),
	}
}

// shortID safely truncates an ID for logging
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

// Open decodes raw and opens a session for it. fileID links the session to
// the stored raw file and may be empty.
func (m *Manager) Open(ctx context.Context, title, fileID, raw string) (*models.LogSession, error) {
	start := time.Now()
	data, err := m.registry.Decode(raw)
	if err != nil {
		fmt.Printf("[Session] Failed to decode %q: %v\n", title, err)
		return nil, err
	}
	return m.open(ctx, title, fileID, data, start)
}

// OpenData opens a session for an already decoded log.
func (m *Manager) OpenData(ctx context.Context, title, fileID string, data *models.LogData) (*models.LogSession, error) {
	if data == nil || data.Log == nil {
		return nil, fmt.Errorf("no log data")
	}
	return m.open(ctx, title, fileID, data, time.Now())
}

func (m *Manager) open(ctx context.Context, title, fileID string, data *models.LogData, start time.Time) (*models.LogSession, error) {
	m.cleanupOldSessionsIfNeeded()

	id := uuid.New().String()
	sess := &models.LogSession{
		ID:         id,
		FileID:     fileID,
		Title:      title,
		Status:     models.SessionStatusLoaded,
		LoadedAt:   time.Now(),
		RowCount:   data.Log.RowCount(),
		Hash:       data.Hash,
		Standalone: data.Standalone,
	}

	m.mu.Lock()
	m.sessions[id] = &SessionState{
		Session:      sess,
		Detector:     NewDetector(data, m.registry.Decode),
		LastAccessed: time.Now(),
	}
	m.mu.Unlock()

	m.archiveLog(ctx, id, title, data)

	fmt.Printf("[Session %s] Opened %q: %d rows, standalone=%v in %v\n",
		shortID(id), title, sess.RowCount, sess.Standalone, time.Since(start))

	snapshot := *sess
	return &snapshot, nil
}

// archiveLog copies data to the archive. Failures are logged, not returned:
// the session works without it.
func (m *Manager) archiveLog(ctx context.Context, id, title string, data *models.LogData) {
	if m.archive == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("[Session %s] PANIC recovered while archiving: %v\n", shortID(id), r)
		}
	}()
	if err := m.archive.Save(ctx, id, title, data); err != nil {
		fmt.Printf("[Session %s] Warning: failed to archive: %v\n", shortID(id), err)
	}
}

// GetSession returns a copy of the session metadata.
func (m *Manager) GetSession(id string) (*models.LogSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	snapshot := *state.Session
	return &snapshot, true
}

// GetLog returns the log currently on display for a session.
func (m *Manager) GetLog(id string) (*models.LogData, bool) {
	m.mu.RLock()
	state, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return state.Detector.Current(), true
}

// ListSessions returns all sessions, most recently loaded first.
func (m *Manager) ListSessions() []*models.LogSession {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]*models.LogSession, 0, len(m.sessions))
	for _, state := range m.sessions {
		snapshot := *state.Session
		list = append(list, &snapshot)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].LoadedAt.After(list[j].LoadedAt)
	})
	return list
}

// CloseSession drops a session. The archived copy is kept.
func (m *Manager) CloseSession(id string) error {
	m.mu.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	m.publish(id, Event{Type: EventClosed, SessionID: id})
	m.closeSubscribers(id)
	return nil
}

// TouchSession updates the LastAccessed timestamp for a session.
func (m *Manager) TouchSession(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[id]
	if !ok {
		return false
	}
	state.LastAccessed = time.Now()
	return true
}

// CheckUpdate offers freshly read raw text for a session. Subscribers are
// notified when it turns out to be a new update.
func (m *Manager) CheckUpdate(id, raw string) (Offer, error) {
	m.mu.RLock()
	state, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return Offer{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	offer, err := state.Detector.Offer(raw)
	if err != nil {
		fmt.Printf("[Session %s] Ignoring undecodable update: %v\n", shortID(id), err)
		return offer, nil
	}
	if !offer.Available {
		return offer, nil
	}

	m.mu.Lock()
	state.Session.UpdateAvailable = true
	state.Session.UpdateID = offer.UpdateID
	m.mu.Unlock()

	fmt.Printf("[Session %s] Data update found (#%d)\n", shortID(id), offer.UpdateID)
	m.publish(id, Event{Type: EventUpdate, SessionID: id, UpdateID: offer.UpdateID, Hash: offer.Data.Hash})
	return offer, nil
}

// ApplyUpdate swaps the pending update in. It returns ErrNoChanges when
// there is nothing to apply.
func (m *Manager) ApplyUpdate(ctx context.Context, id string) (*models.LogSession, error) {
	m.mu.RLock()
	state, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	data, err := state.Detector.Apply()
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	sess := state.Session
	sess.UpdateAvailable = false
	sess.RowCount = data.Log.RowCount()
	sess.Hash = data.Hash
	sess.Standalone = data.Standalone
	sess.LoadedAt = time.Now()
	snapshot := *sess
	m.mu.Unlock()

	m.archiveLog(ctx, id, snapshot.Title, data)
	m.publish(id, Event{Type: EventApplied, SessionID: id, UpdateID: snapshot.UpdateID, Hash: data.Hash})
	return &snapshot, nil
}

// ColumnStats asks the archive for numeric statistics of one column.
func (m *Manager) ColumnStats(ctx context.Context, id string, column int) (*storage.ColumnStats, error) {
	if _, ok := m.GetSession(id); !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if m.archive == nil {
		return nil, ErrArchiveDisabled
	}
	return m.archive.ColumnStats(ctx, id, column)
}

// Subscribe returns a channel of events for a session and a function that
// ends the subscription. Slow subscribers miss events rather than block.
func (m *Manager) Subscribe(id string) (<-chan Event, func()) {
	ch := make(chan Event, 8)

	m.subsMu.Lock()
	if m.subs[id] == nil {
		m.subs[id] = make(map[chan Event]struct{})
	}
	m.subs[id][ch] = struct{}{}
	m.subsMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			m.subsMu.Lock()
			defer m.subsMu.Unlock()
			if _, ok := m.subs[id][ch]; ok {
				delete(m.subs[id], ch)
				close(ch)
			}
		})
	}
	return ch, cancel
}

func (m *Manager) publish(id string, ev Event) {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()

	for ch := range m.subs[id] {
		select {
		case ch <- ev:
		default:
			fmt.Printf("[Session %s] Dropping %s event for slow subscriber\n", shortID(id), ev.Type)
		}
	}
}

func (m *Manager) closeSubscribers(id string) {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()

	for ch := range m.subs[id] {
		close(ch)
	}
	delete(m.subs, id)
}

// cleanupOldSessionsIfNeeded removes the least recently used sessions if at capacity
func (m *Manager) cleanupOldSessionsIfNeeded() {
	m.mu.Lock()

	if len(m.sessions) < MaxSessions {
		m.mu.Unlock()
		return
	}

	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return m.sessions[ids[i]].LastAccessed.Before(m.sessions[ids[j]].LastAccessed)
	})

	toFree := len(m.sessions) - MaxSessions + 1
	evicted := ids[:toFree]
	for _, id := range evicted {
		delete(m.sessions, id)
		fmt.Printf("[Manager] Cleaned up old session %s to free memory\n", shortID(id))
	}
	m.mu.Unlock()

	for _, id := range evicted {
		m.closeSubscribers(id)
	}
}

// CleanupOldSessions removes sessions idle for longer than maxAge,
// but keeps sessions that have been accessed within SessionKeepAliveWindow.
func (m *Manager) CleanupOldSessions(maxAge time.Duration) int {
	m.mu.Lock()

	cutoff := time.Now().Add(-maxAge)
	keepAliveCutoff := time.Now().Add(-SessionKeepAliveWindow)

	var removed []string
	for id, state := range m.sessions {
		if state.LastAccessed.After(keepAliveCutoff) {
			continue
		}
		if state.LastAccessed.Before(cutoff) {
			delete(m.sessions, id)
			removed = append(removed, id)
			fmt.Printf("[Manager] Cleaned up aged session %s (last accessed: %s ago)\n",
				shortID(id), time.Since(state.LastAccessed).Round(time.Second))
		}
	}
	m.mu.Unlock()

	for _, id := range removed {
		m.closeSubscribers(id)
	}
	return len(removed)
}

// StartCleanup runs CleanupOldSessions every interval until ctx is done.
// A non-positive maxAge means SessionMaxAge.
func (m *Manager) StartCleanup(ctx context.Context, interval, maxAge time.Duration) {
	if maxAge <= 0 {
		maxAge = SessionMaxAge
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.CleanupOldSessions(maxAge)
			}
		}
	}()
}
