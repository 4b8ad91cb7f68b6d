package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datalog-viewer/backend/internal/models"
	"github.com/datalog-viewer/backend/internal/storage"
	"github.com/datalog-viewer/backend/internal/testutil"
)

type fakeArchive struct {
	mu    sync.Mutex
	saved map[string]*models.LogData
	fail  error
}

func newFakeArchive() *fakeArchive {
	return &fakeArchive{saved: make(map[string]*models.LogData)}
}

func (a *fakeArchive) Save(_ context.Context, id, _ string, data *models.LogData) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.fail != nil {
		return a.fail
	}
	a.saved[id] = data
	return nil
}

func (a *fakeArchive) Load(_ context.Context, id string) (*storage.ArchivedLog, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	data, ok := a.saved[id]
	if !ok {
		return nil, storage.ErrNotArchived
	}
	return &storage.ArchivedLog{ArchiveEntry: storage.ArchiveEntry{ID: id}, Data: data}, nil
}

func (a *fakeArchive) List(context.Context) ([]storage.ArchiveEntry, error) { return nil, nil }

func (a *fakeArchive) Delete(_ context.Context, id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.saved, id)
	return nil
}

func (a *fakeArchive) ColumnStats(_ context.Context, id string, column int) (*storage.ColumnStats, error) {
	if _, err := a.Load(context.Background(), id); err != nil {
		return nil, err
	}
	return &storage.ColumnStats{Column: column}, nil
}

func (a *fakeArchive) Close() error { return nil }

func (a *fakeArchive) get(id string) *models.LogData {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.saved[id]
}

func TestManager_Open(t *testing.T) {
	archive := newFakeArchive()
	m := NewManager(archive)
	ctx := context.Background()

	raw := testutil.BuildContainer("Time (s),Temp\n0,20\n1,21\n", testutil.ContainerOptions{Free: 10, Version: 253})
	sess, err := m.Open(ctx, "MY_DATA.HTM", "file-1", raw)
	require.NoError(t, err)

	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, "MY_DATA.HTM", sess.Title)
	assert.Equal(t, "file-1", sess.FileID)
	assert.Equal(t, models.SessionStatusLoaded, sess.Status)
	assert.Equal(t, 2, sess.RowCount)
	assert.False(t, sess.Standalone)
	assert.NotZero(t, sess.Hash)

	data, ok := m.GetLog(sess.ID)
	require.True(t, ok)
	assert.Equal(t, []string{"Time (s)", "Temp"}, data.Log.Headers)
	assert.Equal(t, 253, data.DaplinkVersion)
	assert.Same(t, data, archive.get(sess.ID))
}

func TestManager_OpenDecodeError(t *testing.T) {
	m := NewManager(nil)
	raw := testutil.BuildContainer("a\n1\n", testutil.ContainerOptions{Truncated: true})

	_, err := m.Open(context.Background(), "broken", "", raw)
	require.Error(t, err)
	assert.Empty(t, m.ListSessions())
}

func TestManager_OpenArchiveFailureStillOpens(t *testing.T) {
	archive := newFakeArchive()
	archive.fail = errors.New("disk full")
	m := NewManager(archive)

	sess, err := m.Open(context.Background(), "log", "", "a\n1")
	require.NoError(t, err)
	_, ok := m.GetSession(sess.ID)
	assert.True(t, ok)
}

func TestManager_OpenData(t *testing.T) {
	m := NewManager(nil)

	_, err := m.OpenData(context.Background(), "nil", "", nil)
	assert.Error(t, err)

	data := models.StandaloneLogData(models.NewDataLog([]string{"x"}, []models.DataLogRow{
		{IsHeading: true, Data: []string{"x"}},
		{Data: []string{"1"}},
	}, false))
	sess, err := m.OpenData(context.Background(), "built", "", data)
	require.NoError(t, err)
	assert.Equal(t, 1, sess.RowCount)
	assert.True(t, sess.Standalone)
}

func TestManager_ListAndClose(t *testing.T) {
	m := NewManager(nil)
	ctx := context.Background()

	first, err := m.Open(ctx, "first", "", "a\n1")
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	second, err := m.Open(ctx, "second", "", "a\n2")
	require.NoError(t, err)

	list := m.ListSessions()
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)

	require.NoError(t, m.CloseSession(first.ID))
	assert.Len(t, m.ListSessions(), 1)

	err = m.CloseSession(first.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestManager_GetSessionReturnsCopy(t *testing.T) {
	m := NewManager(nil)
	sess, err := m.Open(context.Background(), "log", "", "a\n1")
	require.NoError(t, err)

	got, ok := m.GetSession(sess.ID)
	require.True(t, ok)
	got.Title = "changed"

	again, _ := m.GetSession(sess.ID)
	assert.Equal(t, "log", again.Title)

	_, ok = m.GetSession("missing")
	assert.False(t, ok)
	_, ok = m.GetLog("missing")
	assert.False(t, ok)
}

func TestManager_UpdateFlow(t *testing.T) {
	archive := newFakeArchive()
	m := NewManager(archive)
	ctx := context.Background()

	sess, err := m.Open(ctx, "log", "", "a\n1")
	require.NoError(t, err)

	events, cancel := m.Subscribe(sess.ID)
	defer cancel()

	offer, err := m.CheckUpdate(sess.ID, "a\n1")
	require.NoError(t, err)
	assert.False(t, offer.Available)

	offer, err = m.CheckUpdate(sess.ID, "a\n1\n2")
	require.NoError(t, err)
	assert.True(t, offer.Available)
	assert.Equal(t, 1, offer.UpdateID)

	select {
	case ev := <-events:
		assert.Equal(t, EventUpdate, ev.Type)
		assert.Equal(t, sess.ID, ev.SessionID)
		assert.Equal(t, 1, ev.UpdateID)
	case <-time.After(time.Second):
		t.Fatal("no update event")
	}

	got, _ := m.GetSession(sess.ID)
	assert.True(t, got.UpdateAvailable)
	assert.Equal(t, 1, got.UpdateID)

	// the displayed log does not change until the update is applied
	data, _ := m.GetLog(sess.ID)
	assert.Equal(t, 1, data.Log.RowCount())

	applied, err := m.ApplyUpdate(ctx, sess.ID)
	require.NoError(t, err)
	assert.False(t, applied.UpdateAvailable)
	assert.Equal(t, 2, applied.RowCount)
	assert.Equal(t, 2, archive.get(sess.ID).Log.RowCount())

	select {
	case ev := <-events:
		assert.Equal(t, EventApplied, ev.Type)
	case <-time.After(time.Second):
		t.Fatal("no applied event")
	}

	_, err = m.ApplyUpdate(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrNoChanges)
}

func TestManager_CheckUpdateIgnoresUndecodable(t *testing.T) {
	m := NewManager(nil)
	sess, err := m.Open(context.Background(), "log", "", "a\n1")
	require.NoError(t, err)

	raw := testutil.BuildContainer("a\n1\n", testutil.ContainerOptions{Truncated: true})
	offer, err := m.CheckUpdate(sess.ID, raw)
	require.NoError(t, err)
	assert.False(t, offer.Available)
}

func TestManager_UnknownSession(t *testing.T) {
	m := NewManager(newFakeArchive())
	ctx := context.Background()

	_, err := m.CheckUpdate("missing", "a")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = m.ApplyUpdate(ctx, "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = m.ColumnStats(ctx, "missing", 0)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.False(t, m.TouchSession("missing"))
}

func TestManager_ColumnStats(t *testing.T) {
	ctx := context.Background()

	withArchive := NewManager(newFakeArchive())
	sess, err := withArchive.Open(ctx, "log", "", "a\n1")
	require.NoError(t, err)
	stats, err := withArchive.ColumnStats(ctx, sess.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Column)

	without := NewManager(nil)
	sess, err = without.Open(ctx, "log", "", "a\n1")
	require.NoError(t, err)
	_, err = without.ColumnStats(ctx, sess.ID, 0)
	assert.ErrorIs(t, err, ErrArchiveDisabled)
}

func TestManager_SubscribeCancel(t *testing.T) {
	m := NewManager(nil)
	sess, err := m.Open(context.Background(), "log", "", "a\n1")
	require.NoError(t, err)

	events, cancel := m.Subscribe(sess.ID)
	cancel()
	cancel()

	_, open := <-events
	assert.False(t, open)
}

func TestManager_CloseEndsSubscriptions(t *testing.T) {
	m := NewManager(nil)
	sess, err := m.Open(context.Background(), "log", "", "a\n1")
	require.NoError(t, err)

	events, cancel := m.Subscribe(sess.ID)
	defer cancel()
	require.NoError(t, m.CloseSession(sess.ID))

	ev, open := <-events
	require.True(t, open)
	assert.Equal(t, EventClosed, ev.Type)
	_, open = <-events
	assert.False(t, open)
}

func TestManager_MaxSessions(t *testing.T) {
	m := NewManager(nil)
	ctx := context.Background()

	first, err := m.Open(ctx, "first", "", "a\n0")
	require.NoError(t, err)
	m.mu.Lock()
	m.sessions[first.ID].LastAccessed = time.Now().Add(-time.Hour)
	m.mu.Unlock()

	for i := 1; i < MaxSessions; i++ {
		_, err := m.Open(ctx, "more", "", "a\n1")
		require.NoError(t, err)
	}
	assert.Len(t, m.ListSessions(), MaxSessions)

	_, err = m.Open(ctx, "overflow", "", "a\n2")
	require.NoError(t, err)
	assert.Len(t, m.ListSessions(), MaxSessions)

	_, ok := m.GetSession(first.ID)
	assert.False(t, ok, "least recently used session should be evicted")
}

func TestManager_CleanupOldSessions(t *testing.T) {
	m := NewManager(nil)
	ctx := context.Background()

	stale, err := m.Open(ctx, "stale", "", "a\n1")
	require.NoError(t, err)
	fresh, err := m.Open(ctx, "fresh", "", "a\n2")
	require.NoError(t, err)

	m.mu.Lock()
	m.sessions[stale.ID].LastAccessed = time.Now().Add(-time.Hour)
	m.mu.Unlock()

	removed := m.CleanupOldSessions(30 * time.Minute)
	assert.Equal(t, 1, removed)

	_, ok := m.GetSession(stale.ID)
	assert.False(t, ok)
	_, ok = m.GetSession(fresh.ID)
	assert.True(t, ok)

	// touched sessions stay inside the keep-alive window
	m.mu.Lock()
	m.sessions[fresh.ID].LastAccessed = time.Now().Add(-time.Hour)
	m.mu.Unlock()
	assert.True(t, m.TouchSession(fresh.ID))
	assert.Equal(t, 0, m.CleanupOldSessions(time.Nanosecond))
}
