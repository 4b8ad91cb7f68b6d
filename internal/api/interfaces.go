// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/datalog-viewer/backend/internal/models"
	"github.com/datalog-viewer/backend/internal/session"
	"github.com/datalog-viewer/backend/internal/storage"
)

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// LogHandler opens logs and serves views of them
type LogHandler interface {
	HandleOpenLog(c echo.Context) error
	HandleOpenRaw(c echo.Context) error
	HandleListLogs(c echo.Context) error
	HandleGetLog(c echo.Context) error
	HandleCloseLog(c echo.Context) error
	HandleKeepAlive(c echo.Context) error
	HandleGetRows(c echo.Context) error
	HandleGetRowsMsgpack(c echo.Context) error
	HandleDownloadCSV(c echo.Context) error
	HandleGetColumn(c echo.Context) error
	HandleGetSegments(c echo.Context) error
	HandleGetVisualisations(c echo.Context) error
	HandleGetTally(c echo.Context) error
	HandleGetGeo(c echo.Context) error
	HandleGetStats(c echo.Context) error
}

// UpdateHandler handles the update-available workflow
type UpdateHandler interface {
	HandleOfferUpdate(c echo.Context) error
	HandleApplyUpdate(c echo.Context) error
}

// LibraryHandler serves recent files, sample data and field types
type LibraryHandler interface {
	HandleGetRecent(c echo.Context) error
	HandleLoadRecent(c echo.Context) error
	HandleGetSamples(c echo.Context) error
	HandleLoadSample(c echo.Context) error
	HandleGetFields(c echo.Context) error
}

// SessionManager defines the interface for session management
// This allows mocking in tests
type SessionManager interface {
	Open(ctx context.Context, title, fileID, raw string) (*models.LogSession, error)
	GetSession(id string) (*models.LogSession, bool)
	GetLog(id string) (*models.LogData, bool)
	ListSessions() []*models.LogSession
	CloseSession(id string) error
	TouchSession(id string) bool
	CheckUpdate(id, raw string) (session.Offer, error)
	ApplyUpdate(ctx context.Context, id string) (*models.LogSession, error)
	ColumnStats(ctx context.Context, id string, column int) (*storage.ColumnStats, error)
	Subscribe(id string) (<-chan session.Event, func())
}

// RecentList is the recent files list
type RecentList interface {
	List() ([]models.LogSource, error)
	Add(src models.LogSource) ([]models.LogSource, error)
}

// SampleSource lists the built-in sample logs
type SampleSource interface {
	List() []models.LogSource
	Get(index int) (models.LogSource, error)
}

var (
	_ SessionManager = (*session.Manager)(nil)
	_ RecentList     = (*storage.RecentFiles)(nil)
)
