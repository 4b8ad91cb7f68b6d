// routes.go - Route registration helpers
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/datalog-viewer/backend/internal/samples"
	"github.com/datalog-viewer/backend/internal/storage"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Store          storage.Store // optional
	SessionMgr     SessionManager
	Recent         RecentList   // optional
	Samples        SampleSource // defaults to the built-in samples
	Version        string
	WSMaxMessageKB int
}

// Handlers holds all handler instances
type Handlers struct {
	Health    HealthHandler
	Logs      LogHandler
	Update    UpdateHandler
	Library   LibraryHandler
	WebSocket *WebSocketHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	sampleSource := deps.Samples
	if sampleSource == nil {
		sampleSource = samples.NewSet()
	}
	return &Handlers{
		Health:    NewHealthHandler(deps.Version, deps.SessionMgr),
		Logs:      NewLogHandler(deps.Store, deps.SessionMgr, deps.Recent),
		Update:    NewUpdateHandler(deps.SessionMgr),
		Library:   NewLibraryHandler(deps.SessionMgr, deps.Recent, sampleSource),
		WebSocket: NewWebSocketHandler(deps.SessionMgr, deps.WSMaxMessageKB),
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	apiGroup := e.Group("/api")

	apiGroup.GET("/health", handlers.Health.HandleHealth)

	// Logs
	logs := apiGroup.Group("/logs")
	logs.POST("", handlers.Logs.HandleOpenLog)
	logs.POST("/raw", handlers.Logs.HandleOpenRaw)
	logs.GET("", handlers.Logs.HandleListLogs)
	logs.GET("/:id", handlers.Logs.HandleGetLog)
	logs.DELETE("/:id", handlers.Logs.HandleCloseLog)
	logs.POST("/:id/keepalive", handlers.Logs.HandleKeepAlive)
	logs.GET("/:id/rows", handlers.Logs.HandleGetRows)
	logs.GET("/:id/rows/msgpack", handlers.Logs.HandleGetRowsMsgpack)
	logs.GET("/:id/csv", handlers.Logs.HandleDownloadCSV)
	logs.GET("/:id/column", handlers.Logs.HandleGetColumn)
	logs.GET("/:id/segments", handlers.Logs.HandleGetSegments)
	logs.GET("/:id/visualisations", handlers.Logs.HandleGetVisualisations)
	logs.GET("/:id/tally", handlers.Logs.HandleGetTally)
	logs.GET("/:id/geo", handlers.Logs.HandleGetGeo)
	logs.GET("/:id/stats", handlers.Logs.HandleGetStats)

	// Updates
	logs.POST("/:id/update", handlers.Update.HandleOfferUpdate)
	logs.POST("/:id/update/apply", handlers.Update.HandleApplyUpdate)
	logs.GET("/:id/ws", handlers.WebSocket.HandleWebSocket)

	// Recent files, samples and field types
	apiGroup.GET("/recent", handlers.Library.HandleGetRecent)
	apiGroup.POST("/recent/:index/load", handlers.Library.HandleLoadRecent)
	apiGroup.GET("/samples", handlers.Library.HandleGetSamples)
	apiGroup.POST("/samples/:index/load", handlers.Library.HandleLoadSample)
	apiGroup.GET("/fields", handlers.Library.HandleGetFields)
}

// MiddlewareOptions tunes SetupMiddleware
type MiddlewareOptions struct {
	RequestLogging bool
	Timeout        time.Duration
	BodyLimit      string
	EnableCORS     bool
	AllowOrigins   string
}

// SetupMiddleware configures common middleware
func SetupMiddleware(e *echo.Echo, opts MiddlewareOptions) {
	e.HTTPErrorHandler = ErrorHandler

	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			if !opts.RequestLogging {
				return true
			}
			path := c.Request().URL.Path
			return strings.HasSuffix(path, "/ws") ||
				strings.HasSuffix(path, "/keepalive") ||
				path == "/api/health"
		},
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 1024 * 4,
	}))

	if opts.Timeout > 0 {
		e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
			Timeout: opts.Timeout,
			Skipper: func(c echo.Context) bool {
				return strings.HasSuffix(c.Request().URL.Path, "/ws")
			},
			ErrorMessage: "Request timeout - query took too long",
		}))
	}

	if opts.BodyLimit != "" {
		e.Use(middleware.BodyLimit(opts.BodyLimit))
	}

	if opts.EnableCORS {
		origins := strings.Split(opts.AllowOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		if len(origins) == 0 || (len(origins) == 1 && origins[0] == "") {
			origins = []string{"*"}
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:  origins,
			AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowHeaders:  []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
			ExposeHeaders: []string{echo.HeaderContentDisposition},
		}))
	}
}
