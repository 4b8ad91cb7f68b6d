// handlers_library.go - Recent files, sample data and field type handlers
package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/datalog-viewer/backend/internal/fieldtype"
	"github.com/datalog-viewer/backend/internal/models"
)

// LibraryHandlerImpl implements the LibraryHandler interface
type LibraryHandlerImpl struct {
	sessionMgr SessionManager
	recent     RecentList
	samples    SampleSource
	fields     *fieldtype.Registry
}

// NewLibraryHandler creates a new library handler. recent may be nil when
// persistence is disabled.
func NewLibraryHandler(sessionMgr SessionManager, recent RecentList, samples SampleSource) LibraryHandler {
	return &LibraryHandlerImpl{
		sessionMgr: sessionMgr,
		recent:     recent,
		samples:    samples,
		fields:     fieldtype.GetGlobalRegistry(),
	}
}

// HandleGetRecent lists recently opened logs, newest first
func (h *LibraryHandlerImpl) HandleGetRecent(c echo.Context) error {
	if h.recent == nil {
		return c.JSON(http.StatusOK, []sourceEntry{})
	}
	list, err := h.recent.List()
	if err != nil {
		return NewInternalError("failed to read recent files", err)
	}
	return c.JSON(http.StatusOK, sourceEntries(list))
}

// HandleLoadRecent opens a recent file again
func (h *LibraryHandlerImpl) HandleLoadRecent(c echo.Context) error {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return NewValidationError("index")
	}
	if h.recent == nil {
		return NewNotFoundError("recent file", c.Param("index"))
	}

	list, err := h.recent.List()
	if err != nil {
		return NewInternalError("failed to read recent files", err)
	}
	if index < 0 || index >= len(list) {
		return NewNotFoundError("recent file", c.Param("index"))
	}
	return h.openSource(c, list[index])
}

// HandleGetSamples lists the sample logs
func (h *LibraryHandlerImpl) HandleGetSamples(c echo.Context) error {
	return c.JSON(http.StatusOK, sourceEntries(h.samples.List()))
}

// HandleLoadSample opens a sample log
func (h *LibraryHandlerImpl) HandleLoadSample(c echo.Context) error {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return NewValidationError("index")
	}
	src, err := h.samples.Get(index)
	if err != nil {
		return NewNotFoundError("sample", c.Param("index"))
	}
	return h.openSource(c, src)
}

func (h *LibraryHandlerImpl) openSource(c echo.Context, src models.LogSource) error {
	sess, err := h.sessionMgr.Open(c.Request().Context(), src.Title, "", src.Log)
	if err != nil {
		return NewDecodeError(err)
	}
	return c.JSON(http.StatusCreated, sess)
}

// HandleGetFields lists the field types, or detects the type of one header
func (h *LibraryHandlerImpl) HandleGetFields(c echo.Context) error {
	if header := c.QueryParam("header"); header != "" {
		resp := fieldDetection{Header: header}
		if ft, ok := h.fields.Detect(header); ok {
			resp.FieldType = ft.Name
		}
		return c.JSON(http.StatusOK, resp)
	}

	types := h.fields.Types()
	out := make([]fieldTypeEntry, 0, len(types))
	for _, ft := range types {
		out = append(out, fieldTypeEntry{Name: ft.Name, Pattern: ft.Validator.String()})
	}
	return c.JSON(http.StatusOK, out)
}

// Response types

// sourceEntry is a LogSource in listings; the log text itself is left out.
type sourceEntry struct {
	Index int    `json:"index"`
	Title string `json:"title"`
	Size  int    `json:"size"`
}

func sourceEntries(list []models.LogSource) []sourceEntry {
	out := make([]sourceEntry, len(list))
	for i, src := range list {
		out[i] = sourceEntry{Index: i, Title: src.Title, Size: len(src.Log)}
	}
	return out
}

type fieldDetection struct {
	Header    string `json:"header"`
	FieldType string `json:"fieldType,omitempty"`
}

type fieldTypeEntry struct {
	Name    string `json:"name"`
	Pattern string `json:"pattern"`
}
