// handlers_logs.go - Log loading and view handlers
package api

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/datalog-viewer/backend/internal/analysis"
	"github.com/datalog-viewer/backend/internal/fieldtype"
	"github.com/datalog-viewer/backend/internal/models"
	"github.com/datalog-viewer/backend/internal/storage"
)

// DownloadFileName is the name offered for CSV downloads.
const DownloadFileName = "microbit.csv"

// Log summary warnings
const (
	WarningLogFull  = "Log is full"
	WarningLogEmpty = "Log is empty"
)

// LogHandlerImpl implements the LogHandler interface
type LogHandlerImpl struct {
	store      storage.Store
	sessionMgr SessionManager
	recent     RecentList
	fields     *fieldtype.Registry
}

// NewLogHandler creates a new log handler. store and recent may be nil.
func NewLogHandler(store storage.Store, sessionMgr SessionManager, recent RecentList) LogHandler {
	return &LogHandlerImpl{
		store:      store,
		sessionMgr: sessionMgr,
		recent:     recent,
		fields:     fieldtype.GetGlobalRegistry(),
	}
}

// HandleOpenLog accepts a log as base64 JSON, optionally gzip compressed
func (h *LogHandlerImpl) HandleOpenLog(c echo.Context) error {
	var req openLogRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if err := req.validate(); err != nil {
		return err
	}

	decoded, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		return NewBadRequestError("invalid base64 data", err)
	}
	if req.Encoding == "gzip" {
		decoded, err = decompressGzip(decoded)
		if err != nil {
			return NewBadRequestError("invalid gzip data", err)
		}
	}

	return h.openBytes(c, req.Name, decoded)
}

// HandleOpenRaw accepts the log file as the request body
func (h *LogHandlerImpl) HandleOpenRaw(c echo.Context) error {
	name := c.QueryParam("name")
	if name == "" {
		return NewValidationError("name")
	}

	data, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return NewBadRequestError("failed to read body", err)
	}

	return h.openBytes(c, name, data)
}

func (h *LogHandlerImpl) openBytes(c echo.Context, name string, data []byte) error {
	fileID := ""
	if h.store != nil {
		info, err := h.store.SaveBytes(name, data)
		if err != nil {
			return NewInternalError("failed to save file", err)
		}
		fileID = info.ID
	}

	raw := storage.DecodeText(data)
	sess, err := h.sessionMgr.Open(c.Request().Context(), name, fileID, raw)
	h.setFileStatus(fileID, err)
	if err != nil {
		return NewDecodeError(err)
	}

	h.rememberRecent(name, raw)

	summary, apiErr := h.summary(sess.ID)
	if apiErr != nil {
		return apiErr
	}
	return c.JSON(http.StatusCreated, summary)
}

func (h *LogHandlerImpl) setFileStatus(fileID string, decodeErr error) {
	if h.store == nil || fileID == "" {
		return
	}
	status := "decoded"
	if decodeErr != nil {
		status = "error"
	}
	if err := h.store.SetStatus(fileID, status); err != nil {
		fmt.Printf("[API] Warning: failed to set status of %s: %v\n", fileID, err)
	}
}

func (h *LogHandlerImpl) rememberRecent(title, raw string) {
	if h.recent == nil {
		return
	}
	if _, err := h.recent.Add(models.LogSource{Title: title, Log: raw}); err != nil {
		fmt.Printf("[API] Warning: failed to update recent files: %v\n", err)
	}
}

// HandleListLogs returns the open logs, most recent first
func (h *LogHandlerImpl) HandleListLogs(c echo.Context) error {
	return c.JSON(http.StatusOK, h.sessionMgr.ListSessions())
}

// HandleGetLog returns the summary of one open log
func (h *LogHandlerImpl) HandleGetLog(c echo.Context) error {
	summary, apiErr := h.summary(c.Param("id"))
	if apiErr != nil {
		return apiErr
	}
	h.sessionMgr.TouchSession(summary.Session.ID)
	return c.JSON(http.StatusOK, summary)
}

func (h *LogHandlerImpl) summary(id string) (*logSummary, *APIError) {
	sess, ok := h.sessionMgr.GetSession(id)
	if !ok {
		return nil, NewNotFoundError("log", id)
	}
	data, ok := h.sessionMgr.GetLog(id)
	if !ok {
		return nil, NewNotFoundError("log", id)
	}

	log := data.Log
	warnings := []string{}
	if log.IsFull {
		warnings = append(warnings, WarningLogFull)
	}
	if log.IsEmpty() {
		warnings = append(warnings, WarningLogEmpty)
	}

	discontinuities := analysis.DiscontinuousRows(log)
	if discontinuities == nil {
		discontinuities = []int{}
	}

	return &logSummary{
		Session:         sess,
		Headers:         log.Headers,
		FieldTypes:      h.fields.DetectHeaders(log.Headers),
		RowCount:        log.RowCount(),
		IsFull:          log.IsFull,
		DataSize:        data.DataSize,
		BytesRemaining:  data.BytesRemaining,
		DaplinkVersion:  data.DaplinkVersion,
		Standalone:      data.Standalone,
		Warnings:        warnings,
		Discontinuities: discontinuities,
	}, nil
}

// HandleCloseLog closes an open log
func (h *LogHandlerImpl) HandleCloseLog(c echo.Context) error {
	id := c.Param("id")
	if err := h.sessionMgr.CloseSession(id); err != nil {
		return sessionError(id, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleKeepAlive extends the lifetime of a log that is being viewed
func (h *LogHandlerImpl) HandleKeepAlive(c echo.Context) error {
	id := c.Param("id")
	if ok := h.sessionMgr.TouchSession(id); !ok {
		return NewNotFoundError("log", id)
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleGetRows returns a page of rows, heading rows included
func (h *LogHandlerImpl) HandleGetRows(c echo.Context) error {
	page, apiErr := h.rowsPage(c)
	if apiErr != nil {
		return apiErr
	}
	return c.JSON(http.StatusOK, page)
}

// HandleGetRowsMsgpack returns a page of rows in MessagePack format
func (h *LogHandlerImpl) HandleGetRowsMsgpack(c echo.Context) error {
	page, apiErr := h.rowsPage(c)
	if apiErr != nil {
		return apiErr
	}

	data, err := msgpack.Marshal(page)
	if err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}
	return c.Blob(http.StatusOK, "application/msgpack", data)
}

func (h *LogHandlerImpl) rowsPage(c echo.Context) (*rowsResponse, *APIError) {
	id := c.Param("id")
	data, ok := h.sessionMgr.GetLog(id)
	if !ok {
		return nil, NewNotFoundError("log", id)
	}
	h.sessionMgr.TouchSession(id)

	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.QueryParam("pageSize"))
	if pageSize < 1 || pageSize > 1000 {
		pageSize = 100
	}

	rows := data.Log.Data
	total := len(rows)
	start := total
	if page-1 <= total/pageSize {
		start = min((page-1)*pageSize, total)
	}
	end := start + min(pageSize, total-start)

	return &rowsResponse{
		Headers:  data.Log.Headers,
		Rows:     rows[start:end],
		Page:     page,
		PageSize: pageSize,
		Total:    total,
	}, nil
}

// HandleDownloadCSV sends the log back as a CSV file
func (h *LogHandlerImpl) HandleDownloadCSV(c echo.Context) error {
	id := c.Param("id")
	data, ok := h.sessionMgr.GetLog(id)
	if !ok {
		return NewNotFoundError("log", id)
	}

	blob := data.Log.ToBlob()
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", DownloadFileName))
	return c.Blob(http.StatusOK, blob.ContentType, blob.Data)
}

// HandleGetColumn returns the cells of one column, selected by index, name or pattern
func (h *LogHandlerImpl) HandleGetColumn(c echo.Context) error {
	id := c.Param("id")
	data, ok := h.sessionMgr.GetLog(id)
	if !ok {
		return NewNotFoundError("log", id)
	}

	sel, apiErr := columnSelector(c)
	if apiErr != nil {
		return apiErr
	}
	excludeHeadings, _ := strconv.ParseBool(c.QueryParam("excludeHeadings"))

	return c.JSON(http.StatusOK, columnResponse{
		Column: models.ResolveColumnIndex(data.Log.Headers, sel),
		Values: data.Log.DataForHeader(sel, excludeHeadings),
	})
}

func columnSelector(c echo.Context) (models.ColumnSelector, *APIError) {
	if v := c.QueryParam("index"); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			return nil, NewBadRequestError("index must be an integer", err)
		}
		return models.ByIndex(i), nil
	}
	if v := c.QueryParam("name"); v != "" {
		return models.ByName(v), nil
	}
	if v := c.QueryParam("pattern"); v != "" {
		re, err := regexp.Compile(v)
		if err != nil {
			return nil, NewBadRequestError("invalid pattern", err)
		}
		return models.ByPattern(re), nil
	}
	return nil, NewValidationError("index, name or pattern")
}

// HandleGetSegments splits the log wherever the time column goes backwards
func (h *LogHandlerImpl) HandleGetSegments(c echo.Context) error {
	id := c.Param("id")
	data, ok := h.sessionMgr.GetLog(id)
	if !ok {
		return NewNotFoundError("log", id)
	}

	column := 0
	if v := c.QueryParam("column"); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil || i < 0 {
			return NewBadRequestError("column must be a non-negative integer", err)
		}
		column = i
	}

	return c.JSON(http.StatusOK, analysis.SegmentsBy(data.Log, column))
}

// HandleGetVisualisations reports which visualisations the log supports
func (h *LogHandlerImpl) HandleGetVisualisations(c echo.Context) error {
	id := c.Param("id")
	data, ok := h.sessionMgr.GetLog(id)
	if !ok {
		return NewNotFoundError("log", id)
	}
	return c.JSON(http.StatusOK, analysis.CheckAll(data.Log))
}

// HandleGetTally totals every column
func (h *LogHandlerImpl) HandleGetTally(c echo.Context) error {
	id := c.Param("id")
	data, ok := h.sessionMgr.GetLog(id)
	if !ok {
		return NewNotFoundError("log", id)
	}
	return c.JSON(http.StatusOK, analysis.TallyLog(data.Log))
}

// HandleGetGeo returns the latitude/longitude track of the log
func (h *LogHandlerImpl) HandleGetGeo(c echo.Context) error {
	id := c.Param("id")
	data, ok := h.sessionMgr.GetLog(id)
	if !ok {
		return NewNotFoundError("log", id)
	}
	return c.JSON(http.StatusOK, analysis.GeoPoints(data.Log))
}

// HandleGetStats returns numeric statistics of one column from the archive
func (h *LogHandlerImpl) HandleGetStats(c echo.Context) error {
	id := c.Param("id")
	column, err := strconv.Atoi(c.QueryParam("column"))
	if err != nil || column < 0 {
		return NewValidationError("column")
	}

	stats, err := h.sessionMgr.ColumnStats(c.Request().Context(), id, column)
	if err != nil {
		return sessionError(id, err)
	}
	return c.JSON(http.StatusOK, stats)
}

// Request/Response types

type openLogRequest struct {
	Name     string `json:"name"`
	Data     string `json:"data"`               // Base64-encoded content
	Encoding string `json:"encoding,omitempty"` // "gzip" or empty
}

func (r *openLogRequest) validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return NewValidationError("name")
	}
	if r.Encoding != "" && r.Encoding != "gzip" {
		return NewValidationError("encoding")
	}
	return nil
}

type logSummary struct {
	Session         *models.LogSession `json:"session"`
	Headers         []string           `json:"headers"`
	FieldTypes      []string           `json:"fieldTypes"`
	RowCount        int                `json:"rowCount"`
	IsFull          bool               `json:"isFull"`
	DataSize        int                `json:"dataSize"`
	BytesRemaining  int                `json:"bytesRemaining"`
	DaplinkVersion  int                `json:"daplinkVersion"`
	Standalone      bool               `json:"standalone"`
	Warnings        []string           `json:"warnings"`
	Discontinuities []int              `json:"discontinuities"`
}

type rowsResponse struct {
	Headers  []string            `json:"headers" msgpack:"headers"`
	Rows     []models.DataLogRow `json:"rows" msgpack:"rows"`
	Page     int                 `json:"page" msgpack:"page"`
	PageSize int                 `json:"pageSize" msgpack:"pageSize"`
	Total    int                 `json:"total" msgpack:"total"`
}

type columnResponse struct {
	Column int       `json:"column"`
	Values []*string `json:"values"`
}
