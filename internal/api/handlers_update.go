// handlers_update.go - Update-available workflow handlers
package api

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/datalog-viewer/backend/internal/storage"
)

// UpdateHandlerImpl implements the UpdateHandler interface
type UpdateHandlerImpl struct {
	sessionMgr SessionManager
}

// NewUpdateHandler creates a new update handler
func NewUpdateHandler(sessionMgr SessionManager) UpdateHandler {
	return &UpdateHandlerImpl{sessionMgr: sessionMgr}
}

// HandleOfferUpdate takes freshly read log text as the request body and
// reports whether it is an update to the displayed log
func (h *UpdateHandlerImpl) HandleOfferUpdate(c echo.Context) error {
	id := c.Param("id")

	data, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return NewBadRequestError("failed to read body", err)
	}

	offer, err := h.sessionMgr.CheckUpdate(id, storage.DecodeText(data))
	if err != nil {
		return sessionError(id, err)
	}
	return c.JSON(http.StatusOK, offer)
}

// HandleApplyUpdate replaces the displayed log with the pending update
func (h *UpdateHandlerImpl) HandleApplyUpdate(c echo.Context) error {
	id := c.Param("id")

	sess, err := h.sessionMgr.ApplyUpdate(c.Request().Context(), id)
	if err != nil {
		return sessionError(id, err)
	}
	return c.JSON(http.StatusOK, sess)
}
