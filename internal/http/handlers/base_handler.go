// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"dispatch/internal/apperr"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

func writeAppError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperr.NotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, apperr.Invalid):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, apperr.NotOwner):
		writeError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, apperr.WindowClosed):
		writeError(c, http.StatusGone, err.Error())
	case errors.Is(err, apperr.InvalidState),
		errors.Is(err, apperr.AlreadyRated),
		errors.Is(err, apperr.AlreadyAssigned):
		writeError(c, http.StatusConflict, err.Error())
	case errors.Is(err, apperr.Unavailable):
		writeError(c, http.StatusServiceUnavailable, "storage unavailable")
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}
