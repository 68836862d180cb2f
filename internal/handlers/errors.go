package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tiermaster/backend/internal/apperr"
)

var kindStatus = map[apperr.Kind]int{
	apperr.KindUnauthenticated: http.StatusUnauthorized,
	apperr.KindInvalid:         http.StatusBadRequest,
	apperr.KindNotFound:        http.StatusNotFound,
	apperr.KindConflict:        http.StatusConflict,
	apperr.KindQuotaExceeded:   http.StatusForbidden,
	apperr.KindForbidden:       http.StatusForbidden,
	apperr.KindStoreFailure:    http.StatusInternalServerError,
}

// statusOverrides maps error codes to a status other than their kind's
// default, for one endpoint.
type statusOverrides map[string]int

func statusOf(e *apperr.Error, overrides statusOverrides) int {
	if s, ok := overrides[e.Code]; ok {
		return s
	}
	if s, ok := kindStatus[e.Kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// respondError writes err as {"success": false, "error": code, "message": text}
// plus any details. Store failures are logged with their cause, which never
// reaches the client.
func respondError(c *gin.Context, err error, overrides statusOverrides) {
	e := apperr.As(err)
	status := statusOf(e, overrides)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), "request failed",
			"path", c.FullPath(), "code", e.Code, "error", err)
	}

	body := gin.H{
		"success": false,
		"error":   e.Code,
		"message": e.Message,
	}
	for k, v := range e.Details {
		if _, taken := body[k]; !taken {
			body[k] = v
		}
	}
	c.JSON(status, body)
}

func badRequest(c *gin.Context, code, message string) {
	respondError(c, apperr.New(apperr.KindInvalid, code, message), nil)
}
