// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"ridewave/internal/modules/geo"
	"ridewave/internal/modules/notify"
	"ridewave/internal/modules/pricing"
	"ridewave/internal/modules/ride"
)

type errorResponse struct {
	Error string `json:"error"`
}

// isValidID accepts the uuid-style ids the ride service generates.
func isValidID(v string) bool {
	if v == "" || len(v) > 64 {
		return false
	}
	for _, c := range v {
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '-' {
			continue
		}
		return false
	}
	return true
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

func writeDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ride.ErrNotFound):
		writeError(c, http.StatusNotFound, ride.ErrNotFound.Error())
	case errors.Is(err, ride.ErrBadRequest),
		errors.Is(err, geo.ErrInvalidCoordinate),
		errors.Is(err, pricing.ErrInvalidDistance),
		errors.Is(err, notify.ErrNoTokens):
		writeError(c, http.StatusBadRequest, err.Error())
	default:
		_ = c.Error(err)
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}
