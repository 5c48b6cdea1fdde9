// Package handlers provides HTTP request handlers for the presentation layer.
package handlers

import (
	"errors"
	"net/http"

	"github.com/AtRiskMedia/orbgate-go/internal/domain/monetization"
	"github.com/gin-gonic/gin"
)

// respondDomainError maps engine failures onto HTTP statuses. Validation
// failures name the violated constraint so callers can correct the
// request; internal failures stay opaque.
func respondDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, monetization.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
	case errors.Is(err, monetization.ErrInvalidSignalType),
		errors.Is(err, monetization.ErrInvalidIndicator),
		errors.Is(err, monetization.ErrInvalidAttemptType),
		errors.Is(err, monetization.ErrInvalidOutcome),
		errors.Is(err, monetization.ErrSessionIDRequired),
		errors.Is(err, monetization.ErrMessageBodyRequired),
		errors.Is(err, monetization.ErrHistoryLimitNegative),
		errors.Is(err, monetization.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, monetization.ErrUpstreamUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "upstream unavailable"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// sessionIDFromRequest reads the session identifier from the dedicated
// header, falling back to the query string for EventSource clients.
func sessionIDFromRequest(c *gin.Context) string {
	if sessionID := c.GetHeader("X-Orbgate-Session-ID"); sessionID != "" {
		return sessionID
	}
	return c.Query("sessionId")
}
