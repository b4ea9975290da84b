package api

import (
	"errors"
	"net/http"

	"github.com/blog-content-api/internal/gate"
	"github.com/blog-content-api/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// statusFor maps a domain error to its HTTP status
func statusFor(err error) int {
	var e *models.Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}

	switch e.Kind {
	case models.KindValidation:
		return http.StatusBadRequest
	case models.KindConflict:
		return http.StatusConflict
	case models.KindNotFound:
		return http.StatusNotFound
	case models.KindInsufficientBalance:
		return http.StatusPaymentRequired
	case models.KindAuthorization:
		if e.Code == models.ErrLoginRequired.Code || e.Code == models.ErrInvalidCredentials.Code {
			return http.StatusUnauthorized
		}
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

// respondError writes err as JSON. Unclassified errors are logged and
// reported without detail.
func respondError(c *gin.Context, log zerolog.Logger, err error) {
	var e *models.Error
	if !errors.As(err, &e) {
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	body := gin.H{
		"error": e.Message,
		"code":  e.Code,
	}
	if len(e.Fields) > 0 {
		body["fields"] = e.Fields
	}
	if e.Kind == models.KindAuthorization {
		if r := gate.Decision(e.Code).Remediation(); r != gate.RemediationNone {
			body["remediation"] = r
		}
	}
	c.JSON(statusFor(err), body)
}

// badRequest answers a request whose body could not be bound
func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message})
}
