package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/memegen/internal/api/middleware"
	"github.com/timmy/memegen/internal/domain"
)

// Client-facing messages for the error taxonomy.
const (
	msgNoFile          = "No file uploaded"
	msgInvalidFileType = "Invalid file type. Only JPEG, PNG, and GIF images are allowed."
	msgFileTooLarge    = "File too large. Max size exceeded."
	msgNormalization   = "Failed to process image"
	msgNotFound        = "Meme not found"
	msgUnavailable     = "Database unavailable"
	msgUnexpected      = "Something went wrong!"
)

// errorResponder writes taxonomy errors as JSON.
type errorResponder struct {
	// showDetails adds the underlying error text; never enabled in production.
	showDetails bool
}

// message returns the client-facing text for err.
func message(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidFileType):
		return msgInvalidFileType
	case errors.Is(err, domain.ErrFileTooLarge):
		return msgFileTooLarge
	case errors.Is(err, domain.ErrValidation):
		return err.Error()
	case errors.Is(err, domain.ErrNormalization):
		return msgNormalization
	case errors.Is(err, domain.ErrNotFound):
		return msgNotFound
	case errors.Is(err, domain.ErrPersistenceUnavailable):
		return msgUnavailable
	default:
		return msgUnexpected
	}
}

// fail writes err with the status from the taxonomy.
func (r errorResponder) fail(c *gin.Context, err error) {
	r.failWith(c, domain.StatusCode(err), message(err), err)
}

func (r errorResponder) failWith(c *gin.Context, status int, msg string, err error) {
	body := gin.H{
		"success": false,
		"error":   msg,
		"code":    domain.Code(err),
	}
	if r.showDetails && err != nil {
		body["details"] = err.Error()
	}
	if status >= http.StatusInternalServerError {
		middleware.GetLogger(c).WithError(err).Error("Request failed")
	}
	c.JSON(status, body)
}
