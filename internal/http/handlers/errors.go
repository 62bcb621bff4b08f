package handlers

import (
	"errors"
	"net/http"

	"wordchain/internal/apperr"
	"wordchain/internal/logger"

	"github.com/gin-gonic/gin"
)

// renderError maps an application error onto its HTTP representation.
// Validation errors carry the per-field map under the "body" location, so
// the client can attach messages to form inputs.
func renderError(c *gin.Context, err error) {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		detail := any(msgOf(err))
		if fields := apperr.FieldsOf(err); fields != nil {
			detail = gin.H{"body": fields}
		}
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"detail": detail})
	case apperr.KindConflict:
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"detail": msgOf(err)})
	case apperr.KindBadState:
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"detail": msgOf(err)})
	case apperr.KindForbidden, apperr.KindAuthMissing:
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"detail": msgOf(err)})
	case apperr.KindNotFound:
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"detail": msgOf(err)})
	case apperr.KindDictionaryUnavailable:
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"detail": msgOf(err)})
	default:
		logger.Error("unhandled error", "path", c.FullPath(), "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "internal server error"})
	}
}

// msgOf strips the kind prefix for the wire; foreign errors pass through.
func msgOf(err error) string {
	var e *apperr.Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return err.Error()
}
