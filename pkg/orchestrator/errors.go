package orchestrator

import (
	"errors"
	"net/http"

	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/apierrors"
	"github.com/gin-gonic/gin"
)

// writeError maps err onto an HTTP response, following the taxonomy in §7:
// fatal errors surface as 400, programmer errors as an opaque 500,
// transient and item-level errors as 503; an error that is not an
// *apierrors.Error is a generic 500. Grounded on the
// teacher's mapServiceError/mapChatExecutorError dispatch pattern, adapted
// from echo's error-return idiom to gin's explicit c.JSON.
func writeError(c *gin.Context, err error) {
	var apiErr *apierrors.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Kind {
		case apierrors.KindFatal:
			c.JSON(http.StatusBadRequest, gin.H{"error": apiErr.Error()})
			return
		case apierrors.KindProgrammer:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		case apierrors.KindTransient, apierrors.KindItemLevel:
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": apiErr.Error()})
			return
		}
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

func notFound(c *gin.Context, msg string) {
	c.JSON(http.StatusNotFound, gin.H{"error": msg})
}
