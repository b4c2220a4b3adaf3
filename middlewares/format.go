package middlewares

import (
	"PathLab/apperrors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RespondJSON writes a JSON response to the client.
func RespondJSON(c *gin.Context, data interface{}, status int) {
	c.JSON(status, data)
}

// HttpError maps err to its status code and writes the public message.
// Infrastructure and unclassified failures are logged with their cause.
func HttpError(c *gin.Context, log *zap.Logger, err error) {
	kind := apperrors.KindOf(err)
	status := kind.HTTPStatus()
	if status >= 500 {
		log.Error("request failed",
			zap.String("request_id", RequestID(c)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}
	body := gin.H{"error": apperrors.PublicMessage(err), "kind": kind.String()}
	if kind == apperrors.KindInfrastructure {
		body["retryable"] = true
	}
	c.AbortWithStatusJSON(status, body)
}

// BadRequest answers a malformed body or parameter.
func BadRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(400, gin.H{"error": message, "kind": apperrors.KindValidation.String()})
}
