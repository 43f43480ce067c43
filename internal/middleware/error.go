package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pageza/fridgechef/backend/internal/types"
)

// Recovery turns panics into a JSON 500 response and logs them
func Recovery(log logrus.FieldLogger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.WithFields(logrus.Fields{
			"panic":  recovered,
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
		}).Error("recovered from panic")

		c.AbortWithStatusJSON(http.StatusInternalServerError, types.ErrorResponse{Error: types.ErrMsgInternal})
	})
}
