package middleware

import (
	"errors"

	"github.com/GoStableSwap/riskgate/internal/pkg/apperrors"
	"github.com/GoStableSwap/riskgate/internal/pkg/logger"
	"github.com/gin-gonic/gin"
)

// ErrorHandler renders AppErrors attached to the context as the standard
// error body, so every handler propagates tagged kinds instead of writing
// ad-hoc JSON. The settlement engine relies on the code field to tell
// missing data from policy rejection from a stale feed.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		var appErr *apperrors.AppError

		if !errors.As(err, &appErr) {
			appErr = apperrors.New(apperrors.ErrInternal, err.Error(), err)
		}

		logFields := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"code", appErr.Type,
			"client_ip", c.ClientIP(),
		}

		if appErr.HTTPStatus >= 500 {
			logger.LogError(c.Request.Context(), appErr, "Internal Server Error", logFields...)
		} else {
			logger.Warn(appErr.Message, logFields...)
		}

		c.JSON(appErr.HTTPStatus, appErr)
	}
}
