package middleware

import (
	"net/http"
	"strings"

	"github.com/choresh/PspRouter-sub000/pkg/logger"

	jsonres "github.com/choresh/PspRouter-sub000/pkg/response"

	"github.com/labstack/echo/v4"
)

// ErrorHandler turns unhandled errors into the standard JSON envelope
// instead of echo's default body.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := "Internal server error"

	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		if msg, ok := he.Message.(string); ok {
			message = msg
		}
	}

	if code >= http.StatusInternalServerError {
		logger.Error("Unhandled request error", "method", c.Request().Method, "path", c.Path(), "error", err)
	}

	errCode := strings.ToUpper(strings.ReplaceAll(http.StatusText(code), " ", "_"))
	if jErr := c.JSON(code, jsonres.Error(errCode, message, nil)); jErr != nil {
		logger.Error("Failed to write error response", "error", jErr)
	}
}
