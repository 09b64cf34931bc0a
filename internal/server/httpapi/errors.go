package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/logging"
	"github.com/labstack/echo/v4"
)

// statusOf maps a service error to an HTTP status and the message the client
// may see. Unknown errors become 500 without detail.
func statusOf(err error) (int, string) {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		msg, ok := he.Message.(string)
		if !ok {
			msg = http.StatusText(he.Code)
		}
		return he.Code, msg
	case common.IsTokenError(err), errors.Is(err, common.ErrorUnauthorized):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, common.ErrAuthenticationFailed):
		return http.StatusUnauthorized, common.ErrAuthenticationFailed.Error()
	case errors.Is(err, common.ErrPinMismatch):
		return http.StatusForbidden, common.ErrPinMismatch.Error()
	case errors.Is(err, common.ErrPinNotSet):
		return http.StatusPreconditionRequired, common.ErrPinNotSet.Error()
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, common.ErrorNotFound.Error()
	case errors.Is(err, common.ErrConflict):
		return http.StatusConflict, common.ErrConflict.Error()
	case errors.Is(err, common.ErrInvalidPinFormat):
		return http.StatusBadRequest, common.ErrInvalidPinFormat.Error()
	case errors.Is(err, common.ErrValidation), errors.Is(err, common.ErrInvalidParameters):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, common.ErrorInternal.Error()
	}
}

func errorHandler(logger logging.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := statusOf(err)
		if code >= http.StatusInternalServerError {
			logger.Error(c.Request().Context(), "request failed", "path", c.Path(), "error", err)
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(code)
		} else {
			werr = c.JSON(code, echo.Map{"message": msg})
		}
		if werr != nil {
			logger.Error(c.Request().Context(), "write error response", "error", werr)
		}
	}
}
