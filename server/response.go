package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/existflow/projectmate/internal/apperr"
	"github.com/existflow/projectmate/internal/logger"
	"github.com/existflow/projectmate/internal/pagination"
)

// envelope wraps every JSON response.
type envelope struct {
	Success    bool             `json:"success"`
	Message    string           `json:"message,omitempty"`
	Code       apperr.Code      `json:"code,omitempty"`
	Data       any              `json:"data,omitempty"`
	Pagination *pagination.Page `json:"pagination,omitempty"`
}

func ok(c echo.Context, status int, message string, data any) error {
	return c.JSON(status, envelope{Success: true, Message: message, Data: data})
}

func okPage(c echo.Context, data any, page pagination.Page) error {
	return c.JSON(http.StatusOK, envelope{Success: true, Data: data, Pagination: &page})
}

// statusOf maps an error kind to its HTTP status.
func statusOf(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindExpired:
		return http.StatusGone
	case apperr.KindInvalidState, apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// handleError writes the envelope for an error returned by a handler or
// middleware.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var (
		status = http.StatusInternalServerError
		body   = envelope{Message: "internal error", Code: apperr.CodeInternal}
		he     *echo.HTTPError
		ae     *apperr.Error
	)
	switch {
	case errors.As(err, &ae) && ae.Kind != apperr.KindInternal:
		status = statusOf(ae.Kind)
		body = envelope{Message: ae.Message, Code: ae.Code}
	case errors.As(err, &he):
		status = he.Code
		body = envelope{Message: fmt.Sprint(he.Message)}
		if status >= 500 {
			logger.Error("Request failed", logger.F("uri", c.Request().RequestURI), logger.Err(err))
		}
	default:
		logger.Error("Request failed", logger.F("uri", c.Request().RequestURI), logger.Err(err))
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, body)
	}
	if err != nil {
		logger.Warn("Failed to write error response", logger.Err(err))
	}
}

// bind decodes the request body and reports malformed JSON as a validation
// error.
func bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return apperr.Wrap(apperr.KindValidation, apperr.CodeValidation, "invalid request body", err)
	}
	return nil
}

func pageRequest(c echo.Context) pagination.Request {
	return pagination.Parse(c.QueryParam("page"), c.QueryParam("limit"))
}
