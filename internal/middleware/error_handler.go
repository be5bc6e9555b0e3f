package middleware

import (
	"errors"
	"net/http"

	"talentMarket/domain"
	"talentMarket/pkg/logger"
	jsonres "talentMarket/pkg/response"
	"talentMarket/pkg/trace"

	"github.com/labstack/echo/v4"
)

// StatusFor maps a business error kind to an HTTP status.
func StatusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindInsufficientBalance:
		return http.StatusPaymentRequired
	case domain.KindSuppressedCandidate, domain.KindIllegalTransition:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// ErrorHandler renders every error returned by a handler as {code, message}.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok {
			msg = m
		}
		respond(c, he.Code, jsonres.Error(httpCode(he.Code), msg, nil))
		return
	}

	kind := domain.KindOf(err)
	status := StatusFor(kind)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error("Request failed",
			"error", err,
			"method", c.Request().Method,
			"path", c.Path(),
			"trace_id", trace.TraceIDFromContext(c.Request().Context()),
		)
		kind = domain.KindInternal
		msg = "internal server error"
	}

	respond(c, status, jsonres.Error(kind.String(), msg, nil))
}

func respond(c echo.Context, status int, body jsonres.ErrorBody) {
	var err error
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, body)
	}
	if err != nil {
		logger.Error("Failed to write error response", "error", err)
	}
}

func httpCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "BAD_REQUEST"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusForbidden:
		return "FORBIDDEN"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case http.StatusRequestEntityTooLarge:
		return "PAYLOAD_TOO_LARGE"
	default:
		if status >= 500 {
			return "INTERNAL"
		}
		return "HTTP_ERROR"
	}
}
