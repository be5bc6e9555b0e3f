package middleware

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"talentMarket/domain"
	"talentMarket/pkg/logger"
	"talentMarket/pkg/trace"
	"talentMarket/pkg/utils"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func newEcho() *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler
	return e
}

func bearer(t *testing.T, companyID, role string, ttl time.Duration) string {
	t.Helper()
	token, err := utils.GenerateJWT(secret, companyID, "u-"+companyID, role, ttl)
	require.NoError(t, err)
	return "Bearer " + token
}

func serve(e *echo.Echo, method, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestAuthMiddleware(t *testing.T) {
	e := newEcho()
	e.GET("/me", func(c echo.Context) error {
		return c.String(http.StatusOK, c.Get(ContextCompanyID).(string))
	}, AuthMiddleware(secret))

	rec := serve(e, http.MethodGet, "/me", bearer(t, "acme", utils.RoleCompany, time.Hour))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "acme", rec.Body.String())

	cases := map[string]struct {
		auth   string
		status int
	}{
		"missing header": {"", http.StatusUnauthorized},
		"wrong scheme":   {"Basic abc", http.StatusUnauthorized},
		"garbage token":  {"Bearer abc", http.StatusUnauthorized},
		"expired token":  {bearer(t, "acme", utils.RoleCompany, -time.Minute), http.StatusUnauthorized},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rec := serve(e, http.MethodGet, "/me", tc.auth)
			assert.Equal(t, tc.status, rec.Code)
			assert.Contains(t, rec.Body.String(), "UNAUTHORIZED")
		})
	}
}

func TestRoleGuards(t *testing.T) {
	e := newEcho()
	ok := func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }
	e.GET("/admin", ok, AuthMiddleware(secret), AdminOnly())
	e.GET("/company", ok, AuthMiddleware(secret), CompanyOnly())

	admin := bearer(t, "", utils.RoleAdmin, time.Hour)
	company := bearer(t, "acme", utils.RoleCompany, time.Hour)

	assert.Equal(t, http.StatusNoContent, serve(e, http.MethodGet, "/admin", admin).Code)
	assert.Equal(t, http.StatusForbidden, serve(e, http.MethodGet, "/admin", company).Code)
	assert.Equal(t, http.StatusNoContent, serve(e, http.MethodGet, "/company", company).Code)
	assert.Equal(t, http.StatusForbidden, serve(e, http.MethodGet, "/company", admin).Code)
}

func TestErrorHandlerMapsKinds(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{domain.Validationf("k must be positive"), http.StatusBadRequest, "VALIDATION_ERROR"},
		{domain.NotFoundf("job %q", "J1"), http.StatusNotFound, "NOT_FOUND"},
		{fmt.Errorf("unlock: %w", domain.ErrInsufficientBalance), http.StatusPaymentRequired, "INSUFFICIENT_BALANCE"},
		{domain.ErrSuppressedCandidate, http.StatusConflict, "SUPPRESSED_CANDIDATE"},
		{domain.ErrIllegalTransition, http.StatusConflict, "ILLEGAL_TRANSITION"},
		{domain.ErrConcurrencyConflict, http.StatusInternalServerError, "INTERNAL"},
		{errors.New("boom"), http.StatusInternalServerError, "INTERNAL"},
		{echo.NewHTTPError(http.StatusNotFound, "route not found"), http.StatusNotFound, "NOT_FOUND"},
	}
	for _, tc := range cases {
		t.Run(tc.code+"_"+tc.err.Error(), func(t *testing.T) {
			e := newEcho()
			e.GET("/x", func(c echo.Context) error { return tc.err })

			rec := serve(e, http.MethodGet, "/x", "")
			assert.Equal(t, tc.status, rec.Code)
			assert.Contains(t, rec.Body.String(), `"code":"`+tc.code+`"`)
		})
	}
}

func TestErrorHandlerHidesInternalDetail(t *testing.T) {
	e := newEcho()
	e.GET("/x", func(c echo.Context) error { return errors.New("password=hunter2") })

	rec := serve(e, http.MethodGet, "/x", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "hunter2")
}

func TestRequestLoggerCarriesTraceID(t *testing.T) {
	var text, js bytes.Buffer
	logger.InitWithWriters(&text, &js, slog.LevelDebug)

	e := newEcho()
	e.Use(echomiddleware.RequestID())
	e.Use(RequestLogger())

	var seen string
	e.GET("/jobs/:job_id", func(c echo.Context) error {
		seen = trace.TraceIDFromContext(c.Request().Context())
		return domain.NotFoundf("job")
	})

	rec := serve(e, http.MethodGet, "/jobs/J1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotEmpty(t, seen)
	assert.Equal(t, rec.Header().Get(echo.HeaderXRequestID), seen)
	assert.Contains(t, js.String(), `"trace_id":"`+seen+`"`)
	assert.Contains(t, js.String(), `"status":404`)
	assert.Contains(t, js.String(), `"route":"/jobs/:job_id"`)
}
