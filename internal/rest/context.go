package rest

import (
	"context"
	"strings"
	"time"

	"talentMarket/domain"
	"talentMarket/internal/middleware"
	"talentMarket/pkg/utils"

	"github.com/labstack/echo/v4"
)

const defaultTimeout = 10 * time.Second

// JobFinder resolves a job so company tokens can be limited to their own jobs.
type JobFinder interface {
	GetJob(ctx context.Context, id string) (domain.Job, error)
}

func companyID(c echo.Context) string {
	id, _ := c.Get(middleware.ContextCompanyID).(string)
	return id
}

func actor(c echo.Context) string {
	if id, _ := c.Get(middleware.ContextUserID).(string); id != "" {
		return id
	}
	return companyID(c)
}

func isAdmin(c echo.Context) bool {
	role, _ := c.Get(middleware.ContextRole).(string)
	return strings.EqualFold(role, utils.RoleAdmin)
}

// authorizeJob returns NotFound rather than Forbidden for another company's job
// so job ids cannot be discovered.
func authorizeJob(ctx context.Context, c echo.Context, jobs JobFinder, jobID string) error {
	if isAdmin(c) {
		return nil
	}
	job, err := jobs.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.CompanyID != companyID(c) {
		return domain.NotFoundf("job %s", jobID)
	}
	return nil
}

func bindError(err error) error {
	return domain.Validationf("invalid request: %s", err)
}
