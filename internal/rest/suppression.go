package rest

import (
	"context"
	"net/http"

	"talentMarket/business/suppression"
	"talentMarket/domain"

	"github.com/AMFarhan21/fres"
	"github.com/labstack/echo/v4"
)

type SuppressionService interface {
	Suppress(ctx context.Context, req suppression.SuppressRequest) (domain.SuppressionEntry, error)
	Active(ctx context.Context, jobID, candidateID string) (domain.SuppressionEntry, bool, error)
}

type SuppressionHandler struct {
	suppressionService SuppressionService
	jobs               JobFinder
}

type SuppressionStatus struct {
	Suppressed bool                     `json:"suppressed"`
	Entry      *domain.SuppressionEntry `json:"entry,omitempty"`
}

func NewSuppressionHandler(suppressionService SuppressionService, jobs JobFinder) *SuppressionHandler {
	return &SuppressionHandler{
		suppressionService: suppressionService,
		jobs:               jobs,
	}
}

func (h *SuppressionHandler) Suppress(c echo.Context) error {
	var req suppression.SuppressRequest
	if err := c.Bind(&req); err != nil {
		return bindError(err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), defaultTimeout)
	defer cancel()

	if req.JobID != "" {
		if err := authorizeJob(ctx, c, h.jobs, req.JobID); err != nil {
			return err
		}
	}

	entry, err := h.suppressionService.Suppress(ctx, req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, fres.Response.StatusCreated(entry))
}

func (h *SuppressionHandler) Status(c echo.Context) error {
	jobID := c.Param("job_id")

	ctx, cancel := context.WithTimeout(c.Request().Context(), defaultTimeout)
	defer cancel()

	if err := authorizeJob(ctx, c, h.jobs, jobID); err != nil {
		return err
	}

	entry, active, err := h.suppressionService.Active(ctx, jobID, c.Param("candidate_id"))
	if err != nil {
		return err
	}

	status := SuppressionStatus{Suppressed: active}
	if active {
		status.Entry = &entry
	}
	return c.JSON(http.StatusOK, fres.Response.StatusOK(status))
}
