package rest

import (
	"context"
	"net/http"

	"talentMarket/business/unlock"
	"talentMarket/domain"

	"github.com/AMFarhan21/fres"
	"github.com/labstack/echo/v4"
)

type UnlockService interface {
	Unlock(ctx context.Context, req unlock.UnlockRequest) (domain.UnlockResult, error)
	ListGrants(ctx context.Context, companyID, jobID string) ([]domain.UnlockGrant, error)
}

type UnlockHandler struct {
	unlockService UnlockService
}

type UnlockCandidateRequest struct {
	JobID       string `json:"job_id"`
	CandidateID string `json:"candidate_id"`
}

func NewUnlockHandler(unlockService UnlockService) *UnlockHandler {
	return &UnlockHandler{unlockService: unlockService}
}

// Unlock charges the caller's company. A repeated unlock answers 200 with
// already_granted set instead of 201.
func (h *UnlockHandler) Unlock(c echo.Context) error {
	var req UnlockCandidateRequest
	if err := c.Bind(&req); err != nil {
		return bindError(err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), defaultTimeout)
	defer cancel()

	res, err := h.unlockService.Unlock(ctx, unlock.UnlockRequest{
		JobID:       req.JobID,
		CandidateID: req.CandidateID,
		CompanyID:   companyID(c),
		Actor:       actor(c),
	})
	if err != nil {
		return err
	}

	if res.AlreadyGranted {
		return c.JSON(http.StatusOK, fres.Response.StatusOK(res))
	}
	return c.JSON(http.StatusCreated, fres.Response.StatusCreated(res))
}

func (h *UnlockHandler) ListGrants(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), defaultTimeout)
	defer cancel()

	grants, err := h.unlockService.ListGrants(ctx, companyID(c), c.QueryParam("job_id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(grants))
}
