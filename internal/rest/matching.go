package rest

import (
	"context"
	"net/http"

	"talentMarket/domain"

	"github.com/AMFarhan21/fres"
	"github.com/labstack/echo/v4"
)

type (
	MatchingService interface {
		GenerateForJob(ctx context.Context, jobID string, k int) ([]domain.MatchScore, error)
		GenerateForCandidate(ctx context.Context, candidateID string, k int) ([]domain.MatchScore, error)
		ListForJob(ctx context.Context, jobID string) ([]domain.MatchScore, error)
		ListForCandidate(ctx context.Context, candidateID string) ([]domain.MatchScore, error)
		ComputeMatchScore(ctx context.Context, candidateID, jobID string) (domain.MatchScore, error)
	}

	MatchingHandler struct {
		matchingService MatchingService
		jobs            JobFinder
	}

	// GenerateRequest accepts k from the body or the query string. 0 is the default size.
	GenerateRequest struct {
		K int `json:"k" query:"k"`
	}
)

func NewMatchingHandler(matchingService MatchingService, jobs JobFinder) *MatchingHandler {
	return &MatchingHandler{
		matchingService: matchingService,
		jobs:            jobs,
	}
}

func (h *MatchingHandler) GenerateForJob(c echo.Context) error {
	req, err := bindGenerate(c)
	if err != nil {
		return err
	}
	jobID := c.Param("job_id")

	ctx, cancel := context.WithTimeout(c.Request().Context(), defaultTimeout)
	defer cancel()

	if err := authorizeJob(ctx, c, h.jobs, jobID); err != nil {
		return err
	}

	scores, err := h.matchingService.GenerateForJob(ctx, jobID, req.K)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, fres.Response.StatusCreated(scores))
}

func (h *MatchingHandler) GenerateForCandidate(c echo.Context) error {
	req, err := bindGenerate(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), defaultTimeout)
	defer cancel()

	scores, err := h.matchingService.GenerateForCandidate(ctx, c.Param("candidate_id"), req.K)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, fres.Response.StatusCreated(scores))
}

func (h *MatchingHandler) ListForJob(c echo.Context) error {
	jobID := c.Param("job_id")

	ctx, cancel := context.WithTimeout(c.Request().Context(), defaultTimeout)
	defer cancel()

	if err := authorizeJob(ctx, c, h.jobs, jobID); err != nil {
		return err
	}

	scores, err := h.matchingService.ListForJob(ctx, jobID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(scores))
}

func (h *MatchingHandler) ListForCandidate(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), defaultTimeout)
	defer cancel()

	scores, err := h.matchingService.ListForCandidate(ctx, c.Param("candidate_id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(scores))
}

func (h *MatchingHandler) Score(c echo.Context) error {
	jobID := c.Param("job_id")

	ctx, cancel := context.WithTimeout(c.Request().Context(), defaultTimeout)
	defer cancel()

	if err := authorizeJob(ctx, c, h.jobs, jobID); err != nil {
		return err
	}

	score, err := h.matchingService.ComputeMatchScore(ctx, c.Param("candidate_id"), jobID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(score))
}

// bindGenerate reads k from the body, falling back to ?k= since echo does not
// bind the query string on POST.
func bindGenerate(c echo.Context) (GenerateRequest, error) {
	var req GenerateRequest
	if err := c.Bind(&req); err != nil {
		return req, bindError(err)
	}
	if req.K == 0 {
		if err := echo.QueryParamsBinder(c).Int("k", &req.K).BindError(); err != nil {
			return req, bindError(err)
		}
	}
	return req, nil
}
