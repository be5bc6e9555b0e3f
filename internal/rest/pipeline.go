package rest

import (
	"context"
	"net/http"

	"talentMarket/business/pipeline"
	"talentMarket/domain"

	"github.com/AMFarhan21/fres"
	"github.com/labstack/echo/v4"
)

type PipelineService interface {
	Transition(ctx context.Context, req pipeline.TransitionRequest) (domain.PipelineItem, error)
	Reject(ctx context.Context, req pipeline.RejectRequest) (pipeline.RejectResult, error)
	Enter(ctx context.Context, jobID, candidateID, actor string) (domain.PipelineItem, bool, error)
	ListByJob(ctx context.Context, jobID string) ([]domain.PipelineItem, error)
	ListByCandidate(ctx context.Context, candidateID string) ([]domain.PipelineItem, error)
	History(ctx context.Context, jobID, candidateID string) ([]domain.PipelineEvent, error)
}

type PipelineHandler struct {
	pipelineService PipelineService
	jobs            JobFinder
}

type MoveStageRequest struct {
	Stage string `json:"stage"`
}

type RejectCandidateRequest struct {
	ReasonCode string `json:"reason_code"`
	Days       int    `json:"days"`
}

func NewPipelineHandler(pipelineService PipelineService, jobs JobFinder) *PipelineHandler {
	return &PipelineHandler{
		pipelineService: pipelineService,
		jobs:            jobs,
	}
}

func (h *PipelineHandler) Enter(c echo.Context) error {
	jobID, candidateID := c.Param("job_id"), c.Param("candidate_id")

	ctx, cancel := context.WithTimeout(c.Request().Context(), defaultTimeout)
	defer cancel()

	if err := authorizeJob(ctx, c, h.jobs, jobID); err != nil {
		return err
	}

	item, created, err := h.pipelineService.Enter(ctx, jobID, candidateID, actor(c))
	if err != nil {
		return err
	}

	if !created {
		return c.JSON(http.StatusOK, fres.Response.StatusOK(item))
	}
	return c.JSON(http.StatusCreated, fres.Response.StatusCreated(item))
}

func (h *PipelineHandler) MoveStage(c echo.Context) error {
	var req MoveStageRequest
	if err := c.Bind(&req); err != nil {
		return bindError(err)
	}
	jobID := c.Param("job_id")

	ctx, cancel := context.WithTimeout(c.Request().Context(), defaultTimeout)
	defer cancel()

	if err := authorizeJob(ctx, c, h.jobs, jobID); err != nil {
		return err
	}

	item, err := h.pipelineService.Transition(ctx, pipeline.TransitionRequest{
		JobID:       jobID,
		CandidateID: c.Param("candidate_id"),
		TargetStage: req.Stage,
		Actor:       actor(c),
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(item))
}

func (h *PipelineHandler) Reject(c echo.Context) error {
	var req RejectCandidateRequest
	if err := c.Bind(&req); err != nil {
		return bindError(err)
	}
	jobID := c.Param("job_id")

	ctx, cancel := context.WithTimeout(c.Request().Context(), defaultTimeout)
	defer cancel()

	if err := authorizeJob(ctx, c, h.jobs, jobID); err != nil {
		return err
	}

	res, err := h.pipelineService.Reject(ctx, pipeline.RejectRequest{
		JobID:       jobID,
		CandidateID: c.Param("candidate_id"),
		ReasonCode:  req.ReasonCode,
		Days:        req.Days,
		Actor:       actor(c),
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(res))
}

func (h *PipelineHandler) ListByJob(c echo.Context) error {
	jobID := c.Param("job_id")

	ctx, cancel := context.WithTimeout(c.Request().Context(), defaultTimeout)
	defer cancel()

	if err := authorizeJob(ctx, c, h.jobs, jobID); err != nil {
		return err
	}

	items, err := h.pipelineService.ListByJob(ctx, jobID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(items))
}

func (h *PipelineHandler) ListByCandidate(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), defaultTimeout)
	defer cancel()

	items, err := h.pipelineService.ListByCandidate(ctx, c.Param("candidate_id"))
	if err != nil {
		return err
	}
	if !isAdmin(c) {
		items, err = h.ownItems(ctx, companyID(c), items)
		if err != nil {
			return err
		}
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(items))
}

// ownItems drops items that belong to other companies' jobs.
func (h *PipelineHandler) ownItems(ctx context.Context, company string, items []domain.PipelineItem) ([]domain.PipelineItem, error) {
	owners := make(map[string]string)
	out := make([]domain.PipelineItem, 0, len(items))
	for _, item := range items {
		owner, ok := owners[item.JobID]
		if !ok {
			job, err := h.jobs.GetJob(ctx, item.JobID)
			if err != nil {
				return nil, err
			}
			owner = job.CompanyID
			owners[item.JobID] = owner
		}
		if owner == company {
			out = append(out, item)
		}
	}
	return out, nil
}

func (h *PipelineHandler) History(c echo.Context) error {
	jobID := c.Param("job_id")

	ctx, cancel := context.WithTimeout(c.Request().Context(), defaultTimeout)
	defer cancel()

	if err := authorizeJob(ctx, c, h.jobs, jobID); err != nil {
		return err
	}

	events, err := h.pipelineService.History(ctx, jobID, c.Param("candidate_id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(events))
}
