package rest

import (
	"context"
	"net/http"

	"talentMarket/business/catalog"
	"talentMarket/domain"

	"github.com/AMFarhan21/fres"
	"github.com/labstack/echo/v4"
)

type CatalogService interface {
	UpsertCandidate(ctx context.Context, req catalog.CandidateRequest) (domain.Candidate, error)
	UpsertJob(ctx context.Context, req catalog.JobRequest) (domain.Job, error)
	GetCandidate(ctx context.Context, id string) (domain.Candidate, error)
	GetJob(ctx context.Context, id string) (domain.Job, error)
}

type CatalogHandler struct {
	catalogService CatalogService
}

func NewCatalogHandler(catalogService CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService}
}

func (h *CatalogHandler) UpsertCandidate(c echo.Context) error {
	var req catalog.CandidateRequest
	if err := c.Bind(&req); err != nil {
		return bindError(err)
	}
	req.ID = c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request().Context(), defaultTimeout)
	defer cancel()

	candidate, err := h.catalogService.UpsertCandidate(ctx, req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(candidate))
}

func (h *CatalogHandler) UpsertJob(c echo.Context) error {
	var req catalog.JobRequest
	if err := c.Bind(&req); err != nil {
		return bindError(err)
	}
	req.ID = c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request().Context(), defaultTimeout)
	defer cancel()

	job, err := h.catalogService.UpsertJob(ctx, req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(job))
}

func (h *CatalogHandler) GetCandidate(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), defaultTimeout)
	defer cancel()

	candidate, err := h.catalogService.GetCandidate(ctx, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(candidate))
}

func (h *CatalogHandler) GetJob(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), defaultTimeout)
	defer cancel()

	job, err := h.catalogService.GetJob(ctx, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(job))
}
