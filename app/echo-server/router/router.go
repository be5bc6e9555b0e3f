package router

import (
	"talentMarket/internal/bootstrap"
	"talentMarket/internal/middleware"
	"talentMarket/internal/rest"

	"github.com/labstack/echo/v4"
)

type Handlers struct {
	Catalog     *rest.CatalogHandler
	Matching    *rest.MatchingHandler
	Pipeline    *rest.PipelineHandler
	Suppression *rest.SuppressionHandler
	Unlock      *rest.UnlockHandler
	Wallet      *rest.WalletHandler
}

func NewHandlers(c *bootstrap.Container) Handlers {
	return Handlers{
		Catalog:     rest.NewCatalogHandler(c.Catalog),
		Matching:    rest.NewMatchingHandler(c.Ranking, c.Catalog),
		Pipeline:    rest.NewPipelineHandler(c.Pipeline, c.Catalog),
		Suppression: rest.NewSuppressionHandler(c.Suppression, c.Catalog),
		Unlock:      rest.NewUnlockHandler(c.Unlock),
		Wallet:      rest.NewWalletHandler(c.Ledger, c.Refund),
	}
}

// Register mounts every route under /api/v1.
func Register(e *echo.Echo, h Handlers, jwtSecret string) {
	authRequired := middleware.AuthMiddleware(jwtSecret)
	adminOnly := middleware.AdminOnly()
	companyOnly := middleware.CompanyOnly()

	api := e.Group("/api/v1", authRequired)
	SetupCatalogRoutes(api, h.Catalog, adminOnly)
	SetupMatchingRoutes(api, h.Matching)
	SetupPipelineRoutes(api, h.Pipeline)
	SetupSuppressionRoutes(api, h.Suppression)
	SetupUnlockRoutes(api, h.Unlock, companyOnly)
	SetupWalletRoutes(api, h.Wallet, adminOnly, companyOnly)
}

func SetupCatalogRoutes(api *echo.Group, handler *rest.CatalogHandler, adminOnly echo.MiddlewareFunc) {
	catalog := api.Group("/catalog", adminOnly)

	catalog.PUT("/candidates/:id", handler.UpsertCandidate)
	catalog.GET("/candidates/:id", handler.GetCandidate)
	catalog.PUT("/jobs/:id", handler.UpsertJob)
	catalog.GET("/jobs/:id", handler.GetJob)
}

func SetupMatchingRoutes(api *echo.Group, handler *rest.MatchingHandler) {
	api.POST("/jobs/:job_id/matches/generate", handler.GenerateForJob)
	api.GET("/jobs/:job_id/matches", handler.ListForJob)
	api.GET("/jobs/:job_id/candidates/:candidate_id/score", handler.Score)

	api.POST("/candidates/:candidate_id/matches/generate", handler.GenerateForCandidate)
	api.GET("/candidates/:candidate_id/matches", handler.ListForCandidate)
}

func SetupPipelineRoutes(api *echo.Group, handler *rest.PipelineHandler) {
	api.POST("/jobs/:job_id/candidates/:candidate_id/pipeline", handler.Enter)
	api.PUT("/jobs/:job_id/candidates/:candidate_id/stage", handler.MoveStage)
	api.POST("/jobs/:job_id/candidates/:candidate_id/reject", handler.Reject)
	api.GET("/jobs/:job_id/candidates/:candidate_id/history", handler.History)
	api.GET("/jobs/:job_id/pipeline", handler.ListByJob)
	api.GET("/candidates/:candidate_id/pipeline", handler.ListByCandidate)
}

func SetupSuppressionRoutes(api *echo.Group, handler *rest.SuppressionHandler) {
	api.POST("/suppressions", handler.Suppress)
	api.GET("/jobs/:job_id/candidates/:candidate_id/suppression", handler.Status)
}

func SetupUnlockRoutes(api *echo.Group, handler *rest.UnlockHandler, companyOnly echo.MiddlewareFunc) {
	unlocks := api.Group("/unlocks", companyOnly)
	unlocks.POST("", handler.Unlock)
	unlocks.GET("", handler.ListGrants)
}

func SetupWalletRoutes(api *echo.Group, handler *rest.WalletHandler, adminOnly, companyOnly echo.MiddlewareFunc) {
	wallets := api.Group("/wallets")
	wallets.GET("/me", handler.Me, companyOnly)
	wallets.GET("/me/entries", handler.Entries, companyOnly)
	wallets.POST("/topup", handler.TopUp, adminOnly)
	wallets.GET("/reconcile", handler.Reconcile, adminOnly)

	api.POST("/refunds", handler.Refund, adminOnly)
}
