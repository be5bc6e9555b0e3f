package rest

import (
	"context"
	"net/http"
	"time"

	"talentMarket/business/refund"
	"talentMarket/domain"

	"github.com/AMFarhan21/fres"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type (
	WalletService interface {
		TopUp(ctx context.Context, companyID string, amount int64, referenceID string) (domain.LedgerResult, error)
		EnsureWallet(ctx context.Context, companyID string) (domain.Wallet, error)
		Statement(ctx context.Context, companyID string, from, to time.Time, limit int) ([]domain.LedgerEntry, error)
		ReconcileAll(ctx context.Context) ([]domain.Reconciliation, error)
	}

	RefundService interface {
		Refund(ctx context.Context, req refund.RefundRequest) (domain.LedgerResult, error)
	}

	WalletHandler struct {
		walletService WalletService
		refundService RefundService
		validate      *validator.Validate
	}

	TopUpRequest struct {
		CompanyID   string `json:"company_id" validate:"required"`
		Amount      int64  `json:"amount" validate:"gt=0"`
		ReferenceID string `json:"reference_id" validate:"required,max=128"`
	}

	StatementQuery struct {
		From  string `query:"from"`
		To    string `query:"to"`
		Limit int    `query:"limit" validate:"gte=0,lte=1000"`
	}
)

func NewWalletHandler(walletService WalletService, refundService RefundService) *WalletHandler {
	return &WalletHandler{
		walletService: walletService,
		refundService: refundService,
		validate:      validator.New(),
	}
}

func (h *WalletHandler) TopUp(c echo.Context) error {
	var req TopUpRequest
	if err := c.Bind(&req); err != nil {
		return bindError(err)
	}
	if err := h.validate.Struct(&req); err != nil {
		return domain.Validationf("%s", err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), defaultTimeout)
	defer cancel()

	res, err := h.walletService.TopUp(ctx, req.CompanyID, req.Amount, req.ReferenceID)
	if err != nil {
		return err
	}

	if res.AlreadyApplied {
		return c.JSON(http.StatusOK, fres.Response.StatusOK(res))
	}
	return c.JSON(http.StatusCreated, fres.Response.StatusCreated(res))
}

func (h *WalletHandler) Refund(c echo.Context) error {
	var req refund.RefundRequest
	if err := c.Bind(&req); err != nil {
		return bindError(err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), defaultTimeout)
	defer cancel()

	res, err := h.refundService.Refund(ctx, req)
	if err != nil {
		return err
	}

	if res.AlreadyApplied {
		return c.JSON(http.StatusOK, fres.Response.StatusOK(res))
	}
	return c.JSON(http.StatusCreated, fres.Response.StatusCreated(res))
}

// Me returns the caller's wallet, creating an empty one on first access.
func (h *WalletHandler) Me(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), defaultTimeout)
	defer cancel()

	wallet, err := h.walletService.EnsureWallet(ctx, companyID(c))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(wallet))
}

// Entries accepts RFC 3339 bounds: ?from=2026-01-01T00:00:00Z&to=...
func (h *WalletHandler) Entries(c echo.Context) error {
	var q StatementQuery
	if err := c.Bind(&q); err != nil {
		return bindError(err)
	}
	if err := h.validate.Struct(&q); err != nil {
		return domain.Validationf("%s", err)
	}
	from, err := parseTime("from", q.From)
	if err != nil {
		return err
	}
	to, err := parseTime("to", q.To)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), defaultTimeout)
	defer cancel()

	entries, err := h.walletService.Statement(ctx, companyID(c), from, to, q.Limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(entries))
}

func (h *WalletHandler) Reconcile(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), time.Minute)
	defer cancel()

	results, err := h.walletService.ReconcileAll(ctx)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(results))
}

func parseTime(name, raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, domain.Validationf("%s must be RFC 3339", name)
	}
	return t.UTC(), nil
}
