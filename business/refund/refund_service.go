package refund

import (
	"context"
	"time"

	"talentMarket/domain"
	"talentMarket/pkg/logger"
	"talentMarket/pkg/metrics"
	"talentMarket/pkg/trace"

	"github.com/go-playground/validator/v10"
)

// Ledger is the slice of the token ledger a refund needs.
type Ledger interface {
	ApplyCredit(ctx context.Context, repos domain.Repositories, walletID string, amount int64, reason, referenceID string, now time.Time) (domain.LedgerResult, error)
}

type RefundRequest struct {
	CompanyID   string `json:"company_id" validate:"required"`
	Amount      int64  `json:"amount"`
	ReferenceID string `json:"reference_id" validate:"required,max=128"`
}

type Service struct {
	tx       domain.Transactor
	ledger   Ledger
	validate *validator.Validate
	clock    domain.Clock
}

func NewService(tx domain.Transactor, ledger Ledger, clock domain.Clock) *Service {
	return &Service{
		tx:       tx,
		ledger:   ledger,
		validate: validator.New(),
		clock:    clock,
	}
}

// Refund credits the company's wallet. The original debit is never touched;
// replaying the same reference returns the first credit.
func (s *Service) Refund(ctx context.Context, req RefundRequest) (domain.LedgerResult, error) {
	if err := s.validate.Struct(&req); err != nil {
		return domain.LedgerResult{}, domain.Validationf("%s", err)
	}
	if req.Amount <= 0 {
		return domain.LedgerResult{}, domain.Validationf("amount must be positive")
	}

	var res domain.LedgerResult
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos domain.Repositories) error {
		w, err := repos.Wallets.LockByCompany(ctx, req.CompanyID)
		if err != nil {
			return err
		}
		res, err = s.ledger.ApplyCredit(ctx, repos, w.ID, req.Amount, domain.ReasonRefund, req.ReferenceID, s.clock.Now())
		return err
	})
	if err != nil {
		if domain.KindOf(err) == domain.KindInternal {
			logger.Error("refund failed",
				"trace_id", trace.TraceIDFromContext(ctx),
				"company_id", req.CompanyID,
				"reference_id", req.ReferenceID,
				"amount", req.Amount,
				"error", err,
			)
		}
		return domain.LedgerResult{}, err
	}

	if !res.AlreadyApplied {
		metrics.LedgerEntriesTotal.WithLabelValues(string(domain.EntryCredit), domain.ReasonRefund).Inc()
	}
	logger.Info("refund applied",
		"trace_id", trace.TraceIDFromContext(ctx),
		"company_id", req.CompanyID,
		"reference_id", req.ReferenceID,
		"amount", req.Amount,
		"balance", res.Balance,
		"already_applied", res.AlreadyApplied,
	)
	return res, nil
}
