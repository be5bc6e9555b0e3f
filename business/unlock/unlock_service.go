package unlock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"talentMarket/domain"
	"talentMarket/pkg/logger"
	"talentMarket/pkg/metrics"
	"talentMarket/pkg/trace"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const defaultCost = 10

var grantNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("talentmarket/unlock-grant"))

type Ledger interface {
	ApplyDebit(ctx context.Context, repos domain.Repositories, walletID string, amount int64, reason, referenceID string, now time.Time) (domain.LedgerResult, error)
}

type SuppressionChecker interface {
	Check(ctx context.Context, repos domain.Repositories, jobID, candidateID string, now time.Time) (bool, error)
}

type PipelineAdvancer interface {
	Advance(ctx context.Context, repos domain.Repositories, jobID, candidateID string, target domain.PipelineStage, actor string, now time.Time) (domain.PipelineItem, error)
}

type Config struct {
	Cost int64
}

type UnlockRequest struct {
	JobID       string `json:"job_id" validate:"required"`
	CandidateID string `json:"candidate_id" validate:"required"`
	CompanyID   string `json:"company_id" validate:"required"`
	Actor       string `json:"actor"`
	// Cost overrides the configured price when positive. Not bound from requests.
	Cost int64 `json:"-"`
}

type Service struct {
	tx          domain.Transactor
	ledger      Ledger
	suppression SuppressionChecker
	pipeline    PipelineAdvancer
	validate    *validator.Validate
	cfg         Config
	clock       domain.Clock
}

func NewService(tx domain.Transactor, ledger Ledger, suppression SuppressionChecker, pipeline PipelineAdvancer, cfg Config, clock domain.Clock) *Service {
	if cfg.Cost <= 0 {
		cfg.Cost = defaultCost
	}
	return &Service{
		tx:          tx,
		ledger:      ledger,
		suppression: suppression,
		pipeline:    pipeline,
		validate:    validator.New(),
		cfg:         cfg,
		clock:       clock,
	}
}

// GrantReference is the ledger reference of the unlock debit for a triple.
// The same triple always yields the same reference.
func GrantReference(jobID, candidateID, companyID string) string {
	return uuid.NewSHA1(grantNamespace, []byte("unlock|"+jobID+"|"+candidateID+"|"+companyID)).String()
}

func (s *Service) Cost() int64 {
	return s.cfg.Cost
}

// Unlock charges the company once for access to the candidate and records
// the grant. The wallet row is locked before any check so that grant,
// suppression and balance are all read under the same lock.
func (s *Service) Unlock(ctx context.Context, req UnlockRequest) (domain.UnlockResult, error) {
	if err := s.validate.Struct(&req); err != nil {
		return domain.UnlockResult{}, domain.Validationf("%s", err)
	}
	cost := s.cfg.Cost
	if req.Cost > 0 {
		cost = req.Cost
	}
	actor := req.Actor
	if actor == "" {
		actor = req.CompanyID
	}

	var res domain.UnlockResult
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos domain.Repositories) error {
		var err error
		res, err = s.unlockTx(ctx, repos, req, cost, actor, s.clock.Now())
		return err
	})
	if err != nil {
		metrics.UnlockTotal.WithLabelValues(outcome(err)).Inc()
		if domain.KindOf(err) == domain.KindInternal {
			logger.Error("unlock failed",
				"trace_id", trace.TraceIDFromContext(ctx),
				"job_id", req.JobID,
				"candidate_id", req.CandidateID,
				"company_id", req.CompanyID,
				"error", err,
			)
		}
		return domain.UnlockResult{}, err
	}

	if res.AlreadyGranted {
		metrics.UnlockTotal.WithLabelValues("already_granted").Inc()
	} else {
		metrics.UnlockTotal.WithLabelValues("granted").Inc()
		metrics.LedgerEntriesTotal.WithLabelValues(string(domain.EntryDebit), domain.ReasonUnlock).Inc()
		logger.Info("candidate unlocked",
			"trace_id", trace.TraceIDFromContext(ctx),
			"job_id", req.JobID,
			"candidate_id", req.CandidateID,
			"company_id", req.CompanyID,
			"cost", res.Grant.Cost,
			"balance", res.Balance,
		)
	}
	return res, nil
}

func (s *Service) unlockTx(ctx context.Context, repos domain.Repositories, req UnlockRequest, cost int64, actor string, now time.Time) (domain.UnlockResult, error) {
	wallet, err := repos.Wallets.LockByCompany(ctx, req.CompanyID)
	walletMissing := errors.Is(err, domain.ErrNotFound)
	if err != nil && !walletMissing {
		return domain.UnlockResult{}, err
	}

	grant, found, err := repos.Grants.Get(ctx, req.JobID, req.CandidateID, req.CompanyID)
	if err != nil {
		return domain.UnlockResult{}, err
	}
	if found {
		stage, err := currentStage(ctx, repos, req.JobID, req.CandidateID)
		if err != nil {
			return domain.UnlockResult{}, err
		}
		return domain.UnlockResult{Grant: grant, Stage: stage, Balance: wallet.Balance, AlreadyGranted: true}, nil
	}

	job, err := repos.Catalog.GetJob(ctx, req.JobID)
	if err != nil {
		return domain.UnlockResult{}, err
	}
	if job.CompanyID != req.CompanyID {
		return domain.UnlockResult{}, domain.NotFoundf("job %s for company %s", req.JobID, req.CompanyID)
	}
	if _, err := repos.Catalog.GetCandidate(ctx, req.CandidateID); err != nil {
		return domain.UnlockResult{}, err
	}

	suppressed, err := s.suppression.Check(ctx, repos, req.JobID, req.CandidateID, now)
	if err != nil {
		return domain.UnlockResult{}, err
	}
	if suppressed {
		return domain.UnlockResult{}, fmt.Errorf("%w: job %s candidate %s", domain.ErrSuppressedCandidate, req.JobID, req.CandidateID)
	}

	if walletMissing {
		return domain.UnlockResult{}, fmt.Errorf("%w: company %s has no wallet", domain.ErrInsufficientBalance, req.CompanyID)
	}

	ref := GrantReference(req.JobID, req.CandidateID, req.CompanyID)
	debit, err := s.ledger.ApplyDebit(ctx, repos, wallet.ID, cost, domain.ReasonUnlock, ref, now)
	if err != nil {
		return domain.UnlockResult{}, err
	}

	grant = domain.UnlockGrant{
		JobID:         req.JobID,
		CandidateID:   req.CandidateID,
		CompanyID:     req.CompanyID,
		ReferenceID:   ref,
		LedgerEntryID: debit.Entry.ID,
		Cost:          -debit.Entry.Delta,
		GrantedAt:     now,
	}
	if err := repos.Grants.Insert(ctx, &grant); err != nil {
		return domain.UnlockResult{}, err
	}

	item, err := s.pipeline.Advance(ctx, repos, req.JobID, req.CandidateID, domain.StageContacted, actor, now)
	if err != nil {
		return domain.UnlockResult{}, err
	}

	return domain.UnlockResult{Grant: grant, Stage: item.Stage, Balance: debit.Balance}, nil
}

func (s *Service) ListGrants(ctx context.Context, companyID, jobID string) ([]domain.UnlockGrant, error) {
	if companyID == "" {
		return nil, domain.Validationf("company_id is required")
	}
	var grants []domain.UnlockGrant
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos domain.Repositories) error {
		var err error
		grants, err = repos.Grants.ListByCompany(ctx, companyID, jobID)
		return err
	})
	return grants, err
}

func currentStage(ctx context.Context, repos domain.Repositories, jobID, candidateID string) (domain.PipelineStage, error) {
	item, ok, err := repos.Pipeline.Get(ctx, jobID, candidateID)
	if err != nil || !ok {
		return "", err
	}
	return item.Stage, nil
}

func outcome(err error) string {
	switch domain.KindOf(err) {
	case domain.KindSuppressedCandidate:
		return "suppressed"
	case domain.KindInsufficientBalance:
		return "insufficient_balance"
	case domain.KindValidation, domain.KindNotFound:
		return "rejected"
	default:
		return "error"
	}
}
