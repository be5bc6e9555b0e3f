package pipeline

import (
	"context"
	"fmt"
	"time"

	"talentMarket/domain"
	"talentMarket/pkg/logger"
	"talentMarket/pkg/metrics"
	"talentMarket/pkg/trace"

	"github.com/go-playground/validator/v10"
)

// Suppressor writes the cooldown that a rejection implies.
type Suppressor interface {
	Apply(ctx context.Context, repos domain.Repositories, jobID, candidateID string, days int, reason string, now time.Time) (domain.SuppressionEntry, error)
}

type TransitionRequest struct {
	JobID       string `json:"job_id" validate:"required"`
	CandidateID string `json:"candidate_id" validate:"required"`
	TargetStage string `json:"target_stage" validate:"required"`
	Actor       string `json:"actor"`
}

type RejectRequest struct {
	JobID       string `json:"job_id" validate:"required"`
	CandidateID string `json:"candidate_id" validate:"required"`
	ReasonCode  string `json:"reason_code" validate:"required,max=64"`
	// 0 means the default cooldown
	Days  int    `json:"days" validate:"gte=0"`
	Actor string `json:"actor"`
}

type RejectResult struct {
	Suppression domain.SuppressionEntry `json:"suppression"`
	Item        domain.PipelineItem     `json:"item"`
}

type Service struct {
	tx         domain.Transactor
	suppressor Suppressor
	validate   *validator.Validate
	clock      domain.Clock
}

func NewService(tx domain.Transactor, suppressor Suppressor, clock domain.Clock) *Service {
	return &Service{
		tx:         tx,
		suppressor: suppressor,
		validate:   validator.New(),
		clock:      clock,
	}
}

// CanTransition reports whether from -> to is a legal move. Forward moves may
// skip stages; Rejected is reachable from every non-terminal stage.
func CanTransition(from, to domain.PipelineStage) error {
	if from.Terminal() {
		return fmt.Errorf("%w: %s is terminal", domain.ErrIllegalTransition, from)
	}
	if to == domain.StageRejected {
		return nil
	}
	if to.Position() < 0 || to.Position() <= from.Position() {
		return fmt.Errorf("%w: %s -> %s", domain.ErrIllegalTransition, from, to)
	}
	return nil
}

// Transition moves an existing pipeline item to req.TargetStage.
func (s *Service) Transition(ctx context.Context, req TransitionRequest) (domain.PipelineItem, error) {
	if err := s.validate.Struct(&req); err != nil {
		return domain.PipelineItem{}, domain.Validationf("%s", err)
	}
	target, ok := domain.ParseStage(req.TargetStage)
	if !ok {
		return domain.PipelineItem{}, domain.Validationf("unknown stage %q", req.TargetStage)
	}

	var item domain.PipelineItem
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos domain.Repositories) error {
		now := s.clock.Now()
		current, found, err := repos.Pipeline.Get(ctx, req.JobID, req.CandidateID)
		if err != nil {
			return err
		}
		if !found {
			return domain.NotFoundf("pipeline item for job %s candidate %s", req.JobID, req.CandidateID)
		}
		if err := CanTransition(current.Stage, target); err != nil {
			return err
		}
		if target == domain.StageRejected {
			if _, err := s.suppressor.Apply(ctx, repos, req.JobID, req.CandidateID, 0, domain.ReasonRejected, now); err != nil {
				return err
			}
		}
		item, err = move(ctx, repos, current, target, req.Actor, now)
		return err
	})
	if err != nil {
		s.logFailure(ctx, "transition", err, req.JobID, req.CandidateID)
		return domain.PipelineItem{}, err
	}

	logger.Info("pipeline stage changed",
		"trace_id", trace.TraceIDFromContext(ctx),
		"job_id", item.JobID,
		"candidate_id", item.CandidateID,
		"stage", item.Stage,
		"actor", item.MovedBy,
	)
	return item, nil
}

// Reject moves the pair to Rejected and writes the cooldown entry in the same
// transaction. Rejecting an already rejected pair only refreshes the cooldown.
func (s *Service) Reject(ctx context.Context, req RejectRequest) (RejectResult, error) {
	if err := s.validate.Struct(&req); err != nil {
		return RejectResult{}, domain.Validationf("%s", err)
	}

	var res RejectResult
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos domain.Repositories) error {
		now := s.clock.Now()
		current, found, err := repos.Pipeline.Get(ctx, req.JobID, req.CandidateID)
		if err != nil {
			return err
		}
		if !found {
			if err := ensurePair(ctx, repos, req.JobID, req.CandidateID); err != nil {
				return err
			}
			current = domain.PipelineItem{JobID: req.JobID, CandidateID: req.CandidateID, CreatedAt: now}
		} else if current.Stage != domain.StageRejected {
			if err := CanTransition(current.Stage, domain.StageRejected); err != nil {
				return err
			}
		}

		res.Suppression, err = s.suppressor.Apply(ctx, repos, req.JobID, req.CandidateID, req.Days, req.ReasonCode, now)
		if err != nil {
			return err
		}
		if current.Stage == domain.StageRejected {
			res.Item = current
			return nil
		}
		res.Item, err = move(ctx, repos, current, domain.StageRejected, req.Actor, now)
		return err
	})
	if err != nil {
		s.logFailure(ctx, "reject", err, req.JobID, req.CandidateID)
		return RejectResult{}, err
	}

	logger.Info("candidate rejected",
		"trace_id", trace.TraceIDFromContext(ctx),
		"job_id", req.JobID,
		"candidate_id", req.CandidateID,
		"reason", res.Suppression.ReasonCode,
		"expires_at", res.Suppression.ExpiresAt,
	)
	return res, nil
}

// Enter puts a candidate into the job's funnel at New. It is a no-op when
// an item already exists.
func (s *Service) Enter(ctx context.Context, jobID, candidateID, actor string) (domain.PipelineItem, bool, error) {
	var (
		item    domain.PipelineItem
		created bool
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos domain.Repositories) error {
		if err := ensurePair(ctx, repos, jobID, candidateID); err != nil {
			return err
		}
		var err error
		item, created, err = s.EnterTx(ctx, repos, jobID, candidateID, actor, s.clock.Now())
		return err
	})
	return item, created, err
}

func (s *Service) ListByJob(ctx context.Context, jobID string) ([]domain.PipelineItem, error) {
	var items []domain.PipelineItem
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos domain.Repositories) error {
		var err error
		items, err = repos.Pipeline.ListByJob(ctx, jobID)
		return err
	})
	return items, err
}

func (s *Service) ListByCandidate(ctx context.Context, candidateID string) ([]domain.PipelineItem, error) {
	var items []domain.PipelineItem
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos domain.Repositories) error {
		var err error
		items, err = repos.Pipeline.ListByCandidate(ctx, candidateID)
		return err
	})
	return items, err
}

func (s *Service) History(ctx context.Context, jobID, candidateID string) ([]domain.PipelineEvent, error) {
	var events []domain.PipelineEvent
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos domain.Repositories) error {
		var err error
		events, err = repos.Pipeline.Events(ctx, jobID, candidateID)
		return err
	})
	return events, err
}

// EnterTx creates a New item inside the caller's transaction if none exists.
func (s *Service) EnterTx(ctx context.Context, repos domain.Repositories, jobID, candidateID, actor string, now time.Time) (domain.PipelineItem, bool, error) {
	item := domain.PipelineItem{
		JobID:       jobID,
		CandidateID: candidateID,
		Stage:       domain.StageNew,
		MovedAt:     now,
		MovedBy:     actor,
		CreatedAt:   now,
	}
	created, err := repos.Pipeline.CreateIfMissing(ctx, &item)
	if err != nil {
		return domain.PipelineItem{}, false, err
	}
	if !created {
		existing, _, err := repos.Pipeline.Get(ctx, jobID, candidateID)
		return existing, false, err
	}
	err = repos.Pipeline.AppendEvent(ctx, &domain.PipelineEvent{
		JobID:       jobID,
		CandidateID: candidateID,
		ToStage:     domain.StageNew,
		Actor:       actor,
		CreatedAt:   now,
	})
	return item, true, err
}

// Advance moves the pair forward to target when the current stage allows it
// and leaves it untouched otherwise. A missing item is created at target.
func (s *Service) Advance(ctx context.Context, repos domain.Repositories, jobID, candidateID string, target domain.PipelineStage, actor string, now time.Time) (domain.PipelineItem, error) {
	current, found, err := repos.Pipeline.Get(ctx, jobID, candidateID)
	if err != nil {
		return domain.PipelineItem{}, err
	}
	if !found {
		current = domain.PipelineItem{JobID: jobID, CandidateID: candidateID, CreatedAt: now}
		return move(ctx, repos, current, target, actor, now)
	}
	if CanTransition(current.Stage, target) != nil {
		return current, nil
	}
	return move(ctx, repos, current, target, actor, now)
}

func move(ctx context.Context, repos domain.Repositories, item domain.PipelineItem, to domain.PipelineStage, actor string, now time.Time) (domain.PipelineItem, error) {
	from := item.Stage
	item.Stage = to
	item.MovedAt = now
	item.MovedBy = actor
	if err := repos.Pipeline.Save(ctx, &item); err != nil {
		return domain.PipelineItem{}, err
	}
	err := repos.Pipeline.AppendEvent(ctx, &domain.PipelineEvent{
		JobID:       item.JobID,
		CandidateID: item.CandidateID,
		FromStage:   from,
		ToStage:     to,
		Actor:       actor,
		CreatedAt:   now,
	})
	if err != nil {
		return domain.PipelineItem{}, err
	}
	metrics.PipelineTransitionsTotal.WithLabelValues(string(to)).Inc()
	return item, nil
}

func ensurePair(ctx context.Context, repos domain.Repositories, jobID, candidateID string) error {
	if _, err := repos.Catalog.GetJob(ctx, jobID); err != nil {
		return err
	}
	_, err := repos.Catalog.GetCandidate(ctx, candidateID)
	return err
}

func (s *Service) logFailure(ctx context.Context, op string, err error, jobID, candidateID string) {
	if domain.KindOf(err) != domain.KindInternal {
		return
	}
	logger.Error("pipeline operation failed",
		"trace_id", trace.TraceIDFromContext(ctx),
		"op", op,
		"job_id", jobID,
		"candidate_id", candidateID,
		"error", err,
	)
}
