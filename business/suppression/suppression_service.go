package suppression

import (
	"context"
	"strings"
	"time"

	"talentMarket/domain"
	"talentMarket/pkg/logger"
	"talentMarket/pkg/metrics"
	"talentMarket/pkg/trace"

	"github.com/go-playground/validator/v10"
)

const (
	defaultCooldownDays = 30
	defaultMaxDays      = 365
)

type Config struct {
	DefaultCooldownDays int
	MaxCooldownDays     int
}

type SuppressRequest struct {
	JobID       string `json:"job_id" validate:"required"`
	CandidateID string `json:"candidate_id" validate:"required"`
	// 0 means the configured default cooldown
	Days       int    `json:"days" validate:"gte=0"`
	ReasonCode string `json:"reason" validate:"required,max=64"`
}

type Service struct {
	tx       domain.Transactor
	validate *validator.Validate
	cfg      Config
	clock    domain.Clock
}

func NewService(tx domain.Transactor, cfg Config, clock domain.Clock) *Service {
	if cfg.DefaultCooldownDays <= 0 {
		cfg.DefaultCooldownDays = defaultCooldownDays
	}
	if cfg.MaxCooldownDays <= 0 {
		cfg.MaxCooldownDays = defaultMaxDays
	}
	return &Service{
		tx:       tx,
		validate: validator.New(),
		cfg:      cfg,
		clock:    clock,
	}
}

func (s *Service) DefaultCooldownDays() int {
	return s.cfg.DefaultCooldownDays
}

func (s *Service) IsSuppressed(ctx context.Context, jobID, candidateID string) (bool, error) {
	var suppressed bool
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos domain.Repositories) error {
		var err error
		suppressed, err = s.Check(ctx, repos, jobID, candidateID, s.clock.Now())
		return err
	})
	return suppressed, err
}

// Active returns the pair's entry only while it is still in force.
func (s *Service) Active(ctx context.Context, jobID, candidateID string) (domain.SuppressionEntry, bool, error) {
	var (
		entry domain.SuppressionEntry
		found bool
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos domain.Repositories) error {
		e, ok, err := repos.Suppressions.Get(ctx, jobID, candidateID)
		if err != nil {
			return err
		}
		if ok && e.ActiveAt(s.clock.Now()) {
			entry, found = e, true
		}
		return nil
	})
	return entry, found, err
}

func (s *Service) Suppress(ctx context.Context, req SuppressRequest) (domain.SuppressionEntry, error) {
	if err := s.validate.Struct(&req); err != nil {
		return domain.SuppressionEntry{}, domain.Validationf("%s", err)
	}

	var entry domain.SuppressionEntry
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos domain.Repositories) error {
		var err error
		entry, err = s.Apply(ctx, repos, req.JobID, req.CandidateID, req.Days, req.ReasonCode, s.clock.Now())
		return err
	})
	if err != nil {
		return domain.SuppressionEntry{}, err
	}

	logger.Info("pair suppressed",
		"trace_id", trace.TraceIDFromContext(ctx),
		"job_id", entry.JobID,
		"candidate_id", entry.CandidateID,
		"reason", entry.ReasonCode,
		"expires_at", entry.ExpiresAt,
	)
	return entry, nil
}

// Check is the point lookup used inside other components' transactions.
func (s *Service) Check(ctx context.Context, repos domain.Repositories, jobID, candidateID string, now time.Time) (bool, error) {
	e, ok, err := repos.Suppressions.Get(ctx, jobID, candidateID)
	if err != nil {
		return false, err
	}
	suppressed := ok && e.ActiveAt(now)
	if suppressed {
		metrics.SuppressionChecksTotal.WithLabelValues("suppressed").Inc()
	} else {
		metrics.SuppressionChecksTotal.WithLabelValues("clear").Inc()
	}
	return suppressed, nil
}

// Apply upserts the pair with expiry now+days, replacing any previous entry.
func (s *Service) Apply(ctx context.Context, repos domain.Repositories, jobID, candidateID string, days int, reason string, now time.Time) (domain.SuppressionEntry, error) {
	if strings.TrimSpace(jobID) == "" || strings.TrimSpace(candidateID) == "" {
		return domain.SuppressionEntry{}, domain.Validationf("job_id and candidate_id are required")
	}
	if days < 0 {
		return domain.SuppressionEntry{}, domain.Validationf("days must not be negative")
	}
	if days == 0 {
		days = s.cfg.DefaultCooldownDays
	}
	if days > s.cfg.MaxCooldownDays {
		return domain.SuppressionEntry{}, domain.Validationf("days must be at most %d", s.cfg.MaxCooldownDays)
	}
	if strings.TrimSpace(reason) == "" {
		reason = domain.ReasonRejected
	}

	entry := domain.SuppressionEntry{
		JobID:       jobID,
		CandidateID: candidateID,
		ReasonCode:  reason,
		CreatedAt:   now,
		ExpiresAt:   now.AddDate(0, 0, days),
	}
	if err := repos.Suppressions.Upsert(ctx, entry); err != nil {
		return domain.SuppressionEntry{}, err
	}
	return entry, nil
}
