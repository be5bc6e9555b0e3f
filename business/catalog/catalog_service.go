package catalog

import (
	"context"
	"strings"
	"time"

	"talentMarket/domain"
	"talentMarket/pkg/logger"
	"talentMarket/pkg/trace"

	"github.com/go-playground/validator/v10"
)

// CandidateRequest mirrors the attributes of an externally owned candidate profile.
type CandidateRequest struct {
	ID                  string    `json:"-" validate:"required,max=128"`
	Skills              []string  `json:"skills" validate:"dive,required"`
	City                string    `json:"city"`
	Country             string    `json:"country" validate:"omitempty,max=64"`
	Latitude            *float64  `json:"latitude" validate:"omitempty,latitude"`
	Longitude           *float64  `json:"longitude" validate:"omitempty,longitude"`
	Languages           []string  `json:"languages" validate:"dive,required"`
	DesiredBenefits     []string  `json:"desired_benefits" validate:"dive,required"`
	ProfileCompleteness float64   `json:"profile_completeness" validate:"gte=0,lte=1"`
	LastActiveAt        time.Time `json:"last_active_at"`
}

type JobRequest struct {
	ID                string   `json:"-" validate:"required,max=128"`
	CompanyID         string   `json:"company_id" validate:"required,max=128"`
	Title             string   `json:"title"`
	RequiredSkills    []string `json:"required_skills" validate:"dive,required"`
	City              string   `json:"city"`
	Country           string   `json:"country" validate:"omitempty,max=64"`
	Latitude          *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude         *float64 `json:"longitude" validate:"omitempty,longitude"`
	Remote            bool     `json:"remote"`
	RequiredLanguages []string `json:"required_languages" validate:"dive,required"`
	Benefits          []string `json:"benefits" validate:"dive,required"`
}

type Service struct {
	tx       domain.Transactor
	validate *validator.Validate
	clock    domain.Clock
}

func NewService(tx domain.Transactor, clock domain.Clock) *Service {
	return &Service{
		tx:       tx,
		validate: validator.New(),
		clock:    clock,
	}
}

func (s *Service) UpsertCandidate(ctx context.Context, req CandidateRequest) (domain.Candidate, error) {
	if err := s.validate.Struct(&req); err != nil {
		return domain.Candidate{}, domain.Validationf("%s", err)
	}
	if (req.Latitude == nil) != (req.Longitude == nil) {
		return domain.Candidate{}, domain.Validationf("latitude and longitude must be set together")
	}

	c := domain.Candidate{
		ID:                  strings.TrimSpace(req.ID),
		Skills:              normalize(req.Skills),
		City:                strings.TrimSpace(req.City),
		Country:             strings.ToUpper(strings.TrimSpace(req.Country)),
		Latitude:            req.Latitude,
		Longitude:           req.Longitude,
		Languages:           normalize(req.Languages),
		DesiredBenefits:     normalize(req.DesiredBenefits),
		ProfileCompleteness: req.ProfileCompleteness,
		LastActiveAt:        req.LastActiveAt.UTC(),
	}
	now := s.clock.Now()
	c.CreatedAt, c.UpdatedAt = now, now
	if c.LastActiveAt.IsZero() {
		c.LastActiveAt = now
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos domain.Repositories) error {
		return repos.Catalog.UpsertCandidate(ctx, &c)
	})
	if err != nil {
		logger.Error("Failed to upsert candidate", "error", err, "candidate_id", c.ID, "trace_id", trace.TraceIDFromContext(ctx))
		return domain.Candidate{}, err
	}

	return c, nil
}

func (s *Service) UpsertJob(ctx context.Context, req JobRequest) (domain.Job, error) {
	if err := s.validate.Struct(&req); err != nil {
		return domain.Job{}, domain.Validationf("%s", err)
	}
	if (req.Latitude == nil) != (req.Longitude == nil) {
		return domain.Job{}, domain.Validationf("latitude and longitude must be set together")
	}

	j := domain.Job{
		ID:                strings.TrimSpace(req.ID),
		CompanyID:         strings.TrimSpace(req.CompanyID),
		Title:             strings.TrimSpace(req.Title),
		RequiredSkills:    normalize(req.RequiredSkills),
		City:              strings.TrimSpace(req.City),
		Country:           strings.ToUpper(strings.TrimSpace(req.Country)),
		Latitude:          req.Latitude,
		Longitude:         req.Longitude,
		Remote:            req.Remote,
		RequiredLanguages: normalize(req.RequiredLanguages),
		Benefits:          normalize(req.Benefits),
	}
	now := s.clock.Now()
	j.CreatedAt, j.UpdatedAt = now, now

	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos domain.Repositories) error {
		if prev, err := repos.Catalog.GetJob(ctx, j.ID); err == nil && prev.CompanyID != j.CompanyID {
			return domain.Validationf("job %s belongs to another company", j.ID)
		} else if err != nil && domain.KindOf(err) != domain.KindNotFound {
			return err
		}
		return repos.Catalog.UpsertJob(ctx, &j)
	})
	if err != nil {
		if domain.KindOf(err) == domain.KindInternal {
			logger.Error("Failed to upsert job", "error", err, "job_id", j.ID, "trace_id", trace.TraceIDFromContext(ctx))
		}
		return domain.Job{}, err
	}

	return j, nil
}

func (s *Service) GetCandidate(ctx context.Context, id string) (domain.Candidate, error) {
	var c domain.Candidate
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos domain.Repositories) error {
		var err error
		c, err = repos.Catalog.GetCandidate(ctx, id)
		return err
	})
	return c, err
}

func (s *Service) GetJob(ctx context.Context, id string) (domain.Job, error) {
	var j domain.Job
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos domain.Repositories) error {
		var err error
		j, err = repos.Catalog.GetJob(ctx, id)
		return err
	})
	return j, err
}

// normalize lower-cases, trims and de-duplicates a tag list, keeping first-seen order.
func normalize(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		v := strings.ToLower(strings.TrimSpace(it))
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
