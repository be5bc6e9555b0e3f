package postgres

import (
	"context"
	"errors"
	"fmt"

	"talentMarket/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CatalogRepository struct {
	DB *gorm.DB
}

var _ domain.CatalogRepository = (*CatalogRepository)(nil)

func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{DB: db}
}

func (r *CatalogRepository) GetCandidate(ctx context.Context, id string) (domain.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return domain.Candidate{}, fmt.Errorf("context error: %w", err)
	}

	var c domain.Candidate
	err := r.DB.WithContext(ctx).First(&c, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Candidate{}, domain.NotFoundf("candidate %s", id)
		}
		return domain.Candidate{}, wrapError(err, "find candidate")
	}
	return c, nil
}

func (r *CatalogRepository) GetJob(ctx context.Context, id string) (domain.Job, error) {
	if err := ctx.Err(); err != nil {
		return domain.Job{}, fmt.Errorf("context error: %w", err)
	}

	var j domain.Job
	err := r.DB.WithContext(ctx).First(&j, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Job{}, domain.NotFoundf("job %s", id)
		}
		return domain.Job{}, wrapError(err, "find job")
	}
	return j, nil
}

func (r *CatalogRepository) UpsertCandidate(ctx context.Context, c *domain.Candidate) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	err := r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"skills", "city", "country", "latitude", "longitude", "languages",
			"desired_benefits", "profile_completeness", "last_active_at", "updated_at",
		}),
	}).Create(c).Error
	return wrapError(err, "upsert candidate")
}

func (r *CatalogRepository) UpsertJob(ctx context.Context, j *domain.Job) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	err := r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"company_id", "title", "required_skills", "city", "country", "latitude", "longitude",
			"remote", "required_languages", "benefits", "updated_at",
		}),
	}).Create(j).Error
	return wrapError(err, "upsert job")
}

// CandidatePool applies the coarse location filter of Job.AdmitsCandidate in SQL.
func (r *CatalogRepository) CandidatePool(ctx context.Context, job domain.Job) ([]domain.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	q := r.DB.WithContext(ctx).Model(&domain.Candidate{})
	if !job.Remote && job.Country != "" {
		q = q.Where("country IS NULL OR country = '' OR lower(country) = lower(?)", job.Country)
	}

	var out []domain.Candidate
	if err := q.Order("id ASC").Find(&out).Error; err != nil {
		return nil, wrapError(err, "list candidate pool")
	}
	return out, nil
}

func (r *CatalogRepository) JobPool(ctx context.Context, candidate domain.Candidate) ([]domain.Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	q := r.DB.WithContext(ctx).Model(&domain.Job{})
	if candidate.Country != "" {
		q = q.Where("remote = ? OR country IS NULL OR country = '' OR lower(country) = lower(?)", true, candidate.Country)
	}

	var out []domain.Job
	if err := q.Order("id ASC").Find(&out).Error; err != nil {
		return nil, wrapError(err, "list job pool")
	}
	return out, nil
}
