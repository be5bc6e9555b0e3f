package postgres

import (
	"context"
	"errors"
	"fmt"

	"talentMarket/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PipelineRepository struct {
	DB *gorm.DB
}

var _ domain.PipelineRepository = (*PipelineRepository)(nil)

func NewPipelineRepository(db *gorm.DB) *PipelineRepository {
	return &PipelineRepository{DB: db}
}

func (r *PipelineRepository) Get(ctx context.Context, jobID, candidateID string) (domain.PipelineItem, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.PipelineItem{}, false, fmt.Errorf("context error: %w", err)
	}

	var item domain.PipelineItem
	err := r.DB.WithContext(ctx).
		Where("job_id = ? AND candidate_id = ?", jobID, candidateID).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.PipelineItem{}, false, nil
	}
	if err != nil {
		return domain.PipelineItem{}, false, wrapError(err, "find pipeline item")
	}
	return item, true, nil
}

func (r *PipelineRepository) Save(ctx context.Context, item *domain.PipelineItem) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	err := r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "job_id"}, {Name: "candidate_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"stage", "moved_at", "moved_by"}),
	}).Create(item).Error
	return wrapError(err, "save pipeline item")
}

func (r *PipelineRepository) CreateIfMissing(ctx context.Context, item *domain.PipelineItem) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("context error: %w", err)
	}

	result := r.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(item)
	if result.Error != nil {
		return false, wrapError(result.Error, "create pipeline item")
	}
	return result.RowsAffected == 1, nil
}

func (r *PipelineRepository) AppendEvent(ctx context.Context, event *domain.PipelineEvent) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}
	return wrapError(r.DB.WithContext(ctx).Create(event).Error, "append pipeline event")
}

func (r *PipelineRepository) ListByJob(ctx context.Context, jobID string) ([]domain.PipelineItem, error) {
	return r.list(ctx, "job_id = ?", jobID)
}

func (r *PipelineRepository) ListByCandidate(ctx context.Context, candidateID string) ([]domain.PipelineItem, error) {
	return r.list(ctx, "candidate_id = ?", candidateID)
}

func (r *PipelineRepository) list(ctx context.Context, cond, id string) ([]domain.PipelineItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var out []domain.PipelineItem
	err := r.DB.WithContext(ctx).
		Where(cond, id).
		Order("moved_at DESC, job_id ASC, candidate_id ASC").
		Find(&out).Error
	if err != nil {
		return nil, wrapError(err, "list pipeline items")
	}
	return out, nil
}

func (r *PipelineRepository) Events(ctx context.Context, jobID, candidateID string) ([]domain.PipelineEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var out []domain.PipelineEvent
	err := r.DB.WithContext(ctx).
		Where("job_id = ? AND candidate_id = ?", jobID, candidateID).
		Order("id ASC").
		Find(&out).Error
	if err != nil {
		return nil, wrapError(err, "list pipeline events")
	}
	return out, nil
}
