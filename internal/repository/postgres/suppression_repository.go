package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"talentMarket/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SuppressionRepository struct {
	DB *gorm.DB
}

var _ domain.SuppressionRepository = (*SuppressionRepository)(nil)

func NewSuppressionRepository(db *gorm.DB) *SuppressionRepository {
	return &SuppressionRepository{DB: db}
}

func (r *SuppressionRepository) Get(ctx context.Context, jobID, candidateID string) (domain.SuppressionEntry, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.SuppressionEntry{}, false, fmt.Errorf("context error: %w", err)
	}

	var e domain.SuppressionEntry
	err := r.DB.WithContext(ctx).
		Where("job_id = ? AND candidate_id = ?", jobID, candidateID).
		First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.SuppressionEntry{}, false, nil
	}
	if err != nil {
		return domain.SuppressionEntry{}, false, wrapError(err, "find suppression")
	}
	return e, true, nil
}

func (r *SuppressionRepository) Upsert(ctx context.Context, entry domain.SuppressionEntry) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	err := r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "job_id"}, {Name: "candidate_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"reason_code", "created_at", "expires_at"}),
	}).Create(&entry).Error
	return wrapError(err, "upsert suppression")
}

func (r *SuppressionRepository) ActiveForJob(ctx context.Context, jobID string, now time.Time) (map[string]domain.SuppressionEntry, error) {
	rows, err := r.active(ctx, "job_id = ?", jobID, now)
	if err != nil {
		return nil, err
	}
	out := make(map[string]domain.SuppressionEntry, len(rows))
	for _, e := range rows {
		out[e.CandidateID] = e
	}
	return out, nil
}

func (r *SuppressionRepository) ActiveForCandidate(ctx context.Context, candidateID string, now time.Time) (map[string]domain.SuppressionEntry, error) {
	rows, err := r.active(ctx, "candidate_id = ?", candidateID, now)
	if err != nil {
		return nil, err
	}
	out := make(map[string]domain.SuppressionEntry, len(rows))
	for _, e := range rows {
		out[e.JobID] = e
	}
	return out, nil
}

func (r *SuppressionRepository) active(ctx context.Context, cond string, id string, now time.Time) ([]domain.SuppressionEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var rows []domain.SuppressionEntry
	err := r.DB.WithContext(ctx).
		Where(cond, id).
		Where("expires_at > ?", now).
		Find(&rows).Error
	if err != nil {
		return nil, wrapError(err, "list active suppressions")
	}
	return rows, nil
}
