package postgres

import (
	"context"
	"fmt"

	"talentMarket/domain"

	"gorm.io/gorm"
)

const matchBatchSize = 100

type MatchScoreRepository struct {
	DB *gorm.DB
}

var _ domain.MatchScoreRepository = (*MatchScoreRepository)(nil)

func NewMatchScoreRepository(db *gorm.DB) *MatchScoreRepository {
	return &MatchScoreRepository{DB: db}
}

// ReplaceSet must run inside a transaction. The advisory lock serializes
// concurrent generations for the same owner so the later commit replaces
// the whole set.
func (r *MatchScoreRepository) ReplaceSet(ctx context.Context, direction domain.Direction, ownerID string, scores []domain.MatchScore) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	db := r.DB.WithContext(ctx)
	if err := db.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", "match_scores:"+string(direction)+":"+ownerID).Error; err != nil {
		return wrapError(err, "lock ranked set")
	}

	owner := "job_id = ?"
	if direction == domain.DirectionCandidate {
		owner = "candidate_id = ?"
	}
	if err := db.Where("direction = ?", direction).Where(owner, ownerID).Delete(&domain.MatchScore{}).Error; err != nil {
		return wrapError(err, "delete previous ranked set")
	}

	if len(scores) == 0 {
		return nil
	}
	if err := db.CreateInBatches(scores, matchBatchSize).Error; err != nil {
		return wrapError(err, "insert ranked set")
	}
	return nil
}

func (r *MatchScoreRepository) ListByJob(ctx context.Context, jobID string) ([]domain.MatchScore, error) {
	return r.list(ctx, domain.DirectionJob, "job_id = ?", jobID)
}

func (r *MatchScoreRepository) ListByCandidate(ctx context.Context, candidateID string) ([]domain.MatchScore, error) {
	return r.list(ctx, domain.DirectionCandidate, "candidate_id = ?", candidateID)
}

func (r *MatchScoreRepository) list(ctx context.Context, direction domain.Direction, cond, id string) ([]domain.MatchScore, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var out []domain.MatchScore
	err := r.DB.WithContext(ctx).
		Where("direction = ?", direction).
		Where(cond, id).
		Order("position ASC").
		Find(&out).Error
	if err != nil {
		return nil, wrapError(err, "list ranked set")
	}
	return out, nil
}
