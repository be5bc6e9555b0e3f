package postgres

import (
	"context"
	"errors"
	"fmt"

	"talentMarket/domain"

	"gorm.io/gorm"
)

type GrantRepository struct {
	DB *gorm.DB
}

var _ domain.GrantRepository = (*GrantRepository)(nil)

func NewGrantRepository(db *gorm.DB) *GrantRepository {
	return &GrantRepository{DB: db}
}

func (r *GrantRepository) Get(ctx context.Context, jobID, candidateID, companyID string) (domain.UnlockGrant, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.UnlockGrant{}, false, fmt.Errorf("context error: %w", err)
	}

	var g domain.UnlockGrant
	err := r.DB.WithContext(ctx).
		Where("job_id = ? AND candidate_id = ? AND company_id = ?", jobID, candidateID, companyID).
		First(&g).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.UnlockGrant{}, false, nil
	}
	if err != nil {
		return domain.UnlockGrant{}, false, wrapError(err, "find unlock grant")
	}
	return g, true, nil
}

func (r *GrantRepository) Insert(ctx context.Context, grant *domain.UnlockGrant) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}
	return wrapError(r.DB.WithContext(ctx).Create(grant).Error, "insert unlock grant")
}

func (r *GrantRepository) ListByCompany(ctx context.Context, companyID, jobID string) ([]domain.UnlockGrant, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	q := r.DB.WithContext(ctx).Where("company_id = ?", companyID)
	if jobID != "" {
		q = q.Where("job_id = ?", jobID)
	}

	var out []domain.UnlockGrant
	if err := q.Order("granted_at DESC").Find(&out).Error; err != nil {
		return nil, wrapError(err, "list unlock grants")
	}
	return out, nil
}
