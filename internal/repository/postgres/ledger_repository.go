package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"talentMarket/domain"

	"gorm.io/gorm"
)

type LedgerRepository struct {
	DB *gorm.DB
}

var _ domain.LedgerRepository = (*LedgerRepository)(nil)

func NewLedgerRepository(db *gorm.DB) *LedgerRepository {
	return &LedgerRepository{DB: db}
}

func (r *LedgerRepository) Insert(ctx context.Context, entry *domain.LedgerEntry) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}
	return wrapError(r.DB.WithContext(ctx).Create(entry).Error, "insert ledger entry")
}

func (r *LedgerRepository) FindByReference(ctx context.Context, walletID string, entryType domain.EntryType, referenceID string) (domain.LedgerEntry, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.LedgerEntry{}, false, fmt.Errorf("context error: %w", err)
	}

	var e domain.LedgerEntry
	err := r.DB.WithContext(ctx).
		Where("wallet_id = ? AND entry_type = ? AND reference_id = ?", walletID, entryType, referenceID).
		First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.LedgerEntry{}, false, nil
	}
	if err != nil {
		return domain.LedgerEntry{}, false, wrapError(err, "find ledger entry")
	}
	return e, true, nil
}

func (r *LedgerRepository) ListByCompany(ctx context.Context, companyID string, from, to time.Time, limit int) ([]domain.LedgerEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	q := r.DB.WithContext(ctx).Where("company_id = ?", companyID)
	if !from.IsZero() {
		q = q.Where("created_at >= ?", from)
	}
	if !to.IsZero() {
		q = q.Where("created_at < ?", to)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var out []domain.LedgerEntry
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, wrapError(err, "list ledger entries")
	}
	return out, nil
}

func (r *LedgerRepository) Sum(ctx context.Context, walletID string) (int64, int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, fmt.Errorf("context error: %w", err)
	}

	var row struct {
		Total int64
		Count int64
	}
	err := r.DB.WithContext(ctx).
		Model(&domain.LedgerEntry{}).
		Select("COALESCE(SUM(delta), 0) AS total, COUNT(*) AS count").
		Where("wallet_id = ?", walletID).
		Scan(&row).Error
	if err != nil {
		return 0, 0, wrapError(err, "sum ledger entries")
	}
	return row.Total, row.Count, nil
}
