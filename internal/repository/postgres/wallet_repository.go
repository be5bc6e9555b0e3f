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

type WalletRepository struct {
	DB *gorm.DB
}

var _ domain.WalletRepository = (*WalletRepository)(nil)

func NewWalletRepository(db *gorm.DB) *WalletRepository {
	return &WalletRepository{DB: db}
}

func (r *WalletRepository) GetByCompany(ctx context.Context, companyID string) (domain.Wallet, error) {
	return r.find(ctx, r.DB, "company_id = ?", companyID)
}

func (r *WalletRepository) LockByCompany(ctx context.Context, companyID string) (domain.Wallet, error) {
	return r.find(ctx, r.DB.Clauses(clause.Locking{Strength: "UPDATE"}), "company_id = ?", companyID)
}

func (r *WalletRepository) LockByID(ctx context.Context, walletID string) (domain.Wallet, error) {
	return r.find(ctx, r.DB.Clauses(clause.Locking{Strength: "UPDATE"}), "id = ?", walletID)
}

func (r *WalletRepository) find(ctx context.Context, db *gorm.DB, cond string, arg string) (domain.Wallet, error) {
	if err := ctx.Err(); err != nil {
		return domain.Wallet{}, fmt.Errorf("context error: %w", err)
	}

	var w domain.Wallet
	err := db.WithContext(ctx).Where(cond, arg).First(&w).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Wallet{}, domain.NotFoundf("wallet %s", arg)
		}
		return domain.Wallet{}, wrapError(err, "find wallet")
	}
	return w, nil
}

func (r *WalletRepository) Create(ctx context.Context, w *domain.Wallet) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}
	return wrapError(r.DB.WithContext(ctx).Create(w).Error, "create wallet")
}

func (r *WalletRepository) UpdateBalance(ctx context.Context, walletID string, balance, prevVersion int64, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	result := r.DB.WithContext(ctx).
		Model(&domain.Wallet{}).
		Where("id = ? AND version = ?", walletID, prevVersion).
		Updates(map[string]interface{}{
			"balance":    balance,
			"version":    prevVersion + 1,
			"updated_at": at,
		})
	if result.Error != nil {
		return wrapError(result.Error, "update wallet balance")
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: wallet %s changed since version %d", domain.ErrConcurrencyConflict, walletID, prevVersion)
	}
	return nil
}

func (r *WalletRepository) List(ctx context.Context) ([]domain.Wallet, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var out []domain.Wallet
	if err := r.DB.WithContext(ctx).Order("company_id ASC").Find(&out).Error; err != nil {
		return nil, wrapError(err, "list wallets")
	}
	return out, nil
}
