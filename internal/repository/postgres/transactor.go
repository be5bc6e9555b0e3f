package postgres

import (
	"context"
	"fmt"
	"time"

	"talentMarket/domain"
	"talentMarket/pkg/logger"
	"talentMarket/pkg/metrics"

	"github.com/cenkalti/backoff/v4"
	"gorm.io/gorm"
)

const (
	defaultMaxRetries = 3
	retryInitial      = 20 * time.Millisecond
	retryMax          = 500 * time.Millisecond
)

// Transactor runs units of work in a gorm transaction and retries the whole
// unit on transient contention, a bounded number of times.
type Transactor struct {
	DB         *gorm.DB
	MaxRetries int
}

var _ domain.Transactor = (*Transactor)(nil)

func NewTransactor(db *gorm.DB, maxRetries int) *Transactor {
	if maxRetries < 0 {
		maxRetries = defaultMaxRetries
	}
	return &Transactor{DB: db, MaxRetries: maxRetries}
}

func (t *Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context, repos domain.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	attempt := 0
	op := func() error {
		if attempt > 0 {
			metrics.TxRetriesTotal.Inc()
			logger.Debug("retrying transaction", "attempt", attempt)
		}
		attempt++

		err := t.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(ctx, Repositories(tx))
		})
		if err == nil {
			return nil
		}
		if isRetryable(err) {
			return err
		}
		return backoff.Permanent(err)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = retryInitial
	policy.MaxInterval = retryMax
	policy.MaxElapsedTime = 0

	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(t.MaxRetries)), ctx))
	if err != nil && isRetryable(err) {
		return domain.Internalf("transaction gave up after %d attempts: %v", attempt, err)
	}
	return err
}

// Repositories binds every repository to db, usually a transaction handle.
func Repositories(db *gorm.DB) domain.Repositories {
	return domain.Repositories{
		Catalog:      NewCatalogRepository(db),
		Suppressions: NewSuppressionRepository(db),
		Matches:      NewMatchScoreRepository(db),
		Wallets:      NewWalletRepository(db),
		Ledger:       NewLedgerRepository(db),
		Grants:       NewGrantRepository(db),
		Pipeline:     NewPipelineRepository(db),
	}
}
