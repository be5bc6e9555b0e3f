package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"talentMarket/domain"
	"talentMarket/pkg/logger"
	"talentMarket/pkg/metrics"
	"talentMarket/pkg/trace"

	"github.com/google/uuid"
)

const defaultStatementLimit = 100

// Service is the only writer of wallets and ledger entries.
type Service struct {
	tx    domain.Transactor
	clock domain.Clock
}

func NewService(tx domain.Transactor, clock domain.Clock) *Service {
	return &Service{
		tx:    tx,
		clock: clock,
	}
}

func (s *Service) Debit(ctx context.Context, walletID string, amount int64, reason, referenceID string) (domain.LedgerResult, error) {
	var res domain.LedgerResult
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos domain.Repositories) error {
		var err error
		res, err = s.ApplyDebit(ctx, repos, walletID, amount, reason, referenceID, s.clock.Now())
		return err
	})
	if err != nil {
		s.logFailure(ctx, "debit", err, walletID, referenceID)
		return domain.LedgerResult{}, err
	}
	countEntry(res)
	return res, nil
}

func (s *Service) Credit(ctx context.Context, walletID string, amount int64, reason, referenceID string) (domain.LedgerResult, error) {
	var res domain.LedgerResult
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos domain.Repositories) error {
		var err error
		res, err = s.ApplyCredit(ctx, repos, walletID, amount, reason, referenceID, s.clock.Now())
		return err
	})
	if err != nil {
		s.logFailure(ctx, "credit", err, walletID, referenceID)
		return domain.LedgerResult{}, err
	}
	countEntry(res)
	return res, nil
}

// TopUp credits a company's wallet, creating the wallet on first use.
func (s *Service) TopUp(ctx context.Context, companyID string, amount int64, referenceID string) (domain.LedgerResult, error) {
	var res domain.LedgerResult
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos domain.Repositories) error {
		now := s.clock.Now()
		w, err := s.GetOrCreateWallet(ctx, repos, companyID, now)
		if err != nil {
			return err
		}
		res, err = s.ApplyCredit(ctx, repos, w.ID, amount, domain.ReasonTopUp, referenceID, now)
		return err
	})
	if err != nil {
		s.logFailure(ctx, "topup", err, companyID, referenceID)
		return domain.LedgerResult{}, err
	}
	countEntry(res)
	return res, nil
}

func (s *Service) EnsureWallet(ctx context.Context, companyID string) (domain.Wallet, error) {
	var w domain.Wallet
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos domain.Repositories) error {
		var err error
		w, err = s.GetOrCreateWallet(ctx, repos, companyID, s.clock.Now())
		return err
	})
	return w, err
}

func (s *Service) WalletForCompany(ctx context.Context, companyID string) (domain.Wallet, error) {
	var w domain.Wallet
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos domain.Repositories) error {
		var err error
		w, err = repos.Wallets.GetByCompany(ctx, companyID)
		return err
	})
	return w, err
}

// Statement lists a company's entries, newest first, within [from, to).
// Zero times leave that side open.
func (s *Service) Statement(ctx context.Context, companyID string, from, to time.Time, limit int) ([]domain.LedgerEntry, error) {
	if strings.TrimSpace(companyID) == "" {
		return nil, domain.Validationf("company_id is required")
	}
	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		return nil, domain.Validationf("from must be before to")
	}
	if limit <= 0 {
		limit = defaultStatementLimit
	}

	var entries []domain.LedgerEntry
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos domain.Repositories) error {
		var err error
		entries, err = repos.Ledger.ListByCompany(ctx, companyID, from, to, limit)
		return err
	})
	return entries, err
}

// Reconcile checks balance == sum(delta) for one wallet.
func (s *Service) Reconcile(ctx context.Context, walletID string) (domain.Reconciliation, error) {
	var rec domain.Reconciliation
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos domain.Repositories) error {
		w, err := repos.Wallets.LockByID(ctx, walletID)
		if err != nil {
			return err
		}
		rec, err = reconcileWallet(ctx, repos, w)
		return err
	})
	return rec, err
}

func (s *Service) ReconcileAll(ctx context.Context) ([]domain.Reconciliation, error) {
	var out []domain.Reconciliation
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos domain.Repositories) error {
		wallets, err := repos.Wallets.List(ctx)
		if err != nil {
			return err
		}
		out = make([]domain.Reconciliation, 0, len(wallets))
		for _, w := range wallets {
			rec, err := reconcileWallet(ctx, repos, w)
			if err != nil {
				return err
			}
			if !rec.Consistent {
				logger.Error("ledger drift detected",
					"wallet_id", rec.WalletID,
					"company_id", rec.CompanyID,
					"balance", rec.Balance,
					"ledger_sum", rec.LedgerSum,
				)
			}
			out = append(out, rec)
		}
		return nil
	})
	return out, err
}

func reconcileWallet(ctx context.Context, repos domain.Repositories, w domain.Wallet) (domain.Reconciliation, error) {
	sum, count, err := repos.Ledger.Sum(ctx, w.ID)
	if err != nil {
		return domain.Reconciliation{}, fmt.Errorf("sum ledger for wallet %s: %w", w.ID, err)
	}
	return domain.Reconciliation{
		WalletID:   w.ID,
		CompanyID:  w.CompanyID,
		Balance:    w.Balance,
		LedgerSum:  sum,
		EntryCount: count,
		Consistent: sum == w.Balance,
	}, nil
}

// GetOrCreateWallet returns the company's wallet, creating an empty one
// the first time.
func (s *Service) GetOrCreateWallet(ctx context.Context, repos domain.Repositories, companyID string, now time.Time) (domain.Wallet, error) {
	if strings.TrimSpace(companyID) == "" {
		return domain.Wallet{}, domain.Validationf("company_id is required")
	}
	w, err := repos.Wallets.GetByCompany(ctx, companyID)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.Wallet{}, err
	}

	w = domain.Wallet{
		ID:        uuid.NewString(),
		CompanyID: companyID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repos.Wallets.Create(ctx, &w); err != nil {
		return domain.Wallet{}, err
	}
	logger.Info("wallet created", "wallet_id", w.ID, "company_id", companyID)
	return w, nil
}

// ApplyDebit runs inside the caller's transaction. It fails closed: on
// insufficient balance nothing is written. A reference already used with a
// different reason is a validation error.
func (s *Service) ApplyDebit(ctx context.Context, repos domain.Repositories, walletID string, amount int64, reason, referenceID string, now time.Time) (domain.LedgerResult, error) {
	return s.apply(ctx, repos, domain.EntryDebit, walletID, amount, reason, referenceID, now)
}

func (s *Service) ApplyCredit(ctx context.Context, repos domain.Repositories, walletID string, amount int64, reason, referenceID string, now time.Time) (domain.LedgerResult, error) {
	return s.apply(ctx, repos, domain.EntryCredit, walletID, amount, reason, referenceID, now)
}

func (s *Service) apply(ctx context.Context, repos domain.Repositories, entryType domain.EntryType, walletID string, amount int64, reason, referenceID string, now time.Time) (domain.LedgerResult, error) {
	if err := validateEntry(walletID, amount, reason, referenceID); err != nil {
		return domain.LedgerResult{}, err
	}

	w, err := repos.Wallets.LockByID(ctx, walletID)
	if err != nil {
		return domain.LedgerResult{}, err
	}

	prev, found, err := repos.Ledger.FindByReference(ctx, walletID, entryType, referenceID)
	if err != nil {
		return domain.LedgerResult{}, fmt.Errorf("lookup reference %s: %w", referenceID, err)
	}
	if found {
		if prev.Reason != reason {
			return domain.LedgerResult{}, domain.Validationf("reference %s is already used by a %s entry", referenceID, prev.Reason)
		}
		if abs(prev.Delta) != amount {
			logger.Warn("replayed ledger reference with a different amount",
				"wallet_id", walletID,
				"reference_id", referenceID,
				"recorded", abs(prev.Delta),
				"requested", amount,
			)
		}
		return domain.LedgerResult{Entry: prev, Balance: w.Balance, AlreadyApplied: true}, nil
	}

	delta := amount
	if entryType == domain.EntryDebit {
		if amount > w.Balance {
			return domain.LedgerResult{}, fmt.Errorf("%w: balance %d, requested %d", domain.ErrInsufficientBalance, w.Balance, amount)
		}
		delta = -amount
	}

	entry := domain.LedgerEntry{
		ID:          uuid.NewString(),
		WalletID:    w.ID,
		CompanyID:   w.CompanyID,
		EntryType:   entryType,
		Delta:       delta,
		Reason:      reason,
		ReferenceID: referenceID,
		CreatedAt:   now,
	}
	if err := repos.Ledger.Insert(ctx, &entry); err != nil {
		return domain.LedgerResult{}, err
	}

	balance := w.Balance + delta
	if err := repos.Wallets.UpdateBalance(ctx, w.ID, balance, w.Version, now); err != nil {
		return domain.LedgerResult{}, err
	}

	return domain.LedgerResult{Entry: entry, Balance: balance}, nil
}

// countEntry records a committed entry. Callers that run ApplyDebit or
// ApplyCredit inside their own transaction count after their commit.
func countEntry(res domain.LedgerResult) {
	if res.AlreadyApplied {
		return
	}
	metrics.LedgerEntriesTotal.WithLabelValues(string(res.Entry.EntryType), res.Entry.Reason).Inc()
}

func validateEntry(walletID string, amount int64, reason, referenceID string) error {
	switch {
	case strings.TrimSpace(walletID) == "":
		return domain.Validationf("wallet_id is required")
	case amount <= 0:
		return domain.Validationf("amount must be positive")
	case strings.TrimSpace(reason) == "":
		return domain.Validationf("reason is required")
	case strings.TrimSpace(referenceID) == "":
		return domain.Validationf("reference_id is required")
	}
	return nil
}

func (s *Service) logFailure(ctx context.Context, op string, err error, key, referenceID string) {
	if domain.KindOf(err) != domain.KindInternal {
		return
	}
	logger.Error("ledger operation failed",
		"trace_id", trace.TraceIDFromContext(ctx),
		"op", op,
		"key", key,
		"reference_id", referenceID,
		"error", err,
	)
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
