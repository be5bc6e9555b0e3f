package domain

import (
	"context"
	"time"
)

// Repository contracts. Implementations live in internal/repository and are
// only handed out inside a transaction by a Transactor.

type CatalogRepository interface {
	GetCandidate(ctx context.Context, id string) (Candidate, error)
	GetJob(ctx context.Context, id string) (Job, error)
	UpsertCandidate(ctx context.Context, c *Candidate) error
	UpsertJob(ctx context.Context, j *Job) error
	CandidatePool(ctx context.Context, job Job) ([]Candidate, error)
	JobPool(ctx context.Context, candidate Candidate) ([]Job, error)
}

type SuppressionRepository interface {
	Get(ctx context.Context, jobID, candidateID string) (SuppressionEntry, bool, error)
	Upsert(ctx context.Context, entry SuppressionEntry) error
	// ActiveForJob returns active entries keyed by candidate id.
	ActiveForJob(ctx context.Context, jobID string, now time.Time) (map[string]SuppressionEntry, error)
	// ActiveForCandidate returns active entries keyed by job id.
	ActiveForCandidate(ctx context.Context, candidateID string, now time.Time) (map[string]SuppressionEntry, error)
}

type MatchScoreRepository interface {
	// ReplaceSet drops the owner's previous ranked set and stores scores in its place.
	ReplaceSet(ctx context.Context, direction Direction, ownerID string, scores []MatchScore) error
	ListByJob(ctx context.Context, jobID string) ([]MatchScore, error)
	ListByCandidate(ctx context.Context, candidateID string) ([]MatchScore, error)
}

type WalletRepository interface {
	GetByCompany(ctx context.Context, companyID string) (Wallet, error)
	// LockByCompany and LockByID hold the wallet row until the transaction ends.
	LockByCompany(ctx context.Context, companyID string) (Wallet, error)
	LockByID(ctx context.Context, walletID string) (Wallet, error)
	Create(ctx context.Context, w *Wallet) error
	// UpdateBalance fails with ErrConcurrencyConflict when the stored version is not prevVersion.
	UpdateBalance(ctx context.Context, walletID string, balance, prevVersion int64, at time.Time) error
	List(ctx context.Context) ([]Wallet, error)
}

type LedgerRepository interface {
	Insert(ctx context.Context, entry *LedgerEntry) error
	FindByReference(ctx context.Context, walletID string, entryType EntryType, referenceID string) (LedgerEntry, bool, error)
	ListByCompany(ctx context.Context, companyID string, from, to time.Time, limit int) ([]LedgerEntry, error)
	Sum(ctx context.Context, walletID string) (sum int64, count int64, err error)
}

type GrantRepository interface {
	Get(ctx context.Context, jobID, candidateID, companyID string) (UnlockGrant, bool, error)
	Insert(ctx context.Context, grant *UnlockGrant) error
	ListByCompany(ctx context.Context, companyID, jobID string) ([]UnlockGrant, error)
}

type PipelineRepository interface {
	Get(ctx context.Context, jobID, candidateID string) (PipelineItem, bool, error)
	Save(ctx context.Context, item *PipelineItem) error
	// CreateIfMissing reports whether a new row was written.
	CreateIfMissing(ctx context.Context, item *PipelineItem) (bool, error)
	AppendEvent(ctx context.Context, event *PipelineEvent) error
	ListByJob(ctx context.Context, jobID string) ([]PipelineItem, error)
	ListByCandidate(ctx context.Context, candidateID string) ([]PipelineItem, error)
	Events(ctx context.Context, jobID, candidateID string) ([]PipelineEvent, error)
}

// Repositories is the set of repositories bound to one transaction.
type Repositories struct {
	Catalog      CatalogRepository
	Suppressions SuppressionRepository
	Matches      MatchScoreRepository
	Wallets      WalletRepository
	Ledger       LedgerRepository
	Grants       GrantRepository
	Pipeline     PipelineRepository
}

// Transactor runs fn inside one transaction. Anything fn writes is committed
// only if fn returns nil.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}
