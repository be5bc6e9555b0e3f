package memory

import (
	"context"
	"sort"
	"time"

	"talentMarket/domain"
)

type catalogRepo struct{ st *state }

func (r *catalogRepo) GetCandidate(ctx context.Context, id string) (domain.Candidate, error) {
	c, ok := r.st.candidates[id]
	if !ok {
		return domain.Candidate{}, domain.NotFoundf("candidate %s", id)
	}
	return c, nil
}

func (r *catalogRepo) GetJob(ctx context.Context, id string) (domain.Job, error) {
	j, ok := r.st.jobs[id]
	if !ok {
		return domain.Job{}, domain.NotFoundf("job %s", id)
	}
	return j, nil
}

func (r *catalogRepo) UpsertCandidate(ctx context.Context, c *domain.Candidate) error {
	// timestamps come from the caller; only the first CreatedAt sticks
	if prev, ok := r.st.candidates[c.ID]; ok {
		c.CreatedAt = prev.CreatedAt
	}
	r.st.candidates[c.ID] = *c
	return nil
}

func (r *catalogRepo) UpsertJob(ctx context.Context, j *domain.Job) error {
	if prev, ok := r.st.jobs[j.ID]; ok {
		j.CreatedAt = prev.CreatedAt
	}
	r.st.jobs[j.ID] = *j
	return nil
}

func (r *catalogRepo) CandidatePool(ctx context.Context, job domain.Job) ([]domain.Candidate, error) {
	out := make([]domain.Candidate, 0, len(r.st.candidates))
	for _, c := range r.st.candidates {
		if job.AdmitsCandidate(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *catalogRepo) JobPool(ctx context.Context, candidate domain.Candidate) ([]domain.Job, error) {
	out := make([]domain.Job, 0, len(r.st.jobs))
	for _, j := range r.st.jobs {
		if j.AdmitsCandidate(candidate) {
			out = append(out, j)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out, nil
}

type suppressionRepo struct{ st *state }

func (r *suppressionRepo) Get(ctx context.Context, jobID, candidateID string) (domain.SuppressionEntry, bool, error) {
	e, ok := r.st.suppressions[pairKey{jobID, candidateID}]
	return e, ok, nil
}

func (r *suppressionRepo) Upsert(ctx context.Context, entry domain.SuppressionEntry) error {
	r.st.suppressions[pairKey{entry.JobID, entry.CandidateID}] = entry
	return nil
}

func (r *suppressionRepo) ActiveForJob(ctx context.Context, jobID string, now time.Time) (map[string]domain.SuppressionEntry, error) {
	out := make(map[string]domain.SuppressionEntry)
	for k, e := range r.st.suppressions {
		if k.jobID == jobID && e.ActiveAt(now) {
			out[k.candidateID] = e
		}
	}
	return out, nil
}

func (r *suppressionRepo) ActiveForCandidate(ctx context.Context, candidateID string, now time.Time) (map[string]domain.SuppressionEntry, error) {
	out := make(map[string]domain.SuppressionEntry)
	for k, e := range r.st.suppressions {
		if k.candidateID == candidateID && e.ActiveAt(now) {
			out[k.jobID] = e
		}
	}
	return out, nil
}

type matchRepo struct{ st *state }

func (r *matchRepo) ReplaceSet(ctx context.Context, direction domain.Direction, ownerID string, scores []domain.MatchScore) error {
	r.st.matches[setKey{direction, ownerID}] = append([]domain.MatchScore(nil), scores...)
	return nil
}

func (r *matchRepo) ListByJob(ctx context.Context, jobID string) ([]domain.MatchScore, error) {
	return append([]domain.MatchScore{}, r.st.matches[setKey{domain.DirectionJob, jobID}]...), nil
}

func (r *matchRepo) ListByCandidate(ctx context.Context, candidateID string) ([]domain.MatchScore, error) {
	return append([]domain.MatchScore{}, r.st.matches[setKey{domain.DirectionCandidate, candidateID}]...), nil
}

type walletRepo struct{ st *state }

func (r *walletRepo) GetByCompany(ctx context.Context, companyID string) (domain.Wallet, error) {
	for _, w := range r.st.wallets {
		if w.CompanyID == companyID {
			return w, nil
		}
	}
	return domain.Wallet{}, domain.NotFoundf("wallet for company %s", companyID)
}

// Rows are already exclusive: the store mutex is held for the whole transaction.
func (r *walletRepo) LockByCompany(ctx context.Context, companyID string) (domain.Wallet, error) {
	return r.GetByCompany(ctx, companyID)
}

func (r *walletRepo) LockByID(ctx context.Context, walletID string) (domain.Wallet, error) {
	w, ok := r.st.wallets[walletID]
	if !ok {
		return domain.Wallet{}, domain.NotFoundf("wallet %s", walletID)
	}
	return w, nil
}

func (r *walletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	for _, existing := range r.st.wallets {
		if existing.CompanyID == w.CompanyID {
			return domain.Validationf("wallet for company %s already exists", w.CompanyID)
		}
	}
	r.st.wallets[w.ID] = *w
	return nil
}

func (r *walletRepo) UpdateBalance(ctx context.Context, walletID string, balance, prevVersion int64, at time.Time) error {
	w, ok := r.st.wallets[walletID]
	if !ok {
		return domain.NotFoundf("wallet %s", walletID)
	}
	if w.Version != prevVersion {
		return domain.ErrConcurrencyConflict
	}
	w.Balance = balance
	w.Version = prevVersion + 1
	w.UpdatedAt = at
	r.st.wallets[walletID] = w
	return nil
}

func (r *walletRepo) List(ctx context.Context) ([]domain.Wallet, error) {
	out := make([]domain.Wallet, 0, len(r.st.wallets))
	for _, w := range r.st.wallets {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CompanyID < out[j].CompanyID })
	return out, nil
}

type ledgerRepo struct{ st *state }

func (r *ledgerRepo) Insert(ctx context.Context, entry *domain.LedgerEntry) error {
	if _, ok, _ := r.FindByReference(ctx, entry.WalletID, entry.EntryType, entry.ReferenceID); ok {
		return domain.ErrConcurrencyConflict
	}
	r.st.ledger = append(r.st.ledger, *entry)
	return nil
}

func (r *ledgerRepo) FindByReference(ctx context.Context, walletID string, entryType domain.EntryType, referenceID string) (domain.LedgerEntry, bool, error) {
	for _, e := range r.st.ledger {
		if e.WalletID == walletID && e.EntryType == entryType && e.ReferenceID == referenceID {
			return e, true, nil
		}
	}
	return domain.LedgerEntry{}, false, nil
}

func (r *ledgerRepo) ListByCompany(ctx context.Context, companyID string, from, to time.Time, limit int) ([]domain.LedgerEntry, error) {
	out := make([]domain.LedgerEntry, 0)
	for _, e := range r.st.ledger {
		if e.CompanyID != companyID {
			continue
		}
		if !from.IsZero() && e.CreatedAt.Before(from) {
			continue
		}
		if !to.IsZero() && !e.CreatedAt.Before(to) {
			continue
		}
		out = append(out, e)
	}
	// newest first; insertion order breaks ties
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *ledgerRepo) Sum(ctx context.Context, walletID string) (int64, int64, error) {
	var sum, count int64
	for _, e := range r.st.ledger {
		if e.WalletID == walletID {
			sum += e.Delta
			count++
		}
	}
	return sum, count, nil
}

type grantRepo struct{ st *state }

func (r *grantRepo) Get(ctx context.Context, jobID, candidateID, companyID string) (domain.UnlockGrant, bool, error) {
	g, ok := r.st.grants[grantKey{jobID, candidateID, companyID}]
	return g, ok, nil
}

func (r *grantRepo) Insert(ctx context.Context, grant *domain.UnlockGrant) error {
	k := grantKey{grant.JobID, grant.CandidateID, grant.CompanyID}
	if _, ok := r.st.grants[k]; ok {
		return domain.ErrConcurrencyConflict
	}
	r.st.grants[k] = *grant
	return nil
}

func (r *grantRepo) ListByCompany(ctx context.Context, companyID, jobID string) ([]domain.UnlockGrant, error) {
	out := make([]domain.UnlockGrant, 0)
	for k, g := range r.st.grants {
		if k.companyID != companyID {
			continue
		}
		if jobID != "" && k.jobID != jobID {
			continue
		}
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GrantedAt.After(out[j].GrantedAt) })
	return out, nil
}

type pipelineRepo struct{ st *state }

func (r *pipelineRepo) Get(ctx context.Context, jobID, candidateID string) (domain.PipelineItem, bool, error) {
	item, ok := r.st.pipeline[pairKey{jobID, candidateID}]
	return item, ok, nil
}

func (r *pipelineRepo) Save(ctx context.Context, item *domain.PipelineItem) error {
	r.st.pipeline[pairKey{item.JobID, item.CandidateID}] = *item
	return nil
}

func (r *pipelineRepo) CreateIfMissing(ctx context.Context, item *domain.PipelineItem) (bool, error) {
	k := pairKey{item.JobID, item.CandidateID}
	if _, ok := r.st.pipeline[k]; ok {
		return false, nil
	}
	r.st.pipeline[k] = *item
	return true, nil
}

func (r *pipelineRepo) AppendEvent(ctx context.Context, event *domain.PipelineEvent) error {
	r.st.nextEventID++
	event.ID = r.st.nextEventID
	r.st.events = append(r.st.events, *event)
	return nil
}

func (r *pipelineRepo) ListByJob(ctx context.Context, jobID string) ([]domain.PipelineItem, error) {
	out := make([]domain.PipelineItem, 0)
	for k, item := range r.st.pipeline {
		if k.jobID == jobID {
			out = append(out, item)
		}
	}
	sortItems(out)
	return out, nil
}

func (r *pipelineRepo) ListByCandidate(ctx context.Context, candidateID string) ([]domain.PipelineItem, error) {
	out := make([]domain.PipelineItem, 0)
	for k, item := range r.st.pipeline {
		if k.candidateID == candidateID {
			out = append(out, item)
		}
	}
	sortItems(out)
	return out, nil
}

func (r *pipelineRepo) Events(ctx context.Context, jobID, candidateID string) ([]domain.PipelineEvent, error) {
	out := make([]domain.PipelineEvent, 0)
	for _, ev := range r.st.events {
		if ev.JobID == jobID && ev.CandidateID == candidateID {
			out = append(out, ev)
		}
	}
	return out, nil
}

func sortItems(items []domain.PipelineItem) {
	sort.Slice(items, func(i, j int) bool {
		if !items[i].MovedAt.Equal(items[j].MovedAt) {
			return items[i].MovedAt.After(items[j].MovedAt)
		}
		if items[i].JobID != items[j].JobID {
			return items[i].JobID < items[j].JobID
		}
		return items[i].CandidateID < items[j].CandidateID
	})
}
