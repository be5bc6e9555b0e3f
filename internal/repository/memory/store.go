// Package memory is an in-process implementation of every repository and
// of domain.Transactor. Transactions are serialized by one mutex and rolled
// back by restoring a snapshot taken when they start.
package memory

import (
	"context"
	"fmt"
	"sync"

	"talentMarket/domain"
)

type pairKey struct {
	jobID       string
	candidateID string
}

type setKey struct {
	direction domain.Direction
	ownerID   string
}

type grantKey struct {
	jobID       string
	candidateID string
	companyID   string
}

type state struct {
	candidates   map[string]domain.Candidate
	jobs         map[string]domain.Job
	suppressions map[pairKey]domain.SuppressionEntry
	matches      map[setKey][]domain.MatchScore
	wallets      map[string]domain.Wallet
	ledger       []domain.LedgerEntry
	grants       map[grantKey]domain.UnlockGrant
	pipeline     map[pairKey]domain.PipelineItem
	events       []domain.PipelineEvent
	nextEventID  uint
}

func newState() *state {
	return &state{
		candidates:   make(map[string]domain.Candidate),
		jobs:         make(map[string]domain.Job),
		suppressions: make(map[pairKey]domain.SuppressionEntry),
		matches:      make(map[setKey][]domain.MatchScore),
		wallets:      make(map[string]domain.Wallet),
		grants:       make(map[grantKey]domain.UnlockGrant),
		pipeline:     make(map[pairKey]domain.PipelineItem),
	}
}

func (s *state) clone() *state {
	out := newState()
	for k, v := range s.candidates {
		out.candidates[k] = v
	}
	for k, v := range s.jobs {
		out.jobs[k] = v
	}
	for k, v := range s.suppressions {
		out.suppressions[k] = v
	}
	for k, v := range s.matches {
		out.matches[k] = append([]domain.MatchScore(nil), v...)
	}
	for k, v := range s.wallets {
		out.wallets[k] = v
	}
	out.ledger = append([]domain.LedgerEntry(nil), s.ledger...)
	for k, v := range s.grants {
		out.grants[k] = v
	}
	for k, v := range s.pipeline {
		out.pipeline[k] = v
	}
	out.events = append([]domain.PipelineEvent(nil), s.events...)
	out.nextEventID = s.nextEventID
	return out
}

type Store struct {
	mu    sync.Mutex
	state *state
}

var _ domain.Transactor = (*Store)(nil)

func NewStore() *Store {
	return &Store{state: newState()}
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos domain.Repositories) error) (err error) {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	defer func() {
		if r := recover(); r != nil {
			s.state = snapshot
			panic(r)
		}
		if err != nil {
			s.state = snapshot
		}
	}()

	return fn(ctx, s.repositories(s.state))
}

func (s *Store) repositories(st *state) domain.Repositories {
	return domain.Repositories{
		Catalog:      &catalogRepo{st: st},
		Suppressions: &suppressionRepo{st: st},
		Matches:      &matchRepo{st: st},
		Wallets:      &walletRepo{st: st},
		Ledger:       &ledgerRepo{st: st},
		Grants:       &grantRepo{st: st},
		Pipeline:     &pipelineRepo{st: st},
	}
}
