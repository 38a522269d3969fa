package service

import (
	"context"
	"sync"
	"time"

	"github.com/noah-isme/league-scheduler-api/internal/dto"
	"github.com/noah-isme/league-scheduler-api/internal/scheduler"
)

const proposalKeyPrefix = "league:proposal:"

// scheduleProposal is a generation result awaiting a save.
type scheduleProposal struct {
	ProposalID  string                        `json:"proposalId"`
	Teams       []string                      `json:"teams"`
	Divisions   []dto.DivisionRequest         `json:"divisions,omitempty"`
	Weeks       int                           `json:"weeks"`
	Status      scheduler.Outcome             `json:"status"`
	Solutions   []scheduler.ProjectedSchedule `json:"solutions"`
	RequestedAt time.Time                     `json:"requestedAt"`
}

type proposalStore interface {
	Save(ctx context.Context, proposal scheduleProposal) error
	Get(ctx context.Context, id string) (scheduleProposal, bool, error)
	Delete(ctx context.Context, id string) error
}

type memoryProposalStore struct {
	ttl   time.Duration
	mu    sync.RWMutex
	items map[string]scheduleProposal
}

func newMemoryProposalStore(ttl time.Duration) *memoryProposalStore {
	return &memoryProposalStore{
		ttl:   ttl,
		items: make(map[string]scheduleProposal),
	}
}

func (s *memoryProposalStore) Save(_ context.Context, proposal scheduleProposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictExpired()
	s.items[proposal.ProposalID] = proposal
	return nil
}

func (s *memoryProposalStore) Get(ctx context.Context, id string) (scheduleProposal, bool, error) {
	s.mu.RLock()
	proposal, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return scheduleProposal{}, false, nil
	}
	if time.Since(proposal.RequestedAt) > s.ttl {
		_ = s.Delete(ctx, id)
		return scheduleProposal{}, false, nil
	}
	return proposal, true, nil
}

func (s *memoryProposalStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
	return nil
}

// evictExpired must be called with the write lock held.
func (s *memoryProposalStore) evictExpired() {
	for id, proposal := range s.items {
		if time.Since(proposal.RequestedAt) > s.ttl {
			delete(s.items, id)
		}
	}
}

// cacheProposalStore keeps proposals in Redis so any replica can save them.
type cacheProposalStore struct {
	cache *CacheService
	ttl   time.Duration
}

func newCacheProposalStore(cache *CacheService, ttl time.Duration) *cacheProposalStore {
	return &cacheProposalStore{cache: cache, ttl: ttl}
}

func (s *cacheProposalStore) Save(ctx context.Context, proposal scheduleProposal) error {
	return s.cache.Set(ctx, proposalKeyPrefix+proposal.ProposalID, proposal, s.ttl)
}

func (s *cacheProposalStore) Get(ctx context.Context, id string) (scheduleProposal, bool, error) {
	var proposal scheduleProposal
	hit, err := s.cache.Get(ctx, proposalKeyPrefix+id, &proposal)
	if err != nil || !hit {
		return scheduleProposal{}, false, err
	}
	return proposal, true, nil
}

func (s *cacheProposalStore) Delete(ctx context.Context, id string) error {
	return s.cache.Delete(ctx, proposalKeyPrefix+id)
}
