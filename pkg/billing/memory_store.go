package billing

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemStore is an in-memory Store with the same conditional-write
// semantics as MongoStore. Intended for tests and local development.
type MemStore struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*Record
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{records: make(map[uuid.UUID]*Record)}
}

// Seed inserts a record directly, bypassing the conditional-write
// rules. Test setup only.
func (s *MemStore) Seed(rec *Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	s.records[rec.UserID] = &cp
}

func (s *MemStore) Get(_ context.Context, userID uuid.UUID) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *MemStore) FindByCustomerID(_ context.Context, customerID string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if customerID != "" {
		for _, rec := range s.records {
			if rec.ProviderCustomerID == customerID {
				cp := *rec
				return &cp, nil
			}
		}
	}
	return nil, ErrUserNotFound
}

func (s *MemStore) Save(_ context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.records[rec.UserID]; ok {
		// Stale writer: a newer transition already landed.
		if existing.UpdatedAt.After(rec.UpdatedAt) {
			return nil
		}
		// Billing fields only; counters and customer reference are
		// owned by their dedicated operations.
		existing.Plan = rec.Plan
		existing.Status = rec.Status
		existing.Provider = rec.Provider
		existing.ProviderSubscriptionID = rec.ProviderSubscriptionID
		existing.UpdatedAt = rec.UpdatedAt
		return nil
	}

	cp := *rec
	s.records[rec.UserID] = &cp
	return nil
}

func (s *MemStore) SetCustomerID(_ context.Context, userID uuid.UUID, customerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[userID]
	if !ok {
		return ErrUserNotFound
	}
	if rec.ProviderCustomerID == "" {
		rec.ProviderCustomerID = customerID
	}
	return nil
}

func (s *MemStore) IncrementUsage(_ context.Context, userID uuid.UUID, feature Feature) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[userID]
	if !ok {
		return ErrUserNotFound
	}
	switch feature {
	case FeatureAIPlans:
		rec.AIPlansUsed++
	case FeatureTrainerChats:
		rec.TrainerChatsUsed++
	}
	return nil
}

func (s *MemStore) ResetUsage(_ context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[userID]
	if !ok {
		return ErrUserNotFound
	}
	rec.AIPlansUsed = 0
	rec.TrainerChatsUsed = 0
	rec.UpdatedAt = time.Now().UTC()
	return nil
}
