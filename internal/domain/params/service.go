package params

import (
	"context"
	"sync"
	"sync/atomic"

	"mecsa/internal/core/apperror"
)

// Service serves parameters through a process-wide read-mostly cache.
// The cache is invalidated by a generation counter bumped on every write.
type Service struct {
	repo Repository

	generation atomic.Int64

	mu          sync.RWMutex
	cachedGen   int64
	byID        map[int]Parameter
	byCategory  map[int][]Parameter
	initialized bool
}

func NewService(repo Repository) *Service {
	return &Service{
		repo:       repo,
		byID:       make(map[int]Parameter),
		byCategory: make(map[int][]Parameter),
	}
}

// Get returns a parameter by id, active or not.
func (s *Service) Get(ctx context.Context, id int) (Parameter, error) {
	if p, ok := s.cachedByID(id); ok {
		return p, nil
	}

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Parameter{}, err
	}
	if p == nil {
		return Parameter{}, apperror.NewNotFound("parameter", id)
	}

	s.store(*p)
	return *p, nil
}

// GetActive returns a parameter by id, failing when inactive.
func (s *Service) GetActive(ctx context.Context, id int) (Parameter, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return Parameter{}, err
	}
	if !p.IsActive {
		return Parameter{}, apperror.NewNotFound("parameter", id)
	}
	return p, nil
}

// ListByCategory returns the active parameters of a category.
func (s *Service) ListByCategory(ctx context.Context, categoryID int) ([]Parameter, error) {
	if list, ok := s.cachedByCategory(categoryID); ok {
		return list, nil
	}

	list, err := s.repo.ListByCategory(ctx, categoryID, true)
	if err != nil {
		return nil, err
	}

	s.storeCategory(categoryID, list)
	return list, nil
}

// Save persists a parameter and invalidates the cache.
func (s *Service) Save(ctx context.Context, p *Parameter) error {
	if err := s.repo.Save(ctx, p); err != nil {
		return err
	}
	s.generation.Add(1)
	return nil
}

// Invalidate drops the cache, forcing reloads.
func (s *Service) Invalidate() {
	s.generation.Add(1)
}

func (s *Service) cachedByID(id int) (Parameter, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cachedGen != s.generation.Load() {
		return Parameter{}, false
	}
	p, ok := s.byID[id]
	return p, ok
}

func (s *Service) cachedByCategory(categoryID int) ([]Parameter, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cachedGen != s.generation.Load() {
		return nil, false
	}
	list, ok := s.byCategory[categoryID]
	return list, ok
}

func (s *Service) store(p Parameter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetIfStaleLocked()
	s.byID[p.ID] = p
}

func (s *Service) storeCategory(categoryID int, list []Parameter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetIfStaleLocked()
	s.byCategory[categoryID] = list
	for _, p := range list {
		s.byID[p.ID] = p
	}
}

func (s *Service) resetIfStaleLocked() {
	gen := s.generation.Load()
	if s.cachedGen != gen {
		s.byID = make(map[int]Parameter)
		s.byCategory = make(map[int][]Parameter)
		s.cachedGen = gen
	}
}
