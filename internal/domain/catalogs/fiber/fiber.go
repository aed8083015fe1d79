// Package fiber manages the raw-material fiber catalog in the App DB.
package fiber

import (
	"context"

	"github.com/google/uuid"

	"mecsa/internal/core/apperror"
	"mecsa/internal/domain/audit"
	"mecsa/internal/domain/catalogs/color"
	"mecsa/internal/domain/params"
)

// Fiber is a raw material usable in yarn recipes.
type Fiber struct {
	ID             string `db:"id"`
	CategoryID     int    `db:"category_id"`
	DenominationID *int   `db:"denomination_id"`
	ColorID        *int   `db:"color_id"`
	IsActive       bool   `db:"is_active"`
}

// Repository persists fibers.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Fiber, error)
	GetByIDs(ctx context.Context, ids []string) ([]Fiber, error)
	List(ctx context.Context, onlyActive bool) ([]Fiber, error)
	Insert(ctx context.Context, f *Fiber) error
	Update(ctx context.Context, f *Fiber) error
}

// CreateForm carries fiber creation input.
type CreateForm struct {
	CategoryID     int
	DenominationID *int
	ColorID        *int
}

// UpdateForm carries partial fiber updates.
type UpdateForm struct {
	CategoryID     *int
	DenominationID *int
	ColorID        *int
	IsActive       *bool
}

// Service validates fiber references against parameters and colors.
type Service struct {
	repo   Repository
	loader *params.Loader
	colors *color.Service
}

func NewService(repo Repository, loader *params.Loader, colors *color.Service) *Service {
	return &Service{repo: repo, loader: loader, colors: colors}
}

func (s *Service) Get(ctx context.Context, id string) (*Fiber, error) {
	f, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, apperror.NewNotFound("fiber", id)
	}
	return f, nil
}

func (s *Service) List(ctx context.Context, includeInactive bool) ([]Fiber, error) {
	return s.repo.List(ctx, !includeInactive)
}

func (s *Service) Create(ctx context.Context, form CreateForm) (*Fiber, error) {
	if err := s.validateRefs(ctx, form.CategoryID, form.DenominationID, form.ColorID); err != nil {
		return nil, err
	}

	f := &Fiber{
		ID:             uuid.NewString(),
		CategoryID:     form.CategoryID,
		DenominationID: form.DenominationID,
		ColorID:        form.ColorID,
		IsActive:       true,
	}
	if err := s.repo.Insert(ctx, f); err != nil {
		return nil, err
	}
	audit.FromContext(ctx).Created("fiber", f.ID, f.snapshot())
	return f, nil
}

func (s *Service) Update(ctx context.Context, id string, form UpdateForm) (*Fiber, error) {
	f, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	old := f.snapshot()

	if form.CategoryID != nil {
		f.CategoryID = *form.CategoryID
	}
	if form.DenominationID != nil {
		f.DenominationID = form.DenominationID
	}
	if form.ColorID != nil {
		f.ColorID = form.ColorID
	}
	if err := s.validateRefs(ctx, f.CategoryID, f.DenominationID, f.ColorID); err != nil {
		return nil, err
	}
	if form.IsActive != nil {
		f.IsActive = *form.IsActive
	}

	if err := s.repo.Update(ctx, f); err != nil {
		return nil, err
	}
	audit.FromContext(ctx).Updated("fiber", f.ID, old, f.snapshot())
	return f, nil
}

func (f *Fiber) snapshot() map[string]any {
	return map[string]any{
		"id":              f.ID,
		"category_id":     f.CategoryID,
		"denomination_id": f.DenominationID,
		"color_id":        f.ColorID,
		"is_active":       f.IsActive,
	}
}

// RequireActive loads a set of fibers and fails when any is missing or
// inactive. Used by yarn recipe validation.
func (s *Service) RequireActive(ctx context.Context, ids []string) (map[string]Fiber, error) {
	fibers, err := s.repo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]Fiber, len(fibers))
	for _, f := range fibers {
		byID[f.ID] = f
	}
	for _, id := range ids {
		f, ok := byID[id]
		if !ok {
			return nil, apperror.NewNotFound("fiber", id)
		}
		if !f.IsActive {
			return nil, apperror.NewUnprocessable(apperror.CodeRecipeInvalid,
				"recipe references an inactive fiber").WithDetail("fiber_id", id)
		}
	}
	return byID, nil
}

func (s *Service) validateRefs(ctx context.Context, categoryID int, denominationID, colorID *int) error {
	if _, err := s.loader.FiberCategory(ctx, categoryID); err != nil {
		return err
	}
	if denominationID != nil {
		if _, err := s.loader.FiberDenomination(ctx, *denominationID); err != nil {
			return err
		}
	}
	if colorID != nil {
		if _, err := s.colors.GetActive(ctx, *colorID); err != nil {
			return err
		}
	}
	return nil
}
