// Package color manages the MECSA color catalog.
package color

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"mecsa/internal/core/apperror"
	"mecsa/internal/domain/audit"
)

// MecsaColor is a named color usable by fibers, yarns and fabrics.
type MecsaColor struct {
	ID          int    `db:"id"`
	Name        string `db:"name"`
	Slug        string `db:"slug"`
	Sku         string `db:"sku"`
	Hexadecimal string `db:"hexadecimal"`
	IsActive    bool   `db:"is_active"`
}

// Repository persists colors.
type Repository interface {
	GetByID(ctx context.Context, id int) (*MecsaColor, error)
	GetBySlug(ctx context.Context, slug string) (*MecsaColor, error)
	GetBySku(ctx context.Context, sku string) (*MecsaColor, error)
	List(ctx context.Context, onlyActive bool) ([]MecsaColor, error)
	NextID(ctx context.Context) (int, error)
	Insert(ctx context.Context, c *MecsaColor) error
	Update(ctx context.Context, c *MecsaColor) error
}

// CreateForm carries color creation input.
type CreateForm struct {
	Name        string
	Sku         string
	Hexadecimal string
}

// UpdateForm carries partial color updates.
type UpdateForm struct {
	Name        *string
	Sku         *string
	Hexadecimal *string
	IsActive    *bool
}

var hexPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Service owns color uniqueness rules.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Get(ctx context.Context, id int) (*MecsaColor, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperror.NewNotFound("color", id)
	}
	return c, nil
}

// GetActive returns a color only when active.
func (s *Service) GetActive(ctx context.Context, id int) (*MecsaColor, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.IsActive {
		return nil, apperror.NewNotFound("color", id)
	}
	return c, nil
}

func (s *Service) List(ctx context.Context, includeInactive bool) ([]MecsaColor, error) {
	return s.repo.List(ctx, !includeInactive)
}

// Create validates uniqueness of slug and sku and persists a new color.
func (s *Service) Create(ctx context.Context, form CreateForm) (*MecsaColor, error) {
	if strings.TrimSpace(form.Name) == "" {
		return nil, apperror.NewValidation("color name is required")
	}
	if form.Hexadecimal != "" && !hexPattern.MatchString(form.Hexadecimal) {
		return nil, apperror.NewValidation("hexadecimal must look like #RRGGBB")
	}

	slug := Slugify(form.Name)
	if existing, err := s.repo.GetBySlug(ctx, slug); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, apperror.NewDuplicate("color", "name")
	}
	if form.Sku != "" {
		if existing, err := s.repo.GetBySku(ctx, form.Sku); err != nil {
			return nil, err
		} else if existing != nil {
			return nil, apperror.NewDuplicate("color", "sku")
		}
	}

	id, err := s.repo.NextID(ctx)
	if err != nil {
		return nil, err
	}

	c := &MecsaColor{
		ID:          id,
		Name:        form.Name,
		Slug:        slug,
		Sku:         form.Sku,
		Hexadecimal: strings.ToUpper(form.Hexadecimal),
		IsActive:    true,
	}
	if err := s.repo.Insert(ctx, c); err != nil {
		return nil, err
	}
	audit.FromContext(ctx).Created("color", strconv.Itoa(c.ID), c.snapshot())
	return c, nil
}

// Update applies a partial update, re-checking uniqueness where needed.
func (s *Service) Update(ctx context.Context, id int, form UpdateForm) (*MecsaColor, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	old := c.snapshot()

	if form.Name != nil && *form.Name != c.Name {
		slug := Slugify(*form.Name)
		if existing, err := s.repo.GetBySlug(ctx, slug); err != nil {
			return nil, err
		} else if existing != nil && existing.ID != id {
			return nil, apperror.NewDuplicate("color", "name")
		}
		c.Name = *form.Name
		c.Slug = slug
	}
	if form.Sku != nil && *form.Sku != c.Sku {
		if existing, err := s.repo.GetBySku(ctx, *form.Sku); err != nil {
			return nil, err
		} else if existing != nil && existing.ID != id {
			return nil, apperror.NewDuplicate("color", "sku")
		}
		c.Sku = *form.Sku
	}
	if form.Hexadecimal != nil {
		if *form.Hexadecimal != "" && !hexPattern.MatchString(*form.Hexadecimal) {
			return nil, apperror.NewValidation("hexadecimal must look like #RRGGBB")
		}
		c.Hexadecimal = strings.ToUpper(*form.Hexadecimal)
	}
	if form.IsActive != nil {
		c.IsActive = *form.IsActive
	}

	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	audit.FromContext(ctx).Updated("color", strconv.Itoa(id), old, c.snapshot())
	return c, nil
}

func (c *MecsaColor) snapshot() map[string]any {
	return map[string]any{
		"id":          c.ID,
		"name":        c.Name,
		"slug":        c.Slug,
		"sku":         c.Sku,
		"hexadecimal": c.Hexadecimal,
		"is_active":   c.IsActive,
	}
}

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives the unique slug from a color name.
func Slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = slugStrip.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
