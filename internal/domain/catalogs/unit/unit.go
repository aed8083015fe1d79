// Package unit exposes the measurement unit catalog from the Promec DB.
package unit

import (
	"context"

	"mecsa/internal/core/apperror"
)

// Unit is a measurement unit referenced by inventory items.
type Unit struct {
	Code        string `db:"code"`
	Description string `db:"description"`
}

// Repository reads units.
type Repository interface {
	GetByCode(ctx context.Context, code string) (*Unit, error)
	List(ctx context.Context) ([]Unit, error)
}

// Service serves the unit catalog.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Get(ctx context.Context, code string) (*Unit, error) {
	u, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperror.NewNotFound("unit", code)
	}
	return u, nil
}

func (s *Service) List(ctx context.Context) ([]Unit, error) {
	return s.repo.List(ctx)
}
