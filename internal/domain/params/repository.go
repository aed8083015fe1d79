package params

import "context"

// Repository reads and writes parameter rows in the App DB.
type Repository interface {
	GetByID(ctx context.Context, id int) (*Parameter, error)
	ListByCategory(ctx context.Context, categoryID int, onlyActive bool) ([]Parameter, error)
	ListCategories(ctx context.Context) ([]ParameterCategory, error)
	Save(ctx context.Context, p *Parameter) error
}
