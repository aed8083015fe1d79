package params

import (
	"context"

	"mecsa/internal/core/apperror"
)

// Parameter category ids for the business dictionaries.
const (
	CategoryFabricTypes        = 1
	CategorySpinningMethods    = 2
	CategoryFiberCategories    = 3
	CategoryFiberDenominations = 4
	CategoryServiceOrderStatus = 5
	CategoryPasswordPolicy     = 6
)

// Service order status parameter ids.
const (
	OrderStatusUnstarted = 1018
	OrderStatusStarted   = 1019
	OrderStatusFinished  = 1020
	OrderStatusCancelled = 1021
)

// Fabric type values with structural constraints.
const (
	FabricTypeJersey = "JERSEY"
	FabricTypeRibBVD = "RIB BVD"
)

// Loader resolves named business constants from the parameter catalog.
type Loader struct {
	params *Service
}

func NewLoader(params *Service) *Loader {
	return &Loader{params: params}
}

// FabricTypes returns the active fabric type parameters.
func (l *Loader) FabricTypes(ctx context.Context) ([]Parameter, error) {
	return l.params.ListByCategory(ctx, CategoryFabricTypes)
}

// FabricType resolves one fabric type by id, gated on active.
func (l *Loader) FabricType(ctx context.Context, id int) (Parameter, error) {
	p, err := l.params.GetActive(ctx, id)
	if err != nil {
		return Parameter{}, apperror.NewNotFound("fabric-type", id)
	}
	if p.CategoryID != CategoryFabricTypes {
		return Parameter{}, apperror.NewNotFound("fabric-type", id)
	}
	return p, nil
}

// SpinningMethods returns the active spinning method parameters.
func (l *Loader) SpinningMethods(ctx context.Context) ([]Parameter, error) {
	return l.params.ListByCategory(ctx, CategorySpinningMethods)
}

// SpinningMethod resolves one spinning method by id, gated on active.
func (l *Loader) SpinningMethod(ctx context.Context, id int) (Parameter, error) {
	p, err := l.params.GetActive(ctx, id)
	if err != nil || p.CategoryID != CategorySpinningMethods {
		return Parameter{}, apperror.NewNotFound("spinning-method", id)
	}
	return p, nil
}

// FiberCategories returns the active fiber category parameters.
func (l *Loader) FiberCategories(ctx context.Context) ([]Parameter, error) {
	return l.params.ListByCategory(ctx, CategoryFiberCategories)
}

// FiberCategory resolves one fiber category by id, gated on active.
func (l *Loader) FiberCategory(ctx context.Context, id int) (Parameter, error) {
	p, err := l.params.GetActive(ctx, id)
	if err != nil || p.CategoryID != CategoryFiberCategories {
		return Parameter{}, apperror.NewNotFound("fiber-category", id)
	}
	return p, nil
}

// FiberDenomination resolves one fiber denomination by id, gated on active.
func (l *Loader) FiberDenomination(ctx context.Context, id int) (Parameter, error) {
	p, err := l.params.GetActive(ctx, id)
	if err != nil || p.CategoryID != CategoryFiberDenominations {
		return Parameter{}, apperror.NewNotFound("fiber-denomination", id)
	}
	return p, nil
}

// ServiceOrderStatus resolves a service order status parameter.
func (l *Loader) ServiceOrderStatus(ctx context.Context, id int) (Parameter, error) {
	p, err := l.params.GetActive(ctx, id)
	if err != nil || p.CategoryID != CategoryServiceOrderStatus {
		return Parameter{}, apperror.NewNotFound("service-order-status", id)
	}
	return p, nil
}

// PasswordPolicy holds password validation constants.
type PasswordPolicy struct {
	MinLength        int
	RequireUppercase bool
	RequireDigit     bool
	RequireSymbol    bool
}

// PasswordPolicy loads the password policy from its category; each policy
// parameter holds one constraint value.
func (l *Loader) PasswordPolicy(ctx context.Context) (PasswordPolicy, error) {
	policy := PasswordPolicy{MinLength: 8}

	list, err := l.params.ListByCategory(ctx, CategoryPasswordPolicy)
	if err != nil {
		return policy, err
	}

	for _, p := range list {
		switch p.DataType {
		case TypeInt:
			if n, err := p.AsInt(); err == nil {
				policy.MinLength = n
			}
		case TypeListString:
			for _, flag := range p.AsStringList() {
				switch flag {
				case "uppercase":
					policy.RequireUppercase = true
				case "digit":
					policy.RequireDigit = true
				case "symbol":
					policy.RequireSymbol = true
				}
			}
		}
	}
	return policy, nil
}
