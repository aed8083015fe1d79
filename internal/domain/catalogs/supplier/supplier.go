// Package supplier manages the supplier master and its service, address and
// color children in the Promec DB.
package supplier

import (
	"context"
	"strconv"

	"mecsa/internal/core/apperror"
)

// Service codes a supplier can be associated with.
const (
	ServiceYarn    = "HIL" // yarn purchase
	ServiceWeaving = "003" // weaving
	ServiceDyeing  = "004" // dyeing
)

// Supplier is one row of the supplier master.
type Supplier struct {
	Code        string `db:"code"`
	Name        string `db:"name"`
	Address     string `db:"address"`
	RUC         string `db:"ruc"`
	Initials    string `db:"initials"`
	StorageCode string `db:"storage_code"`
	Email       string `db:"email"`
	IsActive    string `db:"is_active"`
}

// Active reports whether the supplier is active.
func (s *Supplier) Active() bool { return s.IsActive == "A" }

// SupplierService associates a supplier with a service it renders and holds
// the per-service purchase sequence.
type SupplierService struct {
	SupplierCode   string `db:"supplier_code"`
	ServiceCode    string `db:"service_code"`
	SequenceNumber int64  `db:"sequence_number"`
}

// SupplierAddress is an alternate delivery address.
type SupplierAddress struct {
	SupplierCode string `db:"supplier_code"`
	AddressID    int    `db:"address_id"`
	Address      string `db:"address"`
}

// SupplierColor is a dye color the supplier can produce.
type SupplierColor struct {
	SupplierCode string `db:"supplier_code"`
	ColorID      string `db:"color_id"`
	Name         string `db:"name"`
}

// Repository persists suppliers and their children.
type Repository interface {
	GetByCode(ctx context.Context, code string) (*Supplier, error)
	ListByService(ctx context.Context, serviceCode string, onlyActive bool) ([]Supplier, error)
	GetService(ctx context.Context, supplierCode, serviceCode string) (*SupplierService, error)
	// IncrementServiceSequence advances the per-service purchase sequence and
	// returns the value before the increment.
	IncrementServiceSequence(ctx context.Context, supplierCode, serviceCode string) (int64, error)
	ListAddresses(ctx context.Context, supplierCode string) ([]SupplierAddress, error)
	GetAddress(ctx context.Context, supplierCode string, addressID int) (*SupplierAddress, error)
	ListColors(ctx context.Context, supplierCode string) ([]SupplierColor, error)
	GetColor(ctx context.Context, supplierCode, colorID string) (*SupplierColor, error)
}

// CatalogService exposes supplier reads and service association checks.
type CatalogService struct {
	repo Repository
}

func NewCatalogService(repo Repository) *CatalogService {
	return &CatalogService{repo: repo}
}

func (s *CatalogService) Get(ctx context.Context, code string) (*Supplier, error) {
	sup, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if sup == nil {
		return nil, apperror.NewNotFound("supplier", code)
	}
	return sup, nil
}

// ListByService returns the active suppliers associated with a service code.
func (s *CatalogService) ListByService(ctx context.Context, serviceCode string) ([]Supplier, error) {
	return s.repo.ListByService(ctx, serviceCode, true)
}

// RequireService loads a supplier and verifies it renders the given service.
// Returns both the supplier and its service association.
func (s *CatalogService) RequireService(ctx context.Context, code, serviceCode string) (*Supplier, *SupplierService, error) {
	sup, err := s.Get(ctx, code)
	if err != nil {
		return nil, nil, err
	}

	svc, err := s.repo.GetService(ctx, code, serviceCode)
	if err != nil {
		return nil, nil, err
	}
	if svc == nil {
		return nil, nil, apperror.NewForbidden(apperror.CodeSupplierService,
			"supplier is not associated with the service").
			WithDetail("supplier", code).
			WithDetail("service", serviceCode)
	}
	return sup, svc, nil
}

// RequireStorage verifies the supplier has a storage code assigned.
func RequireStorage(sup *Supplier) error {
	if sup.StorageCode == "" {
		return apperror.NewForbidden(apperror.CodeSupplierService,
			"supplier has no storage assigned").WithDetail("supplier", sup.Code)
	}
	return nil
}

// NextPurchaseCode allocates the supplier-service purchase code
// initials + sequence number for a service.
func (s *CatalogService) NextPurchaseCode(ctx context.Context, sup *Supplier, serviceCode string) (string, error) {
	n, err := s.repo.IncrementServiceSequence(ctx, sup.Code, serviceCode)
	if err != nil {
		return "", err
	}
	return formatPurchaseCode(sup.Initials, n), nil
}

// RequireAddress verifies a supplier address exists.
func (s *CatalogService) RequireAddress(ctx context.Context, supplierCode string, addressID int) (*SupplierAddress, error) {
	addr, err := s.repo.GetAddress(ctx, supplierCode, addressID)
	if err != nil {
		return nil, err
	}
	if addr == nil {
		return nil, apperror.NewForbidden(apperror.CodeSupplierService,
			"supplier address not registered").
			WithDetail("supplier", supplierCode).
			WithDetail("address_id", addressID)
	}
	return addr, nil
}

// RequireColor verifies a supplier dye color exists.
func (s *CatalogService) RequireColor(ctx context.Context, supplierCode, colorID string) (*SupplierColor, error) {
	col, err := s.repo.GetColor(ctx, supplierCode, colorID)
	if err != nil {
		return nil, err
	}
	if col == nil {
		return nil, apperror.NewForbidden(apperror.CodeSupplierService,
			"supplier color not registered").
			WithDetail("supplier", supplierCode).
			WithDetail("color_id", colorID)
	}
	return col, nil
}

func formatPurchaseCode(initials string, n int64) string {
	return initials + strconv.FormatInt(n, 10)
}
