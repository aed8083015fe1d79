package service_order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"mecsa/internal/core/apperror"
	"mecsa/internal/core/tx"
	"mecsa/internal/domain/catalogs/supplier"
	"mecsa/internal/domain/movement"
	"mecsa/internal/domain/params"
)

// LineForm is one order line of a create/update request.
type LineForm struct {
	ProductCode     string
	QuantityOrdered decimal.Decimal
	Price           decimal.Decimal
}

// CreateForm carries order creation input.
type CreateForm struct {
	Type        string
	SupplierID  string
	StorageCode string
	IssueDate   time.Time
	Lines       []LineForm
}

// UpdateForm replaces the order line set.
type UpdateForm struct {
	Lines []LineForm
}

// Service owns the order lifecycle.
type Service struct {
	repo      Repository
	suppliers *supplier.CatalogService
	promecTx  tx.Manager
}

func NewService(repo Repository, suppliers *supplier.CatalogService, promecTx tx.Manager) *Service {
	return &Service{repo: repo, suppliers: suppliers, promecTx: promecTx}
}

// serviceCodeFor maps an order type to its supplier service code.
func serviceCodeFor(orderType string) (string, error) {
	switch orderType {
	case TypeWeaving:
		return supplier.ServiceWeaving, nil
	case TypeDyeing:
		return supplier.ServiceDyeing, nil
	default:
		return "", apperror.NewValidation("unknown service order type")
	}
}

// Get loads an order with its lines.
func (s *Service) Get(ctx context.Context, id, orderType string) (*ServiceOrder, []Detail, error) {
	o, err := s.repo.Get(ctx, id, orderType)
	if err != nil {
		return nil, nil, err
	}
	if o == nil {
		return nil, nil, apperror.NewNotFound("service-order", id)
	}
	lines, err := s.repo.ListDetails(ctx, id, orderType)
	if err != nil {
		return nil, nil, err
	}
	return o, lines, nil
}

// List pages orders.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]ServiceOrder, int64, error) {
	return s.repo.List(ctx, filter)
}

// Create validates the supplier association, allocates the order id from the
// supplier service sequence and persists header plus lines.
func (s *Service) Create(ctx context.Context, form CreateForm) (*ServiceOrder, error) {
	serviceCode, err := serviceCodeFor(form.Type)
	if err != nil {
		return nil, err
	}
	if len(form.Lines) == 0 {
		return nil, apperror.NewValidation("service order needs at least one line")
	}

	sup, _, err := s.suppliers.RequireService(ctx, form.SupplierID, serviceCode)
	if err != nil {
		return nil, err
	}

	var created *ServiceOrder
	err = s.promecTx.RunInTransaction(ctx, func(ctx context.Context) error {
		id, err := s.suppliers.NextPurchaseCode(ctx, sup, serviceCode)
		if err != nil {
			return err
		}

		issueDate := form.IssueDate
		if issueDate.IsZero() {
			issueDate = time.Now()
		}

		o := &ServiceOrder{
			Company:       "001",
			ID:            id,
			Type:          form.Type,
			SupplierID:    form.SupplierID,
			IssueDate:     issueDate,
			StorageCode:   form.StorageCode,
			StatusFlag:    movement.StatusPosted,
			StatusParamID: params.OrderStatusUnstarted,
		}
		if err := s.repo.Insert(ctx, o); err != nil {
			return err
		}

		rows := buildLines(o, form.Lines)
		if err := s.repo.InsertDetails(ctx, rows); err != nil {
			return err
		}
		created = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Update replaces the line set. Allowed only while the header is posted and
// nothing has been supplied yet.
func (s *Service) Update(ctx context.Context, id, orderType string, form UpdateForm) (*ServiceOrder, error) {
	o, lines, err := s.Get(ctx, id, orderType)
	if err != nil {
		return nil, err
	}
	if err := s.CheckOpen(o); err != nil {
		return nil, err
	}
	for _, l := range lines {
		if l.QuantitySupplied.GreaterThan(decimal.Zero) {
			return nil, apperror.NewForbidden(apperror.CodeOrderFinished,
				"service order already has supplied lines").WithDetail("order_id", id)
		}
	}
	if len(form.Lines) == 0 {
		return nil, apperror.NewValidation("service order needs at least one line")
	}

	err = s.promecTx.RunInTransaction(ctx, func(ctx context.Context) error {
		for _, l := range lines {
			if err := s.repo.DeleteDetail(ctx, id, orderType, l.ItemNumber); err != nil {
				return err
			}
		}
		return s.repo.InsertDetails(ctx, buildLines(o, form.Lines))
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

// Annul cancels an order that has not been supplied.
func (s *Service) Annul(ctx context.Context, id, orderType string) error {
	o, lines, err := s.Get(ctx, id, orderType)
	if err != nil {
		return err
	}
	if o.StatusFlag == movement.StatusAnnulled {
		return apperror.NewForbidden(apperror.CodeOrderCancelled,
			"service order is already cancelled").WithDetail("order_id", id)
	}
	for _, l := range lines {
		if l.QuantitySupplied.GreaterThan(decimal.Zero) {
			return apperror.NewForbidden(apperror.CodeOrderFinished,
				"service order already has supplied lines").WithDetail("order_id", id)
		}
	}

	return s.promecTx.RunInTransaction(ctx, func(ctx context.Context) error {
		o.StatusFlag = movement.StatusAnnulled
		o.StatusParamID = params.OrderStatusCancelled
		return s.repo.Update(ctx, o)
	})
}

// CheckOpen fails when the order is cancelled or finished.
func (s *Service) CheckOpen(o *ServiceOrder) error {
	switch o.StatusParamID {
	case params.OrderStatusCancelled:
		return apperror.NewForbidden(apperror.CodeOrderCancelled,
			"service order is cancelled").WithDetail("order_id", o.ID)
	case params.OrderStatusFinished:
		return apperror.NewForbidden(apperror.CodeOrderFinished,
			"service order is finished").WithDetail("order_id", o.ID)
	}
	if o.StatusFlag == movement.StatusAnnulled {
		return apperror.NewForbidden(apperror.CodeOrderCancelled,
			"service order is cancelled").WithDetail("order_id", o.ID)
	}
	return nil
}

// AddSupplied records a delivery against an order line and advances the
// order status: any supply starts the order, full supply of every line
// finishes it. A negative qty reverses a delivery.
func (s *Service) AddSupplied(ctx context.Context, id, orderType, productCode string, qty decimal.Decimal) error {
	o, lines, err := s.Get(ctx, id, orderType)
	if err != nil {
		return err
	}

	var target *Detail
	for i := range lines {
		if lines[i].ProductCode == productCode {
			target = &lines[i]
			break
		}
	}
	if target == nil {
		return apperror.NewForbidden(apperror.CodeSupplierService,
			"product is not part of the service order").
			WithDetail("order_id", id).
			WithDetail("product_code", productCode)
	}

	target.QuantitySupplied = target.QuantitySupplied.Add(qty)
	if err := s.repo.UpdateDetail(ctx, target); err != nil {
		return err
	}

	return s.syncStatus(ctx, o, lines)
}

func (s *Service) syncStatus(ctx context.Context, o *ServiceOrder, lines []Detail) error {
	anySupplied := false
	allFinished := len(lines) > 0
	for _, l := range lines {
		if l.QuantitySupplied.GreaterThan(decimal.Zero) {
			anySupplied = true
		}
		if l.QuantitySupplied.LessThan(l.QuantityOrdered) {
			allFinished = false
		}
	}

	status := params.OrderStatusUnstarted
	switch {
	case allFinished:
		status = params.OrderStatusFinished
	case anySupplied:
		status = params.OrderStatusStarted
	}

	if status == o.StatusParamID {
		return nil
	}
	o.StatusParamID = status
	return s.repo.Update(ctx, o)
}

func buildLines(o *ServiceOrder, lines []LineForm) []Detail {
	rows := make([]Detail, 0, len(lines))
	for i, l := range lines {
		rows = append(rows, Detail{
			Company:          o.Company,
			OrderID:          o.ID,
			OrderType:        o.Type,
			ItemNumber:       i + 1,
			ProductCode:      l.ProductCode,
			QuantityOrdered:  l.QuantityOrdered,
			QuantitySupplied: decimal.Zero,
			Price:            l.Price,
			StatusParamID:    params.OrderStatusUnstarted,
		})
	}
	return rows
}
