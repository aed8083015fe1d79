package movement

import "context"

// ListFilter pages movement headers.
type ListFilter struct {
	Period          int
	Page            int
	PageSize        int
	IncludeAnnulled bool
	SupplierCode    string
}

// Normalize applies paging defaults.
func (f *ListFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 || f.PageSize > 200 {
		f.PageSize = 50
	}
}

// Offset returns the SQL offset for the page.
func (f ListFilter) Offset() uint64 {
	return uint64((f.Page - 1) * f.PageSize)
}

// ListResult is one page of movement headers.
type ListResult struct {
	Items    []Movement
	Total    int64
	Page     int
	PageSize int
}

// HeaderRepository persists movement headers.
type HeaderRepository interface {
	Insert(ctx context.Context, m *Movement) error
	Get(ctx context.Context, key Key) (*Movement, error)
	Update(ctx context.Context, m *Movement) error
	List(ctx context.Context, storage, movementType, movementCode, documentCode string, filter ListFilter) (*ListResult, error)
}

// DetailRepository persists movement lines and their auxiliary weights.
type DetailRepository interface {
	InsertBatch(ctx context.Context, rows []MovementDetail) error
	ListByDocument(ctx context.Context, documentCode, documentNumber string, period int) ([]MovementDetail, error)
	DeleteByDocument(ctx context.Context, documentCode, documentNumber string, period int) error
	DeleteLines(ctx context.Context, documentCode, documentNumber string, period int, itemNumbers []int) error
	UpdateStatusByDocument(ctx context.Context, documentCode, documentNumber string, period int, status string) error

	InsertAuxBatch(ctx context.Context, rows []MovementDetailAux) error
	ListAuxByDocument(ctx context.Context, documentCode, documentNumber string, period int) ([]MovementDetailAux, error)
	DeleteAuxByDocument(ctx context.Context, documentCode, documentNumber string, period int) error
}

// HeavyRepository persists weighed yarn sub-lots.
type HeavyRepository interface {
	InsertBatch(ctx context.Context, rows []YarnOCHeavy) error
	Get(ctx context.Context, ingressNumber string, itemNumber, groupNumber, period int) (*YarnOCHeavy, error)
	ListByIngress(ctx context.Context, ingressNumber string, period int) ([]YarnOCHeavy, error)
	Update(ctx context.Context, h *YarnOCHeavy) error
	DeleteByIngress(ctx context.Context, ingressNumber string, period int) error
	// AnyConsumed reports whether any lot of the ingress was taken by a
	// dispatch. Guards annulment of the entry.
	AnyConsumed(ctx context.Context, ingressNumber string, period int) (bool, error)
}

// FabricWarehouseRepository persists per-fabric child lines.
type FabricWarehouseRepository interface {
	InsertBatch(ctx context.Context, rows []FabricWarehouse) error
	ListByDocument(ctx context.Context, documentCode, documentNumber string, period int) ([]FabricWarehouse, error)
	Update(ctx context.Context, row *FabricWarehouse) error
	Delete(ctx context.Context, documentCode, documentNumber string, period int, fabricID string) error
	DeleteByDocument(ctx context.Context, documentCode, documentNumber string, period int) error
	UpdateStatusByDocument(ctx context.Context, documentCode, documentNumber string, period int, status string) error
}

// CardRepository persists roll cards.
type CardRepository interface {
	InsertBatch(ctx context.Context, rows []CardOperation) error
	Get(ctx context.Context, id string) (*CardOperation, error)
	ListByIDs(ctx context.Context, ids []string) ([]CardOperation, error)
	ListByDocument(ctx context.Context, documentNumber string, period int) ([]CardOperation, error)
	Update(ctx context.Context, c *CardOperation) error
	DeleteByDocument(ctx context.Context, documentNumber string, period int) error
}
