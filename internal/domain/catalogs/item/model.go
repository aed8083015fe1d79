// Package item holds the legacy inventory item master shared by the yarn
// and fabric catalogs. Items live in the Promec DB; the five generic field
// slots carry typed attributes depending on the family.
package item

import "context"

// Families and subfamilies of interest.
const (
	FabricFamily  = "02"
	YarnSubfamily = "09"
)

// Activity flags on catalog rows.
const (
	FlagActive   = "A"
	FlagInactive = "I"
)

// InventoryItem is one row of the legacy item master, identity (company, id).
type InventoryItem struct {
	Company     string `db:"company"`
	ID          string `db:"id"`
	FamilyID    string `db:"family_id"`
	SubfamilyID string `db:"subfamily_id"`
	Units       string `db:"units"`
	Description string `db:"description"`
	Barcode     int64  `db:"barcode"`
	IsActive    string `db:"is_active"`
	Field1      string `db:"field1"`
	Field2      string `db:"field2"`
	Field3      string `db:"field3"`
	Field4      string `db:"field4"`
	Field5      string `db:"field5"`
	Field6      string `db:"field6"`
}

// Snapshot flattens the row for the audit trail.
func (i *InventoryItem) Snapshot() map[string]any {
	return map[string]any{
		"id":           i.ID,
		"family_id":    i.FamilyID,
		"subfamily_id": i.SubfamilyID,
		"units":        i.Units,
		"description":  i.Description,
		"barcode":      i.Barcode,
		"is_active":    i.IsActive,
		"field1":       i.Field1,
		"field2":       i.Field2,
		"field3":       i.Field3,
		"field4":       i.Field4,
		"field5":       i.Field5,
	}
}

// Active reports whether the item is active.
func (i *InventoryItem) Active() bool { return i.IsActive == FlagActive }

// IsLegacy reports whether the id predates the sequence allocator.
// Legacy ids are non-numeric and are read-only for recipe mutations.
func (i *InventoryItem) IsLegacy() bool {
	if i.ID == "" {
		return true
	}
	for _, r := range i.ID {
		if r < '0' || r > '9' {
			return true
		}
	}
	return false
}

// FieldFilter matches items on the generic attribute slots.
type FieldFilter struct {
	FamilyID    string
	SubfamilyID string
	Field1      *string
	Field2      *string
	Field3      *string
	Field4      *string
	Field5      *string
}

// Repository persists inventory items in the Promec DB.
type Repository interface {
	GetByID(ctx context.Context, id string) (*InventoryItem, error)
	FindByFields(ctx context.Context, filter FieldFilter) ([]InventoryItem, error)
	Insert(ctx context.Context, item *InventoryItem) error
	Update(ctx context.Context, item *InventoryItem) error
	SetActive(ctx context.Context, id string, active bool) error
}
