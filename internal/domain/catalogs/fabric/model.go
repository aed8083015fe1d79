// Package fabric manages the fabric catalog: inventory items in family 02
// plus their yarn recipes and structure rules.
package fabric

import (
	"context"
	"strconv"

	"github.com/shopspring/decimal"

	"mecsa/internal/domain/catalogs/item"
)

// StructurePatternPlain is the pattern forced on Jersey fabrics.
const StructurePatternPlain = "LISO"

// Fabric is the catalog view of a fabric item and its recipe.
type Fabric struct {
	Item   item.InventoryItem
	Recipe []FabricYarn
}

// Attribute accessors over the generic item field slots.

func (f *Fabric) Density() string          { return f.Item.Field1 }
func (f *Fabric) Width() string            { return f.Item.Field2 }
func (f *Fabric) ColorID() string          { return f.Item.Field3 }
func (f *Fabric) FabricTypeID() string     { return f.Item.Field4 }
func (f *Fabric) StructurePattern() string { return f.Item.Field5 }

// DensityValue parses the density attribute.
func (f *Fabric) DensityValue() (decimal.Decimal, error) {
	return decimal.NewFromString(f.Item.Field1)
}

// WidthValue parses the width attribute.
func (f *Fabric) WidthValue() (decimal.Decimal, error) {
	return decimal.NewFromString(f.Item.Field2)
}

// FabricYarn is one recipe line of a fabric.
type FabricYarn struct {
	FabricID     string          `db:"fabric_id"`
	YarnID       string          `db:"yarn_id"`
	NumPlies     int             `db:"num_plies"`
	Proportion   decimal.Decimal `db:"proportion"`
	Galgue       decimal.Decimal `db:"galgue"`
	Diameter     decimal.Decimal `db:"diameter"`
	StitchLength decimal.Decimal `db:"stitch_length"`
}

// ComponentKey identifies the line within the recipe.
func (f FabricYarn) ComponentKey() string {
	return f.YarnID + "/" + strconv.Itoa(f.NumPlies)
}

// ComponentProportion is the percentage share.
func (f FabricYarn) ComponentProportion() decimal.Decimal { return f.Proportion }

// RecipeRepository persists fabric recipes in the App DB.
type RecipeRepository interface {
	ListByFabric(ctx context.Context, fabricID string) ([]FabricYarn, error)
	ListByFabrics(ctx context.Context, fabricIDs []string) (map[string][]FabricYarn, error)
	Insert(ctx context.Context, rows []FabricYarn) error
	UpdateShape(ctx context.Context, row FabricYarn) error
	DeleteByFabric(ctx context.Context, fabricID string) error
}
