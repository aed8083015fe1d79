// Package yarn manages the yarn catalog: inventory items in subfamily 09
// plus their fiber recipes.
package yarn

import (
	"context"
	"strconv"

	"github.com/shopspring/decimal"

	"mecsa/internal/domain/catalogs/item"
)

// Yarn is the catalog view of a yarn item and its recipe.
type Yarn struct {
	Item   item.InventoryItem
	Recipe []YarnFiber
}

// Attribute accessors over the generic item field slots.

func (y *Yarn) Count() string           { return y.Item.Field1 }
func (y *Yarn) NumberingSystem() string { return y.Item.Field2 }
func (y *Yarn) SpinningMethodID() string {
	return y.Item.Field3
}
func (y *Yarn) ColorID() string { return y.Item.Field4 }

// YarnFiber is one recipe line of a yarn.
type YarnFiber struct {
	YarnID     string          `db:"yarn_id"`
	FiberID    string          `db:"fiber_id"`
	NumPlies   int             `db:"num_plies"`
	Proportion decimal.Decimal `db:"proportion"`
	Galgue     decimal.Decimal `db:"galgue"`
	Diameter   decimal.Decimal `db:"diameter"`
}

// ComponentKey identifies the line within the recipe.
func (f YarnFiber) ComponentKey() string {
	return f.FiberID + "/" + strconv.Itoa(f.NumPlies)
}

// ComponentProportion is the percentage share.
func (f YarnFiber) ComponentProportion() decimal.Decimal { return f.Proportion }

// RecipeRepository persists yarn recipes in the App DB.
type RecipeRepository interface {
	ListByYarn(ctx context.Context, yarnID string) ([]YarnFiber, error)
	ListByYarns(ctx context.Context, yarnIDs []string) (map[string][]YarnFiber, error)
	Insert(ctx context.Context, rows []YarnFiber) error
	UpdateShape(ctx context.Context, row YarnFiber) error
	DeleteByYarn(ctx context.Context, yarnID string) error
}
