package yarn

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"mecsa/internal/core/apperror"
	"mecsa/internal/core/tx"
	"mecsa/internal/domain/audit"
	"mecsa/internal/domain/catalogs/fiber"
	"mecsa/internal/domain/catalogs/item"
	"mecsa/internal/domain/catalogs/recipe"
	"mecsa/internal/domain/params"
	"mecsa/internal/domain/series"
)

// RecipeLineForm is one recipe line of a create/update request.
type RecipeLineForm struct {
	FiberID    string
	NumPlies   int
	Proportion decimal.Decimal
	Galgue     decimal.Decimal
	Diameter   decimal.Decimal
}

// CreateForm carries yarn creation input.
type CreateForm struct {
	Count            string
	NumberingSystem  string
	SpinningMethodID int
	ColorID          *int
	Description      string
	Units            string
	Recipe           []RecipeLineForm
}

// UpdateForm carries partial yarn updates. A nil Recipe leaves the recipe
// untouched.
type UpdateForm struct {
	Description *string
	IsActive    *bool
	Recipe      []RecipeLineForm
}

// Service owns yarn uniqueness and recipe rules.
type Service struct {
	items    item.Repository
	recipes  RecipeRepository
	fibers   *fiber.Service
	loader   *params.Loader
	series   *series.Service
	promecTx tx.Manager
	appTx    tx.Manager
}

func NewService(
	items item.Repository,
	recipes RecipeRepository,
	fibers *fiber.Service,
	loader *params.Loader,
	seriesSvc *series.Service,
	promecTx tx.Manager,
	appTx tx.Manager,
) *Service {
	return &Service{
		items:    items,
		recipes:  recipes,
		fibers:   fibers,
		loader:   loader,
		series:   seriesSvc,
		promecTx: promecTx,
		appTx:    appTx,
	}
}

// Get loads a yarn and its recipe.
func (s *Service) Get(ctx context.Context, id string) (*Yarn, error) {
	it, err := s.items.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if it == nil || it.SubfamilyID != item.YarnSubfamily {
		return nil, apperror.NewNotFound("yarn", id)
	}

	rows, err := s.recipes.ListByYarn(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Yarn{Item: *it, Recipe: rows}, nil
}

// RequireActive loads a yarn and fails when inactive. Used by fabric recipe
// validation and the movement engine.
func (s *Service) RequireActive(ctx context.Context, id string) (*Yarn, error) {
	y, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !y.Item.Active() {
		return nil, apperror.NewUnprocessable(apperror.CodeRecipeInvalid,
			"yarn is inactive").WithDetail("yarn_id", id)
	}
	return y, nil
}

// List returns yarns matching the optional attribute filter.
func (s *Service) List(ctx context.Context, includeInactive bool) ([]Yarn, error) {
	items, err := s.items.FindByFields(ctx, item.FieldFilter{SubfamilyID: item.YarnSubfamily})
	if err != nil {
		return nil, err
	}

	out := make([]Yarn, 0, len(items))
	for _, it := range items {
		if !includeInactive && !it.Active() {
			continue
		}
		out = append(out, Yarn{Item: it})
	}
	return out, nil
}

// Create validates, checks uniqueness over attributes plus recipe set,
// allocates product id and barcode, and persists item and recipe.
func (s *Service) Create(ctx context.Context, form CreateForm) (*Yarn, error) {
	if strings.TrimSpace(form.Count) == "" {
		return nil, apperror.NewValidation("yarn count is required")
	}
	if strings.TrimSpace(form.NumberingSystem) == "" {
		return nil, apperror.NewValidation("numbering system is required")
	}
	if _, err := s.loader.SpinningMethod(ctx, form.SpinningMethodID); err != nil {
		return nil, err
	}

	lines := buildRecipe("", form.Recipe)
	if err := recipe.Validate(lines); err != nil {
		return nil, err
	}
	if _, err := s.fibers.RequireActive(ctx, fiberIDs(lines)); err != nil {
		return nil, err
	}

	if err := s.checkUniqueness(ctx, form, ""); err != nil {
		return nil, err
	}

	var created *Yarn
	err := s.appTx.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.promecTx.RunInTransaction(ctx, func(ctx context.Context) error {
			productID, err := s.series.NextVal(ctx, series.ProductIDSeq)
			if err != nil {
				return err
			}
			barcode, err := s.series.NextVal(ctx, series.BarcodeSeq)
			if err != nil {
				return err
			}

			it := item.InventoryItem{
				Company:     series.Company,
				ID:          strconv.FormatInt(productID, 10),
				FamilyID:    "01",
				SubfamilyID: item.YarnSubfamily,
				Units:       form.Units,
				Description: yarnDescription(form),
				Barcode:     barcode,
				IsActive:    item.FlagActive,
				Field1:      form.Count,
				Field2:      form.NumberingSystem,
				Field3:      strconv.Itoa(form.SpinningMethodID),
				Field4:      optionalInt(form.ColorID),
			}
			if err := s.items.Insert(ctx, &it); err != nil {
				return err
			}

			rows := buildRecipe(it.ID, form.Recipe)
			if err := s.recipes.Insert(ctx, rows); err != nil {
				return err
			}

			rec := audit.FromContext(ctx)
			rec.Created("yarn", it.ID, it.Snapshot())
			rec.Created("yarn_recipe", it.ID, recipeSnapshot(rows))

			created = &Yarn{Item: it, Recipe: rows}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Update applies partial changes. Recipe mutations are rejected for legacy
// ids; shape-only changes mutate rows in place.
func (s *Service) Update(ctx context.Context, id string, form UpdateForm) (*Yarn, error) {
	y, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if form.Recipe != nil && y.Item.IsLegacy() {
		return nil, apperror.NewForbidden(apperror.CodeValidation,
			"recipe of a legacy yarn is read-only").WithDetail("yarn_id", id)
	}

	oldItem := y.Item.Snapshot()
	oldRecipe := recipeSnapshot(y.Recipe)

	if form.Description != nil {
		y.Item.Description = *form.Description
	}
	if form.IsActive != nil {
		if *form.IsActive {
			y.Item.IsActive = item.FlagActive
		} else {
			y.Item.IsActive = item.FlagInactive
		}
	}

	err = s.appTx.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.promecTx.RunInTransaction(ctx, func(ctx context.Context) error {
			if err := s.items.Update(ctx, &y.Item); err != nil {
				return err
			}
			rec := audit.FromContext(ctx)
			rec.Updated("yarn", id, oldItem, y.Item.Snapshot())
			if form.Recipe == nil {
				return nil
			}

			newRows := buildRecipe(id, form.Recipe)
			if err := recipe.Validate(newRows); err != nil {
				return err
			}
			if _, err := s.fibers.RequireActive(ctx, fiberIDs(newRows)); err != nil {
				return err
			}

			if sameComponents(y.Recipe, newRows) {
				for _, row := range newRows {
					if err := s.recipes.UpdateShape(ctx, row); err != nil {
						return err
					}
				}
			} else {
				if err := s.recipes.DeleteByYarn(ctx, id); err != nil {
					return err
				}
				if err := s.recipes.Insert(ctx, newRows); err != nil {
					return err
				}
			}
			y.Recipe = newRows
			rec.Updated("yarn_recipe", id, oldRecipe, recipeSnapshot(newRows))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return y, nil
}

// checkUniqueness fails with Duplicate when an item with the same four
// attributes carries the same recipe set.
func (s *Service) checkUniqueness(ctx context.Context, form CreateForm, excludeID string) error {
	count := form.Count
	numbering := form.NumberingSystem
	spinning := strconv.Itoa(form.SpinningMethodID)
	colorID := optionalInt(form.ColorID)

	candidates, err := s.items.FindByFields(ctx, item.FieldFilter{
		SubfamilyID: item.YarnSubfamily,
		Field1:      &count,
		Field2:      &numbering,
		Field3:      &spinning,
		Field4:      &colorID,
	})
	if err != nil {
		return err
	}

	ids := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c.ID != excludeID && c.Active() {
			ids = append(ids, c.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	recipes, err := s.recipes.ListByYarns(ctx, ids)
	if err != nil {
		return err
	}
	newRows := buildRecipe("", form.Recipe)
	for _, id := range ids {
		if recipe.SameSet(recipes[id], newRows) {
			return apperror.NewDuplicate("yarn", "attributes and recipe").
				WithDetail("existing_id", id)
		}
	}
	return nil
}

func buildRecipe(yarnID string, lines []RecipeLineForm) []YarnFiber {
	rows := make([]YarnFiber, 0, len(lines))
	for _, l := range lines {
		rows = append(rows, YarnFiber{
			YarnID:     yarnID,
			FiberID:    l.FiberID,
			NumPlies:   l.NumPlies,
			Proportion: l.Proportion,
			Galgue:     l.Galgue,
			Diameter:   l.Diameter,
		})
	}
	return rows
}

func recipeSnapshot(rows []YarnFiber) map[string]any {
	lines := make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, map[string]any{
			"fiber_id":   r.FiberID,
			"num_plies":  r.NumPlies,
			"proportion": r.Proportion.String(),
			"galgue":     r.Galgue.String(),
			"diameter":   r.Diameter.String(),
		})
	}
	return map[string]any{"lines": lines}
}

func fiberIDs(rows []YarnFiber) []string {
	ids := make([]string, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		if _, ok := seen[r.FiberID]; !ok {
			seen[r.FiberID] = struct{}{}
			ids = append(ids, r.FiberID)
		}
	}
	return ids
}

// sameComponents reports whether old and new recipes reference the same
// fiber/ply pairs with the same proportions, so only shape columns change.
func sameComponents(old, new []YarnFiber) bool {
	return recipe.SameSet(old, new)
}

func yarnDescription(form CreateForm) string {
	return fmt.Sprintf("HILADO %s/%s", form.Count, form.NumberingSystem)
}

func optionalInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
