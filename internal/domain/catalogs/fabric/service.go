package fabric

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"mecsa/internal/core/apperror"
	"mecsa/internal/core/tx"
	"mecsa/internal/domain/audit"
	"mecsa/internal/domain/catalogs/item"
	"mecsa/internal/domain/catalogs/recipe"
	"mecsa/internal/domain/catalogs/yarn"
	"mecsa/internal/domain/params"
	"mecsa/internal/domain/series"
)

// RecipeLineForm is one recipe line of a create/update request.
type RecipeLineForm struct {
	YarnID       string
	NumPlies     int
	Proportion   decimal.Decimal
	Galgue       decimal.Decimal
	Diameter     decimal.Decimal
	StitchLength decimal.Decimal
}

// CreateForm carries fabric creation input.
type CreateForm struct {
	FabricTypeID     int
	Density          decimal.Decimal
	Width            decimal.Decimal
	ColorID          *int
	StructurePattern string
	Description      string
	Units            string
	Recipe           []RecipeLineForm
}

// UpdateForm carries partial fabric updates.
type UpdateForm struct {
	Description *string
	IsActive    *bool
	Recipe      []RecipeLineForm
}

// Service owns fabric uniqueness and structure rules.
type Service struct {
	items    item.Repository
	recipes  RecipeRepository
	yarns    *yarn.Service
	loader   *params.Loader
	series   *series.Service
	promecTx tx.Manager
	appTx    tx.Manager
}

func NewService(
	items item.Repository,
	recipes RecipeRepository,
	yarns *yarn.Service,
	loader *params.Loader,
	seriesSvc *series.Service,
	promecTx tx.Manager,
	appTx tx.Manager,
) *Service {
	return &Service{
		items:    items,
		recipes:  recipes,
		yarns:    yarns,
		loader:   loader,
		series:   seriesSvc,
		promecTx: promecTx,
		appTx:    appTx,
	}
}

// Get loads a fabric and its recipe.
func (s *Service) Get(ctx context.Context, id string) (*Fabric, error) {
	it, err := s.items.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if it == nil || it.FamilyID != item.FabricFamily {
		return nil, apperror.NewNotFound("fabric", id)
	}

	rows, err := s.recipes.ListByFabric(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Fabric{Item: *it, Recipe: rows}, nil
}

// List returns fabrics, optionally including inactive ones.
func (s *Service) List(ctx context.Context, includeInactive bool) ([]Fabric, error) {
	items, err := s.items.FindByFields(ctx, item.FieldFilter{FamilyID: item.FabricFamily})
	if err != nil {
		return nil, err
	}

	out := make([]Fabric, 0, len(items))
	for _, it := range items {
		if !includeInactive && !it.Active() {
			continue
		}
		out = append(out, Fabric{Item: it})
	}
	return out, nil
}

// Create validates the structure rule, checks uniqueness over the five
// attributes plus recipe set, allocates ids, and persists item and recipe.
func (s *Service) Create(ctx context.Context, form CreateForm) (*Fabric, error) {
	fabricType, err := s.loader.FabricType(ctx, form.FabricTypeID)
	if err != nil {
		return nil, err
	}

	pattern, err := normalizePattern(fabricType, form.StructurePattern)
	if err != nil {
		return nil, err
	}
	form.StructurePattern = pattern

	if form.Density.LessThanOrEqual(decimal.Zero) || form.Width.LessThanOrEqual(decimal.Zero) {
		return nil, apperror.NewValidation("density and width must be positive")
	}

	lines := buildRecipe("", form.Recipe)
	if err := recipe.Validate(lines); err != nil {
		return nil, err
	}
	for _, l := range lines {
		if _, err := s.yarns.RequireActive(ctx, l.YarnID); err != nil {
			return nil, err
		}
	}

	if err := s.checkUniqueness(ctx, form, ""); err != nil {
		return nil, err
	}

	var created *Fabric
	err = s.appTx.RunInTransaction(ctx, func(ctx context.Context) error {
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
				FamilyID:    item.FabricFamily,
				SubfamilyID: "01",
				Units:       form.Units,
				Description: fabricDescription(fabricType.Value, form),
				Barcode:     barcode,
				IsActive:    item.FlagActive,
				Field1:      form.Density.String(),
				Field2:      form.Width.String(),
				Field3:      optionalInt(form.ColorID),
				Field4:      strconv.Itoa(form.FabricTypeID),
				Field5:      form.StructurePattern,
			}
			if err := s.items.Insert(ctx, &it); err != nil {
				return err
			}

			rows := buildRecipe(it.ID, form.Recipe)
			if err := s.recipes.Insert(ctx, rows); err != nil {
				return err
			}

			rec := audit.FromContext(ctx)
			rec.Created("fabric", it.ID, it.Snapshot())
			rec.Created("fabric_recipe", it.ID, recipeSnapshot(rows))

			created = &Fabric{Item: it, Recipe: rows}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Update applies partial changes. Recipe mutations are rejected for legacy
// ids; shape-only changes (galgue, diameter, stitch length) mutate in place.
func (s *Service) Update(ctx context.Context, id string, form UpdateForm) (*Fabric, error) {
	f, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if form.Recipe != nil && f.Item.IsLegacy() {
		return nil, apperror.NewForbidden(apperror.CodeValidation,
			"recipe of a legacy fabric is read-only").WithDetail("fabric_id", id)
	}

	oldItem := f.Item.Snapshot()
	oldRecipe := recipeSnapshot(f.Recipe)

	if form.Description != nil {
		f.Item.Description = *form.Description
	}
	if form.IsActive != nil {
		if *form.IsActive {
			f.Item.IsActive = item.FlagActive
		} else {
			f.Item.IsActive = item.FlagInactive
		}
	}

	err = s.appTx.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.promecTx.RunInTransaction(ctx, func(ctx context.Context) error {
			if err := s.items.Update(ctx, &f.Item); err != nil {
				return err
			}
			rec := audit.FromContext(ctx)
			rec.Updated("fabric", id, oldItem, f.Item.Snapshot())
			if form.Recipe == nil {
				return nil
			}

			newRows := buildRecipe(id, form.Recipe)
			if err := recipe.Validate(newRows); err != nil {
				return err
			}
			for _, l := range newRows {
				if _, err := s.yarns.RequireActive(ctx, l.YarnID); err != nil {
					return err
				}
			}

			if recipe.SameSet(f.Recipe, newRows) {
				for _, row := range newRows {
					if err := s.recipes.UpdateShape(ctx, row); err != nil {
						return err
					}
				}
			} else {
				if err := s.recipes.DeleteByFabric(ctx, id); err != nil {
					return err
				}
				if err := s.recipes.Insert(ctx, newRows); err != nil {
					return err
				}
			}
			f.Recipe = newRows
			rec.Updated("fabric_recipe", id, oldRecipe, recipeSnapshot(newRows))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

// ColorOrCrude returns the fabric color id, or "CRUD" for crude fabric.
// Used as codcol on dispatch lines.
func (f *Fabric) ColorOrCrude() string {
	if f.ColorID() == "" {
		return "CRUD"
	}
	return f.ColorID()
}

// normalizePattern enforces the structure rule of the fabric type:
// Jersey requires LISO, Rib BVD requires an empty pattern.
func normalizePattern(fabricType params.Parameter, pattern string) (string, error) {
	p := strings.ToUpper(strings.TrimSpace(pattern))
	switch strings.ToUpper(fabricType.Value) {
	case params.FabricTypeJersey:
		if p == "" {
			return StructurePatternPlain, nil
		}
		if p != StructurePatternPlain {
			return "", apperror.NewUnprocessable(apperror.CodeStructurePattern,
				"jersey fabric structure pattern must be LISO").
				WithDetail("pattern", pattern)
		}
		return p, nil
	case params.FabricTypeRibBVD:
		if p != "" {
			return "", apperror.NewUnprocessable(apperror.CodeStructurePattern,
				"rib bvd fabric must not carry a structure pattern").
				WithDetail("pattern", pattern)
		}
		return "", nil
	default:
		return p, nil
	}
}

func (s *Service) checkUniqueness(ctx context.Context, form CreateForm, excludeID string) error {
	density := form.Density.String()
	width := form.Width.String()
	colorID := optionalInt(form.ColorID)
	typeID := strconv.Itoa(form.FabricTypeID)
	pattern := form.StructurePattern

	candidates, err := s.items.FindByFields(ctx, item.FieldFilter{
		FamilyID: item.FabricFamily,
		Field1:   &density,
		Field2:   &width,
		Field3:   &colorID,
		Field4:   &typeID,
		Field5:   &pattern,
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

	recipes, err := s.recipes.ListByFabrics(ctx, ids)
	if err != nil {
		return err
	}
	newRows := buildRecipe("", form.Recipe)
	for _, id := range ids {
		if recipe.SameSet(recipes[id], newRows) {
			return apperror.NewDuplicate("fabric", "attributes and recipe").
				WithDetail("existing_id", id)
		}
	}
	return nil
}

func buildRecipe(fabricID string, lines []RecipeLineForm) []FabricYarn {
	rows := make([]FabricYarn, 0, len(lines))
	for _, l := range lines {
		rows = append(rows, FabricYarn{
			FabricID:     fabricID,
			YarnID:       l.YarnID,
			NumPlies:     l.NumPlies,
			Proportion:   l.Proportion,
			Galgue:       l.Galgue,
			Diameter:     l.Diameter,
			StitchLength: l.StitchLength,
		})
	}
	return rows
}

func recipeSnapshot(rows []FabricYarn) map[string]any {
	lines := make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, map[string]any{
			"yarn_id":       r.YarnID,
			"num_plies":     r.NumPlies,
			"proportion":    r.Proportion.String(),
			"galgue":        r.Galgue.String(),
			"diameter":      r.Diameter.String(),
			"stitch_length": r.StitchLength.String(),
		})
	}
	return map[string]any{"lines": lines}
}

func fabricDescription(typeName string, form CreateForm) string {
	return fmt.Sprintf("TEJIDO %s %s X %s", strings.ToUpper(typeName),
		form.Density.String(), form.Width.String())
}

func optionalInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
