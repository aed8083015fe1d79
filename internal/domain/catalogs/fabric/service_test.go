package fabric

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mecsa/internal/core/apperror"
	"mecsa/internal/domain/audit"
	"mecsa/internal/domain/catalogs/color"
	"mecsa/internal/domain/catalogs/fiber"
	"mecsa/internal/domain/catalogs/item"
	"mecsa/internal/domain/catalogs/yarn"
	"mecsa/internal/domain/params"
	"mecsa/internal/domain/series"
)

type stubTx struct{}

func (stubTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeItemRepo struct {
	items    map[string]item.InventoryItem
	inserted int
}

func (r *fakeItemRepo) GetByID(_ context.Context, id string) (*item.InventoryItem, error) {
	if it, ok := r.items[id]; ok {
		return &it, nil
	}
	return nil, nil
}

func (r *fakeItemRepo) FindByFields(_ context.Context, filter item.FieldFilter) ([]item.InventoryItem, error) {
	match := func(want *string, got string) bool { return want == nil || *want == got }

	var out []item.InventoryItem
	for _, it := range r.items {
		if filter.FamilyID != "" && it.FamilyID != filter.FamilyID {
			continue
		}
		if filter.SubfamilyID != "" && it.SubfamilyID != filter.SubfamilyID {
			continue
		}
		if match(filter.Field1, it.Field1) && match(filter.Field2, it.Field2) &&
			match(filter.Field3, it.Field3) && match(filter.Field4, it.Field4) &&
			match(filter.Field5, it.Field5) {
			out = append(out, it)
		}
	}
	return out, nil
}

func (r *fakeItemRepo) Insert(_ context.Context, it *item.InventoryItem) error {
	r.items[it.ID] = *it
	r.inserted++
	return nil
}

func (r *fakeItemRepo) Update(_ context.Context, it *item.InventoryItem) error {
	r.items[it.ID] = *it
	return nil
}

func (r *fakeItemRepo) SetActive(_ context.Context, _ string, _ bool) error { return nil }

type fakeRecipeRepo struct {
	byFabric map[string][]FabricYarn
	deletes  int
}

func (r *fakeRecipeRepo) ListByFabric(_ context.Context, fabricID string) ([]FabricYarn, error) {
	return r.byFabric[fabricID], nil
}

func (r *fakeRecipeRepo) ListByFabrics(_ context.Context, fabricIDs []string) (map[string][]FabricYarn, error) {
	out := make(map[string][]FabricYarn, len(fabricIDs))
	for _, id := range fabricIDs {
		out[id] = r.byFabric[id]
	}
	return out, nil
}

func (r *fakeRecipeRepo) Insert(_ context.Context, rows []FabricYarn) error {
	if len(rows) > 0 {
		r.byFabric[rows[0].FabricID] = append(r.byFabric[rows[0].FabricID], rows...)
	}
	return nil
}

func (r *fakeRecipeRepo) UpdateShape(_ context.Context, row FabricYarn) error {
	for i, existing := range r.byFabric[row.FabricID] {
		if existing.ComponentKey() == row.ComponentKey() {
			r.byFabric[row.FabricID][i] = row
		}
	}
	return nil
}

func (r *fakeRecipeRepo) DeleteByFabric(_ context.Context, fabricID string) error {
	r.deletes++
	delete(r.byFabric, fabricID)
	return nil
}

type fakeYarnRecipeRepo struct{}

func (fakeYarnRecipeRepo) ListByYarn(_ context.Context, _ string) ([]yarn.YarnFiber, error) {
	return nil, nil
}

func (fakeYarnRecipeRepo) ListByYarns(_ context.Context, _ []string) (map[string][]yarn.YarnFiber, error) {
	return nil, nil
}

func (fakeYarnRecipeRepo) Insert(_ context.Context, _ []yarn.YarnFiber) error      { return nil }
func (fakeYarnRecipeRepo) UpdateShape(_ context.Context, _ yarn.YarnFiber) error   { return nil }
func (fakeYarnRecipeRepo) DeleteByYarn(_ context.Context, _ string) error          { return nil }

type fakeFiberRepo struct{}

func (fakeFiberRepo) GetByID(_ context.Context, _ string) (*fiber.Fiber, error)    { return nil, nil }
func (fakeFiberRepo) GetByIDs(_ context.Context, _ []string) ([]fiber.Fiber, error) { return nil, nil }
func (fakeFiberRepo) List(_ context.Context, _ bool) ([]fiber.Fiber, error)        { return nil, nil }
func (fakeFiberRepo) Insert(_ context.Context, _ *fiber.Fiber) error               { return nil }
func (fakeFiberRepo) Update(_ context.Context, _ *fiber.Fiber) error               { return nil }

type fakeColorRepo struct{}

func (fakeColorRepo) GetByID(_ context.Context, _ int) (*color.MecsaColor, error)      { return nil, nil }
func (fakeColorRepo) GetBySlug(_ context.Context, _ string) (*color.MecsaColor, error) { return nil, nil }
func (fakeColorRepo) GetBySku(_ context.Context, _ string) (*color.MecsaColor, error)  { return nil, nil }
func (fakeColorRepo) List(_ context.Context, _ bool) ([]color.MecsaColor, error)       { return nil, nil }
func (fakeColorRepo) NextID(_ context.Context) (int, error)                            { return 0, nil }
func (fakeColorRepo) Insert(_ context.Context, _ *color.MecsaColor) error              { return nil }
func (fakeColorRepo) Update(_ context.Context, _ *color.MecsaColor) error              { return nil }

type fakeParamsRepo struct {
	rows map[int]params.Parameter
}

func (r *fakeParamsRepo) GetByID(_ context.Context, id int) (*params.Parameter, error) {
	if p, ok := r.rows[id]; ok {
		return &p, nil
	}
	return nil, nil
}

func (r *fakeParamsRepo) ListByCategory(_ context.Context, categoryID int, onlyActive bool) ([]params.Parameter, error) {
	var out []params.Parameter
	for _, p := range r.rows {
		if p.CategoryID == categoryID && (!onlyActive || p.IsActive) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakeParamsRepo) ListCategories(_ context.Context) ([]params.ParameterCategory, error) {
	return nil, nil
}

func (r *fakeParamsRepo) Save(_ context.Context, p *params.Parameter) error {
	r.rows[p.ID] = *p
	return nil
}

type fakeSeriesRepo struct {
	sequences map[string]int64
}

func (r *fakeSeriesRepo) NextNumber(_ context.Context, _, documentCode, serviceNumber string) (int64, error) {
	return 0, series.NotFound(documentCode, serviceNumber)
}

func (r *fakeSeriesRepo) NextVal(_ context.Context, sequence string) (int64, error) {
	r.sequences[sequence]++
	return r.sequences[sequence], nil
}

// Fabric type parameter ids used by the fixture.
const (
	typeJersey  = 100
	typeRibBVD  = 101
	typeFranela = 102
)

type fabricFixture struct {
	svc     *Service
	items   *fakeItemRepo
	recipes *fakeRecipeRepo
}

func newFabricFixture(t *testing.T) *fabricFixture {
	t.Helper()

	paramsRepo := &fakeParamsRepo{rows: map[int]params.Parameter{
		typeJersey:  {ID: typeJersey, CategoryID: params.CategoryFabricTypes, Value: "JERSEY", DataType: params.TypeString, IsActive: true},
		typeRibBVD:  {ID: typeRibBVD, CategoryID: params.CategoryFabricTypes, Value: "RIB BVD", DataType: params.TypeString, IsActive: true},
		typeFranela: {ID: typeFranela, CategoryID: params.CategoryFabricTypes, Value: "FRANELA", DataType: params.TypeString, IsActive: true},
	}}
	loader := params.NewLoader(params.NewService(paramsRepo))

	items := &fakeItemRepo{items: map[string]item.InventoryItem{
		"1001": {ID: "1001", FamilyID: "01", SubfamilyID: item.YarnSubfamily, IsActive: item.FlagActive},
		"1002": {ID: "1002", FamilyID: "01", SubfamilyID: item.YarnSubfamily, IsActive: item.FlagInactive},
	}}
	recipes := &fakeRecipeRepo{byFabric: make(map[string][]FabricYarn)}
	seriesSvc := series.NewService(&fakeSeriesRepo{sequences: make(map[string]int64)})

	fibers := fiber.NewService(fakeFiberRepo{}, loader, color.NewService(fakeColorRepo{}))
	yarns := yarn.NewService(items, fakeYarnRecipeRepo{}, fibers, loader, seriesSvc, stubTx{}, stubTx{})

	return &fabricFixture{
		svc:     NewService(items, recipes, yarns, loader, seriesSvc, stubTx{}, stubTx{}),
		items:   items,
		recipes: recipes,
	}
}

func rl(yarnID string, plies int, proportion string) RecipeLineForm {
	return RecipeLineForm{
		YarnID:     yarnID,
		NumPlies:   plies,
		Proportion: decimal.RequireFromString(proportion),
	}
}

func jerseyForm(lines ...RecipeLineForm) CreateForm {
	return CreateForm{
		FabricTypeID: typeJersey,
		Density:      decimal.RequireFromString("180"),
		Width:        decimal.RequireFromString("30"),
		Units:        "KGS",
		Recipe:       lines,
	}
}

func TestNormalizePattern(t *testing.T) {
	jersey := params.Parameter{Value: "JERSEY"}
	ribBVD := params.Parameter{Value: "RIB BVD"}
	franela := params.Parameter{Value: "FRANELA"}

	tests := []struct {
		name       string
		fabricType params.Parameter
		pattern    string
		want       string
		wantErr    bool
	}{
		{"jersey defaults to plain", jersey, "", StructurePatternPlain, false},
		{"jersey accepts plain lowercase", jersey, " liso ", StructurePatternPlain, false},
		{"jersey rejects other patterns", jersey, "JACQUARD", "", true},
		{"rib bvd requires empty", ribBVD, "", "", false},
		{"rib bvd rejects any pattern", ribBVD, "LISO", "", true},
		{"other types pass through", franela, "jacquard", "JACQUARD", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := normalizePattern(tt.fabricType, tt.pattern)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperror.IsCode(err, apperror.CodeStructurePattern))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCreatePersistsItemAndRecipe(t *testing.T) {
	fx := newFabricFixture(t)

	f, err := fx.svc.Create(context.Background(), jerseyForm(rl("1001", 1, "100")))
	require.NoError(t, err)

	assert.Equal(t, item.FabricFamily, f.Item.FamilyID)
	assert.Equal(t, "TEJIDO JERSEY 180 X 30", f.Item.Description)
	assert.Equal(t, "180", f.Density())
	assert.Equal(t, "30", f.Width())
	assert.Equal(t, "100", f.FabricTypeID())
	assert.Equal(t, StructurePatternPlain, f.StructurePattern())

	require.Len(t, fx.recipes.byFabric[f.Item.ID], 1)
	assert.Equal(t, f.Item.ID, fx.recipes.byFabric[f.Item.ID][0].FabricID)
}

func TestCreateRejectsInactiveYarn(t *testing.T) {
	fx := newFabricFixture(t)

	_, err := fx.svc.Create(context.Background(), jerseyForm(rl("1002", 1, "100")))
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeRecipeInvalid))
	assert.Zero(t, fx.items.inserted)
}

func TestCreateRejectsNonPositiveDimensions(t *testing.T) {
	fx := newFabricFixture(t)
	form := jerseyForm(rl("1001", 1, "100"))
	form.Width = decimal.Zero

	_, err := fx.svc.Create(context.Background(), form)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestCreateRibBVDWithPatternRejected(t *testing.T) {
	fx := newFabricFixture(t)
	form := jerseyForm(rl("1001", 1, "100"))
	form.FabricTypeID = typeRibBVD
	form.StructurePattern = "LISO"

	_, err := fx.svc.Create(context.Background(), form)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeStructurePattern))
}

func TestCreateDuplicateAttributesAndRecipe(t *testing.T) {
	fx := newFabricFixture(t)
	ctx := context.Background()

	first, err := fx.svc.Create(ctx, jerseyForm(rl("1001", 1, "100")))
	require.NoError(t, err)

	_, err = fx.svc.Create(ctx, jerseyForm(rl("1001", 1, "100")))
	require.Error(t, err)
	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeDuplicate, appErr.Code)
	assert.Equal(t, first.Item.ID, appErr.Details["existing_id"])
}

func TestCreateSameAttributesDifferentRecipeAllowed(t *testing.T) {
	fx := newFabricFixture(t)
	ctx := context.Background()

	_, err := fx.svc.Create(ctx, jerseyForm(rl("1001", 1, "100")))
	require.NoError(t, err)

	_, err = fx.svc.Create(ctx, jerseyForm(rl("1001", 2, "100")))
	require.NoError(t, err)
}

func TestUpdateLegacyRecipeReadOnly(t *testing.T) {
	fx := newFabricFixture(t)
	fx.items.items["TJ-OLD"] = item.InventoryItem{
		ID: "TJ-OLD", FamilyID: item.FabricFamily, IsActive: item.FlagActive,
	}

	_, err := fx.svc.Update(context.Background(), "TJ-OLD", UpdateForm{
		Recipe: []RecipeLineForm{rl("1001", 1, "100")},
	})
	require.Error(t, err)
	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, 403, appErr.HTTPStatus)
}

func TestUpdateReplacedRecipe(t *testing.T) {
	fx := newFabricFixture(t)
	ctx := context.Background()

	f, err := fx.svc.Create(ctx, jerseyForm(rl("1001", 1, "100")))
	require.NoError(t, err)

	updated, err := fx.svc.Update(ctx, f.Item.ID, UpdateForm{
		Recipe: []RecipeLineForm{rl("1001", 2, "100")},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, fx.recipes.deletes)
	require.Len(t, updated.Recipe, 1)
	assert.Equal(t, 2, updated.Recipe[0].NumPlies)
}

func TestCreateRecordsAuditChanges(t *testing.T) {
	fx := newFabricFixture(t)
	ctx, rec := audit.WithRecorder(context.Background())

	f, err := fx.svc.Create(ctx, jerseyForm(rl("1001", 1, "100")))
	require.NoError(t, err)

	changes := rec.Drain()
	require.Len(t, changes, 2)
	assert.Equal(t, "fabric", changes[0].EntityType)
	assert.Equal(t, f.Item.ID, changes[0].EntityID)
	assert.Equal(t, audit.ActionCreate, changes[0].Action)
	assert.Equal(t, f.Item.Description, changes[0].NewValue["description"])
	assert.Equal(t, "fabric_recipe", changes[1].EntityType)
	assert.Nil(t, changes[0].OldValue)
}

func TestUpdateRecordsAuditChanges(t *testing.T) {
	fx := newFabricFixture(t)
	f, err := fx.svc.Create(context.Background(), jerseyForm(rl("1001", 1, "100")))
	require.NoError(t, err)

	ctx, rec := audit.WithRecorder(context.Background())
	desc := "TEJIDO JERSEY PREMIUM"
	_, err = fx.svc.Update(ctx, f.Item.ID, UpdateForm{Description: &desc})
	require.NoError(t, err)

	changes := rec.Drain()
	require.Len(t, changes, 1)
	assert.Equal(t, audit.ActionUpdate, changes[0].Action)
	assert.Equal(t, f.Item.Description, changes[0].OldValue["description"])
	assert.Equal(t, desc, changes[0].NewValue["description"])
}

func TestColorOrCrude(t *testing.T) {
	crude := &Fabric{}
	assert.Equal(t, "CRUD", crude.ColorOrCrude())

	dyed := &Fabric{Item: item.InventoryItem{Field3: "12"}}
	assert.Equal(t, "12", dyed.ColorOrCrude())
}
