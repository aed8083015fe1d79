package dto

import (
	"strconv"

	"github.com/shopspring/decimal"

	"mecsa/internal/domain/catalogs/color"
	"mecsa/internal/domain/catalogs/fabric"
	"mecsa/internal/domain/catalogs/fiber"
	"mecsa/internal/domain/catalogs/supplier"
	"mecsa/internal/domain/catalogs/unit"
	"mecsa/internal/domain/catalogs/yarn"
	"mecsa/internal/domain/params"
)

// --- colors ---

type ColorResponse struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Sku         string `json:"sku"`
	Hexadecimal string `json:"hexadecimal"`
	IsActive    bool   `json:"isActive"`
}

type CreateColorRequest struct {
	Name        string `json:"name" binding:"required"`
	Sku         string `json:"sku"`
	Hexadecimal string `json:"hexadecimal" binding:"required"`
}

type UpdateColorRequest struct {
	Name        *string `json:"name"`
	Sku         *string `json:"sku"`
	Hexadecimal *string `json:"hexadecimal"`
	IsActive    *bool   `json:"isActive"`
}

func FromColor(c *color.MecsaColor) ColorResponse {
	return ColorResponse{
		ID:          c.ID,
		Name:        c.Name,
		Slug:        c.Slug,
		Sku:         c.Sku,
		Hexadecimal: c.Hexadecimal,
		IsActive:    c.IsActive,
	}
}

// --- fibers ---

type FiberResponse struct {
	ID             string `json:"id"`
	CategoryID     int    `json:"categoryId"`
	DenominationID *int   `json:"denominationId,omitempty"`
	ColorID        *int   `json:"colorId,omitempty"`
	IsActive       bool   `json:"isActive"`
}

type CreateFiberRequest struct {
	CategoryID     int  `json:"categoryId" binding:"required"`
	DenominationID *int `json:"denominationId"`
	ColorID        *int `json:"colorId"`
}

type UpdateFiberRequest struct {
	CategoryID     *int  `json:"categoryId"`
	DenominationID *int  `json:"denominationId"`
	ColorID        *int  `json:"colorId"`
	IsActive       *bool `json:"isActive"`
}

func FromFiber(f *fiber.Fiber) FiberResponse {
	return FiberResponse{
		ID:             f.ID,
		CategoryID:     f.CategoryID,
		DenominationID: f.DenominationID,
		ColorID:        f.ColorID,
		IsActive:       f.IsActive,
	}
}

// --- units ---

type UnitResponse struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func FromUnit(u unit.Unit) UnitResponse {
	return UnitResponse{Code: u.Code, Description: u.Description}
}

// --- suppliers ---

type SupplierResponse struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Address     string `json:"address"`
	RUC         string `json:"ruc"`
	Initials    string `json:"initials"`
	StorageCode string `json:"storageCode"`
	Email       string `json:"email"`
	IsActive    bool   `json:"isActive"`
}

func FromSupplier(s supplier.Supplier) SupplierResponse {
	return SupplierResponse{
		Code:        s.Code,
		Name:        s.Name,
		Address:     s.Address,
		RUC:         s.RUC,
		Initials:    s.Initials,
		StorageCode: s.StorageCode,
		Email:       s.Email,
		IsActive:    s.Active(),
	}
}

// --- parameters ---

type ParameterResponse struct {
	ID         int    `json:"id"`
	CategoryID int    `json:"categoryId"`
	Value      string `json:"value"`
	DataType   string `json:"dataType"`
	IsActive   bool   `json:"isActive"`
}

func FromParameter(p params.Parameter) ParameterResponse {
	return ParameterResponse{
		ID:         p.ID,
		CategoryID: p.CategoryID,
		Value:      p.Value,
		DataType:   p.DataType,
		IsActive:   p.IsActive,
	}
}

// --- yarns ---

type YarnRecipeLine struct {
	FiberID    string          `json:"fiberId" binding:"required"`
	NumPlies   int             `json:"numPlies"`
	Proportion decimal.Decimal `json:"proportion"`
	Galgue     decimal.Decimal `json:"galgue"`
	Diameter   decimal.Decimal `json:"diameter"`
}

type YarnResponse struct {
	ID               string           `json:"id"`
	Count            string           `json:"count"`
	NumberingSystem  string           `json:"numberingSystem"`
	SpinningMethodID int              `json:"spinningMethodId"`
	ColorID          *int             `json:"colorId,omitempty"`
	Description      string           `json:"description"`
	Units            string           `json:"units"`
	Barcode          int64            `json:"barcode"`
	IsActive         bool             `json:"isActive"`
	Recipe           []YarnRecipeLine `json:"recipe,omitempty"`
}

type CreateYarnRequest struct {
	Count            string           `json:"count" binding:"required"`
	NumberingSystem  string           `json:"numberingSystem" binding:"required"`
	SpinningMethodID int              `json:"spinningMethodId" binding:"required"`
	ColorID          *int             `json:"colorId"`
	Description      string           `json:"description"`
	Units            string           `json:"units"`
	Recipe           []YarnRecipeLine `json:"recipe" binding:"required"`
}

type UpdateYarnRequest struct {
	Description *string          `json:"description"`
	IsActive    *bool            `json:"isActive"`
	Recipe      []YarnRecipeLine `json:"recipe"`
}

func FromYarn(y *yarn.Yarn) YarnResponse {
	out := YarnResponse{
		ID:              y.Item.ID,
		Count:           y.Count(),
		NumberingSystem: y.NumberingSystem(),
		Description:     y.Item.Description,
		Units:           y.Item.Units,
		Barcode:         y.Item.Barcode,
		IsActive:        y.Item.Active(),
	}
	if id, err := strconv.Atoi(y.SpinningMethodID()); err == nil {
		out.SpinningMethodID = id
	}
	if id, err := strconv.Atoi(y.ColorID()); err == nil {
		out.ColorID = &id
	}
	for _, r := range y.Recipe {
		out.Recipe = append(out.Recipe, YarnRecipeLine{
			FiberID:    r.FiberID,
			NumPlies:   r.NumPlies,
			Proportion: r.Proportion,
			Galgue:     r.Galgue,
			Diameter:   r.Diameter,
		})
	}
	return out
}

// ToYarnCreateForm maps the request onto the service form.
func (r CreateYarnRequest) ToYarnCreateForm() yarn.CreateForm {
	return yarn.CreateForm{
		Count:            r.Count,
		NumberingSystem:  r.NumberingSystem,
		SpinningMethodID: r.SpinningMethodID,
		ColorID:          r.ColorID,
		Description:      r.Description,
		Units:            r.Units,
		Recipe:           toYarnRecipe(r.Recipe),
	}
}

// ToYarnUpdateForm maps the request onto the service form.
func (r UpdateYarnRequest) ToYarnUpdateForm() yarn.UpdateForm {
	return yarn.UpdateForm{
		Description: r.Description,
		IsActive:    r.IsActive,
		Recipe:      toYarnRecipe(r.Recipe),
	}
}

func toYarnRecipe(lines []YarnRecipeLine) []yarn.RecipeLineForm {
	if lines == nil {
		return nil
	}
	out := make([]yarn.RecipeLineForm, 0, len(lines))
	for _, l := range lines {
		out = append(out, yarn.RecipeLineForm{
			FiberID:    l.FiberID,
			NumPlies:   l.NumPlies,
			Proportion: l.Proportion,
			Galgue:     l.Galgue,
			Diameter:   l.Diameter,
		})
	}
	return out
}

// --- fabrics ---

type FabricRecipeLine struct {
	YarnID       string          `json:"yarnId" binding:"required"`
	NumPlies     int             `json:"numPlies"`
	Proportion   decimal.Decimal `json:"proportion"`
	Galgue       decimal.Decimal `json:"galgue"`
	Diameter     decimal.Decimal `json:"diameter"`
	StitchLength decimal.Decimal `json:"stitchLength"`
}

type FabricResponse struct {
	ID               string             `json:"id"`
	FabricTypeID     int                `json:"fabricTypeId"`
	Density          string             `json:"density"`
	Width            string             `json:"width"`
	ColorID          *int               `json:"colorId,omitempty"`
	StructurePattern string             `json:"structurePattern"`
	Description      string             `json:"description"`
	Units            string             `json:"units"`
	Barcode          int64              `json:"barcode"`
	IsActive         bool               `json:"isActive"`
	Recipe           []FabricRecipeLine `json:"recipe,omitempty"`
}

type CreateFabricRequest struct {
	FabricTypeID     int                `json:"fabricTypeId" binding:"required"`
	Density          decimal.Decimal    `json:"density"`
	Width            decimal.Decimal    `json:"width"`
	ColorID          *int               `json:"colorId"`
	StructurePattern string             `json:"structurePattern"`
	Description      string             `json:"description"`
	Units            string             `json:"units"`
	Recipe           []FabricRecipeLine `json:"recipe" binding:"required"`
}

type UpdateFabricRequest struct {
	Description *string            `json:"description"`
	IsActive    *bool              `json:"isActive"`
	Recipe      []FabricRecipeLine `json:"recipe"`
}

func FromFabric(f *fabric.Fabric) FabricResponse {
	out := FabricResponse{
		ID:               f.Item.ID,
		Density:          f.Item.Field1,
		Width:            f.Item.Field2,
		StructurePattern: f.Item.Field5,
		Description:      f.Item.Description,
		Units:            f.Item.Units,
		Barcode:          f.Item.Barcode,
		IsActive:         f.Item.Active(),
	}
	if id, err := strconv.Atoi(f.Item.Field4); err == nil {
		out.FabricTypeID = id
	}
	if id, err := strconv.Atoi(f.Item.Field3); err == nil {
		out.ColorID = &id
	}
	for _, r := range f.Recipe {
		out.Recipe = append(out.Recipe, FabricRecipeLine{
			YarnID:       r.YarnID,
			NumPlies:     r.NumPlies,
			Proportion:   r.Proportion,
			Galgue:       r.Galgue,
			Diameter:     r.Diameter,
			StitchLength: r.StitchLength,
		})
	}
	return out
}

// ToFabricCreateForm maps the request onto the service form.
func (r CreateFabricRequest) ToFabricCreateForm() fabric.CreateForm {
	return fabric.CreateForm{
		FabricTypeID:     r.FabricTypeID,
		Density:          r.Density,
		Width:            r.Width,
		ColorID:          r.ColorID,
		StructurePattern: r.StructurePattern,
		Description:      r.Description,
		Units:            r.Units,
		Recipe:           toFabricRecipe(r.Recipe),
	}
}

// ToFabricUpdateForm maps the request onto the service form.
func (r UpdateFabricRequest) ToFabricUpdateForm() fabric.UpdateForm {
	return fabric.UpdateForm{
		Description: r.Description,
		IsActive:    r.IsActive,
		Recipe:      toFabricRecipe(r.Recipe),
	}
}

func toFabricRecipe(lines []FabricRecipeLine) []fabric.RecipeLineForm {
	if lines == nil {
		return nil
	}
	out := make([]fabric.RecipeLineForm, 0, len(lines))
	for _, l := range lines {
		out = append(out, fabric.RecipeLineForm{
			YarnID:       l.YarnID,
			NumPlies:     l.NumPlies,
			Proportion:   l.Proportion,
			Galgue:       l.Galgue,
			Diameter:     l.Diameter,
			StitchLength: l.StitchLength,
		})
	}
	return out
}
