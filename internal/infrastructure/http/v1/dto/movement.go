package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"mecsa/internal/domain/documents/dyeing_service_dispatch"
	"mecsa/internal/domain/documents/weaving_service_entry"
	"mecsa/internal/domain/documents/yarn_purchase_entry"
	"mecsa/internal/domain/documents/yarn_weaving_dispatch"
	"mecsa/internal/domain/movement"
)

// MovementListQuery pages movement documents of one kind.
type MovementListQuery struct {
	PaginationQuery
	Period          int    `form:"period"`
	IncludeAnnulled bool   `form:"includeAnnulled"`
	SupplierCode    string `form:"supplierCode"`
}

// ToFilter maps the query onto the domain filter.
func (q MovementListQuery) ToFilter() movement.ListFilter {
	return movement.ListFilter{
		Period:          q.Period,
		Page:            q.Page,
		PageSize:        q.PageSize,
		IncludeAnnulled: q.IncludeAnnulled,
		SupplierCode:    q.SupplierCode,
	}
}

// MovementResponse is the header of any movement document.
type MovementResponse struct {
	StorageCode    string     `json:"storageCode"`
	MovementType   string     `json:"movementType"`
	MovementCode   string     `json:"movementCode"`
	DocumentCode   string     `json:"documentCode"`
	DocumentNumber string     `json:"documentNumber"`
	Period         int        `json:"period"`
	CreationDate   time.Time  `json:"creationDate"`
	CreationTime   string     `json:"creationTime"`
	SupplierCode   string     `json:"supplierCode"`
	SupplierName   string     `json:"supplierName"`
	ReferenceCode  string     `json:"referenceCode,omitempty"`
	Reference1     string     `json:"reference1,omitempty"`
	Reference2     string     `json:"reference2,omitempty"`
	StatusFlag     string     `json:"statusFlag"`
	Accounted      bool       `json:"accounted"`
	AnnulmentDate  *time.Time `json:"annulmentDate,omitempty"`
	UserID         string     `json:"userId"`
}

// FromMovement maps a header row.
func FromMovement(m movement.Movement) MovementResponse {
	return MovementResponse{
		StorageCode:    m.StorageCode,
		MovementType:   m.MovementType,
		MovementCode:   m.MovementCode,
		DocumentCode:   m.DocumentCode,
		DocumentNumber: m.DocumentNumber,
		Period:         m.Period,
		CreationDate:   m.CreationDate,
		CreationTime:   m.CreationTime,
		SupplierCode:   m.AuxiliaryCode,
		SupplierName:   m.AuxiliaryName,
		ReferenceCode:  m.ReferenceCode,
		Reference1:     m.ReferenceNumber1,
		Reference2:     m.ReferenceNumber2,
		StatusFlag:     m.StatusFlag,
		Accounted:      m.Accounted(),
		AnnulmentDate:  m.AnnulmentDate,
		UserID:         m.UserID,
	}
}

// FromMovements maps one page of headers.
func FromMovements(result *movement.ListResult) PageResponse {
	items := make([]MovementResponse, 0, len(result.Items))
	for _, m := range result.Items {
		items = append(items, FromMovement(m))
	}
	return PageResponse{
		Items:    items,
		Total:    result.Total,
		Page:     result.Page,
		PageSize: result.PageSize,
	}
}

// MovementDetailResponse is one line of a movement.
type MovementDetailResponse struct {
	ItemNumber  int             `json:"itemNumber"`
	ProductCode string          `json:"productCode"`
	Unit        string          `json:"unit"`
	MecsaWeight decimal.Decimal `json:"mecsaWeight"`
	CardID      string          `json:"cardId,omitempty"`
	GroupNumber int             `json:"groupNumber,omitempty"`
	StatusFlag  string          `json:"statusFlag"`
}

func fromDetails(rows []movement.MovementDetail) []MovementDetailResponse {
	out := make([]MovementDetailResponse, 0, len(rows))
	for _, d := range rows {
		out = append(out, MovementDetailResponse{
			ItemNumber:  d.ItemNumber,
			ProductCode: d.ProductCode,
			Unit:        d.Unit,
			MecsaWeight: d.MecsaWeight,
			CardID:      d.CardID,
			GroupNumber: d.GroupNumber,
			StatusFlag:  d.StatusFlag,
		})
	}
	return out
}

// HeavyResponse is one weighed sub-lot of a yarn purchase entry.
type HeavyResponse struct {
	ItemNumber     int             `json:"itemNumber"`
	GroupNumber    int             `json:"groupNumber"`
	ProductCode    string          `json:"productCode"`
	ConeCount      int             `json:"coneCount"`
	PackageCount   int             `json:"packageCount"`
	ConesLeft      int             `json:"conesLeft"`
	PackagesLeft   int             `json:"packagesLeft"`
	GrossWeight    decimal.Decimal `json:"grossWeight"`
	NetWeight      decimal.Decimal `json:"netWeight"`
	DispatchStatus bool            `json:"dispatchStatus"`
	ExitNumber     *string         `json:"exitNumber,omitempty"`
	MecsaBatch     string          `json:"mecsaBatch"`
	SupplierBatch  string          `json:"supplierBatch"`
	StatusFlag     string          `json:"statusFlag"`
}

func fromHeavies(rows []movement.YarnOCHeavy) []HeavyResponse {
	out := make([]HeavyResponse, 0, len(rows))
	for _, h := range rows {
		out = append(out, HeavyResponse{
			ItemNumber:     h.ItemNumber,
			GroupNumber:    h.GroupNumber,
			ProductCode:    h.ProductCode,
			ConeCount:      h.ConeCount,
			PackageCount:   h.PackageCount,
			ConesLeft:      h.ConesLeft,
			PackagesLeft:   h.PackagesLeft,
			GrossWeight:    h.GrossWeight,
			NetWeight:      h.NetWeight,
			DispatchStatus: h.DispatchStatus,
			ExitNumber:     h.ExitNumber,
			MecsaBatch:     h.MecsaBatch,
			SupplierBatch:  h.SupplierBatch,
			StatusFlag:     h.StatusFlag,
		})
	}
	return out
}

// FabricLineResponse is one per-fabric child line.
type FabricLineResponse struct {
	FabricID       string          `json:"fabricId"`
	Codcol         string          `json:"codcol"`
	Width          decimal.Decimal `json:"width"`
	Density        decimal.Decimal `json:"density"`
	GuideNetWeight decimal.Decimal `json:"guideNetWeight"`
	MecsaWeight    decimal.Decimal `json:"mecsaWeight"`
	RollCount      int             `json:"rollCount"`
	MetersCount    decimal.Decimal `json:"metersCount"`
	StatusFlag     string          `json:"statusFlag"`
}

func fromFabricLines(rows []movement.FabricWarehouse) []FabricLineResponse {
	out := make([]FabricLineResponse, 0, len(rows))
	for _, f := range rows {
		out = append(out, FabricLineResponse{
			FabricID:       f.FabricID,
			Codcol:         f.Codcol,
			Width:          f.Width,
			Density:        f.Density,
			GuideNetWeight: f.GuideNetWeight,
			MecsaWeight:    f.MecsaWeight,
			RollCount:      f.RollCount,
			MetersCount:    f.MetersCount,
			StatusFlag:     f.StatusFlag,
		})
	}
	return out
}

// CardResponse is one roll card.
type CardResponse struct {
	ID             string          `json:"id"`
	FabricID       string          `json:"fabricId"`
	NetWeight      decimal.Decimal `json:"netWeight"`
	TintSupplierID string          `json:"tintSupplierId,omitempty"`
	TintColorID    string          `json:"tintColorId,omitempty"`
	CardType       string          `json:"cardType"`
	StatusFlag     string          `json:"statusFlag"`
	ExitNumber     *string         `json:"exitNumber,omitempty"`
	DocumentNumber string          `json:"documentNumber"`
	Period         int             `json:"period"`
}

func fromCards(rows []movement.CardOperation) []CardResponse {
	out := make([]CardResponse, 0, len(rows))
	for _, c := range rows {
		out = append(out, CardResponse{
			ID:             c.ID,
			FabricID:       c.FabricID,
			NetWeight:      c.NetWeight,
			TintSupplierID: c.TintSupplierID,
			TintColorID:    c.TintColorID,
			CardType:       c.CardType,
			StatusFlag:     c.StatusFlag,
			ExitNumber:     c.ExitNumber,
			DocumentNumber: c.DocumentNumber,
			Period:         c.Period,
		})
	}
	return out
}

// --- yarn purchase entry ---

type PurchaseGroupRequest struct {
	GroupNumber  int             `json:"groupNumber"`
	ConeCount    int             `json:"coneCount"`
	PackageCount int             `json:"packageCount"`
	GrossWeight  decimal.Decimal `json:"grossWeight"`
	NetWeight    decimal.Decimal `json:"netWeight"`
}

type PurchaseDetailRequest struct {
	YarnID         string                 `json:"yarnId" binding:"required"`
	GuideNetWeight decimal.Decimal        `json:"guideNetWeight"`
	ConeCount      int                    `json:"coneCount"`
	PackageCount   int                    `json:"packageCount"`
	SupplierBatch  string                 `json:"supplierBatch"`
	Groups         []PurchaseGroupRequest `json:"groups" binding:"required"`
}

type CreatePurchaseEntryRequest struct {
	SupplierCode        string                  `json:"supplierCode" binding:"required"`
	PurchaseOrderNumber string                  `json:"purchaseOrderNumber" binding:"required"`
	Period              int                     `json:"period"`
	Details             []PurchaseDetailRequest `json:"details" binding:"required"`
}

type UpdatePurchaseEntryRequest struct {
	Details []PurchaseDetailRequest `json:"details" binding:"required"`
}

type PurchaseEntryResponse struct {
	Header  MovementResponse         `json:"header"`
	Details []MovementDetailResponse `json:"details"`
	Heavies []HeavyResponse          `json:"heavies"`
}

func (r CreatePurchaseEntryRequest) ToForm() yarn_purchase_entry.CreateForm {
	return yarn_purchase_entry.CreateForm{
		SupplierCode:        r.SupplierCode,
		PurchaseOrderNumber: r.PurchaseOrderNumber,
		Period:              r.Period,
		Details:             toPurchaseDetails(r.Details),
	}
}

func (r UpdatePurchaseEntryRequest) ToForm() yarn_purchase_entry.UpdateForm {
	return yarn_purchase_entry.UpdateForm{Details: toPurchaseDetails(r.Details)}
}

func toPurchaseDetails(rows []PurchaseDetailRequest) []yarn_purchase_entry.DetailForm {
	out := make([]yarn_purchase_entry.DetailForm, 0, len(rows))
	for _, d := range rows {
		form := yarn_purchase_entry.DetailForm{
			YarnID:         d.YarnID,
			GuideNetWeight: d.GuideNetWeight,
			ConeCount:      d.ConeCount,
			PackageCount:   d.PackageCount,
			SupplierBatch:  d.SupplierBatch,
		}
		for _, g := range d.Groups {
			form.Groups = append(form.Groups, yarn_purchase_entry.GroupForm{
				GroupNumber:  g.GroupNumber,
				ConeCount:    g.ConeCount,
				PackageCount: g.PackageCount,
				GrossWeight:  g.GrossWeight,
				NetWeight:    g.NetWeight,
			})
		}
		out = append(out, form)
	}
	return out
}

// FromPurchaseEntry maps the aggregate.
func FromPurchaseEntry(e *yarn_purchase_entry.Entry) PurchaseEntryResponse {
	return PurchaseEntryResponse{
		Header:  FromMovement(e.Header),
		Details: fromDetails(e.Details),
		Heavies: fromHeavies(e.Heavies),
	}
}

// --- yarn weaving dispatch ---

type WeavingDispatchDetailRequest struct {
	EntryNumber  string          `json:"entryNumber" binding:"required"`
	ItemNumber   int             `json:"itemNumber"`
	GroupNumber  int             `json:"groupNumber"`
	ConeCount    int             `json:"coneCount"`
	PackageCount int             `json:"packageCount"`
	NetWeight    decimal.Decimal `json:"netWeight"`
	FabricID     string          `json:"fabricId" binding:"required"`
}

type CreateWeavingDispatchRequest struct {
	SupplierCode   string                         `json:"supplierCode" binding:"required"`
	ServiceOrderID string                         `json:"serviceOrderId" binding:"required"`
	Period         int                            `json:"period"`
	Details        []WeavingDispatchDetailRequest `json:"details" binding:"required"`
}

type UpdateWeavingDispatchRequest struct {
	Details []WeavingDispatchDetailRequest `json:"details" binding:"required"`
}

type WeavingDispatchResponse struct {
	Header      MovementResponse         `json:"header"`
	Details     []MovementDetailResponse `json:"details"`
	PairedEntry MovementResponse         `json:"pairedEntry"`
}

func (r CreateWeavingDispatchRequest) ToForm() yarn_weaving_dispatch.CreateForm {
	return yarn_weaving_dispatch.CreateForm{
		SupplierCode:   r.SupplierCode,
		ServiceOrderID: r.ServiceOrderID,
		Period:         r.Period,
		Details:        toWeavingDispatchDetails(r.Details),
	}
}

func (r UpdateWeavingDispatchRequest) ToForm() yarn_weaving_dispatch.UpdateForm {
	return yarn_weaving_dispatch.UpdateForm{Details: toWeavingDispatchDetails(r.Details)}
}

func toWeavingDispatchDetails(rows []WeavingDispatchDetailRequest) []yarn_weaving_dispatch.DetailForm {
	out := make([]yarn_weaving_dispatch.DetailForm, 0, len(rows))
	for _, d := range rows {
		out = append(out, yarn_weaving_dispatch.DetailForm{
			EntryNumber:  d.EntryNumber,
			ItemNumber:   d.ItemNumber,
			GroupNumber:  d.GroupNumber,
			ConeCount:    d.ConeCount,
			PackageCount: d.PackageCount,
			NetWeight:    d.NetWeight,
			FabricID:     d.FabricID,
		})
	}
	return out
}

// FromWeavingDispatch maps the aggregate.
func FromWeavingDispatch(d *yarn_weaving_dispatch.Dispatch) WeavingDispatchResponse {
	return WeavingDispatchResponse{
		Header:      FromMovement(d.Header),
		Details:     fromDetails(d.Details),
		PairedEntry: FromMovement(d.PairedEntry),
	}
}

// --- weaving service entry ---

type RollRequest struct {
	NetWeight decimal.Decimal `json:"netWeight"`
}

type WeavingEntryDetailRequest struct {
	FabricID       string          `json:"fabricId" binding:"required"`
	GuideNetWeight decimal.Decimal `json:"guideNetWeight"`
	TintSupplierID string          `json:"tintSupplierId"`
	TintColorID    string          `json:"tintColorId"`
	Rolls          []RollRequest   `json:"rolls" binding:"required"`
}

type CreateWeavingEntryRequest struct {
	SupplierCode   string                      `json:"supplierCode" binding:"required"`
	ServiceOrderID string                      `json:"serviceOrderId" binding:"required"`
	Period         int                         `json:"period"`
	Details        []WeavingEntryDetailRequest `json:"details" binding:"required"`
}

type UpdateWeavingEntryRequest struct {
	Details []WeavingEntryDetailRequest `json:"details" binding:"required"`
}

type WeavingEntryResponse struct {
	Header  MovementResponse         `json:"header"`
	Details []MovementDetailResponse `json:"details"`
	Fabrics []FabricLineResponse     `json:"fabrics"`
	Cards   []CardResponse           `json:"cards"`
}

func (r CreateWeavingEntryRequest) ToForm() weaving_service_entry.CreateForm {
	return weaving_service_entry.CreateForm{
		SupplierCode:   r.SupplierCode,
		ServiceOrderID: r.ServiceOrderID,
		Period:         r.Period,
		Details:        toWeavingEntryDetails(r.Details),
	}
}

func (r UpdateWeavingEntryRequest) ToForm() weaving_service_entry.UpdateForm {
	return weaving_service_entry.UpdateForm{Details: toWeavingEntryDetails(r.Details)}
}

func toWeavingEntryDetails(rows []WeavingEntryDetailRequest) []weaving_service_entry.DetailForm {
	out := make([]weaving_service_entry.DetailForm, 0, len(rows))
	for _, d := range rows {
		detail := weaving_service_entry.DetailForm{
			FabricID:       d.FabricID,
			GuideNetWeight: d.GuideNetWeight,
			TintSupplierID: d.TintSupplierID,
			TintColorID:    d.TintColorID,
		}
		for _, roll := range d.Rolls {
			detail.Rolls = append(detail.Rolls, weaving_service_entry.RollForm{NetWeight: roll.NetWeight})
		}
		out = append(out, detail)
	}
	return out
}

// FromWeavingEntry maps the aggregate.
func FromWeavingEntry(e *weaving_service_entry.Entry) WeavingEntryResponse {
	return WeavingEntryResponse{
		Header:  FromMovement(e.Header),
		Details: fromDetails(e.Details),
		Fabrics: fromFabricLines(e.Fabrics),
		Cards:   fromCards(e.Cards),
	}
}

// --- dyeing service dispatch ---

type CreateDyeingDispatchRequest struct {
	SupplierCode    string   `json:"supplierCode" binding:"required"`
	AddressID       int      `json:"addressId"`
	SupplierColorID string   `json:"supplierColorId" binding:"required"`
	Period          int      `json:"period"`
	CardIDs         []string `json:"cardIds" binding:"required"`
}

type UpdateDyeingDispatchRequest struct {
	CardIDs []string `json:"cardIds" binding:"required"`
}

type DyeingDispatchResponse struct {
	Header      MovementResponse         `json:"header"`
	Details     []MovementDetailResponse `json:"details"`
	Fabrics     []FabricLineResponse     `json:"fabrics"`
	PairedEntry MovementResponse         `json:"pairedEntry"`
}

func (r CreateDyeingDispatchRequest) ToForm() dyeing_service_dispatch.CreateForm {
	return dyeing_service_dispatch.CreateForm{
		SupplierCode:    r.SupplierCode,
		AddressID:       r.AddressID,
		SupplierColorID: r.SupplierColorID,
		Period:          r.Period,
		CardIDs:         r.CardIDs,
	}
}

// FromDyeingDispatch maps the aggregate.
func FromDyeingDispatch(d *dyeing_service_dispatch.Dispatch) DyeingDispatchResponse {
	return DyeingDispatchResponse{
		Header:      FromMovement(d.Header),
		Details:     fromDetails(d.Details),
		Fabrics:     fromFabricLines(d.Fabrics),
		PairedEntry: FromMovement(d.PairedEntry),
	}
}
