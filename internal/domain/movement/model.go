// Package movement holds the shared inventory movement model: headers,
// detail lines, auxiliary weights, heavy lots, fabric warehouse lines and
// roll cards. Documents in internal/domain/documents compose these.
package movement

import (
	"time"

	"github.com/shopspring/decimal"

	"mecsa/internal/core/apperror"
)

// Status flags on movements, details and cards.
const (
	StatusPosted   = "P"
	StatusAnnulled = "A"
	StatusClosed   = "C"
)

// AccountedFlag marks a movement locked by external accounting (flgcbd).
const AccountedFlag = "S"

// Movement types.
const (
	TypeIngress = "I"
	TypeExit    = "S"
)

// Movement codes per document kind.
const (
	CodeYarnPurchase   = "01"
	CodeYarnDispatch   = "40"
	CodeWeavingEntry   = "22"
	CodeDyeingDispatch = "42"
)

// Document codes.
const (
	DocEntry = "P/I"
	DocGuide = "G/R"
)

// Storage codes owned by MECSA.
const (
	StorageYarn   = "006"
	StorageFabric = "007"
)

// Key is the composite identity of a movement header.
type Key struct {
	Company        string
	StorageCode    string
	MovementType   string
	MovementCode   string
	DocumentCode   string
	DocumentNumber string
	Period         int
}

// Movement is a header row.
type Movement struct {
	Company          string    `db:"company"`
	StorageCode      string    `db:"storage_code"`
	MovementType     string    `db:"movement_type"`
	MovementCode     string    `db:"movement_code"`
	DocumentCode     string    `db:"document_code"`
	DocumentNumber   string    `db:"document_number"`
	Period           int       `db:"period"`
	CreationDate     time.Time `db:"creation_date"`
	CreationTime     string    `db:"creation_time"`
	AuxiliaryCode    string    `db:"auxiliary_code"`
	AuxiliaryName    string    `db:"auxiliary_name"`
	ReferenceCode    string    `db:"reference_code"`
	ReferenceNumber1 string    `db:"reference_number1"`
	ReferenceNumber2 string    `db:"reference_number2"`
	StatusFlag       string    `db:"status_flag"`
	PrintedFlag      string    `db:"printed_flag"`
	Flgcbd           string    `db:"flgcbd"`
	NrodirCode       string    `db:"nrodir"`
	TransporterCode  string    `db:"transporter_code"`
	ServicePurchaseCode string `db:"service_purchase_code"`
	AnnulmentDate    *time.Time `db:"annulment_date"`
	UserID           string    `db:"user_id"`
	AnnulmentUserID  string    `db:"annulment_user_id"`
}

// Key returns the composite identity.
func (m *Movement) Key() Key {
	return Key{
		Company:        m.Company,
		StorageCode:    m.StorageCode,
		MovementType:   m.MovementType,
		MovementCode:   m.MovementCode,
		DocumentCode:   m.DocumentCode,
		DocumentNumber: m.DocumentNumber,
		Period:         m.Period,
	}
}

// Annulled reports terminal annulment.
func (m *Movement) Annulled() bool { return m.StatusFlag == StatusAnnulled }

// Accounted reports the external accounting lock.
func (m *Movement) Accounted() bool { return m.Flgcbd == AccountedFlag }

// CheckEditable fails when the movement is annulled or accounted.
func (m *Movement) CheckEditable() error {
	if m.Annulled() {
		return apperror.NewForbidden(apperror.CodeMovementAnnulled,
			"movement is annulled").WithDetail("document_number", m.DocumentNumber)
	}
	if m.Accounted() {
		return apperror.NewForbidden(apperror.CodeMovementAccounted,
			"movement is already accounted").WithDetail("document_number", m.DocumentNumber)
	}
	return nil
}

// MovementDetail is one line of a movement.
type MovementDetail struct {
	Company          string          `db:"company"`
	StorageCode      string          `db:"storage_code"`
	MovementType     string          `db:"movement_type"`
	MovementCode     string          `db:"movement_code"`
	DocumentCode     string          `db:"document_code"`
	DocumentNumber   string          `db:"document_number"`
	Period           int             `db:"period"`
	ItemNumber       int             `db:"item_number"`
	ProductCode      string          `db:"product_code"`
	Unit             string          `db:"unit"`
	Factor           decimal.Decimal `db:"factor"`
	MecsaWeight      decimal.Decimal `db:"mecsa_weight"`
	RefDocumentCode  string          `db:"ref_document_code"`
	RefDocumentNumber string         `db:"ref_document_number"`
	CardID           string          `db:"nrotarj"`
	GroupNumber      int             `db:"group_number"`
	ItemNumberSupply int             `db:"item_number_supply"`
	StatusFlag       string          `db:"status_flag"`
}

// MovementDetailAux carries per-line auxiliary weights for yarn movements.
type MovementDetailAux struct {
	Company          string          `db:"company"`
	DocumentCode     string          `db:"document_code"`
	DocumentNumber   string          `db:"document_number"`
	Period           int             `db:"period"`
	ItemNumber       int             `db:"item_number"`
	GuideGrossWeight decimal.Decimal `db:"guide_gross_weight"`
	GuideNetWeight   decimal.Decimal `db:"guide_net_weight"`
	GuideConeCount   int             `db:"guide_cone_count"`
	GuidePackageCount int            `db:"guide_package_count"`
	MecsaBatch       string          `db:"mecsa_batch"`
	SupplierBatch    string          `db:"supplier_batch"`
}

// YarnOCHeavy is a weighed sub-lot under a yarn purchase entry, counted in
// cones and packages. dispatch_status holds iff both remainders are zero.
type YarnOCHeavy struct {
	Company       string          `db:"company"`
	IngressNumber string          `db:"ingress_number"`
	ItemNumber    int             `db:"item_number"`
	GroupNumber   int             `db:"group_number"`
	Period        int             `db:"period"`
	ProductCode   string          `db:"product_code"`
	ConeCount     int             `db:"cone_count"`
	PackageCount  int             `db:"package_count"`
	ConesLeft     int             `db:"cones_left"`
	PackagesLeft  int             `db:"packages_left"`
	GrossWeight   decimal.Decimal `db:"gross_weight"`
	NetWeight     decimal.Decimal `db:"net_weight"`
	DispatchStatus bool           `db:"dispatch_status"`
	ExitNumber    *string         `db:"exit_number"`
	ExitUserID    *string         `db:"exit_user_id"`
	SupplierBatch string          `db:"supplier_batch"`
	MecsaBatch    string          `db:"mecsa_batch"`
	StatusFlag    string          `db:"status_flag"`
}

// SyncDispatchStatus recomputes dispatch_status from the remainders.
func (h *YarnOCHeavy) SyncDispatchStatus() {
	h.DispatchStatus = h.PackagesLeft == 0 && h.ConesLeft == 0
}

// FabricWarehouse is a per-fabric child line of a fabric movement.
type FabricWarehouse struct {
	Company        string          `db:"company"`
	DocumentCode   string          `db:"document_code"`
	DocumentNumber string          `db:"document_number"`
	Period         int             `db:"period"`
	FabricID       string          `db:"fabric_id"`
	Codcol         string          `db:"codcol"`
	Width          decimal.Decimal `db:"width"`
	Density        decimal.Decimal `db:"density"`
	GuideNetWeight decimal.Decimal `db:"guide_net_weight"`
	MecsaWeight    decimal.Decimal `db:"mecsa_weight"`
	RollCount      int             `db:"roll_count"`
	MetersCount    decimal.Decimal `db:"meters_count"`
	StatusFlag     string          `db:"status_flag"`
}

// CardOperation tracks one physical roll across movements.
type CardOperation struct {
	ID               string          `db:"id"`
	Company          string          `db:"company"`
	FabricID         string          `db:"fabric_id"`
	ProductID        string          `db:"product_id"`
	NetWeight        decimal.Decimal `db:"net_weight"`
	YarnSupplierID   string          `db:"yarn_supplier_id"`
	WeavingSupplierID string         `db:"weaving_supplier_id"`
	TintSupplierID   string          `db:"tint_supplier_id"`
	TintColorID      string          `db:"tint_color_id"`
	CardType         string          `db:"card_type"`
	StatusFlag       string          `db:"status_flag"`
	ExitNumber       *string         `db:"exit_number"`
	DocumentNumber   string          `db:"document_number"`
	Period           int             `db:"period"`
}

// Consumed reports whether a dispatch already took the card.
func (c *CardOperation) Consumed() bool {
	return c.StatusFlag == StatusClosed || c.ExitNumber != nil
}

// MetersCount computes the meters of fabric in a roll from its net weight,
// density (g/m2) and width (cm): round(net*1000 / (density*width*2/100), 2).
func MetersCount(netWeight, density, width decimal.Decimal) decimal.Decimal {
	denom := density.Mul(width).Mul(decimal.NewFromInt(2)).Div(decimal.NewFromInt(100))
	if denom.IsZero() {
		return decimal.Zero
	}
	return netWeight.Mul(decimal.NewFromInt(1000)).Div(denom).Round(2)
}
