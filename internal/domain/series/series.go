// Package series implements the persistent document number allocator.
//
// Numbers live as rows in the legacy Promec schema keyed by
// (company, document_code, service_number). Allocation happens inside the
// caller's transaction so an aborted unit of work never publishes a number.
package series

import (
	"context"
	"fmt"
	"strings"

	"mecsa/internal/core/apperror"
)

// Company is the MECSA company code present on all composite keys.
const Company = "001"

// Def identifies a named document series and its formatting rule.
type Def struct {
	DocumentCode  string
	ServiceNumber string
	Prefix        string
}

// Known document series.
var (
	// YarnPurchaseEntry numbers yarn purchase entries at storage 006.
	YarnPurchaseEntry = Def{DocumentCode: "P/I", ServiceNumber: "006"}

	// YarnWeavingDispatch numbers outbound yarn dispatch guides, prefixed T.
	YarnWeavingDispatch = Def{DocumentCode: "G/R", ServiceNumber: "006", Prefix: "T"}

	// Entry numbers paired inbound entries created at supplier storages.
	Entry = Def{DocumentCode: "P/I", ServiceNumber: "001"}

	// WeavingServiceEntry numbers fabric receipts at storage 007.
	WeavingServiceEntry = Def{DocumentCode: "P/I", ServiceNumber: "007"}

	// DyeingServiceDispatch numbers outbound fabric dispatch guides, prefixed T.
	DyeingServiceDispatch = Def{DocumentCode: "G/R", ServiceNumber: "007", Prefix: "T"}
)

// Counter sequence names (DB-native sequences, gaps tolerated).
const (
	ProductIDSeq  = "product_id_sq"
	ColorIDSeq    = "color_id_sq"
	MecsaBatchSeq = "mecsa_batch_sq"
	BarcodeSeq    = "barcode_sq"
	CardIDSeq     = "card_id_sq"
)

// Repository persists series counters.
type Repository interface {
	// NextNumber returns the current counter value for the series row and
	// increments it in place, within the enclosing transaction. Returns
	// a SeriesNotFound error when the row does not exist.
	NextNumber(ctx context.Context, company, documentCode, serviceNumber string) (int64, error)

	// NextVal advances a DB-native sequence and returns the new value.
	NextVal(ctx context.Context, sequence string) (int64, error)
}

// Service allocates and formats document numbers.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// NextNumber allocates the next raw counter value for a series.
func (s *Service) NextNumber(ctx context.Context, def Def) (int64, error) {
	return s.repo.NextNumber(ctx, Company, def.DocumentCode, def.ServiceNumber)
}

// NextDocumentNumber allocates and formats the next document number for a
// series: zero-padded service number (3) plus zero-padded counter (7), with
// the series prefix if any.
func (s *Service) NextDocumentNumber(ctx context.Context, def Def) (string, error) {
	n, err := s.NextNumber(ctx, def)
	if err != nil {
		return "", err
	}
	return FormatDocumentNumber(def, n), nil
}

// NextVal advances a named DB sequence.
func (s *Service) NextVal(ctx context.Context, sequence string) (int64, error) {
	return s.repo.NextVal(ctx, sequence)
}

// FormatDocumentNumber renders a document number for a series and counter.
func FormatDocumentNumber(def Def, n int64) string {
	return def.Prefix + zfill(def.ServiceNumber, 3) + fmt.Sprintf("%07d", n)
}

// NotFound builds the error for a missing series row.
func NotFound(documentCode, serviceNumber string) error {
	return apperror.NewNotFound("series", documentCode+"/"+serviceNumber)
}

func zfill(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}

