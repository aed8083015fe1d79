package handlers

import (
	"github.com/gin-gonic/gin"

	"mecsa/internal/domain/catalogs/supplier"
	"mecsa/internal/infrastructure/http/v1/dto"
)

// SupplierHandler serves the supplier catalog, filtered by service.
type SupplierHandler struct {
	*BaseHandler
	service *supplier.CatalogService
}

func NewSupplierHandler(base *BaseHandler, service *supplier.CatalogService) *SupplierHandler {
	return &SupplierHandler{BaseHandler: base, service: service}
}

// ListByService returns the suppliers offering one service code.
func (h *SupplierHandler) ListByService(c *gin.Context) {
	suppliers, err := h.service.ListByService(c.Request.Context(), c.Param("service_code"))
	if err != nil {
		h.Error(c, err)
		return
	}
	items := make([]dto.SupplierResponse, 0, len(suppliers))
	for _, s := range suppliers {
		items = append(items, dto.FromSupplier(s))
	}
	h.OK(c, items)
}

// Get returns one supplier by code.
func (h *SupplierHandler) Get(c *gin.Context) {
	s, err := h.service.Get(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromSupplier(*s))
}
