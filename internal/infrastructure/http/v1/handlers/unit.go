package handlers

import (
	"github.com/gin-gonic/gin"

	"mecsa/internal/domain/catalogs/unit"
	"mecsa/internal/infrastructure/http/v1/dto"
)

// UnitHandler serves the read-only unit catalog.
type UnitHandler struct {
	*BaseHandler
	service *unit.Service
}

func NewUnitHandler(base *BaseHandler, service *unit.Service) *UnitHandler {
	return &UnitHandler{BaseHandler: base, service: service}
}

func (h *UnitHandler) List(c *gin.Context) {
	units, err := h.service.List(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	items := make([]dto.UnitResponse, 0, len(units))
	for _, u := range units {
		items = append(items, dto.FromUnit(u))
	}
	h.OK(c, items)
}

func (h *UnitHandler) Get(c *gin.Context) {
	u, err := h.service.Get(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromUnit(*u))
}
