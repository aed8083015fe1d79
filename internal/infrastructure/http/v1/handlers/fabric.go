package handlers

import (
	"github.com/gin-gonic/gin"

	"mecsa/internal/domain/catalogs/fabric"
	"mecsa/internal/infrastructure/http/v1/dto"
)

// FabricHandler serves the fabric catalog with recipes.
type FabricHandler struct {
	*BaseHandler
	service *fabric.Service
}

func NewFabricHandler(base *BaseHandler, service *fabric.Service) *FabricHandler {
	return &FabricHandler{BaseHandler: base, service: service}
}

func (h *FabricHandler) List(c *gin.Context) {
	fabrics, err := h.service.List(c.Request.Context(), h.BoolQuery(c, "includeInactive"))
	if err != nil {
		h.Error(c, err)
		return
	}
	items := make([]dto.FabricResponse, 0, len(fabrics))
	for i := range fabrics {
		items = append(items, dto.FromFabric(&fabrics[i]))
	}
	h.OK(c, items)
}

func (h *FabricHandler) Get(c *gin.Context) {
	f, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromFabric(f))
}

func (h *FabricHandler) Create(c *gin.Context) {
	var req dto.CreateFabricRequest
	if !h.BindJSON(c, &req) {
		return
	}
	f, err := h.service.Create(c.Request.Context(), req.ToFabricCreateForm())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromFabric(f))
}

func (h *FabricHandler) Update(c *gin.Context) {
	var req dto.UpdateFabricRequest
	if !h.BindJSON(c, &req) {
		return
	}
	f, err := h.service.Update(c.Request.Context(), c.Param("id"), req.ToFabricUpdateForm())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromFabric(f))
}
