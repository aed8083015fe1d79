package handlers

import (
	"github.com/gin-gonic/gin"

	"mecsa/internal/domain/catalogs/color"
	"mecsa/internal/infrastructure/http/v1/dto"
)

// ColorHandler serves the MECSA color catalog.
type ColorHandler struct {
	*BaseHandler
	service *color.Service
}

func NewColorHandler(base *BaseHandler, service *color.Service) *ColorHandler {
	return &ColorHandler{BaseHandler: base, service: service}
}

func (h *ColorHandler) List(c *gin.Context) {
	colors, err := h.service.List(c.Request.Context(), h.BoolQuery(c, "includeInactive"))
	if err != nil {
		h.Error(c, err)
		return
	}
	items := make([]dto.ColorResponse, 0, len(colors))
	for i := range colors {
		items = append(items, dto.FromColor(&colors[i]))
	}
	h.OK(c, items)
}

func (h *ColorHandler) Get(c *gin.Context) {
	id, ok := h.IntParam(c, "id")
	if !ok {
		return
	}
	col, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromColor(col))
}

func (h *ColorHandler) Create(c *gin.Context) {
	var req dto.CreateColorRequest
	if !h.BindJSON(c, &req) {
		return
	}
	col, err := h.service.Create(c.Request.Context(), color.CreateForm{
		Name:        req.Name,
		Sku:         req.Sku,
		Hexadecimal: req.Hexadecimal,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromColor(col))
}

func (h *ColorHandler) Update(c *gin.Context) {
	id, ok := h.IntParam(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateColorRequest
	if !h.BindJSON(c, &req) {
		return
	}
	col, err := h.service.Update(c.Request.Context(), id, color.UpdateForm{
		Name:        req.Name,
		Sku:         req.Sku,
		Hexadecimal: req.Hexadecimal,
		IsActive:    req.IsActive,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromColor(col))
}
