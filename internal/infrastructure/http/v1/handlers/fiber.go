package handlers

import (
	"github.com/gin-gonic/gin"

	"mecsa/internal/domain/catalogs/fiber"
	"mecsa/internal/infrastructure/http/v1/dto"
)

// FiberHandler serves the fiber catalog.
type FiberHandler struct {
	*BaseHandler
	service *fiber.Service
}

func NewFiberHandler(base *BaseHandler, service *fiber.Service) *FiberHandler {
	return &FiberHandler{BaseHandler: base, service: service}
}

func (h *FiberHandler) List(c *gin.Context) {
	fibers, err := h.service.List(c.Request.Context(), h.BoolQuery(c, "includeInactive"))
	if err != nil {
		h.Error(c, err)
		return
	}
	items := make([]dto.FiberResponse, 0, len(fibers))
	for i := range fibers {
		items = append(items, dto.FromFiber(&fibers[i]))
	}
	h.OK(c, items)
}

func (h *FiberHandler) Get(c *gin.Context) {
	f, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromFiber(f))
}

func (h *FiberHandler) Create(c *gin.Context) {
	var req dto.CreateFiberRequest
	if !h.BindJSON(c, &req) {
		return
	}
	f, err := h.service.Create(c.Request.Context(), fiber.CreateForm{
		CategoryID:     req.CategoryID,
		DenominationID: req.DenominationID,
		ColorID:        req.ColorID,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromFiber(f))
}

func (h *FiberHandler) Update(c *gin.Context) {
	var req dto.UpdateFiberRequest
	if !h.BindJSON(c, &req) {
		return
	}
	f, err := h.service.Update(c.Request.Context(), c.Param("id"), fiber.UpdateForm{
		CategoryID:     req.CategoryID,
		DenominationID: req.DenominationID,
		ColorID:        req.ColorID,
		IsActive:       req.IsActive,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromFiber(f))
}
