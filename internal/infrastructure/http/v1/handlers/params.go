package handlers

import (
	"github.com/gin-gonic/gin"

	"mecsa/internal/domain/params"
	"mecsa/internal/infrastructure/http/v1/dto"
)

// ParamsHandler serves the read-only parameter catalog.
type ParamsHandler struct {
	*BaseHandler
	service *params.Service
}

func NewParamsHandler(base *BaseHandler, service *params.Service) *ParamsHandler {
	return &ParamsHandler{BaseHandler: base, service: service}
}

// ListByCategory returns all parameters of one category.
func (h *ParamsHandler) ListByCategory(c *gin.Context) {
	categoryID, ok := h.IntParam(c, "category_id")
	if !ok {
		return
	}
	list, err := h.service.ListByCategory(c.Request.Context(), categoryID)
	if err != nil {
		h.Error(c, err)
		return
	}
	items := make([]dto.ParameterResponse, 0, len(list))
	for _, p := range list {
		items = append(items, dto.FromParameter(p))
	}
	h.OK(c, items)
}

// Get returns one parameter by id.
func (h *ParamsHandler) Get(c *gin.Context) {
	id, ok := h.IntParam(c, "id")
	if !ok {
		return
	}
	p, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromParameter(p))
}
