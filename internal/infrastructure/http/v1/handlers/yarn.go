package handlers

import (
	"github.com/gin-gonic/gin"

	"mecsa/internal/domain/catalogs/yarn"
	"mecsa/internal/infrastructure/http/v1/dto"
)

// YarnHandler serves the yarn catalog with recipes.
type YarnHandler struct {
	*BaseHandler
	service *yarn.Service
}

func NewYarnHandler(base *BaseHandler, service *yarn.Service) *YarnHandler {
	return &YarnHandler{BaseHandler: base, service: service}
}

func (h *YarnHandler) List(c *gin.Context) {
	yarns, err := h.service.List(c.Request.Context(), h.BoolQuery(c, "includeInactive"))
	if err != nil {
		h.Error(c, err)
		return
	}
	items := make([]dto.YarnResponse, 0, len(yarns))
	for i := range yarns {
		items = append(items, dto.FromYarn(&yarns[i]))
	}
	h.OK(c, items)
}

func (h *YarnHandler) Get(c *gin.Context) {
	y, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromYarn(y))
}

func (h *YarnHandler) Create(c *gin.Context) {
	var req dto.CreateYarnRequest
	if !h.BindJSON(c, &req) {
		return
	}
	y, err := h.service.Create(c.Request.Context(), req.ToYarnCreateForm())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromYarn(y))
}

func (h *YarnHandler) Update(c *gin.Context) {
	var req dto.UpdateYarnRequest
	if !h.BindJSON(c, &req) {
		return
	}
	y, err := h.service.Update(c.Request.Context(), c.Param("id"), req.ToYarnUpdateForm())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromYarn(y))
}
