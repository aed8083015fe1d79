package handlers

import (
	"github.com/gin-gonic/gin"

	"mecsa/internal/domain/documents/yarn_weaving_dispatch"
	"mecsa/internal/infrastructure/http/v1/dto"
)

// WeavingDispatchHandler serves the yarn dispatch to weaving suppliers.
type WeavingDispatchHandler struct {
	*BaseHandler
	service *yarn_weaving_dispatch.Service
}

func NewWeavingDispatchHandler(base *BaseHandler, service *yarn_weaving_dispatch.Service) *WeavingDispatchHandler {
	return &WeavingDispatchHandler{BaseHandler: base, service: service}
}

func (h *WeavingDispatchHandler) List(c *gin.Context) {
	var q dto.MovementListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	if q.Period == 0 {
		q.Period = h.PeriodQuery(c)
	}
	result, err := h.service.List(c.Request.Context(), q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromMovements(result))
}

func (h *WeavingDispatchHandler) Get(c *gin.Context) {
	d, err := h.service.Read(c.Request.Context(), c.Param("number"), h.PeriodQuery(c))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromWeavingDispatch(d))
}

func (h *WeavingDispatchHandler) Create(c *gin.Context) {
	var req dto.CreateWeavingDispatchRequest
	if !h.BindJSON(c, &req) {
		return
	}
	if req.Period == 0 {
		req.Period = h.PeriodQuery(c)
	}
	d, err := h.service.Create(c.Request.Context(), req.ToForm())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromWeavingDispatch(d))
}

func (h *WeavingDispatchHandler) Update(c *gin.Context) {
	var req dto.UpdateWeavingDispatchRequest
	if !h.BindJSON(c, &req) {
		return
	}
	d, err := h.service.Update(c.Request.Context(), c.Param("number"), h.PeriodQuery(c), req.ToForm())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromWeavingDispatch(d))
}

func (h *WeavingDispatchHandler) Annul(c *gin.Context) {
	if err := h.service.Annul(c.Request.Context(), c.Param("number"), h.PeriodQuery(c)); err != nil {
		h.Error(c, err)
		return
	}
	h.Message(c, "movement annulled")
}

func (h *WeavingDispatchHandler) IsUpdatable(c *gin.Context) {
	answer, err := h.service.IsUpdatable(c.Request.Context(), c.Param("number"), h.PeriodQuery(c))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, answer)
}
