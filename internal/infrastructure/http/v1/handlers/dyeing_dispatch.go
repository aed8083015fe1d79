package handlers

import (
	"github.com/gin-gonic/gin"

	"mecsa/internal/domain/documents/dyeing_service_dispatch"
	"mecsa/internal/infrastructure/http/v1/dto"
)

// DyeingDispatchHandler serves the fabric dispatch to dyeing suppliers.
type DyeingDispatchHandler struct {
	*BaseHandler
	service *dyeing_service_dispatch.Service
}

func NewDyeingDispatchHandler(base *BaseHandler, service *dyeing_service_dispatch.Service) *DyeingDispatchHandler {
	return &DyeingDispatchHandler{BaseHandler: base, service: service}
}

func (h *DyeingDispatchHandler) List(c *gin.Context) {
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

func (h *DyeingDispatchHandler) Get(c *gin.Context) {
	d, err := h.service.Read(c.Request.Context(), c.Param("number"), h.PeriodQuery(c))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromDyeingDispatch(d))
}

func (h *DyeingDispatchHandler) Create(c *gin.Context) {
	var req dto.CreateDyeingDispatchRequest
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
	h.Created(c, dto.FromDyeingDispatch(d))
}

func (h *DyeingDispatchHandler) Update(c *gin.Context) {
	var req dto.UpdateDyeingDispatchRequest
	if !h.BindJSON(c, &req) {
		return
	}
	d, err := h.service.Update(c.Request.Context(), c.Param("number"), h.PeriodQuery(c),
		dyeing_service_dispatch.UpdateForm{CardIDs: req.CardIDs})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromDyeingDispatch(d))
}

func (h *DyeingDispatchHandler) Annul(c *gin.Context) {
	if err := h.service.Annul(c.Request.Context(), c.Param("number"), h.PeriodQuery(c)); err != nil {
		h.Error(c, err)
		return
	}
	h.Message(c, "movement annulled")
}

func (h *DyeingDispatchHandler) IsUpdatable(c *gin.Context) {
	answer, err := h.service.IsUpdatable(c.Request.Context(), c.Param("number"), h.PeriodQuery(c))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, answer)
}
