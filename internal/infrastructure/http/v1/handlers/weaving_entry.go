package handlers

import (
	"github.com/gin-gonic/gin"

	"mecsa/internal/domain/documents/weaving_service_entry"
	"mecsa/internal/infrastructure/http/v1/dto"
)

// WeavingEntryHandler serves the fabric receipt from weaving suppliers.
type WeavingEntryHandler struct {
	*BaseHandler
	service *weaving_service_entry.Service
}

func NewWeavingEntryHandler(base *BaseHandler, service *weaving_service_entry.Service) *WeavingEntryHandler {
	return &WeavingEntryHandler{BaseHandler: base, service: service}
}

func (h *WeavingEntryHandler) List(c *gin.Context) {
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

func (h *WeavingEntryHandler) Get(c *gin.Context) {
	entry, err := h.service.Read(c.Request.Context(), c.Param("number"), h.PeriodQuery(c))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromWeavingEntry(entry))
}

func (h *WeavingEntryHandler) Create(c *gin.Context) {
	var req dto.CreateWeavingEntryRequest
	if !h.BindJSON(c, &req) {
		return
	}
	if req.Period == 0 {
		req.Period = h.PeriodQuery(c)
	}
	entry, err := h.service.Create(c.Request.Context(), req.ToForm())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromWeavingEntry(entry))
}

func (h *WeavingEntryHandler) Update(c *gin.Context) {
	var req dto.UpdateWeavingEntryRequest
	if !h.BindJSON(c, &req) {
		return
	}
	entry, err := h.service.Update(c.Request.Context(), c.Param("number"), h.PeriodQuery(c), req.ToForm())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromWeavingEntry(entry))
}

func (h *WeavingEntryHandler) Annul(c *gin.Context) {
	if err := h.service.Annul(c.Request.Context(), c.Param("number"), h.PeriodQuery(c)); err != nil {
		h.Error(c, err)
		return
	}
	h.Message(c, "movement annulled")
}

func (h *WeavingEntryHandler) IsUpdatable(c *gin.Context) {
	answer, err := h.service.IsUpdatable(c.Request.Context(), c.Param("number"), h.PeriodQuery(c))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, answer)
}
