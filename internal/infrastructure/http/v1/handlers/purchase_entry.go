package handlers

import (
	"github.com/gin-gonic/gin"

	"mecsa/internal/domain/documents/yarn_purchase_entry"
	"mecsa/internal/infrastructure/http/v1/dto"
)

// PurchaseEntryHandler serves the yarn purchase entry document.
type PurchaseEntryHandler struct {
	*BaseHandler
	service *yarn_purchase_entry.Service
}

func NewPurchaseEntryHandler(base *BaseHandler, service *yarn_purchase_entry.Service) *PurchaseEntryHandler {
	return &PurchaseEntryHandler{BaseHandler: base, service: service}
}

func (h *PurchaseEntryHandler) List(c *gin.Context) {
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

func (h *PurchaseEntryHandler) Get(c *gin.Context) {
	entry, err := h.service.Read(c.Request.Context(), c.Param("number"), h.PeriodQuery(c))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromPurchaseEntry(entry))
}

func (h *PurchaseEntryHandler) Create(c *gin.Context) {
	var req dto.CreatePurchaseEntryRequest
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
	h.Created(c, dto.FromPurchaseEntry(entry))
}

func (h *PurchaseEntryHandler) Update(c *gin.Context) {
	var req dto.UpdatePurchaseEntryRequest
	if !h.BindJSON(c, &req) {
		return
	}
	entry, err := h.service.Update(c.Request.Context(), c.Param("number"), h.PeriodQuery(c), req.ToForm())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromPurchaseEntry(entry))
}

func (h *PurchaseEntryHandler) Annul(c *gin.Context) {
	if err := h.service.Annul(c.Request.Context(), c.Param("number"), h.PeriodQuery(c)); err != nil {
		h.Error(c, err)
		return
	}
	h.Message(c, "movement annulled")
}

func (h *PurchaseEntryHandler) IsUpdatable(c *gin.Context) {
	answer, err := h.service.IsUpdatable(c.Request.Context(), c.Param("number"), h.PeriodQuery(c))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, answer)
}
