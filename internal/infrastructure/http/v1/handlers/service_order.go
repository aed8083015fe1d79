package handlers

import (
	"github.com/gin-gonic/gin"

	"mecsa/internal/core/apperror"
	"mecsa/internal/domain/documents/service_order"
	"mecsa/internal/infrastructure/http/v1/dto"
)

// ServiceOrderHandler serves weaving and dyeing service orders. The order
// type (TJ or TT) travels in the query string because the id sequence is
// shared between both kinds.
type ServiceOrderHandler struct {
	*BaseHandler
	service *service_order.Service
}

func NewServiceOrderHandler(base *BaseHandler, service *service_order.Service) *ServiceOrderHandler {
	return &ServiceOrderHandler{BaseHandler: base, service: service}
}

func (h *ServiceOrderHandler) orderType(c *gin.Context) (string, bool) {
	t := c.Query("type")
	switch t {
	case service_order.TypeWeaving, service_order.TypeDyeing:
		return t, true
	default:
		h.Error(c, apperror.NewValidation("type must be TJ or TT"))
		return "", false
	}
}

func (h *ServiceOrderHandler) List(c *gin.Context) {
	var q dto.OrderListQuery
	if !h.BindQuery(c, &q) {
		return
	}

	orders, total, err := h.service.List(c.Request.Context(), q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.OrderResponse, 0, len(orders))
	for i := range orders {
		items = append(items, dto.FromOrder(&orders[i], nil))
	}
	h.OK(c, dto.PageResponse{Items: items, Total: total, Page: q.Page, PageSize: q.PageSize})
}

func (h *ServiceOrderHandler) Get(c *gin.Context) {
	orderType, ok := h.orderType(c)
	if !ok {
		return
	}
	order, lines, err := h.service.Get(c.Request.Context(), c.Param("id"), orderType)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromOrder(order, lines))
}

func (h *ServiceOrderHandler) Create(c *gin.Context) {
	var req dto.CreateOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}

	order, err := h.service.Create(c.Request.Context(), req.ToForm())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromOrder(order, nil))
}

func (h *ServiceOrderHandler) Update(c *gin.Context) {
	orderType, ok := h.orderType(c)
	if !ok {
		return
	}
	var req dto.UpdateOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}

	order, err := h.service.Update(c.Request.Context(), c.Param("id"), orderType, req.ToForm())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromOrder(order, nil))
}

func (h *ServiceOrderHandler) Annul(c *gin.Context) {
	orderType, ok := h.orderType(c)
	if !ok {
		return
	}
	if err := h.service.Annul(c.Request.Context(), c.Param("id"), orderType); err != nil {
		h.Error(c, err)
		return
	}
	h.Message(c, "service order annulled")
}
