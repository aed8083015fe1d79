package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/google/uuid"

	"mecsa/internal/core/apperror"
	"mecsa/internal/domain/audit"
	"mecsa/internal/infrastructure/http/v1/dto"
)

// AuditHandler serves the read side of the audit pipeline.
type AuditHandler struct {
	*BaseHandler
	service *audit.Service
}

func NewAuditHandler(base *BaseHandler, service *audit.Service) *AuditHandler {
	return &AuditHandler{BaseHandler: base, service: service}
}

// ListActions pages the request-level audit log.
func (h *AuditHandler) ListActions(c *gin.Context) {
	var q dto.AuditListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 || q.PageSize > 200 {
		q.PageSize = 50
	}

	rows, total, err := h.service.ListActions(c.Request.Context(), audit.ActionFilter{
		Username: q.Username,
		Endpoint: q.Endpoint,
		From:     q.From,
		To:       q.To,
		Limit:    q.PageSize,
		Offset:   (q.Page - 1) * q.PageSize,
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.ActionLogResponse, 0, len(rows))
	for _, row := range rows {
		items = append(items, dto.FromActionLog(row))
	}
	h.OK(c, dto.PageResponse{Items: items, Total: total, Page: q.Page, PageSize: q.PageSize})
}

// ListData returns the entity snapshots of one action.
func (h *AuditHandler) ListData(c *gin.Context) {
	actionID, err := uuid.Parse(c.Param("action_id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid action id"))
		return
	}

	rows, err := h.service.ListDataByAction(c.Request.Context(), actionID)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.DataLogResponse, 0, len(rows))
	for _, row := range rows {
		items = append(items, dto.FromDataLog(row))
	}
	h.OK(c, items)
}
