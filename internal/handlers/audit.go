package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kosarica/catalog-service/internal/audit"
)

// ListAuditRequest represents query parameters for listing audit records
type ListAuditRequest struct {
	VendorCode string `form:"vendorCode" json:"vendorCode"`
	Limit      int    `form:"limit" json:"limit" binding:"min=0,max=500" jsonschema:"minimum=0,maximum=500"`
}

// ListAuditResponse represents the response for listing audit records
type ListAuditResponse struct {
	Records []audit.Record `json:"records" jsonschema:"required"`
	Total   int            `json:"total" jsonschema:"required"`
}

// ListAudit returns audit records newest first
// GET /internal/audit
func (h *Handler) ListAudit(c *gin.Context) {
	var req ListAuditRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if req.Limit == 0 {
		req.Limit = 50
	}

	records, err := h.audit.List(c.Request.Context(), req.VendorCode, req.Limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ListAuditResponse{Records: records, Total: len(records)})
}

// GetAudit returns the audit record of one import
// GET /internal/audit/:importId
func (h *Handler) GetAudit(c *gin.Context) {
	rec, err := h.audit.Get(c.Request.Context(), c.Param("importId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}
