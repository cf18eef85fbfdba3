package audit

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/SebasRodMag/clinica-api/internal/handler"
	"github.com/SebasRodMag/clinica-api/internal/service/audit"
)

type Handler struct {
	service *audit.Service
}

func NewHandler(service *audit.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/audit-logs", h.ListAuditLogs)
}

func (h *Handler) ListAuditLogs(c *gin.Context) {
	filters := make(map[string]interface{})
	if v := c.Query("entity_type"); v != "" {
		filters["entity_type"] = v
	}
	if v := c.Query("entity_id"); v != "" {
		filters["entity_id"] = v
	}
	if v := c.Query("action"); v != "" {
		filters["action"] = v
	}
	if v := c.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid limit"))
			return
		}
		filters["limit"] = limit
	}

	logs, err := h.service.List(c.Request.Context(), filters)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"audit_logs": logs}))
}
