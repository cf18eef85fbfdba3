package settings

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SebasRodMag/clinica-api/internal/handler"
	"github.com/SebasRodMag/clinica-api/internal/middleware"
	"github.com/SebasRodMag/clinica-api/internal/model"
	"github.com/SebasRodMag/clinica-api/internal/service/settings"
)

type Handler struct {
	service *settings.Service
}

func NewHandler(service *settings.Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the settings endpoints. Reads are open to any
// authenticated caller; writes go through the adminOnly gate.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, adminOnly gin.HandlerFunc) {
	group := r.Group("/settings")
	{
		group.GET("/schedule", h.GetScheduleSettings)
		group.PUT("/schedule", adminOnly, h.UpdateScheduleSettings)
	}
}

func (h *Handler) GetScheduleSettings(c *gin.Context) {
	resp, err := h.service.Read(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(resp))
}

func (h *Handler) UpdateScheduleSettings(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("not authenticated"))
		return
	}

	var req model.UpdateScheduleSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	if err := h.service.Update(c.Request.Context(), actor, &req); err != nil {
		c.Error(err)
		return
	}

	resp, err := h.service.Read(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(resp))
}
