package appointment

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/SebasRodMag/clinica-api/internal/handler"
	"github.com/SebasRodMag/clinica-api/internal/middleware"
	"github.com/SebasRodMag/clinica-api/internal/model"
	"github.com/SebasRodMag/clinica-api/internal/service/schedule"
	apperrors "github.com/SebasRodMag/clinica-api/pkg/errors"
)

type Handler struct {
	service *schedule.Service
}

func NewHandler(service *schedule.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	appointments := r.Group("/appointments")
	{
		appointments.GET("/slots", h.ListAvailableSlots)
		appointments.POST("", h.CreateAppointment)
		appointments.GET("", h.ListAppointments)
		appointments.GET("/:id", h.GetAppointment)
		appointments.PUT("/:id", h.UpdateAppointment)
		appointments.PATCH("/:id/status", h.ChangeStatus)
		appointments.POST("/:id/cancel", h.CancelAppointment)
	}
}

// ListAvailableSlots returns the free slot start times for a specialist on
// a given day, as HH:MM strings. When specialist_id is omitted and the
// caller is a specialist, their own agenda is queried.
func (h *Handler) ListAvailableSlots(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("not authenticated"))
		return
	}

	var specialistID uuid.UUID
	if raw := c.Query("specialist_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid specialist_id"))
			return
		}
		specialistID = id
	} else if actor.Role == model.RoleSpecialist {
		specialistID = actor.ProfileID
	} else {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("specialist_id is required"))
		return
	}

	date, err := time.ParseInLocation("2006-01-02", c.Query("date"), time.Local)
	if err != nil {
		c.Error(schedule.ErrInvalidDate)
		return
	}

	slots, err := h.service.ComputeAvailableSlots(c.Request.Context(), specialistID, date)
	if err != nil {
		c.Error(err)
		return
	}

	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.String())
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"slots": out}))
}

func (h *Handler) CreateAppointment(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("not authenticated"))
		return
	}

	var req model.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	scheduledAt, err := schedule.ParseCivilDatetime(req.ScheduledAt)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid scheduled_at, expected YYYY-MM-DDTHH:MM"))
		return
	}

	specialistID, patientID, err := resolveParticipants(actor, req.SpecialistID, req.PatientID)
	if err != nil {
		c.Error(err)
		return
	}

	summary, err := h.service.CreateAppointment(c.Request.Context(), actor, specialistID, patientID, scheduledAt, req.Modality, req.Comment)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(summary))
}

func (h *Handler) GetAppointment(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("not authenticated"))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid appointment id"))
		return
	}

	apt, err := h.service.GetAppointment(c.Request.Context(), actor, id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(apt))
}

func (h *Handler) ListAppointments(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("not authenticated"))
		return
	}

	filters, err := parseFilters(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	appointments, err := h.service.ListAppointments(c.Request.Context(), actor, filters)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"appointments": appointments}))
}

func (h *Handler) UpdateAppointment(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("not authenticated"))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid appointment id"))
		return
	}

	var req model.UpdateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	apt, err := h.service.UpdateAppointment(c.Request.Context(), actor, id, &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(apt))
}

func (h *Handler) ChangeStatus(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("not authenticated"))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid appointment id"))
		return
	}

	var req model.ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	change, err := h.service.ChangeStatus(c.Request.Context(), actor, id, req.Status)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(change))
}

func (h *Handler) CancelAppointment(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("not authenticated"))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid appointment id"))
		return
	}

	// The body is optional: cancelling without a reason is allowed.
	var req model.CancelAppointmentRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
			return
		}
	}

	result, err := h.service.Cancel(c.Request.Context(), actor, id, req.Reason)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(result))
}

// resolveParticipants fills in the participant a patient or specialist may
// not choose: patients always book for themselves, specialists for their
// own agenda. Administrators must name both sides explicitly.
func resolveParticipants(actor model.Actor, specialistID, patientID string) (uuid.UUID, uuid.UUID, error) {
	var sid, pid uuid.UUID
	var err error

	switch actor.Role {
	case model.RolePatient:
		pid = actor.ProfileID
		if sid, err = uuid.Parse(specialistID); err != nil {
			return uuid.Nil, uuid.Nil, apperrors.BadRequest("specialist_id is required", err)
		}
	case model.RoleSpecialist:
		sid = actor.ProfileID
		if pid, err = uuid.Parse(patientID); err != nil {
			return uuid.Nil, uuid.Nil, apperrors.BadRequest("patient_id is required", err)
		}
	default:
		if sid, err = uuid.Parse(specialistID); err != nil {
			return uuid.Nil, uuid.Nil, apperrors.BadRequest("specialist_id is required", err)
		}
		if pid, err = uuid.Parse(patientID); err != nil {
			return uuid.Nil, uuid.Nil, apperrors.BadRequest("patient_id is required", err)
		}
	}
	return sid, pid, nil
}

func parseFilters(c *gin.Context) (*model.AppointmentFilters, error) {
	filters := &model.AppointmentFilters{}

	if v := c.Query("specialist_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return nil, err
		}
		filters.SpecialistID = id
	}
	if v := c.Query("patient_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return nil, err
		}
		filters.PatientID = id
	}
	if v := c.Query("status"); v != "" {
		filters.Status = model.AppointmentStatus(v)
	}
	if v := c.Query("from"); v != "" {
		t, err := time.ParseInLocation("2006-01-02", v, time.Local)
		if err != nil {
			return nil, err
		}
		filters.StartDate = t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.ParseInLocation("2006-01-02", v, time.Local)
		if err != nil {
			return nil, err
		}
		filters.EndDate = t
	}
	return filters, nil
}
