package appointment_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SebasRodMag/clinica-api/internal/handler/appointment"
	"github.com/SebasRodMag/clinica-api/internal/middleware"
	"github.com/SebasRodMag/clinica-api/internal/model"
	"github.com/SebasRodMag/clinica-api/internal/repository"
	"github.com/SebasRodMag/clinica-api/internal/service/schedule"
)

// stubAppointmentRepo serves the read paths the slots endpoint touches;
// everything else is unreachable from these tests.
type stubAppointmentRepo struct {
	pendingTimes  []model.TimeOfDay
	queriedIDs []uuid.UUID
}

func (r *stubAppointmentRepo) Create(context.Context, *model.Appointment) error { return nil }

func (r *stubAppointmentRepo) Get(context.Context, uuid.UUID) (*model.Appointment, error) {
	return nil, repository.ErrNotFound
}

func (r *stubAppointmentRepo) Update(context.Context, *model.Appointment) error { return nil }

func (r *stubAppointmentRepo) List(context.Context, *model.AppointmentFilters) ([]*model.Appointment, error) {
	return nil, nil
}

func (r *stubAppointmentRepo) PendingTimesForDay(_ context.Context, specialistID uuid.UUID, _ time.Time) ([]model.TimeOfDay, error) {
	r.queriedIDs = append(r.queriedIDs, specialistID)
	return r.pendingTimes, nil
}

func (r *stubAppointmentRepo) HasPendingAt(context.Context, uuid.UUID, time.Time) (bool, error) {
	return false, nil
}

func (r *stubAppointmentRepo) CountByPatient(context.Context, uuid.UUID) (int, error) {
	return 0, nil
}

func (r *stubAppointmentRepo) UpdateStatusFrom(context.Context, uuid.UUID, model.AppointmentStatus, model.AppointmentStatus, *string) (bool, error) {
	return false, nil
}

func (r *stubAppointmentRepo) SetRoom(context.Context, uuid.UUID, string) error { return nil }

type stubSettings struct{}

func (stubSettings) Load(context.Context) (*model.ClinicSettings, error) {
	open, _ := model.ParseTimeOfDay("09:00")
	closeAt, _ := model.ParseTimeOfDay("14:00")
	return &model.ClinicSettings{
		Hours:          model.BusinessHours{Open: open, Close: closeAt},
		SlotDuration:   30 * time.Minute,
		NonWorkingDays: map[string]struct{}{},
	}, nil
}

func newSlotsServer(repo *stubAppointmentRepo, actor model.Actor) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := schedule.NewService(repo, nil, nil, nil, stubSettings{}, nil, nil, nil, nil)
	h := appointment.NewHandler(svc)

	engine := gin.New()
	engine.Use(func(c *gin.Context) {
		c.Set(middleware.ContextActor, actor)
		c.Next()
	})
	engine.GET("/api/v1/appointments/slots", h.ListAvailableSlots)
	return engine
}

// A Monday far enough out that the settings fixture always covers it.
const slotsDate = "2026-09-07"

func TestListAvailableSlots_DefaultsToCallerForSpecialists(t *testing.T) {
	repo := &stubAppointmentRepo{}
	actor := model.Actor{ID: uuid.New(), Role: model.RoleSpecialist, ProfileID: uuid.New()}
	engine := newSlotsServer(repo, actor)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments/slots?date="+slotsDate, nil)
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Len(t, repo.queriedIDs, 1)
	assert.Equal(t, actor.ProfileID, repo.queriedIDs[0])

	var body struct {
		Status string `json:"status"`
		Data   struct {
			Slots []string `json:"slots"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "success", body.Status)
	require.Len(t, body.Data.Slots, 10)
	assert.Equal(t, "09:00", body.Data.Slots[0])
}

func TestListAvailableSlots_ExplicitSpecialistWins(t *testing.T) {
	repo := &stubAppointmentRepo{}
	actor := model.Actor{ID: uuid.New(), Role: model.RoleSpecialist, ProfileID: uuid.New()}
	engine := newSlotsServer(repo, actor)

	other := uuid.New()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments/slots?date="+slotsDate+"&specialist_id="+other.String(), nil)
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, repo.queriedIDs, 1)
	assert.Equal(t, other, repo.queriedIDs[0])
}

func TestListAvailableSlots_PatientMustNameSpecialist(t *testing.T) {
	repo := &stubAppointmentRepo{}
	actor := model.Actor{ID: uuid.New(), Role: model.RolePatient, ProfileID: uuid.New()}
	engine := newSlotsServer(repo, actor)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments/slots?date="+slotsDate, nil)
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, repo.queriedIDs)
}

func TestListAvailableSlots_AdminMustNameSpecialist(t *testing.T) {
	repo := &stubAppointmentRepo{}
	actor := model.Actor{ID: uuid.New(), Role: model.RoleAdministrator}
	engine := newSlotsServer(repo, actor)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments/slots?date="+slotsDate, nil)
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListAvailableSlots_MalformedSpecialistID(t *testing.T) {
	repo := &stubAppointmentRepo{}
	actor := model.Actor{ID: uuid.New(), Role: model.RoleSpecialist, ProfileID: uuid.New()}
	engine := newSlotsServer(repo, actor)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments/slots?date="+slotsDate+"&specialist_id=not-a-uuid", nil)
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
