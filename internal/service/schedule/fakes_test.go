package schedule_test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/SebasRodMag/clinica-api/internal/model"
	redisclient "github.com/SebasRodMag/clinica-api/internal/redis"
	"github.com/SebasRodMag/clinica-api/internal/repository"
	"github.com/SebasRodMag/clinica-api/internal/service/audit"
	"github.com/SebasRodMag/clinica-api/internal/service/schedule"
	"github.com/SebasRodMag/clinica-api/pkg/metrics"
)

// Prometheus collectors register globally, so the whole test package shares
// one instance.
var testMetrics = metrics.NewMetrics("test", "schedule")

type fakeAppointmentRepo struct {
	mu           sync.Mutex
	appointments map[uuid.UUID]*model.Appointment
	createErr    error
	failCAS      bool
}

func newFakeAppointmentRepo() *fakeAppointmentRepo {
	return &fakeAppointmentRepo{appointments: make(map[uuid.UUID]*model.Appointment)}
}

func (r *fakeAppointmentRepo) Create(_ context.Context, apt *model.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	for _, existing := range r.appointments {
		if existing.SpecialistID == apt.SpecialistID &&
			existing.ScheduledAt.Equal(apt.ScheduledAt) &&
			existing.Status == model.AppointmentStatusPending {
			return repository.ErrSlotTaken
		}
	}
	cp := *apt
	r.appointments[apt.ID] = &cp
	return nil
}

func (r *fakeAppointmentRepo) Get(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	apt, ok := r.appointments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *apt
	return &cp, nil
}

func (r *fakeAppointmentRepo) Update(_ context.Context, apt *model.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.appointments[apt.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *apt
	r.appointments[apt.ID] = &cp
	return nil
}

func (r *fakeAppointmentRepo) List(_ context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Appointment
	for _, apt := range r.appointments {
		if filters.SpecialistID != uuid.Nil && apt.SpecialistID != filters.SpecialistID {
			continue
		}
		if filters.PatientID != uuid.Nil && apt.PatientID != filters.PatientID {
			continue
		}
		if filters.Status != "" && apt.Status != filters.Status {
			continue
		}
		cp := *apt
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeAppointmentRepo) PendingTimesForDay(_ context.Context, specialistID uuid.UUID, date time.Time) ([]model.TimeOfDay, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	day := date.Format("2006-01-02")
	var out []model.TimeOfDay
	for _, apt := range r.appointments {
		if apt.SpecialistID == specialistID &&
			apt.Status == model.AppointmentStatusPending &&
			apt.ScheduledAt.Format("2006-01-02") == day {
			out = append(out, model.TimeOfDayOf(apt.ScheduledAt))
		}
	}
	return out, nil
}

func (r *fakeAppointmentRepo) HasPendingAt(_ context.Context, specialistID uuid.UUID, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, apt := range r.appointments {
		if apt.SpecialistID == specialistID &&
			apt.Status == model.AppointmentStatusPending &&
			apt.ScheduledAt.Equal(at) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeAppointmentRepo) CountByPatient(_ context.Context, patientID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, apt := range r.appointments {
		if apt.PatientID == patientID {
			count++
		}
	}
	return count, nil
}

func (r *fakeAppointmentRepo) UpdateStatusFrom(_ context.Context, id uuid.UUID, from, to model.AppointmentStatus, cancelReason *string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCAS {
		return false, nil
	}
	apt, ok := r.appointments[id]
	if !ok || apt.Status != from {
		return false, nil
	}
	apt.Status = to
	if cancelReason != nil {
		apt.CancelReason = cancelReason
	}
	return true, nil
}

func (r *fakeAppointmentRepo) SetRoom(_ context.Context, id uuid.UUID, room string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	apt, ok := r.appointments[id]
	if !ok {
		return repository.ErrNotFound
	}
	if apt.Room == nil {
		apt.Room = &room
	}
	return nil
}

type fakeSpecialistRepo struct {
	specialists map[uuid.UUID]*model.Specialist
}

func (r *fakeSpecialistRepo) Get(_ context.Context, id uuid.UUID) (*model.Specialist, error) {
	s, ok := r.specialists[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return s, nil
}

func (r *fakeSpecialistRepo) GetByUser(_ context.Context, userID uuid.UUID) (*model.Specialist, error) {
	for _, s := range r.specialists {
		if s.UserID == userID {
			return s, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeSpecialistRepo) List(_ context.Context) ([]*model.Specialist, error) {
	var out []*model.Specialist
	for _, s := range r.specialists {
		out = append(out, s)
	}
	return out, nil
}

type fakePatientRepo struct {
	patients map[uuid.UUID]*model.Patient
}

func (r *fakePatientRepo) Get(_ context.Context, id uuid.UUID) (*model.Patient, error) {
	p, ok := r.patients[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return p, nil
}

func (r *fakePatientRepo) GetByUser(_ context.Context, userID uuid.UUID) (*model.Patient, error) {
	for _, p := range r.patients {
		if p.UserID == userID {
			return p, nil
		}
	}
	return nil, repository.ErrNotFound
}

type fakeUserRepo struct {
	users map[uuid.UUID]*model.User
}

func (r *fakeUserRepo) Get(_ context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

type fakeSettingsProvider struct {
	settings *model.ClinicSettings
	err      error
}

func (p *fakeSettingsProvider) Load(context.Context) (*model.ClinicSettings, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.settings, nil
}

type fakeSlotLocker struct {
	unavailable bool
	calls       int
}

func (l *fakeSlotLocker) WithSlotLock(ctx context.Context, _ uuid.UUID, _ time.Time, fn func(ctx context.Context) error) error {
	l.calls++
	if l.unavailable {
		return redisclient.ErrLockNotAcquired
	}
	return fn(ctx)
}

type fakeNotifier struct {
	notices  []*model.CancellationNotice
	failFor  map[uuid.UUID]error
	totalErr error
}

func (n *fakeNotifier) NotifyCancellation(_ context.Context, notice *model.CancellationNotice) error {
	if n.totalErr != nil {
		return n.totalErr
	}
	if err, ok := n.failFor[notice.Recipient.AccountID]; ok {
		return err
	}
	n.notices = append(n.notices, notice)
	return nil
}

type fakeAuditRepo struct {
	entries []*model.AuditLog
}

func (r *fakeAuditRepo) Create(_ context.Context, entry *model.AuditLog) error {
	r.entries = append(r.entries, entry)
	return nil
}

func (r *fakeAuditRepo) List(context.Context, map[string]interface{}) ([]*model.AuditLog, error) {
	return r.entries, nil
}

func (r *fakeAuditRepo) Cleanup(context.Context, time.Time) (int64, error) {
	return 0, nil
}

// fixture bundles a service wired to in-memory collaborators with one
// specialist and one patient, each linked to a distinct account.
type fixture struct {
	svc          *schedule.Service
	repo         *fakeAppointmentRepo
	specialists  *fakeSpecialistRepo
	patients     *fakePatientRepo
	users        *fakeUserRepo
	settings     *fakeSettingsProvider
	locker       *fakeSlotLocker
	notifier     *fakeNotifier
	auditRepo    *fakeAuditRepo
	specialistID uuid.UUID
	patientID    uuid.UUID
}

func defaultSettings() *model.ClinicSettings {
	open, _ := model.ParseTimeOfDay("09:00")
	closeAt, _ := model.ParseTimeOfDay("14:00")
	return &model.ClinicSettings{
		Hours:          model.BusinessHours{Open: open, Close: closeAt},
		SlotDuration:   30 * time.Minute,
		NonWorkingDays: map[string]struct{}{},
	}
}

func newFixture() *fixture {
	specialistUser := &model.User{
		ID:        uuid.New(),
		Email:     "specialist@clinica.local",
		FirstName: "Sara",
		LastName:  "Vega",
		Role:      model.RoleSpecialist,
	}
	patientUser := &model.User{
		ID:        uuid.New(),
		Email:     "patient@clinica.local",
		FirstName: "Pablo",
		LastName:  "Marin",
		Role:      model.RolePatient,
	}

	specialist := &model.Specialist{ID: uuid.New(), UserID: specialistUser.ID}
	patient := &model.Patient{ID: uuid.New(), UserID: patientUser.ID}

	f := &fixture{
		repo: newFakeAppointmentRepo(),
		specialists: &fakeSpecialistRepo{specialists: map[uuid.UUID]*model.Specialist{
			specialist.ID: specialist,
		}},
		patients: &fakePatientRepo{patients: map[uuid.UUID]*model.Patient{
			patient.ID: patient,
		}},
		users: &fakeUserRepo{users: map[uuid.UUID]*model.User{
			specialistUser.ID: specialistUser,
			patientUser.ID:    patientUser,
		}},
		settings:     &fakeSettingsProvider{settings: defaultSettings()},
		locker:       &fakeSlotLocker{},
		notifier:     &fakeNotifier{},
		auditRepo:    &fakeAuditRepo{},
		specialistID: specialist.ID,
		patientID:    patient.ID,
	}

	f.svc = schedule.NewService(
		f.repo,
		f.specialists,
		f.patients,
		f.users,
		f.settings,
		f.locker,
		f.notifier,
		audit.NewService(f.auditRepo),
		testMetrics,
	)
	return f
}

func (f *fixture) adminActor() model.Actor {
	return model.Actor{ID: uuid.New(), Role: model.RoleAdministrator}
}

func (f *fixture) patientActor() model.Actor {
	return model.Actor{ID: uuid.New(), Role: model.RolePatient, ProfileID: f.patientID}
}

func (f *fixture) specialistActor() model.Actor {
	return model.Actor{ID: uuid.New(), Role: model.RoleSpecialist, ProfileID: f.specialistID}
}

// seedAppointment stores an appointment directly, bypassing validation.
func (f *fixture) seedAppointment(status model.AppointmentStatus, scheduledAt time.Time) *model.Appointment {
	apt := &model.Appointment{
		ID:           uuid.New(),
		SpecialistID: f.specialistID,
		PatientID:    f.patientID,
		ScheduledAt:  scheduledAt,
		Modality:     model.ModalityInPerson,
		Status:       status,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	f.repo.appointments[apt.ID] = apt
	return apt
}

// nextWeekday returns the next occurrence of weekday strictly after today,
// at the given time of day.
func nextWeekday(weekday time.Weekday, hour, minute int) time.Time {
	t := time.Now().AddDate(0, 0, 1)
	for t.Weekday() != weekday {
		t = t.AddDate(0, 0, 1)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), hour, minute, 0, 0, time.Local)
}
