package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/SebasRodMag/clinica-api/internal/model"
	"github.com/SebasRodMag/clinica-api/internal/repository"
	apperrors "github.com/SebasRodMag/clinica-api/pkg/errors"
)

const settingsCacheKey = "clinic_settings"

// Provider is the configuration collaborator the scheduling core reads.
// Load returns fully validated settings or a configuration error; it never
// falls back to defaults when a required setting is missing or malformed.
type Provider interface {
	Load(ctx context.Context) (*model.ClinicSettings, error)
}

type Service struct {
	repo  repository.SettingRepository
	cache *cache.Cache
}

func NewService(repo repository.SettingRepository, cacheTTL time.Duration) *Service {
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	return &Service{
		repo:  repo,
		cache: cache.New(cacheTTL, 2*cacheTTL),
	}
}

// Load reads and validates the schedule settings, serving a cached copy
// within the TTL. Staleness up to the TTL is acceptable per the refresh
// policy; a missing or malformed required setting is not.
func (s *Service) Load(ctx context.Context) (*model.ClinicSettings, error) {
	if cached, ok := s.cache.Get(settingsCacheKey); ok {
		return cached.(*model.ClinicSettings), nil
	}

	values, err := s.repo.GetAll(ctx,
		model.SettingBusinessHours,
		model.SettingNonWorkingDays,
		model.SettingSlotDurationMin,
	)
	if err != nil {
		return nil, apperrors.Configuration("failed to read schedule settings", err)
	}

	settings, err := parseSettings(values)
	if err != nil {
		return nil, err
	}

	s.cache.SetDefault(settingsCacheKey, settings)
	return settings, nil
}

func parseSettings(values map[string]string) (*model.ClinicSettings, error) {
	rawHours, ok := values[model.SettingBusinessHours]
	if !ok {
		return nil, apperrors.Configuration("business hours are not configured", nil)
	}
	var hours model.BusinessHoursPayload
	if err := json.Unmarshal([]byte(rawHours), &hours); err != nil {
		return nil, apperrors.Configuration("business hours setting is malformed", err)
	}
	open, err := model.ParseTimeOfDay(hours.Open)
	if err != nil {
		return nil, apperrors.Configuration("business hours open time is not parseable", err)
	}
	closeAt, err := model.ParseTimeOfDay(hours.Close)
	if err != nil {
		return nil, apperrors.Configuration("business hours close time is not parseable", err)
	}
	if closeAt <= open {
		return nil, apperrors.Configuration("business hours close before they open", nil)
	}

	rawDuration, ok := values[model.SettingSlotDurationMin]
	if !ok {
		return nil, apperrors.Configuration("slot duration is not configured", nil)
	}
	minutes, err := strconv.Atoi(rawDuration)
	if err != nil {
		return nil, apperrors.Configuration("slot duration is not an integer", err)
	}
	if minutes <= 0 {
		return nil, apperrors.Configuration("slot duration must be positive", nil)
	}

	nonWorking := make(map[string]struct{})
	if raw, ok := values[model.SettingNonWorkingDays]; ok && raw != "" {
		var dates []string
		if err := json.Unmarshal([]byte(raw), &dates); err != nil {
			return nil, apperrors.Configuration("non-working days setting is malformed", err)
		}
		for _, d := range dates {
			if _, err := time.Parse("2006-01-02", d); err != nil {
				return nil, apperrors.Configuration(fmt.Sprintf("non-working day %q is not an ISO date", d), err)
			}
			nonWorking[d] = struct{}{}
		}
	}

	return &model.ClinicSettings{
		Hours:          model.BusinessHours{Open: open, Close: closeAt},
		SlotDuration:   time.Duration(minutes) * time.Minute,
		NonWorkingDays: nonWorking,
	}, nil
}

// Read returns the settings in their wire shape for the configuration
// endpoint.
func (s *Service) Read(ctx context.Context) (*model.ScheduleSettingsResponse, error) {
	settings, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}

	days := make([]string, 0, len(settings.NonWorkingDays))
	for d := range settings.NonWorkingDays {
		days = append(days, d)
	}
	sort.Strings(days)

	return &model.ScheduleSettingsResponse{
		BusinessHours: model.BusinessHoursPayload{
			Open:  settings.Hours.Open.String(),
			Close: settings.Hours.Close.String(),
		},
		NonWorkingDays:      days,
		SlotDurationMinutes: int(settings.SlotDuration / time.Minute),
	}, nil
}

// Update writes the provided sections after validating their shape, then
// drops the cached copy. Only administrators reach this path; the handler
// enforces the role.
func (s *Service) Update(ctx context.Context, actor model.Actor, req *model.UpdateScheduleSettingsRequest) error {
	if req.BusinessHours != nil {
		open, err := model.ParseTimeOfDay(req.BusinessHours.Open)
		if err != nil {
			return apperrors.BadRequest("open time must be HH:MM", err)
		}
		closeAt, err := model.ParseTimeOfDay(req.BusinessHours.Close)
		if err != nil {
			return apperrors.BadRequest("close time must be HH:MM", err)
		}
		if closeAt <= open {
			return apperrors.BadRequest("close time must be after open time", nil)
		}
		if err := s.upsert(ctx, actor, model.SettingBusinessHours, mustJSON(req.BusinessHours)); err != nil {
			return err
		}
	}

	if req.NonWorkingDays != nil {
		for _, d := range *req.NonWorkingDays {
			if _, err := time.Parse("2006-01-02", d); err != nil {
				return apperrors.BadRequest(fmt.Sprintf("non-working day %q must be an ISO date", d), err)
			}
		}
		if err := s.upsert(ctx, actor, model.SettingNonWorkingDays, mustJSON(*req.NonWorkingDays)); err != nil {
			return err
		}
	}

	if req.SlotDurationMinutes != nil {
		if *req.SlotDurationMinutes <= 0 {
			return apperrors.BadRequest("slot duration must be positive", nil)
		}
		if err := s.upsert(ctx, actor, model.SettingSlotDurationMin, strconv.Itoa(*req.SlotDurationMinutes)); err != nil {
			return err
		}
	}

	s.cache.Delete(settingsCacheKey)
	return nil
}

func (s *Service) upsert(ctx context.Context, actor model.Actor, key, value string) error {
	setting := &model.Setting{
		ID:        uuid.New(),
		Key:       key,
		Value:     value,
		UpdatedBy: actor.ID,
	}
	if err := s.repo.Upsert(ctx, setting); err != nil {
		return fmt.Errorf("failed to store setting %s: %w", key, err)
	}
	return nil
}

func mustJSON(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}
