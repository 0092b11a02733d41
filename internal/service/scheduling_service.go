package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/receptionist/internal/calendar"
	"github.com/Freeeeeet/receptionist/internal/model"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// AppointmentStore локальное хранилище встреч
type AppointmentStore interface {
	Create(ctx context.Context, appointment *model.Appointment) error
}

// TeacherDirectory справочник учителей
type TeacherDirectory interface {
	GetByName(ctx context.Context, name string) (*model.Teacher, error)
}

// SchedulingConfig настройки координатора, передаются явно в конструктор
type SchedulingConfig struct {
	SharedCalendarID string
	DefaultDuration  time.Duration
	Location         *time.Location
	Search           SearchOptions
}

// SchedulingService координирует одну попытку записи: проверка, календарь, локальная запись.
// Записи в календарь и в базу не транзакционны между собой, порядок всегда календарь -> база.
type SchedulingService struct {
	checker  *AvailabilityChecker
	search   *SlotSearch
	provider calendar.Provider
	store    AppointmentStore
	teachers TeacherDirectory
	cfg      SchedulingConfig
	validate *validator.Validate
	now      func() time.Time
	logger   *zap.Logger
}

func NewSchedulingService(
	checker *AvailabilityChecker,
	search *SlotSearch,
	provider calendar.Provider,
	store AppointmentStore,
	teachers TeacherDirectory,
	cfg SchedulingConfig,
	logger *zap.Logger,
) *SchedulingService {
	if cfg.DefaultDuration <= 0 {
		cfg.DefaultDuration = 30 * time.Minute
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.SharedCalendarID == "" {
		cfg.SharedCalendarID = "primary"
	}

	return &SchedulingService{
		checker:  checker,
		search:   search,
		provider: provider,
		store:    store,
		teachers: teachers,
		cfg:      cfg,
		validate: validator.New(),
		now:      time.Now,
		logger:   logger,
	}
}

// WithClock подменяет источник текущего времени
func (s *SchedulingService) WithClock(now func() time.Time) *SchedulingService {
	s.now = now
	return s
}

// Schedule выполняет попытку записи. Повторов нет: любая ошибка внешней системы
// завершает попытку, решение о повторе принимает вызывающий.
func (s *SchedulingService) Schedule(ctx context.Context, req model.AppointmentRequest) model.SchedulingResult {
	log := s.logger.With(
		zap.String("teacher", req.TeacherName),
		zap.Time("start_time", req.StartTime),
		zap.String("call_id", req.CallID),
	)

	// Validating
	req, err := s.normalize(req)
	if err != nil {
		log.Info("Invalid appointment request", zap.Error(err))
		return model.Failed(model.ReasonInvalidRequest, err)
	}

	calendarID, err := s.resolveCalendar(ctx, req.TeacherName)
	if err != nil {
		if errors.Is(err, errUnknownTeacher) {
			log.Info("Unknown teacher requested", zap.Error(err))
			return model.Failed(model.ReasonInvalidRequest, err)
		}
		log.Error("Failed to resolve teacher calendar", zap.Error(err))
		return model.Failed(model.ReasonTeacherLookup, err)
	}

	slot := model.NewTimeSlot(req.StartTime, req.Duration)
	log = log.With(zap.String("calendar_id", calendarID))

	// CheckingAvailability
	free, err := s.checker.IsAvailable(ctx, calendarID, slot.Start, slot.End)
	if err != nil {
		log.Error("Availability check failed", zap.Error(err))
		return model.Failed(model.ReasonProviderError, err)
	}

	if !free {
		log.Info("Requested slot is busy, searching alternatives")
		return s.conflict(ctx, log, calendarID, req)
	}

	// WritingCalendar
	event, err := s.provider.InsertEvent(ctx, calendarID, s.buildEvent(req, slot))
	if err != nil {
		if errors.Is(err, calendar.ErrSlotTaken) {
			// Кто-то занял слот между проверкой и вставкой
			log.Warn("Calendar rejected insert as conflicting", zap.Error(err))
			return s.conflict(ctx, log, calendarID, req)
		}
		log.Error("Failed to create calendar event", zap.Error(err))
		return model.Failed(model.ReasonCalendarWriteError, err)
	}

	// WritingLocalStore
	appointment := &model.Appointment{
		ParentName:      req.ParentName,
		StudentName:     req.StudentName,
		TeacherName:     req.TeacherName,
		StartTime:       slot.Start,
		DurationMinutes: int(req.Duration / time.Minute),
		Purpose:         req.Purpose,
		ContactPhone:    req.ContactPhone,
		ContactEmail:    req.ContactEmail,
		Language:        req.Language,
		Status:          model.AppointmentStatusScheduled,
		EventID:         event.ID,
	}
	if req.CallID != "" {
		callID := req.CallID
		appointment.CallID = &callID
	}

	if err := s.store.Create(ctx, appointment); err != nil {
		log.Error("Calendar event created but appointment was not stored",
			zap.String("orphan_event_id", event.ID),
			zap.Error(err))
		res := model.Failed(model.ReasonLocalWriteError, fmt.Errorf("store appointment for event %s: %w", event.ID, err))
		res.EventID = event.ID
		return res
	}

	log.Info("Appointment scheduled",
		zap.String("appointment_id", appointment.ID),
		zap.String("event_id", event.ID))

	return model.Scheduled(appointment.ID, event.ID, slot)
}

// SearchingAlternatives
func (s *SchedulingService) conflict(ctx context.Context, log *zap.Logger, calendarID string, req model.AppointmentRequest) model.SchedulingResult {
	suggestions, err := s.search.SuggestAlternatives(ctx, calendarID, req.StartTime, req.Duration, s.cfg.Search)
	if err != nil {
		log.Error("Alternative search failed", zap.Error(err))
		return model.Failed(model.ReasonProviderError, err)
	}

	log.Info("Returning alternatives", zap.Int("count", len(suggestions)))
	return model.Conflict(suggestions)
}

func (s *SchedulingService) normalize(req model.AppointmentRequest) (model.AppointmentRequest, error) {
	req.ParentName = strings.TrimSpace(req.ParentName)
	req.StudentName = strings.TrimSpace(req.StudentName)
	req.TeacherName = strings.TrimSpace(req.TeacherName)
	req.ContactPhone = strings.TrimSpace(req.ContactPhone)
	req.ContactEmail = strings.TrimSpace(req.ContactEmail)
	req.Language = strings.ToLower(strings.TrimSpace(req.Language))

	if err := s.validate.Struct(req); err != nil {
		return req, fmt.Errorf("validate request: %w", err)
	}
	if req.StartTime.IsZero() {
		return req, fmt.Errorf("start time is required")
	}

	if req.Duration == 0 {
		req.Duration = s.cfg.DefaultDuration
	}
	if req.Language == "" {
		req.Language = "en"
	}

	req.StartTime = req.StartTime.In(s.cfg.Location)
	if !req.StartTime.After(s.now()) {
		return req, fmt.Errorf("start time %s is not in the future", req.StartTime.Format(time.RFC3339))
	}

	return req, nil
}

var errUnknownTeacher = errors.New("unknown teacher")

// resolveCalendar находит календарь учителя, без справочника используется общий
func (s *SchedulingService) resolveCalendar(ctx context.Context, teacherName string) (string, error) {
	if s.teachers == nil {
		return s.cfg.SharedCalendarID, nil
	}

	teacher, err := s.teachers.GetByName(ctx, teacherName)
	if err != nil {
		return "", fmt.Errorf("get teacher: %w", err)
	}
	if teacher == nil {
		return "", fmt.Errorf("%w: %s", errUnknownTeacher, teacherName)
	}

	if teacher.CalendarID != nil && *teacher.CalendarID != "" {
		return *teacher.CalendarID, nil
	}
	return s.cfg.SharedCalendarID, nil
}

// CheckAvailability проверяет окно в календаре учителя
func (s *SchedulingService) CheckAvailability(ctx context.Context, teacherName string, start time.Time, duration time.Duration) (bool, error) {
	if duration <= 0 {
		duration = s.cfg.DefaultDuration
	}
	calendarID, err := s.resolveCalendar(ctx, teacherName)
	if err != nil {
		return false, err
	}
	start = start.In(s.cfg.Location)
	return s.checker.IsAvailable(ctx, calendarID, start, start.Add(duration))
}

// SuggestAlternatives ищет свободные слоты в календаре учителя
func (s *SchedulingService) SuggestAlternatives(ctx context.Context, teacherName string, desired time.Time, duration time.Duration, opts SearchOptions) ([]model.TimeSlot, error) {
	if duration <= 0 {
		duration = s.cfg.DefaultDuration
	}
	calendarID, err := s.resolveCalendar(ctx, teacherName)
	if err != nil {
		return nil, err
	}
	return s.search.SuggestAlternatives(ctx, calendarID, desired, duration, opts)
}

// TeacherSchedule возвращает события учителя за календарный день
func (s *SchedulingService) TeacherSchedule(ctx context.Context, teacherName string, day time.Time) ([]model.CalendarEvent, error) {
	day = day.In(s.cfg.Location)
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, s.cfg.Location)
	return s.TeacherEvents(ctx, teacherName, from, from.AddDate(0, 0, 1))
}

// TeacherEvents возвращает события календаря учителя в [from, to)
func (s *SchedulingService) TeacherEvents(ctx context.Context, teacherName string, from, to time.Time) ([]model.CalendarEvent, error) {
	calendarID, err := s.resolveCalendar(ctx, teacherName)
	if err != nil {
		return nil, err
	}

	events, err := s.provider.ListEvents(ctx, calendarID, from, to)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}
	return events, nil
}

// Location часовой пояс школы
func (s *SchedulingService) Location() *time.Location {
	return s.cfg.Location
}

// IsUnknownTeacher сообщает, что учитель не найден в справочнике
func IsUnknownTeacher(err error) bool {
	return errors.Is(err, errUnknownTeacher)
}

func (s *SchedulingService) buildEvent(req model.AppointmentRequest, slot model.TimeSlot) model.CalendarEvent {
	var description strings.Builder
	fmt.Fprintf(&description, "Student: %s\nParent: %s\nTeacher: %s", req.StudentName, req.ParentName, req.TeacherName)
	if req.Purpose != "" {
		fmt.Fprintf(&description, "\nPurpose: %s", req.Purpose)
	}
	fmt.Fprintf(&description, "\nContact: %s", req.ContactPhone)

	return model.CalendarEvent{
		Title:       fmt.Sprintf("Parent-Teacher Meeting: %s with %s", req.ParentName, req.TeacherName),
		Description: description.String(),
		Start:       slot.Start,
		End:         slot.End,
		Managed:     true,
	}
}
