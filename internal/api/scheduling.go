package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Freeeeeet/receptionist/internal/formatting"
	"github.com/Freeeeeet/receptionist/internal/i18n"
	"github.com/Freeeeeet/receptionist/internal/lock"
	"github.com/Freeeeeet/receptionist/internal/model"
	"github.com/Freeeeeet/receptionist/internal/service"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const notifyTimeout = 30 * time.Second

type availabilityRequest struct {
	TeacherName     string `json:"teacher_name"`
	StartTime       string `json:"start_time"`
	DurationMinutes int    `json:"duration_minutes"`
}

type availabilityResponse struct {
	Available bool       `json:"available"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`
}

func (h *Handler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	var req availabilityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.DurationMinutes < 0 {
		writeError(w, http.StatusBadRequest, "duration_minutes must not be negative")
		return
	}

	start, err := parseTime(req.StartTime, h.location)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	duration := time.Duration(req.DurationMinutes) * time.Minute

	available, err := h.scheduling.CheckAvailability(r.Context(), req.TeacherName, start, duration)
	if err != nil {
		h.schedulingError(w, "check availability", err)
		return
	}

	resp := availabilityResponse{Available: available, StartTime: start}
	if duration > 0 {
		end := start.Add(duration)
		resp.EndTime = &end
	}
	writeJSON(w, http.StatusOK, resp)
}

type alternativesRequest struct {
	TeacherName     string `json:"teacher_name"`
	DesiredTime     string `json:"desired_time"`
	DurationMinutes int    `json:"duration_minutes"`
	DaysToCheck     int    `json:"days_to_check"`
	MaxResults      int    `json:"max_results"`
	Language        string `json:"language"`
}

type alternativesResponse struct {
	Slots   []model.TimeSlot `json:"slots"`
	Message string           `json:"message"`
}

func (h *Handler) SuggestAlternatives(w http.ResponseWriter, r *http.Request) {
	var req alternativesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	desired, err := parseTime(req.DesiredTime, h.location)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	opts := h.search
	if req.DaysToCheck > 0 {
		opts.DaysToCheck = req.DaysToCheck
	}
	if req.MaxResults > 0 {
		opts.MaxResults = req.MaxResults
	}
	opts = opts.Bounded()

	slots, err := h.scheduling.SuggestAlternatives(r.Context(), req.TeacherName, desired, time.Duration(req.DurationMinutes)*time.Minute, opts)
	if err != nil {
		h.schedulingError(w, "suggest alternatives", err)
		return
	}

	writeJSON(w, http.StatusOK, alternativesResponse{
		Slots:   slots,
		Message: conflictMessage(slots, i18n.Normalize(req.Language)),
	})
}

type appointmentRequest struct {
	ParentName      string `json:"parent_name"`
	StudentName     string `json:"student_name"`
	TeacherName     string `json:"teacher_name"`
	StartTime       string `json:"start_time"`
	DurationMinutes int    `json:"duration_minutes"`
	Purpose         string `json:"purpose"`
	ContactPhone    string `json:"contact_phone"`
	ContactEmail    string `json:"contact_email"`
	Language        string `json:"language"`
	CallID          string `json:"call_id"`
}

type appointmentResponse struct {
	model.SchedulingResult
	// перекрывает поле результата: у конфликта список есть всегда, даже пустой
	SuggestedSlots *[]model.TimeSlot `json:"suggested_slots,omitempty"`
	Message        string            `json:"message"`
}

func newAppointmentResponse(result model.SchedulingResult, message string) appointmentResponse {
	resp := appointmentResponse{SchedulingResult: result, Message: message}
	if result.Outcome == model.OutcomeConflict {
		slots := result.SuggestedSlots
		if slots == nil {
			slots = []model.TimeSlot{}
		}
		resp.SuggestedSlots = &slots
	}
	return resp
}

// ScheduleAppointment делает одну попытку записи под блокировкой учителя
func (h *Handler) ScheduleAppointment(w http.ResponseWriter, r *http.Request) {
	var body appointmentRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	language := i18n.DefaultLanguage
	if body.Language != "" {
		language = i18n.Normalize(body.Language)
	}

	start, err := parseTime(body.StartTime, h.location)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, newAppointmentResponse(
			model.Failed(model.ReasonInvalidRequest, err),
			i18n.T(i18n.KeyAppointmentInvalid, language, nil),
		))
		return
	}

	req := model.AppointmentRequest{
		ParentName:   body.ParentName,
		StudentName:  body.StudentName,
		TeacherName:  body.TeacherName,
		StartTime:    start,
		Duration:     time.Duration(body.DurationMinutes) * time.Minute,
		Purpose:      body.Purpose,
		ContactPhone: body.ContactPhone,
		ContactEmail: body.ContactEmail,
		Language:     language,
		CallID:       body.CallID,
	}

	release, ok := h.acquireTeacher(w, r, req.TeacherName, language)
	if !ok {
		return
	}
	result := h.scheduling.Schedule(r.Context(), req)
	release()

	if h.notifier != nil {
		go h.dispatch(context.WithoutCancel(r.Context()), req, result)
	}

	writeJSON(w, resultStatus(result), newAppointmentResponse(result, resultMessage(result, language)))
}

// acquireTeacher берёт блокировку учителя. Если Redis недоступен, запись идёт
// без блокировки: календарь остаётся источником истины.
func (h *Handler) acquireTeacher(w http.ResponseWriter, r *http.Request, teacherName, language string) (func(), bool) {
	ctx, cancel := context.WithTimeout(r.Context(), h.lockWait)
	defer cancel()

	release, err := h.locker.Acquire(ctx, lock.TeacherKey(teacherName))
	if err == nil {
		return release, true
	}

	if errors.Is(err, lock.ErrNotAcquired) {
		h.logger.Info("Teacher is locked by another call", zap.String("teacher", teacherName))
		writeJSON(w, http.StatusConflict, errorResponse{
			Error:   err.Error(),
			Message: i18n.T(i18n.KeyProviderBusy, language, nil),
		})
		return nil, false
	}

	h.logger.Warn("Lock backend unavailable, scheduling without lock",
		zap.String("teacher", teacherName),
		zap.Error(err))
	return func() {}, true
}

func (h *Handler) dispatch(ctx context.Context, req model.AppointmentRequest, result model.SchedulingResult) {
	ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()
	h.notifier.Dispatch(ctx, req, result)
}

func resultStatus(result model.SchedulingResult) int {
	switch result.Outcome {
	case model.OutcomeScheduled:
		return http.StatusCreated
	case model.OutcomeConflict:
		return http.StatusOK
	}

	switch result.Reason {
	case model.ReasonInvalidRequest:
		return http.StatusBadRequest
	case model.ReasonProviderError:
		return http.StatusServiceUnavailable
	case model.ReasonCalendarWriteError:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func resultMessage(result model.SchedulingResult, language string) string {
	switch result.Outcome {
	case model.OutcomeScheduled:
		return i18n.T(i18n.KeyAppointmentSuccess, language, map[string]string{
			"time": formatting.SpokenDateTime(result.ConfirmedSlot.Start),
		})
	case model.OutcomeConflict:
		return conflictMessage(result.SuggestedSlots, language)
	}

	if result.Reason == model.ReasonInvalidRequest {
		return i18n.T(i18n.KeyAppointmentInvalid, language, nil)
	}
	return i18n.T(i18n.KeyAppointmentFailed, language, nil)
}

func conflictMessage(slots []model.TimeSlot, language string) string {
	if len(slots) == 0 {
		return i18n.T(i18n.KeyAppointmentNoSuggestions, language, nil)
	}
	return i18n.T(i18n.KeyAppointmentConflict, language, map[string]string{
		"suggestions": formatting.SpokenSlots(slots),
	})
}

func (h *Handler) ListTeachers(w http.ResponseWriter, r *http.Request) {
	teachers, err := h.teachers.List(r.Context())
	if err != nil {
		h.logger.Error("Failed to list teachers", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if teachers == nil {
		teachers = []*model.Teacher{}
	}
	writeJSON(w, http.StatusOK, teachers)
}

type teacherScheduleResponse struct {
	Teacher string                `json:"teacher"`
	Date    string                `json:"date"`
	Events  []model.CalendarEvent `json:"events"`
}

func (h *Handler) TeacherSchedule(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	day := time.Now().In(h.location)
	if value := r.URL.Query().Get("date"); value != "" {
		parsed, err := parseDate(value, h.location)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		day = parsed
	}

	events, err := h.scheduling.TeacherSchedule(r.Context(), name, day)
	if err != nil {
		h.schedulingError(w, "teacher schedule", err)
		return
	}
	if events == nil {
		events = []model.CalendarEvent{}
	}

	writeJSON(w, http.StatusOK, teacherScheduleResponse{
		Teacher: name,
		Date:    day.Format("2006-01-02"),
		Events:  events,
	})
}

func (h *Handler) schedulingError(w http.ResponseWriter, op string, err error) {
	switch {
	case service.IsUnknownTeacher(err):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidWindow):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrProviderUnavailable):
		h.logger.Error("Calendar provider unavailable", zap.String("op", op), zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "calendar provider unavailable")
	default:
		h.logger.Error("Scheduling operation failed", zap.String("op", op), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
