package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Freeeeeet/receptionist/internal/lock"
	"github.com/Freeeeeet/receptionist/internal/model"
	"github.com/Freeeeeet/receptionist/internal/repository"
	"github.com/Freeeeeet/receptionist/internal/repository/base"
	"github.com/Freeeeeet/receptionist/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret"

var ist = time.FixedZone("IST", 5*3600+1800)

type stubScheduler struct {
	result    model.SchedulingResult
	available bool
	slots     []model.TimeSlot
	events    []model.CalendarEvent
	err       error

	scheduleCalls int
	lastRequest   model.AppointmentRequest
	lastOpts      service.SearchOptions
	lastDay       time.Time
}

func (s *stubScheduler) Schedule(ctx context.Context, req model.AppointmentRequest) model.SchedulingResult {
	s.scheduleCalls++
	s.lastRequest = req
	return s.result
}

func (s *stubScheduler) CheckAvailability(ctx context.Context, teacherName string, start time.Time, duration time.Duration) (bool, error) {
	return s.available, s.err
}

func (s *stubScheduler) SuggestAlternatives(ctx context.Context, teacherName string, desired time.Time, duration time.Duration, opts service.SearchOptions) ([]model.TimeSlot, error) {
	s.lastOpts = opts
	return s.slots, s.err
}

func (s *stubScheduler) TeacherSchedule(ctx context.Context, teacherName string, day time.Time) ([]model.CalendarEvent, error) {
	s.lastDay = day
	return s.events, s.err
}

type stubCalls struct {
	err error
}

func (s *stubCalls) StartCall(ctx context.Context, language string) (*model.CallRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &model.CallRecord{CallID: "call-1", Language: language, Status: model.CallStatusInProgress}, nil
}

func (s *stubCalls) IdentifyCaller(ctx context.Context, callID, callerName string) error {
	return s.err
}

func (s *stubCalls) SwitchLanguage(ctx context.Context, callID, language string) error {
	if language != "en" && language != "hi" {
		return fmt.Errorf("%w: %q", service.ErrUnsupportedLanguage, language)
	}
	return s.err
}

func (s *stubCalls) EndCall(ctx context.Context, callID string) (*model.CallRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &model.CallRecord{CallID: callID, Language: "en", Status: model.CallStatusCompleted}, nil
}

type stubTeachers struct{}

func (stubTeachers) List(ctx context.Context) ([]*model.Teacher, error) {
	return []*model.Teacher{{ID: 1, Name: "Mrs. Sharma", Subject: "Mathematics"}}, nil
}

type stubAppointments struct {
	updateErr  error
	lastFilter repository.AppointmentFilter
}

func (s *stubAppointments) GetByID(ctx context.Context, id string) (*model.Appointment, error) {
	if id == "known" {
		return &model.Appointment{ID: id, TeacherName: "Mrs. Sharma"}, nil
	}
	return nil, nil
}

func (s *stubAppointments) List(ctx context.Context, filter repository.AppointmentFilter) ([]*model.Appointment, error) {
	s.lastFilter = filter
	return nil, nil
}

func (s *stubAppointments) UpdateStatus(ctx context.Context, id string, status model.AppointmentStatus) error {
	return s.updateErr
}

type stubReconciler struct {
	orphans []service.OrphanEvent
}

func (s stubReconciler) Run(ctx context.Context) ([]service.OrphanEvent, error) {
	return s.orphans, nil
}

type stubNotifier struct {
	results chan model.SchedulingResult
}

func (s *stubNotifier) Dispatch(ctx context.Context, req model.AppointmentRequest, result model.SchedulingResult) {
	s.results <- result
}

type stubLocker struct {
	err      error
	keys     []string
	released int
}

func (l *stubLocker) Acquire(ctx context.Context, key string) (func(), error) {
	l.keys = append(l.keys, key)
	if l.err != nil {
		return nil, l.err
	}
	return func() { l.released++ }, nil
}

type stubWeeks struct {
	teacher string
	weekOf  time.Time
}

func (w *stubWeeks) Render(ctx context.Context, teacherName string, weekOf time.Time) ([]byte, error) {
	if teacherName == "Nobody" {
		return nil, fmt.Errorf("resolve: %w", service.ErrProviderUnavailable)
	}
	w.teacher = teacherName
	w.weekOf = weekOf
	return []byte("\x89PNG"), nil
}

type fixture struct {
	scheduler    *stubScheduler
	calls        *stubCalls
	appointments *stubAppointments
	notifier     *stubNotifier
	locker       *stubLocker
	weeks        *stubWeeks
	router       http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		scheduler:    &stubScheduler{},
		calls:        &stubCalls{},
		appointments: &stubAppointments{},
		notifier:     &stubNotifier{results: make(chan model.SchedulingResult, 1)},
		locker:       &stubLocker{},
		weeks:        &stubWeeks{},
	}

	h := NewHandler(Deps{
		Scheduling:   f.scheduler,
		Calls:        f.calls,
		Teachers:     stubTeachers{},
		Appointments: f.appointments,
		Reconciler: stubReconciler{orphans: []service.OrphanEvent{{
			CalendarID: "primary",
			Event:      model.CalendarEvent{ID: "evt-orphan", Managed: true},
		}}},
		Notifier:   f.notifier,
		Weeks:      f.weeks,
		Locker:     f.locker,
		SchoolName: "Delhi Public School",
		Location:   ist,
	}, zap.NewNop())

	f.router = NewRouter(h, testSecret, zap.NewNop())
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any, token string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	var decoded map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &decoded)
	return rec, decoded
}

func appointmentBody() map[string]any {
	return map[string]any{
		"parent_name":   "Rahul Verma",
		"student_name":  "Aarav Verma",
		"teacher_name":  "Mrs. Sharma",
		"start_time":    "2024-03-10T10:30:00+05:30",
		"contact_phone": "+919800000000",
		"language":      "en-IN",
	}
}

func TestScheduleAppointment_Scheduled(t *testing.T) {
	f := newFixture(t)
	start := time.Date(2024, 3, 10, 10, 30, 0, 0, ist)
	f.scheduler.result = model.Scheduled("appt-1", "evt-1", model.NewTimeSlot(start, 30*time.Minute))

	rec, body := f.do(t, http.MethodPost, "/api/appointments", appointmentBody(), "")

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "scheduled", body["outcome"])
	assert.Equal(t, "appt-1", body["appointment_id"])
	assert.Contains(t, body["message"], "Sunday, March 10th at 10:30 AM")
	assert.NotContains(t, body, "suggested_slots")

	assert.Equal(t, 1, f.scheduler.scheduleCalls)
	assert.Equal(t, "en", f.scheduler.lastRequest.Language)
	assert.True(t, f.scheduler.lastRequest.StartTime.Equal(start))

	assert.Equal(t, []string{lock.TeacherKey("Mrs. Sharma")}, f.locker.keys)
	assert.Equal(t, 1, f.locker.released)

	select {
	case res := <-f.notifier.results:
		assert.Equal(t, model.OutcomeScheduled, res.Outcome)
	case <-time.After(time.Second):
		t.Fatal("notification was not dispatched")
	}
}

func TestScheduleAppointment_LocalTimeUsesSchoolZone(t *testing.T) {
	f := newFixture(t)
	f.scheduler.result = model.Conflict(nil)

	payload := appointmentBody()
	payload["start_time"] = "2024-03-10T10:30"
	f.do(t, http.MethodPost, "/api/appointments", payload, "")

	assert.True(t, f.scheduler.lastRequest.StartTime.Equal(time.Date(2024, 3, 10, 10, 30, 0, 0, ist)))
}

func TestScheduleAppointment_Conflict(t *testing.T) {
	f := newFixture(t)
	f.scheduler.result = model.Conflict([]model.TimeSlot{
		model.NewTimeSlot(time.Date(2024, 3, 10, 10, 30, 0, 0, ist), 30*time.Minute),
		model.NewTimeSlot(time.Date(2024, 3, 10, 11, 0, 0, 0, ist), 30*time.Minute),
	})

	rec, body := f.do(t, http.MethodPost, "/api/appointments", appointmentBody(), "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "conflict", body["outcome"])
	assert.Len(t, body["suggested_slots"], 2)
	assert.Equal(t,
		"The requested time is not available. Here are some alternative times: Sunday, March 10th at 10:30 AM or Sunday, March 10th at 11:00 AM",
		body["message"])
}

func TestScheduleAppointment_ConflictWithoutSuggestions(t *testing.T) {
	f := newFixture(t)
	f.scheduler.result = model.Conflict(nil)

	payload := appointmentBody()
	payload["language"] = "hi"
	rec, body := f.do(t, http.MethodPost, "/api/appointments", payload, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body["message"], "कोई विकल्प नहीं")
	require.Contains(t, body, "suggested_slots")
	assert.Equal(t, []any{}, body["suggested_slots"])
}

func TestScheduleAppointment_TeacherLocked(t *testing.T) {
	f := newFixture(t)
	f.locker.err = lock.ErrNotAcquired

	rec, body := f.do(t, http.MethodPost, "/api/appointments", appointmentBody(), "")

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, body["message"], "Another caller")
	assert.Zero(t, f.scheduler.scheduleCalls)
}

func TestScheduleAppointment_LockBackendDownStillSchedules(t *testing.T) {
	f := newFixture(t)
	f.locker.err = errors.New("redis: connection refused")
	f.scheduler.result = model.Scheduled("appt-1", "evt-1", model.NewTimeSlot(time.Date(2024, 3, 10, 10, 30, 0, 0, ist), 30*time.Minute))

	rec, _ := f.do(t, http.MethodPost, "/api/appointments", appointmentBody(), "")

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, f.scheduler.scheduleCalls)
}

func TestScheduleAppointment_BadTime(t *testing.T) {
	f := newFixture(t)

	payload := appointmentBody()
	payload["start_time"] = "next tuesday"
	rec, body := f.do(t, http.MethodPost, "/api/appointments", payload, "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "failed", body["outcome"])
	assert.Equal(t, "invalid_request", body["reason"])
	assert.Zero(t, f.scheduler.scheduleCalls)
	assert.Empty(t, f.locker.keys)
}

func TestResultStatus(t *testing.T) {
	cases := []struct {
		result   model.SchedulingResult
		expected int
	}{
		{model.Conflict(nil), http.StatusOK},
		{model.Failed(model.ReasonInvalidRequest, nil), http.StatusBadRequest},
		{model.Failed(model.ReasonProviderError, nil), http.StatusServiceUnavailable},
		{model.Failed(model.ReasonCalendarWriteError, nil), http.StatusBadGateway},
		{model.Failed(model.ReasonTeacherLookup, nil), http.StatusInternalServerError},
		{model.Failed(model.ReasonLocalWriteError, nil), http.StatusInternalServerError},
	}

	for _, c := range cases {
		assert.Equal(t, c.expected, resultStatus(c.result), string(c.result.Reason))
	}
}

func TestCheckAvailability(t *testing.T) {
	f := newFixture(t)
	f.scheduler.available = true

	rec, body := f.do(t, http.MethodPost, "/api/availability", map[string]any{
		"teacher_name":     "Mrs. Sharma",
		"start_time":       "2024-03-10T10:00:00+05:30",
		"duration_minutes": 30,
	}, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["available"])

	f.scheduler.err = fmt.Errorf("%w: timeout", service.ErrProviderUnavailable)
	rec, _ = f.do(t, http.MethodPost, "/api/availability", map[string]any{
		"teacher_name": "Mrs. Sharma",
		"start_time":   "2024-03-10T10:00:00+05:30",
	}, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSuggestAlternatives_OptionsOverride(t *testing.T) {
	f := newFixture(t)
	f.scheduler.slots = []model.TimeSlot{model.NewTimeSlot(time.Date(2024, 3, 10, 10, 30, 0, 0, ist), 30*time.Minute)}

	rec, body := f.do(t, http.MethodPost, "/api/alternatives", map[string]any{
		"teacher_name": "Mrs. Sharma",
		"desired_time": "2024-03-10T10:00:00+05:30",
		"max_results":  5,
	}, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["slots"], 1)
	assert.Equal(t, 5, f.scheduler.lastOpts.MaxResults)
	assert.Equal(t, service.DefaultSearchOptions().DaysToCheck, f.scheduler.lastOpts.DaysToCheck)
}

func TestSuggestAlternatives_CallerBoundsAreCapped(t *testing.T) {
	f := newFixture(t)

	rec, _ := f.do(t, http.MethodPost, "/api/alternatives", map[string]any{
		"teacher_name":  "Mrs. Sharma",
		"desired_time":  "2024-03-10T10:00:00+05:30",
		"days_to_check": 100000,
		"max_results":   1000000,
	}, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, service.MaxSearchDays, f.scheduler.lastOpts.DaysToCheck)
	assert.Equal(t, service.MaxSearchResults, f.scheduler.lastOpts.MaxResults)
}

func TestTeacherEndpoints(t *testing.T) {
	f := newFixture(t)

	rec, _ := f.do(t, http.MethodGet, "/api/teachers", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Mrs. Sharma")

	rec, body := f.do(t, http.MethodGet, "/api/teachers/Mrs.%20Sharma/schedule?date=2024-03-10", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2024-03-10", body["date"])
	assert.Equal(t, []any{}, body["events"])
	assert.Equal(t, 10, f.scheduler.lastDay.Day())

	rec, _ = f.do(t, http.MethodGet, "/api/teachers/Mrs.%20Sharma/schedule?date=10.03.2024", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCallLifecycle(t *testing.T) {
	f := newFixture(t)

	rec, body := f.do(t, http.MethodPost, "/api/calls", map[string]any{"language": "hi-IN"}, "")
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "call-1", body["call_id"])
	assert.Contains(t, body["message"], "Delhi Public School")

	rec, body = f.do(t, http.MethodPut, "/api/calls/call-1/language", map[string]any{"language": "hi"}, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body["message"], "हिन्दी")

	rec, _ = f.do(t, http.MethodPut, "/api/calls/call-1/language", map[string]any{"language": "fr"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = f.do(t, http.MethodPost, "/api/calls/call-1/end", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body["message"], "Thank you for calling Delhi Public School")
}

func TestCallNotFound(t *testing.T) {
	f := newFixture(t)
	f.calls.err = service.ErrCallNotFound

	rec, _ := f.do(t, http.MethodPut, "/api/calls/missing/caller", map[string]any{"name": "Anita"}, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = f.do(t, http.MethodPost, "/api/calls/missing/end", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminAuth(t *testing.T) {
	f := newFixture(t)

	rec, _ := f.do(t, http.MethodGet, "/admin/appointments", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	wrong, err := IssueAdminToken("other-secret", "operator", time.Hour)
	require.NoError(t, err)
	rec, _ = f.do(t, http.MethodGet, "/admin/appointments", nil, wrong)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	expired, err := IssueAdminToken(testSecret, "operator", -time.Minute)
	require.NoError(t, err)
	rec, _ = f.do(t, http.MethodGet, "/admin/appointments", nil, expired)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := IssueAdminToken(testSecret, "operator", time.Hour)
	require.NoError(t, err)
	rec, _ = f.do(t, http.MethodGet, "/admin/appointments?teacher=Mrs.%20Sharma&status=scheduled&from=2024-03-10", nil, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "from must be a time")

	rec, _ = f.do(t, http.MethodGet, "/admin/appointments?teacher=Mrs.%20Sharma&status=scheduled&from=2024-03-10T00:00", nil, token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
	assert.Equal(t, "Mrs. Sharma", f.appointments.lastFilter.TeacherName)
	assert.Equal(t, model.AppointmentStatusScheduled, f.appointments.lastFilter.Status)
	require.NotNil(t, f.appointments.lastFilter.From)
}

func TestAdminDisabledWithoutSecret(t *testing.T) {
	h := NewHandler(Deps{Appointments: &stubAppointments{}}, zap.NewNop())
	router := NewRouter(h, "", zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/admin/appointments", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	_, err := IssueAdminToken("", "operator", time.Hour)
	assert.Error(t, err)
}

func TestAdminAppointments(t *testing.T) {
	f := newFixture(t)
	token, err := IssueAdminToken(testSecret, "operator", time.Hour)
	require.NoError(t, err)

	rec, body := f.do(t, http.MethodGet, "/admin/appointments/known", nil, token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Mrs. Sharma", body["teacher_name"])

	rec, _ = f.do(t, http.MethodGet, "/admin/appointments/unknown", nil, token)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = f.do(t, http.MethodPut, "/admin/appointments/known/status", map[string]any{"status": "postponed"}, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = f.do(t, http.MethodPut, "/admin/appointments/known/status", map[string]any{"status": "cancelled"}, token)
	assert.Equal(t, http.StatusOK, rec.Code)

	f.appointments.updateErr = base.ErrNotFound
	rec, _ = f.do(t, http.MethodPut, "/admin/appointments/unknown/status", map[string]any{"status": "cancelled"}, token)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, body = f.do(t, http.MethodPost, "/admin/reconcile", nil, token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["orphans"], 1)
}

func TestTeacherWeek(t *testing.T) {
	f := newFixture(t)
	token, err := IssueAdminToken(testSecret, "operator", time.Hour)
	require.NoError(t, err)

	rec, _ := f.do(t, http.MethodGet, "/admin/teachers/Mrs.%20Sharma/week?date=2024-03-10", nil, token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "Mrs. Sharma", f.weeks.teacher)
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, ist), f.weeks.weekOf)

	rec, _ = f.do(t, http.MethodGet, "/admin/teachers/Mrs.%20Sharma/week?date=10.03.2024", nil, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = f.do(t, http.MethodGet, "/admin/teachers/Nobody/week", nil, token)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec, _ = f.do(t, http.MethodGet, "/admin/teachers/Mrs.%20Sharma/week", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminLogin(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	h := NewHandler(Deps{
		Appointments: &stubAppointments{},
		Admin:        AdminLogin{Username: "operator", PasswordHash: string(hash), Secret: testSecret},
	}, zap.NewNop())
	f := &fixture{router: NewRouter(h, testSecret, zap.NewNop())}

	rec, _ := f.do(t, http.MethodPost, "/admin/login", map[string]any{"username": "operator", "password": "wrong"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = f.do(t, http.MethodPost, "/admin/login", map[string]any{"username": "root", "password": "s3cret"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, body := f.do(t, http.MethodPost, "/admin/login", map[string]any{"username": "operator", "password": "s3cret"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	token, ok := body["token"].(string)
	require.True(t, ok)

	rec, _ = f.do(t, http.MethodGet, "/admin/appointments", nil, token)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminLogin_NotConfigured(t *testing.T) {
	f := newFixture(t)

	rec, _ := f.do(t, http.MethodPost, "/admin/login", map[string]any{"username": "operator", "password": "x"}, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")))

	_, err = HashPassword("")
	assert.Error(t, err)
}

func TestParseTime(t *testing.T) {
	got, err := parseTime("2024-03-10T05:00:00Z", ist)
	require.NoError(t, err)
	assert.Equal(t, 10, got.Hour())
	assert.Equal(t, 30, got.Minute())

	got, err = parseTime("2024-03-10 14:00", ist)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2024, 3, 10, 14, 0, 0, 0, ist)))

	_, err = parseTime("", ist)
	assert.Error(t, err)
}
