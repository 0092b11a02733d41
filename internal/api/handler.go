// Package api HTTP ручки, которые вызывает голосовой агент во время звонка,
// и админские ручки для оператора.
package api

import (
	"context"
	"time"

	"github.com/Freeeeeet/receptionist/internal/lock"
	"github.com/Freeeeeet/receptionist/internal/model"
	"github.com/Freeeeeet/receptionist/internal/repository"
	"github.com/Freeeeeet/receptionist/internal/service"
	"go.uber.org/zap"
)

type Scheduler interface {
	Schedule(ctx context.Context, req model.AppointmentRequest) model.SchedulingResult
	CheckAvailability(ctx context.Context, teacherName string, start time.Time, duration time.Duration) (bool, error)
	SuggestAlternatives(ctx context.Context, teacherName string, desired time.Time, duration time.Duration, opts service.SearchOptions) ([]model.TimeSlot, error)
	TeacherSchedule(ctx context.Context, teacherName string, day time.Time) ([]model.CalendarEvent, error)
}

type Calls interface {
	StartCall(ctx context.Context, language string) (*model.CallRecord, error)
	IdentifyCaller(ctx context.Context, callID, callerName string) error
	SwitchLanguage(ctx context.Context, callID, language string) error
	EndCall(ctx context.Context, callID string) (*model.CallRecord, error)
}

type Teachers interface {
	List(ctx context.Context) ([]*model.Teacher, error)
}

type Appointments interface {
	GetByID(ctx context.Context, id string) (*model.Appointment, error)
	List(ctx context.Context, filter repository.AppointmentFilter) ([]*model.Appointment, error)
	UpdateStatus(ctx context.Context, id string, status model.AppointmentStatus) error
}

type Reconciler interface {
	Run(ctx context.Context) ([]service.OrphanEvent, error)
}

type WeekRenderer interface {
	Render(ctx context.Context, teacherName string, weekOf time.Time) ([]byte, error)
}

type Notifier interface {
	Dispatch(ctx context.Context, req model.AppointmentRequest, result model.SchedulingResult)
}

// Deps зависимости ручек. Notifier, Weeks и Locker необязательны.
type Deps struct {
	Scheduling   Scheduler
	Calls        Calls
	Teachers     Teachers
	Appointments Appointments
	Reconciler   Reconciler
	Notifier     Notifier
	Weeks        WeekRenderer
	Locker       lock.Locker
	Admin        AdminLogin

	SchoolName string
	Location   *time.Location
	Search     service.SearchOptions
	LockWait   time.Duration
}

type Handler struct {
	scheduling   Scheduler
	calls        Calls
	teachers     Teachers
	appointments Appointments
	reconciler   Reconciler
	notifier     Notifier
	weeks        WeekRenderer
	locker       lock.Locker
	admin        AdminLogin

	schoolName string
	location   *time.Location
	search     service.SearchOptions
	lockWait   time.Duration
	logger     *zap.Logger
}

func NewHandler(deps Deps, logger *zap.Logger) *Handler {
	if deps.Locker == nil {
		deps.Locker = lock.NopLocker{}
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	deps.Search = deps.Search.Bounded()
	if deps.Admin.TokenTTL <= 0 {
		deps.Admin.TokenTTL = 12 * time.Hour
	}
	if deps.LockWait <= 0 {
		deps.LockWait = 5 * time.Second
	}

	return &Handler{
		scheduling:   deps.Scheduling,
		calls:        deps.Calls,
		teachers:     deps.Teachers,
		appointments: deps.Appointments,
		reconciler:   deps.Reconciler,
		notifier:     deps.Notifier,
		weeks:        deps.Weeks,
		locker:       deps.Locker,
		admin:        deps.Admin,
		schoolName:   deps.SchoolName,
		location:     deps.Location,
		search:       deps.Search,
		lockWait:     deps.LockWait,
		logger:       logger,
	}
}
