package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/receptionist/internal/model"
	"github.com/Freeeeeet/receptionist/internal/render"
	"github.com/Freeeeeet/receptionist/internal/repository"
)

// AppointmentLister выборка локальных встреч
type AppointmentLister interface {
	List(ctx context.Context, filter repository.AppointmentFilter) ([]*model.Appointment, error)
}

// WeekOverview собирает неделю учителя из базы и календаря и рисует её
type WeekOverview struct {
	scheduling   *SchedulingService
	appointments AppointmentLister
	now          func() time.Time
}

func NewWeekOverview(scheduling *SchedulingService, appointments AppointmentLister) *WeekOverview {
	return &WeekOverview{scheduling: scheduling, appointments: appointments, now: time.Now}
}

// WithClock подменяет источник текущего времени
func (w *WeekOverview) WithClock(now func() time.Time) *WeekOverview {
	w.now = now
	return w
}

// Items блоки недели, содержащей weekOf. События календаря, созданные ресепшеном,
// берутся из базы, чтобы показать статус; остальные показываются как занятость.
func (w *WeekOverview) Items(ctx context.Context, teacherName string, weekOf time.Time) ([]render.Item, error) {
	from := render.WeekStart(weekOf.In(w.scheduling.Location()))
	to := from.AddDate(0, 0, 7)

	events, err := w.scheduling.TeacherEvents(ctx, teacherName, from, to)
	if err != nil {
		return nil, err
	}

	appointments, err := w.appointments.List(ctx, repository.AppointmentFilter{
		TeacherName: teacherName,
		From:        &from,
		To:          &to,
	})
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}

	items := make([]render.Item, 0, len(events)+len(appointments))
	known := make(map[string]bool, len(appointments))

	for _, a := range appointments {
		known[a.EventID] = true
		if !a.StartTime.Before(to) {
			continue
		}
		items = append(items, render.Item{
			Start: a.StartTime,
			End:   a.EndTime(),
			Label: a.ParentName,
			Kind:  appointmentKind(a.Status),
		})
	}

	for _, event := range events {
		if known[event.ID] {
			continue
		}
		label := event.Title
		if event.Managed {
			// событие ресепшена без записи в базе
			label = "Unrecorded: " + strings.TrimPrefix(event.Title, "Parent-Teacher Meeting: ")
		}
		items = append(items, render.Item{
			Start: event.Start,
			End:   event.End,
			Label: label,
			Kind:  render.KindBusy,
		})
	}

	return items, nil
}

// Render рисует неделю в PNG
func (w *WeekOverview) Render(ctx context.Context, teacherName string, weekOf time.Time) ([]byte, error) {
	items, err := w.Items(ctx, teacherName, weekOf)
	if err != nil {
		return nil, err
	}
	return render.WeekImage(weekOf.In(w.scheduling.Location()), teacherName, items, w.now())
}

func appointmentKind(status model.AppointmentStatus) render.ItemKind {
	switch status {
	case model.AppointmentStatusCompleted:
		return render.KindCompleted
	case model.AppointmentStatusCancelled:
		return render.KindCancelled
	}
	return render.KindScheduled
}
