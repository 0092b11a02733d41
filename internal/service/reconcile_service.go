package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/receptionist/internal/calendar"
	"github.com/Freeeeeet/receptionist/internal/model"
	"go.uber.org/zap"
)

// EventIndex ищет локальную запись по ID события календаря
type EventIndex interface {
	ExistsByEventID(ctx context.Context, eventID string) (bool, error)
}

// CalendarSource перечисляет календари учителей
type CalendarSource interface {
	CalendarIDs(ctx context.Context) ([]string, error)
}

// OrphanEvent событие, созданное ресепшеном, без записи в базе
type OrphanEvent struct {
	CalendarID string              `json:"calendar_id"`
	Event      model.CalendarEvent `json:"event"`
}

// OrphanReporter сообщает оператору о расхождениях
type OrphanReporter interface {
	ReportOrphans(ctx context.Context, orphans []OrphanEvent) error
}

// OrphanGracePeriod возраст события, моложе которого оно не считается сиротой:
// запись в базу идёт после вставки в календарь и может ещё не завершиться
const OrphanGracePeriod = 2 * time.Minute

// ReconcileService ищет события календаря без локальной записи.
// Только обнаружение: исправляет расхождение оператор.
type ReconcileService struct {
	provider         calendar.Provider
	index            EventIndex
	calendars        CalendarSource
	reporter         OrphanReporter
	sharedCalendarID string
	horizon          time.Duration
	now              func() time.Time
	logger           *zap.Logger
}

func NewReconcileService(
	provider calendar.Provider,
	index EventIndex,
	calendars CalendarSource,
	reporter OrphanReporter,
	sharedCalendarID string,
	horizon time.Duration,
	logger *zap.Logger,
) *ReconcileService {
	return &ReconcileService{
		provider:         provider,
		index:            index,
		calendars:        calendars,
		reporter:         reporter,
		sharedCalendarID: sharedCalendarID,
		horizon:          horizon,
		now:              time.Now,
		logger:           logger,
	}
}

// Run проверяет все календари на горизонте [now, now+horizon)
func (s *ReconcileService) Run(ctx context.Context) ([]OrphanEvent, error) {
	calendarIDs := []string{s.sharedCalendarID}
	if s.calendars != nil {
		ids, err := s.calendars.CalendarIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("list calendars: %w", err)
		}
		for _, id := range ids {
			if id != s.sharedCalendarID {
				calendarIDs = append(calendarIDs, id)
			}
		}
	}

	from := s.now()
	to := from.Add(s.horizon)

	var orphans []OrphanEvent
	checked, fresh := 0, 0

	for _, calendarID := range calendarIDs {
		events, err := s.provider.ListEvents(ctx, calendarID, from, to)
		if err != nil {
			return nil, fmt.Errorf("%w: calendar %s: %w", ErrProviderUnavailable, calendarID, err)
		}

		for _, event := range events {
			if !event.Managed {
				continue
			}
			if !event.Created.IsZero() && from.Sub(event.Created) < OrphanGracePeriod {
				fresh++
				continue
			}
			checked++

			exists, err := s.index.ExistsByEventID(ctx, event.ID)
			if err != nil {
				return nil, fmt.Errorf("check event %s: %w", event.ID, err)
			}
			if !exists {
				orphans = append(orphans, OrphanEvent{CalendarID: calendarID, Event: event})
			}
		}
	}

	s.logger.Info("Reconciliation finished",
		zap.Int("calendars", len(calendarIDs)),
		zap.Int("managed_events", checked),
		zap.Int("skipped_fresh", fresh),
		zap.Int("orphans", len(orphans)))

	if len(orphans) > 0 && s.reporter != nil {
		if err := s.reporter.ReportOrphans(ctx, orphans); err != nil {
			s.logger.Error("Failed to report orphan events", zap.Error(err))
		}
	}

	return orphans, nil
}
