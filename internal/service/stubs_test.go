package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Freeeeeet/receptionist/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var errNetwork = errors.New("dial tcp: network is unreachable")

// stubProvider календарь с подсчётом вызовов и инъекцией ошибок
type stubProvider struct {
	mu        sync.Mutex
	events    map[string][]model.CalendarEvent
	listCalls int
	inserts   int

	listErr        error
	listFailAfter  int // >0: ошибка начиная с этого по счёту вызова ListEvents
	insertErr      error
	insertedEvents []model.CalendarEvent
}

func newStubProvider() *stubProvider {
	return &stubProvider{events: make(map[string][]model.CalendarEvent)}
}

func (p *stubProvider) busy(calendarID string, start, end time.Time) {
	p.events[calendarID] = append(p.events[calendarID], model.CalendarEvent{
		ID:    uuid.NewString(),
		Title: "busy",
		Start: start,
		End:   end,
	})
}

func (p *stubProvider) ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]model.CalendarEvent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.listCalls++
	if p.listErr != nil && (p.listFailAfter == 0 || p.listCalls >= p.listFailAfter) {
		return nil, p.listErr
	}

	var result []model.CalendarEvent
	for _, e := range p.events[calendarID] {
		if e.Overlaps(timeMin, timeMax) {
			result = append(result, e)
		}
	}
	return result, nil
}

func (p *stubProvider) InsertEvent(ctx context.Context, calendarID string, event model.CalendarEvent) (*model.CalendarEvent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.inserts++
	if p.insertErr != nil {
		return nil, p.insertErr
	}

	event.ID = fmt.Sprintf("evt-%d", p.inserts)
	p.events[calendarID] = append(p.events[calendarID], event)
	p.insertedEvents = append(p.insertedEvents, event)
	return &event, nil
}

// stubStore локальное хранилище с подсчётом записей
type stubStore struct {
	writes       int
	err          error
	appointments []*model.Appointment
}

func (s *stubStore) Create(ctx context.Context, appointment *model.Appointment) error {
	s.writes++
	if s.err != nil {
		return s.err
	}
	appointment.ID = uuid.NewString()
	s.appointments = append(s.appointments, appointment)
	return nil
}

type stubTeachers struct {
	teachers map[string]*model.Teacher
	err      error
	calls    int
}

func (t *stubTeachers) GetByName(ctx context.Context, name string) (*model.Teacher, error) {
	t.calls++
	if t.err != nil {
		return nil, t.err
	}
	return t.teachers[name], nil
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}

// march10 возвращает время 10 марта 2024 года в UTC
func march10(hour, minute int) time.Time {
	return time.Date(2024, 3, 10, hour, minute, 0, 0, time.UTC)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
