package calendar

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Freeeeeet/receptionist/internal/model"
	"github.com/google/uuid"
)

// MemoryProvider календарь в памяти для разработки и тестов.
// В strict режиме отклоняет пересекающиеся вставки, как провайдер с собственной проверкой конфликтов.
type MemoryProvider struct {
	mu     sync.RWMutex
	events map[string][]model.CalendarEvent
	strict bool
}

func NewMemoryProvider(strict bool) *MemoryProvider {
	return &MemoryProvider{
		events: make(map[string][]model.CalendarEvent),
		strict: strict,
	}
}

// ListEvents возвращает копии пересекающих окно событий
func (p *MemoryProvider) ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]model.CalendarEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	var result []model.CalendarEvent
	for _, e := range p.events[calendarID] {
		if e.Overlaps(timeMin, timeMax) {
			result = append(result, e)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Start.Before(result[j].Start)
	})

	return result, nil
}

// InsertEvent сохраняет событие, назначая ему ID
func (p *MemoryProvider) InsertEvent(ctx context.Context, calendarID string, event model.CalendarEvent) (*model.CalendarEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.strict {
		for _, e := range p.events[calendarID] {
			if e.Overlaps(event.Start, event.End) {
				return nil, ErrSlotTaken
			}
		}
	}

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Created.IsZero() {
		event.Created = time.Now()
	}
	p.events[calendarID] = append(p.events[calendarID], event)

	return &event, nil
}

// Len возвращает количество событий в календаре
func (p *MemoryProvider) Len(calendarID string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.events[calendarID])
}
