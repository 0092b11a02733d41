package calendar

import (
	"context"
	"errors"
	"time"

	"github.com/Freeeeeet/receptionist/internal/model"
)

// ErrSlotTaken возвращается провайдером, который сам проверяет пересечения при вставке
var ErrSlotTaken = errors.New("calendar slot already taken")

// Provider внешний календарь, источник истины по занятости учителей
type Provider interface {
	// ListEvents возвращает события, пересекающие [timeMin, timeMax), по возрастанию начала
	ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]model.CalendarEvent, error)
	// InsertEvent создаёт событие и возвращает его с ID провайдера
	InsertEvent(ctx context.Context, calendarID string, event model.CalendarEvent) (*model.CalendarEvent, error)
}
