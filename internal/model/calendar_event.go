package model

import "time"

// CalendarEvent событие в календаре провайдера.
// Владелец - провайдер, у нас остаётся только ID после создания.
type CalendarEvent struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Managed     bool      `json:"managed"` // создано ресепшеном, а не вручную
	Created     time.Time `json:"created"` // момент создания у провайдера, может быть нулевым
}

// Overlaps проверяет пересечение с полуинтервалом [start, end)
func (e CalendarEvent) Overlaps(start, end time.Time) bool {
	return e.Start.Before(end) && e.End.After(start)
}
