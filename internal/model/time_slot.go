package model

import "time"

// TimeSlot кандидат на встречу, живёт только в рамках одного поиска
type TimeSlot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewTimeSlot создаёт слот заданной длительности
func NewTimeSlot(start time.Time, duration time.Duration) TimeSlot {
	return TimeSlot{Start: start, End: start.Add(duration)}
}

// Duration возвращает длительность слота
func (s TimeSlot) Duration() time.Duration {
	return s.End.Sub(s.Start)
}
