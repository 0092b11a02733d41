package model

import "time"

type CallStatus string

const (
	CallStatusInProgress CallStatus = "in_progress"
	CallStatusCompleted  CallStatus = "completed"
)

// CallRecord административные данные звонка
type CallRecord struct {
	ID              int64      `json:"id"`
	CallID          string     `json:"call_id"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         *time.Time `json:"end_time"`
	DurationSeconds *int       `json:"duration_seconds"`
	Language        string     `json:"language"`
	CallerName      *string    `json:"caller_name"` // указатель - имя может быть ещё не известно
	Status          CallStatus `json:"status"`
}
