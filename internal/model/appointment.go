package model

import "time"

type AppointmentStatus string

const (
	AppointmentStatusScheduled AppointmentStatus = "scheduled" // Создана, есть событие в календаре
	AppointmentStatusCancelled AppointmentStatus = "cancelled" // Отменена
	AppointmentStatusCompleted AppointmentStatus = "completed" // Встреча состоялась
)

// Valid проверяет что статус входит в допустимый набор
func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentStatusScheduled, AppointmentStatusCancelled, AppointmentStatusCompleted:
		return true
	}
	return false
}

// Appointment встреча родителя с учителем
type Appointment struct {
	ID              string            `json:"id"` // назначается хранилищем при вставке
	ParentName      string            `json:"parent_name"`
	StudentName     string            `json:"student_name"`
	TeacherName     string            `json:"teacher_name"`
	StartTime       time.Time         `json:"start_time"`
	DurationMinutes int               `json:"duration_minutes"`
	Purpose         string            `json:"purpose"`
	ContactPhone    string            `json:"contact_phone"`
	ContactEmail    string            `json:"contact_email"`
	Language        string            `json:"language"`
	Status          AppointmentStatus `json:"status"`
	EventID         string            `json:"event_id"`          // id события у календарного провайдера
	CallID          *string           `json:"call_id,omitempty"` // звонок, в котором договорились
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// EndTime возвращает время окончания встречи
func (a *Appointment) EndTime() time.Time {
	return a.StartTime.Add(time.Duration(a.DurationMinutes) * time.Minute)
}
