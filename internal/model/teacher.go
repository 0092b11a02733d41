package model

import "time"

type Teacher struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Subject     string    `json:"subject"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	OfficeHours string    `json:"office_hours"`
	CalendarID  *string   `json:"calendar_id"` // nil - используется общий календарь школы
	CreatedAt   time.Time `json:"created_at"`
}
