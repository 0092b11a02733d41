// Package reminder ставит SMS-напоминания о встречах в очередь asynq
// и отправляет их накануне встречи.
package reminder

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const TypeAppointmentReminder = "appointment:reminder"

// Payload данные задачи напоминания
type Payload struct {
	AppointmentID string    `json:"appointment_id"`
	ParentName    string    `json:"parent_name"`
	TeacherName   string    `json:"teacher_name"`
	Phone         string    `json:"phone"`
	Language      string    `json:"language"`
	StartTime     time.Time `json:"start_time"`
}

// NewTask собирает задачу, которая сработает в fireAt.
// TaskID по ID встречи не даёт поставить второе напоминание на ту же встречу.
func NewTask(payload Payload, fireAt time.Time) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal reminder payload: %w", err)
	}

	task := asynq.NewTask(TypeAppointmentReminder, b)
	opts := []asynq.Option{
		asynq.ProcessAt(fireAt),
		asynq.TaskID("reminder:" + payload.AppointmentID),
		asynq.MaxRetry(3),
		// после начала встречи напоминание бессмысленно
		asynq.Deadline(payload.StartTime),
	}

	return task, opts, nil
}
