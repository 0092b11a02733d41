package model

import "time"

// AppointmentRequest запрос на встречу, собранный агентом во время звонка
type AppointmentRequest struct {
	ParentName   string        `json:"parent_name" validate:"required"`
	StudentName  string        `json:"student_name" validate:"required"`
	TeacherName  string        `json:"teacher_name" validate:"required"`
	StartTime    time.Time     `json:"start_time" validate:"required"`
	Duration     time.Duration `json:"-" validate:"gte=0"` // 0 - длительность по умолчанию
	Purpose      string        `json:"purpose"`
	ContactPhone string        `json:"contact_phone" validate:"required"`
	ContactEmail string        `json:"contact_email" validate:"omitempty,email"`
	Language     string        `json:"language" validate:"omitempty,oneof=en hi"`
	CallID       string        `json:"call_id"`
}

type Outcome string

const (
	OutcomeScheduled Outcome = "scheduled"
	OutcomeConflict  Outcome = "conflict"
	OutcomeFailed    Outcome = "failed"
)

type FailureReason string

const (
	ReasonInvalidRequest     FailureReason = "invalid_request"
	ReasonTeacherLookup      FailureReason = "teacher_lookup_error"
	ReasonProviderError      FailureReason = "provider_error"
	ReasonCalendarWriteError FailureReason = "calendar_write_error"
	ReasonLocalWriteError    FailureReason = "local_write_error" // событие в календаре есть, записи нет
)

// Retryable сообщает, имеет ли смысл повторить всю попытку позже
func (r FailureReason) Retryable() bool {
	switch r {
	case ReasonProviderError, ReasonCalendarWriteError, ReasonTeacherLookup:
		return true
	}
	return false
}

// SchedulingResult итог одной попытки записи.
// Заполнены только поля, относящиеся к Outcome.
type SchedulingResult struct {
	Outcome Outcome `json:"outcome"`

	// scheduled
	AppointmentID string    `json:"appointment_id,omitempty"`
	EventID       string    `json:"event_id,omitempty"`
	ConfirmedSlot *TimeSlot `json:"confirmed_slot,omitempty"`

	// conflict
	SuggestedSlots []TimeSlot `json:"suggested_slots,omitempty"`

	// failed
	Reason FailureReason `json:"reason,omitempty"`
	Detail string        `json:"detail,omitempty"`
	Err    error         `json:"-"`
}

func Scheduled(appointmentID, eventID string, slot TimeSlot) SchedulingResult {
	return SchedulingResult{
		Outcome:       OutcomeScheduled,
		AppointmentID: appointmentID,
		EventID:       eventID,
		ConfirmedSlot: &slot,
	}
}

func Conflict(suggestions []TimeSlot) SchedulingResult {
	if suggestions == nil {
		suggestions = []TimeSlot{}
	}
	return SchedulingResult{Outcome: OutcomeConflict, SuggestedSlots: suggestions}
}

func Failed(reason FailureReason, err error) SchedulingResult {
	res := SchedulingResult{Outcome: OutcomeFailed, Reason: reason, Err: err}
	if err != nil {
		res.Detail = err.Error()
	}
	return res
}

// PartialWrite true, если событие в календаре создано, а локальная запись нет
func (r SchedulingResult) PartialWrite() bool {
	return r.Outcome == OutcomeFailed && r.Reason == ReasonLocalWriteError
}
