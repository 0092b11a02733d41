// Package notify рассылает подтверждения родителям и предупреждения оператору
// по итогам попытки записи. Ошибки каналов только логируются.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/Freeeeeet/receptionist/internal/formatting"
	"github.com/Freeeeeet/receptionist/internal/i18n"
	"github.com/Freeeeeet/receptionist/internal/model"
	"go.uber.org/zap"
)

// EmailChannel канал писем
type EmailChannel interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// SMSChannel канал SMS
type SMSChannel interface {
	Send(ctx context.Context, to, body string) error
}

// AlertChannel канал оператора
type AlertChannel interface {
	ReportPartialWrite(ctx context.Context, req model.AppointmentRequest, result model.SchedulingResult) error
}

// ReminderChannel очередь напоминаний накануне встречи
type ReminderChannel interface {
	ScheduleReminder(ctx context.Context, req model.AppointmentRequest, result model.SchedulingResult) error
}

// DispatcherConfig отправитель и название школы для текстов
type DispatcherConfig struct {
	SchoolName     string
	OrganizerName  string
	OrganizerEmail string
}

// Dispatcher разбирает SchedulingResult по каналам. Нулевой канал выключен.
type Dispatcher struct {
	email     EmailChannel
	sms       SMSChannel
	operator  AlertChannel
	reminders ReminderChannel
	cfg       DispatcherConfig
	logger    *zap.Logger
}

func NewDispatcher(cfg DispatcherConfig, email EmailChannel, sms SMSChannel, operator AlertChannel, logger *zap.Logger) *Dispatcher {
	if email == nil {
		logger.Warn("Email channel is not configured, confirmations will not be emailed")
	}
	if sms == nil {
		logger.Warn("SMS channel is not configured, confirmations will not be texted")
	}
	if operator == nil {
		logger.Warn("Operator channel is not configured, partial writes will only be logged")
	}

	return &Dispatcher{email: email, sms: sms, operator: operator, cfg: cfg, logger: logger}
}

// WithReminders включает напоминания о записанных встречах
func (d *Dispatcher) WithReminders(reminders ReminderChannel) *Dispatcher {
	d.reminders = reminders
	return d
}

// Dispatch отправляет уведомления по результату. Ничего не возвращает:
// сбой уведомления не меняет итог записи.
func (d *Dispatcher) Dispatch(ctx context.Context, req model.AppointmentRequest, result model.SchedulingResult) {
	log := d.logger.With(
		zap.String("outcome", string(result.Outcome)),
		zap.String("teacher", req.TeacherName))

	switch {
	case result.Outcome == model.OutcomeScheduled:
		d.confirm(ctx, log, req, result)
	case result.PartialWrite():
		if d.operator == nil {
			log.Error("Partial write not reported, operator channel disabled",
				zap.String("orphan_event_id", result.EventID))
			return
		}
		if err := d.operator.ReportPartialWrite(ctx, req, result); err != nil {
			log.Error("Failed to report partial write", zap.String("orphan_event_id", result.EventID), zap.Error(err))
		}
	}
}

func (d *Dispatcher) confirm(ctx context.Context, log *zap.Logger, req model.AppointmentRequest, result model.SchedulingResult) {
	if result.ConfirmedSlot == nil {
		log.Warn("Scheduled result without confirmed slot, skipping confirmation")
		return
	}
	slot := *result.ConfirmedSlot
	lang := i18n.Normalize(req.Language)
	message := i18n.T(i18n.KeyAppointmentSuccess, lang, map[string]string{
		"time": formatting.SpokenDateTime(slot.Start),
	})

	if d.email != nil && req.ContactEmail != "" {
		email := EmailMessage{
			ToName:  req.ParentName,
			ToEmail: req.ContactEmail,
			Subject: fmt.Sprintf("%s: meeting with %s on %s", d.cfg.SchoolName, req.TeacherName, formatting.SpokenDateTime(slot.Start)),
			Text:    confirmationText(message, req, slot),
			Invite: BuildInvite(Invite{
				UID:            result.AppointmentID,
				Summary:        fmt.Sprintf("Parent-Teacher Meeting with %s", req.TeacherName),
				Description:    fmt.Sprintf("Student: %s\nPurpose: %s", req.StudentName, req.Purpose),
				Start:          slot.Start,
				End:            slot.End,
				OrganizerName:  d.cfg.OrganizerName,
				OrganizerEmail: d.cfg.OrganizerEmail,
				AttendeeName:   req.ParentName,
				AttendeeEmail:  req.ContactEmail,
			}),
		}
		if err := d.email.Send(ctx, email); err != nil {
			log.Error("Failed to send confirmation email", zap.String("to", req.ContactEmail), zap.Error(err))
		}
	}

	if d.sms != nil && req.ContactPhone != "" {
		if err := d.sms.Send(ctx, req.ContactPhone, message); err != nil {
			log.Error("Failed to send confirmation SMS", zap.String("to", req.ContactPhone), zap.Error(err))
		}
	}

	if d.reminders != nil {
		if err := d.reminders.ScheduleReminder(ctx, req, result); err != nil {
			log.Error("Failed to schedule reminder", zap.String("appointment_id", result.AppointmentID), zap.Error(err))
		}
	}
}

func confirmationText(message string, req model.AppointmentRequest, slot model.TimeSlot) string {
	var text strings.Builder
	fmt.Fprintf(&text, "Dear %s,\n\n%s\n\n", req.ParentName, message)
	fmt.Fprintf(&text, "Teacher: %s\n", req.TeacherName)
	fmt.Fprintf(&text, "Student: %s\n", req.StudentName)
	fmt.Fprintf(&text, "When: %s (%s)\n", formatting.SpokenDateTime(slot.Start), formatting.FormatDuration(int(slot.Duration().Minutes())))
	if req.Purpose != "" {
		fmt.Fprintf(&text, "Purpose: %s\n", req.Purpose)
	}
	return text.String()
}
