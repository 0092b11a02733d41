package reminder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/receptionist/internal/model"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Scheduler ставит напоминание за lead до начала встречи
type Scheduler struct {
	client enqueuer
	lead   time.Duration
	now    func() time.Time
	logger *zap.Logger
}

func NewScheduler(client enqueuer, lead time.Duration, logger *zap.Logger) *Scheduler {
	if lead <= 0 {
		lead = 24 * time.Hour
	}
	return &Scheduler{client: client, lead: lead, now: time.Now, logger: logger}
}

// ScheduleReminder ставит задачу для записанной встречи. Встречи без телефона
// и встречи ближе lead пропускаются без ошибки.
func (s *Scheduler) ScheduleReminder(ctx context.Context, req model.AppointmentRequest, result model.SchedulingResult) error {
	if result.Outcome != model.OutcomeScheduled || result.ConfirmedSlot == nil || req.ContactPhone == "" {
		return nil
	}

	start := result.ConfirmedSlot.Start
	fireAt := start.Add(-s.lead)
	if !fireAt.After(s.now()) {
		s.logger.Debug("Appointment is too close for a reminder",
			zap.String("appointment_id", result.AppointmentID),
			zap.Time("start_time", start))
		return nil
	}

	task, opts, err := NewTask(Payload{
		AppointmentID: result.AppointmentID,
		ParentName:    req.ParentName,
		TeacherName:   req.TeacherName,
		Phone:         req.ContactPhone,
		Language:      req.Language,
		StartTime:     start,
	}, fireAt)
	if err != nil {
		return err
	}

	info, err := s.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			return nil
		}
		return fmt.Errorf("enqueue reminder for %s: %w", result.AppointmentID, err)
	}

	s.logger.Info("Reminder scheduled",
		zap.String("appointment_id", result.AppointmentID),
		zap.String("task_id", info.ID),
		zap.Time("fire_at", fireAt))
	return nil
}
