package reminder

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Freeeeeet/receptionist/internal/formatting"
	"github.com/Freeeeeet/receptionist/internal/i18n"
	"github.com/Freeeeeet/receptionist/internal/model"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

type AppointmentGetter interface {
	GetByID(ctx context.Context, id string) (*model.Appointment, error)
}

type SMSSender interface {
	Send(ctx context.Context, to, body string) error
}

// Handler обрабатывает задачи напоминаний
type Handler struct {
	appointments AppointmentGetter
	sms          SMSSender
	location     *time.Location
	logger       *zap.Logger
}

func NewHandler(appointments AppointmentGetter, sms SMSSender, location *time.Location, logger *zap.Logger) *Handler {
	if location == nil {
		location = time.UTC
	}
	return &Handler{appointments: appointments, sms: sms, location: location, logger: logger}
}

// ProcessTask отправляет SMS, если встреча всё ещё запланирована.
// Ошибка базы или SMS возвращается, чтобы asynq повторил задачу.
func (h *Handler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var p Payload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		h.logger.Error("Invalid reminder payload", zap.Error(err))
		return fmt.Errorf("decode reminder payload: %v: %w", err, asynq.SkipRetry)
	}

	log := h.logger.With(zap.String("appointment_id", p.AppointmentID))

	appointment, err := h.appointments.GetByID(ctx, p.AppointmentID)
	if err != nil {
		return fmt.Errorf("get appointment %s: %w", p.AppointmentID, err)
	}
	if appointment == nil || appointment.Status != model.AppointmentStatusScheduled {
		log.Info("Appointment is no longer scheduled, reminder dropped")
		return nil
	}

	// время берём из базы: встречу могли перенести вручную
	start := appointment.StartTime.In(h.location)
	body := i18n.T(i18n.KeyAppointmentReminder, i18n.Normalize(p.Language), map[string]string{
		"teacher": appointment.TeacherName,
		"date":    formatting.SpokenDate(start),
		"time":    formatting.SpokenTime(start),
	})

	if err := h.sms.Send(ctx, p.Phone, body); err != nil {
		return fmt.Errorf("send reminder: %w", err)
	}

	log.Info("Reminder sent", zap.String("to", p.Phone))
	return nil
}

// Worker сервер asynq, обрабатывающий очередь напоминаний
type Worker struct {
	server  *asynq.Server
	handler *Handler
	logger  *zap.Logger
}

func NewWorker(redis asynq.RedisConnOpt, handler *Handler, logger *zap.Logger) *Worker {
	server := asynq.NewServer(redis, asynq.Config{
		Concurrency: 5,
		Logger:      logger.Named("asynq").Sugar(),
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			logger.Warn("Reminder task failed", zap.String("type", task.Type()), zap.Error(err))
		}),
	})
	return &Worker{server: server, handler: handler, logger: logger}
}

// Start запускает обработку в фоне
func (w *Worker) Start() error {
	mux := asynq.NewServeMux()
	mux.Handle(TypeAppointmentReminder, w.handler)

	w.logger.Info("Starting reminder worker")
	if err := w.server.Start(mux); err != nil {
		return fmt.Errorf("start reminder worker: %w", err)
	}
	return nil
}

// Shutdown дожидается текущих задач и останавливает сервер
func (w *Worker) Shutdown() {
	w.logger.Info("Stopping reminder worker")
	w.server.Shutdown()
}
