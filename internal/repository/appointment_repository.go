package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/receptionist/internal/model"
	"github.com/Freeeeeet/receptionist/internal/repository/base"
	"github.com/google/uuid"
)

const appointmentColumns = `id::text, parent_name, student_name, teacher_name, start_time, duration_minutes,
	purpose, contact_phone, contact_email, language, status, event_id, call_id, created_at, updated_at`

type AppointmentRepository struct {
	*base.Repository
}

func NewAppointmentRepository(db base.Querier) *AppointmentRepository {
	return &AppointmentRepository{Repository: base.NewRepository(db)}
}

// AppointmentFilter фильтр выборки встреч, пустые поля не ограничивают
type AppointmentFilter struct {
	TeacherName string
	From        *time.Time
	To          *time.Time
	Status      model.AppointmentStatus
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAppointment(row scanner) (*model.Appointment, error) {
	var a model.Appointment
	err := row.Scan(
		&a.ID,
		&a.ParentName,
		&a.StudentName,
		&a.TeacherName,
		&a.StartTime,
		&a.DurationMinutes,
		&a.Purpose,
		&a.ContactPhone,
		&a.ContactEmail,
		&a.Language,
		&a.Status,
		&a.EventID,
		&a.CallID,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Create сохраняет встречу, ID назначает база
func (r *AppointmentRepository) Create(ctx context.Context, a *model.Appointment) error {
	query := `
		INSERT INTO appointments (parent_name, student_name, teacher_name, start_time, duration_minutes,
			purpose, contact_phone, contact_email, language, status, event_id, call_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id::text, created_at, updated_at
	`

	err := r.QueryRow(
		ctx, query,
		a.ParentName,
		a.StudentName,
		a.TeacherName,
		a.StartTime,
		a.DurationMinutes,
		a.Purpose,
		a.ContactPhone,
		a.ContactEmail,
		a.Language,
		a.Status,
		a.EventID,
		a.CallID,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)

	if err != nil {
		if base.IsUniqueViolation(err) {
			return fmt.Errorf("create appointment for event %s: %w", a.EventID, base.ErrDuplicate)
		}
		return fmt.Errorf("create appointment: %w", err)
	}

	return nil
}

// GetByID получает встречу по ID, nil если не найдена
func (r *AppointmentRepository) GetByID(ctx context.Context, id string) (*model.Appointment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}

	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1::uuid`

	a, err := scanAppointment(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get appointment by id: %w", err)
	}

	return a, nil
}

// List возвращает встречи по фильтру, по возрастанию времени начала
func (r *AppointmentRepository) List(ctx context.Context, filter AppointmentFilter) ([]*model.Appointment, error) {
	var (
		conditions []string
		args       []any
	)

	if filter.TeacherName != "" {
		args = append(args, filter.TeacherName)
		conditions = append(conditions, fmt.Sprintf("teacher_name = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("start_time >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, fmt.Sprintf("start_time <= $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT ` + appointmentColumns + ` FROM appointments`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY start_time ASC"

	rows, err := r.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	var appointments []*model.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		appointments = append(appointments, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate appointments: %w", err)
	}

	return appointments, nil
}

// ExistsByEventID проверяет, есть ли локальная запись для события календаря
func (r *AppointmentRepository) ExistsByEventID(ctx context.Context, eventID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM appointments WHERE event_id = $1)`

	var exists bool
	if err := r.QueryRow(ctx, query, eventID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check appointment by event: %w", err)
	}

	return exists, nil
}

// UpdateStatus переводит встречу в другой статус
func (r *AppointmentRepository) UpdateStatus(ctx context.Context, id string, status model.AppointmentStatus) error {
	if _, err := uuid.Parse(id); err != nil {
		return base.ErrNotFound
	}

	query := `
		UPDATE appointments
		SET status = $1, updated_at = now()
		WHERE id = $2::uuid
	`

	affected, err := r.ExecAffected(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("update appointment status: %w", err)
	}

	if affected == 0 {
		return base.ErrNotFound
	}

	return nil
}
