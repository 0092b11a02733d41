package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/receptionist/internal/model"
	"github.com/Freeeeeet/receptionist/internal/repository/base"
)

type TeacherRepository struct {
	*base.Repository
}

func NewTeacherRepository(db base.Querier) *TeacherRepository {
	return &TeacherRepository{Repository: base.NewRepository(db)}
}

// GetByName получает учителя по имени (без учёта регистра), nil если не найден
func (r *TeacherRepository) GetByName(ctx context.Context, name string) (*model.Teacher, error) {
	query := `
		SELECT id, name, subject, email, phone, office_hours, calendar_id, created_at
		FROM teachers
		WHERE lower(name) = lower($1)
	`

	var t model.Teacher
	err := r.QueryRow(ctx, query, name).Scan(
		&t.ID,
		&t.Name,
		&t.Subject,
		&t.Email,
		&t.Phone,
		&t.OfficeHours,
		&t.CalendarID,
		&t.CreatedAt,
	)

	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get teacher by name: %w", err)
	}

	return &t, nil
}

// List возвращает всех учителей по алфавиту
func (r *TeacherRepository) List(ctx context.Context) ([]*model.Teacher, error) {
	query := `
		SELECT id, name, subject, email, phone, office_hours, calendar_id, created_at
		FROM teachers
		ORDER BY name
	`

	rows, err := r.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list teachers: %w", err)
	}
	defer rows.Close()

	var teachers []*model.Teacher
	for rows.Next() {
		var t model.Teacher
		err := rows.Scan(
			&t.ID,
			&t.Name,
			&t.Subject,
			&t.Email,
			&t.Phone,
			&t.OfficeHours,
			&t.CalendarID,
			&t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan teacher: %w", err)
		}
		teachers = append(teachers, &t)
	}

	return teachers, rows.Err()
}

// CalendarIDs возвращает различные календари учителей (без общего)
func (r *TeacherRepository) CalendarIDs(ctx context.Context) ([]string, error) {
	rows, err := r.Query(ctx, `SELECT DISTINCT calendar_id FROM teachers WHERE calendar_id IS NOT NULL AND calendar_id <> ''`)
	if err != nil {
		return nil, fmt.Errorf("list teacher calendars: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan calendar id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}
