package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/receptionist/internal/model"
	"github.com/Freeeeeet/receptionist/internal/repository/base"
)

type CallRepository struct {
	*base.Repository
}

func NewCallRepository(db base.Querier) *CallRepository {
	return &CallRepository{Repository: base.NewRepository(db)}
}

// Create регистрирует начало звонка
func (r *CallRepository) Create(ctx context.Context, call *model.CallRecord) error {
	query := `
		INSERT INTO call_analytics (call_id, start_time, language, status, caller_name)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := r.QueryRow(ctx, query,
		call.CallID,
		call.StartTime,
		call.Language,
		call.Status,
		call.CallerName,
	).Scan(&call.ID)

	if err != nil {
		if base.IsUniqueViolation(err) {
			return fmt.Errorf("create call record %s: %w", call.CallID, base.ErrDuplicate)
		}
		return fmt.Errorf("create call record: %w", err)
	}

	return nil
}

// GetByCallID получает звонок по call_id
func (r *CallRepository) GetByCallID(ctx context.Context, callID string) (*model.CallRecord, error) {
	query := `
		SELECT id, call_id, start_time, end_time, duration_seconds, language, caller_name, status
		FROM call_analytics
		WHERE call_id = $1
	`

	var call model.CallRecord
	err := r.QueryRow(ctx, query, callID).Scan(
		&call.ID,
		&call.CallID,
		&call.StartTime,
		&call.EndTime,
		&call.DurationSeconds,
		&call.Language,
		&call.CallerName,
		&call.Status,
	)

	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get call by call_id: %w", err)
	}

	return &call, nil
}

// UpdateCallerName сохраняет имя звонящего
func (r *CallRepository) UpdateCallerName(ctx context.Context, callID, callerName string) error {
	return r.update(ctx, `UPDATE call_analytics SET caller_name = $1 WHERE call_id = $2`, callerName, callID)
}

// UpdateLanguage меняет язык разговора
func (r *CallRepository) UpdateLanguage(ctx context.Context, callID, language string) error {
	return r.update(ctx, `UPDATE call_analytics SET language = $1 WHERE call_id = $2`, language, callID)
}

// Complete закрывает звонок
func (r *CallRepository) Complete(ctx context.Context, callID string, endTime time.Time, durationSeconds int) error {
	query := `
		UPDATE call_analytics
		SET end_time = $1, duration_seconds = $2, status = $3
		WHERE call_id = $4
	`
	return r.update(ctx, query, endTime, durationSeconds, model.CallStatusCompleted, callID)
}

func (r *CallRepository) update(ctx context.Context, query string, args ...any) error {
	affected, err := r.ExecAffected(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update call record: %w", err)
	}
	if affected == 0 {
		return base.ErrNotFound
	}
	return nil
}
