package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/receptionist/internal/i18n"
	"github.com/Freeeeeet/receptionist/internal/model"
	"github.com/Freeeeeet/receptionist/internal/repository/base"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CallStore хранилище звонков
type CallStore interface {
	Create(ctx context.Context, call *model.CallRecord) error
	GetByCallID(ctx context.Context, callID string) (*model.CallRecord, error)
	UpdateCallerName(ctx context.Context, callID, callerName string) error
	UpdateLanguage(ctx context.Context, callID, language string) error
	Complete(ctx context.Context, callID string, endTime time.Time, durationSeconds int) error
}

// CallService ведёт административную запись звонка от начала до конца
type CallService struct {
	calls  CallStore
	now    func() time.Time
	logger *zap.Logger
}

func NewCallService(calls CallStore, logger *zap.Logger) *CallService {
	return &CallService{
		calls:  calls,
		now:    time.Now,
		logger: logger,
	}
}

// StartCall регистрирует новый звонок
func (s *CallService) StartCall(ctx context.Context, language string) (*model.CallRecord, error) {
	language = strings.ToLower(strings.TrimSpace(language))
	if language == "" {
		language = "en"
	}
	if !i18n.Supported(language) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, language)
	}

	call := &model.CallRecord{
		CallID:    uuid.NewString(),
		StartTime: s.now(),
		Language:  language,
		Status:    model.CallStatusInProgress,
	}

	if err := s.calls.Create(ctx, call); err != nil {
		return nil, fmt.Errorf("create call: %w", err)
	}

	s.logger.Info("Call started",
		zap.String("call_id", call.CallID),
		zap.String("language", language))

	return call, nil
}

// IdentifyCaller сохраняет имя звонящего, как только агент его узнал
func (s *CallService) IdentifyCaller(ctx context.Context, callID, callerName string) error {
	callerName = strings.TrimSpace(callerName)
	if callerName == "" {
		return ErrEmptyCallerName
	}

	if err := s.calls.UpdateCallerName(ctx, callID, callerName); err != nil {
		return s.wrap("update caller name", err)
	}

	s.logger.Info("Caller identified",
		zap.String("call_id", callID),
		zap.String("caller_name", callerName))

	return nil
}

// SwitchLanguage переключает язык разговора
func (s *CallService) SwitchLanguage(ctx context.Context, callID, language string) error {
	language = strings.ToLower(strings.TrimSpace(language))
	if !i18n.Supported(language) {
		return fmt.Errorf("%w: %q", ErrUnsupportedLanguage, language)
	}

	if err := s.calls.UpdateLanguage(ctx, callID, language); err != nil {
		return s.wrap("update language", err)
	}

	s.logger.Info("Call language switched",
		zap.String("call_id", callID),
		zap.String("language", language))

	return nil
}

// EndCall закрывает звонок и считает длительность
func (s *CallService) EndCall(ctx context.Context, callID string) (*model.CallRecord, error) {
	call, err := s.calls.GetByCallID(ctx, callID)
	if err != nil {
		return nil, fmt.Errorf("get call: %w", err)
	}
	if call == nil {
		return nil, ErrCallNotFound
	}

	end := s.now()
	duration := int(end.Sub(call.StartTime).Seconds())
	if duration < 0 {
		duration = 0
	}

	if err := s.calls.Complete(ctx, callID, end, duration); err != nil {
		return nil, s.wrap("complete call", err)
	}

	call.EndTime = &end
	call.DurationSeconds = &duration
	call.Status = model.CallStatusCompleted

	s.logger.Info("Call ended",
		zap.String("call_id", callID),
		zap.Int("duration_seconds", duration))

	return call, nil
}

func (s *CallService) wrap(op string, err error) error {
	if errors.Is(err, base.ErrNotFound) {
		return ErrCallNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
