package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/receptionist/internal/calendar"
	"go.uber.org/zap"
)

// AvailabilityChecker проверяет, свободно ли окно в календаре учителя
type AvailabilityChecker struct {
	provider calendar.Provider
	logger   *zap.Logger
}

func NewAvailabilityChecker(provider calendar.Provider, logger *zap.Logger) *AvailabilityChecker {
	return &AvailabilityChecker{
		provider: provider,
		logger:   logger,
	}
}

// IsAvailable возвращает true, если в [start, end) нет ни одного события.
// Ошибка провайдера никогда не превращается в "свободно" или "занято".
func (c *AvailabilityChecker) IsAvailable(ctx context.Context, calendarID string, start, end time.Time) (bool, error) {
	if !end.After(start) {
		return false, ErrInvalidWindow
	}

	events, err := c.provider.ListEvents(ctx, calendarID, start, end)
	if err != nil {
		c.logger.Warn("Availability check failed",
			zap.String("calendar_id", calendarID),
			zap.Time("start", start),
			zap.Time("end", end),
			zap.Error(err))
		return false, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}

	return len(events) == 0, nil
}
