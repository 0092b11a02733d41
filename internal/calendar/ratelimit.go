package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/receptionist/internal/model"
	"golang.org/x/time/rate"
)

// RateLimited ограничивает частоту запросов к провайдеру, чтобы поиск
// альтернатив (до десятков ListEvents подряд) не выбирал квоту API
type RateLimited struct {
	next    Provider
	limiter *rate.Limiter
}

func NewRateLimited(next Provider, rps float64, burst int) *RateLimited {
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

func (p *RateLimited) ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]model.CalendarEvent, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	return p.next.ListEvents(ctx, calendarID, timeMin, timeMax)
}

func (p *RateLimited) InsertEvent(ctx context.Context, calendarID string, event model.CalendarEvent) (*model.CalendarEvent, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	return p.next.InsertEvent(ctx, calendarID, event)
}
