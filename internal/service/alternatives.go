package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/receptionist/internal/model"
	"go.uber.org/zap"
)

// DayBlock блок приёма внутри дня, кандидаты начинаются в [StartHour:00, EndHour:00)
type DayBlock struct {
	StartHour int
	EndHour   int
}

// SlotTemplate дневной шаблон приёма
type SlotTemplate struct {
	Blocks      []DayBlock
	Granularity time.Duration
}

// DefaultSlotTemplate утро 09-12 и день 14-17 с шагом 30 минут
func DefaultSlotTemplate() SlotTemplate {
	return SlotTemplate{
		Blocks: []DayBlock{
			{StartHour: 9, EndHour: 12},
			{StartHour: 14, EndHour: 17},
		},
		Granularity: 30 * time.Minute,
	}
}

// Candidates возвращает начала слотов дня в порядке проверки:
// блоки по порядку, внутри блока по возрастанию
func (t SlotTemplate) Candidates(day time.Time) []time.Time {
	var starts []time.Time
	for _, block := range t.Blocks {
		blockStart := time.Date(day.Year(), day.Month(), day.Day(), block.StartHour, 0, 0, 0, day.Location())
		blockEnd := time.Date(day.Year(), day.Month(), day.Day(), block.EndHour, 0, 0, 0, day.Location())
		for start := blockStart; start.Before(blockEnd); start = start.Add(t.Granularity) {
			starts = append(starts, start)
		}
	}
	return starts
}

// SearchOptions границы поиска
type SearchOptions struct {
	DaysToCheck int
	MaxResults  int
}

// Верхние границы поиска: каждый день это отдельные запросы к календарю
const (
	MaxSearchDays    = 14
	MaxSearchResults = 10
)

func DefaultSearchOptions() SearchOptions {
	return SearchOptions{DaysToCheck: 7, MaxResults: 3}
}

// Bounded подставляет значения по умолчанию и обрезает границы до максимума
func (o SearchOptions) Bounded() SearchOptions {
	if o.DaysToCheck <= 0 {
		o.DaysToCheck = DefaultSearchOptions().DaysToCheck
	}
	if o.MaxResults <= 0 {
		o.MaxResults = DefaultSearchOptions().MaxResults
	}
	o.DaysToCheck = min(o.DaysToCheck, MaxSearchDays)
	o.MaxResults = min(o.MaxResults, MaxSearchResults)
	return o
}

// SlotSearch подбирает свободные альтернативы по шаблону
type SlotSearch struct {
	checker  *AvailabilityChecker
	template SlotTemplate
	location *time.Location
	now      func() time.Time
	logger   *zap.Logger
}

func NewSlotSearch(checker *AvailabilityChecker, template SlotTemplate, location *time.Location, logger *zap.Logger) *SlotSearch {
	return &SlotSearch{
		checker:  checker,
		template: template,
		location: location,
		now:      time.Now,
		logger:   logger,
	}
}

// WithClock подменяет источник текущего времени
func (s *SlotSearch) WithClock(now func() time.Time) *SlotSearch {
	s.now = now
	return s
}

// SuggestAlternatives перебирает дни начиная с даты desired и возвращает
// не больше opts.MaxResults свободных слотов. Пустой результат - это не ошибка.
// Ошибка календаря прерывает поиск, найденное к этому моменту отбрасывается.
func (s *SlotSearch) SuggestAlternatives(ctx context.Context, calendarID string, desired time.Time, duration time.Duration, opts SearchOptions) ([]model.TimeSlot, error) {
	if duration <= 0 {
		return nil, ErrInvalidWindow
	}
	opts = opts.Bounded()

	desired = desired.In(s.location)
	now := s.now()
	firstDay := time.Date(desired.Year(), desired.Month(), desired.Day(), 0, 0, 0, 0, s.location)

	suggestions := make([]model.TimeSlot, 0, opts.MaxResults)
	checked := 0

	for day := 0; day < opts.DaysToCheck; day++ {
		date := firstDay.AddDate(0, 0, day)

		for _, start := range s.template.Candidates(date) {
			// Не предлагаем прошлое и время раньше запрошенного
			if start.Before(desired) || start.Before(now) {
				continue
			}

			slot := model.NewTimeSlot(start, duration)
			free, err := s.checker.IsAvailable(ctx, calendarID, slot.Start, slot.End)
			checked++
			if err != nil {
				return nil, fmt.Errorf("check candidate %s: %w", start.Format(time.RFC3339), err)
			}

			if !free {
				continue
			}

			suggestions = append(suggestions, slot)
			if len(suggestions) >= opts.MaxResults {
				s.logDone(calendarID, desired, checked, suggestions)
				return suggestions, nil
			}
		}
	}

	s.logDone(calendarID, desired, checked, suggestions)
	return suggestions, nil
}

func (s *SlotSearch) logDone(calendarID string, desired time.Time, checked int, found []model.TimeSlot) {
	s.logger.Debug("Alternative slot search finished",
		zap.String("calendar_id", calendarID),
		zap.Time("desired", desired),
		zap.Int("candidates_checked", checked),
		zap.Int("found", len(found)))
}
