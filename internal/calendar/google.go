package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/receptionist/internal/model"
	"go.uber.org/zap"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

const (
	managedPropertyKey   = "receptionist"
	managedPropertyValue = "managed"
)

// GoogleProvider календарь Google (API v3)
type GoogleProvider struct {
	service  *gcal.Service
	location *time.Location
	logger   *zap.Logger
}

// NewGoogleProvider создаёт клиента по файлу сервисного аккаунта
func NewGoogleProvider(ctx context.Context, credentialsFile string, location *time.Location, logger *zap.Logger) (*GoogleProvider, error) {
	opts := []option.ClientOption{option.WithScopes(gcal.CalendarScope)}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	service, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}

	return &GoogleProvider{
		service:  service,
		location: location,
		logger:   logger,
	}, nil
}

// ListEvents получает все экземпляры событий в окне, постранично
func (p *GoogleProvider) ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]model.CalendarEvent, error) {
	var events []model.CalendarEvent
	pageToken := ""

	for {
		call := p.service.Events.List(calendarID).
			TimeMin(timeMin.Format(time.RFC3339)).
			TimeMax(timeMax.Format(time.RFC3339)).
			SingleEvents(true).
			OrderBy("startTime").
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		result, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("list events: %w", err)
		}

		for _, item := range result.Items {
			event, err := p.fromGoogle(item)
			if err != nil {
				return nil, fmt.Errorf("parse event %s: %w", item.Id, err)
			}
			events = append(events, event)
		}

		if result.NextPageToken == "" {
			break
		}
		pageToken = result.NextPageToken
	}

	p.logger.Debug("Listed calendar events",
		zap.String("calendar_id", calendarID),
		zap.Time("time_min", timeMin),
		zap.Time("time_max", timeMax),
		zap.Int("count", len(events)))

	return events, nil
}

// InsertEvent создаёт событие в календаре.
// Google не проверяет пересечения при вставке, поэтому ErrSlotTaken отсюда не приходит.
func (p *GoogleProvider) InsertEvent(ctx context.Context, calendarID string, event model.CalendarEvent) (*model.CalendarEvent, error) {
	body := &gcal.Event{
		Summary:     event.Title,
		Description: event.Description,
		Start: &gcal.EventDateTime{
			DateTime: event.Start.In(p.location).Format(time.RFC3339),
			TimeZone: p.location.String(),
		},
		End: &gcal.EventDateTime{
			DateTime: event.End.In(p.location).Format(time.RFC3339),
			TimeZone: p.location.String(),
		},
	}
	if event.Managed {
		body.ExtendedProperties = &gcal.EventExtendedProperties{
			Private: map[string]string{managedPropertyKey: managedPropertyValue},
		}
	}

	created, err := p.service.Events.Insert(calendarID, body).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}

	p.logger.Info("Calendar event created",
		zap.String("calendar_id", calendarID),
		zap.String("event_id", created.Id),
		zap.String("html_link", created.HtmlLink))

	result, err := p.fromGoogle(created)
	if err != nil {
		return nil, fmt.Errorf("parse created event: %w", err)
	}
	return &result, nil
}

func (p *GoogleProvider) fromGoogle(item *gcal.Event) (model.CalendarEvent, error) {
	start, err := p.parseDateTime(item.Start)
	if err != nil {
		return model.CalendarEvent{}, fmt.Errorf("start: %w", err)
	}
	end, err := p.parseDateTime(item.End)
	if err != nil {
		return model.CalendarEvent{}, fmt.Errorf("end: %w", err)
	}

	managed := false
	if item.ExtendedProperties != nil {
		managed = item.ExtendedProperties.Private[managedPropertyKey] == managedPropertyValue
	}

	var created time.Time
	if item.Created != "" {
		if t, err := time.Parse(time.RFC3339, item.Created); err == nil {
			created = t
		}
	}

	return model.CalendarEvent{
		ID:          item.Id,
		Title:       item.Summary,
		Description: item.Description,
		Start:       start,
		End:         end,
		Managed:     managed,
		Created:     created,
	}, nil
}

// parseDateTime разбирает dateTime (RFC3339) или date (событие на весь день)
func (p *GoogleProvider) parseDateTime(dt *gcal.EventDateTime) (time.Time, error) {
	if dt == nil {
		return time.Time{}, fmt.Errorf("missing date")
	}
	if dt.DateTime != "" {
		t, err := time.Parse(time.RFC3339, dt.DateTime)
		if err != nil {
			return time.Time{}, err
		}
		return t.In(p.location), nil
	}
	return time.ParseInLocation("2006-01-02", dt.Date, p.location)
}
