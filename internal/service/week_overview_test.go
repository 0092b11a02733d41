package service

import (
	"bytes"
	"context"
	"image/png"
	"testing"

	"github.com/Freeeeeet/receptionist/internal/model"
	"github.com/Freeeeeet/receptionist/internal/render"
	"github.com/Freeeeeet/receptionist/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLister struct {
	appointments []*model.Appointment
	filter       repository.AppointmentFilter
}

func (s *stubLister) List(ctx context.Context, filter repository.AppointmentFilter) ([]*model.Appointment, error) {
	s.filter = filter
	return s.appointments, nil
}

func TestWeekOverview_Items(t *testing.T) {
	f := newSchedulingFixture(t, false)
	ctx := context.Background()

	req := validRequest()
	req.TeacherName = "Mr. David Kim"
	res := f.service.Schedule(ctx, req)
	require.Equal(t, model.OutcomeScheduled, res.Outcome)

	f.provider.busy("primary", march10(14, 0), march10(15, 0))
	f.provider.events["primary"] = append(f.provider.events["primary"], model.CalendarEvent{
		ID:      "evt-orphan",
		Title:   "Parent-Teacher Meeting: Ravi with Mr. David Kim",
		Start:   march10(16, 0),
		End:     march10(16, 30),
		Managed: true,
	})

	lister := &stubLister{appointments: f.store.appointments}
	overview := NewWeekOverview(f.service, lister).WithClock(fixedClock(march10(8, 0)))

	items, err := overview.Items(ctx, "Mr. David Kim", march10(12, 0))
	require.NoError(t, err)
	require.Len(t, items, 3)

	// Встреча из базы не дублируется своим событием календаря
	assert.Equal(t, render.KindScheduled, items[0].Kind)
	assert.Equal(t, "Anita Sharma", items[0].Label)
	assert.Equal(t, render.KindBusy, items[1].Kind)
	assert.Equal(t, "Unrecorded: Ravi with Mr. David Kim", items[2].Label)

	// 10 марта 2024 - воскресенье, неделя с 4 марта
	require.NotNil(t, lister.filter.From)
	assert.Equal(t, 4, lister.filter.From.Day())
	assert.Equal(t, "Mr. David Kim", lister.filter.TeacherName)

	data, err := overview.Render(ctx, "Mr. David Kim", march10(12, 0))
	require.NoError(t, err)
	_, err = png.Decode(bytes.NewReader(data))
	assert.NoError(t, err)
}

func TestWeekOverview_ProviderError(t *testing.T) {
	f := newSchedulingFixture(t, false)
	f.provider.listErr = errNetwork

	_, err := NewWeekOverview(f.service, &stubLister{}).Items(context.Background(), "Mr. David Kim", march10(12, 0))
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestAppointmentKind(t *testing.T) {
	assert.Equal(t, render.KindScheduled, appointmentKind(model.AppointmentStatusScheduled))
	assert.Equal(t, render.KindCancelled, appointmentKind(model.AppointmentStatusCancelled))
	assert.Equal(t, render.KindCompleted, appointmentKind(model.AppointmentStatusCompleted))
}
