package service

import (
	"context"
	"testing"
	"time"

	"github.com/Freeeeeet/receptionist/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSearch(provider *stubProvider, now time.Time) *SlotSearch {
	checker := NewAvailabilityChecker(provider, testLogger())
	return NewSlotSearch(checker, DefaultSlotTemplate(), time.UTC, testLogger()).WithClock(fixedClock(now))
}

func starts(slots []model.TimeSlot) []string {
	result := make([]string, 0, len(slots))
	for _, s := range slots {
		result = append(result, s.Start.Format("01-02 15:04"))
	}
	return result
}

func TestSlotTemplate_Candidates(t *testing.T) {
	candidates := DefaultSlotTemplate().Candidates(march10(0, 0))

	var got []string
	for _, c := range candidates {
		got = append(got, c.Format("15:04"))
	}

	assert.Equal(t, []string{
		"09:00", "09:30", "10:00", "10:30", "11:00", "11:30",
		"14:00", "14:30", "15:00", "15:30", "16:00", "16:30",
	}, got)
}

func TestSuggestAlternatives_ConflictAtTen(t *testing.T) {
	provider := newStubProvider()
	provider.busy("primary", march10(10, 0), march10(10, 30))

	search := newTestSearch(provider, march10(8, 0))

	slots, err := search.SuggestAlternatives(context.Background(), "primary", march10(10, 0), 30*time.Minute, DefaultSearchOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{"03-10 10:30", "03-10 11:00", "03-10 11:30"}, starts(slots))
	for _, s := range slots {
		assert.Equal(t, 30*time.Minute, s.Duration())
	}

	// 10:00 занято, дальше три свободных подряд - после них поиск останавливается
	assert.Equal(t, 4, provider.listCalls)
}

func TestSuggestAlternatives_MorningBeforeAfternoon(t *testing.T) {
	provider := newStubProvider()
	provider.busy("primary", march10(10, 0), march10(12, 0))

	search := newTestSearch(provider, march10(8, 0))

	slots, err := search.SuggestAlternatives(context.Background(), "primary", march10(10, 0), 30*time.Minute, DefaultSearchOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{"03-10 14:00", "03-10 14:30", "03-10 15:00"}, starts(slots))
}

func TestSuggestAlternatives_RollsToNextDay(t *testing.T) {
	provider := newStubProvider()
	provider.busy("primary", march10(9, 0), march10(17, 0))

	search := newTestSearch(provider, march10(8, 0))

	slots, err := search.SuggestAlternatives(context.Background(), "primary", march10(9, 0), 30*time.Minute, SearchOptions{DaysToCheck: 7, MaxResults: 2})
	require.NoError(t, err)

	assert.Equal(t, []string{"03-11 09:00", "03-11 09:30"}, starts(slots))
}

func TestSuggestAlternatives_NeverExceedsMaxResults(t *testing.T) {
	for _, max := range []int{1, 2, 3, 5, 10} {
		provider := newStubProvider()
		search := newTestSearch(provider, march10(8, 0))

		slots, err := search.SuggestAlternatives(context.Background(), "primary", march10(9, 0), 30*time.Minute, SearchOptions{DaysToCheck: 7, MaxResults: max})
		require.NoError(t, err)
		assert.Len(t, slots, max)
	}
}

func TestSuggestAlternatives_EverySlotIsAvailable(t *testing.T) {
	provider := newStubProvider()
	provider.busy("primary", march10(9, 15), march10(9, 45))
	provider.busy("primary", march10(11, 0), march10(14, 30))
	provider.busy("primary", march10(15, 0), march10(15, 10))

	search := newTestSearch(provider, march10(8, 0))
	checker := NewAvailabilityChecker(provider, testLogger())

	slots, err := search.SuggestAlternatives(context.Background(), "primary", march10(9, 0), 45*time.Minute, SearchOptions{DaysToCheck: 2, MaxResults: 10})
	require.NoError(t, err)
	require.NotEmpty(t, slots)

	for _, s := range slots {
		free, err := checker.IsAvailable(context.Background(), "primary", s.Start, s.End)
		require.NoError(t, err)
		assert.True(t, free, "slot %s must be free", s.Start)
	}

	for i := 1; i < len(slots); i++ {
		assert.True(t, slots[i-1].Start.Before(slots[i].Start))
	}
}

func TestSuggestAlternatives_ExhaustedHorizon(t *testing.T) {
	provider := newStubProvider()
	provider.busy("primary", march10(0, 0), march10(0, 0).AddDate(0, 0, 3))

	search := newTestSearch(provider, march10(8, 0))

	slots, err := search.SuggestAlternatives(context.Background(), "primary", march10(9, 0), 30*time.Minute, SearchOptions{DaysToCheck: 3, MaxResults: 3})
	require.NoError(t, err)
	assert.NotNil(t, slots)
	assert.Empty(t, slots)
	assert.Equal(t, 36, provider.listCalls)
}

func TestSuggestAlternatives_CapsCallerBounds(t *testing.T) {
	provider := newStubProvider()
	provider.busy("primary", march10(0, 0), march10(0, 0).AddDate(0, 0, 1000))

	search := newTestSearch(provider, march10(8, 0))

	slots, err := search.SuggestAlternatives(context.Background(), "primary", march10(9, 0), 30*time.Minute, SearchOptions{DaysToCheck: 100000, MaxResults: 1000000})
	require.NoError(t, err)
	assert.Empty(t, slots)
	assert.Equal(t, 12*MaxSearchDays, provider.listCalls)

	free := newStubProvider()
	slots, err = newTestSearch(free, march10(8, 0)).SuggestAlternatives(context.Background(), "primary", march10(9, 0), 30*time.Minute, SearchOptions{DaysToCheck: 7, MaxResults: 1000000})
	require.NoError(t, err)
	assert.Len(t, slots, MaxSearchResults)
}

func TestSearchOptions_Bounded(t *testing.T) {
	cases := []struct {
		in       SearchOptions
		expected SearchOptions
	}{
		{SearchOptions{}, DefaultSearchOptions()},
		{SearchOptions{DaysToCheck: 3, MaxResults: 2}, SearchOptions{DaysToCheck: 3, MaxResults: 2}},
		{SearchOptions{DaysToCheck: -1, MaxResults: 5}, SearchOptions{DaysToCheck: 7, MaxResults: 5}},
		{SearchOptions{DaysToCheck: 100000, MaxResults: 1000000}, SearchOptions{DaysToCheck: MaxSearchDays, MaxResults: MaxSearchResults}},
	}

	for _, c := range cases {
		assert.Equal(t, c.expected, c.in.Bounded())
	}
}

func TestSuggestAlternatives_ProviderErrorDiscardsPartial(t *testing.T) {
	provider := newStubProvider()
	provider.listErr = errNetwork
	provider.listFailAfter = 3

	search := newTestSearch(provider, march10(8, 0))

	slots, err := search.SuggestAlternatives(context.Background(), "primary", march10(9, 0), 30*time.Minute, DefaultSearchOptions())
	require.Error(t, err)
	assert.Nil(t, slots)
	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.ErrorIs(t, err, errNetwork)
	assert.Equal(t, 3, provider.listCalls)
}

func TestSuggestAlternatives_SkipsPastCandidates(t *testing.T) {
	provider := newStubProvider()
	search := newTestSearch(provider, march10(11, 10))

	slots, err := search.SuggestAlternatives(context.Background(), "primary", march10(9, 0), 30*time.Minute, DefaultSearchOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{"03-10 11:30", "03-10 14:00", "03-10 14:30"}, starts(slots))
}

func TestSuggestAlternatives_UsesSchoolTimezone(t *testing.T) {
	kolkata := time.FixedZone("IST", 5*3600+1800)
	provider := newStubProvider()
	checker := NewAvailabilityChecker(provider, testLogger())
	search := NewSlotSearch(checker, DefaultSlotTemplate(), kolkata, testLogger()).WithClock(fixedClock(march10(0, 0)))

	// 04:30 UTC = 10:00 IST
	slots, err := search.SuggestAlternatives(context.Background(), "primary", march10(4, 30), 30*time.Minute, SearchOptions{DaysToCheck: 1, MaxResults: 1})
	require.NoError(t, err)
	require.Len(t, slots, 1)

	assert.Equal(t, "10:00", slots[0].Start.Format("15:04"))
	assert.Equal(t, kolkata, slots[0].Start.Location())
}

func TestSuggestAlternatives_InvalidDuration(t *testing.T) {
	provider := newStubProvider()
	search := newTestSearch(provider, march10(8, 0))

	_, err := search.SuggestAlternatives(context.Background(), "primary", march10(9, 0), 0, DefaultSearchOptions())
	assert.ErrorIs(t, err, ErrInvalidWindow)
	assert.Zero(t, provider.listCalls)
}
