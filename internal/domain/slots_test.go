package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2026-03-09 is a Monday.
var monday = time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)

func mondayWindow(start, end string) Availability {
	return Availability{TeacherID: "t1", DayOfWeek: time.Monday, StartTime: start, EndTime: end, IsActive: true}
}

func TestComputeSlots_StepsInsideWindow(t *testing.T) {
	slots, err := ComputeSlots(
		[]Availability{mondayWindow("09:00", "11:00")},
		nil,
		SlotQuery{From: monday, To: monday, Duration: time.Hour, Step: 30 * time.Minute},
	)
	require.NoError(t, err)

	var starts []string
	for _, s := range slots {
		starts = append(starts, s.StartTime)
		assert.Equal(t, "2026-03-09", s.Date)
	}
	assert.Equal(t, []string{"09:00", "09:30", "10:00"}, starts)
	assert.Equal(t, "11:00", slots[2].EndTime)
}

func TestComputeSlots_SkipsBookedAndPast(t *testing.T) {
	booked := []*Reservation{
		{StartsAt: monday.Add(10 * time.Hour), EndsAt: monday.Add(11 * time.Hour), Status: ReservationConfirmed},
		// cancelled bookings free their slot
		{StartsAt: monday.Add(12 * time.Hour), EndsAt: monday.Add(13 * time.Hour), Status: ReservationCancelled},
	}
	slots, err := ComputeSlots(
		[]Availability{mondayWindow("08:00", "14:00")},
		booked,
		SlotQuery{
			From:      monday,
			To:        monday,
			Duration:  time.Hour,
			Step:      time.Hour,
			NotBefore: monday.Add(9 * time.Hour),
		},
	)
	require.NoError(t, err)

	var starts []string
	for _, s := range slots {
		starts = append(starts, s.StartTime)
	}
	assert.Equal(t, []string{"09:00", "11:00", "12:00", "13:00"}, starts)
}

func TestComputeSlots_MultiDaySortedAndInactiveIgnored(t *testing.T) {
	windows := []Availability{
		{DayOfWeek: time.Tuesday, StartTime: "18:00", EndTime: "19:00", IsActive: true},
		mondayWindow("20:00", "21:00"),
		{DayOfWeek: time.Monday, StartTime: "07:00", EndTime: "08:00", IsActive: false},
	}
	slots, err := ComputeSlots(windows, nil, SlotQuery{From: monday, To: monday.AddDate(0, 0, 6), Duration: time.Hour})
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, "2026-03-09", slots[0].Date)
	assert.Equal(t, "2026-03-10", slots[1].Date)
}

func TestComputeSlots_Timezone(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Istanbul")
	require.NoError(t, err)

	slots, err := ComputeSlots(
		[]Availability{mondayWindow("10:00", "11:00")},
		nil,
		SlotQuery{From: time.Date(2026, 3, 9, 12, 0, 0, 0, loc), To: time.Date(2026, 3, 9, 12, 0, 0, 0, loc), Duration: time.Hour, Location: loc},
	)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, "10:00", slots[0].StartTime)
	assert.Equal(t, 7, slots[0].StartsAt.Hour())
}

func TestComputeSlots_InvalidQueries(t *testing.T) {
	w := []Availability{mondayWindow("09:00", "10:00")}

	_, err := ComputeSlots(w, nil, SlotQuery{From: monday, To: monday})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = ComputeSlots(w, nil, SlotQuery{From: monday, To: monday.AddDate(0, 0, -1), Duration: time.Hour})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = ComputeSlots(w, nil, SlotQuery{From: monday, To: monday.AddDate(0, 0, 40), Duration: time.Hour, MaxRangeDays: 31})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestFitsAvailability(t *testing.T) {
	w := []Availability{mondayWindow("09:00", "12:00")}

	assert.True(t, FitsAvailability(w, monday.Add(9*time.Hour), monday.Add(10*time.Hour), time.UTC))
	assert.True(t, FitsAvailability(w, monday.Add(11*time.Hour), monday.Add(12*time.Hour), time.UTC))
	assert.False(t, FitsAvailability(w, monday.Add(11*time.Hour), monday.Add(13*time.Hour), time.UTC))
	assert.False(t, FitsAvailability(w, monday.AddDate(0, 0, 1).Add(9*time.Hour), monday.AddDate(0, 0, 1).Add(10*time.Hour), time.UTC))
}
