package domain

import (
	"fmt"
	"sort"
	"time"
)

// Slot is a bookable interval.
type Slot struct {
	Date      string    `json:"date"`
	StartTime string    `json:"startTime"`
	EndTime   string    `json:"endTime"`
	StartsAt  time.Time `json:"startsAt"`
	EndsAt    time.Time `json:"endsAt"`
}

// SlotQuery parameterizes ComputeSlots. From and To are calendar days in
// Location, both inclusive.
type SlotQuery struct {
	From         time.Time
	To           time.Time
	Duration     time.Duration
	Step         time.Duration
	NotBefore    time.Time
	Location     *time.Location
	MaxRangeDays int
}

// ComputeSlots lists every slot of q.Duration, stepping by q.Step, that fits
// inside an active availability window, starts no earlier than q.NotBefore and
// does not overlap an active booking.
func ComputeSlots(windows []Availability, booked []*Reservation, q SlotQuery) ([]Slot, error) {
	if q.Duration <= 0 {
		return nil, fmt.Errorf("%w: slot duration must be positive", ErrInvalidInput)
	}
	step := q.Step
	if step <= 0 {
		step = q.Duration
	}
	loc := q.Location
	if loc == nil {
		loc = time.UTC
	}
	fy, fm, fd := q.From.In(loc).Date()
	ty, tm, td := q.To.In(loc).Date()
	first := time.Date(fy, fm, fd, 0, 0, 0, 0, loc)
	last := time.Date(ty, tm, td, 0, 0, 0, 0, loc)
	if last.Before(first) {
		return nil, fmt.Errorf("%w: range end is before range start", ErrInvalidInput)
	}
	days := 0
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		days++
	}
	if q.MaxRangeDays > 0 && days > q.MaxRangeDays {
		return nil, fmt.Errorf("%w: range cannot exceed %d days", ErrInvalidInput, q.MaxRangeDays)
	}

	active := make([]*Reservation, 0, len(booked))
	for _, r := range booked {
		if r.Status.IsActive() {
			active = append(active, r)
		}
	}

	var slots []Slot
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		for _, w := range windows {
			if !w.IsActive || w.DayOfWeek != day.Weekday() {
				continue
			}
			ws, we, err := w.Bounds()
			if err != nil {
				continue
			}
			windowEnd := we.On(day, loc)
			for start := ws.On(day, loc); !start.Add(q.Duration).After(windowEnd); start = start.Add(step) {
				end := start.Add(q.Duration)
				if start.Before(q.NotBefore) || overlapsAny(active, start, end) {
					continue
				}
				slots = append(slots, Slot{
					Date:      start.Format(DateLayout),
					StartTime: start.Format("15:04"),
					EndTime:   end.Format("15:04"),
					StartsAt:  start.UTC(),
					EndsAt:    end.UTC(),
				})
			}
		}
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].StartsAt.Before(slots[j].StartsAt) })
	return slots, nil
}

func overlapsAny(reservations []*Reservation, start, end time.Time) bool {
	for _, r := range reservations {
		if r.Overlaps(start, end) {
			return true
		}
	}
	return false
}

// FitsAvailability reports whether [start, end) lies inside one window.
// Both instants must fall on the same calendar day in loc.
func FitsAvailability(windows []Availability, start, end time.Time, loc *time.Location) bool {
	ls, le := start.In(loc), end.In(loc)
	if ls.YearDay() != le.YearDay() || ls.Year() != le.Year() {
		return false
	}
	s := ClockTime(ls.Hour()*60 + ls.Minute())
	e := ClockTime(le.Hour()*60 + le.Minute())
	for _, w := range windows {
		if w.Contains(ls.Weekday(), s, e) {
			return true
		}
	}
	return false
}
