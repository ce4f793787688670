package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ClockTime is a wall-clock time of day, stored as minutes since midnight.
type ClockTime int

// ParseClock parses "HH:MM" in 24h format.
func ParseClock(s string) (ClockTime, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return 0, fmt.Errorf("%w: time %q must be HH:MM", ErrInvalidInput, s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("%w: hour in %q is invalid", ErrInvalidInput, s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: minute in %q is invalid", ErrInvalidInput, s)
	}
	return ClockTime(h*60 + m), nil
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// On returns the instant of c on the calendar day of date in loc.
func (c ClockTime) On(date time.Time, loc *time.Location) time.Time {
	y, m, d := date.In(loc).Date()
	return time.Date(y, m, d, int(c)/60, int(c)%60, 0, 0, loc)
}

// Availability is one weekly recurring window in which a teacher accepts bookings.
type Availability struct {
	ID        string       `json:"id"`
	TeacherID string       `json:"teacherId"`
	DayOfWeek time.Weekday `json:"dayOfWeek"`
	StartTime string       `json:"startTime"`
	EndTime   string       `json:"endTime"`
	IsActive  bool         `json:"isActive"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// Bounds parses the window's start and end.
func (a Availability) Bounds() (ClockTime, ClockTime, error) {
	start, err := ParseClock(a.StartTime)
	if err != nil {
		return 0, 0, err
	}
	end, err := ParseClock(a.EndTime)
	if err != nil {
		return 0, 0, err
	}
	if end <= start {
		return 0, 0, fmt.Errorf("%w: availability end %s must be after start %s", ErrInvalidInput, a.EndTime, a.StartTime)
	}
	return start, end, nil
}

// Contains reports whether [start, end) on the window's weekday fits inside the window.
func (a Availability) Contains(day time.Weekday, start, end ClockTime) bool {
	if !a.IsActive || a.DayOfWeek != day {
		return false
	}
	ws, we, err := a.Bounds()
	if err != nil {
		return false
	}
	return start >= ws && end <= we
}

// ValidateWeek checks every window and rejects overlaps on the same weekday.
func ValidateWeek(windows []Availability) error {
	type span struct{ start, end ClockTime }
	byDay := make(map[time.Weekday][]span)
	for _, w := range windows {
		if w.DayOfWeek < time.Sunday || w.DayOfWeek > time.Saturday {
			return fmt.Errorf("%w: day of week %d is out of range", ErrInvalidInput, w.DayOfWeek)
		}
		s, e, err := w.Bounds()
		if err != nil {
			return err
		}
		byDay[w.DayOfWeek] = append(byDay[w.DayOfWeek], span{s, e})
	}
	for day, spans := range byDay {
		sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
		for i := 1; i < len(spans); i++ {
			if spans[i].start < spans[i-1].end {
				return fmt.Errorf("%w: availability windows overlap on %s", ErrInvalidInput, day)
			}
		}
	}
	return nil
}
