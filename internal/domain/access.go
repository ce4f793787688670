package domain

import (
	"fmt"
	"time"
)

// DefaultEarlyJoin is how long before the start a lesson room opens.
const DefaultEarlyJoin = 15 * time.Minute

const (
	MsgNotParticipant = "you are not a participant of this lesson"
	MsgNotConfirmed   = "lesson is not confirmed"
	MsgTooEarly       = "lesson room opens %d minutes before the start time"
	MsgEnded          = "lesson has already ended"
)

// AccessWindow is the closed interval in which a reservation's room can be joined.
type AccessWindow struct {
	OpensAt  time.Time `json:"opensAt"`
	ClosesAt time.Time `json:"closesAt"`
}

// WindowFor returns [StartsAt - earlyJoin, EndsAt].
func WindowFor(r *Reservation, earlyJoin time.Duration) AccessWindow {
	if earlyJoin < 0 {
		earlyJoin = 0
	}
	return AccessWindow{OpensAt: r.StartsAt.Add(-earlyJoin), ClosesAt: r.EndsAt}
}

// Contains is inclusive on both bounds.
func (w AccessWindow) Contains(t time.Time) bool {
	return !t.Before(w.OpensAt) && !t.After(w.ClosesAt)
}

// AccessDecision explains whether a user may enter a lesson room now.
type AccessDecision struct {
	Allowed bool         `json:"allowed"`
	Reason  string       `json:"reason,omitempty"`
	Window  AccessWindow `json:"window"`
	// OpensInSeconds counts down to OpensAt; zero once open.
	OpensInSeconds int64 `json:"opensInSeconds"`
}

// CheckAccess gates entry into the live lesson of r for userID at now.
// Participation is checked first, then status, then the clock.
func CheckAccess(r *Reservation, userID string, now time.Time, earlyJoin time.Duration) AccessDecision {
	w := WindowFor(r, earlyJoin)
	d := AccessDecision{Window: w}
	switch {
	case !r.IsParticipant(userID):
		d.Reason = MsgNotParticipant
	case r.Status != ReservationConfirmed:
		d.Reason = MsgNotConfirmed
	case now.Before(w.OpensAt):
		d.Reason = fmt.Sprintf(MsgTooEarly, int(r.StartsAt.Sub(w.OpensAt)/time.Minute))
		d.OpensInSeconds = int64(w.OpensAt.Sub(now) / time.Second)
	case now.After(w.ClosesAt):
		d.Reason = MsgEnded
	default:
		d.Allowed = true
	}
	return d
}

// AccessDenied is a room refusal. Kind is ErrForbidden or ErrAccessWindow.
type AccessDenied struct {
	Kind   error
	Reason string
}

func (e *AccessDenied) Error() string { return e.Kind.Error() + ": " + e.Reason }

func (e *AccessDenied) Unwrap() error { return e.Kind }

// Err converts a refusal into an *AccessDenied.
func (d AccessDecision) Err() error {
	if d.Allowed {
		return nil
	}
	if d.Reason == MsgNotParticipant {
		return &AccessDenied{Kind: ErrForbidden, Reason: d.Reason}
	}
	return &AccessDenied{Kind: ErrAccessWindow, Reason: d.Reason}
}
