package dblayer

import (
	"sort"

	"github.com/yiwamoto0208/asa-katsu-calender/dbtypes"
)

// MonthData is one month's worth of calendar state, as returned by
// FetchMonth.  The business-rule predicates below run against this snapshot,
// which can be up to one cache TTL stale.
type MonthData struct {
	MonthID   string
	Events    map[string]*dbtypes.SignupEvent
	DayStatus map[string]*dbtypes.DayStatus
	Locked    bool

	// Board is ordered by descending timestamp, as returned by the store
	// query.
	Board []*dbtypes.BoardMessage
}

// Held reports whether the activity is held on the given date.  Dates with
// no day-status document are not held.
func (md *MonthData) Held(date string) bool {
	status, ok := md.DayStatus[date]
	return ok && status.IsHeld
}

// EventsOn returns the signup events on the given date, oldest first.
func (md *MonthData) EventsOn(date string) []*dbtypes.SignupEvent {
	var events []*dbtypes.SignupEvent
	for _, event := range md.Events {
		if event.Date == date {
			events = append(events, event)
		}
	}
	sort.Slice(events, func(i, j int) bool {
		if !events[i].CreatedAt.Equal(events[j].CreatedAt) {
			return events[i].CreatedAt.Before(events[j].CreatedAt)
		}
		return events[i].ID < events[j].ID
	})
	return events
}

// CanAdd checks whether a signup for name may be added on date.  Proxy adds
// skip the duplicate-name guard: an admin may deliberately register someone
// else under any name.  The capacity cap applies to everyone.
func (md *MonthData) CanAdd(date, name string, proxy bool) error {
	if md.Locked {
		return ErrMonthLocked
	}
	if !md.Held(date) {
		return ErrDayNotHeld
	}

	events := md.EventsOn(date)
	if len(events) >= MaxShiftsPerDay {
		return ErrDayFull
	}

	if !proxy {
		for _, event := range events {
			if event.Name == name {
				return ErrAlreadySignedUp
			}
		}
	}

	return nil
}

// CanRemove checks whether requester may remove the given signup event.  The
// author may remove their own signup, an admin may remove any signup, and
// nobody may remove while the month is locked.
func (md *MonthData) CanRemove(event *dbtypes.SignupEvent, requester string, admin bool) error {
	if md.Locked {
		return ErrMonthLocked
	}
	if !admin && event.Name != requester {
		return ErrPermissionDenied
	}
	return nil
}
