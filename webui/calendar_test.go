package webui

import (
	"testing"

	"github.com/yiwamoto0208/asa-katsu-calender/dblayer"
	"github.com/yiwamoto0208/asa-katsu-calender/dbtypes"
	"github.com/yiwamoto0208/asa-katsu-calender/webui/uitemplates"
)

func month(locked bool) *dblayer.MonthData {
	return &dblayer.MonthData{
		MonthID:   "2024-03",
		Events:    map[string]*dbtypes.SignupEvent{},
		DayStatus: map[string]*dbtypes.DayStatus{},
		Locked:    locked,
	}
}

func markHeld(md *dblayer.MonthData, date string) {
	md.DayStatus[date] = &dbtypes.DayStatus{Date: date, MonthID: md.MonthID, IsHeld: true}
}

func addEvent(md *dblayer.MonthData, id, date, name string) {
	md.Events[id] = &dbtypes.SignupEvent{ID: id, Date: date, MonthID: md.MonthID, Name: name}
}

func cellFor(t *testing.T, weeks [][]uitemplates.DayCell, day int) uitemplates.DayCell {
	t.Helper()
	for _, week := range weeks {
		for _, cell := range week {
			if cell.Day == day {
				return cell
			}
		}
	}
	t.Fatalf("Day %d not found in grid", day)
	return uitemplates.DayCell{}
}

// March 2024 starts on a Friday and ends on a Sunday, so a Monday-first
// grid is exactly five weeks with four leading pad cells and none trailing.
func TestGridShape(t *testing.T) {
	weeks := BuildMonthGrid(month(false), 2024, 3, "alice", false)

	if len(weeks) != 5 {
		t.Fatalf("Got %d weeks, want 5", len(weeks))
	}
	for i, week := range weeks {
		if len(week) != 7 {
			t.Fatalf("Week %d has %d cells, want 7", i, len(week))
		}
	}

	for col := 0; col < 4; col++ {
		if weeks[0][col].Day != 0 {
			t.Errorf("Week 0 cell %d should be padding, got day %d", col, weeks[0][col].Day)
		}
	}
	if got := weeks[0][4]; got.Day != 1 || got.Weekday != "Fri" || got.Date != "2024-03-01" {
		t.Errorf("First day cell is %+v, want day 1 on Fri 2024-03-01", got)
	}
	if got := weeks[0][5]; !got.Saturday || got.Sunday {
		t.Errorf("Column 5 should be Saturday, got %+v", got)
	}
	if got := weeks[4][6]; got.Day != 31 || got.Weekday != "Sun" || !got.Sunday {
		t.Errorf("Last cell is %+v, want day 31 on Sun", got)
	}
}

func TestGridNotHeldDay(t *testing.T) {
	md := month(false)

	cell := cellFor(t, BuildMonthGrid(md, 2024, 3, "alice", false), 4)
	if cell.Held || cell.CanSignUp || cell.ShowProxyForm || cell.Full {
		t.Errorf("Not-held day should be read-only for members, got %+v", cell)
	}
}

func TestGridOpenDay(t *testing.T) {
	md := month(false)
	markHeld(md, "2024-03-05")
	addEvent(md, "ev1", "2024-03-05", "alice")

	cell := cellFor(t, BuildMonthGrid(md, 2024, 3, "bob", false), 5)
	if !cell.Held || !cell.CanSignUp || cell.ShowProxyForm || cell.Full {
		t.Errorf("Open held day for a member: got %+v", cell)
	}
	if len(cell.Signups) != 1 || cell.Signups[0].Mine {
		t.Errorf("Bob should see alice's signup without a highlight, got %+v", cell.Signups)
	}
	if cell.Signups[0].CanRemove {
		t.Errorf("Bob must not be able to remove alice's signup")
	}

	mine := cellFor(t, BuildMonthGrid(md, 2024, 3, "alice", false), 5)
	if !mine.Signups[0].Mine || !mine.Signups[0].CanRemove {
		t.Errorf("Alice should see her own signup as removable, got %+v", mine.Signups)
	}

	admin := cellFor(t, BuildMonthGrid(md, 2024, 3, "carol", true), 5)
	if admin.CanSignUp || !admin.ShowProxyForm {
		t.Errorf("Admins get the proxy-add form, not the signup button; got %+v", admin)
	}
	if !admin.Signups[0].CanRemove {
		t.Errorf("Admins may remove any signup")
	}
}

func TestGridFullDay(t *testing.T) {
	md := month(false)
	markHeld(md, "2024-03-05")
	addEvent(md, "ev1", "2024-03-05", "alice")
	addEvent(md, "ev2", "2024-03-05", "bob")
	addEvent(md, "ev3", "2024-03-05", "carol")

	member := cellFor(t, BuildMonthGrid(md, 2024, 3, "dave", false), 5)
	if member.CanSignUp || !member.Full {
		t.Errorf("Full day for a member: got %+v", member)
	}

	// The cap is absolute; the proxy-add form disappears too.
	admin := cellFor(t, BuildMonthGrid(md, 2024, 3, "dave", true), 5)
	if admin.ShowProxyForm || !admin.Full {
		t.Errorf("Full day for an admin: got %+v", admin)
	}
}

func TestGridLockedMonth(t *testing.T) {
	md := month(true)
	markHeld(md, "2024-03-05")
	addEvent(md, "ev1", "2024-03-05", "alice")

	member := cellFor(t, BuildMonthGrid(md, 2024, 3, "alice", false), 5)
	if member.CanSignUp || member.Full || member.Signups[0].CanRemove {
		t.Errorf("Locked month must disable all member actions, got %+v", member)
	}
	if !member.Held {
		t.Errorf("Lock must not hide the held badge")
	}

	admin := cellFor(t, BuildMonthGrid(md, 2024, 3, "alice", true), 5)
	if admin.ShowProxyForm || admin.Signups[0].CanRemove || !admin.Locked {
		t.Errorf("Locked month must disable all admin day actions, got %+v", admin)
	}
}
