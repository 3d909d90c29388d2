package webui

import (
	"fmt"
	"time"

	"github.com/yiwamoto0208/asa-katsu-calender/dblayer"
	"github.com/yiwamoto0208/asa-katsu-calender/webui/uitemplates"
)

// Column order is Monday through Sunday, matching the original paper
// schedule the group used.
var weekdayNames = [7]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// BuildMonthGrid lays out the month as Monday-first weeks of seven cells and
// merges each day's state: held flag, lock, signups, and which actions the
// viewer may take on it.
func BuildMonthGrid(md *dblayer.MonthData, year, month int, viewer string, admin bool) [][]uitemplates.DayCell {
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	daysIn := time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
	offset := (int(first.Weekday()) + 6) % 7

	cellCount := offset + daysIn
	if rem := cellCount % 7; rem != 0 {
		cellCount += 7 - rem
	}

	var weeks [][]uitemplates.DayCell
	var week []uitemplates.DayCell
	for i := 0; i < cellCount; i++ {
		day := i - offset + 1
		col := i % 7

		if day < 1 || day > daysIn {
			week = append(week, uitemplates.DayCell{})
		} else {
			week = append(week, buildDayCell(md, day, col, viewer, admin))
		}

		if col == 6 {
			weeks = append(weeks, week)
			week = nil
		}
	}

	return weeks
}

func buildDayCell(md *dblayer.MonthData, day, col int, viewer string, admin bool) uitemplates.DayCell {
	date := fmt.Sprintf("%s-%02d", md.MonthID, day)
	held := md.Held(date)
	events := md.EventsOn(date)

	cell := uitemplates.DayCell{
		Day:      day,
		Date:     date,
		Weekday:  weekdayNames[col],
		Saturday: col == 5,
		Sunday:   col == 6,
		Held:     held,
		Locked:   md.Locked,
	}

	for _, event := range events {
		mine := event.Name == viewer
		cell.Signups = append(cell.Signups, uitemplates.SignupView{
			ID:        event.ID,
			Name:      event.Name,
			Mine:      mine,
			CanRemove: (mine || admin) && !md.Locked,
		})
	}

	open := held && !md.Locked && len(events) < dblayer.MaxShiftsPerDay
	cell.CanSignUp = open && !admin
	cell.ShowProxyForm = open && admin
	cell.Full = held && !md.Locked && len(events) >= dblayer.MaxShiftsPerDay

	return cell
}
