package report

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/yiwamoto0208/asa-katsu-calender/dbtypes"

	"github.com/google/go-cmp/cmp"
)

func held(dates ...string) map[string]*dbtypes.DayStatus {
	statuses := map[string]*dbtypes.DayStatus{}
	for _, date := range dates {
		statuses[date] = &dbtypes.DayStatus{Date: date, IsHeld: true}
	}
	return statuses
}

func day(t *testing.T, date string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		t.Fatalf("Bad test date %q: %v", date, err)
	}
	return d
}

func TestBuildPivot(t *testing.T) {
	events := []*dbtypes.SignupEvent{
		{Date: "2024-03-05", Name: "alice", UID: "u1"},
		{Date: "2024-03-06", Name: "bob", UID: "u2"},
		{Date: "2024-04-01", Name: "alice", UID: "u3"},
	}
	statuses := held("2024-03-05", "2024-03-06", "2024-04-01")

	got, err := Build(events, statuses, day(t, "2024-03-01"), day(t, "2024-04-30"))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	want := &Table{
		Months: []string{"2024-03", "2024-04"},
		Rows: []Row{
			{Name: "alice", Counts: []int{1, 1}, Total: 2},
			{Name: "bob", Counts: []int{1, 0}, Total: 1},
		},
	}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Errorf("Bad pivot; diff (-got +want)\n%s", diff)
	}
}

func TestBuildExcludesNonHeldDays(t *testing.T) {
	events := []*dbtypes.SignupEvent{
		{Date: "2024-03-05", Name: "alice", UID: "u1"},
		// In range, but 2024-03-06 was never marked held: an anomaly, not
		// a countable shift.
		{Date: "2024-03-06", Name: "alice", UID: "u2"},
	}
	statuses := held("2024-03-05")

	got, err := Build(events, statuses, day(t, "2024-03-01"), day(t, "2024-03-31"))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	want := &Table{
		Months: []string{"2024-03"},
		Rows:   []Row{{Name: "alice", Counts: []int{1}, Total: 1}},
	}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Errorf("Bad pivot; diff (-got +want)\n%s", diff)
	}
}

func TestBuildRangeIsInclusive(t *testing.T) {
	events := []*dbtypes.SignupEvent{
		{Date: "2024-03-01", Name: "alice", UID: "u1"},
		{Date: "2024-03-31", Name: "alice", UID: "u2"},
		{Date: "2024-02-29", Name: "alice", UID: "u3"},
		{Date: "2024-04-01", Name: "alice", UID: "u4"},
	}
	statuses := held("2024-02-29", "2024-03-01", "2024-03-31", "2024-04-01")

	got, err := Build(events, statuses, day(t, "2024-03-01"), day(t, "2024-03-31"))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	want := &Table{
		Months: []string{"2024-03"},
		Rows:   []Row{{Name: "alice", Counts: []int{2}, Total: 2}},
	}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Errorf("Bad pivot; diff (-got +want)\n%s", diff)
	}
}

func TestBuildDoesNotNormalizeNames(t *testing.T) {
	events := []*dbtypes.SignupEvent{
		{Date: "2024-03-05", Name: "Alice", UID: "u1"},
		{Date: "2024-03-05", Name: "alice", UID: "u2"},
	}
	statuses := held("2024-03-05")

	got, err := Build(events, statuses, day(t, "2024-03-01"), day(t, "2024-03-31"))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(got.Rows) != 2 {
		t.Errorf("Got %d rows, want 2: names must match exactly, with no normalization", len(got.Rows))
	}
}

func TestBuildEmptyResult(t *testing.T) {
	events := []*dbtypes.SignupEvent{
		{Date: "2024-03-05", Name: "alice", UID: "u1"},
	}

	// Out of range.
	if _, err := Build(events, held("2024-03-05"), day(t, "2024-05-01"), day(t, "2024-05-31")); !errors.Is(err, ErrNoMatchingShifts) {
		t.Errorf("Got %v, want ErrNoMatchingShifts", err)
	}

	// In range, but the day is not held.
	if _, err := Build(events, held(), day(t, "2024-03-01"), day(t, "2024-03-31")); !errors.Is(err, ErrNoMatchingShifts) {
		t.Errorf("Got %v, want ErrNoMatchingShifts", err)
	}

	// No events at all.
	if _, err := Build(nil, held(), day(t, "2024-03-01"), day(t, "2024-03-31")); !errors.Is(err, ErrNoMatchingShifts) {
		t.Errorf("Got %v, want ErrNoMatchingShifts", err)
	}
}

func TestCSV(t *testing.T) {
	table := &Table{
		Months: []string{"2024-03", "2024-04"},
		Rows: []Row{
			{Name: "alice", Counts: []int{1, 1}, Total: 2},
			{Name: "bob", Counts: []int{1, 0}, Total: 1},
		},
	}

	data, err := table.CSV()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	text := string(data)
	if !strings.HasPrefix(text, "\uFEFF") {
		t.Errorf("CSV must start with a UTF-8 byte-order mark")
	}

	got := strings.Split(strings.TrimSuffix(strings.TrimPrefix(text, "\uFEFF"), "\n"), "\n")
	want := []string{
		"name,2024-03,2024-04,total",
		"alice,1,1,2",
		"bob,1,0,1",
	}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Errorf("Bad CSV; diff (-got +want)\n%s", diff)
	}
}

func TestFilename(t *testing.T) {
	got := Filename(day(t, "2024-03-01"), day(t, "2024-04-30"))
	want := "shift_report_2024-03-01_to_2024-04-30.csv"
	if got != want {
		t.Errorf("Got %q, want %q", got, want)
	}
}
