// Package dbtypes holds the Firestore document types shared by the shift
// calendar's storage layer and web UI.
package dbtypes

import (
	"time"
)

// SignupEvent records one person taking one shift slot on one date.
//
// At most MaxShiftsPerDay events may share a date.  UID distinguishes
// duplicate-named entries during aggregation.
type SignupEvent struct {
	// ID is the Firestore document ID.  It is populated on read and never
	// written back to the store.
	ID string `firestore:"-"`

	// Date is the shift day, formatted as YYYY-MM-DD.
	Date string `firestore:"date"`

	// MonthID is the YYYY-MM key used for equality-filtered month queries.
	// It is redundant with Date because the store cannot range-query on a
	// substring of Date.
	MonthID string `firestore:"month_id"`

	Name string `firestore:"name"`

	// CreatedAt is assigned by the store when the document is written.
	CreatedAt time.Time `firestore:"createdAt,serverTimestamp"`

	UID string `firestore:"uid"`
}

// DayStatus marks whether the activity is held on a given date.  The
// document ID is the date itself; absence of a document means not held.
type DayStatus struct {
	Date    string `firestore:"date"`
	MonthID string `firestore:"month_id"`
	IsHeld  bool   `firestore:"isHeld"`
}

// MonthLock blocks every mutation for its month while set.  The document ID
// is the month ID; absence of a document means unlocked.
type MonthLock struct {
	IsLocked bool `firestore:"isLocked"`
}

// BoardMessage is one bulletin-board post.  Posts are scoped to a month for
// display and removed by the retention sweep two weeks after posting.
type BoardMessage struct {
	MonthID string `firestore:"month_id"`
	Name    string `firestore:"name"`
	Message string `firestore:"message"`

	// Timestamp is assigned by the store.  It can read back as the zero
	// time immediately after a write, before the server value round-trips.
	Timestamp time.Time `firestore:"timestamp,serverTimestamp"`
}
