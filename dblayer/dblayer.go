// Package dblayer packages up most actual firestore accesses.
package dblayer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/yiwamoto0208/asa-katsu-calender/dbtypes"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/api/iterator"
	grpccodes "google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// Collection paths are the wire contract with the existing database; don't
// rename them.
const (
	eventsCollection     = "shift_calendar/data/events"
	dayStatusCollection  = "shift_calendar/data/day_status"
	monthLocksCollection = "shift_calendar/data/month_locks"
	boardCollection      = "shift_calendar/data/bulletin_board"
)

// MaxShiftsPerDay caps signups per date.  The cap is absolute; admins are
// subject to it as well.
const MaxShiftsPerDay = 3

// BoardRetention is how long bulletin-board posts live before the sweep
// removes them.
const BoardRetention = 14 * 24 * time.Hour

const tracerName = "yiwamoto0208/asa-katsu-calender/dblayer"

var (
	ErrNameMustNotBeEmpty    = errors.New("name must not be empty")
	ErrMessageMustNotBeEmpty = errors.New("message must not be empty")
	ErrCouldNotParseDate     = errors.New("could not parse date")
	ErrMonthLocked           = errors.New("month is locked")
	ErrDayNotHeld            = errors.New("day is not a held day")
	ErrDayFull               = errors.New("day is already full")
	ErrAlreadySignedUp       = errors.New("already signed up on that day")
	ErrSignupNotFound        = errors.New("no signup with that ID")
	ErrPermissionDenied      = errors.New("permission denied")
)

// DB wraps the Firestore collections behind the calendar's business rules.
//
// Reads go through a process-wide cache keyed by (year, month) with a short
// TTL; every mutator clears the whole cache after its write, because the
// cache cannot selectively invalidate.  Rule checks therefore run against a
// read that can be up to one TTL stale; see the cache doc comment.
type DB struct {
	firestoreClient *firestore.Client
	cache           *monthCache
	now             func() time.Time
}

func New(firestoreClient *firestore.Client) *DB {
	return &DB{
		firestoreClient: firestoreClient,
		cache:           newMonthCache(60*time.Second, time.Now),
		now:             time.Now,
	}
}

// MonthID formats the YYYY-MM equality-filter key for a month.
func MonthID(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

func parseDate(date string) (time.Time, error) {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		return time.Time{}, ErrCouldNotParseDate
	}
	return d, nil
}

// FetchMonth returns the month's signup events, day statuses, lock state,
// and board messages, served from the cache when fresh.
func (db *DB) FetchMonth(ctx context.Context, year, month int) (*MonthData, error) {
	return db.cache.GetOrFetch(ctx, monthKey{Year: year, Month: month}, func(ctx context.Context) (*MonthData, error) {
		return db.fetchMonth(ctx, year, month)
	})
}

func (db *DB) fetchMonth(ctx context.Context, year, month int) (*MonthData, error) {
	tracer := otel.Tracer(tracerName)
	var span trace.Span
	ctx, span = tracer.Start(ctx, "DB.fetchMonth")
	defer span.End()

	monthID := MonthID(year, month)
	span.SetAttributes(attribute.String("month_id", monthID))

	md := &MonthData{
		MonthID:   monthID,
		Events:    map[string]*dbtypes.SignupEvent{},
		DayStatus: map[string]*dbtypes.DayStatus{},
	}

	eventsIter := db.firestoreClient.Collection(eventsCollection).Where("month_id", "==", monthID).Documents(ctx)
	defer eventsIter.Stop()
	for {
		snap, err := eventsIter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			err := fmt.Errorf("while listing signup events for %s: %w", monthID, err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}

		event := &dbtypes.SignupEvent{}
		if err := snap.DataTo(event); err != nil {
			err := fmt.Errorf("while unmarshaling signup event %s: %w", snap.Ref.ID, err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		event.ID = snap.Ref.ID
		md.Events[snap.Ref.ID] = event
	}

	dayStatusIter := db.firestoreClient.Collection(dayStatusCollection).Where("month_id", "==", monthID).Documents(ctx)
	defer dayStatusIter.Stop()
	for {
		snap, err := dayStatusIter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			err := fmt.Errorf("while listing day statuses for %s: %w", monthID, err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}

		status := &dbtypes.DayStatus{}
		if err := snap.DataTo(status); err != nil {
			err := fmt.Errorf("while unmarshaling day status %s: %w", snap.Ref.ID, err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		// The document ID is authoritative for the date; older documents
		// don't carry a date field.
		status.Date = snap.Ref.ID
		md.DayStatus[snap.Ref.ID] = status
	}

	lockSnap, err := db.firestoreClient.Collection(monthLocksCollection).Doc(monthID).Get(ctx)
	if err != nil && grpcstatus.Code(err) != grpccodes.NotFound {
		err := fmt.Errorf("while getting month lock for %s: %w", monthID, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if err == nil && lockSnap.Exists() {
		lock := &dbtypes.MonthLock{}
		if err := lockSnap.DataTo(lock); err != nil {
			err := fmt.Errorf("while unmarshaling month lock for %s: %w", monthID, err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		md.Locked = lock.IsLocked
	}

	boardIter := db.firestoreClient.Collection(boardCollection).Where("month_id", "==", monthID).OrderBy("timestamp", firestore.Desc).Documents(ctx)
	defer boardIter.Stop()
	for {
		snap, err := boardIter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			err := fmt.Errorf("while listing board messages for %s: %w", monthID, err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}

		msg := &dbtypes.BoardMessage{}
		if err := snap.DataTo(msg); err != nil {
			err := fmt.Errorf("while unmarshaling board message %s: %w", snap.Ref.ID, err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		md.Board = append(md.Board, msg)
	}

	span.SetStatus(codes.Ok, "")

	return md, nil
}

// AddSignup writes a signup event for name on date.  Proxy adds (admins
// registering somebody else) skip the duplicate-name guard; every other rule
// applies to both paths.
func (db *DB) AddSignup(ctx context.Context, date, name string, proxy bool) error {
	tracer := otel.Tracer(tracerName)
	var span trace.Span
	ctx, span = tracer.Start(ctx, "DB.AddSignup")
	defer span.End()
	span.SetAttributes(attribute.String("date", date), attribute.Bool("proxy", proxy))

	if name == "" {
		return ErrNameMustNotBeEmpty
	}

	day, err := parseDate(date)
	if err != nil {
		return err
	}

	md, err := db.FetchMonth(ctx, day.Year(), int(day.Month()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if err := md.CanAdd(date, name, proxy); err != nil {
		return err
	}

	event := &dbtypes.SignupEvent{
		Date:    date,
		MonthID: md.MonthID,
		Name:    name,
		UID:     uuid.NewString(),
	}
	if _, _, err := db.firestoreClient.Collection(eventsCollection).Add(ctx, event); err != nil {
		err := fmt.Errorf("while adding signup for %s on %s: %w", name, date, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	db.cache.InvalidateAll()
	span.SetStatus(codes.Ok, "")
	return nil
}

// RemoveSignup deletes the signup event with the given document ID.  The
// event's own author may remove it; an admin may remove any event.  Nothing
// may be removed while the month is locked.
func (db *DB) RemoveSignup(ctx context.Context, id, requester string, admin bool) error {
	tracer := otel.Tracer(tracerName)
	var span trace.Span
	ctx, span = tracer.Start(ctx, "DB.RemoveSignup")
	defer span.End()
	span.SetAttributes(attribute.String("id", id), attribute.Bool("admin", admin))

	snap, err := db.firestoreClient.Collection(eventsCollection).Doc(id).Get(ctx)
	if grpcstatus.Code(err) == grpccodes.NotFound {
		return ErrSignupNotFound
	}
	if err != nil {
		err := fmt.Errorf("while getting signup %s: %w", id, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	event := &dbtypes.SignupEvent{}
	if err := snap.DataTo(event); err != nil {
		err := fmt.Errorf("while unmarshaling signup %s: %w", id, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	day, err := parseDate(event.Date)
	if err != nil {
		return err
	}

	md, err := db.FetchMonth(ctx, day.Year(), int(day.Month()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if err := md.CanRemove(event, requester, admin); err != nil {
		return err
	}

	if _, err := snap.Ref.Delete(ctx); err != nil {
		err := fmt.Errorf("while deleting signup %s: %w", id, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	db.cache.InvalidateAll()
	span.SetStatus(codes.Ok, "")
	return nil
}

// SetDayHeld marks or unmarks a date as a held day.  Rejected while the
// month is locked.
func (db *DB) SetDayHeld(ctx context.Context, date string, held bool) error {
	tracer := otel.Tracer(tracerName)
	var span trace.Span
	ctx, span = tracer.Start(ctx, "DB.SetDayHeld")
	defer span.End()
	span.SetAttributes(attribute.String("date", date), attribute.Bool("held", held))

	day, err := parseDate(date)
	if err != nil {
		return err
	}

	md, err := db.FetchMonth(ctx, day.Year(), int(day.Month()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if md.Locked {
		return ErrMonthLocked
	}

	status := &dbtypes.DayStatus{
		Date:    date,
		MonthID: md.MonthID,
		IsHeld:  held,
	}
	if _, err := db.firestoreClient.Collection(dayStatusCollection).Doc(date).Set(ctx, status); err != nil {
		err := fmt.Errorf("while setting day status for %s: %w", date, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	db.cache.InvalidateAll()
	span.SetStatus(codes.Ok, "")
	return nil
}

// SetMonthLock sets or clears the month lock.  The lock toggle itself is
// never blocked by the lock; it is the only way out of the locked state.
func (db *DB) SetMonthLock(ctx context.Context, year, month int, locked bool) error {
	tracer := otel.Tracer(tracerName)
	var span trace.Span
	ctx, span = tracer.Start(ctx, "DB.SetMonthLock")
	defer span.End()

	monthID := MonthID(year, month)
	span.SetAttributes(attribute.String("month_id", monthID), attribute.Bool("locked", locked))

	lock := &dbtypes.MonthLock{IsLocked: locked}
	if _, err := db.firestoreClient.Collection(monthLocksCollection).Doc(monthID).Set(ctx, lock); err != nil {
		err := fmt.Errorf("while setting month lock for %s: %w", monthID, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	db.cache.InvalidateAll()
	span.SetStatus(codes.Ok, "")
	return nil
}

// PostBoardMessage appends a bulletin-board message to the given month.  The
// timestamp is assigned by the store.
func (db *DB) PostBoardMessage(ctx context.Context, year, month int, name, message string) error {
	tracer := otel.Tracer(tracerName)
	var span trace.Span
	ctx, span = tracer.Start(ctx, "DB.PostBoardMessage")
	defer span.End()

	if name == "" {
		return ErrNameMustNotBeEmpty
	}
	if message == "" {
		return ErrMessageMustNotBeEmpty
	}

	md, err := db.FetchMonth(ctx, year, month)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if md.Locked {
		return ErrMonthLocked
	}

	msg := &dbtypes.BoardMessage{
		MonthID: md.MonthID,
		Name:    name,
		Message: message,
	}
	if _, _, err := db.firestoreClient.Collection(boardCollection).Add(ctx, msg); err != nil {
		err := fmt.Errorf("while adding board message: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	db.cache.InvalidateAll()
	span.SetStatus(codes.Ok, "")
	return nil
}

// SweepBoard deletes every board message, across all months, older than the
// retention window.  All deletions go through a single batch.  Returns the
// number of messages deleted.
func (db *DB) SweepBoard(ctx context.Context) (int, error) {
	tracer := otel.Tracer(tracerName)
	var span trace.Span
	ctx, span = tracer.Start(ctx, "DB.SweepBoard")
	defer span.End()

	cutoff := SweepCutoff(db.now())

	iter := db.firestoreClient.Collection(boardCollection).Where("timestamp", "<", cutoff).Documents(ctx)
	defer iter.Stop()

	batch := db.firestoreClient.Batch()
	deleted := 0
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			err := fmt.Errorf("while listing expired board messages: %w", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return 0, err
		}

		batch.Delete(snap.Ref)
		deleted++
	}

	if deleted > 0 {
		if _, err := batch.Commit(ctx); err != nil {
			err := fmt.Errorf("while deleting expired board messages: %w", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return 0, err
		}
		db.cache.InvalidateAll()
	}

	slog.InfoContext(ctx, "Bulletin board sweep finished.", "deleted", deleted)
	span.SetAttributes(attribute.Int("deleted", deleted))
	span.SetStatus(codes.Ok, "")
	return deleted, nil
}

// SweepCutoff returns the timestamp below which board messages are expired,
// as of the given instant.
func SweepCutoff(now time.Time) time.Time {
	return now.Add(-BoardRetention)
}

// AllEvents scans the entire signup collection.  Aggregation filters by
// date range in memory; the store cannot range-query on the date string.
func (db *DB) AllEvents(ctx context.Context) ([]*dbtypes.SignupEvent, error) {
	tracer := otel.Tracer(tracerName)
	var span trace.Span
	ctx, span = tracer.Start(ctx, "DB.AllEvents")
	defer span.End()

	var events []*dbtypes.SignupEvent
	iter := db.firestoreClient.Collection(eventsCollection).Documents(ctx)
	defer iter.Stop()
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			err := fmt.Errorf("while scanning signup events: %w", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}

		event := &dbtypes.SignupEvent{}
		if err := snap.DataTo(event); err != nil {
			err := fmt.Errorf("while unmarshaling signup event %s: %w", snap.Ref.ID, err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		event.ID = snap.Ref.ID
		events = append(events, event)
	}

	span.SetAttributes(attribute.Int("events", len(events)))
	span.SetStatus(codes.Ok, "")
	return events, nil
}

// AllDayStatus scans the entire day-status collection, keyed by date.
func (db *DB) AllDayStatus(ctx context.Context) (map[string]*dbtypes.DayStatus, error) {
	tracer := otel.Tracer(tracerName)
	var span trace.Span
	ctx, span = tracer.Start(ctx, "DB.AllDayStatus")
	defer span.End()

	statuses := map[string]*dbtypes.DayStatus{}
	iter := db.firestoreClient.Collection(dayStatusCollection).Documents(ctx)
	defer iter.Stop()
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			err := fmt.Errorf("while scanning day statuses: %w", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}

		status := &dbtypes.DayStatus{}
		if err := snap.DataTo(status); err != nil {
			err := fmt.Errorf("while unmarshaling day status %s: %w", snap.Ref.ID, err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		status.Date = snap.Ref.ID
		statuses[snap.Ref.ID] = status
	}

	span.SetAttributes(attribute.Int("days", len(statuses)))
	span.SetStatus(codes.Ok, "")
	return statuses, nil
}
