package testutil

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/soypete/calchat/pkg/calcom"
)

// DefaultEventTypeID is the event type FakeCalendar serves
const DefaultEventTypeID = 42

// FakeCalendar is an in-memory calcom.Provider. Rescheduling behaves like
// Cal.com: the old booking is cancelled and a new booking with a new UID is created.
type FakeCalendar struct {
	mu sync.Mutex

	// EventTypes returned by ListEventTypes.
	EventTypes []calcom.EventType

	// Slots maps YYYY-MM-DD to the slot timestamps served for that day.
	// Timestamps are returned as-is, even if they fall outside the day.
	Slots map[string][]string

	// Errors maps a method name ("CreateBooking", ...) to an error it returns.
	Errors map[string]error

	// Calls counts invocations per method name.
	Calls map[string]int

	// SlotQueries records the start/end range of each ListAvailableSlots call.
	SlotQueries [][2]string

	// Filters records each ListBookings filter.
	Filters []calcom.BookingFilter

	// Delay is slept (honoring ctx) before each call.
	Delay time.Duration

	bookings []*calcom.Booking
	nextID   int
}

// NewFakeCalendar creates an empty calendar with one event type.
func NewFakeCalendar() *FakeCalendar {
	return &FakeCalendar{
		EventTypes: []calcom.EventType{{ID: DefaultEventTypeID, Title: "30 Minute Meeting", Slug: "30min", Length: 30}},
		Slots:      map[string][]string{},
		Errors:     map[string]error{},
		Calls:      map[string]int{},
	}
}

// AddSlots serves slots for date.
func (f *FakeCalendar) AddSlots(date string, slots ...string) *FakeCalendar {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Slots[date] = append(f.Slots[date], slots...)
	return f
}

// FailOn makes method return err.
func (f *FakeCalendar) FailOn(method string, err error) *FakeCalendar {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Errors[method] = err
	return f
}

// Seed adds an accepted booking and returns it.
func (f *FakeCalendar) Seed(email, name, start string) calcom.Booking {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.insert(DefaultEventTypeID, start, calcom.Attendee{Name: name, Email: email, TimeZone: "UTC"}, nil)
}

// CallCount returns how many times method was invoked.
func (f *FakeCalendar) CallCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Calls[method]
}

// Booking returns the stored booking with uid.
func (f *FakeCalendar) Booking(uid string) (calcom.Booking, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b := f.find(uid); b != nil {
		return *b, true
	}
	return calcom.Booking{}, false
}

func (f *FakeCalendar) enter(ctx context.Context, method string) error {
	f.mu.Lock()
	f.Calls[method]++
	err := f.Errors[method]
	delay := f.Delay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

// ListEventTypes implements calcom.Provider.
func (f *FakeCalendar) ListEventTypes(ctx context.Context) ([]calcom.EventType, error) {
	if err := f.enter(ctx, "ListEventTypes"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]calcom.EventType, len(f.EventTypes))
	copy(out, f.EventTypes)
	return out, nil
}

// ListAvailableSlots implements calcom.Provider.
func (f *FakeCalendar) ListAvailableSlots(ctx context.Context, eventTypeID int, start, end string) (calcom.Slots, error) {
	if err := f.enter(ctx, "ListAvailableSlots"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	f.SlotQueries = append(f.SlotQueries, [2]string{start, end})
	if !f.knownEventType(eventTypeID) {
		return nil, &calcom.APIError{StatusCode: 404, Message: fmt.Sprintf("event type %d not found", eventTypeID)}
	}

	date := strings.SplitN(start, "T", 2)[0]
	out := calcom.Slots{}
	for _, ts := range f.Slots[date] {
		out = append(out, calcom.NewSlot(ts))
	}
	return out, nil
}

// CreateBooking implements calcom.Provider.
func (f *FakeCalendar) CreateBooking(ctx context.Context, req calcom.CreateBookingRequest) (*calcom.Booking, error) {
	if err := f.enter(ctx, "CreateBooking"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.knownEventType(req.EventTypeID) {
		return nil, &calcom.APIError{StatusCode: 404, Message: fmt.Sprintf("event type %d not found", req.EventTypeID)}
	}
	for _, b := range f.bookings {
		if b.Status == "accepted" && b.Start == req.Start {
			return nil, &calcom.APIError{StatusCode: 409, Message: "slot no longer available"}
		}
	}
	b := f.insert(req.EventTypeID, req.Start, req.Attendee, req.Metadata)
	out := *b
	return &out, nil
}

// ListBookings implements calcom.Provider.
func (f *FakeCalendar) ListBookings(ctx context.Context, filter calcom.BookingFilter) ([]calcom.Booking, error) {
	if err := f.enter(ctx, "ListBookings"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Filters = append(f.Filters, filter)
	out := []calcom.Booking{}
	for _, b := range f.bookings {
		if filter.AttendeeEmail != "" && !b.HasAttendee(filter.AttendeeEmail) {
			continue
		}
		if !matchesStatus(b.Status, filter.Status) {
			continue
		}
		if filter.AfterStart != "" && b.Start < filter.AfterStart {
			continue
		}
		if filter.BeforeStart != "" && b.Start >= filter.BeforeStart {
			continue
		}
		out = append(out, *b)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out, nil
}

// CancelBooking implements calcom.Provider.
func (f *FakeCalendar) CancelBooking(ctx context.Context, bookingUID, reason string) (*calcom.Booking, error) {
	if err := f.enter(ctx, "CancelBooking"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	b := f.find(bookingUID)
	if b == nil {
		return nil, &calcom.APIError{StatusCode: 404, Message: fmt.Sprintf("booking with uid=%s not found", bookingUID)}
	}
	if b.Status == "cancelled" {
		return nil, &calcom.APIError{StatusCode: 400, Message: "booking already cancelled"}
	}
	b.Status = "cancelled"
	b.CancellationReason = reason
	out := *b
	return &out, nil
}

// RescheduleBooking implements calcom.Provider.
func (f *FakeCalendar) RescheduleBooking(ctx context.Context, bookingUID string, req calcom.RescheduleBookingRequest) (*calcom.Booking, error) {
	if err := f.enter(ctx, "RescheduleBooking"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	old := f.find(bookingUID)
	if old == nil {
		return nil, &calcom.APIError{StatusCode: 404, Message: fmt.Sprintf("booking with uid=%s not found", bookingUID)}
	}
	if old.Status == "cancelled" {
		return nil, &calcom.APIError{StatusCode: 400, Message: "cannot reschedule a cancelled booking"}
	}

	attendee := calcom.Attendee{}
	if len(old.Attendees) > 0 {
		attendee = old.Attendees[0]
	}
	created := f.insert(old.EventTypeID, req.Start, attendee, old.Metadata)
	created.RescheduledFrom = old.UID

	old.Status = "cancelled"
	old.RescheduledTo = created.UID
	old.CancellationReason = req.Reason

	out := *created
	return &out, nil
}

func (f *FakeCalendar) insert(eventTypeID int, start string, attendee calcom.Attendee, metadata map[string]interface{}) *calcom.Booking {
	f.nextID++
	b := &calcom.Booking{
		ID:          f.nextID,
		UID:         strings.ReplaceAll(uuid.New().String(), "-", "")[:22],
		Title:       "30 Minute Meeting",
		Start:       start,
		Status:      "accepted",
		Attendees:   []calcom.Attendee{attendee},
		EventTypeID: eventTypeID,
		Metadata:    metadata,
	}
	f.bookings = append(f.bookings, b)
	return b
}

func (f *FakeCalendar) find(uid string) *calcom.Booking {
	for _, b := range f.bookings {
		if b.UID == uid || fmt.Sprint(b.ID) == uid {
			return b
		}
	}
	return nil
}

func (f *FakeCalendar) knownEventType(id int) bool {
	for _, et := range f.EventTypes {
		if et.ID == id {
			return true
		}
	}
	return false
}

func matchesStatus(status, filter string) bool {
	switch filter {
	case "", "upcoming", "past":
		return status == "accepted"
	case "cancelled":
		return status == "cancelled"
	default:
		return false
	}
}
