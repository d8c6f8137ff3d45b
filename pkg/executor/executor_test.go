package executor

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soypete/calchat/pkg/calcom"
	"github.com/soypete/calchat/pkg/testutil"
	"github.com/soypete/calchat/pkg/tools"
)

func newExecutor(cal *testutil.FakeCalendar, opts ...Option) *Executor {
	opts = append([]Option{WithDefaultEventType(testutil.DefaultEventTypeID)}, opts...)
	return New(cal, tools.MustCatalog(), opts...)
}

func run(t *testing.T, e *Executor, ctx context.Context, name string, args map[string]interface{}) map[string]interface{} {
	t.Helper()
	raw, err := json.Marshal(args)
	require.NoError(t, err)

	result := e.Execute(ctx, name, raw)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(result.String()), &decoded))

	_, hasErr := decoded["error"]
	_, hasSuccess := decoded["success"]
	assert.True(t, hasErr != hasSuccess, "envelope must carry exactly one of success/error: %s", result)
	return decoded
}

func withEmail(email string) context.Context {
	return WithCallContext(context.Background(), CallContext{UserEmail: email, RequestID: "req-1"})
}

func TestFindAvailableSlotsReturnsProviderSlotsVerbatim(t *testing.T) {
	cal := testutil.NewFakeCalendar().AddSlots("2026-01-15", "2026-01-15T14:00:00Z", "2026-01-15T16:00:00Z")
	e := newExecutor(cal)

	got := run(t, e, context.Background(), "find-available-slots", map[string]interface{}{"date": "2026-01-15"})

	assert.Equal(t, map[string]interface{}{
		"success": true,
		"date":    "2026-01-15",
		"slots":   []interface{}{"2026-01-15T14:00:00Z", "2026-01-15T16:00:00Z"},
	}, got)
	require.Len(t, cal.SlotQueries, 1)
	assert.Equal(t, [2]string{"2026-01-15T00:00:00Z", "2026-01-15T23:59:59Z"}, cal.SlotQueries[0])
}

func TestFindAvailableSlotsNeverLeavesRequestedDay(t *testing.T) {
	cal := testutil.NewFakeCalendar().AddSlots("2026-01-15",
		"2026-01-14T23:30:00Z",
		"2026-01-15T00:00:00Z",
		"2026-01-15T09:00:00-05:00",
		"2026-01-15T23:59:59Z",
		"2026-01-15T20:00:00-05:00",
		"not-a-time",
	)
	e := newExecutor(cal)

	got := run(t, e, context.Background(), "find-available-slots", map[string]interface{}{"date": "2026-01-15"})

	assert.Equal(t, []interface{}{
		"2026-01-15T00:00:00Z",
		"2026-01-15T09:00:00-05:00",
		"2026-01-15T23:59:59Z",
	}, got["slots"])
}

func TestFindAvailableSlotsEmptyDay(t *testing.T) {
	e := newExecutor(testutil.NewFakeCalendar())
	got := run(t, e, context.Background(), "find-available-slots", map[string]interface{}{"date": "2026-01-17"})
	assert.Equal(t, true, got["success"])
	assert.Equal(t, []interface{}{}, got["slots"])
}

func TestFindAvailableSlotsErrors(t *testing.T) {
	tests := []struct {
		name    string
		opts    []Option
		args    map[string]interface{}
		wantErr string
	}{
		{"missing event type", []Option{WithDefaultEventType(0)}, map[string]interface{}{"date": "2026-01-15"},
			"find-available-slots failed: Event type ID not configured"},
		{"bad date", nil, map[string]interface{}{"date": "15/01/2026"}, "find-available-slots failed: invalid arguments"},
		{"impossible date", nil, map[string]interface{}{"date": "2026-02-30"}, "invalid date"},
		{"missing date", nil, map[string]interface{}{}, "date is required"},
		{"unknown event type", nil, map[string]interface{}{"date": "2026-01-15", "eventTypeId": 7}, "API error (404)"},
		{"zero event type", nil, map[string]interface{}{"date": "2026-01-15", "eventTypeId": 0},
			"find-available-slots failed: eventTypeId must be a positive integer"},
		{"negative event type", nil, map[string]interface{}{"date": "2026-01-15", "eventTypeId": -5},
			"eventTypeId must be a positive integer"},
		{"zero event type as string", nil, map[string]interface{}{"date": "2026-01-15", "eventTypeId": "0"},
			"eventTypeId must be a positive integer"},
		{"overflowing event type", nil, map[string]interface{}{"date": "2026-01-15", "eventTypeId": 1e19},
			"eventTypeId is out of range"},
		{"overflowing event type as string", nil, map[string]interface{}{"date": "2026-01-15", "eventTypeId": "99999999999999999999"},
			"eventTypeId must be a 32-bit integer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newExecutor(testutil.NewFakeCalendar(), tt.opts...)
			got := run(t, e, context.Background(), "find-available-slots", tt.args)
			assert.Contains(t, got["error"], tt.wantErr)
		})
	}
}

func TestInvalidEventTypeDoesNotFallBackToDefault(t *testing.T) {
	cal := testutil.NewFakeCalendar().AddSlots("2026-01-15", "2026-01-15T14:00:00Z")
	e := newExecutor(cal)

	for _, id := range []interface{}{0, -1, 1e19} {
		got := run(t, e, context.Background(), "find-available-slots",
			map[string]interface{}{"date": "2026-01-15", "eventTypeId": id})
		assert.NotNil(t, got["error"], "eventTypeId %v", id)
	}
	assert.Zero(t, cal.CallCount("ListAvailableSlots"))
}

func TestEventTypeAsNumericString(t *testing.T) {
	cal := testutil.NewFakeCalendar().AddSlots("2026-01-15", "2026-01-15T14:00:00Z")
	e := newExecutor(cal, WithDefaultEventType(0))

	got := run(t, e, context.Background(), "find-available-slots",
		map[string]interface{}{"date": "2026-01-15", "eventTypeId": "42"})
	assert.Equal(t, true, got["success"])
}

func TestCreateBooking(t *testing.T) {
	cal := testutil.NewFakeCalendar()
	e := newExecutor(cal)

	got := run(t, e, context.Background(), "create-booking", map[string]interface{}{
		"startTime":     "2026-01-15T14:00:00Z",
		"attendeeEmail": "ann@example.com",
		"attendeeName":  "Ann Example",
		"reason":        "Quarterly sync",
	})
	require.Equal(t, true, got["success"], got)

	booking := got["booking"].(map[string]interface{})
	uid := booking["uid"].(string)
	stored, ok := cal.Booking(uid)
	require.True(t, ok)
	assert.Equal(t, "UTC", stored.Attendees[0].TimeZone)
	assert.Equal(t, "Ann Example", stored.Attendees[0].Name)
	assert.Equal(t, map[string]interface{}{"reason": "Quarterly sync"}, stored.Metadata)
	assert.Equal(t, testutil.DefaultEventTypeID, stored.EventTypeID)
}

func TestCreateBookingErrors(t *testing.T) {
	valid := func() map[string]interface{} {
		return map[string]interface{}{
			"startTime":     "2026-01-15T14:00:00Z",
			"attendeeEmail": "ann@example.com",
			"attendeeName":  "Ann",
			"reason":        "sync",
		}
	}

	tests := []struct {
		name    string
		mutate  func(map[string]interface{})
		wantErr string
	}{
		{"missing reason", func(a map[string]interface{}) { delete(a, "reason") }, "reason is required"},
		{"bad start time", func(a map[string]interface{}) { a["startTime"] = "tomorrow 2pm" }, "invalid startTime"},
		{"bad timezone", func(a map[string]interface{}) { a["timezone"] = "Mars/Olympus" }, "unknown timezone"},
		{"bad email", func(a map[string]interface{}) { a["attendeeEmail"] = "ann" }, "attendeeEmail"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cal := testutil.NewFakeCalendar()
			args := valid()
			tt.mutate(args)

			got := run(t, newExecutor(cal), context.Background(), "create-booking", args)
			assert.Contains(t, got["error"], "create-booking failed")
			assert.Contains(t, got["error"], tt.wantErr)
			assert.Zero(t, cal.CallCount("CreateBooking"))
		})
	}
}

func TestCreateBookingConflictIsEnvelope(t *testing.T) {
	cal := testutil.NewFakeCalendar()
	cal.Seed("bob@example.com", "Bob", "2026-01-15T14:00:00Z")

	got := run(t, newExecutor(cal), context.Background(), "create-booking", map[string]interface{}{
		"startTime":     "2026-01-15T14:00:00Z",
		"attendeeEmail": "ann@example.com",
		"attendeeName":  "Ann",
		"reason":        "sync",
		"timezone":      "America/New_York",
	})
	assert.Equal(t, "create-booking failed: API error (409): slot no longer available", got["error"])
}

func TestListBookingsEmailResolution(t *testing.T) {
	cal := testutil.NewFakeCalendar()
	cal.Seed("ann@example.com", "Ann", "2026-01-15T14:00:00Z")
	cal.Seed("bob@example.com", "Bob", "2026-01-16T14:00:00Z")
	e := newExecutor(cal)

	tests := []struct {
		name      string
		ctx       context.Context
		args      map[string]interface{}
		wantEmail string
		wantCount float64
		wantErr   string
	}{
		{"context email", withEmail("ann@example.com"), map[string]interface{}{}, "ann@example.com", 1, ""},
		{"argument wins over context", withEmail("ann@example.com"), map[string]interface{}{"userEmail": "bob@example.com"}, "bob@example.com", 1, ""},
		{"no email anywhere", context.Background(), map[string]interface{}{}, "", 0,
			"list-bookings failed: User email is required but not provided"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := run(t, e, tt.ctx, "list-bookings", tt.args)
			if tt.wantErr != "" {
				assert.Equal(t, tt.wantErr, got["error"])
				return
			}
			assert.Equal(t, tt.wantCount, got["count"])
			bookings := got["bookings"].([]interface{})
			assert.Len(t, bookings, int(tt.wantCount))
			last := cal.Filters[len(cal.Filters)-1]
			assert.Equal(t, tt.wantEmail, last.AttendeeEmail)
			assert.Equal(t, "upcoming", last.Status)
		})
	}
}

func TestListBookingsDateFilters(t *testing.T) {
	cal := testutil.NewFakeCalendar()
	e := newExecutor(cal)

	got := run(t, e, withEmail("ann@example.com"), "list-bookings", map[string]interface{}{
		"status":     "cancelled",
		"afterDate":  "2026-01-01",
		"beforeDate": "2026-02-01",
	})
	require.Equal(t, true, got["success"])
	assert.Equal(t, float64(0), got["count"])
	assert.Equal(t, []interface{}{}, got["bookings"])

	require.Len(t, cal.Filters, 1)
	assert.Equal(t, calcom.BookingFilter{
		Status:        "cancelled",
		AttendeeEmail: "ann@example.com",
		AfterStart:    "2026-01-01T00:00:00Z",
		BeforeStart:   "2026-02-01T00:00:00Z",
	}, cal.Filters[0])
}

func TestListBookingsIsIdempotent(t *testing.T) {
	cal := testutil.NewFakeCalendar()
	cal.Seed("ann@example.com", "Ann", "2026-01-15T14:00:00Z")
	cal.Seed("ann@example.com", "Ann", "2026-01-16T10:00:00Z")
	e := newExecutor(cal)

	first := run(t, e, withEmail("ann@example.com"), "list-bookings", map[string]interface{}{"status": "upcoming"})
	second := run(t, e, withEmail("ann@example.com"), "list-bookings", map[string]interface{}{"status": "upcoming"})

	assert.Equal(t, first, second)
	assert.Equal(t, float64(2), first["count"])
}

func TestCancelBooking(t *testing.T) {
	cal := testutil.NewFakeCalendar()
	booking := cal.Seed("ann@example.com", "Ann", "2026-01-15T14:00:00Z")
	e := newExecutor(cal)

	got := run(t, e, context.Background(), "cancel-booking", map[string]interface{}{
		"bookingUid": booking.UID,
		"reason":     "conflict",
	})
	require.Equal(t, true, got["success"], got)
	result := got["result"].(map[string]interface{})
	assert.Equal(t, "cancelled", result["status"])

	stored, _ := cal.Booking(booking.UID)
	assert.Equal(t, "conflict", stored.CancellationReason)
}

func TestCancelBookingIdentifierResolution(t *testing.T) {
	tests := []struct {
		name      string
		args      func(b calcom.Booking) map[string]interface{}
		wantErr   string
		wantCalls int
	}{
		{"empty uid", func(calcom.Booking) map[string]interface{} { return map[string]interface{}{"bookingUid": ""} },
			"cancel-booking failed: booking UID is required but not provided", 0},
		{"no identifier", func(calcom.Booking) map[string]interface{} { return map[string]interface{}{} },
			"booking UID is required", 0},
		{"whitespace uid", func(calcom.Booking) map[string]interface{} { return map[string]interface{}{"bookingUid": "   "} },
			"booking UID is required", 0},
		{"legacy numeric id", func(b calcom.Booking) map[string]interface{} {
			return map[string]interface{}{"bookingId": b.ID}
		}, "", 1},
		{"unknown uid", func(calcom.Booking) map[string]interface{} { return map[string]interface{}{"bookingUid": "nope"} },
			"API error (404)", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cal := testutil.NewFakeCalendar()
			booking := cal.Seed("ann@example.com", "Ann", "2026-01-15T14:00:00Z")

			got := run(t, newExecutor(cal), context.Background(), "cancel-booking", tt.args(booking))
			if tt.wantErr == "" {
				assert.Equal(t, true, got["success"], got)
			} else {
				assert.Contains(t, got["error"], tt.wantErr)
			}
			assert.Equal(t, tt.wantCalls, cal.CallCount("CancelBooking"))
		})
	}
}

func TestRescheduleBookingSurfacesNewUID(t *testing.T) {
	cal := testutil.NewFakeCalendar()
	original := cal.Seed("ann@example.com", "Ann", "2026-01-15T14:00:00Z")
	e := newExecutor(cal)

	got := run(t, e, context.Background(), "reschedule-booking", map[string]interface{}{
		"bookingUid":   original.UID,
		"newStartTime": "2026-01-16T10:00:00Z",
		"reason":       "moved",
	})
	require.Equal(t, true, got["success"], got)

	newUID := got["newBookingUid"].(string)
	assert.Equal(t, original.UID, got["previousBookingUid"])
	assert.NotEmpty(t, newUID)
	assert.NotEqual(t, original.UID, newUID)
	assert.Equal(t, newUID, got["result"].(map[string]interface{})["uid"])

	listed := run(t, e, withEmail("ann@example.com"), "list-bookings", map[string]interface{}{})
	var uids []string
	for _, b := range listed["bookings"].([]interface{}) {
		uids = append(uids, b.(map[string]interface{})["uid"].(string))
	}
	assert.Contains(t, uids, newUID)
	assert.NotContains(t, uids, original.UID)
}

func TestRescheduleBookingErrors(t *testing.T) {
	cal := testutil.NewFakeCalendar()
	booking := cal.Seed("ann@example.com", "Ann", "2026-01-15T14:00:00Z")
	e := newExecutor(cal)

	got := run(t, e, context.Background(), "reschedule-booking", map[string]interface{}{
		"bookingUid":   booking.UID,
		"newStartTime": "next tuesday",
	})
	assert.Contains(t, got["error"], "reschedule-booking failed: invalid newStartTime")

	got = run(t, e, context.Background(), "reschedule-booking", map[string]interface{}{
		"newStartTime": "2026-01-16T10:00:00Z",
	})
	assert.Contains(t, got["error"], "booking UID is required")
	assert.Zero(t, cal.CallCount("RescheduleBooking"))
}

func TestExecuteUnknownOperation(t *testing.T) {
	got := run(t, newExecutor(testutil.NewFakeCalendar()), context.Background(), "delete-calendar", nil)
	assert.Equal(t, "unknown operation: delete-calendar", got["error"])
}

func TestExecuteMalformedArguments(t *testing.T) {
	e := newExecutor(testutil.NewFakeCalendar())
	result := e.Execute(context.Background(), "list-bookings", json.RawMessage(`{"status":`))
	assert.False(t, result.OK())
	assert.Contains(t, result.Error(), "list-bookings failed: arguments are not a JSON object")
}

func TestExecuteProviderTimeoutIsEnvelope(t *testing.T) {
	cal := testutil.NewFakeCalendar()
	cal.Delay = time.Second
	e := newExecutor(cal, WithTimeout(20*time.Millisecond))

	got := run(t, e, withEmail("ann@example.com"), "list-bookings", map[string]interface{}{})
	assert.Contains(t, got["error"], "list-bookings failed: context deadline exceeded")
}

type panickingProvider struct {
	*testutil.FakeCalendar
}

func (panickingProvider) ListBookings(context.Context, calcom.BookingFilter) ([]calcom.Booking, error) {
	panic("boom")
}

func TestExecuteRecoversFromPanics(t *testing.T) {
	e := New(panickingProvider{testutil.NewFakeCalendar()}, tools.MustCatalog())

	var result Result
	require.NotPanics(t, func() {
		result = e.Execute(withEmail("ann@example.com"), "list-bookings", nil)
	})
	assert.Equal(t, "list-bookings failed: internal error", result.Error())
}

type memoryRecorder struct {
	records []Record
	err     error
}

func (m *memoryRecorder) Record(_ context.Context, rec Record) error {
	m.records = append(m.records, rec)
	return m.err
}

func TestExecuteRecordsOperations(t *testing.T) {
	rec := &memoryRecorder{err: errors.New("disk full")}
	e := newExecutor(testutil.NewFakeCalendar(), WithRecorder(rec))

	ok := e.Execute(withEmail("ann@example.com"), "list-bookings", json.RawMessage(`{}`))
	failed := e.Execute(context.Background(), "cancel-booking", json.RawMessage(`{"bookingUid":""}`))

	assert.True(t, ok.OK())
	assert.False(t, failed.OK())
	require.Len(t, rec.records, 2)
	assert.Equal(t, "req-1", rec.records[0].RequestID)
	assert.True(t, rec.records[0].Success)
	assert.Equal(t, "cancel-booking", rec.records[1].Operation)
	assert.Equal(t, failed.Error(), rec.records[1].Error)
}
