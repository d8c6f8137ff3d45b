// Package executor turns planner tool requests into Cal.com calls and
// normalizes every outcome into a success or error envelope.
package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"time"
	_ "time/tzdata"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/soypete/calchat/pkg/calcom"
	"github.com/soypete/calchat/pkg/metrics"
	"github.com/soypete/calchat/pkg/tools"
)

// DefaultTimeout bounds a single provider call
const DefaultTimeout = 30 * time.Second

var (
	ErrMissingEventType  = errors.New("Event type ID not configured")
	ErrInvalidEventType  = errors.New("eventTypeId must be a positive integer")
	ErrMissingEmail      = errors.New("User email is required but not provided")
	ErrMissingBookingUID = errors.New("booking UID is required but not provided")
)

// Record is one executed operation, as stored by a Recorder
type Record struct {
	RequestID string
	Operation string
	Arguments json.RawMessage
	Success   bool
	Error     string
	Duration  time.Duration
}

// Recorder persists executed operations; it never affects the envelope
type Recorder interface {
	Record(ctx context.Context, rec Record) error
}

// Executor dispatches the five calendar operations
type Executor struct {
	provider           calcom.Provider
	catalog            *tools.Catalog
	defaultEventTypeID int
	timeout            time.Duration
	recorder           Recorder
}

// Option configures an Executor
type Option func(*Executor)

// WithDefaultEventType sets the event type used when the planner omits one
func WithDefaultEventType(id int) Option {
	return func(e *Executor) {
		e.defaultEventTypeID = id
	}
}

// WithTimeout bounds each provider call
func WithTimeout(timeout time.Duration) Option {
	return func(e *Executor) {
		if timeout > 0 {
			e.timeout = timeout
		}
	}
}

// WithRecorder stores every executed operation
func WithRecorder(r Recorder) Option {
	return func(e *Executor) {
		e.recorder = r
	}
}

// New creates an executor over provider
func New(provider calcom.Provider, catalog *tools.Catalog, opts ...Option) *Executor {
	e := &Executor{
		provider: provider,
		catalog:  catalog,
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs the named operation. It never panics and never returns a Go
// error: every failure is folded into the returned envelope.
func (e *Executor) Execute(ctx context.Context, name string, raw json.RawMessage) (result Result) {
	start := time.Now()
	op, _ := tools.ParseOperation(name)

	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("operation", name).
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("Operation panicked")
			result = Failed(name, fmt.Errorf("internal error"))
		}
		e.finish(ctx, name, raw, result, time.Since(start))
	}()

	args, err := decodeArguments(raw)
	if err != nil {
		return Failed(name, err)
	}

	opCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var payload map[string]interface{}
	switch op {
	case tools.OpFindAvailableSlots:
		payload, err = e.findAvailableSlots(opCtx, args)
	case tools.OpCreateBooking:
		payload, err = e.createBooking(opCtx, args)
	case tools.OpListBookings:
		payload, err = e.listBookings(opCtx, args)
	case tools.OpCancelBooking:
		payload, err = e.cancelBooking(opCtx, args)
	case tools.OpRescheduleBooking:
		payload, err = e.rescheduleBooking(opCtx, args)
	case tools.OpUnknown:
		return Errorf("unknown operation: %s", name)
	default:
		return Errorf("unhandled operation: %s", name)
	}

	if err != nil {
		return Failed(name, err)
	}
	return Succeeded(payload)
}

func (e *Executor) finish(ctx context.Context, name string, raw json.RawMessage, result Result, elapsed time.Duration) {
	cc := CallContextFrom(ctx)
	ok := result.OK()

	label := name
	if _, known := tools.ParseOperation(name); !known {
		label = tools.OpUnknown.String()
	}
	metrics.ObserveToolCall(label, ok, elapsed.Seconds())

	evt := log.Info()
	if !ok {
		evt = log.Warn().Str("error", result.Error())
	}
	evt.Str("operation", name).
		Str("request_id", cc.RequestID).
		Dur("duration", elapsed).
		Bool("success", ok).
		Msg("Executed operation")

	if e.recorder == nil {
		return
	}
	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	rec := Record{
		RequestID: cc.RequestID,
		Operation: name,
		Arguments: raw,
		Success:   ok,
		Error:     result.Error(),
		Duration:  elapsed,
	}
	if err := e.recorder.Record(recCtx, rec); err != nil {
		log.Warn().Err(err).Str("operation", name).Msg("Failed to record operation")
	}
}

func (e *Executor) validate(op tools.Operation, args arguments) error {
	if e.catalog == nil {
		return nil
	}
	return e.catalog.Validate(op, args)
}

// eventType resolves the event type from the arguments or the configured default
func (e *Executor) eventType(args arguments) (int, error) {
	id, ok, err := args.integer(tools.ArgEventTypeID)
	if err != nil {
		return 0, err
	}
	if ok {
		if id <= 0 {
			return 0, ErrInvalidEventType
		}
		args[tools.ArgEventTypeID] = float64(id)
		return id, nil
	}
	delete(args, tools.ArgEventTypeID)
	if e.defaultEventTypeID <= 0 {
		return 0, ErrMissingEventType
	}
	return e.defaultEventTypeID, nil
}

// bookingUID resolves the booking identifier, falling back to a legacy numeric id
func bookingUID(args arguments) (string, error) {
	uid := args.identifier(tools.ArgBookingUID)
	if uid == "" {
		uid = args.identifier(tools.ArgBookingID)
	}
	if uid == "" {
		return "", ErrMissingBookingUID
	}
	args[tools.ArgBookingUID] = uid
	return uid, nil
}

func (e *Executor) findAvailableSlots(ctx context.Context, args arguments) (map[string]interface{}, error) {
	eventTypeID, err := e.eventType(args)
	if err != nil {
		return nil, err
	}
	if err := e.validate(tools.OpFindAvailableSlots, args); err != nil {
		return nil, err
	}

	date := args.str(tools.ArgDate)
	day, err := parseDate(date)
	if err != nil {
		return nil, err
	}

	start, end := dayBounds(day)
	slots, err := e.provider.ListAvailableSlots(ctx, eventTypeID, start, end)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"date":  date,
		"slots": withinDay(slots, day),
	}, nil
}

func (e *Executor) createBooking(ctx context.Context, args arguments) (map[string]interface{}, error) {
	eventTypeID, err := e.eventType(args)
	if err != nil {
		return nil, err
	}
	if args.str(tools.ArgTimezone) == "" {
		args[tools.ArgTimezone] = "UTC"
	}
	if err := e.validate(tools.OpCreateBooking, args); err != nil {
		return nil, err
	}

	startTime := args.str(tools.ArgStartTime)
	if _, err := parseInstant(tools.ArgStartTime, startTime); err != nil {
		return nil, err
	}
	tz := args.str(tools.ArgTimezone)
	if _, err := time.LoadLocation(tz); err != nil {
		return nil, fmt.Errorf("unknown timezone %q", tz)
	}

	booking, err := e.provider.CreateBooking(ctx, calcom.CreateBookingRequest{
		EventTypeID: eventTypeID,
		Start:       startTime,
		Attendee: calcom.Attendee{
			Name:     args.str(tools.ArgAttendeeName),
			Email:    args.str(tools.ArgAttendeeEmail),
			TimeZone: tz,
		},
		Metadata: map[string]interface{}{"reason": args.str(tools.ArgReason)},
	})
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{"booking": booking}, nil
}

func (e *Executor) listBookings(ctx context.Context, args arguments) (map[string]interface{}, error) {
	email := args.str(tools.ArgUserEmail)
	if email == "" {
		email = CallContextFrom(ctx).UserEmail
	}
	if email == "" {
		return nil, ErrMissingEmail
	}
	status := args.str(tools.ArgStatus)
	if status == "" {
		status = tools.StatusUpcoming
		args[tools.ArgStatus] = status
	}
	if err := e.validate(tools.OpListBookings, args); err != nil {
		return nil, err
	}

	filter := calcom.BookingFilter{Status: status, AttendeeEmail: email}
	if after := args.str(tools.ArgAfterDate); after != "" {
		day, err := parseDate(after)
		if err != nil {
			return nil, err
		}
		filter.AfterStart = midnight(day)
	}
	if before := args.str(tools.ArgBeforeDate); before != "" {
		day, err := parseDate(before)
		if err != nil {
			return nil, err
		}
		filter.BeforeStart = midnight(day)
	}

	bookings, err := e.provider.ListBookings(ctx, filter)
	if err != nil {
		return nil, err
	}
	if bookings == nil {
		bookings = []calcom.Booking{}
	}

	return map[string]interface{}{
		"bookings": bookings,
		"count":    len(bookings),
	}, nil
}

func (e *Executor) cancelBooking(ctx context.Context, args arguments) (map[string]interface{}, error) {
	uid, err := bookingUID(args)
	if err != nil {
		return nil, err
	}
	if err := e.validate(tools.OpCancelBooking, args); err != nil {
		return nil, err
	}

	result, err := e.provider.CancelBooking(ctx, uid, args.str(tools.ArgReason))
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{"result": result}, nil
}

func (e *Executor) rescheduleBooking(ctx context.Context, args arguments) (map[string]interface{}, error) {
	uid, err := bookingUID(args)
	if err != nil {
		return nil, err
	}
	if err := e.validate(tools.OpRescheduleBooking, args); err != nil {
		return nil, err
	}

	newStart := args.str(tools.ArgNewStartTime)
	if _, err := parseInstant(tools.ArgNewStartTime, newStart); err != nil {
		return nil, err
	}

	booking, err := e.provider.RescheduleBooking(ctx, uid, calcom.RescheduleBookingRequest{
		Start:  newStart,
		Reason: args.str(tools.ArgReason),
	})
	if err != nil {
		return nil, err
	}

	newUID := ""
	if booking != nil {
		newUID = booking.UID
	}
	if newUID == uid {
		log.Warn().Str("booking_uid", uid).Msg("Reschedule returned the original booking UID")
	}

	return map[string]interface{}{
		"result":             booking,
		"previousBookingUid": uid,
		"newBookingUid":      newUID,
	}, nil
}
