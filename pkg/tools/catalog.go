// Package tools describes the fixed menu of calendar operations offered to the planner.
package tools

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Argument names shared by the catalog and the executor
const (
	ArgDate          = "date"
	ArgEventTypeID   = "eventTypeId"
	ArgStartTime     = "startTime"
	ArgAttendeeEmail = "attendeeEmail"
	ArgAttendeeName  = "attendeeName"
	ArgReason        = "reason"
	ArgTimezone      = "timezone"
	ArgUserEmail     = "userEmail"
	ArgStatus        = "status"
	ArgAfterDate     = "afterDate"
	ArgBeforeDate    = "beforeDate"
	ArgBookingUID    = "bookingUid"
	ArgBookingID     = "bookingId"
	ArgNewStartTime  = "newStartTime"
)

// Booking status filters accepted by list-bookings
const (
	StatusUpcoming  = "upcoming"
	StatusPast      = "past"
	StatusCancelled = "cancelled"
)

// Definition describes one operation for the planner
type Definition struct {
	Operation   Operation       `json:"-"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  ParameterSchema `json:"parameters"`
}

// Catalog is the ordered, immutable set of operation definitions
type Catalog struct {
	definitions []Definition
	schemas     map[Operation]*gojsonschema.Schema
}

// NewCatalog builds the five calendar operations and compiles their schemas
func NewCatalog() (*Catalog, error) {
	defs := []Definition{
		findAvailableSlots(),
		createBooking(),
		listBookings(),
		cancelBooking(),
		rescheduleBooking(),
	}

	c := &Catalog{
		definitions: defs,
		schemas:     make(map[Operation]*gojsonschema.Schema, len(defs)),
	}
	for _, def := range defs {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(def.Parameters.Map()))
		if err != nil {
			return nil, fmt.Errorf("invalid schema for %s: %w", def.Name, err)
		}
		c.schemas[def.Operation] = schema
	}
	return c, nil
}

// MustCatalog is NewCatalog for process start-up; it panics on a broken schema
func MustCatalog() *Catalog {
	c, err := NewCatalog()
	if err != nil {
		panic(err)
	}
	return c
}

// Definitions returns a copy of the definitions in catalog order
func (c *Catalog) Definitions() []Definition {
	out := make([]Definition, len(c.definitions))
	copy(out, c.definitions)
	return out
}

// Lookup returns the definition for op
func (c *Catalog) Lookup(op Operation) (Definition, bool) {
	for _, def := range c.definitions {
		if def.Operation == op {
			return def, true
		}
	}
	return Definition{}, false
}

// Validate checks args against the operation's parameter schema
func (c *Catalog) Validate(op Operation, args map[string]interface{}) error {
	schema, ok := c.schemas[op]
	if !ok {
		return fmt.Errorf("unknown operation: %s", op)
	}
	if args == nil {
		args = map[string]interface{}{}
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, len(result.Errors()))
	for i, verr := range result.Errors() {
		msgs[i] = verr.String()
	}
	return fmt.Errorf("invalid arguments: %s", strings.Join(msgs, "; "))
}

// Summary renders a human-readable listing of the catalog
func (c *Catalog) Summary() string {
	var sb strings.Builder
	for _, def := range c.definitions {
		sb.WriteString(fmt.Sprintf("%s\n  %s\n", def.Name, def.Description))
		for _, name := range sortedKeys(def.Parameters.Properties) {
			required := ""
			if def.Parameters.IsRequired(name) {
				required = " (required)"
			}
			sb.WriteString(fmt.Sprintf("  - %s%s\n", name, required))
		}
	}
	return sb.String()
}

// MarshalJSON renders the definitions as a JSON array
func (c *Catalog) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.definitions)
}

func findAvailableSlots() Definition {
	params := NewParameterSchema()
	params.AddProperty(ArgDate, DateProperty(
		"The date to check availability for, in YYYY-MM-DD format (e.g., '2026-01-15')"), true)
	params.AddProperty(ArgEventTypeID, IntegerProperty(
		"The event type ID to check availability for. Omit to use the configured default."), false)

	return Definition{
		Operation: OpFindAvailableSlots,
		Name:      OpFindAvailableSlots.String(),
		Description: "Get available time slots for booking a meeting on one calendar day. " +
			"Use this when the user wants to book a meeting and you need to check availability. " +
			"Only the slots returned by this operation exist; never suggest any other time.",
		Parameters: params,
	}
}

func createBooking() Definition {
	params := NewParameterSchema()
	params.AddProperty(ArgStartTime, StringProperty(
		"The start time of the meeting in ISO 8601 format (e.g., '2026-01-15T14:00:00Z')"), true)
	email := StringProperty("Email address of the attendee booking the meeting")
	email.Format = "email"
	params.AddProperty(ArgAttendeeEmail, email, true)
	params.AddProperty(ArgAttendeeName, NonEmptyStringProperty("Full name of the attendee"), true)
	params.AddProperty(ArgReason, StringProperty("Reason or description for the meeting"), true)
	params.AddProperty(ArgEventTypeID, IntegerProperty(
		"The event type ID. Omit to use the configured default."), false)
	tz := StringProperty("Timezone of the attendee (e.g., 'America/New_York', 'UTC'). Defaults to UTC.")
	tz.Default = "UTC"
	params.AddProperty(ArgTimezone, tz, false)

	return Definition{
		Operation: OpCreateBooking,
		Name:      OpCreateBooking.String(),
		Description: "Create a new booking/meeting. Use this after confirming the time slot is available " +
			"and you have all necessary details (date, time, attendee name, attendee email, reason).",
		Parameters: params,
	}
}

func listBookings() Definition {
	params := NewParameterSchema()
	email := StringProperty(
		"Email address of the user to get bookings for (optional, the user's email from context is used if not provided)")
	email.Format = "email"
	params.AddProperty(ArgUserEmail, email, false)
	params.AddProperty(ArgStatus, StringEnumProperty(
		"Filter bookings by status. Defaults to 'upcoming'.",
		StatusUpcoming, StatusUpcoming, StatusPast, StatusCancelled), false)
	params.AddProperty(ArgAfterDate, DateProperty(
		"Only get bookings after this date in YYYY-MM-DD format"), false)
	params.AddProperty(ArgBeforeDate, DateProperty(
		"Only get bookings before this date in YYYY-MM-DD format"), false)

	return Definition{
		Operation: OpListBookings,
		Name:      OpListBookings.String(),
		Description: "Get a list of scheduled bookings/meetings for a user. Use this when the user asks to see " +
			"their scheduled events or meetings. The user's email is used automatically from context.",
		Parameters: params,
	}
}

func cancelBooking() Definition {
	params := NewParameterSchema()
	params.AddProperty(ArgBookingUID, NonEmptyStringProperty(
		"The UID of the booking to cancel (an opaque string, not the numeric ID). Get this from list-bookings."), true)
	params.AddProperty(ArgBookingID, IntegerProperty(
		"Legacy numeric booking ID, used only when bookingUid is unknown"), false)
	params.AddProperty(ArgReason, StringProperty("Reason for cancellation"), false)

	return Definition{
		Operation: OpCancelBooking,
		Name:      OpCancelBooking.String(),
		Description: "Cancel a scheduled booking/meeting. First use list-bookings to find the booking UID, then cancel it. " +
			"The booking UID is a string like 'eTHSdCB89qzCiazPWHV15x', not the numeric ID.",
		Parameters: params,
	}
}

func rescheduleBooking() Definition {
	params := NewParameterSchema()
	params.AddProperty(ArgBookingUID, NonEmptyStringProperty(
		"The UID of the booking to reschedule (an opaque string, not the numeric ID). Get this from list-bookings."), true)
	params.AddProperty(ArgBookingID, IntegerProperty(
		"Legacy numeric booking ID, used only when bookingUid is unknown"), false)
	params.AddProperty(ArgNewStartTime, StringProperty(
		"The new start time in ISO 8601 format (e.g., '2026-01-15T14:00:00Z')"), true)
	params.AddProperty(ArgReason, StringProperty("Optional reason for rescheduling"), false)

	return Definition{
		Operation: OpRescheduleBooking,
		Name:      OpRescheduleBooking.String(),
		Description: "Reschedule an existing booking to a new time. First use list-bookings to find the booking UID, " +
			"then reschedule it. The booking UID is a string like 'hN13LiTrTAsWbuP8dmhLzG', not the numeric ID. " +
			"Rescheduling replaces the booking: the result carries a NEW booking UID, and the old UID is no longer valid.",
		Parameters: params,
	}
}
