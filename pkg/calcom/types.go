package calcom

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Booking represents a Cal.com booking. The provider's original JSON is kept
// and re-emitted on marshal so callers see the booking exactly as returned.
type Booking struct {
	ID          int                    `json:"id,omitempty"`
	UID         string                 `json:"uid"`
	Title       string                 `json:"title,omitempty"`
	Description string                 `json:"description,omitempty"`
	Start       string                 `json:"start,omitempty"`
	End         string                 `json:"end,omitempty"`
	Status      string                 `json:"status,omitempty"`
	Attendees   []Attendee             `json:"attendees,omitempty"`
	EventTypeID int                    `json:"eventTypeId,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	Location    string                 `json:"location,omitempty"`
	MeetingURL  string                 `json:"meetingUrl,omitempty"`

	CancellationReason string `json:"cancellationReason,omitempty"`
	RescheduledFrom    string `json:"rescheduledFromUid,omitempty"`
	RescheduledTo      string `json:"rescheduledToUid,omitempty"`

	raw json.RawMessage
}

// UnmarshalJSON decodes a booking, accepting the older startTime/endTime names
func (b *Booking) UnmarshalJSON(data []byte) error {
	type Alias Booking

	aux := &struct {
		StartTime string `json:"startTime"`
		EndTime   string `json:"endTime"`
		*Alias
	}{
		Alias: (*Alias)(b),
	}

	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}

	if b.Start == "" {
		b.Start = aux.StartTime
	}
	if b.End == "" {
		b.End = aux.EndTime
	}
	b.raw = append(json.RawMessage(nil), data...)

	return nil
}

// MarshalJSON re-emits the provider payload when the booking was decoded from one
func (b Booking) MarshalJSON() ([]byte, error) {
	if len(b.raw) > 0 {
		return b.raw, nil
	}
	type Alias Booking
	return json.Marshal(Alias(b))
}

// HasAttendee reports whether email is among the booking's attendees
func (b Booking) HasAttendee(email string) bool {
	for _, a := range b.Attendees {
		if a.Email == email {
			return true
		}
	}
	return false
}

// Attendee represents a booking attendee
type Attendee struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	TimeZone string `json:"timeZone"`
	Language string `json:"language,omitempty"`
}

// EventType represents a Cal.com event type (booking page)
type EventType struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
	Length      int    `json:"length,omitempty"` // Duration in minutes
	Hidden      bool   `json:"hidden"`
}

// UnmarshalJSON accepts both length and lengthInMinutes
func (e *EventType) UnmarshalJSON(data []byte) error {
	type Alias EventType

	aux := &struct {
		LengthInMinutes int `json:"lengthInMinutes"`
		*Alias
	}{
		Alias: (*Alias)(e),
	}

	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	if e.Length == 0 {
		e.Length = aux.LengthInMinutes
	}
	return nil
}

// Slot is one bookable start time. Providers send either a bare
// timestamp or an object with a "time" field; the original form is preserved.
type Slot struct {
	Time string

	raw json.RawMessage
}

// NewSlot builds a slot from a timestamp
func NewSlot(ts string) Slot {
	raw, _ := json.Marshal(ts)
	return Slot{Time: ts, raw: raw}
}

// UnmarshalJSON decodes either "2026-01-15T14:00:00Z" or {"time": "..."}
func (s *Slot) UnmarshalJSON(data []byte) error {
	var ts string
	if err := json.Unmarshal(data, &ts); err == nil {
		s.Time = ts
		s.raw = append(json.RawMessage(nil), data...)
		return nil
	}

	var obj struct {
		Time  string `json:"time"`
		Start string `json:"start"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("unrecognized slot: %s", string(data))
	}
	s.Time = obj.Time
	if s.Time == "" {
		s.Time = obj.Start
	}
	s.raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON re-emits the slot exactly as the provider sent it
func (s Slot) MarshalJSON() ([]byte, error) {
	if len(s.raw) > 0 {
		return s.raw, nil
	}
	return json.Marshal(s.Time)
}

// Slots is the flat, provider-ordered list of available slots
type Slots []Slot

// UnmarshalJSON accepts a plain list or the date-keyed map Cal.com v2 returns.
// Map entries are flattened in ascending date order.
func (s *Slots) UnmarshalJSON(data []byte) error {
	var list []Slot
	if err := json.Unmarshal(data, &list); err == nil {
		*s = list
		return nil
	}

	var byDate map[string][]Slot
	if err := json.Unmarshal(data, &byDate); err != nil {
		return fmt.Errorf("unrecognized slots payload: %w", err)
	}

	dates := make([]string, 0, len(byDate))
	for date := range byDate {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	out := make([]Slot, 0)
	for _, date := range dates {
		out = append(out, byDate[date]...)
	}
	*s = out
	return nil
}

// CreateBookingRequest represents the request to create a booking
type CreateBookingRequest struct {
	EventTypeID int                    `json:"eventTypeId"`
	Start       string                 `json:"start"` // ISO 8601 instant
	Attendee    Attendee               `json:"attendee"`
	Metadata    map[string]interface{} `json:"metadata"`
}

// BookingFilter narrows a bookings listing
type BookingFilter struct {
	Status        string
	AttendeeEmail string
	AfterStart    string
	BeforeStart   string
}

// RescheduleBookingRequest represents the request to reschedule a booking
type RescheduleBookingRequest struct {
	Start  string `json:"start"` // ISO 8601 instant
	Reason string `json:"rescheduledReason,omitempty"`
}

// CancelBookingRequest represents the request to cancel a booking
type CancelBookingRequest struct {
	Reason string `json:"reason,omitempty"`
}

// envelope is the {status, data} wrapper of every v2 response
type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
}

// ErrorResponse represents a Cal.com API error body
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (e ErrorResponse) message() string {
	if e.Error != nil && e.Error.Message != "" {
		return e.Error.Message
	}
	return e.Message
}
