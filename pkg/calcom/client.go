package calcom

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

const (
	// DefaultBaseURL is the default Cal.com API base URL
	DefaultBaseURL = "https://api.cal.com/v2"

	// DefaultAPIVersion is sent as the cal-api-version header
	DefaultAPIVersion = "2024-08-13"

	// DefaultTimeout is the default HTTP client timeout
	DefaultTimeout = 30 * time.Second
)

// Provider is the scheduling provider consulted by the executor
type Provider interface {
	ListEventTypes(ctx context.Context) ([]EventType, error)
	ListAvailableSlots(ctx context.Context, eventTypeID int, start, end string) (Slots, error)
	CreateBooking(ctx context.Context, req CreateBookingRequest) (*Booking, error)
	ListBookings(ctx context.Context, filter BookingFilter) ([]Booking, error)
	CancelBooking(ctx context.Context, bookingUID, reason string) (*Booking, error)
	RescheduleBooking(ctx context.Context, bookingUID string, req RescheduleBookingRequest) (*Booking, error)
}

// APIError is a non-2xx answer from Cal.com
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// Client handles HTTP communication with the Cal.com API
type Client struct {
	baseURL    string
	apiVersion string
	httpClient *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithAPIVersion overrides the cal-api-version header
func WithAPIVersion(version string) Option {
	return func(c *Client) {
		if version != "" {
			c.apiVersion = version
		}
	}
}

// WithTimeout overrides the HTTP client timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// NewClient creates a new Cal.com API client authenticating with a bearer API key
func NewClient(apiKey string, baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: apiKey, TokenType: "Bearer"})
	httpClient := oauth2.NewClient(context.Background(), src)
	httpClient.Timeout = DefaultTimeout

	c := &Client{
		baseURL:    baseURL,
		apiVersion: DefaultAPIVersion,
		httpClient: httpClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// doRequest performs an HTTP request and decodes the data field of the response envelope
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	fullURL := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "failed to marshal request body")
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("cal-api-version", c.apiVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "request failed")
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response")
	}

	if resp.StatusCode >= 400 {
		var errResp ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.message() != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: errResp.message()}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	if result == nil || len(respBody) == 0 {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return errors.Wrap(err, "failed to unmarshal response")
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, result); err != nil {
		return errors.Wrap(err, "failed to unmarshal response data")
	}

	return nil
}

// ListEventTypes retrieves the authenticated user's event types
func (c *Client) ListEventTypes(ctx context.Context) ([]EventType, error) {
	var data json.RawMessage
	if err := c.doRequest(ctx, http.MethodGet, "/event-types", nil, &data); err != nil {
		return nil, err
	}
	return decodeEventTypes(data)
}

// decodeEventTypes accepts a flat list or the grouped {eventTypeGroups: [...]} form
func decodeEventTypes(data json.RawMessage) ([]EventType, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var flat []EventType
	if err := json.Unmarshal(data, &flat); err == nil {
		return flat, nil
	}

	var grouped struct {
		EventTypeGroups []struct {
			EventTypes []EventType `json:"eventTypes"`
		} `json:"eventTypeGroups"`
	}
	if err := json.Unmarshal(data, &grouped); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal event types")
	}

	var out []EventType
	for _, group := range grouped.EventTypeGroups {
		out = append(out, group.EventTypes...)
	}
	return out, nil
}

// ListAvailableSlots retrieves bookable slots for an event type between two instants
func (c *Client) ListAvailableSlots(ctx context.Context, eventTypeID int, start, end string) (Slots, error) {
	params := url.Values{}
	params.Set("eventTypeId", strconv.Itoa(eventTypeID))
	params.Set("startTime", start)
	params.Set("endTime", end)

	var resp struct {
		Slots Slots `json:"slots"`
	}
	if err := c.doRequest(ctx, http.MethodGet, "/slots/available?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}

	if resp.Slots == nil {
		return Slots{}, nil
	}
	return resp.Slots, nil
}

// CreateBooking creates a new booking
func (c *Client) CreateBooking(ctx context.Context, req CreateBookingRequest) (*Booking, error) {
	if req.Metadata == nil {
		req.Metadata = map[string]interface{}{}
	}

	var booking Booking
	if err := c.doRequest(ctx, http.MethodPost, "/bookings", req, &booking); err != nil {
		return nil, err
	}

	return &booking, nil
}

// ListBookings retrieves bookings matching filter
func (c *Client) ListBookings(ctx context.Context, filter BookingFilter) ([]Booking, error) {
	params := url.Values{}
	if filter.Status != "" {
		params.Set("status", filter.Status)
	}
	if filter.AttendeeEmail != "" {
		params.Set("attendeeEmail", filter.AttendeeEmail)
	}
	if filter.AfterStart != "" {
		params.Set("afterStart", filter.AfterStart)
	}
	if filter.BeforeStart != "" {
		params.Set("beforeStart", filter.BeforeStart)
	}

	path := "/bookings"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var data json.RawMessage
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &data); err != nil {
		return nil, err
	}
	return decodeBookings(data)
}

// decodeBookings accepts a flat list or the {bookings: [...]} form
func decodeBookings(data json.RawMessage) ([]Booking, error) {
	bookings := []Booking{}
	if len(data) == 0 {
		return bookings, nil
	}

	if err := json.Unmarshal(data, &bookings); err == nil {
		return bookings, nil
	}

	var wrapped struct {
		Bookings []Booking `json:"bookings"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal bookings")
	}
	if wrapped.Bookings == nil {
		return []Booking{}, nil
	}
	return wrapped.Bookings, nil
}

// CancelBooking cancels an existing booking
func (c *Client) CancelBooking(ctx context.Context, bookingUID string, reason string) (*Booking, error) {
	path := "/bookings/" + url.PathEscape(bookingUID) + "/cancel"

	var booking Booking
	if err := c.doRequest(ctx, http.MethodPost, path, CancelBookingRequest{Reason: reason}, &booking); err != nil {
		return nil, err
	}

	return &booking, nil
}

// RescheduleBooking moves an existing booking. Cal.com cancels the old booking
// and returns a new one with its own UID.
func (c *Client) RescheduleBooking(ctx context.Context, bookingUID string, req RescheduleBookingRequest) (*Booking, error) {
	path := "/bookings/" + url.PathEscape(bookingUID)

	var booking Booking
	if err := c.doRequest(ctx, http.MethodPatch, path, req, &booking); err != nil {
		return nil, err
	}

	return &booking, nil
}
