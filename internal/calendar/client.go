package calendar

import (
	"context"
	"fmt"
	"net/http"

	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// PrimaryCalendarID addresses the authenticated user's primary calendar.
const PrimaryCalendarID = "primary"

// Client wraps the Calendar Events service for a single calendar.
type Client struct {
	events     *calendar.EventsService
	calendarID string
}

// NewClient creates a Calendar client bound to the primary calendar.
func NewClient(ctx context.Context, httpClient *http.Client, opts ...option.ClientOption) (*Client, error) {
	all := append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	svc, err := calendar.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}
	return &Client{events: svc.Events, calendarID: PrimaryCalendarID}, nil
}

// CreateEvent inserts a new event.
func (c *Client) CreateEvent(ctx context.Context, input EventInput) (*calendar.Event, error) {
	created, err := c.events.Insert(c.calendarID, input.toEvent()).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}
	return created, nil
}

// GetEvent fetches a single event.
func (c *Client) GetEvent(ctx context.Context, eventID string) (*calendar.Event, error) {
	ev, err := c.events.Get(c.calendarID, eventID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get event %s: %w", eventID, err)
	}
	return ev, nil
}

// PatchEvent updates only the fields set in input.
func (c *Client) PatchEvent(ctx context.Context, eventID string, input EventInput) (*calendar.Event, error) {
	updated, err := c.events.Patch(c.calendarID, eventID, input.toEvent()).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to update event %s: %w", eventID, err)
	}
	return updated, nil
}

// DeleteEvent removes an event.
func (c *Client) DeleteEvent(ctx context.Context, eventID string) error {
	if err := c.events.Delete(c.calendarID, eventID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to delete event %s: %w", eventID, err)
	}
	return nil
}

// ListOptions bounds ListEvents. TimeMin and TimeMax are RFC 3339 strings.
type ListOptions struct {
	TimeMin    string
	TimeMax    string
	MaxResults int64
	OrderBy    string
}

// ListEvents lists expanded single events in a time range.
func (c *Client) ListEvents(ctx context.Context, opts ListOptions) ([]*calendar.Event, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	orderBy := opts.OrderBy
	if orderBy == "" {
		orderBy = OrderByStartTime
	}

	res, err := c.events.List(c.calendarID).
		TimeMin(opts.TimeMin).
		TimeMax(opts.TimeMax).
		MaxResults(maxResults).
		OrderBy(orderBy).
		SingleEvents(true).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	if res.Items == nil {
		return []*calendar.Event{}, nil
	}
	return res.Items, nil
}
