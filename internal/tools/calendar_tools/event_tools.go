package calendar_tools

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/xtrn-google-mcp/internal/calendar"
	"github.com/teemow/xtrn-google-mcp/internal/instrumentation"
	"github.com/teemow/xtrn-google-mcp/internal/logging"
	"github.com/teemow/xtrn-google-mcp/internal/tools/common"
	"github.com/teemow/xtrn-google-mcp/internal/tools/envelope"
)

const (
	// maxListResults is the largest page events.list accepts.
	maxListResults = 2500
	// maxReminderMinutes is four weeks, the longest reminder lead time.
	maxReminderMinutes = 40320
)

func eventTimeSchema(what string) map[string]interface{} {
	return map[string]interface{}{
		"dateTime": map[string]interface{}{
			"type":        "string",
			"description": what + " time (ISO format)",
		},
		"timeZone": map[string]interface{}{
			"type":        "string",
			"description": "Time zone",
		},
	}
}

var remindersSchema = map[string]interface{}{
	"useDefault": map[string]interface{}{
		"type":        "boolean",
		"description": "Use default reminders (true) or custom reminders (false)",
	},
	"overrides": map[string]interface{}{
		"type":        "array",
		"description": "Custom reminder overrides - only used when useDefault is false",
		"items": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"method": map[string]interface{}{
					"type":        "string",
					"enum":        []string{calendar.ReminderEmail, calendar.ReminderPopup},
					"description": "Reminder method",
				},
				"minutes": map[string]interface{}{
					"type":        "number",
					"description": "Minutes before event to send reminder",
				},
			},
			"required": []string{"method", "minutes"},
		},
	},
}

func (ts *Toolset) registerEventTools(s *mcpserver.MCPServer, readOnly bool) {
	listEventsTool := mcp.NewTool("list_events",
		mcp.WithDescription("Lists events within a specified time range"),
		mcp.WithTitleAnnotation("List calendar events"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithString("timeMin",
			mcp.Required(),
			mcp.Description("Start of time range (ISO format, e.g. '2025-01-01T00:00:00Z')"),
		),
		mcp.WithString("timeMax",
			mcp.Required(),
			mcp.Description("End of time range (ISO format, e.g. '2025-01-31T23:59:59Z')"),
		),
		mcp.WithNumber("maxResults",
			mcp.Description("Maximum number of results (default: 10)"),
			mcp.Min(1),
			mcp.Max(maxListResults),
		),
		mcp.WithString("orderBy",
			mcp.Description("Sort order (default: startTime)"),
			mcp.Enum(calendar.OrderByStartTime, calendar.OrderByUpdated),
		),
	)
	s.AddTool(listEventsTool, ts.instrumented("list_events", instrumentation.OperationList, ts.handleListEvents))

	getEventTool := mcp.NewTool("get_event",
		mcp.WithDescription("Retrieves details of a specific event"),
		mcp.WithTitleAnnotation("Get calendar event"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithString("eventId",
			mcp.Required(),
			mcp.Description("ID of the event to retrieve"),
		),
	)
	s.AddTool(getEventTool, ts.instrumented("get_event", instrumentation.OperationGet, ts.handleGetEvent))

	if readOnly {
		return
	}

	createEventTool := mcp.NewTool("create_event",
		mcp.WithDescription("Creates a new event in Google Calendar with optional reminders/notifications"),
		mcp.WithTitleAnnotation("Create a calendar event with reminders"),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(false),
		mcp.WithString("summary",
			mcp.Required(),
			mcp.Description("Event title"),
		),
		mcp.WithObject("start",
			mcp.Required(),
			mcp.Description("Event start"),
			mcp.Properties(eventTimeSchema("Start")),
		),
		mcp.WithObject("end",
			mcp.Required(),
			mcp.Description("Event end"),
			mcp.Properties(eventTimeSchema("End")),
		),
		mcp.WithString("description",
			mcp.Description("Event description"),
		),
		mcp.WithString("location",
			mcp.Description("Event location"),
		),
		mcp.WithObject("reminders",
			mcp.Description("Event reminders/notifications configuration"),
			mcp.Properties(remindersSchema),
		),
	)
	s.AddTool(createEventTool, ts.instrumented("create_event", instrumentation.OperationCreate, ts.handleCreateEvent))

	updateEventTool := mcp.NewTool("update_event",
		mcp.WithDescription("Updates an existing event. Only the given fields are changed."),
		mcp.WithTitleAnnotation("Update calendar event"),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(false),
		mcp.WithString("eventId",
			mcp.Required(),
			mcp.Description("ID of the event to update"),
		),
		mcp.WithString("summary",
			mcp.Description("New event title"),
		),
		mcp.WithObject("start",
			mcp.Description("New event start"),
			mcp.Properties(eventTimeSchema("New start")),
		),
		mcp.WithObject("end",
			mcp.Description("New event end"),
			mcp.Properties(eventTimeSchema("New end")),
		),
		mcp.WithString("description",
			mcp.Description("New description"),
		),
		mcp.WithString("location",
			mcp.Description("New location"),
		),
		mcp.WithObject("reminders",
			mcp.Description("New reminders/notifications configuration"),
			mcp.Properties(remindersSchema),
		),
	)
	s.AddTool(updateEventTool, ts.instrumented("update_event", instrumentation.OperationUpdate, ts.handleUpdateEvent))

	deleteEventTool := mcp.NewTool("delete_event",
		mcp.WithDescription("Deletes an event from the calendar"),
		mcp.WithTitleAnnotation("Delete calendar event"),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(true),
		mcp.WithString("eventId",
			mcp.Required(),
			mcp.Description("ID of the event to delete"),
		),
	)
	s.AddTool(deleteEventTool, ts.instrumented("delete_event", instrumentation.OperationDelete, ts.handleDeleteEvent))
}

// parseEventTime reads a {dateTime, timeZone?} object.
func parseEventTime(args map[string]interface{}, name string, required bool) (*calendar.EventTime, error) {
	obj, ok, err := common.OptionalObject(args, name)
	if err != nil {
		return nil, err
	}
	if !ok {
		if required {
			return nil, &common.ArgError{Name: name, Reason: "is required"}
		}
		return nil, nil
	}

	dateTime, err := common.RequireString(obj, "dateTime")
	if err != nil {
		return nil, &common.ArgError{Name: name + ".dateTime", Reason: "is required"}
	}
	timeZone, _, err := common.OptionalString(obj, "timeZone")
	if err != nil {
		return nil, &common.ArgError{Name: name + ".timeZone", Reason: "must be a string"}
	}
	return &calendar.EventTime{DateTime: dateTime, TimeZone: timeZone}, nil
}

// parseReminders reads the reminders object. useDefault defaults to false.
func parseReminders(args map[string]interface{}) (*calendar.Reminders, error) {
	obj, ok, err := common.OptionalObject(args, "reminders")
	if err != nil || !ok {
		return nil, err
	}

	useDefault, err := common.OptionalBool(obj, "useDefault", false)
	if err != nil {
		return nil, &common.ArgError{Name: "reminders.useDefault", Reason: "must be a boolean"}
	}
	reminders := &calendar.Reminders{UseDefault: useDefault}

	raw, ok := obj["overrides"]
	if !ok || raw == nil {
		return reminders, nil
	}
	items, ok := raw.([]interface{})
	if !ok {
		return nil, &common.ArgError{Name: "reminders.overrides", Reason: "must be an array"}
	}
	for i, item := range items {
		o, ok := item.(map[string]interface{})
		if !ok {
			return nil, &common.ArgError{Name: fmt.Sprintf("reminders.overrides[%d]", i), Reason: "must be an object"}
		}
		method, err := common.OptionalEnum(o, "method", "", calendar.ReminderEmail, calendar.ReminderPopup)
		if err != nil || method == "" {
			return nil, &common.ArgError{
				Name:   fmt.Sprintf("reminders.overrides[%d].method", i),
				Reason: "must be one of: email, popup",
			}
		}
		minutes, err := common.OptionalInt(o, "minutes", -1, 0, maxReminderMinutes)
		if err != nil || minutes < 0 {
			return nil, &common.ArgError{
				Name:   fmt.Sprintf("reminders.overrides[%d].minutes", i),
				Reason: fmt.Sprintf("must be an integer between 0 and %d", maxReminderMinutes),
			}
		}
		reminders.Overrides = append(reminders.Overrides, calendar.ReminderOverride{Method: method, Minutes: minutes})
	}
	return reminders, nil
}

// parseEventInput reads the event fields shared by create_event and
// update_event. Start and end are required for create.
func parseEventInput(args map[string]interface{}, create bool) (calendar.EventInput, error) {
	var (
		in  calendar.EventInput
		err error
	)

	if create {
		in.Summary, err = common.RequireString(args, "summary")
	} else {
		in.Summary, _, err = common.OptionalString(args, "summary")
	}
	if err != nil {
		return in, err
	}
	if in.Start, err = parseEventTime(args, "start", create); err != nil {
		return in, err
	}
	if in.End, err = parseEventTime(args, "end", create); err != nil {
		return in, err
	}
	if in.Description, _, err = common.OptionalString(args, "description"); err != nil {
		return in, err
	}
	if in.Location, _, err = common.OptionalString(args, "location"); err != nil {
		return in, err
	}
	if in.Reminders, err = parseReminders(args); err != nil {
		return in, err
	}
	return in, nil
}

// requireRFC3339 validates a timeMin or timeMax argument.
func requireRFC3339(args map[string]interface{}, name string) (string, error) {
	s, err := common.RequireString(args, name)
	if err != nil {
		return "", err
	}
	if _, err := time.Parse(time.RFC3339, s); err != nil {
		return "", &common.ArgError{Name: name, Reason: "must be an RFC 3339 timestamp such as 2025-01-01T00:00:00Z"}
	}
	return s, nil
}

func (ts *Toolset) handleListEvents(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	timeMin, err := requireRFC3339(args, "timeMin")
	if err != nil {
		return envelope.FromError(err), nil
	}
	timeMax, err := requireRFC3339(args, "timeMax")
	if err != nil {
		return envelope.FromError(err), nil
	}
	maxResults, err := common.OptionalInt(args, "maxResults", calendar.DefaultMaxResults, 1, maxListResults)
	if err != nil {
		return envelope.FromError(err), nil
	}
	orderBy, err := common.OptionalEnum(args, "orderBy", calendar.OrderByStartTime, calendar.OrderByStartTime, calendar.OrderByUpdated)
	if err != nil {
		return envelope.FromError(err), nil
	}

	svc, err := ts.client(ctx)
	if err != nil {
		return envelope.FromError(err), nil
	}

	events, err := svc.ListEvents(ctx, calendar.ListOptions{
		TimeMin:    timeMin,
		TimeMax:    timeMax,
		MaxResults: maxResults,
		OrderBy:    orderBy,
	})
	if err != nil {
		return envelope.FromError(err), nil
	}
	return envelope.JSON(events), nil
}

func (ts *Toolset) handleGetEvent(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	eventID, err := common.RequireString(request.GetArguments(), "eventId")
	if err != nil {
		return envelope.FromError(err), nil
	}

	svc, err := ts.client(ctx)
	if err != nil {
		return envelope.FromError(err), nil
	}

	event, err := svc.GetEvent(ctx, eventID)
	if err != nil {
		return envelope.FromError(err), nil
	}
	return envelope.JSON(event), nil
}

func (ts *Toolset) handleCreateEvent(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := parseEventInput(request.GetArguments(), true)
	if err != nil {
		return envelope.FromError(err), nil
	}

	svc, err := ts.client(ctx)
	if err != nil {
		return envelope.FromError(err), nil
	}

	event, err := svc.CreateEvent(ctx, input)
	if err != nil {
		return envelope.FromError(err), nil
	}
	ts.logger.Debug("event created", logging.ItemID(event.Id), slog.Bool("reminders", input.Reminders != nil))
	return envelope.JSON(map[string]interface{}{
		"success": true,
		"message": fmt.Sprintf("Event created with ID: %s", event.Id),
		"event":   event,
	}), nil
}

func (ts *Toolset) handleUpdateEvent(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	eventID, err := common.RequireString(args, "eventId")
	if err != nil {
		return envelope.FromError(err), nil
	}
	input, err := parseEventInput(args, false)
	if err != nil {
		return envelope.FromError(err), nil
	}
	if input.IsEmpty() {
		return envelope.LLMError("At least one field (summary, start, end, description, location, or reminders) must be provided"), nil
	}

	svc, err := ts.client(ctx)
	if err != nil {
		return envelope.FromError(err), nil
	}

	event, err := svc.PatchEvent(ctx, eventID, input)
	if err != nil {
		return envelope.FromError(err), nil
	}
	return envelope.JSON(map[string]interface{}{
		"success": true,
		"message": fmt.Sprintf("Event updated: %s", eventID),
		"event":   event,
	}), nil
}

func (ts *Toolset) handleDeleteEvent(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	eventID, err := common.RequireString(request.GetArguments(), "eventId")
	if err != nil {
		return envelope.FromError(err), nil
	}

	svc, err := ts.client(ctx)
	if err != nil {
		return envelope.FromError(err), nil
	}

	if err := svc.DeleteEvent(ctx, eventID); err != nil {
		return envelope.FromError(err), nil
	}
	ts.logger.Info("event deleted", logging.ItemID(eventID))
	return envelope.JSON(map[string]interface{}{
		"success":        true,
		"message":        fmt.Sprintf("Event deleted: %s", eventID),
		"deletedEventId": eventID,
	}), nil
}
