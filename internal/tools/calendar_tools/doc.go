// Package calendar_tools provides MCP tools for the primary Google Calendar.
//
// RegisterCalendarTools adds greet, list_events and get_event, plus
// create_event, update_event and delete_event unless the server is
// read-only. Results use the same envelope as the Gmail tools.
//
// Times are passed as objects with an RFC 3339 dateTime and an optional IANA
// timeZone:
//
//	create_event(summary: "Standup",
//	    start: {dateTime: "2025-03-01T09:00:00", timeZone: "Europe/Berlin"},
//	    end:   {dateTime: "2025-03-01T09:15:00", timeZone: "Europe/Berlin"},
//	    reminders: {useDefault: false, overrides: [{method: "popup", minutes: 10}]})
//
// update_event uses patch semantics: only the given fields change.
package calendar_tools
