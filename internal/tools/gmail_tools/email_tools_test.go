package gmail_tools

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/xtrn-google-mcp/internal/gmail"
)

func TestListEmails(t *testing.T) {
	fake := newFakeService()
	s := newTestServer(t, newTestToolset(fake, nil), true)

	out := payload(t, callTool(t, s, "list_emails", nil))
	assert.Equal(t, float64(1), out["resultSizeEstimate"])

	payload(t, callTool(t, s, "list_emails", map[string]interface{}{
		"maxResults":       float64(25),
		"query":            "from:boss@example.com",
		"labelIds":         []interface{}{"INBOX", "UNREAD"},
		"includeSpamTrash": true,
		"pageToken":        "page-2",
	}))

	require.Len(t, fake.listOpts, 2)
	assert.Equal(t, gmail.ListOptions{MaxResults: 10}, fake.listOpts[0])
	assert.Equal(t, gmail.ListOptions{
		MaxResults:       25,
		Query:            "from:boss@example.com",
		LabelIDs:         []string{"INBOX", "UNREAD"},
		IncludeSpamTrash: true,
		PageToken:        "page-2",
	}, fake.listOpts[1])
}

func TestListEmails_InvalidArguments(t *testing.T) {
	tests := []struct {
		name string
		args map[string]interface{}
		want string
	}{
		{name: "too many", args: map[string]interface{}{"maxResults": float64(101)}, want: "Invalid arguments: maxResults must be between 1 and 100"},
		{name: "zero", args: map[string]interface{}{"maxResults": float64(0)}, want: "Invalid arguments: maxResults must be between 1 and 100"},
		{name: "fraction", args: map[string]interface{}{"maxResults": 2.5}, want: "Invalid arguments: maxResults must be an integer"},
		{name: "labels not strings", args: map[string]interface{}{"labelIds": []interface{}{1}}, want: "Invalid arguments: labelIds item 0 must be a string"},
		{name: "bool as string", args: map[string]interface{}{"includeSpamTrash": "yes"}, want: "Invalid arguments: includeSpamTrash must be a boolean"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFakeService()
			s := newTestServer(t, newTestToolset(fake, nil), true)

			assert.Equal(t, tt.want, requireLLMError(t, callTool(t, s, "list_emails", tt.args)))
			assert.Empty(t, fake.listOpts, "no upstream call on invalid input")
		})
	}
}

func TestGetEmail(t *testing.T) {
	fake := newFakeService()
	fake.fail["missing"] = notFound("missing")
	s := newTestServer(t, newTestToolset(fake, nil), true)

	out := payload(t, callTool(t, s, "get_email", map[string]interface{}{"messageId": "m1"}))
	assert.Equal(t, "m1", out["id"])

	payload(t, callTool(t, s, "get_email", map[string]interface{}{"messageId": "m1", "format": "metadata"}))
	assert.Equal(t, []string{"full", "metadata"}, fake.getFormats)

	msg := requireLLMError(t, callTool(t, s, "get_email", map[string]interface{}{"messageId": "m1", "format": "html"}))
	assert.Equal(t, "Invalid arguments: format must be one of: minimal, full, raw, metadata", msg)

	msg = requireLLMError(t, callTool(t, s, "get_email", nil))
	assert.Equal(t, "Invalid arguments: messageId is required", msg)

	msg = requireLLMError(t, callTool(t, s, "get_email", map[string]interface{}{"messageId": "missing"}))
	assert.Contains(t, msg, "Requested entity was not found.")
}

func TestSearchEmails(t *testing.T) {
	fake := newFakeService()
	s := newTestServer(t, newTestToolset(fake, nil), true)

	msg := requireLLMError(t, callTool(t, s, "search_emails", nil))
	assert.Equal(t, "Invalid arguments: query is required", msg)

	payload(t, callTool(t, s, "search_emails", map[string]interface{}{
		"query":      "has:attachment",
		"maxResults": float64(200),
		"labelIds":   []interface{}{"INBOX"},
	}))
	require.Len(t, fake.listOpts, 1)
	assert.Equal(t, gmail.ListOptions{MaxResults: 200, Query: "has:attachment", LabelIDs: []string{"INBOX"}}, fake.listOpts[0])
}

func TestSendEmail(t *testing.T) {
	fake := newFakeService()
	s := newTestServer(t, newTestToolset(fake, nil), false)

	out := payload(t, callTool(t, s, "send_email", map[string]interface{}{
		"to":      []interface{}{"a@example.com", "b@example.com"},
		"cc":      []interface{}{"c@example.com"},
		"replyTo": "reply@example.com",
		"subject": "Status",
		"body":    "All good",
	}))
	assert.Equal(t, "sent-1", out["id"])

	decoded, err := base64.RawURLEncoding.DecodeString(fake.sentRaw)
	require.NoError(t, err)
	assert.Equal(t,
		"To: a@example.com, b@example.com\nSubject: Status\nCc: c@example.com\nReply-To: reply@example.com\n\nAll good",
		string(decoded))
}

func TestSendEmail_Validation(t *testing.T) {
	valid := func() map[string]interface{} {
		return map[string]interface{}{
			"to":      []interface{}{"a@example.com"},
			"subject": "Hi",
			"body":    "Body",
		}
	}

	tests := []struct {
		name   string
		mutate func(args map[string]interface{})
		want   string
	}{
		{name: "missing to", mutate: func(a map[string]interface{}) { delete(a, "to") }, want: "Invalid arguments: to must contain at least one item"},
		{name: "empty to", mutate: func(a map[string]interface{}) { a["to"] = []interface{}{} }, want: "Invalid arguments: to must contain at least one item"},
		{name: "bad to", mutate: func(a map[string]interface{}) { a["to"] = []interface{}{"a@example.com", "nope"} }, want: "Invalid arguments: to[1] must be a valid email address"},
		{name: "bad cc", mutate: func(a map[string]interface{}) { a["cc"] = []interface{}{"nope"} }, want: "Invalid arguments: cc[0] must be a valid email address"},
		{name: "bad bcc", mutate: func(a map[string]interface{}) { a["bcc"] = []interface{}{"@"} }, want: "Invalid arguments: bcc[0] must be a valid email address"},
		{name: "bad reply-to", mutate: func(a map[string]interface{}) { a["replyTo"] = "nope" }, want: "Invalid arguments: replyTo must be a valid email address"},
		{name: "empty subject", mutate: func(a map[string]interface{}) { a["subject"] = "" }, want: "Invalid arguments: subject is required"},
		{name: "missing body", mutate: func(a map[string]interface{}) { delete(a, "body") }, want: "Invalid arguments: body is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFakeService()
			s := newTestServer(t, newTestToolset(fake, nil), false)

			args := valid()
			tt.mutate(args)
			assert.Equal(t, tt.want, requireLLMError(t, callTool(t, s, "send_email", args)))
			assert.Empty(t, fake.sentRaw)
		})
	}
}

func TestDraftEmail(t *testing.T) {
	fake := newFakeService()
	s := newTestServer(t, newTestToolset(fake, nil), false)

	out := payload(t, callTool(t, s, "draft_email", map[string]interface{}{
		"to":       []interface{}{"a@example.com"},
		"subject":  "Grüße",
		"body":     "Hallo",
		"threadId": "thread-9",
	}))
	assert.Equal(t, "draft-1", out["id"])
	assert.Equal(t, "thread-9", fake.draftThread)

	decoded, err := base64.RawURLEncoding.DecodeString(fake.draftRaw)
	require.NoError(t, err)
	assert.Contains(t, string(decoded), "Subject: =?utf-8?")
	assert.NotContains(t, string(decoded), "Grüße")
}

func TestModifyEmail(t *testing.T) {
	tests := []struct {
		name       string
		args       map[string]interface{}
		wantAdd    []string
		wantRemove []string
	}{
		{
			name:       "add and remove",
			args:       map[string]interface{}{"addLabelIds": []interface{}{"STARRED"}, "removeLabelIds": []interface{}{"INBOX"}},
			wantAdd:    []string{"STARRED"},
			wantRemove: []string{"INBOX"},
		},
		{
			name:    "legacy labelIds",
			args:    map[string]interface{}{"labelIds": []interface{}{"IMPORTANT"}},
			wantAdd: []string{"IMPORTANT"},
		},
		{
			name:    "addLabelIds wins over legacy",
			args:    map[string]interface{}{"labelIds": []interface{}{"IMPORTANT"}, "addLabelIds": []interface{}{"WORK"}},
			wantAdd: []string{"WORK"},
		},
		{
			name:       "remove only",
			args:       map[string]interface{}{"removeLabelIds": []interface{}{"UNREAD"}},
			wantRemove: []string{"UNREAD"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFakeService()
			s := newTestServer(t, newTestToolset(fake, nil), false)

			tt.args["messageId"] = "m1"
			out := payload(t, callTool(t, s, "modify_email", tt.args))
			assert.Equal(t, "m1", out["id"])

			got := fake.modified["m1"]
			assert.Equal(t, tt.wantAdd, got[0])
			assert.Equal(t, tt.wantRemove, got[1])
		})
	}
}

func TestModifyEmail_NoLabels(t *testing.T) {
	fake := newFakeService()
	s := newTestServer(t, newTestToolset(fake, nil), false)

	msg := requireLLMError(t, callTool(t, s, "modify_email", map[string]interface{}{
		"messageId":   "m1",
		"addLabelIds": []interface{}{},
	}))
	assert.Equal(t, "At least one of addLabelIds, removeLabelIds, or labelIds must be provided", msg)
	assert.Empty(t, fake.modified)
}

func TestDeleteEmail(t *testing.T) {
	fake := newFakeService()
	fake.fail["gone"] = notFound("gone")
	s := newTestServer(t, newTestToolset(fake, nil), false)

	out := payload(t, callTool(t, s, "delete_email", map[string]interface{}{"messageId": "m1"}))
	assert.Equal(t, true, out["success"])
	assert.Equal(t, "Email m1 deleted successfully", out["message"])
	assert.Equal(t, "m1", out["deletedMessageId"])
	assert.Equal(t, []string{"m1"}, fake.deleted)

	msg := requireLLMError(t, callTool(t, s, "delete_email", map[string]interface{}{"messageId": "gone"}))
	assert.Contains(t, msg, "Requested entity was not found.")
}
