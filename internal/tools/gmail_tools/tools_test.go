package gmail_tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	gmail_v1 "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/teemow/xtrn-google-mcp/internal/config"
	"github.com/teemow/xtrn-google-mcp/internal/gmail"
	"github.com/teemow/xtrn-google-mcp/internal/google"
	"github.com/teemow/xtrn-google-mcp/internal/server"
	"github.com/teemow/xtrn-google-mcp/internal/tools/envelope"
)

// fakeService is an in-memory Service. Calls for IDs listed in fail return
// that error.
type fakeService struct {
	mu sync.Mutex

	listOpts    []gmail.ListOptions
	getFormats  []string
	sentRaw     string
	draftRaw    string
	draftThread string
	modified    map[string][2][]string
	deleted     []string

	labels   []*gmail_v1.Label
	created  []*gmail_v1.Label
	patched  map[string]*gmail_v1.Label
	delLabel []string

	attachments     map[string][]byte
	attachmentNames map[string]string

	fail map[string]error
}

func newFakeService() *fakeService {
	return &fakeService{
		modified:        map[string][2][]string{},
		patched:         map[string]*gmail_v1.Label{},
		attachments:     map[string][]byte{},
		attachmentNames: map[string]string{},
		fail:            map[string]error{},
	}
}

func notFound(id string) error {
	return fmt.Errorf("failed to access %s: %w", id, &googleapi.Error{Code: http.StatusNotFound, Message: "Requested entity was not found."})
}

func (f *fakeService) failure(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fail[id]
}

func (f *fakeService) ListMessages(_ context.Context, opts gmail.ListOptions) (*gmail_v1.ListMessagesResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listOpts = append(f.listOpts, opts)
	return &gmail_v1.ListMessagesResponse{
		Messages:           []*gmail_v1.Message{{Id: "m1", ThreadId: "t1"}},
		ResultSizeEstimate: 1,
	}, nil
}

func (f *fakeService) GetMessage(_ context.Context, id, format string) (*gmail_v1.Message, error) {
	if err := f.failure(id); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getFormats = append(f.getFormats, format)
	return &gmail_v1.Message{Id: id, Snippet: "hello"}, nil
}

func (f *fakeService) SendMessage(_ context.Context, raw string) (*gmail_v1.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sentRaw = raw
	return &gmail_v1.Message{Id: "sent-1", LabelIds: []string{"SENT"}}, nil
}

func (f *fakeService) CreateDraft(_ context.Context, raw, threadID string) (*gmail_v1.Draft, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draftRaw = raw
	f.draftThread = threadID
	return &gmail_v1.Draft{Id: "draft-1", Message: &gmail_v1.Message{Id: "m-d", ThreadId: threadID}}, nil
}

func (f *fakeService) ModifyMessage(_ context.Context, id string, add, remove []string) (*gmail_v1.Message, error) {
	if err := f.failure(id); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.modified[id] = [2][]string{add, remove}
	return &gmail_v1.Message{Id: id, LabelIds: add}, nil
}

func (f *fakeService) DeleteMessage(_ context.Context, id string) error {
	if err := f.failure(id); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeService) ListLabels(context.Context) (*gmail_v1.ListLabelsResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &gmail_v1.ListLabelsResponse{Labels: f.labels}, nil
}

func (f *fakeService) CreateLabel(_ context.Context, label *gmail_v1.Label) (*gmail_v1.Label, error) {
	if err := f.failure(label.Name); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, label)
	out := *label
	out.Id = fmt.Sprintf("Label_%d", len(f.created))
	out.Type = "user"
	return &out, nil
}

func (f *fakeService) PatchLabel(_ context.Context, id string, label *gmail_v1.Label) (*gmail_v1.Label, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patched[id] = label
	out := *label
	out.Id = id
	return &out, nil
}

func (f *fakeService) DeleteLabel(_ context.Context, id string) error {
	if err := f.failure(id); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delLabel = append(f.delLabel, id)
	return nil
}

func (f *fakeService) FindLabelByName(ctx context.Context, name string) (*gmail_v1.Label, error) {
	res, _ := f.ListLabels(ctx)
	for _, l := range res.Labels {
		if l.Name == name {
			return l, nil
		}
	}
	return nil, nil
}

func (f *fakeService) GetAttachment(_ context.Context, messageID, attachmentID string) ([]byte, error) {
	if err := f.failure(attachmentID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.attachments[attachmentID]
	if !ok {
		return nil, gmail.ErrNoAttachmentData
	}
	return data, nil
}

func (f *fakeService) AttachmentFilename(_ context.Context, _, attachmentID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if name, ok := f.attachmentNames[attachmentID]; ok {
		return name, nil
	}
	return "attachment-" + attachmentID, nil
}

func newTestToolset(svc Service, cfg *config.Config) *Toolset {
	return NewToolset(func(context.Context) (Service, error) { return svc, nil }, cfg, nil, slog.New(slog.DiscardHandler))
}

func newTestServer(t *testing.T, ts *Toolset, readOnly bool) *mcpserver.MCPServer {
	t.Helper()
	s := mcpserver.NewMCPServer("test", "0.0.0", mcpserver.WithToolCapabilities(true))
	require.NoError(t, ts.Register(s, readOnly))
	return s
}

func callTool(t *testing.T, s *mcpserver.MCPServer, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	tool, ok := s.ListTools()[name]
	require.True(t, ok, "tool %s is not registered", name)

	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args

	res, err := tool.Handler(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func header(t *testing.T, res *mcp.CallToolResult) envelope.Header {
	t.Helper()
	h, err := envelope.ParseHeader(res)
	require.NoError(t, err)
	return h
}

// payload decodes the JSON payload of a RESPONSE envelope.
func payload(t *testing.T, res *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	require.False(t, res.IsError, "unexpected error result: %s", envelope.PayloadText(res))
	assert.Equal(t, envelope.TypeResponse, header(t, res).MessageType)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(envelope.PayloadText(res)), &out))
	return out
}

// requireLLMError asserts an LLM_ERROR_RESPONSE and returns its text.
func requireLLMError(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.True(t, res.IsError)
	assert.Equal(t, envelope.TypeLLMError, header(t, res).MessageType)
	return envelope.PayloadText(res)
}

func toolNames(s *mcpserver.MCPServer) []string {
	names := make([]string, 0)
	for name := range s.ListTools() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func TestRegister(t *testing.T) {
	readOnlyTools := []string{
		"get_email",
		"greet",
		"list_emails",
		"list_labels",
		"search_emails",
	}
	allTools := []string{
		"batch_delete_emails",
		"batch_modify_emails",
		"create_label",
		"delete_email",
		"delete_label",
		"download_attachment",
		"draft_email",
		"get_email",
		"get_or_create_label",
		"greet",
		"list_emails",
		"list_labels",
		"modify_email",
		"search_emails",
		"send_email",
		"update_label",
	}

	ts := newTestToolset(newFakeService(), nil)
	assert.Equal(t, readOnlyTools, toolNames(newTestServer(t, ts, true)))
	assert.Equal(t, allTools, toolNames(newTestServer(t, ts, false)))

	assert.Error(t, ts.Register(nil, false))
}

func TestToolAnnotations(t *testing.T) {
	s := newTestServer(t, newTestToolset(newFakeService(), nil), false)
	tools := s.ListTools()

	listEmails := tools["list_emails"].Tool
	require.NotNil(t, listEmails.Annotations.ReadOnlyHint)
	assert.True(t, *listEmails.Annotations.ReadOnlyHint)

	deleteEmail := tools["delete_email"].Tool
	require.NotNil(t, deleteEmail.Annotations.DestructiveHint)
	assert.True(t, *deleteEmail.Annotations.DestructiveHint)

	assert.Contains(t, tools["send_email"].Tool.InputSchema.Required, "to")
	assert.Contains(t, tools["batch_modify_emails"].Tool.InputSchema.Required, "messageIds")
}

func TestGreet(t *testing.T) {
	s := newTestServer(t, newTestToolset(newFakeService(), nil), true)

	res := callTool(t, s, "greet", nil)
	assert.False(t, res.IsError)
	assert.Equal(t, "Hello! Welcome to the Gmail MCP server.", envelope.PayloadText(res))

	res = callTool(t, s, "greet", map[string]interface{}{"name": "Ada"})
	assert.Equal(t, "Hello, Ada! Welcome to the Gmail MCP server.", envelope.PayloadText(res))
}

func TestAuthFailuresBecomeErrorEnvelopes(t *testing.T) {
	tests := []struct {
		kind     google.ErrorKind
		wantType envelope.ErrorType
	}{
		{google.KindInvalidGrant, envelope.ErrorTypeAuthInvalidGrant},
		{google.KindMissingTokenFields, envelope.ErrorTypeAuthMissing},
		{google.KindUnknown, envelope.ErrorTypeAuthUnknown},
	}

	calls := []struct {
		tool string
		args map[string]interface{}
	}{
		{"list_emails", nil},
		{"get_email", map[string]interface{}{"messageId": "m1"}},
		{"list_labels", nil},
		{"batch_delete_emails", map[string]interface{}{"messageIds": []interface{}{"a", "b"}}},
		{"download_attachment", map[string]interface{}{"messageId": "m1", "attachmentId": "a1"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.wantType), func(t *testing.T) {
			authErr := &google.AuthError{Kind: tt.kind}
			ts := NewToolset(func(context.Context) (Service, error) { return nil, authErr }, nil, nil, slog.New(slog.DiscardHandler))
			s := newTestServer(t, ts, false)

			for _, c := range calls {
				res := callTool(t, s, c.tool, c.args)
				require.True(t, res.IsError, c.tool)
				require.Len(t, res.Content, 1, c.tool)
				h := header(t, res)
				assert.Equal(t, envelope.TypeError, h.MessageType, c.tool)
				assert.Equal(t, tt.wantType, h.ErrorType, c.tool)
				assert.NotEmpty(t, h.Message, c.tool)
			}
		})
	}
}

func TestRegisterGmailTools_ServerContext(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /gmail/v1/users/me/labels", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-access", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(gmail_v1.ListLabelsResponse{Labels: []*gmail_v1.Label{{Id: "INBOX", Name: "INBOX", Type: "system"}}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cfg := &config.Config{ClientID: "id", ClientSecret: "secret", GmailRefreshToken: "rt"}
	tokens := google.NewTokenCache(config.ServiceGmail, google.RefresherFunc(func(context.Context) (*oauth2.Token, error) {
		return &oauth2.Token{AccessToken: "test-access", Expiry: time.Now().Add(time.Hour)}, nil
	}))
	sc, err := server.NewServerContext(context.Background(), cfg, config.ServiceGmail,
		server.WithTokenCache(tokens),
		server.WithLogger(slog.New(slog.DiscardHandler)),
		server.WithAPIOptions(option.WithEndpoint(srv.URL+"/")),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })

	s := mcpserver.NewMCPServer("test", "0.0.0", mcpserver.WithToolCapabilities(true))
	require.NoError(t, RegisterGmailTools(s, sc, true))

	out := payload(t, callTool(t, s, "list_labels", nil))
	labels, ok := out["labels"].([]interface{})
	require.True(t, ok)
	require.Len(t, labels, 1)
	assert.Equal(t, "INBOX", labels[0].(map[string]interface{})["id"])

	assert.Error(t, RegisterGmailTools(s, nil, true))
}
