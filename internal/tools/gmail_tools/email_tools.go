package gmail_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/xtrn-google-mcp/internal/gmail"
	"github.com/teemow/xtrn-google-mcp/internal/instrumentation"
	"github.com/teemow/xtrn-google-mcp/internal/logging"
	"github.com/teemow/xtrn-google-mcp/internal/tools/common"
	"github.com/teemow/xtrn-google-mcp/internal/tools/envelope"
)

const (
	defaultMaxResults = 10
	maxListResults    = 100
	// maxSearchResults is the upper bound messages.list accepts.
	maxSearchResults = 500
)

var messageFormats = []string{"minimal", "full", "raw", "metadata"}

func stringArray(name, description string, opts ...mcp.PropertyOption) mcp.ToolOption {
	all := append([]mcp.PropertyOption{
		mcp.Description(description),
		mcp.Items(map[string]interface{}{"type": "string"}),
	}, opts...)
	return mcp.WithArray(name, all...)
}

func (ts *Toolset) registerEmailTools(s *mcpserver.MCPServer, readOnly bool) {
	listEmailsTool := mcp.NewTool("list_emails",
		mcp.WithDescription("Lists emails from the user's Gmail inbox with optional filtering, search queries, and label-based filtering"),
		mcp.WithTitleAnnotation("List Gmail emails"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithNumber("maxResults",
			mcp.Description("Maximum number of emails to return (optional, default: 10, min: 1, max: 100)"),
			mcp.Min(1),
			mcp.Max(maxListResults),
		),
		mcp.WithString("query",
			mcp.Description("Gmail search query to filter emails (optional, e.g., 'from:example@gmail.com', 'subject:meeting', 'has:attachment')"),
		),
		stringArray("labelIds", "Array of Gmail label IDs to filter emails by (optional, e.g., ['INBOX', 'IMPORTANT', 'SENT'])"),
		mcp.WithBoolean("includeSpamTrash",
			mcp.Description("Whether to include emails from SPAM and TRASH in the results (optional, default: false)"),
		),
		mcp.WithString("pageToken",
			mcp.Description("Page token for pagination to get the next page of results (optional)"),
		),
	)
	s.AddTool(listEmailsTool, ts.instrumented("list_emails", instrumentation.OperationList, ts.handleListEmails))

	getEmailTool := mcp.NewTool("get_email",
		mcp.WithDescription("Retrieves a specific email message by its ID"),
		mcp.WithTitleAnnotation("Get Gmail email"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithString("messageId",
			mcp.Required(),
			mcp.Description("The ID of the email message to retrieve"),
		),
		mcp.WithString("format",
			mcp.Description("The format of the message to return (default: full)"),
			mcp.Enum(messageFormats...),
		),
	)
	s.AddTool(getEmailTool, ts.instrumented("get_email", instrumentation.OperationGet, ts.handleGetEmail))

	searchEmailsTool := mcp.NewTool("search_emails",
		mcp.WithDescription("Searches emails using Gmail's search syntax with advanced filtering options"),
		mcp.WithTitleAnnotation("Search Gmail emails"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Gmail search query (e.g., 'from:example@gmail.com', 'subject:meeting', 'has:attachment')"),
		),
		mcp.WithNumber("maxResults",
			mcp.Description("Maximum number of results to return (default: 10)"),
		),
		stringArray("labelIds", "Label IDs to filter search results by"),
	)
	s.AddTool(searchEmailsTool, ts.instrumented("search_emails", instrumentation.OperationSearch, ts.handleSearchEmails))

	if readOnly {
		return
	}

	sendEmailTool := mcp.NewTool("send_email",
		append(composeOptions(),
			mcp.WithDescription("Sends an email using Gmail with support for multiple recipients, CC, BCC, and reply-to addresses"),
			mcp.WithTitleAnnotation("Send Gmail email"),
			mcp.WithReadOnlyHintAnnotation(false),
			mcp.WithDestructiveHintAnnotation(false),
			mcp.WithIdempotentHintAnnotation(false),
		)...,
	)
	s.AddTool(sendEmailTool, ts.instrumented("send_email", instrumentation.OperationSend, ts.handleSendEmail))

	draftEmailTool := mcp.NewTool("draft_email",
		append(composeOptions(),
			mcp.WithDescription("Creates a draft email in Gmail without sending it immediately. The draft can be reviewed and sent later from the Gmail interface."),
			mcp.WithTitleAnnotation("Draft Gmail email"),
			mcp.WithReadOnlyHintAnnotation(false),
			mcp.WithDestructiveHintAnnotation(false),
			mcp.WithIdempotentHintAnnotation(false),
			mcp.WithString("threadId",
				mcp.Description("Thread ID to add this draft to an existing conversation (optional)"),
			),
		)...,
	)
	s.AddTool(draftEmailTool, ts.instrumented("draft_email", instrumentation.OperationDraft, ts.handleDraftEmail))

	modifyEmailTool := mcp.NewTool("modify_email",
		mcp.WithDescription("Modifies email labels to move emails between folders, mark as important, archive, or apply other Gmail organizational features"),
		mcp.WithTitleAnnotation("Modify Gmail email labels"),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(false),
		mcp.WithString("messageId",
			mcp.Required(),
			mcp.Description("The unique ID of the email message to modify (required, cannot be empty)"),
			mcp.MinLength(1),
		),
		stringArray("addLabelIds", "Array of label IDs to add to the email (optional, e.g., ['IMPORTANT', 'WORK'])"),
		stringArray("removeLabelIds", "Array of label IDs to remove from the email (optional, e.g., ['INBOX', 'UNREAD'])"),
		stringArray("labelIds", "Array of label IDs to add to the email (legacy parameter, use addLabelIds instead)"),
	)
	s.AddTool(modifyEmailTool, ts.instrumented("modify_email", instrumentation.OperationModify, ts.handleModifyEmail))

	deleteEmailTool := mcp.NewTool("delete_email",
		mcp.WithDescription("Permanently deletes an email message from Gmail. This action cannot be undone and the email will be removed from all folders and labels."),
		mcp.WithTitleAnnotation("Delete Gmail email"),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(false),
		mcp.WithString("messageId",
			mcp.Required(),
			mcp.Description("The unique ID of the email message to permanently delete (required, cannot be empty)"),
			mcp.MinLength(1),
		),
	)
	s.AddTool(deleteEmailTool, ts.instrumented("delete_email", instrumentation.OperationDelete, ts.handleDeleteEmail))
}

// composeOptions are the arguments shared by send_email and draft_email.
func composeOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		stringArray("to", "Array of recipient email addresses (required)", mcp.Required()),
		mcp.WithString("subject",
			mcp.Required(),
			mcp.Description("Email subject line (required, cannot be empty)"),
			mcp.MinLength(1),
		),
		mcp.WithString("body",
			mcp.Required(),
			mcp.Description("Email body content in plain text (required, cannot be empty)"),
			mcp.MinLength(1),
		),
		stringArray("cc", "Array of CC recipient email addresses (optional)"),
		stringArray("bcc", "Array of BCC recipient email addresses (optional)"),
		mcp.WithString("replyTo",
			mcp.Description("Reply-to email address (optional, defaults to sender)"),
		),
	}
}

func (ts *Toolset) handleListEmails(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	maxResults, err := common.OptionalInt(args, "maxResults", defaultMaxResults, 1, maxListResults)
	if err != nil {
		return envelope.FromError(err), nil
	}
	query, _, err := common.OptionalString(args, "query")
	if err != nil {
		return envelope.FromError(err), nil
	}
	labelIDs, err := common.OptionalStringSlice(args, "labelIds")
	if err != nil {
		return envelope.FromError(err), nil
	}
	includeSpamTrash, err := common.OptionalBool(args, "includeSpamTrash", false)
	if err != nil {
		return envelope.FromError(err), nil
	}
	pageToken, _, err := common.OptionalString(args, "pageToken")
	if err != nil {
		return envelope.FromError(err), nil
	}

	svc, err := ts.client(ctx)
	if err != nil {
		return envelope.FromError(err), nil
	}

	res, err := svc.ListMessages(ctx, gmail.ListOptions{
		MaxResults:       maxResults,
		Query:            query,
		LabelIDs:         labelIDs,
		IncludeSpamTrash: includeSpamTrash,
		PageToken:        pageToken,
	})
	if err != nil {
		return envelope.FromError(err), nil
	}
	return envelope.JSON(res), nil
}

func (ts *Toolset) handleGetEmail(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	messageID, err := common.RequireString(args, "messageId")
	if err != nil {
		return envelope.FromError(err), nil
	}
	format, err := common.OptionalEnum(args, "format", "full", messageFormats...)
	if err != nil {
		return envelope.FromError(err), nil
	}

	svc, err := ts.client(ctx)
	if err != nil {
		return envelope.FromError(err), nil
	}

	msg, err := svc.GetMessage(ctx, messageID, format)
	if err != nil {
		return envelope.FromError(err), nil
	}
	return envelope.JSON(msg), nil
}

func (ts *Toolset) handleSearchEmails(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	query, err := common.RequireString(args, "query")
	if err != nil {
		return envelope.FromError(err), nil
	}
	maxResults, err := common.OptionalInt(args, "maxResults", defaultMaxResults, 1, maxSearchResults)
	if err != nil {
		return envelope.FromError(err), nil
	}
	labelIDs, err := common.OptionalStringSlice(args, "labelIds")
	if err != nil {
		return envelope.FromError(err), nil
	}

	svc, err := ts.client(ctx)
	if err != nil {
		return envelope.FromError(err), nil
	}

	res, err := svc.ListMessages(ctx, gmail.ListOptions{
		MaxResults: maxResults,
		Query:      query,
		LabelIDs:   labelIDs,
	})
	if err != nil {
		return envelope.FromError(err), nil
	}
	return envelope.JSON(res), nil
}

// parseEmailMessage reads and validates the compose arguments.
func parseEmailMessage(args map[string]interface{}) (*gmail.EmailMessage, error) {
	to, err := common.RequireStringSlice(args, "to")
	if err != nil {
		return nil, err
	}
	subject, err := common.RequireString(args, "subject")
	if err != nil {
		return nil, err
	}
	body, err := common.RequireString(args, "body")
	if err != nil {
		return nil, err
	}
	cc, err := common.OptionalStringSlice(args, "cc")
	if err != nil {
		return nil, err
	}
	bcc, err := common.OptionalStringSlice(args, "bcc")
	if err != nil {
		return nil, err
	}
	replyTo, _, err := common.OptionalString(args, "replyTo")
	if err != nil {
		return nil, err
	}

	recipients := []struct {
		name  string
		addrs []string
	}{{"to", to}, {"cc", cc}, {"bcc", bcc}}
	for _, r := range recipients {
		for i, addr := range r.addrs {
			if gmail.ValidateAddress(addr) != nil {
				return nil, &common.ArgError{Name: fmt.Sprintf("%s[%d]", r.name, i), Reason: "must be a valid email address"}
			}
		}
	}
	if replyTo != "" && gmail.ValidateAddress(replyTo) != nil {
		return nil, &common.ArgError{Name: "replyTo", Reason: "must be a valid email address"}
	}

	return &gmail.EmailMessage{
		To:      to,
		Cc:      cc,
		Bcc:     bcc,
		ReplyTo: replyTo,
		Subject: subject,
		Body:    body,
	}, nil
}

func (ts *Toolset) handleSendEmail(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	msg, err := parseEmailMessage(request.GetArguments())
	if err != nil {
		return envelope.FromError(err), nil
	}

	svc, err := ts.client(ctx)
	if err != nil {
		return envelope.FromError(err), nil
	}

	sent, err := svc.SendMessage(ctx, msg.Raw())
	if err != nil {
		return envelope.FromError(err), nil
	}
	ts.logger.Debug("email sent", logging.ItemID(sent.Id), logging.Recipients(msg.To))
	return envelope.JSON(sent), nil
}

func (ts *Toolset) handleDraftEmail(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	msg, err := parseEmailMessage(args)
	if err != nil {
		return envelope.FromError(err), nil
	}
	threadID, _, err := common.OptionalString(args, "threadId")
	if err != nil {
		return envelope.FromError(err), nil
	}

	svc, err := ts.client(ctx)
	if err != nil {
		return envelope.FromError(err), nil
	}

	draft, err := svc.CreateDraft(ctx, msg.Raw(), threadID)
	if err != nil {
		return envelope.FromError(err), nil
	}
	return envelope.JSON(draft), nil
}

func (ts *Toolset) handleModifyEmail(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	messageID, err := common.RequireString(args, "messageId")
	if err != nil {
		return envelope.FromError(err), nil
	}
	legacy, err := common.OptionalStringSlice(args, "labelIds")
	if err != nil {
		return envelope.FromError(err), nil
	}
	add, err := common.OptionalStringSlice(args, "addLabelIds")
	if err != nil {
		return envelope.FromError(err), nil
	}
	remove, err := common.OptionalStringSlice(args, "removeLabelIds")
	if err != nil {
		return envelope.FromError(err), nil
	}

	// addLabelIds wins over the legacy labelIds when both are given.
	if len(add) == 0 {
		add = legacy
	}
	if len(add) == 0 && len(remove) == 0 {
		return envelope.LLMError("At least one of addLabelIds, removeLabelIds, or labelIds must be provided"), nil
	}

	svc, err := ts.client(ctx)
	if err != nil {
		return envelope.FromError(err), nil
	}

	msg, err := svc.ModifyMessage(ctx, messageID, add, remove)
	if err != nil {
		return envelope.FromError(err), nil
	}
	return envelope.JSON(msg), nil
}

func (ts *Toolset) handleDeleteEmail(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	messageID, err := common.RequireString(request.GetArguments(), "messageId")
	if err != nil {
		return envelope.FromError(err), nil
	}

	svc, err := ts.client(ctx)
	if err != nil {
		return envelope.FromError(err), nil
	}

	if err := svc.DeleteMessage(ctx, messageID); err != nil {
		return envelope.FromError(err), nil
	}
	return envelope.JSON(map[string]interface{}{
		"success":          true,
		"message":          fmt.Sprintf("Email %s deleted successfully", messageID),
		"deletedMessageId": messageID,
	}), nil
}
