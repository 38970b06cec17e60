package gmail_tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	gmail_v1 "google.golang.org/api/gmail/v1"

	"github.com/teemow/xtrn-google-mcp/internal/gmail"
	"github.com/teemow/xtrn-google-mcp/internal/instrumentation"
	"github.com/teemow/xtrn-google-mcp/internal/tools/common"
	"github.com/teemow/xtrn-google-mcp/internal/tools/envelope"
)

const maxLabelNameLength = 100

var (
	messageListVisibilities = []string{gmail.MessageListShow, gmail.MessageListHide}
	labelListVisibilities   = []string{gmail.LabelListShow, gmail.LabelListHide}
)

const systemLabelMessage = "Cannot delete system labels (INBOX, SENT, DRAFT, etc.). Only user-created labels can be deleted."

func visibilityOptions(messageDesc, labelDesc string) []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("messageListVisibility",
			mcp.Description(messageDesc),
			mcp.Enum(messageListVisibilities...),
		),
		mcp.WithString("labelListVisibility",
			mcp.Description(labelDesc),
			mcp.Enum(labelListVisibilities...),
		),
	}
}

func (ts *Toolset) registerLabelTools(s *mcpserver.MCPServer, readOnly bool) {
	listLabelsTool := mcp.NewTool("list_labels",
		mcp.WithDescription("Lists all available Gmail labels for the authenticated user"),
		mcp.WithTitleAnnotation("List Gmail labels"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
	)
	s.AddTool(listLabelsTool, ts.instrumented("list_labels", instrumentation.OperationList, ts.handleListLabels))

	if readOnly {
		return
	}

	createLabelTool := mcp.NewTool("create_label",
		append([]mcp.ToolOption{
			mcp.WithDescription("Creates a new custom Gmail label for organizing emails. Labels can be used to categorize and filter emails."),
			mcp.WithTitleAnnotation("Create Gmail label"),
			mcp.WithReadOnlyHintAnnotation(false),
			mcp.WithDestructiveHintAnnotation(false),
			mcp.WithIdempotentHintAnnotation(false),
			mcp.WithString("name",
				mcp.Required(),
				mcp.Description("Name for the new label (required, 1-100 characters)"),
				mcp.MinLength(1),
				mcp.MaxLength(maxLabelNameLength),
			),
		}, visibilityOptions(
			"Whether to show the label in the message list (optional, default: 'show')",
			"Whether to show the label in the label list (optional, default: 'labelShow')",
		)...)...,
	)
	s.AddTool(createLabelTool, ts.instrumented("create_label", instrumentation.OperationCreate, ts.handleCreateLabel))

	updateLabelTool := mcp.NewTool("update_label",
		append([]mcp.ToolOption{
			mcp.WithDescription("Updates an existing Gmail label's properties such as name, visibility in message list, and visibility in label list."),
			mcp.WithTitleAnnotation("Update Gmail label"),
			mcp.WithReadOnlyHintAnnotation(false),
			mcp.WithDestructiveHintAnnotation(false),
			mcp.WithIdempotentHintAnnotation(false),
			mcp.WithString("id",
				mcp.Required(),
				mcp.Description("The unique ID of the label to update (required, cannot be empty)"),
				mcp.MinLength(1),
			),
			mcp.WithString("name",
				mcp.Description("New name for the label (optional, 1-100 characters)"),
				mcp.MinLength(1),
				mcp.MaxLength(maxLabelNameLength),
			),
		}, visibilityOptions(
			"Whether to show the label in the message list (optional)",
			"Whether to show the label in the label list (optional)",
		)...)...,
	)
	s.AddTool(updateLabelTool, ts.instrumented("update_label", instrumentation.OperationUpdate, ts.handleUpdateLabel))

	deleteLabelTool := mcp.NewTool("delete_label",
		mcp.WithDescription("Deletes a Gmail label. Note that system labels (INBOX, SENT, DRAFT, etc.) cannot be deleted. Only user-created labels can be removed."),
		mcp.WithTitleAnnotation("Delete Gmail label"),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(false),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("The unique ID of the label to delete (required, cannot be empty)"),
			mcp.MinLength(1),
		),
	)
	s.AddTool(deleteLabelTool, ts.instrumented("delete_label", instrumentation.OperationDelete, ts.handleDeleteLabel))

	getOrCreateLabelTool := mcp.NewTool("get_or_create_label",
		append([]mcp.ToolOption{
			mcp.WithDescription("Gets an existing label by name or creates it if it doesn't exist. This is useful for ensuring a label exists before using it in operations."),
			mcp.WithTitleAnnotation("Get or create Gmail label"),
			mcp.WithReadOnlyHintAnnotation(false),
			mcp.WithDestructiveHintAnnotation(false),
			mcp.WithIdempotentHintAnnotation(false),
			mcp.WithString("name",
				mcp.Required(),
				mcp.Description("Name of the label to find or create (required, 1-100 characters)"),
				mcp.MinLength(1),
				mcp.MaxLength(maxLabelNameLength),
			),
		}, visibilityOptions(
			"Whether to show the label in the message list (optional, default: 'show')",
			"Whether to show the label in the label list (optional, default: 'labelShow')",
		)...)...,
	)
	s.AddTool(getOrCreateLabelTool, ts.instrumented("get_or_create_label", instrumentation.OperationCreate, ts.handleGetOrCreateLabel))
}

// labelName reads a label name argument of 1 to 100 characters.
func labelName(args map[string]interface{}, required bool) (string, bool, error) {
	var (
		name string
		ok   bool
		err  error
	)
	if required {
		name, err = common.RequireString(args, "name")
		ok = err == nil
	} else {
		name, ok, err = common.OptionalString(args, "name")
	}
	if err != nil || !ok {
		return "", false, err
	}
	if n := len([]rune(name)); n < 1 || n > maxLabelNameLength {
		return "", false, &common.ArgError{Name: "name", Reason: "must be between 1 and 100 characters"}
	}
	return name, true, nil
}

// visibilities reads the two visibility arguments. Empty strings mean absent.
func visibilities(args map[string]interface{}) (messageList, labelList string, err error) {
	messageList, err = common.OptionalEnum(args, "messageListVisibility", "", messageListVisibilities...)
	if err != nil {
		return "", "", err
	}
	labelList, err = common.OptionalEnum(args, "labelListVisibility", "", labelListVisibilities...)
	if err != nil {
		return "", "", err
	}
	return messageList, labelList, nil
}

// newLabel builds a create request with the default visibilities applied.
func newLabel(name, messageList, labelList string) *gmail_v1.Label {
	if messageList == "" {
		messageList = gmail.MessageListShow
	}
	if labelList == "" {
		labelList = gmail.LabelListShow
	}
	return &gmail_v1.Label{
		Name:                  name,
		MessageListVisibility: messageList,
		LabelListVisibility:   labelList,
	}
}

func (ts *Toolset) handleListLabels(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	svc, err := ts.client(ctx)
	if err != nil {
		return envelope.FromError(err), nil
	}

	res, err := svc.ListLabels(ctx)
	if err != nil {
		return envelope.FromError(err), nil
	}
	return envelope.JSON(res), nil
}

func (ts *Toolset) handleCreateLabel(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	name, _, err := labelName(args, true)
	if err != nil {
		return envelope.FromError(err), nil
	}
	messageList, labelList, err := visibilities(args)
	if err != nil {
		return envelope.FromError(err), nil
	}

	svc, err := ts.client(ctx)
	if err != nil {
		return envelope.FromError(err), nil
	}

	label, err := svc.CreateLabel(ctx, newLabel(name, messageList, labelList))
	if err != nil {
		return envelope.FromError(err), nil
	}
	return envelope.JSON(map[string]interface{}{
		"success": true,
		"label":   label,
		"message": fmt.Sprintf("Label '%s' created successfully with ID: %s", name, label.Id),
	}), nil
}

func (ts *Toolset) handleUpdateLabel(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	id, err := common.RequireString(args, "id")
	if err != nil {
		return envelope.FromError(err), nil
	}
	name, hasName, err := labelName(args, false)
	if err != nil {
		return envelope.FromError(err), nil
	}
	messageList, labelList, err := visibilities(args)
	if err != nil {
		return envelope.FromError(err), nil
	}

	update := &gmail_v1.Label{}
	updated := make([]string, 0, 3)
	if hasName {
		update.Name = name
		updated = append(updated, "name")
	}
	if messageList != "" {
		update.MessageListVisibility = messageList
		updated = append(updated, "messageListVisibility")
	}
	if labelList != "" {
		update.LabelListVisibility = labelList
		updated = append(updated, "labelListVisibility")
	}
	if len(updated) == 0 {
		return envelope.LLMError("At least one field (name, messageListVisibility, or labelListVisibility) must be provided"), nil
	}

	svc, err := ts.client(ctx)
	if err != nil {
		return envelope.FromError(err), nil
	}

	label, err := svc.PatchLabel(ctx, id, update)
	if err != nil {
		return envelope.FromError(err), nil
	}
	return envelope.JSON(map[string]interface{}{
		"success":       true,
		"label":         label,
		"message":       "Label updated successfully",
		"updatedFields": updated,
	}), nil
}

func (ts *Toolset) handleDeleteLabel(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := common.RequireString(request.GetArguments(), "id")
	if err != nil {
		return envelope.FromError(err), nil
	}

	svc, err := ts.client(ctx)
	if err != nil {
		return envelope.FromError(err), nil
	}

	if err := svc.DeleteLabel(ctx, id); err != nil {
		if gmail.IsSystemLabelError(err) {
			return envelope.LLMError(systemLabelMessage), nil
		}
		return envelope.FromError(err), nil
	}
	return envelope.JSON(map[string]interface{}{
		"success":        true,
		"message":        fmt.Sprintf("Label %s deleted successfully", id),
		"deletedLabelId": id,
	}), nil
}

func (ts *Toolset) handleGetOrCreateLabel(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	name, _, err := labelName(args, true)
	if err != nil {
		return envelope.FromError(err), nil
	}
	messageList, labelList, err := visibilities(args)
	if err != nil {
		return envelope.FromError(err), nil
	}

	svc, err := ts.client(ctx)
	if err != nil {
		return envelope.FromError(err), nil
	}

	const failPrefix = "Failed to get or create label: "

	existing, err := svc.FindLabelByName(ctx, name)
	if err != nil {
		return envelope.FromErrorWithPrefix(failPrefix, err), nil
	}
	if existing != nil {
		return envelope.JSON(map[string]interface{}{
			"success": true,
			"label":   existing,
			"action":  "found existing",
			"message": fmt.Sprintf("Found existing label '%s' with ID: %s", name, existing.Id),
			"type":    existing.Type,
		}), nil
	}

	created, err := svc.CreateLabel(ctx, newLabel(name, messageList, labelList))
	if err != nil {
		return envelope.FromErrorWithPrefix(failPrefix, err), nil
	}
	if created == nil {
		return envelope.FromErrorWithPrefix(failPrefix, errors.New("empty response from Gmail API")), nil
	}
	return envelope.JSON(map[string]interface{}{
		"success": true,
		"label":   created,
		"action":  "created new",
		"message": fmt.Sprintf("Created new label '%s' with ID: %s", name, created.Id),
		"type":    created.Type,
	}), nil
}
