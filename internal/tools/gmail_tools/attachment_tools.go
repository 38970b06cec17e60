package gmail_tools

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/xtrn-google-mcp/internal/gmail"
	"github.com/teemow/xtrn-google-mcp/internal/instrumentation"
	"github.com/teemow/xtrn-google-mcp/internal/logging"
	"github.com/teemow/xtrn-google-mcp/internal/tools/common"
	"github.com/teemow/xtrn-google-mcp/internal/tools/envelope"
)

const downloadFailedPrefix = "Failed to download attachment: "

func (ts *Toolset) registerAttachmentTools(s *mcpserver.MCPServer) {
	downloadAttachmentTool := mcp.NewTool("download_attachment",
		mcp.WithDescription("Downloads an email attachment to a specified location. Supports custom filenames and save paths."),
		mcp.WithTitleAnnotation("Download Gmail attachment"),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(false),
		mcp.WithString("messageId",
			mcp.Required(),
			mcp.Description("ID of the email message containing the attachment (required, cannot be empty)"),
			mcp.MinLength(1),
		),
		mcp.WithString("attachmentId",
			mcp.Required(),
			mcp.Description("ID of the attachment to download (required, cannot be empty)"),
			mcp.MinLength(1),
		),
		mcp.WithString("filename",
			mcp.Description("Filename to save the attachment as (optional, if not provided, uses original filename)"),
		),
		mcp.WithString("savePath",
			mcp.Description("Directory path to save the attachment (optional, defaults to current working directory)"),
		),
	)
	s.AddTool(downloadAttachmentTool, ts.instrumented("download_attachment", instrumentation.OperationGet, ts.handleDownloadAttachment))
}

// saveDir resolves the target directory: the savePath argument, then
// ATTACHMENT_DIR, then the working directory.
func (ts *Toolset) saveDir(savePath string) (string, error) {
	if savePath != "" {
		return savePath, nil
	}
	if ts.cfg.AttachmentDir != "" {
		return ts.cfg.AttachmentDir, nil
	}
	return os.Getwd()
}

func (ts *Toolset) handleDownloadAttachment(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	messageID, err := common.RequireString(args, "messageId")
	if err != nil {
		return envelope.FromError(err), nil
	}
	attachmentID, err := common.RequireString(args, "attachmentId")
	if err != nil {
		return envelope.FromError(err), nil
	}
	filename, _, err := common.OptionalString(args, "filename")
	if err != nil {
		return envelope.FromError(err), nil
	}
	savePath, _, err := common.OptionalString(args, "savePath")
	if err != nil {
		return envelope.FromError(err), nil
	}

	svc, err := ts.client(ctx)
	if err != nil {
		return envelope.FromError(err), nil
	}

	data, err := svc.GetAttachment(ctx, messageID, attachmentID)
	if err != nil {
		return envelope.FromErrorWithPrefix(downloadFailedPrefix, err), nil
	}

	if filename == "" {
		filename, err = svc.AttachmentFilename(ctx, messageID, attachmentID)
		if err != nil {
			return envelope.FromErrorWithPrefix(downloadFailedPrefix, err), nil
		}
	}
	filename = gmail.SanitizeFilename(filename)

	dir, err := ts.saveDir(savePath)
	if err != nil {
		return envelope.FromErrorWithPrefix(downloadFailedPrefix, err), nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return envelope.FromErrorWithPrefix(downloadFailedPrefix, err), nil
	}

	fullPath := filepath.Join(dir, filename)
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return envelope.FromErrorWithPrefix(downloadFailedPrefix, err), nil
	}

	ts.logger.Info("attachment saved",
		logging.Tool("download_attachment"),
		logging.ItemID(attachmentID),
		slog.Int("size", len(data)),
	)

	return envelope.JSON(map[string]interface{}{
		"success":      true,
		"message":      "Attachment downloaded successfully",
		"filename":     filename,
		"size":         len(data),
		"savedTo":      fullPath,
		"attachmentId": attachmentID,
		"messageId":    messageID,
	}), nil
}
