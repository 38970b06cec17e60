package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	gmail "google.golang.org/api/gmail/v1"
)

// MaxAttachmentSize defines the maximum attachment size in bytes (25MB)
const MaxAttachmentSize = 25 * 1024 * 1024

// ErrNoAttachmentData is returned when the API answers without a body.
var ErrNoAttachmentData = errors.New("No attachment data received from Gmail API")

// GetAttachment downloads and decodes an attachment.
func (c *Client) GetAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error) {
	body, err := c.svc.Messages.Attachments.Get(userID, messageID, attachmentID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get attachment %s: %w", attachmentID, err)
	}
	if body.Size > MaxAttachmentSize {
		return nil, fmt.Errorf("attachment size %d exceeds maximum size %d", body.Size, MaxAttachmentSize)
	}
	if body.Data == "" {
		return nil, ErrNoAttachmentData
	}
	return DecodeAttachmentData(body.Data)
}

// AttachmentFilename looks up the original filename of an attachment. It
// falls back to "attachment-<id>" when the part has no name or is missing.
func (c *Client) AttachmentFilename(ctx context.Context, messageID, attachmentID string) (string, error) {
	msg, err := c.GetMessage(ctx, messageID, "full")
	if err != nil {
		return "", err
	}
	return FindAttachmentFilename(msg.Payload, attachmentID), nil
}

// FindAttachmentFilename walks payload for the part carrying attachmentID.
func FindAttachmentFilename(payload *gmail.MessagePart, attachmentID string) string {
	name := ""
	found := false
	walkParts(payload, func(part *gmail.MessagePart) bool {
		if part.Body != nil && part.Body.AttachmentId == attachmentID {
			name = part.Filename
			found = true
			return false
		}
		return true
	})
	if !found || name == "" {
		return "attachment-" + attachmentID
	}
	return name
}

// DecodeAttachmentData decodes the base64url payload the API returns.
// Padded, unpadded and standard alphabets are all accepted.
func DecodeAttachmentData(data string) ([]byte, error) {
	encodings := []*base64.Encoding{
		base64.RawURLEncoding,
		base64.URLEncoding,
		base64.StdEncoding,
		base64.RawStdEncoding,
	}
	var lastErr error
	for _, enc := range encodings {
		out, err := enc.DecodeString(data)
		if err == nil {
			return out, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("failed to decode attachment data: %w", lastErr)
}

// walkParts visits part and its descendants depth first until fn returns false.
func walkParts(part *gmail.MessagePart, fn func(*gmail.MessagePart) bool) bool {
	if part == nil {
		return true
	}
	if !fn(part) {
		return false
	}
	for _, sub := range part.Parts {
		if !walkParts(sub, fn) {
			return false
		}
	}
	return true
}

// SanitizeFilename sanitizes a filename to prevent path traversal attacks
func SanitizeFilename(filename string) string {
	filename = strings.ReplaceAll(filename, "/", "_")
	filename = strings.ReplaceAll(filename, "\\", "_")
	filename = strings.ReplaceAll(filename, "..", "_")
	filename = strings.ReplaceAll(filename, "\x00", "")
	return filename
}
