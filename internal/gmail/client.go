package gmail

import (
	"context"
	"fmt"
	"net/http"

	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// userID addresses the mailbox of the authenticated user.
const userID = "me"

// Client wraps the Gmail Users service.
type Client struct {
	svc *gmail.UsersService
}

// NewClient creates a Gmail client that sends requests through httpClient.
// Extra options are appended, which lets tests point the client at a local
// endpoint.
func NewClient(ctx context.Context, httpClient *http.Client, opts ...option.ClientOption) (*Client, error) {
	all := append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	svc, err := gmail.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}
	return &Client{svc: svc.Users}, nil
}

// ListOptions filters ListMessages.
type ListOptions struct {
	MaxResults       int64
	Query            string
	LabelIDs         []string
	IncludeSpamTrash bool
	PageToken        string
}

// ListMessages lists message IDs matching opts.
func (c *Client) ListMessages(ctx context.Context, opts ListOptions) (*gmail.ListMessagesResponse, error) {
	call := c.svc.Messages.List(userID).IncludeSpamTrash(opts.IncludeSpamTrash)
	if opts.MaxResults > 0 {
		call = call.MaxResults(opts.MaxResults)
	}
	if opts.Query != "" {
		call = call.Q(opts.Query)
	}
	if len(opts.LabelIDs) > 0 {
		call = call.LabelIds(opts.LabelIDs...)
	}
	if opts.PageToken != "" {
		call = call.PageToken(opts.PageToken)
	}

	res, err := call.Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return res, nil
}

// GetMessage retrieves a message in the given format (minimal, full, raw or metadata).
func (c *Client) GetMessage(ctx context.Context, messageID, format string) (*gmail.Message, error) {
	if format == "" {
		format = "full"
	}
	msg, err := c.svc.Messages.Get(userID, messageID).Format(format).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", messageID, err)
	}
	return msg, nil
}

// SendMessage sends a base64url encoded RFC 822 message.
func (c *Client) SendMessage(ctx context.Context, raw string) (*gmail.Message, error) {
	msg, err := c.svc.Messages.Send(userID, &gmail.Message{Raw: raw}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}
	return msg, nil
}

// CreateDraft stores a base64url encoded RFC 822 message as a draft,
// optionally inside an existing thread.
func (c *Client) CreateDraft(ctx context.Context, raw, threadID string) (*gmail.Draft, error) {
	draft := &gmail.Draft{Message: &gmail.Message{Raw: raw, ThreadId: threadID}}
	res, err := c.svc.Drafts.Create(userID, draft).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to create draft: %w", err)
	}
	return res, nil
}

// ModifyMessage adds and removes labels on a message.
func (c *Client) ModifyMessage(ctx context.Context, messageID string, add, remove []string) (*gmail.Message, error) {
	req := &gmail.ModifyMessageRequest{AddLabelIds: add, RemoveLabelIds: remove}
	msg, err := c.svc.Messages.Modify(userID, messageID, req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to modify message %s: %w", messageID, err)
	}
	return msg, nil
}

// DeleteMessage permanently deletes a message, bypassing the trash.
func (c *Client) DeleteMessage(ctx context.Context, messageID string) error {
	if err := c.svc.Messages.Delete(userID, messageID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to delete message %s: %w", messageID, err)
	}
	return nil
}
