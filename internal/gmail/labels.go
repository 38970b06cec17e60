package gmail

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
)

// Label visibility values accepted by the Gmail API.
const (
	MessageListShow = "show"
	MessageListHide = "hide"
	LabelListShow   = "labelShow"
	LabelListHide   = "labelHide"
)

// ListLabels returns every label of the mailbox.
func (c *Client) ListLabels(ctx context.Context) (*gmail.ListLabelsResponse, error) {
	res, err := c.svc.Labels.List(userID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list labels: %w", err)
	}
	return res, nil
}

// CreateLabel creates a user label.
func (c *Client) CreateLabel(ctx context.Context, label *gmail.Label) (*gmail.Label, error) {
	res, err := c.svc.Labels.Create(userID, label).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to create label %q: %w", label.Name, err)
	}
	return res, nil
}

// PatchLabel updates only the non-empty fields of label.
func (c *Client) PatchLabel(ctx context.Context, labelID string, label *gmail.Label) (*gmail.Label, error) {
	res, err := c.svc.Labels.Patch(userID, labelID, label).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to update label %s: %w", labelID, err)
	}
	return res, nil
}

// DeleteLabel deletes a user label. System labels cannot be deleted; see
// IsSystemLabelError.
func (c *Client) DeleteLabel(ctx context.Context, labelID string) error {
	if err := c.svc.Labels.Delete(userID, labelID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to delete label %s: %w", labelID, err)
	}
	return nil
}

// FindLabelByName returns the label with exactly the given name, or nil when
// no such label exists.
func (c *Client) FindLabelByName(ctx context.Context, name string) (*gmail.Label, error) {
	res, err := c.ListLabels(ctx)
	if err != nil {
		return nil, err
	}
	for _, l := range res.Labels {
		if l.Name == name {
			return l, nil
		}
	}
	return nil, nil
}

// IsSystemLabelError reports whether err is the 400 the API returns when
// asked to delete a system label.
func IsSystemLabelError(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == http.StatusBadRequest && strings.Contains(strings.ToLower(apiErr.Error()), "system label")
}
