package backend

import (
	"context"
	"net/http"
	"time"
)

// Announcement is a published or pending city announcement.
type Announcement struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	Status      string    `json:"status"`
	AuthorID    string    `json:"author_id"`
	PublishedAt time.Time `json:"published_at"`
}

// AnnouncementInput carries create/update fields.
type AnnouncementInput struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// ListAnnouncements returns published announcements.
func (c *Client) ListAnnouncements(ctx context.Context, token string, page int) (*Page[Announcement], error) {
	var out Page[Announcement]
	if err := c.do(ctx, token, http.MethodGet, "/v1/announcements", listQuery(page), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetAnnouncement fetches one announcement.
func (c *Client) GetAnnouncement(ctx context.Context, token, id string) (*Announcement, error) {
	var out Announcement
	if err := c.do(ctx, token, http.MethodGet, "/v1/announcements/"+id, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateAnnouncement submits a new announcement.
func (c *Client) CreateAnnouncement(ctx context.Context, token string, in AnnouncementInput) (*Announcement, error) {
	var out Announcement
	if err := c.do(ctx, token, http.MethodPost, "/v1/announcements", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateAnnouncement edits an announcement.
func (c *Client) UpdateAnnouncement(ctx context.Context, token, id string, in AnnouncementInput) (*Announcement, error) {
	var out Announcement
	if err := c.do(ctx, token, http.MethodPut, "/v1/announcements/"+id, nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteAnnouncement removes an announcement.
func (c *Client) DeleteAnnouncement(ctx context.Context, token, id string) error {
	return c.do(ctx, token, http.MethodDelete, "/v1/announcements/"+id, nil, nil, nil)
}

// ModerationDecision is the moderator verdict on a pending item.
type ModerationDecision struct {
	Approve bool   `json:"approve"`
	Reason  string `json:"reason,omitempty"`
}

// ModerateAnnouncement applies a moderation decision. The backend owns the
// status transition rules.
func (c *Client) ModerateAnnouncement(ctx context.Context, token, id string, decision ModerationDecision) error {
	return c.do(ctx, token, http.MethodPost, "/v1/announcements/"+id+"/moderate", nil, decision, nil)
}

// ListPendingAnnouncements returns the moderation queue.
func (c *Client) ListPendingAnnouncements(ctx context.Context, token string, page int) (*Page[Announcement], error) {
	q := listQuery(page)
	q.Set("status", "pending")
	var out Page[Announcement]
	if err := c.do(ctx, token, http.MethodGet, "/v1/announcements", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
