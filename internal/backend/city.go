package backend

import (
	"context"
	"net/http"
	"time"
)

// Group is a neighbourhood or interest group.
type Group struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	About   string `json:"about"`
	Members int    `json:"members"`
}

// Issue is a reported city issue (broken light, pothole, ...).
type Issue struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	Category   string    `json:"category"`
	Status     string    `json:"status"`
	ReporterID string    `json:"reporter_id"`
	ReportedAt time.Time `json:"reported_at"`
}

// IssueInput carries report fields.
type IssueInput struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	Category string `json:"category"`
}

// TransportRoute is a public transport route with schedule summary.
type TransportRoute struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Stops   int    `json:"stops"`
	Summary string `json:"summary"`
}

// ListGroups returns groups.
func (c *Client) ListGroups(ctx context.Context, token string, page int) (*Page[Group], error) {
	var out Page[Group]
	if err := c.do(ctx, token, http.MethodGet, "/v1/groups", listQuery(page), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// JoinGroup adds the caller to a group.
func (c *Client) JoinGroup(ctx context.Context, token, id string) error {
	return c.do(ctx, token, http.MethodPost, "/v1/groups/"+id+"/join", nil, nil, nil)
}

// ListIssues returns reported issues.
func (c *Client) ListIssues(ctx context.Context, token string, page int) (*Page[Issue], error) {
	var out Page[Issue]
	if err := c.do(ctx, token, http.MethodGet, "/v1/issues", listQuery(page), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ReportIssue files a new issue.
func (c *Client) ReportIssue(ctx context.Context, token string, in IssueInput) (*Issue, error) {
	var out Issue
	if err := c.do(ctx, token, http.MethodPost, "/v1/issues", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateIssueStatus sets an issue's workflow status; the backend validates
// the transition.
func (c *Client) UpdateIssueStatus(ctx context.Context, token, id, status string) error {
	body := map[string]string{"status": status}
	return c.do(ctx, token, http.MethodPost, "/v1/issues/"+id+"/status", nil, body, nil)
}

// ListTransportRoutes returns transport routes.
func (c *Client) ListTransportRoutes(ctx context.Context, token string, page int) (*Page[TransportRoute], error) {
	var out Page[TransportRoute]
	if err := c.do(ctx, token, http.MethodGet, "/v1/transport/routes", listQuery(page), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTransportRoute fetches one route.
func (c *Client) GetTransportRoute(ctx context.Context, token, id string) (*TransportRoute, error) {
	var out TransportRoute
	if err := c.do(ctx, token, http.MethodGet, "/v1/transport/routes/"+id, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
