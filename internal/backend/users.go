package backend

import (
	"context"
	"net/http"
	"time"
)

// User is a platform account as the backend sees it.
type User struct {
	ID              string    `json:"id"`
	Email           string    `json:"email"`
	DisplayName     string    `json:"display_name"`
	Role            string    `json:"role"`
	LegacyModerator bool      `json:"legacy_moderator"`
	Suspended       bool      `json:"suspended"`
	CreatedAt       time.Time `json:"created_at"`
}

// ListUsers returns accounts for the console user-management page.
func (c *Client) ListUsers(ctx context.Context, token string, page int) (*Page[User], error) {
	var out Page[User]
	if err := c.do(ctx, token, http.MethodGet, "/v1/users", listQuery(page), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetUser fetches one account.
func (c *Client) GetUser(ctx context.Context, token, id string) (*User, error) {
	var out User
	if err := c.do(ctx, token, http.MethodGet, "/v1/users/"+id, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetUserRole changes an account's role. Callers must have already passed
// CanActOnIdentity and CanElevateRoleTo; the backend re-checks regardless.
func (c *Client) SetUserRole(ctx context.Context, token, id, role string) error {
	body := map[string]string{"role": role}
	return c.do(ctx, token, http.MethodPost, "/v1/users/"+id+"/role", nil, body, nil)
}

// SetUserSuspended suspends or reinstates an account.
func (c *Client) SetUserSuspended(ctx context.Context, token, id string, suspended bool) error {
	body := map[string]bool{"suspended": suspended}
	return c.do(ctx, token, http.MethodPost, "/v1/users/"+id+"/suspend", nil, body, nil)
}

// Settings are the platform-wide switches owned by the backend.
type Settings struct {
	MaintenanceMode    bool   `json:"maintenance_mode"`
	PetitionsEnabled   bool   `json:"petitions_enabled"`
	PollsEnabled       bool   `json:"polls_enabled"`
	SupportContact     string `json:"support_contact"`
	AnnouncementBanner string `json:"announcement_banner"`
}

// GetSettings fetches the platform settings.
func (c *Client) GetSettings(ctx context.Context, token string) (*Settings, error) {
	var out Settings
	if err := c.do(ctx, token, http.MethodGet, "/v1/settings", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateSettings replaces the platform settings.
func (c *Client) UpdateSettings(ctx context.Context, token string, in Settings) error {
	return c.do(ctx, token, http.MethodPut, "/v1/settings", nil, in, nil)
}
