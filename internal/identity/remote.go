package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/agora-civic/agora/internal/shared"
)

// RemoteProvider exchanges credentials against the external identity
// provider over HTTP.
type RemoteProvider struct {
	baseURL string
	client  *http.Client
}

// NewRemoteProvider constructs a RemoteProvider for the given base URL.
func NewRemoteProvider(baseURL string, timeout time.Duration) *RemoteProvider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RemoteProvider{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type exchangeRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type exchangeResponse struct {
	ID              string `json:"id"`
	Email           string `json:"email"`
	Role            string `json:"role"`
	LegacyModerator bool   `json:"legacy_moderator"`
	Token           string `json:"token"`
}

// Exchange performs the credential exchange call. Fields beyond the ones in
// exchangeResponse are ignored.
func (p *RemoteProvider) Exchange(ctx context.Context, email, password string) (*Identity, error) {
	body, err := json.Marshal(exchangeRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/token", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity: exchange: %w", err)
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusOK:
	case res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden:
		return nil, shared.ErrInvalidCredentials
	default:
		return nil, fmt.Errorf("identity: exchange: unexpected status %d", res.StatusCode)
	}

	var payload exchangeResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("identity: exchange: decode: %w", err)
	}
	return &Identity{
		ID:                  payload.ID,
		Email:               payload.Email,
		RawRoleLabel:        payload.Role,
		LegacyModeratorFlag: payload.LegacyModerator,
		BackendToken:        payload.Token,
	}, nil
}

var _ Provider = (*RemoteProvider)(nil)
