package identity

import "context"

// Provider exchanges end-user credentials for an Identity.
type Provider interface {
	// Exchange validates the credentials and returns the account identity.
	// Invalid credentials surface as shared.ErrInvalidCredentials; any other
	// error means the provider itself failed.
	Exchange(ctx context.Context, email, password string) (*Identity, error)
}
