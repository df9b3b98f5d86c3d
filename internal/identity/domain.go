// Package identity integrates the identity providers Agora can exchange
// credentials against. The provider returns the raw facts about an account;
// role normalization and claim derivation happen in authn.
package identity

// Identity is the result of a successful credential exchange. RawRoleLabel
// is passed through exactly as the provider returned it; spellings vary
// between providers and the authn mapper owns the canonical translation.
type Identity struct {
	ID                  string
	Email               string
	RawRoleLabel        string
	LegacyModeratorFlag bool
	BackendToken        string
}
