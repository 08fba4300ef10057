package ports

import "context"

// TokenClaims is what the identity provider asserts about the caller.
type TokenClaims struct {
	SubjectID string
	Role      string
}

// TokenVerifier validates a bearer token issued by the external auth
// provider and extracts the authenticated actor.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (TokenClaims, error)
}
