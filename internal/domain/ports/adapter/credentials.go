package adapter

import "context"

// CredentialStore resolves opaque authRef values against an external
// credential store. The pipeline never persists raw platform secrets.
type CredentialStore interface {
	Resolve(ctx context.Context, authRef string) (string, error)
}
