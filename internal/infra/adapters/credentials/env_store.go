package credentials

import (
	"context"
	"fmt"
	"os"
	"strings"

	"podcast-content-pipeline/internal/domain"
	"podcast-content-pipeline/internal/domain/ports/adapter"
)

var _ adapter.CredentialStore = (*EnvStore)(nil)

// EnvStore resolves credential references against process environment
// variables. The reference "twitter_token" maps to PIPELINE_CRED_TWITTER_TOKEN.
// Tokens never live in the database or config file.
type EnvStore struct {
	prefix string
}

func NewEnvStore() *EnvStore {
	return &EnvStore{prefix: "PIPELINE_CRED_"}
}

func (s *EnvStore) Resolve(ctx context.Context, authRef string) (string, error) {
	if authRef == "" {
		return "", fmt.Errorf("%w: empty credential reference", domain.ErrInvalidArgument)
	}
	name := s.prefix + strings.ToUpper(strings.ReplaceAll(authRef, "-", "_"))
	token, ok := os.LookupEnv(name)
	if !ok || token == "" {
		return "", fmt.Errorf("%w: credential %s (env %s)", domain.ErrNotFound, authRef, name)
	}
	return token, nil
}
