package credentials

import (
	"context"
	"errors"
	"testing"

	"podcast-content-pipeline/internal/domain"
)

func TestEnvStore_Resolve(t *testing.T) {
	ctx := context.Background()
	store := NewEnvStore()

	t.Run("should resolve an uppercased, prefixed variable", func(t *testing.T) {
		t.Setenv("PIPELINE_CRED_TWITTER_TOKEN", "s3cret")
		token, err := store.Resolve(ctx, "twitter_token")
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if token != "s3cret" {
			t.Errorf("unexpected token %q", token)
		}
	})

	t.Run("should map dashes to underscores", func(t *testing.T) {
		t.Setenv("PIPELINE_CRED_TG_BOT_TOKEN", "bot-token")
		token, err := store.Resolve(ctx, "tg-bot-token")
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if token != "bot-token" {
			t.Errorf("unexpected token %q", token)
		}
	})

	t.Run("should report a missing credential", func(t *testing.T) {
		_, err := store.Resolve(ctx, "never_configured")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("should reject an empty reference", func(t *testing.T) {
		_, err := store.Resolve(ctx, "")
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}
