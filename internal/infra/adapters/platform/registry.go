package platform

import (
	"fmt"
	"sort"
	"unicode/utf8"

	"podcast-content-pipeline/internal/config"
	"podcast-content-pipeline/internal/domain"
	"podcast-content-pipeline/internal/domain/model"
	"podcast-content-pipeline/internal/domain/ports/adapter"
)

type registry struct {
	adapters map[string]adapter.PublishAdapter
}

var _ adapter.Registry = (*registry)(nil)

// NewRegistry builds the adapter set from configuration. Every configured
// destination must map to a known adapter kind.
func NewRegistry(cfgs []config.PlatformConfig) (adapter.Registry, error) {
	r := &registry{adapters: make(map[string]adapter.PublishAdapter)}
	for _, cfg := range cfgs {
		var (
			a   adapter.PublishAdapter
			err error
		)
		switch cfg.Name {
		case "twitter":
			a, err = NewTwitterAdapter(cfg)
		case "linkedin":
			a, err = NewLinkedInAdapter(cfg)
		case "telegram":
			a, err = NewTelegramAdapter(cfg)
		case "noop":
			a = NewNoopAdapter(cfg)
		default:
			err = fmt.Errorf("%w: %q", domain.ErrUnknownPlatform, cfg.Name)
		}
		if err != nil {
			return nil, err
		}
		if _, dup := r.adapters[cfg.Name]; dup {
			return nil, fmt.Errorf("%w: platform %q configured twice", domain.ErrInvalidArgument, cfg.Name)
		}
		r.adapters[cfg.Name] = a
	}
	return r, nil
}

func (r *registry) Resolve(platform string) (adapter.PublishAdapter, error) {
	a, ok := r.adapters[platform]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownPlatform, platform)
	}
	return a, nil
}

func (r *registry) Platforms() []string {
	out := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func capabilityFromConfig(cfg config.PlatformConfig) model.PlatformCapability {
	return model.PlatformCapability{
		Name:                cfg.Name,
		MaxContentLength:    cfg.MaxContentLength,
		SupportedMediaTypes: cfg.MediaTypes,
		RateLimit:           cfg.RateLimit,
		RateWindow:          cfg.RateWindow,
		AuthRef:             cfg.AuthRef,
	}
}

// validateAgainst applies the static constraints every destination shares.
func validateAgainst(c model.PlatformCapability, content string, mediaRefs []string) []adapter.ValidationError {
	var errs []adapter.ValidationError
	if content == "" {
		errs = append(errs, adapter.ValidationError{Field: "content", Reason: "must not be empty"})
	}
	if c.MaxContentLength > 0 {
		if n := utf8.RuneCountInString(content); n > c.MaxContentLength {
			errs = append(errs, adapter.ValidationError{
				Field:  "content",
				Reason: fmt.Sprintf("%d characters exceeds the %d limit", n, c.MaxContentLength),
			})
		}
	}
	if len(mediaRefs) > 0 && len(c.SupportedMediaTypes) == 0 {
		errs = append(errs, adapter.ValidationError{Field: "media_refs", Reason: "platform does not accept media"})
	}
	return errs
}
