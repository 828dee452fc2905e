package model

import "time"

// PlatformCapability is the static publishing contract of one destination.
// Loaded from config at startup; never persisted as mutable state.
type PlatformCapability struct {
	Name                string
	MaxContentLength    int // in runes; 0 means unlimited
	SupportedMediaTypes []string
	RateLimit           int           // publish attempts per window
	RateWindow          time.Duration // rolling limiter window
	AuthRef             string        // opaque credential-store reference
}

func (c PlatformCapability) SupportsMediaType(mt string) bool {
	for _, t := range c.SupportedMediaTypes {
		if t == mt {
			return true
		}
	}
	return false
}
