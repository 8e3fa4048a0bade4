// Package siteconfig resolves site-wide settings such as the fallback
// generation endpoint, caching lookups in memory.
package siteconfig

import (
	"context"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"
)

// Source looks up a single exact (key, scope, context) entry
type Source interface {
	Lookup(ctx context.Context, key, scope, scopeContext string) (string, bool, error)
}

// Service answers GetConfig with a context-specific value, then the
// scope-wide value, then the caller's fallback.
type Service struct {
	source   Source
	cache    *cache.Cache
	defaults map[string]string
}

// New wraps source. defaults are keyed "key" or "key/context" and consulted
// when the source has no entry.
func New(source Source, ttl time.Duration, defaults map[string]string) *Service {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Service{
		source:   source,
		cache:    cache.New(ttl, 2*ttl),
		defaults: defaults,
	}
}

type entry struct {
	value string
	found bool
}

func (s *Service) GetConfig(ctx context.Context, key, scope, scopeContext, fallback string) string {
	if scopeContext != "" {
		if v, ok := s.lookup(ctx, key, scope, scopeContext); ok {
			return v
		}
	}
	if v, ok := s.lookup(ctx, key, scope, ""); ok {
		return v
	}
	if v, ok := s.defaults[key+"/"+scopeContext]; ok && scopeContext != "" && v != "" {
		return v
	}
	if v, ok := s.defaults[key]; ok && v != "" {
		return v
	}
	return fallback
}

// Invalidate drops every cached entry
func (s *Service) Invalidate() {
	s.cache.Flush()
}

func (s *Service) lookup(ctx context.Context, key, scope, scopeContext string) (string, bool) {
	cacheKey := strings.Join([]string{key, scope, scopeContext}, "\x00")
	if x, found := s.cache.Get(cacheKey); found {
		e := x.(entry)
		return e.value, e.found
	}
	if s.source == nil {
		return "", false
	}

	v, found, err := s.source.Lookup(ctx, key, scope, scopeContext)
	if err != nil {
		log.Warn().Err(err).
			Str("key", key).
			Str("scope", scope).
			Str("context", scopeContext).
			Msg("Site config lookup failed")
		return "", false
	}
	found = found && strings.TrimSpace(v) != ""
	s.cache.Set(cacheKey, entry{value: v, found: found}, cache.DefaultExpiration)
	return v, found
}
