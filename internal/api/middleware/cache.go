package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/zatekoja/medscan/backend/internal/domain/providers"
	"github.com/zatekoja/medscan/backend/internal/infrastructure/observability"
)

// CacheRule caches GET responses under a path prefix.
type CacheRule struct {
	Prefix string
	TTL    time.Duration
}

// DefaultCacheRules cover the catalog reads. The catalog only changes on
// restart, so the TTL just bounds staleness across deploys.
var DefaultCacheRules = []CacheRule{
	{Prefix: "/api/catalog/barcodes/", TTL: 10 * time.Minute},
	{Prefix: "/api/catalog/entries", TTL: 10 * time.Minute},
}

// CacheMiddleware caches successful GET responses of read-only routes.
// Scan and extraction routes are user-scoped and never match a rule.
type CacheMiddleware struct {
	cache   providers.CacheProvider
	rules   []CacheRule
	metrics *observability.Metrics
}

// NewCacheMiddleware caches the routes in rules, or DefaultCacheRules when
// rules is empty.
func NewCacheMiddleware(cache providers.CacheProvider, metrics *observability.Metrics, rules ...CacheRule) *CacheMiddleware {
	if len(rules) == 0 {
		rules = DefaultCacheRules
	}
	return &CacheMiddleware{cache: cache, rules: rules, metrics: metrics}
}

// Middleware returns the cache middleware handler
func (m *CacheMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rule, ok := m.match(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		cacheKey := cacheKey(r)

		// A client asking for a fresh copy skips the lookup but still refills.
		if !strings.Contains(r.Header.Get("Cache-Control"), "no-cache") {
			if cached, err := m.cache.Get(ctx, cacheKey); err == nil {
				observability.RecordCacheHit(ctx, m.metrics, "http")
				w.Header().Set("X-Cache", "HIT")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusOK)
				w.Write(cached)
				return
			}
		}

		observability.RecordCacheMiss(ctx, m.metrics, "http")
		w.Header().Set("X-Cache", "MISS")

		tee := &teeWriter{statusWriter: statusWriter{ResponseWriter: w, statusCode: http.StatusOK}}
		next.ServeHTTP(tee, r)

		if tee.statusCode != http.StatusOK || tee.body.Len() == 0 {
			return
		}
		if err := m.cache.Set(ctx, cacheKey, tee.body.Bytes(), rule.TTL); err != nil {
			observability.LoggerFromContext(ctx).Warn().Err(err).Str("path", r.URL.Path).Msg("failed to cache response")
		}
	})
}

func (m *CacheMiddleware) match(r *http.Request) (CacheRule, bool) {
	if m.cache == nil || r.Method != http.MethodGet {
		return CacheRule{}, false
	}
	for _, rule := range m.rules {
		if r.URL.Path == rule.Prefix || (strings.HasSuffix(rule.Prefix, "/") && strings.HasPrefix(r.URL.Path, rule.Prefix)) {
			return rule, true
		}
	}
	return CacheRule{}, false
}

// cacheKey hashes the path and the normalized query. Query.Encode sorts keys,
// so ?region=GB&x=1 and ?x=1&region=GB share an entry.
func cacheKey(r *http.Request) string {
	key := r.URL.Path
	if r.URL.RawQuery != "" {
		key += "?" + r.URL.Query().Encode()
	}
	hash := sha256.Sum256([]byte(key))
	return "medscan:http:" + hex.EncodeToString(hash[:])
}

// teeWriter copies the body it forwards so it can be cached afterwards.
type teeWriter struct {
	statusWriter
	body bytes.Buffer
}

func (t *teeWriter) Write(b []byte) (int, error) {
	n, err := t.statusWriter.Write(b)
	t.body.Write(b[:n])
	return n, err
}
