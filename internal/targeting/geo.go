package targeting

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/oschwald/maxminddb-golang"
)

// GeoInfo holds the geographic attributes used by delivery targeting.
type GeoInfo struct {
	CountryCode string
	Country     string
	Region      string
}

// GeoResolver resolves an IP address to geographic attributes.
type GeoResolver interface {
	Lookup(ip string) (*GeoInfo, error)
	Close() error
}

// MaxMindResolver reads a MaxMind GeoLite2 country or city database.
type MaxMindResolver struct {
	reader *maxminddb.Reader
}

func NewMaxMindResolver(dbPath string) (*MaxMindResolver, error) {
	reader, err := maxminddb.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open geoip database: %w", err)
	}
	return &MaxMindResolver{reader: reader}, nil
}

type geoRecord struct {
	Country struct {
		IsoCode string            `maxminddb:"iso_code"`
		Names   map[string]string `maxminddb:"names"`
	} `maxminddb:"country"`
	Subdivisions []struct {
		Names map[string]string `maxminddb:"names"`
	} `maxminddb:"subdivisions"`
}

func (m *MaxMindResolver) Lookup(ip string) (*GeoInfo, error) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return nil, fmt.Errorf("invalid IP address: %s", ip)
	}
	var rec geoRecord
	if err := m.reader.Lookup(parsed, &rec); err != nil {
		return nil, err
	}
	info := &GeoInfo{
		CountryCode: rec.Country.IsoCode,
		Country:     rec.Country.Names["en"],
	}
	if len(rec.Subdivisions) > 0 {
		info.Region = rec.Subdivisions[0].Names["en"]
	}
	return info, nil
}

func (m *MaxMindResolver) Close() error {
	if m.reader != nil {
		return m.reader.Close()
	}
	return nil
}

// NoopResolver is used when no GeoIP database is configured; every
// lookup resolves to an empty record, which disables geo gating.
type NoopResolver struct{}

func (NoopResolver) Lookup(string) (*GeoInfo, error) { return &GeoInfo{}, nil }
func (NoopResolver) Close() error                    { return nil }

// CachedResolver memoizes lookups with a bounded TTL cache. Delivery
// requests from the same IP within the TTL share one database read.
type CachedResolver struct {
	inner   GeoResolver
	mu      sync.RWMutex
	entries map[string]cacheEntry
	maxSize int
	ttl     time.Duration
	now     func() time.Time

	// OnLookup, when set, observes each lookup with whether it was
	// served from cache and how long it took.
	OnLookup func(cacheHit bool, latency time.Duration)
}

type cacheEntry struct {
	info      *GeoInfo
	expiresAt time.Time
}

func NewCachedResolver(inner GeoResolver, maxSize int, ttl time.Duration) *CachedResolver {
	if maxSize <= 0 {
		maxSize = 10000
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &CachedResolver{
		inner:   inner,
		entries: make(map[string]cacheEntry),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *CachedResolver) Lookup(ip string) (*GeoInfo, error) {
	now := c.now()
	started := time.Now()
	c.mu.RLock()
	e, ok := c.entries[ip]
	c.mu.RUnlock()
	if ok && now.Before(e.expiresAt) {
		if c.OnLookup != nil {
			c.OnLookup(true, time.Since(started))
		}
		return e.info, nil
	}

	info, err := c.inner.Lookup(ip)
	if c.OnLookup != nil {
		c.OnLookup(false, time.Since(started))
	}
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if len(c.entries) >= c.maxSize {
		// Full reset is crude but keeps the cache bounded without an
		// eviction list.
		c.entries = make(map[string]cacheEntry)
	}
	c.entries[ip] = cacheEntry{info: info, expiresAt: now.Add(c.ttl)}
	c.mu.Unlock()
	return info, nil
}

func (c *CachedResolver) Close() error { return c.inner.Close() }

// ClientIP extracts the originating client address from a request,
// honoring X-Forwarded-For and X-Real-IP set by the front proxy.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		ip := strings.TrimSpace(parts[0])
		if net.ParseIP(ip) != nil {
			return ip
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if net.ParseIP(xri) != nil {
			return xri
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
