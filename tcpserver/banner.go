package tcpserver

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cyberinferno/lineclient/cacher"
)

const bannerKey = "banner"

// Banner is the welcome message sent to each client. It is resolved through
// a cache so that servers sharing a Redis cache greet with the same text.
type Banner struct {
	cache cacher.Cacher[string]
	ttl   time.Duration

	mu   sync.RWMutex
	text string
}

// NewBanner creates a Banner whose local text is used on cache misses.
//
// Parameters:
//   - cache: Where the resolved banner is kept
//   - text: Local banner text; line breaks are removed
//   - ttl: How long a resolved banner is reused
//
// Returns:
//   - A new *Banner
func NewBanner(cache cacher.Cacher[string], text string, ttl time.Duration) *Banner {
	return &Banner{cache: cache, ttl: ttl, text: singleLine(text)}
}

// Get returns the current banner.
func (b *Banner) Get(ctx context.Context) (string, error) {
	return b.cache.GetOrFetch(ctx, bannerKey, b.ttl, b.fetch)
}

// Set replaces the local text and drops the cached banner so the next Get
// picks it up.
func (b *Banner) Set(ctx context.Context, text string) error {
	b.mu.Lock()
	b.text = singleLine(text)
	b.mu.Unlock()

	return b.cache.Delete(ctx, bannerKey)
}

func (b *Banner) fetch(ctx context.Context) (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.text, nil
}

func singleLine(text string) string {
	return strings.NewReplacer("\r", "", "\n", " ").Replace(strings.TrimRight(text, "\r\n"))
}
