// Package preview fetches OpenGraph-style link metadata with a layered
// strategy chain and a TTL cache.
//
// The chain: cache → direct scrape through a CORS relay → domain-specific
// fallback → generic fallback. Fetch never returns an error; every internal
// failure degrades to the next strategy, and every produced preview
// (fallbacks included) is cached so hostile or unreachable targets are not
// re-scraped on every render.
package preview

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"

	"github.com/promptnote/promptnote/internal/domain"
	"github.com/promptnote/promptnote/internal/localdb"
)

// Defaults for the external endpoints the fetcher leans on.
const (
	DefaultProxyBase      = "https://corsproxy.io/?"
	DefaultImageProxyBase = "https://images.weserv.nl/?url="
	DefaultLogoBase       = "https://logo.clearbit.com/"
	DefaultTTL            = 24 * time.Hour
	DefaultScrapeTimeout  = 15 * time.Second

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

	maxScrapeBody = 1 << 20 // previews only need the <head>; don't slurp video pages
)

// Providers recorded on produced previews.
const (
	ProviderDirect            = "direct"
	ProviderFallback          = "fallback"
	ProviderErrorFallback     = "error-fallback"
	ProviderInstagramFallback = "instagram-fallback"
)

// Config holds fetcher endpoints and tunables. Zero values pick the defaults;
// tests point the bases at httptest servers.
type Config struct {
	ProxyBase      string
	ImageProxyBase string
	LogoBase       string
	TTL            time.Duration
	ScrapeTimeout  time.Duration
}

func (c *Config) applyDefaults() {
	if c.ProxyBase == "" {
		c.ProxyBase = DefaultProxyBase
	}
	if c.ImageProxyBase == "" {
		c.ImageProxyBase = DefaultImageProxyBase
	}
	if c.LogoBase == "" {
		c.LogoBase = DefaultLogoBase
	}
	if c.TTL <= 0 {
		c.TTL = DefaultTTL
	}
	if c.ScrapeTimeout <= 0 {
		c.ScrapeTimeout = DefaultScrapeTimeout
	}
}

// Fetcher retrieves and caches link previews.
type Fetcher struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
	db         *localdb.DB

	mu    sync.Mutex
	cache map[string]localdb.CachedPreview

	now func() time.Time
}

// NewFetcher creates a fetcher. db may be nil for a purely in-memory cache;
// when present, the cache is rehydrated from it and written through on every
// store.
func NewFetcher(cfg Config, db *localdb.DB, logger *slog.Logger) *Fetcher {
	cfg.applyDefaults()
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	f := &Fetcher{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.ScrapeTimeout},
		// Keep scrapes polite: a burst when pasting a few links, then 1/s.
		limiter: rate.NewLimiter(rate.Every(time.Second), 5),
		logger:  logger,
		db:      db,
		cache:   make(map[string]localdb.CachedPreview),
		now:     time.Now,
	}

	if db != nil {
		f.cache = db.CachedPreviews()
		if len(f.cache) > 0 {
			logger.Debug("preview cache rehydrated", "entries", len(f.cache))
		}
	}

	return f
}

// Fetch resolves a preview for rawURL. It never returns an error: the worst
// outcome is the generic fallback preview.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) domain.Preview {
	parsed, err := url.Parse(rawURL)
	if err != nil || !parsed.IsAbs() || parsed.Host == "" {
		f.logger.Warn("invalid preview url", "url", rawURL)
		// The error fallback is never cached; the URL cannot be fetched and
		// re-synthesizing the placeholder costs nothing.
		return domain.Preview{
			Title:       "website",
			Description: "Conteúdo de website",
			Image:       f.cfg.LogoBase + "website",
			URL:         rawURL,
			Provider:    ProviderErrorFallback,
		}
	}

	if cached, ok := f.cachedPreview(rawURL); ok {
		f.logger.Debug("preview cache hit", "url", rawURL)
		return cached
	}

	if p, ok := f.scrape(ctx, rawURL, parsed); ok {
		f.cachePreview(rawURL, p)
		return p
	}

	if isInstagramHost(parsed.Host) {
		p := f.instagramFallback(rawURL, parsed)
		f.cachePreview(rawURL, p)
		return p
	}

	p := f.genericFallback(rawURL, parsed)
	f.cachePreview(rawURL, p)
	return p
}

// cachedPreview returns a cache entry if present and younger than the TTL.
func (f *Fetcher) cachedPreview(rawURL string) (domain.Preview, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entry, ok := f.cache[rawURL]
	if !ok || f.now().Sub(entry.Timestamp) >= f.cfg.TTL {
		return domain.Preview{}, false
	}
	return entry.Data, true
}

func (f *Fetcher) cachePreview(rawURL string, p domain.Preview) {
	entry := localdb.CachedPreview{Data: p, Timestamp: f.now()}

	f.mu.Lock()
	f.cache[rawURL] = entry
	f.mu.Unlock()

	if f.db != nil {
		f.db.SetCachedPreview(rawURL, entry)
	}
}

// scrape fetches the page HTML through the CORS relay and extracts metadata
// by pattern matching. Returns ok=false on any failure so the caller can
// degrade to the fallback strategies.
func (f *Fetcher) scrape(ctx context.Context, rawURL string, parsed *url.URL) (domain.Preview, bool) {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.ScrapeTimeout)
	defer cancel()

	if err := f.limiter.Wait(ctx); err != nil {
		return domain.Preview{}, false
	}

	proxied := f.cfg.ProxyBase + url.QueryEscape(rawURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, proxied, nil)
	if err != nil {
		f.logger.Warn("building scrape request failed", "url", rawURL, "error", err)
		return domain.Preview{}, false
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		f.logger.Debug("direct scrape failed", "url", rawURL, "error", err)
		return domain.Preview{}, false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		f.logger.Debug("direct scrape rejected", "url", rawURL, "status", resp.StatusCode)
		return domain.Preview{}, false
	}

	// Decode whatever charset the page declares into UTF-8 before matching.
	reader, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		reader = resp.Body
	}
	body, err := io.ReadAll(io.LimitReader(reader, maxScrapeBody))
	if err != nil {
		f.logger.Debug("reading scraped page failed", "url", rawURL, "error", err)
		return domain.Preview{}, false
	}

	meta := extractMetadata(string(body))

	title := meta.title
	if title == "" {
		title = domainName(parsed)
	}

	image := meta.image
	if image != "" {
		// Relative image URLs resolve against the page origin.
		if strings.HasPrefix(image, "/") {
			image = parsed.Scheme + "://" + parsed.Host + image
		}
		image = f.safeImageURL(image)
	}

	return domain.Preview{
		Title:       title,
		Description: meta.description,
		Image:       image,
		URL:         rawURL,
		Provider:    ProviderDirect,
	}, true
}

// safeImageURL rewrites an image URL to route through the image proxy so the
// eventual <img> request dodges mixed-content and CORS blocks. URLs already
// on an allowed host pass through unchanged.
func (f *Fetcher) safeImageURL(raw string) string {
	if raw == "" {
		return ""
	}
	if strings.Contains(raw, "imgur.com") || strings.Contains(raw, "images.weserv.nl") {
		return raw
	}
	if _, err := url.Parse(raw); err != nil {
		return ""
	}
	return f.cfg.ImageProxyBase + url.QueryEscape(raw) + "&n=-1"
}

// genericFallback synthesizes a minimal preview from the domain alone.
func (f *Fetcher) genericFallback(rawURL string, parsed *url.URL) domain.Preview {
	dom := domainName(parsed)
	return domain.Preview{
		Title:       dom,
		Description: fmt.Sprintf("Conteúdo de %s", dom),
		Image:       f.cfg.LogoBase + dom,
		URL:         rawURL,
		Provider:    ProviderFallback,
	}
}

func domainName(parsed *url.URL) string {
	return strings.TrimPrefix(parsed.Hostname(), "www.")
}
