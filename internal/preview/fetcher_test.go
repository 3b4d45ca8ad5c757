package preview

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptnote/promptnote/internal/localdb"
)

func newTestFetcher(t *testing.T, proxy *httptest.Server) *Fetcher {
	t.Helper()
	cfg := Config{
		ImageProxyBase: "https://img.test/?url=",
		LogoBase:       "https://logo.test/",
	}
	if proxy != nil {
		cfg.ProxyBase = proxy.URL + "/?"
	} else {
		// Unroutable relay so scrapes fail fast in fallback tests.
		cfg.ProxyBase = "http://127.0.0.1:0/?"
		cfg.ScrapeTimeout = 200 * time.Millisecond
	}
	return NewFetcher(cfg, nil, slog.New(slog.DiscardHandler))
}

func TestFetchExtractsOpenGraphMetadata(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head>
			<title>Plain Title</title>
			<meta property="og:title" content="OG Title" />
			<meta property="og:description" content="Uma descri&ccedil;&atilde;o" />
			<meta property="og:image" content="https://cdn.example.com/pic.png" />
		</head></html>`))
	}))
	defer srv.Close()

	f := newTestFetcher(t, srv)
	p := f.Fetch(context.Background(), "https://example.com/article")

	assert.Equal(t, "OG Title", p.Title)
	assert.Equal(t, "Uma descrição", p.Description)
	assert.Equal(t, "https://img.test/?url=https%3A%2F%2Fcdn.example.com%2Fpic.png&n=-1", p.Image)
	assert.Equal(t, ProviderDirect, p.Provider)
	assert.Equal(t, "https://example.com/article", p.URL)
}

func TestFetchFallsBackToTitleTag(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><title>  Page Title </title></head></html>`))
	}))
	defer srv.Close()

	f := newTestFetcher(t, srv)
	p := f.Fetch(context.Background(), "https://www.example.com/")

	assert.Equal(t, "Page Title", p.Title)
	assert.Empty(t, p.Description)
	assert.Equal(t, ProviderDirect, p.Provider)
}

func TestFetchResolvesRelativeImages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head>
			<title>T</title>
			<meta property="og:image" content="/static/banner.jpg" />
		</head></html>`))
	}))
	defer srv.Close()

	f := newTestFetcher(t, srv)
	p := f.Fetch(context.Background(), "https://example.com/post/1")

	assert.Equal(t, "https://img.test/?url=https%3A%2F%2Fexample.com%2Fstatic%2Fbanner.jpg&n=-1", p.Image)
}

func TestFetchGenericFallbackWhenScrapeFails(t *testing.T) {
	f := newTestFetcher(t, nil)
	p := f.Fetch(context.Background(), "https://www.exemplo.com.br/artigo")

	assert.Equal(t, "exemplo.com.br", p.Title)
	assert.Equal(t, "Conteúdo de exemplo.com.br", p.Description)
	assert.Equal(t, "https://logo.test/exemplo.com.br", p.Image)
	assert.Equal(t, ProviderFallback, p.Provider)
}

func TestFetchInstagramFallback(t *testing.T) {
	f := newTestFetcher(t, nil)

	tests := []struct {
		name        string
		url         string
		title       string
		description string
	}{
		{
			name:        "profile",
			url:         "https://www.instagram.com/maria",
			title:       "maria | Perfil no Instagram",
			description: "Perfil de maria no Instagram",
		},
		{
			name:        "post",
			url:         "https://instagram.com/p/abc123",
			title:       "instagram_user | Post no Instagram",
			description: "Conteúdo de instagram_user no Instagram",
		},
		{
			name:        "reel",
			url:         "https://www.instagram.com/reel/xyz",
			title:       "instagram_user | Reel no Instagram",
			description: "Conteúdo de instagram_user no Instagram",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := f.Fetch(context.Background(), tt.url)
			assert.Equal(t, tt.title, p.Title)
			assert.Equal(t, tt.description, p.Description)
			assert.Equal(t, ProviderInstagramFallback, p.Provider)
			assert.NotEmpty(t, p.Image)
		})
	}
}

func TestFetchInvalidURLNotCached(t *testing.T) {
	f := newTestFetcher(t, nil)
	p := f.Fetch(context.Background(), "::not a url::")

	assert.Equal(t, "website", p.Title)
	assert.Equal(t, "Conteúdo de website", p.Description)
	assert.Equal(t, ProviderErrorFallback, p.Provider)

	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Empty(t, f.cache)
}

func TestFetchCachesAndRespectsTTL(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte(`<html><head><title>Cached</title></head></html>`))
	}))
	defer srv.Close()

	f := newTestFetcher(t, srv)
	start := time.Now()
	f.now = func() time.Time { return start }

	f.Fetch(context.Background(), "https://example.com/")
	f.Fetch(context.Background(), "https://example.com/")
	assert.Equal(t, 1, hits, "second fetch should hit the cache")

	// Past the TTL the entry is stale and the page is scraped again.
	f.now = func() time.Time { return start.Add(DefaultTTL + time.Minute) }
	f.Fetch(context.Background(), "https://example.com/")
	assert.Equal(t, 2, hits)
}

func TestFetchFallbacksAreCached(t *testing.T) {
	f := newTestFetcher(t, nil)

	first := f.Fetch(context.Background(), "https://down.example.org/")
	require.Equal(t, ProviderFallback, first.Provider)

	cached, ok := f.cachedPreview("https://down.example.org/")
	require.True(t, ok)
	assert.Equal(t, first, cached)
}

func TestFetchPersistsCacheThroughDB(t *testing.T) {
	db, err := localdb.Open(t.TempDir(), slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	defer db.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><title>Durable</title></head></html>`))
	}))
	defer srv.Close()

	cfg := Config{ProxyBase: srv.URL + "/?", ImageProxyBase: "https://img.test/?url=", LogoBase: "https://logo.test/"}
	f := NewFetcher(cfg, db, slog.New(slog.DiscardHandler))
	f.Fetch(context.Background(), "https://example.com/durable")

	// A fresh fetcher over the same database starts warm.
	reborn := NewFetcher(cfg, db, slog.New(slog.DiscardHandler))
	p, ok := reborn.cachedPreview("https://example.com/durable")
	require.True(t, ok)
	assert.Equal(t, "Durable", p.Title)
}

func TestSafeImageURLPassthrough(t *testing.T) {
	f := newTestFetcher(t, nil)

	assert.Equal(t, "https://i.imgur.com/abc.jpg", f.safeImageURL("https://i.imgur.com/abc.jpg"))
	assert.Equal(t, "https://images.weserv.nl/?url=x", f.safeImageURL("https://images.weserv.nl/?url=x"))
	assert.Equal(t, "", f.safeImageURL(""))
}
