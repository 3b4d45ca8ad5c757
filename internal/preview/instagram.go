package preview

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/promptnote/promptnote/internal/domain"
)

// Instagram blocks anonymous scraping outright, so previews for it are
// synthesized from the URL path instead of fetched.

// Stock images per inferred content kind.
var instagramImages = map[string]string{
	"post":   "https://i.imgur.com/pU2lwAQ.jpg",
	"reel":   "https://i.imgur.com/UGj8rol.jpg",
	"perfil": "https://i.imgur.com/8dNMvEj.jpg",
}

func isInstagramHost(host string) bool {
	host = strings.ToLower(host)
	return host == "instagram.com" || strings.HasSuffix(host, ".instagram.com")
}

// instagramFallback builds a preview from path heuristics:
// /username → profile, /p/… → post, /reel/… → reel.
func (f *Fetcher) instagramFallback(rawURL string, parsed *url.URL) domain.Preview {
	username := "instagram_user"
	kind := "post"

	parts := splitPath(parsed)
	switch {
	case len(parts) == 1:
		username = parts[0]
		kind = "perfil"
	case slices.Contains(parts, "p"):
		if parts[0] != "p" {
			username = parts[0]
		}
		kind = "post"
	case slices.Contains(parts, "reel"):
		if parts[0] != "reel" {
			username = parts[0]
		}
		kind = "reel"
	}

	description := fmt.Sprintf("Conteúdo de %s no Instagram", username)
	if kind == "perfil" {
		description = fmt.Sprintf("Perfil de %s no Instagram", username)
	}

	return domain.Preview{
		Title:       fmt.Sprintf("%s | %s no Instagram", username, capitalize(kind)),
		Description: description,
		Image:       instagramImages[kind],
		URL:         rawURL,
		Provider:    ProviderInstagramFallback,
	}
}

func splitPath(parsed *url.URL) []string {
	var out []string
	for _, p := range strings.Split(parsed.Path, "/") {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
