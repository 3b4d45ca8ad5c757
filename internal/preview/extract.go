package preview

import (
	"html"
	"regexp"
	"strings"
)

// Metadata extraction is regex-based on purpose: previews only need a handful
// of <meta> tags from the head, and the pages in the wild are frequently too
// broken for a strict parser anyway.
var (
	titleTagRe = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)

	ogTitleRe    = metaRe("property", "og:title")
	ogTitleRevRe = metaRevRe("property", "og:title")

	ogDescRe      = metaRe("property", "og:description")
	ogDescRevRe   = metaRevRe("property", "og:description")
	nameDescRe    = metaRe("name", "description")
	nameDescRevRe = metaRevRe("name", "description")

	ogImageRe       = metaRe("property", "og:image")
	ogImageRevRe    = metaRevRe("property", "og:image")
	twitterImgRe    = metaRe("name", "twitter:image")
	twitterImgRevRe = metaRevRe("name", "twitter:image")
)

// metaRe matches <meta attr="key" ... content="...">.
func metaRe(attr, key string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)<meta[^>]*` + attr + `=["']` + regexp.QuoteMeta(key) + `["'][^>]*content=["'](.*?)["'][^>]*>`)
}

// metaRevRe matches the attribute order flipped: <meta content="..." attr="key">.
func metaRevRe(attr, key string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)<meta[^>]*content=["'](.*?)["'][^>]*` + attr + `=["']` + regexp.QuoteMeta(key) + `["'][^>]*>`)
}

type pageMetadata struct {
	title       string
	description string
	image       string
}

// extractMetadata pulls preview fields out of raw HTML. Preference order per
// field: og:* tag first, then the plainer equivalent.
func extractMetadata(page string) pageMetadata {
	return pageMetadata{
		title:       firstMatch(page, ogTitleRe, ogTitleRevRe, titleTagRe),
		description: firstMatch(page, ogDescRe, ogDescRevRe, nameDescRe, nameDescRevRe),
		image:       firstMatch(page, ogImageRe, ogImageRevRe, twitterImgRe, twitterImgRevRe),
	}
}

func firstMatch(page string, patterns ...*regexp.Regexp) string {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(page); m != nil {
			if v := strings.TrimSpace(html.UnescapeString(m[1])); v != "" {
				return v
			}
		}
	}
	return ""
}
