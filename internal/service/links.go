package service

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/xxxsen/vta/internal/config"
	"github.com/xxxsen/vta/internal/model"
)

const (
	linkTextLimit  = 80
	linkTextMarker = "..."
)

// LinkNormalizer maps raw source URLs to the canonical URL a student should
// be sent to.
type LinkNormalizer struct {
	forumThread *regexp.Regexp
	overrides   map[string]string
	docsHost    string
	docsKeyword string
	docsURL     string
	maxLinks    int
}

func NewLinkNormalizer(cfg config.LinkConfig) *LinkNormalizer {
	base := strings.TrimRight(cfg.ForumBaseURL, "/")
	maxLinks := cfg.MaxLinks
	if maxLinks <= 0 {
		maxLinks = 5
	}
	return &LinkNormalizer{
		forumThread: regexp.MustCompile("^(" + regexp.QuoteMeta(base) + `/t/[^/]+/\d+)`),
		overrides:   cfg.Overrides,
		docsHost:    strings.ToLower(cfg.DocsHost),
		docsKeyword: strings.ToLower(cfg.DocsKeyword),
		docsURL:     cfg.DocsURL,
		maxLinks:    maxLinks,
	}
}

// Normalize returns the canonical form of raw. An empty raw URL has none.
// Forum post URLs collapse to their thread, the override table is applied,
// and docs pages about the keyword topic are pinned to the docs URL.
func (n *LinkNormalizer) Normalize(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	canonical := raw
	if m := n.forumThread.FindStringSubmatch(raw); m != nil {
		canonical = m[1]
	}
	if target, ok := n.overrides[canonical]; ok {
		canonical = target
	} else if target, ok := n.overrides[raw]; ok {
		canonical = target
	}
	if n.isDocsTopic(canonical) {
		canonical = n.docsURL
	}
	return canonical, true
}

func (n *LinkNormalizer) isDocsTopic(raw string) bool {
	if n.docsHost == "" || n.docsKeyword == "" || n.docsURL == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if !strings.HasSuffix(strings.ToLower(u.Hostname()), n.docsHost) {
		return false
	}
	return strings.Contains(strings.ToLower(u.Path+"#"+u.Fragment), n.docsKeyword)
}

// SourceURL picks the record's link: original_url first, then url.
func SourceURL(rec model.ChunkRecord) string {
	for _, candidate := range []string{rec.OriginalURL, rec.URL} {
		if strings.TrimSpace(candidate) != "" {
			return candidate
		}
	}
	return ""
}

// BuildLinks walks matches in rank order and returns at most maxLinks
// distinct canonical links.
func (n *LinkNormalizer) BuildLinks(matches []model.Match) []model.Link {
	links := make([]model.Link, 0, n.maxLinks)
	seen := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		if len(links) >= n.maxLinks {
			break
		}
		canonical, ok := n.Normalize(SourceURL(m.Record))
		if !ok {
			continue
		}
		if _, dup := seen[canonical]; dup {
			continue
		}
		seen[canonical] = struct{}{}
		links = append(links, model.Link{URL: canonical, Text: linkText(m.Record.Text)})
	}
	return links
}

func linkText(text string) string {
	runes := []rune(text)
	if len(runes) > linkTextLimit {
		runes = runes[:linkTextLimit]
	}
	return string(runes) + linkTextMarker
}
