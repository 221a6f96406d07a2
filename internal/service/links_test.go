package service

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/vta/internal/config"
	"github.com/xxxsen/vta/internal/model"
)

func newTestNormalizer() *LinkNormalizer {
	return NewLinkNormalizer(config.Default().Links)
}

func TestNormalizeForumThread(t *testing.T) {
	n := newTestNormalizer()
	a, ok := n.Normalize("https://discourse.onlinedegree.iitm.ac.in/t/ga1-questions/155939/12")
	require.True(t, ok)
	b, ok := n.Normalize("https://discourse.onlinedegree.iitm.ac.in/t/ga1-questions/155939/40?u=x")
	require.True(t, ok)
	require.Equal(t, "https://discourse.onlinedegree.iitm.ac.in/t/ga1-questions/155939", a)
	require.Equal(t, a, b)
}

func TestNormalizeOverride(t *testing.T) {
	n := newTestNormalizer()
	got, ok := n.Normalize("https://discourse.onlinedegree.iitm.ac.in/t/ga2-deployment-tools-discussion-thread-tds-jan-2025/161120/7")
	require.True(t, ok)
	require.Equal(t, "https://tds.s-anand.net/#/docker", got)
}

func TestNormalizeDocsRewrite(t *testing.T) {
	n := newTestNormalizer()
	tests := []struct {
		raw  string
		want string
	}{
		{"https://tds.s-anand.net/#/docker?id=install", "https://tds.s-anand.net/#/docker"},
		{"https://tds.s-anand.net/docker-compose.md", "https://tds.s-anand.net/#/docker"},
		{"https://tds.s-anand.net/#/podman", "https://tds.s-anand.net/#/podman"},
		{"https://example.com/docker", "https://example.com/docker"},
		{"https://example.com/?ref=s-anand.net/docker", "https://example.com/?ref=s-anand.net/docker"},
	}
	for _, tt := range tests {
		got, ok := n.Normalize(tt.raw)
		require.True(t, ok)
		require.Equal(t, tt.want, got, tt.raw)
	}
}

func TestNormalizeEmpty(t *testing.T) {
	_, ok := newTestNormalizer().Normalize("  ")
	require.False(t, ok)
}

func TestSourceURL(t *testing.T) {
	require.Equal(t, "a", SourceURL(model.ChunkRecord{OriginalURL: "a", URL: "b"}))
	require.Equal(t, "b", SourceURL(model.ChunkRecord{URL: "b"}))
	require.Equal(t, "", SourceURL(model.ChunkRecord{}))
}

func TestBuildLinksDedupAndCap(t *testing.T) {
	n := newTestNormalizer()
	thread := "https://discourse.onlinedegree.iitm.ac.in/t/ga1-questions/155939"
	matches := []model.Match{
		{Record: model.ChunkRecord{Text: "first post", URL: thread + "/1"}},
		{Record: model.ChunkRecord{Text: "second post", URL: thread + "/2"}},
		{Record: model.ChunkRecord{Text: "no url"}},
	}
	for i := 0; i < 8; i++ {
		matches = append(matches, model.Match{Record: model.ChunkRecord{
			Text:        fmt.Sprintf("page %d", i),
			OriginalURL: fmt.Sprintf("https://tds.s-anand.net/#/page-%d", i),
		}})
	}

	links := n.BuildLinks(matches)
	require.Len(t, links, 5)
	require.Equal(t, thread, links[0].URL)
	require.Equal(t, "first post...", links[0].Text)
	require.Equal(t, "https://tds.s-anand.net/#/page-0", links[1].URL)
	seen := map[string]bool{}
	for _, l := range links {
		require.False(t, seen[l.URL])
		seen[l.URL] = true
	}
}

func TestBuildLinksText(t *testing.T) {
	long := strings.Repeat("é", 100)
	links := newTestNormalizer().BuildLinks([]model.Match{
		{Record: model.ChunkRecord{Text: long, URL: "https://example.com"}},
	})
	require.Len(t, links, 1)
	require.Equal(t, strings.Repeat("é", 80)+"...", links[0].Text)
}

func TestBuildLinksEmpty(t *testing.T) {
	links := newTestNormalizer().BuildLinks(nil)
	require.NotNil(t, links)
	require.Empty(t, links)
}
