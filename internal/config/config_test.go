package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadJSONAppliesDefaults(t *testing.T) {
	t.Setenv("PROXY_TOKEN", "env-token")
	path := writeFile(t, "config.json", `{"port": 9000}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 9000, cfg.Port)
	require.Equal(t, "file", cfg.Corpus.Source)
	require.Equal(t, "embeddings.json", cfg.Corpus.ContentFile)
	require.Equal(t, "discourse_posts_embeddings.json", cfg.Corpus.ForumFile)
	require.Equal(t, "local", cfg.Corpus.FileStore.Type)
	require.Equal(t, "openai", cfg.AI.Provider)
	require.Equal(t, "env-token", cfg.AI.APIKey)
	require.Equal(t, "text-embedding-3-small", cfg.AI.EmbedModel)
	require.Equal(t, "gpt-4o-mini", cfg.AI.ChatModel)
	require.Equal(t, 30, cfg.AI.Timeout)
	require.Equal(t, 3, cfg.Retrieval.PerCorpusK)
	require.Equal(t, 5, cfg.Retrieval.FinalK)
	require.Equal(t, 5, cfg.Links.MaxLinks)
	require.Equal(t, "https://tds.s-anand.net/#/docker", cfg.Links.DocsURL)
	require.Len(t, cfg.Links.Overrides, 1)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
port: 8100
ai:
  api_key: yaml-key
  chat_model: custom-chat
links:
  max_links: 3
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 8100, cfg.Port)
	require.Equal(t, "yaml-key", cfg.AI.APIKey)
	require.Equal(t, "custom-chat", cfg.AI.ChatModel)
	require.Equal(t, 3, cfg.Links.MaxLinks)
}

func TestLoadRejectsUnknownSource(t *testing.T) {
	path := writeFile(t, "config.json", `{"corpus": {"source": "redis"}}`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadPostgresRequiresDatabase(t *testing.T) {
	path := writeFile(t, "config.json", `{"corpus": {"source": "postgres"}}`)
	_, err := Load(path)
	require.Error(t, err)

	path = writeFile(t, "config2.json", `{"corpus": {"source": "postgres", "database": {"dsn": "postgres://x"}}}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "content_chunks", cfg.Corpus.ContentTable)
	require.Equal(t, "forum_posts", cfg.Corpus.ForumTable)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}
