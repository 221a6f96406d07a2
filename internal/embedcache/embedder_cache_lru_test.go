package embedcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stubEmbedder struct {
	calls int
	err   error
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []float32{float32(len(text)), 1}, nil
}

func (s *stubEmbedder) ModelName() string {
	return "stub"
}

func TestLruEmbedderCachesByText(t *testing.T) {
	next := &stubEmbedder{}
	e := WrapLruCacheToEmbedder(next, 8, time.Minute)

	first, err := e.Embed(context.Background(), "docker")
	require.NoError(t, err)
	first[0] = 99

	second, err := e.Embed(context.Background(), "docker")
	require.NoError(t, err)
	require.Equal(t, []float32{6, 1}, second)
	require.Equal(t, 1, next.calls)

	_, err = e.Embed(context.Background(), "podman")
	require.NoError(t, err)
	require.Equal(t, 2, next.calls)

	stats, ok := e.(Stats)
	require.True(t, ok)
	require.Equal(t, 2, stats.Len())
	require.Equal(t, uint64(1), stats.Hits())
	require.Equal(t, uint64(2), stats.Misses())
}

func TestLruEmbedderDoesNotCacheErrors(t *testing.T) {
	next := &stubEmbedder{err: errors.New("down")}
	e := WrapLruCacheToEmbedder(next, 8, time.Minute)
	for i := 0; i < 2; i++ {
		_, err := e.Embed(context.Background(), "q")
		require.Error(t, err)
	}
	require.Equal(t, 2, next.calls)
}

func TestWrapDisabled(t *testing.T) {
	next := &stubEmbedder{}
	require.Same(t, next, WrapLruCacheToEmbedder(next, 0, time.Minute))
	require.Same(t, next, WrapLruCacheToEmbedder(next, 8, 0))
}

func TestBuildCacheKey(t *testing.T) {
	require.NotEqual(t, buildCacheKey("a", "q"), buildCacheKey("b", "q"))
	require.Contains(t, buildCacheKey(" ", "q"), "embed:unknown:")
}
