package job

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/vta/internal/corpus"
)

type fixedStats struct{}

func (fixedStats) Len() int       { return 2 }
func (fixedStats) Hits() uint64   { return 5 }
func (fixedStats) Misses() uint64 { return 2 }

func TestEmbedCacheStatsJob(t *testing.T) {
	store, err := corpus.New([]corpus.RawRecord{{Text: "a", Embedding: []float32{1}}}, nil)
	require.NoError(t, err)

	j := NewEmbedCacheStatsJob(fixedStats{}, store)
	require.Equal(t, "embed_cache_stats", j.Name())
	require.NoError(t, j.Run(context.Background()))
	require.NoError(t, NewEmbedCacheStatsJob(nil, nil).Run(context.Background()))
}
