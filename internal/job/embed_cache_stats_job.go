package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/vta/internal/corpus"
	"github.com/xxxsen/vta/internal/embedcache"
	"github.com/xxxsen/vta/internal/model"
)

// EmbedCacheStatsJob periodically logs query cache usage next to the corpus
// sizes it serves.
type EmbedCacheStatsJob struct {
	stats embedcache.Stats
	store *corpus.Store
}

func NewEmbedCacheStatsJob(stats embedcache.Stats, store *corpus.Store) *EmbedCacheStatsJob {
	return &EmbedCacheStatsJob{stats: stats, store: store}
}

func (j *EmbedCacheStatsJob) Name() string {
	return "embed_cache_stats"
}

func (j *EmbedCacheStatsJob) Run(ctx context.Context) error {
	fields := make([]zap.Field, 0, 5)
	if j.stats != nil {
		fields = append(fields,
			zap.Int("cache_entries", j.stats.Len()),
			zap.Uint64("cache_hits", j.stats.Hits()),
			zap.Uint64("cache_misses", j.stats.Misses()),
		)
	}
	if j.store != nil {
		fields = append(fields,
			zap.Int("content_records", j.store.Corpus(model.OriginContent).Len()),
			zap.Int("forum_records", j.store.Corpus(model.OriginForum).Len()),
		)
	}
	logutil.GetLogger(ctx).Info("embedding cache stats", fields...)
	return nil
}
