// Package corpus holds the immutable in-memory snapshot of the embedded
// course content and forum posts. A Store is built once at startup and is
// safe for concurrent readers without locking.
package corpus

import (
	"context"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/vta/internal/model"
	appErr "github.com/xxxsen/vta/internal/pkg/errors"
)

// RawRecord is a persisted record before validation. A nil or empty
// Embedding means the record was never embedded.
type RawRecord struct {
	Text        string
	Embedding   []float32
	OriginalURL string
	URL         string
	Filename    string
	PostID      string
	ChunkIndex  int
}

// Source yields the persisted records of one corpus in insertion order.
type Source interface {
	Records(ctx context.Context, origin model.Origin) ([]RawRecord, error)
}

type Corpus struct {
	origin  model.Origin
	dim     int
	records []model.ChunkRecord
}

func (c *Corpus) Origin() model.Origin {
	return c.origin
}

func (c *Corpus) Len() int {
	return len(c.records)
}

// At returns the record at insertion position i.
func (c *Corpus) At(i int) model.ChunkRecord {
	return c.records[i]
}

// Dimension is the vector size shared by every record, 0 for an empty corpus.
func (c *Corpus) Dimension() int {
	return c.dim
}

type Store struct {
	corpora map[model.Origin]*Corpus
}

// Load reads both corpora from src. Records without a vector are dropped;
// any dimension inconsistency is reported as ErrData.
func Load(ctx context.Context, src Source) (*Store, error) {
	store := &Store{corpora: make(map[model.Origin]*Corpus, len(model.Origins))}
	dim := 0
	var dimOrigin model.Origin
	for _, origin := range model.Origins {
		raw, err := src.Records(ctx, origin)
		if err != nil {
			return nil, fmt.Errorf("load %s corpus: %w", origin, err)
		}
		c, err := build(origin, raw)
		if err != nil {
			return nil, err
		}
		if c.dim > 0 {
			if dim == 0 {
				dim, dimOrigin = c.dim, origin
			} else if c.dim != dim {
				return nil, fmt.Errorf("%w: %s corpus dimension %d differs from %s corpus dimension %d",
					appErr.ErrData, origin, c.dim, dimOrigin, dim)
			}
		}
		logutil.GetLogger(ctx).Info("corpus loaded",
			zap.String("origin", origin.String()),
			zap.Int("records", len(raw)),
			zap.Int("kept", c.Len()),
			zap.Int("dimension", c.dim),
		)
		store.corpora[origin] = c
	}
	return store, nil
}

// New builds a store directly from records, mostly for tests and tools.
func New(content, forum []RawRecord) (*Store, error) {
	return Load(context.Background(), staticSource{
		model.OriginContent: content,
		model.OriginForum:   forum,
	})
}

func build(origin model.Origin, raw []RawRecord) (*Corpus, error) {
	c := &Corpus{origin: origin, records: make([]model.ChunkRecord, 0, len(raw))}
	for i, r := range raw {
		if len(r.Embedding) == 0 {
			continue
		}
		if c.dim == 0 {
			c.dim = len(r.Embedding)
		} else if len(r.Embedding) != c.dim {
			return nil, fmt.Errorf("%w: %s record %d has dimension %d, expected %d",
				appErr.ErrData, origin, i, len(r.Embedding), c.dim)
		}
		c.records = append(c.records, model.ChunkRecord{
			Origin:      origin,
			Position:    len(c.records),
			Text:        r.Text,
			Vector:      r.Embedding,
			OriginalURL: r.OriginalURL,
			URL:         r.URL,
			Filename:    r.Filename,
			PostID:      r.PostID,
			ChunkIndex:  r.ChunkIndex,
		})
	}
	return c, nil
}

// Corpus returns the corpus for origin; unknown origins yield an empty corpus.
func (s *Store) Corpus(origin model.Origin) *Corpus {
	if c, ok := s.corpora[origin]; ok {
		return c
	}
	return &Corpus{origin: origin}
}

// Dimension is the shared vector size across corpora, 0 when both are empty.
func (s *Store) Dimension() int {
	for _, origin := range model.Origins {
		if d := s.Corpus(origin).Dimension(); d > 0 {
			return d
		}
	}
	return 0
}

type staticSource map[model.Origin][]RawRecord

func (s staticSource) Records(_ context.Context, origin model.Origin) ([]RawRecord, error) {
	return s[origin], nil
}
