// Package retrieval ranks corpus records against a query vector by cosine
// similarity. Every ranking is a full linear scan; corpora are small enough
// that no index is kept.
package retrieval

import (
	"fmt"
	"math"
	"sort"

	"github.com/xxxsen/vta/internal/model"
	appErr "github.com/xxxsen/vta/internal/pkg/errors"
)

// Corpus is the read-only view TopK scans.
type Corpus interface {
	Origin() model.Origin
	Len() int
	At(i int) model.ChunkRecord
	Dimension() int
}

// Cosine returns the cosine similarity of a and b clamped to [-1, 1]. A zero
// magnitude vector scores 0.
func Cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	score := dot / (math.Sqrt(na) * math.Sqrt(nb))
	return math.Max(-1, math.Min(1, score))
}

// TopK scores every record of c against query and returns the best
// min(k, c.Len()) matches, highest score first. Equal scores keep insertion
// order.
func TopK(query []float32, c Corpus, k int) ([]model.Match, error) {
	n := c.Len()
	if k <= 0 || n == 0 {
		return []model.Match{}, nil
	}
	if len(query) != c.Dimension() {
		return nil, fmt.Errorf("%w: query dimension %d, %s corpus dimension %d",
			appErr.ErrData, len(query), c.Origin(), c.Dimension())
	}
	matches := make([]model.Match, 0, n)
	for i := 0; i < n; i++ {
		rec := c.At(i)
		matches = append(matches, model.Match{Record: rec, Score: Cosine(query, rec.Vector)})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return less(matches[i], matches[j])
	})
	if k < len(matches) {
		matches = matches[:k]
	}
	return matches, nil
}

// MergeAndRerank concatenates the lists and keeps the best finalK. Ties go
// to the content corpus first, then to the earlier position.
func MergeAndRerank(finalK int, lists ...[]model.Match) []model.Match {
	total := 0
	for _, l := range lists {
		total += len(l)
	}
	merged := make([]model.Match, 0, total)
	for _, l := range lists {
		merged = append(merged, l...)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return less(merged[i], merged[j])
	})
	if finalK < 0 {
		finalK = 0
	}
	if finalK < len(merged) {
		merged = merged[:finalK]
	}
	return merged
}

func less(a, b model.Match) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.Record.Origin != b.Record.Origin {
		return a.Record.Origin < b.Record.Origin
	}
	return a.Record.Position < b.Record.Position
}
