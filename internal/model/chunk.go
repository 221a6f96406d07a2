package model

// Origin tags which corpus a record belongs to. The numeric order is the
// cross-corpus tie-break order used when ranking.
type Origin int

const (
	OriginContent Origin = iota
	OriginForum
)

func (o Origin) String() string {
	switch o {
	case OriginContent:
		return "content"
	case OriginForum:
		return "forum"
	default:
		return "unknown"
	}
}

// Origins lists every corpus in tie-break order.
var Origins = []Origin{OriginContent, OriginForum}

// ChunkRecord is one embedded passage. Records are immutable once a corpus is built.
type ChunkRecord struct {
	Origin      Origin
	Position    int
	Text        string
	Vector      []float32
	OriginalURL string
	URL         string
	Filename    string
	PostID      string
	ChunkIndex  int
}

// Match pairs a record with its similarity to the query.
type Match struct {
	Record ChunkRecord
	Score  float64
}
