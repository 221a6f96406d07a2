package corpus

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/xxxsen/vta/internal/filestore"
	"github.com/xxxsen/vta/internal/model"
	appErr "github.com/xxxsen/vta/internal/pkg/errors"
)

// fileRecord covers both persisted layouts: content chunks carry filename
// (and optionally original_url), forum chunks carry post_id and url.
type fileRecord struct {
	Filename    string          `json:"filename"`
	PostID      json.RawMessage `json:"post_id"`
	ChunkIndex  int             `json:"chunk_index"`
	Text        string          `json:"text"`
	Embedding   []float32       `json:"embedding"`
	OriginalURL *string         `json:"original_url"`
	URL         *string         `json:"url"`
}

// FileSource reads each corpus as a JSON array from a file store.
type FileSource struct {
	store filestore.Store
	keys  map[model.Origin]string
}

func NewFileSource(store filestore.Store, contentKey, forumKey string) *FileSource {
	return &FileSource{
		store: store,
		keys: map[model.Origin]string{
			model.OriginContent: contentKey,
			model.OriginForum:   forumKey,
		},
	}
}

func (s *FileSource) Records(ctx context.Context, origin model.Origin) ([]RawRecord, error) {
	key, ok := s.keys[origin]
	if !ok || key == "" {
		return nil, fmt.Errorf("%w: no file configured for %s corpus", appErr.ErrData, origin)
	}
	rc, err := s.store.Open(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", appErr.ErrData, key, err)
	}
	defer rc.Close()

	var items []fileRecord
	if err := json.NewDecoder(rc).Decode(&items); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", appErr.ErrData, key, err)
	}
	out := make([]RawRecord, 0, len(items))
	for _, item := range items {
		out = append(out, RawRecord{
			Text:        item.Text,
			Embedding:   item.Embedding,
			OriginalURL: deref(item.OriginalURL),
			URL:         deref(item.URL),
			Filename:    item.Filename,
			PostID:      rawID(item.PostID),
			ChunkIndex:  item.ChunkIndex,
		})
	}
	return out, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// rawID renders a post id that may be persisted as a number, a string or null.
func rawID(raw json.RawMessage) string {
	text := strings.TrimSpace(string(raw))
	if text == "" || text == "null" {
		return ""
	}
	if unquoted, err := strconv.Unquote(text); err == nil {
		return unquoted
	}
	return text
}
