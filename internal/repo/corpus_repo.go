package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/didi/gendry/builder"
	"github.com/pgvector/pgvector-go"

	"github.com/xxxsen/vta/internal/corpus"
	"github.com/xxxsen/vta/internal/model"
	"github.com/xxxsen/vta/internal/pkg/dbutil"
	appErr "github.com/xxxsen/vta/internal/pkg/errors"
)

// CorpusRepo reads embedded chunks stored in pgvector columns. Rows come
// back in id order, which is the corpus insertion order.
type CorpusRepo struct {
	db     *sql.DB
	tables map[model.Origin]string
}

func NewCorpusRepo(db *sql.DB, contentTable, forumTable string) *CorpusRepo {
	return &CorpusRepo{
		db: db,
		tables: map[model.Origin]string{
			model.OriginContent: contentTable,
			model.OriginForum:   forumTable,
		},
	}
}

// the first column is the provenance label, the last one the source url
var corpusFields = map[model.Origin][]string{
	model.OriginContent: {"filename", "chunk_index", "text", "embedding", "original_url"},
	model.OriginForum:   {"post_id", "chunk_index", "text", "embedding", "url"},
}

func (r *CorpusRepo) buildSelect(origin model.Origin) (string, []interface{}, error) {
	table, ok := r.tables[origin]
	if !ok || table == "" {
		return "", nil, fmt.Errorf("no table configured for %s corpus", origin)
	}
	where := map[string]interface{}{
		"_orderby": "id asc",
	}
	sqlStr, args, err := builder.BuildSelect(table, where, corpusFields[origin])
	if err != nil {
		return "", nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	return sqlStr, args, nil
}

func (r *CorpusRepo) Records(ctx context.Context, origin model.Origin) ([]corpus.RawRecord, error) {
	sqlStr, args, err := r.buildSelect(origin)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", appErr.ErrData, err)
	}
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query %s corpus: %w", appErr.ErrData, origin, err)
	}
	defer rows.Close()

	var results []corpus.RawRecord
	for rows.Next() {
		var (
			label      sql.NullString
			chunkIndex sql.NullInt64
			text       string
			embedding  *pgvector.Vector
			link       sql.NullString
		)
		if err := rows.Scan(&label, &chunkIndex, &text, &embedding, &link); err != nil {
			return nil, fmt.Errorf("%w: scan %s corpus: %w", appErr.ErrData, origin, err)
		}
		item := corpus.RawRecord{
			Text:       text,
			ChunkIndex: int(chunkIndex.Int64),
		}
		if embedding != nil {
			item.Embedding = embedding.Slice()
		}
		switch origin {
		case model.OriginContent:
			item.Filename = label.String
			item.OriginalURL = link.String
		default:
			item.PostID = label.String
			item.URL = link.String
		}
		results = append(results, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read %s corpus: %w", appErr.ErrData, origin, err)
	}
	return results, nil
}
