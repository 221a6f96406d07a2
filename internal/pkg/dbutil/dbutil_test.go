package dbutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFinalizeRebindsPlaceholders(t *testing.T) {
	query, args := Finalize("SELECT text FROM forum_posts WHERE post_id=? AND chunk_index=?", []interface{}{"1", 0})
	require.Equal(t, "SELECT text FROM forum_posts WHERE post_id=$1 AND chunk_index=$2", query)
	require.Equal(t, []interface{}{"1", 0}, args)
}

func TestFinalizeRewritesLimit(t *testing.T) {
	query, args := Finalize("SELECT text FROM content_chunks WHERE filename=? LIMIT ?,?", []interface{}{"a.md", 10, 20})
	require.Equal(t, "SELECT text FROM content_chunks WHERE filename=$1 LIMIT $2 OFFSET $3", query)
	require.Equal(t, []interface{}{"a.md", 20, 10}, args)
}
