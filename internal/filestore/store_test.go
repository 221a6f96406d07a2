package filestore

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/vta/internal/config"
)

func TestLocalStoreOpen(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "embeddings.json"), []byte("[]"), 0o644))

	store, err := New(config.FileStoreConfig{Type: "local", Data: map[string]interface{}{"dir": dir}})
	require.NoError(t, err)
	require.Equal(t, "local", store.Type())

	rc, err := store.Open(context.Background(), "embeddings.json")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, "[]", string(data))

	_, err = store.Open(context.Background(), "../escape.json")
	require.Error(t, err)
	_, err = store.Open(context.Background(), "missing.json")
	require.Error(t, err)
}

func TestNewUnknownType(t *testing.T) {
	_, err := New(config.FileStoreConfig{Type: "ftp"})
	require.Error(t, err)
	_, err = New(config.FileStoreConfig{})
	require.Error(t, err)
}

type fakeGetter struct {
	bucket string
	key    string
	body   string
}

func (f *fakeGetter) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.bucket = aws.ToString(params.Bucket)
	f.key = aws.ToString(params.Key)
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader([]byte(f.body)))}, nil
}

func TestS3StoreOpenUsesPrefix(t *testing.T) {
	getter := &fakeGetter{body: `[{"text":"x"}]`}
	store := &s3Store{client: getter, bucket: "corpus", prefix: "tds/2025"}

	rc, err := store.Open(context.Background(), "embeddings.json")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, `[{"text":"x"}]`, string(data))
	require.Equal(t, "corpus", getter.bucket)
	require.Equal(t, "tds/2025/embeddings.json", getter.key)
}

func TestBuildEndpoint(t *testing.T) {
	require.Equal(t, "", buildEndpoint("", true))
	require.Equal(t, "https://minio.local:9000", buildEndpoint("minio.local:9000/", true))
	require.Equal(t, "http://minio.local", buildEndpoint("minio.local", false))
	require.Equal(t, "https://s3.example.com", buildEndpoint("https://s3.example.com", false))
}
