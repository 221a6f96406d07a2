package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/vta/internal/config"
	"github.com/xxxsen/vta/internal/corpus"
	"github.com/xxxsen/vta/internal/model"
	appErr "github.com/xxxsen/vta/internal/pkg/errors"
)

type fakeEmbedder struct {
	vec []float32
	err error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vec, nil
}

func (f *fakeEmbedder) ModelName() string {
	return "fake"
}

type panicEmbedder struct{}

func (panicEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	panic("boom")
}

func (panicEmbedder) ModelName() string {
	return "panic"
}

func testStore(t *testing.T) *corpus.Store {
	t.Helper()
	store, err := corpus.New(
		[]corpus.RawRecord{
			{Text: "Docker packages apps into containers.", Embedding: []float32{1, 0, 0}, OriginalURL: "https://tds.s-anand.net/#/docker"},
			{Text: "Git basics.", Embedding: []float32{0, 1, 0}, OriginalURL: "https://tds.s-anand.net/#/git"},
			{Text: "never embedded", OriginalURL: "https://tds.s-anand.net/#/none"},
		},
		[]corpus.RawRecord{
			{Text: "Use docker run to start it.", Embedding: []float32{0.9, 0.1, 0}, URL: "https://discourse.onlinedegree.iitm.ac.in/t/ga2-docker/160000/3"},
			{Text: "Deadline question.", Embedding: []float32{0, 0, 1}, URL: "https://discourse.onlinedegree.iitm.ac.in/t/deadlines/150000/1"},
		},
	)
	require.NoError(t, err)
	return store
}

func newTestService(t *testing.T, embedder *fakeEmbedder, chat *fakeChatter) *QAService {
	cfg := config.Default()
	return NewQAService(testStore(t), embedder, NewAnswerSynthesizer(chat), NewLinkNormalizer(cfg.Links), cfg.Retrieval)
}

func TestAnswerAppendsCitation(t *testing.T) {
	chat := &fakeChatter{answer: "Docker is a container runtime."}
	svc := newTestService(t, &fakeEmbedder{vec: []float32{1, 0, 0}}, chat)

	resp := svc.Answer(context.Background(), model.Query{Question: "What is Docker?"})
	require.True(t, strings.HasSuffix(resp.Answer, "\n\n[Source](https://tds.s-anand.net/#/docker)"))
	require.NotEmpty(t, resp.Links)
	require.Equal(t, "https://tds.s-anand.net/#/docker", resp.Links[0].URL)
	require.LessOrEqual(t, len(resp.Links), 5)

	userMsg := chat.messages[1].Content
	require.Contains(t, userMsg, "Docker packages apps into containers.\n\n---\n\nUse docker run to start it.")
	require.NotContains(t, userMsg, "never embedded")
	require.NotContains(t, userMsg, imageAnnotation)
}

func TestAnswerKeepsExistingCitation(t *testing.T) {
	chat := &fakeChatter{answer: "See https://tds.s-anand.net/#/docker for details."}
	svc := newTestService(t, &fakeEmbedder{vec: []float32{1, 0, 0}}, chat)
	resp := svc.Answer(context.Background(), model.Query{Question: "What is Docker?"})
	require.Equal(t, "See https://tds.s-anand.net/#/docker for details.", resp.Answer)
}

func TestAnswerEmbedFailureFallsBack(t *testing.T) {
	chat := &fakeChatter{answer: "unused"}
	embedErr := fmt.Errorf("%w: dial tcp: connection refused", appErr.ErrUpstream)
	svc := newTestService(t, &fakeEmbedder{err: embedErr}, chat)

	resp := svc.Answer(context.Background(), model.Query{Question: "What is Docker?"})
	require.Equal(t, FallbackAnswer, resp.Answer)
	require.NotNil(t, resp.Links)
	require.Empty(t, resp.Links)
	require.Nil(t, chat.messages)
}

func TestAnswerChatFailureFallsBack(t *testing.T) {
	chat := &fakeChatter{err: errors.New("http 502")}
	svc := newTestService(t, &fakeEmbedder{vec: []float32{1, 0, 0}}, chat)
	resp := svc.Answer(context.Background(), model.Query{Question: "q"})
	require.Equal(t, Fallback(), resp)
}

func TestAnswerDimensionMismatchFallsBack(t *testing.T) {
	svc := newTestService(t, &fakeEmbedder{vec: []float32{1, 0}}, &fakeChatter{answer: "x"})
	resp := svc.Answer(context.Background(), model.Query{Question: "q"})
	require.Equal(t, FallbackAnswer, resp.Answer)
}

func TestAnswerRecoversPanic(t *testing.T) {
	cfg := config.Default()
	svc := NewQAService(testStore(t), panicEmbedder{}, NewAnswerSynthesizer(&fakeChatter{answer: "x"}), NewLinkNormalizer(cfg.Links), cfg.Retrieval)
	require.NotPanics(t, func() {
		resp := svc.Answer(context.Background(), model.Query{Question: "q"})
		require.Equal(t, FallbackAnswer, resp.Answer)
	})
}

func TestAnswerMissingImageIsIgnored(t *testing.T) {
	chat := &fakeChatter{answer: "ok https://tds.s-anand.net/#/docker"}
	svc := newTestService(t, &fakeEmbedder{vec: []float32{1, 0, 0}}, chat)
	resp := svc.Answer(context.Background(), model.Query{
		Question: "What is Docker?",
		Image:    "file://" + filepath.Join(t.TempDir(), "nope.png"),
	})
	require.NotEqual(t, FallbackAnswer, resp.Answer)
	require.NotContains(t, chat.messages[1].Content, imageAnnotation)
}

func TestAnswerInlineImageAnnotated(t *testing.T) {
	chat := &fakeChatter{answer: "ok"}
	svc := newTestService(t, &fakeEmbedder{vec: []float32{1, 0, 0}}, chat)
	svc.Answer(context.Background(), model.Query{Question: "q", Image: "aGVsbG8="})
	require.Contains(t, chat.messages[1].Content, imageAnnotation)
}

func TestAnswerIsDeterministicOnTies(t *testing.T) {
	store, err := corpus.New(
		[]corpus.RawRecord{{Text: "content tie", Embedding: []float32{1, 0}, OriginalURL: "https://example.com/content"}},
		[]corpus.RawRecord{{Text: "forum tie", Embedding: []float32{2, 0}, URL: "https://example.com/forum"}},
	)
	require.NoError(t, err)
	cfg := config.Default()
	for i := 0; i < 5; i++ {
		chat := &fakeChatter{answer: "ok"}
		svc := NewQAService(store, &fakeEmbedder{vec: []float32{1, 0}}, NewAnswerSynthesizer(chat), NewLinkNormalizer(cfg.Links), cfg.Retrieval)
		resp := svc.Answer(context.Background(), model.Query{Question: "q"})
		require.Equal(t, "https://example.com/content", resp.Links[0].URL)
		require.Equal(t, "https://example.com/forum", resp.Links[1].URL)
		require.True(t, strings.HasPrefix(chat.messages[1].Content, userPromptHeader+"content tie\n\n---\n\nforum tie"))
	}
}
