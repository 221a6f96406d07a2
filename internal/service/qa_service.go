package service

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/xxxsen/common/logutil"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xxxsen/vta/internal/ai"
	"github.com/xxxsen/vta/internal/config"
	"github.com/xxxsen/vta/internal/corpus"
	"github.com/xxxsen/vta/internal/model"
	appErr "github.com/xxxsen/vta/internal/pkg/errors"
	"github.com/xxxsen/vta/internal/retrieval"
)

// FallbackAnswer is returned, with no links, whenever the pipeline fails.
const FallbackAnswer = "Sorry, something went wrong while processing your request."

var tracer = otel.Tracer("github.com/xxxsen/vta/internal/service")

type QAService struct {
	store      *corpus.Store
	embedder   ai.IEmbedder
	synth      *AnswerSynthesizer
	links      *LinkNormalizer
	perCorpusK int
	finalK     int
	maxContext int
}

func NewQAService(store *corpus.Store, embedder ai.IEmbedder, synth *AnswerSynthesizer, links *LinkNormalizer, cfg config.RetrievalConfig) *QAService {
	perCorpusK := cfg.PerCorpusK
	if perCorpusK <= 0 {
		perCorpusK = 3
	}
	finalK := cfg.FinalK
	if finalK <= 0 {
		finalK = 5
	}
	return &QAService{
		store:      store,
		embedder:   embedder,
		synth:      synth,
		links:      links,
		perCorpusK: perCorpusK,
		finalK:     finalK,
		maxContext: cfg.MaxContextChars,
	}
}

func Fallback() *model.AnswerResponse {
	return &model.AnswerResponse{Answer: FallbackAnswer, Links: []model.Link{}}
}

// Answer runs the whole pipeline for one question. It never fails: any
// error or panic is logged and turned into the fallback response.
func (s *QAService) Answer(ctx context.Context, q model.Query) *model.AnswerResponse {
	ctx, span := tracer.Start(ctx, "qa.answer")
	defer span.End()

	resp, err := s.answer(ctx, q)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logutil.GetLogger(ctx).Error("answer question failed, use fallback",
			zap.String("question", q.Question),
			zap.Bool("upstream", appErr.IsUpstream(err)),
			zap.Error(err),
		)
		return Fallback()
	}
	return resp
}

func (s *QAService) answer(ctx context.Context, q model.Query) (resp *model.AnswerResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v\n%s", appErr.ErrInternal, r, debug.Stack())
		}
	}()

	vec, err := s.embed(ctx, q.Question)
	if err != nil {
		return nil, err
	}
	matches, err := s.retrieve(ctx, vec)
	if err != nil {
		return nil, err
	}
	_, imagePresent := ResolveImage(ctx, q.Image)
	contextText := BuildContext(matches, imagePresent, s.maxContext)

	answer, err := s.synthesize(ctx, q.Question, contextText)
	if err != nil {
		return nil, err
	}
	links := s.links.BuildLinks(matches)
	return &model.AnswerResponse{
		Answer: EnsureCitation(answer, links),
		Links:  links,
	}, nil
}

func (s *QAService) embed(ctx context.Context, question string) ([]float32, error) {
	ctx, span := tracer.Start(ctx, "qa.embed", trace.WithAttributes(attribute.String("model", s.embedder.ModelName())))
	defer span.End()
	vec, err := s.embedder.Embed(ctx, question)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return vec, nil
}

func (s *QAService) retrieve(ctx context.Context, query []float32) ([]model.Match, error) {
	_, span := tracer.Start(ctx, "qa.retrieve")
	defer span.End()
	lists := make([][]model.Match, 0, len(model.Origins))
	for _, origin := range model.Origins {
		matches, err := retrieval.TopK(query, s.store.Corpus(origin), s.perCorpusK)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		lists = append(lists, matches)
	}
	merged := retrieval.MergeAndRerank(s.finalK, lists...)
	span.SetAttributes(attribute.Int("matches", len(merged)))
	return merged, nil
}

func (s *QAService) synthesize(ctx context.Context, question, contextText string) (string, error) {
	ctx, span := tracer.Start(ctx, "qa.synthesize", trace.WithAttributes(attribute.Int("context_chars", len(contextText))))
	defer span.End()
	answer, err := s.synth.Synthesize(ctx, question, contextText)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	return answer, nil
}
