package service

import (
	"context"
	"strings"

	"github.com/xxxsen/vta/internal/ai"
	"github.com/xxxsen/vta/internal/model"
)

const (
	systemPrompt = "You are a helpful teaching assistant for the Tools in Data Science course at IIT Madras. " +
		"Answer student questions based strictly on the provided context. " +
		"If possible, always include a relevant link from the context (e.g., a Discourse post or course page). " +
		"Use only the URLs present in the context."
	userPromptHeader = "Answer the following question using the given course material and discourse posts:\n\n"
)

// AnswerSynthesizer asks the chat model for an answer grounded in the
// retrieved context.
type AnswerSynthesizer struct {
	chat ai.IChatter
}

func NewAnswerSynthesizer(chat ai.IChatter) *AnswerSynthesizer {
	return &AnswerSynthesizer{chat: chat}
}

// Synthesize returns the trimmed answer. Failures are ErrUpstream.
func (s *AnswerSynthesizer) Synthesize(ctx context.Context, question, contextText string) (string, error) {
	answer, err := s.chat.Chat(ctx, buildMessages(question, contextText))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(answer), nil
}

func buildMessages(question, contextText string) []ai.Message {
	return []ai.Message{
		{Role: ai.RoleSystem, Content: systemPrompt},
		{Role: ai.RoleUser, Content: userPromptHeader + contextText + "\n\nQuestion: " + question},
	}
}

// EnsureCitation appends a source line for the top link when the answer
// does not already mention its URL.
func EnsureCitation(answer string, links []model.Link) string {
	if len(links) == 0 {
		return answer
	}
	top := links[0].URL
	if strings.Contains(answer, top) {
		return answer
	}
	return answer + "\n\n[Source](" + top + ")"
}
