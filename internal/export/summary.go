package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	openai "github.com/openai/openai-go"
)

const summarySystemPrompt = "You summarize chat conversations. Write one short paragraph describing what the conversation covered. Respond with the paragraph only."

// Summarizer produces an optional lead paragraph for the export using an
// OpenAI chat completion. The client reads its credential from the
// environment.
type Summarizer struct {
	client openai.Client
	model  openai.ChatModel
}

func NewSummarizer(model string) *Summarizer {
	return &Summarizer{
		client: openai.NewClient(),
		model:  openai.ChatModel(model),
	}
}

func (s *Summarizer) Summarize(ctx context.Context, conversation string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 50*time.Second)
	defer cancel()

	res, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: s.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(summarySystemPrompt),
			openai.UserMessage(conversation),
		},
		Temperature: openai.Float(0.3),
	})
	if err != nil {
		slog.Error("summary generation failed", "error", err)
		return "", fmt.Errorf("summary generation failed: %w", err)
	}

	if len(res.Choices) == 0 {
		return "", fmt.Errorf("summary generation returned no choices")
	}

	return res.Choices[0].Message.Content, nil
}
