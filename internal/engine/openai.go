package engine

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"

	"memochat-backend/internal/assembler"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// OpenAIEngine is a fallback for deployments without a Gemini credential. It
// speaks to any OpenAI-compatible endpoint. Grounding and thinking budgets
// are not supported and are ignored.
type OpenAIEngine struct {
	client *openai.LLM
}

var _ Engine = (*OpenAIEngine)(nil)

func NewOpenAIEngine(apiKey, model string) (*OpenAIEngine, error) {
	client, err := openai.New(openai.WithToken(apiKey), openai.WithModel(model))
	if err != nil {
		return nil, fmt.Errorf("could not create OpenAI client: %w", err)
	}

	return &OpenAIEngine{client: client}, nil
}

func (e *OpenAIEngine) Research(ctx context.Context, turns []assembler.Turn, cfg assembler.RequestConfig) (Result, error) {
	if cfg.Grounding {
		slog.Warn("search grounding is not supported by the openai engine, ignoring")
	}

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, cfg.SystemInstruction),
	}

	for _, turn := range turns {
		role := llms.ChatMessageTypeHuman
		if turn.Role == assembler.RoleModel {
			role = llms.ChatMessageTypeAI
		}

		msg := llms.MessageContent{Role: role}
		for _, part := range turn.Parts {
			if part.Inline != nil {
				data, err := base64.StdEncoding.DecodeString(part.Inline.Data)
				if err != nil {
					return Result{}, fmt.Errorf("invalid inline part payload: %w", err)
				}
				msg.Parts = append(msg.Parts, llms.BinaryPart(part.Inline.MimeType, data))
			} else {
				msg.Parts = append(msg.Parts, llms.TextPart(part.Text))
			}
		}
		messages = append(messages, msg)
	}

	resp, err := e.client.GenerateContent(ctx, messages, llms.WithTemperature(cfg.Temperature))
	if err != nil {
		return Result{}, fmt.Errorf("research call failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return Result{}, fmt.Errorf("research call returned no choices")
	}

	return Result{Text: resp.Choices[0].Content}, nil
}
