package engine

import (
	"context"
	"fmt"

	"memochat-backend/internal/assembler"
	"memochat-backend/internal/gemini"
)

type GeminiEngine struct {
	client *gemini.Client
}

var _ Engine = (*GeminiEngine)(nil)

func NewGeminiEngine(client *gemini.Client) *GeminiEngine {
	return &GeminiEngine{client: client}
}

func (e *GeminiEngine) Research(ctx context.Context, turns []assembler.Turn, cfg assembler.RequestConfig) (Result, error) {
	req := &gemini.GenerateRequest{
		Contents: convertTurns(turns),
		SystemInstruction: &gemini.Content{
			Parts: []gemini.Part{{Text: cfg.SystemInstruction}},
		},
		GenerationConfig: &gemini.GenerationConfig{
			Temperature:    &cfg.Temperature,
			ThinkingConfig: &gemini.ThinkingConfig{ThinkingBudget: cfg.ThinkingBudget},
		},
	}

	if cfg.Grounding {
		req.Tools = []gemini.Tool{{GoogleSearch: &struct{}{}}}
	}

	resp, err := e.client.GenerateContent(ctx, cfg.Model, req)
	if err != nil {
		return Result{}, fmt.Errorf("research call failed: %w", err)
	}

	result := Result{Text: resp.Text()}
	for _, web := range resp.Sources() {
		title := web.Title
		if title == "" {
			title = web.URI
		}
		result.Sources = append(result.Sources, Source{Title: title, URI: web.URI})
	}

	return result, nil
}

func convertTurns(turns []assembler.Turn) []gemini.Content {
	contents := make([]gemini.Content, 0, len(turns))
	for _, turn := range turns {
		content := gemini.Content{Role: turn.Role}
		for _, part := range turn.Parts {
			if part.Inline != nil {
				content.Parts = append(content.Parts, gemini.Part{InlineData: &gemini.InlineData{
					MimeType: part.Inline.MimeType,
					Data:     part.Inline.Data,
				}})
			} else {
				content.Parts = append(content.Parts, gemini.Part{Text: part.Text})
			}
		}
		contents = append(contents, content)
	}
	return contents
}
