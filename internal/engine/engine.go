// Package engine abstracts the remote research call. The primary
// implementation talks to the Gemini REST API and supports grounding and
// thinking budgets; an OpenAI-compatible fallback covers deployments without
// a Gemini credential.
package engine

import (
	"context"

	"memochat-backend/internal/assembler"
)

type Source struct {
	Title string
	URI   string
}

type Result struct {
	Text    string
	Sources []Source
}

type Engine interface {
	Research(ctx context.Context, turns []assembler.Turn, cfg assembler.RequestConfig) (Result, error)
}
