// Package assembler builds the ordered turn list sent to the remote model for
// one user submission: prior conversation replayed in order, the full document
// memory, and the new prompt with its attachments.
package assembler

import (
	"fmt"

	"memochat-backend/internal/config"
	"memochat-backend/internal/docparse"
)

const (
	RoleUser  = "user"
	RoleModel = "model"
)

// PlaceholderText is substituted whenever a turn would otherwise have no
// content parts. The vendor API rejects empty turns, and history replay
// requires valid role alternation.
const PlaceholderText = "Analyze the current context."

type Inline struct {
	MimeType string
	Data     string
}

type Part struct {
	Text   string
	Inline *Inline
}

type Turn struct {
	Role  string
	Parts []Part
}

// Doc is one knowledge base document as seen by the assembler. Textual types
// carry Text; binary types carry Data as a base64 payload, optionally with a
// data URL prefix.
type Doc struct {
	Name     string
	Type     string
	MimeType string
	Text     string
	Data     string
}

type Attachment struct {
	MimeType string
	Data     string
}

type HistoryMessage struct {
	Role        string
	Text        string
	Attachments []Attachment
}

// RequestConfig carries the per-request parameters that accompany the turn
// list: system instruction wording and thinking budget vary by model variant,
// the sampling temperature is fixed.
type RequestConfig struct {
	Model             string
	SystemInstruction string
	Temperature       float64
	ThinkingBudget    int
	Grounding         bool
}

func BuildRequestConfig(variant config.ModelVariant, temperature float64, grounding bool) RequestConfig {
	return RequestConfig{
		Model:             variant.EngineModel,
		SystemInstruction: variant.SystemInstruction,
		Temperature:       temperature,
		ThinkingBudget:    variant.ThinkingBudget,
		Grounding:         grounding,
	}
}

// BuildTurns produces the full ordered turn list for one submission. Prior
// messages are replayed in order, then a new user turn is built from the
// memory set, the prompt, and the per-turn attachments. Memory is everything
// uploaded so far, resent in full on every turn; there is no retrieval or
// ranking.
func BuildTurns(history []HistoryMessage, docs []Doc, prompt string, attachments []Attachment) []Turn {
	turns := make([]Turn, 0, len(history)+1)

	for _, msg := range history {
		turn := Turn{Role: msg.Role}
		if msg.Text != "" {
			turn.Parts = append(turn.Parts, Part{Text: msg.Text})
		}
		for _, att := range msg.Attachments {
			turn.Parts = append(turn.Parts, inlinePart(att.MimeType, att.Data))
		}
		if len(turn.Parts) == 0 {
			turn.Parts = []Part{{Text: PlaceholderText}}
		}
		turns = append(turns, turn)
	}

	newTurn := Turn{Role: RoleUser}

	// Textual documents first, each prefixed with an identifying header so the
	// model can attribute content, then binary documents, both in insertion
	// order.
	for _, doc := range docs {
		if docparse.IsBinaryType(doc.Type) {
			continue
		}
		header := fmt.Sprintf("[KNOWLEDGE BASE DOCUMENT: %s (%s)]\n%s", doc.Name, doc.Type, doc.Text)
		newTurn.Parts = append(newTurn.Parts, Part{Text: header})
	}

	for _, doc := range docs {
		if !docparse.IsBinaryType(doc.Type) {
			continue
		}
		mimeType, data := docparse.SplitDataURL(doc.Data)
		if mimeType == "" {
			mimeType = doc.MimeType
		}
		newTurn.Parts = append(newTurn.Parts, Part{Inline: &Inline{
			MimeType: mimeType,
			Data:     docparse.NormalizeBase64(data),
		}})
	}

	if prompt != "" {
		newTurn.Parts = append(newTurn.Parts, Part{Text: prompt})
	}

	for _, att := range attachments {
		newTurn.Parts = append(newTurn.Parts, inlinePart(att.MimeType, att.Data))
	}

	if len(newTurn.Parts) == 0 {
		newTurn.Parts = []Part{{Text: PlaceholderText}}
	}

	return append(turns, newTurn)
}

func inlinePart(mimeType, data string) Part {
	urlMime, payload := docparse.SplitDataURL(data)
	if urlMime != "" {
		mimeType = urlMime
	}
	return Part{Inline: &Inline{MimeType: mimeType, Data: docparse.NormalizeBase64(payload)}}
}
