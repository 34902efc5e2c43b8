package chat

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"memochat-backend/internal/assembler"
	"memochat-backend/internal/blob"
	"memochat-backend/internal/config"
	"memochat-backend/internal/engine"
	"memochat-backend/internal/store"
	"memochat-backend/pkg/api"
)

// ErrBusy is returned when a research request is already in flight. There is
// no queueing: the caller waits for the active request to resolve.
var ErrBusy = errors.New("a research request is already in flight")

const errorReplyText = "Sorry, something went wrong while processing your request. Please try again."

// Conversation owns the single chat thread: it persists the user turn,
// assembles the full request from memory and history, calls the engine once,
// and persists the reply. An engine failure is converted into a synthetic
// model-authored error message rather than propagated.
type Conversation struct {
	mu    sync.Mutex
	busy  bool
	store *store.Store
	blobs blob.Provider
	eng   engine.Engine
	cat   config.Catalog
}

func NewConversation(st *store.Store, blobs blob.Provider, eng engine.Engine, cat config.Catalog) *Conversation {
	return &Conversation{store: st, blobs: blobs, eng: eng, cat: cat}
}

// Busy reports whether a research request is in flight. The audio pipeline
// uses this to refuse new recordings while a response is pending.
func (c *Conversation) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

func (c *Conversation) acquire() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return ErrBusy
	}
	c.busy = true
	return nil
}

func (c *Conversation) release() {
	c.mu.Lock()
	c.busy = false
	c.mu.Unlock()
}

// SendMessage runs one full turn. The returned message is the model reply, or
// the synthetic error turn if the remote call failed. No retry, no client-side
// timeout: the call resolves or rejects according to the remote API.
func (c *Conversation) SendMessage(ctx context.Context, req api.ChatRequest) (api.Message, error) {
	if err := c.acquire(); err != nil {
		return api.Message{}, err
	}
	defer c.release()

	variant, err := c.cat.Variant(req.Model)
	if err != nil {
		return api.Message{}, err
	}

	history := c.history(ctx)

	userMsg, err := newDBMessage(api.RoleUser, req.Prompt, nil, req.Attachments)
	if err != nil {
		return api.Message{}, fmt.Errorf("failed to encode user message: %w", err)
	}
	if err := c.store.SaveMessage(ctx, userMsg); err != nil {
		return api.Message{}, fmt.Errorf("failed to persist user message: %w", err)
	}

	turns := assembler.BuildTurns(history, c.memory(ctx), req.Prompt, toAssemblerAttachments(req.Attachments))
	cfg := assembler.BuildRequestConfig(variant, c.cat.Temperature, req.Grounding)

	result, err := c.eng.Research(ctx, turns, cfg)
	if err != nil {
		slog.Error("research call failed", "model", variant.ID, "error", err)
		return c.saveReply(ctx, errorReplyText, nil)
	}

	sources := make([]api.Source, 0, len(result.Sources))
	for _, src := range result.Sources {
		sources = append(sources, api.Source{Title: src.Title, URI: src.URI})
	}

	return c.saveReply(ctx, result.Text, sources)
}

func (c *Conversation) saveReply(ctx context.Context, text string, sources []api.Source) (api.Message, error) {
	reply, err := newDBMessage(api.RoleModel, text, sources, nil)
	if err != nil {
		return api.Message{}, fmt.Errorf("failed to encode reply: %w", err)
	}
	if err := c.store.SaveMessage(ctx, reply); err != nil {
		return api.Message{}, fmt.Errorf("failed to persist reply: %w", err)
	}
	return ToAPIMessage(*reply), nil
}

// history converts the persisted conversation into assembler input, in
// chronological order.
func (c *Conversation) history(ctx context.Context) []assembler.HistoryMessage {
	messages := c.store.ListMessages(ctx)

	history := make([]assembler.HistoryMessage, 0, len(messages))
	for _, msg := range messages {
		entry := assembler.HistoryMessage{Role: msg.Role, Text: msg.Text}
		if len(msg.Attachments) > 0 {
			var attachments []api.Attachment
			if err := json.Unmarshal(msg.Attachments, &attachments); err == nil {
				entry.Attachments = toAssemblerAttachments(attachments)
			}
		}
		history = append(history, entry)
	}
	return history
}

// memory loads the full knowledge base. Binary payloads come from the blob
// store; a payload that cannot be loaded is skipped with a log line so one
// bad document does not block the turn.
func (c *Conversation) memory(ctx context.Context) []assembler.Doc {
	documents := c.store.ListDocuments(ctx)

	docs := make([]assembler.Doc, 0, len(documents))
	for _, doc := range documents {
		entry := assembler.Doc{
			Name:     doc.Name,
			Type:     doc.Type,
			MimeType: doc.MimeType,
			Text:     doc.Content,
		}
		if doc.BlobKey != "" {
			data, err := c.blobs.GetObject(ctx, doc.BlobKey)
			if err != nil {
				slog.Error("failed to load document payload, skipping", "document", doc.Name, "error", err)
				continue
			}
			entry.Data = base64.StdEncoding.EncodeToString(data)
		}
		docs = append(docs, entry)
	}
	return docs
}

func (c *Conversation) ClearHistory(ctx context.Context) error {
	return c.store.ClearMessages(ctx)
}

func toAssemblerAttachments(attachments []api.Attachment) []assembler.Attachment {
	out := make([]assembler.Attachment, 0, len(attachments))
	for _, att := range attachments {
		out = append(out, assembler.Attachment{MimeType: att.MimeType, Data: att.Data})
	}
	return out
}
