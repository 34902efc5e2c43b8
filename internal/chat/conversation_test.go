package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"memochat-backend/internal/assembler"
	"memochat-backend/internal/blob"
	"memochat-backend/internal/config"
	"memochat-backend/internal/database"
	"memochat-backend/internal/engine"
	"memochat-backend/internal/store"
	"memochat-backend/pkg/api"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEngine struct {
	result engine.Result
	err    error

	turns []assembler.Turn
	cfg   assembler.RequestConfig

	// block, when non-nil, holds the call open until closed.
	block chan struct{}
}

func (e *stubEngine) Research(ctx context.Context, turns []assembler.Turn, cfg assembler.RequestConfig) (engine.Result, error) {
	e.turns = turns
	e.cfg = cfg
	if e.block != nil {
		<-e.block
	}
	return e.result, e.err
}

func newTestConversation(t *testing.T, eng engine.Engine) (*Conversation, *store.Store, blob.Provider) {
	db, err := database.NewTestDatabase()
	require.NoError(t, err)

	blobs, err := blob.NewLocalProvider(t.TempDir())
	require.NoError(t, err)

	st := store.NewStore(db)
	return NewConversation(st, blobs, eng, config.DefaultCatalog()), st, blobs
}

func TestSendMessagePersistsBothTurns(t *testing.T) {
	eng := &stubEngine{result: engine.Result{
		Text:    "the answer",
		Sources: []engine.Source{{Title: "Example", URI: "https://example.com"}},
	}}
	conv, st, _ := newTestConversation(t, eng)

	reply, err := conv.SendMessage(context.Background(), api.ChatRequest{Prompt: "a question"})
	require.NoError(t, err)

	assert.Equal(t, api.RoleModel, reply.Role)
	assert.Equal(t, "the answer", reply.Text)
	require.Len(t, reply.Sources, 1)
	assert.Equal(t, "https://example.com", reply.Sources[0].URI)

	messages := st.ListMessages(context.Background())
	require.Len(t, messages, 2)
	assert.Equal(t, api.RoleUser, messages[0].Role)
	assert.Equal(t, "a question", messages[0].Text)
	assert.Equal(t, api.RoleModel, messages[1].Role)
}

func TestSendMessageUsesVariantConfig(t *testing.T) {
	eng := &stubEngine{result: engine.Result{Text: "ok"}}
	conv, _, _ := newTestConversation(t, eng)

	_, err := conv.SendMessage(context.Background(), api.ChatRequest{Prompt: "q", Model: "deep", Grounding: true})
	require.NoError(t, err)

	assert.Equal(t, "gemini-2.5-pro", eng.cfg.Model)
	assert.Equal(t, 16384, eng.cfg.ThinkingBudget)
	assert.True(t, eng.cfg.Grounding)
}

func TestSendMessageUnknownModel(t *testing.T) {
	conv, st, _ := newTestConversation(t, &stubEngine{})

	_, err := conv.SendMessage(context.Background(), api.ChatRequest{Prompt: "q", Model: "nope"})
	assert.Error(t, err)
	assert.Empty(t, st.ListMessages(context.Background()))
}

func TestEngineFailureBecomesErrorReply(t *testing.T) {
	eng := &stubEngine{err: errors.New("remote api down")}
	conv, st, _ := newTestConversation(t, eng)

	reply, err := conv.SendMessage(context.Background(), api.ChatRequest{Prompt: "q"})
	require.NoError(t, err)
	assert.Equal(t, api.RoleModel, reply.Role)
	assert.Equal(t, errorReplyText, reply.Text)

	// Both the user turn and the synthetic error turn are in the history.
	messages := st.ListMessages(context.Background())
	require.Len(t, messages, 2)
	assert.Equal(t, errorReplyText, messages[1].Text)
}

func TestBusyRejectsConcurrentRequest(t *testing.T) {
	eng := &stubEngine{result: engine.Result{Text: "slow answer"}, block: make(chan struct{})}
	conv, _, _ := newTestConversation(t, eng)

	done := make(chan error, 1)
	go func() {
		_, err := conv.SendMessage(context.Background(), api.ChatRequest{Prompt: "first"})
		done <- err
	}()

	// Wait for the first request to reach the engine.
	for !conv.Busy() {
		time.Sleep(time.Millisecond)
	}

	_, err := conv.SendMessage(context.Background(), api.ChatRequest{Prompt: "second"})
	assert.ErrorIs(t, err, ErrBusy)

	close(eng.block)
	require.NoError(t, <-done)
	assert.False(t, conv.Busy())
}

func TestMemoryIncludedInTurns(t *testing.T) {
	eng := &stubEngine{result: engine.Result{Text: "ok"}}
	conv, st, blobs := newTestConversation(t, eng)
	ctx := context.Background()

	require.NoError(t, st.SaveDocument(ctx, &database.Document{
		ID: uuid.New(), Name: "notes.txt", Type: "text", Content: "remember this",
	}))

	require.NoError(t, blobs.PutObject(ctx, "img-key", []byte("imagebytes")))
	require.NoError(t, st.SaveDocument(ctx, &database.Document{
		ID: uuid.New(), Name: "scan.png", Type: "image", MimeType: "image/png", BlobKey: "img-key",
	}))

	_, err := conv.SendMessage(ctx, api.ChatRequest{Prompt: "what do you know"})
	require.NoError(t, err)

	require.Len(t, eng.turns, 1)
	parts := eng.turns[0].Parts
	require.Len(t, parts, 3)
	assert.Equal(t, "[KNOWLEDGE BASE DOCUMENT: notes.txt (text)]\nremember this", parts[0].Text)
	require.NotNil(t, parts[1].Inline)
	assert.Equal(t, "image/png", parts[1].Inline.MimeType)
	assert.Equal(t, "what do you know", parts[2].Text)
}

func TestHistoryReplayedOnNextTurn(t *testing.T) {
	eng := &stubEngine{result: engine.Result{Text: "second answer"}}
	conv, _, _ := newTestConversation(t, eng)
	ctx := context.Background()

	_, err := conv.SendMessage(ctx, api.ChatRequest{Prompt: "first question"})
	require.NoError(t, err)

	_, err = conv.SendMessage(ctx, api.ChatRequest{Prompt: "second question"})
	require.NoError(t, err)

	// First question, first answer, then the new user turn.
	require.Len(t, eng.turns, 3)
	assert.Equal(t, assembler.RoleUser, eng.turns[0].Role)
	assert.Equal(t, "first question", eng.turns[0].Parts[0].Text)
	assert.Equal(t, assembler.RoleModel, eng.turns[1].Role)
	assert.Equal(t, "second question", eng.turns[2].Parts[0].Text)
}

func TestClearHistory(t *testing.T) {
	eng := &stubEngine{result: engine.Result{Text: "ok"}}
	conv, st, _ := newTestConversation(t, eng)
	ctx := context.Background()

	_, err := conv.SendMessage(ctx, api.ChatRequest{Prompt: "q"})
	require.NoError(t, err)
	require.NotEmpty(t, st.ListMessages(ctx))

	require.NoError(t, conv.ClearHistory(ctx))
	assert.Empty(t, st.ListMessages(ctx))
}
