package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"memochat-backend/internal/audio"
	"memochat-backend/internal/blob"
	"memochat-backend/internal/chat"
	"memochat-backend/internal/config"
	"memochat-backend/internal/database"
	"memochat-backend/internal/docparse"
	"memochat-backend/internal/export"
	"memochat-backend/internal/gemini"
	"memochat-backend/internal/store"
	"memochat-backend/pkg/api"
)

type Summarizer interface {
	Summarize(ctx context.Context, conversation string) (string, error)
}

type Service struct {
	store      *store.Store
	blobs      blob.Provider
	conv       *chat.Conversation
	pipeline   *audio.Pipeline
	playback   *audio.BufferPlayback
	tracker    *audio.Tracker
	catalog    config.Catalog
	summarizer Summarizer
}

func NewService(st *store.Store, blobs blob.Provider, conv *chat.Conversation, pipeline *audio.Pipeline, playback *audio.BufferPlayback, tracker *audio.Tracker, catalog config.Catalog, summarizer Summarizer) *Service {
	return &Service{
		store:      st,
		blobs:      blobs,
		conv:       conv,
		pipeline:   pipeline,
		playback:   playback,
		tracker:    tracker,
		catalog:    catalog,
		summarizer: summarizer,
	}
}

func (s *Service) AddRoutes(r chi.Router) {
	r.Get("/health", RestHandler(func(r *http.Request) (any, error) { return nil, nil }))
	r.Get("/models", RestHandler(s.ListModels))

	r.Route("/documents", func(r chi.Router) {
		r.Get("/", RestHandler(s.ListDocuments))
		r.Post("/", RestHandler(s.UploadDocument))
		r.Get("/{document_id}", RestHandler(s.GetDocument))
		r.Delete("/{document_id}", RestHandler(s.DeleteDocument))
		r.Get("/{document_id}/raw", s.DownloadDocument)
	})

	r.Route("/messages", func(r chi.Router) {
		r.Get("/", RestHandler(s.ListMessages))
		r.Delete("/", RestHandler(s.ClearMessages))
	})

	r.Post("/chat", RestHandler(s.SendMessage))

	r.Route("/preferences", func(r chi.Router) {
		r.Get("/", RestHandler(s.GetPreferences))
		r.Put("/", RestHandler(s.SetPreferences))
	})

	r.Get("/export", s.Export)

	r.Route("/audio", func(r chi.Router) {
		r.Get("/status", RestHandler(s.AudioStatus))
		r.Post("/recording/start", RestHandler(s.StartRecording))
		r.Post("/recording/stop", RestHandler(s.StopRecording))
		r.Post("/speech", RestHandler(s.Speak))
		r.Post("/speech/pause", RestHandler(s.PauseSpeech))
		r.Post("/speech/resume", RestHandler(s.ResumeSpeech))
		r.Post("/speech/stop", RestHandler(s.StopSpeech))
		r.Post("/speech/complete", RestHandler(s.CompleteSpeech))
		r.Get("/speech/output", s.SpeechOutput)
	})
}

func (s *Service) ListModels(r *http.Request) (any, error) {
	resp := api.ListModelsResponse{}
	for _, model := range s.catalog.Models {
		resp.Models = append(resp.Models, api.ModelInfo{ID: model.ID, DisplayName: model.DisplayName})
	}
	return resp, nil
}

func (s *Service) ListDocuments(r *http.Request) (any, error) {
	docs := s.store.ListDocuments(r.Context())

	resp := api.ListDocumentsResponse{Documents: make([]api.Document, 0, len(docs))}
	for _, doc := range docs {
		resp.Documents = append(resp.Documents, toAPIDocument(doc))
	}
	return resp, nil
}

func (s *Service) UploadDocument(r *http.Request) (any, error) {
	req, err := ParseRequest[api.UploadDocumentRequest](r)
	if err != nil {
		return nil, err
	}

	if req.Name == "" {
		return nil, CodedErrorf(http.StatusBadRequest, "document name is required")
	}

	docType := docparse.SniffType(req.Name, req.Type, req.MimeType)

	doc := database.Document{
		ID:        uuid.New(),
		Name:      req.Name,
		Type:      docType,
		MimeType:  req.MimeType,
		Timestamp: time.Now(),
	}

	if docparse.IsBinaryType(docType) {
		mimeType, payload, err := docparse.ParseDataURL(req.Content)
		if err != nil {
			return nil, CodedErrorf(http.StatusBadRequest, "invalid document payload: %v", err)
		}
		if mimeType != "" {
			doc.MimeType = mimeType
		}

		doc.BlobKey = doc.ID.String()
		if err := s.blobs.PutObject(r.Context(), doc.BlobKey, payload); err != nil {
			slog.Error("failed to store document payload", "document", doc.Name, "error", err)
			return nil, CodedErrorf(http.StatusInternalServerError, "failed to store document payload")
		}
	} else {
		doc.Content = req.Content
	}

	if err := s.store.SaveDocument(r.Context(), &doc); err != nil {
		slog.Error("failed to save document", "document", doc.Name, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to save document")
	}

	return toAPIDocument(doc), nil
}

func (s *Service) GetDocument(r *http.Request) (any, error) {
	id, err := URLParamUUID(r, "document_id")
	if err != nil {
		return nil, err
	}

	doc, err := s.store.GetDocument(r.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, CodedErrorf(http.StatusNotFound, "document not found")
		}
		return nil, CodedErrorf(http.StatusInternalServerError, "error retrieving document")
	}

	return toAPIDocument(doc), nil
}

func (s *Service) DeleteDocument(r *http.Request) (any, error) {
	id, err := URLParamUUID(r, "document_id")
	if err != nil {
		return nil, err
	}

	doc, err := s.store.GetDocument(r.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, CodedErrorf(http.StatusNotFound, "document not found")
		}
		return nil, CodedErrorf(http.StatusInternalServerError, "error retrieving document")
	}

	if doc.BlobKey != "" {
		if err := s.blobs.DeleteObject(r.Context(), doc.BlobKey); err != nil {
			slog.Error("failed to delete document payload", "document", doc.Name, "error", err)
		}
	}

	if err := s.store.DeleteDocument(r.Context(), id); err != nil {
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to delete document")
	}

	return nil, nil
}

func (s *Service) DownloadDocument(w http.ResponseWriter, r *http.Request) {
	RestDownloadHandler(func(r *http.Request) (*Download, error) {
		id, err := URLParamUUID(r, "document_id")
		if err != nil {
			return nil, err
		}

		doc, err := s.store.GetDocument(r.Context(), id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, CodedErrorf(http.StatusNotFound, "document not found")
			}
			return nil, CodedErrorf(http.StatusInternalServerError, "error retrieving document")
		}

		if doc.BlobKey == "" {
			return &Download{Name: doc.Name, ContentType: "text/plain; charset=utf-8", Data: []byte(doc.Content)}, nil
		}

		payload, err := s.blobs.GetObject(r.Context(), doc.BlobKey)
		if err != nil {
			slog.Error("failed to load document payload", "document", doc.Name, "error", err)
			return nil, CodedErrorf(http.StatusInternalServerError, "failed to load document payload")
		}

		contentType := doc.MimeType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		return &Download{Name: doc.Name, ContentType: contentType, Data: payload}, nil
	})(w, r)
}

func (s *Service) ListMessages(r *http.Request) (any, error) {
	messages := s.store.ListMessages(r.Context())

	resp := api.ListMessagesResponse{Messages: make([]api.Message, 0, len(messages))}
	for _, msg := range messages {
		resp.Messages = append(resp.Messages, chat.ToAPIMessage(msg))
	}
	return resp, nil
}

// ClearMessages removes the whole conversation, stops any active playback,
// and resets the auto-speak tracking.
func (s *Service) ClearMessages(r *http.Request) (any, error) {
	if err := s.conv.ClearHistory(r.Context()); err != nil {
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to clear history")
	}

	s.pipeline.StopSpeech()
	s.tracker.Reset()

	return nil, nil
}

func (s *Service) SendMessage(r *http.Request) (any, error) {
	req, err := ParseRequest[api.ChatRequest](r)
	if err != nil {
		return nil, err
	}

	if _, err := s.catalog.Variant(req.Model); err != nil {
		return nil, CodedError(http.StatusBadRequest, err)
	}

	reply, err := s.conv.SendMessage(r.Context(), req)
	if err != nil {
		if errors.Is(err, chat.ErrBusy) {
			return nil, CodedError(http.StatusConflict, err)
		}
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to process message: %v", err)
	}

	s.maybeAutoSpeak(r.Context(), reply)

	return api.ChatResponse{Reply: reply}, nil
}

func (s *Service) GetPreferences(r *http.Request) (any, error) {
	prefs := s.store.LoadPreferences(r.Context(), store.DefaultPreferences(s.catalog.DefaultModel))
	return api.Preferences{Model: prefs.Model, Theme: prefs.Theme, AutoSpeak: prefs.AutoSpeak}, nil
}

func (s *Service) SetPreferences(r *http.Request) (any, error) {
	req, err := ParseRequest[api.Preferences](r)
	if err != nil {
		return nil, err
	}

	if _, err := s.catalog.Variant(req.Model); err != nil {
		return nil, CodedError(http.StatusBadRequest, err)
	}

	prefs := store.Preferences{Model: req.Model, Theme: req.Theme, AutoSpeak: req.AutoSpeak}
	if err := s.store.SavePreferences(r.Context(), prefs); err != nil {
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to save preferences")
	}

	return req, nil
}

type exportParams struct {
	// Summary controls whether the export opens with a generated recap. It
	// only takes effect when a summarizer is configured.
	Summary bool `schema:"summary"`
}

func (s *Service) Export(w http.ResponseWriter, r *http.Request) {
	RestDownloadHandler(func(r *http.Request) (*Download, error) {
		params, err := ParseRequestQueryParams[exportParams](r)
		if err != nil {
			return nil, err
		}

		summarizer := s.summarizer
		if !params.Summary {
			summarizer = nil
		}

		markdown := BuildExport(r.Context(), s.store, s.blobs, summarizer)
		return &Download{
			Name:        "conversation-export.md",
			ContentType: "text/markdown; charset=utf-8",
			Data:        []byte(markdown),
		}, nil
	})(w, r)
}

func (s *Service) AudioStatus(r *http.Request) (any, error) {
	status := s.pipeline.Status()
	return api.AudioStatus{
		State:             string(status.State),
		Paused:            status.Paused,
		SpeakingMessageID: status.SpeakingMessageID,
	}, nil
}

func (s *Service) StartRecording(r *http.Request) (any, error) {
	if err := s.pipeline.StartRecording(); err != nil {
		return nil, CodedError(http.StatusConflict, err)
	}
	return nil, nil
}

// StopRecording finalizes the capture, transcribes the payload, and submits
// the transcription as a new user message, carrying any pending attachment.
func (s *Service) StopRecording(r *http.Request) (any, error) {
	req, err := ParseRequest[api.StopRecordingRequest](r)
	if err != nil {
		return nil, err
	}

	mimeType, payload, err := docparse.ParseDataURL(req.Audio)
	if err != nil {
		return nil, CodedErrorf(http.StatusBadRequest, "invalid audio payload: %v", err)
	}
	if mimeType == "" {
		mimeType = req.MimeType
	}

	text, err := s.pipeline.StopRecording(r.Context(), mimeType, payload)
	if err != nil {
		if errors.Is(err, audio.ErrNotRecording) {
			return nil, CodedError(http.StatusConflict, err)
		}
		return nil, CodedErrorf(http.StatusInternalServerError, "transcription failed")
	}

	prefs := s.store.LoadPreferences(r.Context(), store.DefaultPreferences(s.catalog.DefaultModel))

	reply, err := s.conv.SendMessage(r.Context(), api.ChatRequest{
		Prompt:      text,
		Model:       prefs.Model,
		Attachments: req.Attachments,
	})
	if err != nil {
		if errors.Is(err, chat.ErrBusy) {
			return nil, CodedError(http.StatusConflict, err)
		}
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to process message: %v", err)
	}

	s.maybeAutoSpeak(r.Context(), reply)

	return api.TranscriptionResponse{Text: text, Reply: reply}, nil
}

func (s *Service) Speak(r *http.Request) (any, error) {
	req, err := ParseRequest[api.SpeakRequest](r)
	if err != nil {
		return nil, err
	}

	msg, err := s.store.GetMessage(r.Context(), req.MessageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, CodedErrorf(http.StatusNotFound, "message not found")
		}
		return nil, CodedErrorf(http.StatusInternalServerError, "error retrieving message")
	}

	if err := s.pipeline.Speak(r.Context(), msg.ID, msg.Text); err != nil {
		if errors.Is(err, audio.ErrCaptureBusy) {
			return nil, CodedError(http.StatusConflict, err)
		}
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to speak message")
	}

	return s.AudioStatus(r)
}

func (s *Service) PauseSpeech(r *http.Request) (any, error) {
	if err := s.pipeline.PauseSpeech(); err != nil {
		return nil, CodedError(http.StatusConflict, err)
	}
	return s.AudioStatus(r)
}

func (s *Service) ResumeSpeech(r *http.Request) (any, error) {
	if err := s.pipeline.ResumeSpeech(); err != nil {
		return nil, CodedError(http.StatusConflict, err)
	}
	return s.AudioStatus(r)
}

func (s *Service) StopSpeech(r *http.Request) (any, error) {
	s.pipeline.StopSpeech()
	return s.AudioStatus(r)
}

func (s *Service) CompleteSpeech(r *http.Request) (any, error) {
	req, err := ParseRequest[api.SpeakRequest](r)
	if err != nil {
		return nil, err
	}
	s.pipeline.CompleteSpeech(req.MessageID)
	return s.AudioStatus(r)
}

func (s *Service) SpeechOutput(w http.ResponseWriter, r *http.Request) {
	pcm := s.playback.Buffered()
	if pcm == nil {
		http.Error(w, "no active playback", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	if _, err := w.Write(audio.EncodeWAV(pcm, gemini.SpeechSampleRate)); err != nil {
		slog.Error("error writing speech output", "error", err)
	}
}

// maybeAutoSpeak speaks a new model reply when the preference is enabled.
// Synthesis failures are logged only; the chat turn already succeeded.
func (s *Service) maybeAutoSpeak(ctx context.Context, reply api.Message) {
	prefs := s.store.LoadPreferences(ctx, store.DefaultPreferences(s.catalog.DefaultModel))

	if !s.tracker.ShouldSpeak(reply.ID, prefs.AutoSpeak) {
		return
	}

	if err := s.pipeline.Speak(ctx, reply.ID, reply.Text); err != nil {
		slog.Error("auto-speak failed", "message_id", reply.ID, "error", err)
	}
}

func toAPIDocument(doc database.Document) api.Document {
	out := api.Document{
		ID:        doc.ID,
		Name:      doc.Name,
		Type:      doc.Type,
		MimeType:  doc.MimeType,
		Timestamp: doc.Timestamp,
	}
	if doc.BlobKey == "" {
		out.Content = doc.Content
	}
	return out
}

// BuildExport assembles the Markdown export from the current store contents.
// The summary paragraph is best-effort: a summarizer failure degrades to an
// export without one.
func BuildExport(ctx context.Context, st *store.Store, blobs blob.Provider, summarizer Summarizer) string {
	documents := st.ListDocuments(ctx)

	docs := make([]export.DocEntry, 0, len(documents))
	for _, doc := range documents {
		entry := export.DocEntry{Name: doc.Name, Type: doc.Type, Text: doc.Content}
		if doc.BlobKey != "" {
			payload, err := blobs.GetObject(ctx, doc.BlobKey)
			if err != nil {
				slog.Error("failed to load document payload for export", "document", doc.Name, "error", err)
			}
			entry.Payload = payload
		}
		docs = append(docs, entry)
	}

	stored := st.ListMessages(ctx)
	messages := make([]api.Message, 0, len(stored))
	for _, msg := range stored {
		messages = append(messages, chat.ToAPIMessage(msg))
	}

	summary := ""
	if summarizer != nil && len(messages) > 0 {
		var b []byte
		for _, msg := range messages {
			b = append(b, []byte(msg.Role+": "+msg.Text+"\n")...)
		}
		if s, err := summarizer.Summarize(ctx, string(b)); err == nil {
			summary = s
		}
	}

	return export.BuildMarkdown(docs, messages, summary)
}
