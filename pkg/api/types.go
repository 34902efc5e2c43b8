package api

import (
	"time"

	"github.com/google/uuid"
)

const (
	DocTypeText     = "text"
	DocTypeJSON     = "json"
	DocTypeMarkdown = "markdown"
	DocTypeCSV      = "csv"
	DocTypeImage    = "image"
	DocTypePDF      = "pdf"
)

const (
	RoleUser  = "user"
	RoleModel = "model"
)

type Document struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	MimeType  string    `json:"mime_type,omitempty"`
	Content   string    `json:"content,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type UploadDocumentRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
	// Content is raw text for textual document types, or a data URL
	// (data:<mime>;base64,<payload>) for binary types.
	Content  string `json:"content"`
	MimeType string `json:"mime_type,omitempty"`
}

type ListDocumentsResponse struct {
	Documents []Document `json:"documents"`
}

type Source struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

type Attachment struct {
	MimeType string `json:"mime_type"`
	// Data is base64 encoded. A data URL prefix is accepted and stripped.
	Data string `json:"data"`
}

type Message struct {
	ID          uuid.UUID    `json:"id"`
	Role        string       `json:"role"`
	Text        string       `json:"text"`
	Sources     []Source     `json:"sources,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
	Timestamp   time.Time    `json:"timestamp"`
}

type ChatRequest struct {
	Prompt      string       `json:"prompt"`
	Model       string       `json:"model,omitempty"`
	Grounding   bool         `json:"grounding,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

type ChatResponse struct {
	Reply Message `json:"reply"`
}

type ListMessagesResponse struct {
	Messages []Message `json:"messages"`
}

type Preferences struct {
	Model     string `json:"model"`
	Theme     string `json:"theme"`
	AutoSpeak bool   `json:"auto_speak"`
}

type ModelInfo struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type ListModelsResponse struct {
	Models []ModelInfo `json:"models"`
}

type StopRecordingRequest struct {
	// Audio is the captured payload, base64 encoded.
	Audio    string `json:"audio"`
	MimeType string `json:"mime_type"`
	// Attachments are forwarded to the chat turn built from the
	// transcription, e.g. a pending camera snapshot.
	Attachments []Attachment `json:"attachments,omitempty"`
}

type TranscriptionResponse struct {
	Text  string  `json:"text"`
	Reply Message `json:"reply"`
}

type SpeakRequest struct {
	MessageID uuid.UUID `json:"message_id"`
}

type AudioStatus struct {
	State             string    `json:"state"`
	Paused            bool      `json:"paused"`
	SpeakingMessageID uuid.UUID `json:"speaking_message_id,omitempty"`
}
