package gemini

type InlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type Part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inlineData,omitempty"`
}

type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

type ThinkingConfig struct {
	ThinkingBudget int `json:"thinkingBudget"`
}

type PrebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName"`
}

type VoiceConfig struct {
	PrebuiltVoiceConfig *PrebuiltVoiceConfig `json:"prebuiltVoiceConfig,omitempty"`
}

type SpeechConfig struct {
	VoiceConfig *VoiceConfig `json:"voiceConfig,omitempty"`
}

type GenerationConfig struct {
	Temperature        *float64        `json:"temperature,omitempty"`
	ThinkingConfig     *ThinkingConfig `json:"thinkingConfig,omitempty"`
	ResponseModalities []string        `json:"responseModalities,omitempty"`
	SpeechConfig       *SpeechConfig   `json:"speechConfig,omitempty"`
}

type Tool struct {
	GoogleSearch *struct{} `json:"google_search,omitempty"`
}

type GenerateRequest struct {
	Contents          []Content         `json:"contents"`
	SystemInstruction *Content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *GenerationConfig `json:"generationConfig,omitempty"`
	Tools             []Tool            `json:"tools,omitempty"`
}

type Web struct {
	URI   string `json:"uri,omitempty"`
	Title string `json:"title,omitempty"`
}

type GroundingChunk struct {
	Web *Web `json:"web,omitempty"`
}

type GroundingMetadata struct {
	GroundingChunks []GroundingChunk `json:"groundingChunks,omitempty"`
}

type Candidate struct {
	Content           *Content           `json:"content,omitempty"`
	GroundingMetadata *GroundingMetadata `json:"groundingMetadata,omitempty"`
}

type GenerateResponse struct {
	Candidates []Candidate `json:"candidates"`
}

// Text concatenates the text parts of the first candidate.
func (r *GenerateResponse) Text() string {
	if len(r.Candidates) == 0 || r.Candidates[0].Content == nil {
		return ""
	}
	text := ""
	for _, part := range r.Candidates[0].Content.Parts {
		text += part.Text
	}
	return text
}

// Sources extracts the {title, uri} citation pairs from the grounding
// metadata of the first candidate, when present.
func (r *GenerateResponse) Sources() []Web {
	if len(r.Candidates) == 0 || r.Candidates[0].GroundingMetadata == nil {
		return nil
	}
	var sources []Web
	for _, chunk := range r.Candidates[0].GroundingMetadata.GroundingChunks {
		if chunk.Web != nil && chunk.Web.URI != "" {
			sources = append(sources, *chunk.Web)
		}
	}
	return sources
}
