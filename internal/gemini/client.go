package gemini

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/go-resty/resty/v2"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// SpeechSampleRate is the fixed sample rate of synthesized audio, in Hz. The
// TTS endpoint returns raw 16-bit PCM samples at this rate.
const SpeechSampleRate = 24000

const transcribeInstruction = "Return only the verbatim transcription of the audio. Do not add any commentary, punctuation corrections, or formatting."

type Client struct {
	client *resty.Client
}

func NewClient(apiKey string) *Client {
	return &Client{
		client: resty.New().
			SetBaseURL(defaultBaseURL).
			SetHeader("x-goog-api-key", apiKey),
	}
}

// NewClientWithBaseURL is used by tests to point the client at a stub server.
func NewClientWithBaseURL(apiKey, baseURL string) *Client {
	c := NewClient(apiKey)
	c.client.SetBaseURL(baseURL)
	return c
}

func (c *Client) GenerateContent(ctx context.Context, model string, req *GenerateRequest) (*GenerateResponse, error) {
	var resp GenerateResponse

	res, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		SetResult(&resp).
		Post(fmt.Sprintf("/models/%s:generateContent", model))
	if err != nil {
		return nil, fmt.Errorf("generate content request failed: %w", err)
	}

	if !res.IsSuccess() {
		slog.Error("model api returned error", "model", model, "status_code", res.StatusCode(), "body", res.String())
		return nil, fmt.Errorf("model api returned status %d", res.StatusCode())
	}

	return &resp, nil
}

// Transcribe sends a single inline audio payload with a fixed instruction to
// return only the verbatim transcription.
func (c *Client) Transcribe(ctx context.Context, model, mimeType string, audio []byte) (string, error) {
	req := &GenerateRequest{
		Contents: []Content{{
			Role: "user",
			Parts: []Part{
				{Text: transcribeInstruction},
				{InlineData: &InlineData{
					MimeType: mimeType,
					Data:     base64.StdEncoding.EncodeToString(audio),
				}},
			},
		}},
	}

	resp, err := c.GenerateContent(ctx, model, req)
	if err != nil {
		return "", err
	}

	return resp.Text(), nil
}

// Synthesize requests spoken audio for the given text with a fixed voice and
// returns the decoded PCM16 samples at SpeechSampleRate.
func (c *Client) Synthesize(ctx context.Context, model, voice, text string) ([]byte, error) {
	req := &GenerateRequest{
		Contents: []Content{{
			Role:  "user",
			Parts: []Part{{Text: text}},
		}},
		GenerationConfig: &GenerationConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: &SpeechConfig{
				VoiceConfig: &VoiceConfig{
					PrebuiltVoiceConfig: &PrebuiltVoiceConfig{VoiceName: voice},
				},
			},
		},
	}

	resp, err := c.GenerateContent(ctx, model, req)
	if err != nil {
		return nil, err
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("speech synthesis returned no candidates")
	}

	for _, part := range resp.Candidates[0].Content.Parts {
		if part.InlineData == nil {
			continue
		}
		pcm, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode synthesized audio: %w", err)
		}
		return pcm, nil
	}

	return nil, fmt.Errorf("speech synthesis response contained no audio part")
}
