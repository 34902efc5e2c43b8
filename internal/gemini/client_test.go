package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubServer(t *testing.T, handler func(r *http.Request, req *GenerateRequest) GenerateResponse) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		var req GenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		resp := handler(r, &req)
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func textResponse(text string) GenerateResponse {
	return GenerateResponse{Candidates: []Candidate{{
		Content: &Content{Role: "model", Parts: []Part{{Text: text}}},
	}}}
}

func TestGenerateContent(t *testing.T) {
	server := stubServer(t, func(r *http.Request, req *GenerateRequest) GenerateResponse {
		assert.Equal(t, "/models/gemini-2.5-flash:generateContent", r.URL.Path)
		require.Len(t, req.Contents, 1)
		assert.Equal(t, "hello", req.Contents[0].Parts[0].Text)
		return textResponse("hi there")
	})
	defer server.Close()

	client := NewClientWithBaseURL("test-key", server.URL)

	resp, err := client.GenerateContent(context.Background(), "gemini-2.5-flash", &GenerateRequest{
		Contents: []Content{{Role: "user", Parts: []Part{{Text: "hello"}}}},
	})
	require.NoError(t, err)
	assert.Equal(t, "hi there", resp.Text())
}

func TestGenerateContentErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClientWithBaseURL("test-key", server.URL)

	_, err := client.GenerateContent(context.Background(), "gemini-2.5-flash", &GenerateRequest{})
	assert.Error(t, err)
}

func TestTranscribe(t *testing.T) {
	payload := []byte("audio-bytes")

	server := stubServer(t, func(r *http.Request, req *GenerateRequest) GenerateResponse {
		require.Len(t, req.Contents, 1)
		parts := req.Contents[0].Parts
		require.Len(t, parts, 2)
		assert.Contains(t, parts[0].Text, "verbatim transcription")
		require.NotNil(t, parts[1].InlineData)
		assert.Equal(t, "audio/webm", parts[1].InlineData.MimeType)
		assert.Equal(t, base64.StdEncoding.EncodeToString(payload), parts[1].InlineData.Data)
		return textResponse("the spoken words")
	})
	defer server.Close()

	client := NewClientWithBaseURL("test-key", server.URL)

	text, err := client.Transcribe(context.Background(), "gemini-2.5-flash", "audio/webm", payload)
	require.NoError(t, err)
	assert.Equal(t, "the spoken words", text)
}

func TestSynthesize(t *testing.T) {
	pcm := []byte{0x01, 0x02, 0x03, 0x04}

	server := stubServer(t, func(r *http.Request, req *GenerateRequest) GenerateResponse {
		require.NotNil(t, req.GenerationConfig)
		assert.Equal(t, []string{"AUDIO"}, req.GenerationConfig.ResponseModalities)
		require.NotNil(t, req.GenerationConfig.SpeechConfig)
		assert.Equal(t, "Kore", req.GenerationConfig.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName)

		return GenerateResponse{Candidates: []Candidate{{
			Content: &Content{Role: "model", Parts: []Part{{InlineData: &InlineData{
				MimeType: "audio/pcm",
				Data:     base64.StdEncoding.EncodeToString(pcm),
			}}}},
		}}}
	})
	defer server.Close()

	client := NewClientWithBaseURL("test-key", server.URL)

	got, err := client.Synthesize(context.Background(), "gemini-2.5-flash-preview-tts", "Kore", "read this")
	require.NoError(t, err)
	assert.Equal(t, pcm, got)
}

func TestSynthesizeNoAudioPart(t *testing.T) {
	server := stubServer(t, func(r *http.Request, req *GenerateRequest) GenerateResponse {
		return textResponse("no audio here")
	})
	defer server.Close()

	client := NewClientWithBaseURL("test-key", server.URL)

	_, err := client.Synthesize(context.Background(), "gemini-2.5-flash-preview-tts", "Kore", "read this")
	assert.Error(t, err)
}

func TestResponseSources(t *testing.T) {
	resp := GenerateResponse{Candidates: []Candidate{{
		Content: &Content{Parts: []Part{{Text: "grounded"}}},
		GroundingMetadata: &GroundingMetadata{GroundingChunks: []GroundingChunk{
			{Web: &Web{URI: "https://example.com", Title: "Example"}},
			{Web: &Web{URI: ""}}, // no uri, dropped
			{Web: nil},
		}},
	}}}

	sources := resp.Sources()
	require.Len(t, sources, 1)
	assert.Equal(t, "Example", sources[0].Title)

	empty := GenerateResponse{}
	assert.Nil(t, empty.Sources())
	assert.Equal(t, "", empty.Text())
}
