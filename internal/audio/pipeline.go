package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

type State string

const (
	StateIdle         State = "idle"
	StateRecording    State = "recording"
	StateTranscribing State = "transcribing"
	StateSpeaking     State = "speaking"
)

type Status struct {
	State             State
	Paused            bool
	SpeakingMessageID uuid.UUID
}

type Transcriber interface {
	Transcribe(ctx context.Context, mimeType string, audio []byte) (string, error)
}

type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

var (
	ErrNotRecording     = errors.New("no recording in progress")
	ErrBusyRecording    = errors.New("cannot start recording while transcribing")
	ErrAwaitingReply    = errors.New("cannot start recording while awaiting a model response")
	ErrAlreadyRecording = errors.New("recording already in progress")
	ErrCaptureBusy      = errors.New("cannot start speech while audio capture is active")
)

// Pipeline is the record -> transcribe -> speak state machine. At most one
// capture session and at most one playback session are active at any time;
// starting one kind of audio activity cancels the other first.
type Pipeline struct {
	mu         sync.Mutex
	state      State
	paused     bool
	speakingID uuid.UUID

	capture     CaptureDevice
	playback    PlaybackDevice
	transcriber Transcriber
	synthesizer Synthesizer

	// researchPending reports whether a model response is being awaited;
	// recording is refused while it returns true.
	researchPending func() bool
}

func NewPipeline(capture CaptureDevice, playback PlaybackDevice, transcriber Transcriber, synthesizer Synthesizer, researchPending func() bool) *Pipeline {
	if researchPending == nil {
		researchPending = func() bool { return false }
	}
	return &Pipeline{
		state:           StateIdle,
		capture:         capture,
		playback:        playback,
		transcriber:     transcriber,
		synthesizer:     synthesizer,
		researchPending: researchPending,
	}
}

func (p *Pipeline) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Status{State: p.state, Paused: p.paused, SpeakingMessageID: p.speakingID}
}

// StartRecording acquires the capture device. Any active speech playback is
// interrupted first so the microphone does not pick up the synthesized audio.
func (p *Pipeline) StartRecording() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case StateTranscribing:
		return ErrBusyRecording
	case StateRecording:
		return ErrAlreadyRecording
	}
	if p.researchPending() {
		return ErrAwaitingReply
	}

	if p.state == StateSpeaking {
		p.stopSpeechLocked()
	}

	if err := p.capture.Start(); err != nil {
		slog.Error("failed to acquire capture device", "error", err)
		return fmt.Errorf("failed to acquire capture device: %w", err)
	}

	p.state = StateRecording
	return nil
}

// StopRecording finalizes the capture and transcribes the payload. On failure
// the error is logged and the pipeline returns to idle without producing a
// transcription.
func (p *Pipeline) StopRecording(ctx context.Context, mimeType string, captured []byte) (string, error) {
	p.mu.Lock()
	if p.state != StateRecording {
		p.mu.Unlock()
		return "", ErrNotRecording
	}
	if err := p.capture.Stop(); err != nil {
		slog.Error("failed to release capture device", "error", err)
	}
	p.state = StateTranscribing
	p.mu.Unlock()

	text, err := p.transcriber.Transcribe(ctx, mimeType, captured)

	p.mu.Lock()
	// Only restore idle from the transcribing state this call set; another
	// activity may have taken over the pipeline in the meantime.
	if p.state == StateTranscribing {
		p.state = StateIdle
	}
	p.mu.Unlock()

	if err != nil {
		slog.Error("transcription failed", "error", err)
		return "", fmt.Errorf("transcription failed: %w", err)
	}

	return text, nil
}

// Speak synthesizes and plays the given text. Calling it again with the id of
// the message already being spoken toggles pause/resume instead of restarting
// playback; any other id stops the current playback first. An active capture
// session is discarded before playback starts so the two never overlap; a
// transcription in flight refuses speech instead, since its recording is
// already finalized.
func (p *Pipeline) Speak(ctx context.Context, messageID uuid.UUID, text string) error {
	p.mu.Lock()
	if p.state == StateTranscribing {
		p.mu.Unlock()
		return ErrCaptureBusy
	}

	if p.state == StateSpeaking && p.speakingID == messageID {
		defer p.mu.Unlock()
		if p.paused {
			return p.resumeLocked()
		}
		return p.pauseLocked()
	}

	if p.state == StateSpeaking {
		p.stopSpeechLocked()
	}
	if p.state == StateRecording {
		if err := p.capture.Stop(); err != nil {
			slog.Error("failed to release capture device", "error", err)
		}
		p.state = StateIdle
	}
	p.mu.Unlock()

	pcm, err := p.synthesizer.Synthesize(ctx, StripMarkdown(text))
	if err != nil {
		slog.Error("speech synthesis failed", "error", err)
		return fmt.Errorf("speech synthesis failed: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// A capture session may have started while the audio was being
	// synthesized; recording wins, so the playback is dropped.
	if p.state == StateRecording || p.state == StateTranscribing {
		return ErrCaptureBusy
	}

	if err := p.playback.Play(pcm); err != nil {
		slog.Error("failed to start playback", "error", err)
		return fmt.Errorf("failed to start playback: %w", err)
	}

	p.state = StateSpeaking
	p.paused = false
	p.speakingID = messageID
	return nil
}

func (p *Pipeline) PauseSpeech() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pauseLocked()
}

func (p *Pipeline) ResumeSpeech() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resumeLocked()
}

func (p *Pipeline) StopSpeech() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateSpeaking {
		p.stopSpeechLocked()
	}
}

// CompleteSpeech clears the active-speech marker after playback reached its
// natural end. A stale id (from a playback that was already replaced) is
// ignored.
func (p *Pipeline) CompleteSpeech(messageID uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateSpeaking && p.speakingID == messageID {
		p.stopSpeechLocked()
	}
}

func (p *Pipeline) pauseLocked() error {
	if p.state != StateSpeaking || p.paused {
		return errNotPlaying
	}
	if err := p.playback.Pause(); err != nil {
		return err
	}
	p.paused = true
	return nil
}

func (p *Pipeline) resumeLocked() error {
	if p.state != StateSpeaking || !p.paused {
		return errNotPlaying
	}
	if err := p.playback.Resume(); err != nil {
		return err
	}
	p.paused = false
	return nil
}

func (p *Pipeline) stopSpeechLocked() {
	if err := p.playback.Stop(); err != nil {
		slog.Error("failed to stop playback", "error", err)
	}
	p.state = StateIdle
	p.paused = false
	p.speakingID = uuid.Nil
}
