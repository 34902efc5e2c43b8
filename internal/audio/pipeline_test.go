package audio

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTranscriber struct {
	text string
	err  error
}

func (s *stubTranscriber) Transcribe(ctx context.Context, mimeType string, audio []byte) (string, error) {
	return s.text, s.err
}

type stubSynthesizer struct {
	pcm []byte
	err error
}

func (s *stubSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	return s.pcm, s.err
}

type countingCapture struct {
	started int
	stopped int
}

func (c *countingCapture) Start() error { c.started++; return nil }
func (c *countingCapture) Stop() error  { c.stopped++; return nil }

type blockingTranscriber struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingTranscriber) Transcribe(ctx context.Context, mimeType string, audio []byte) (string, error) {
	close(b.entered)
	<-b.release
	return "transcribed", nil
}

func newTestPipeline(transcriber Transcriber, synthesizer Synthesizer, researchPending func() bool) (*Pipeline, *BufferPlayback) {
	playback := NewBufferPlayback()
	if transcriber == nil {
		transcriber = &stubTranscriber{text: "transcribed"}
	}
	if synthesizer == nil {
		synthesizer = &stubSynthesizer{pcm: []byte{1, 2, 3, 4}}
	}
	return NewPipeline(NullCapture{}, playback, transcriber, synthesizer, researchPending), playback
}

func TestRecordingLifecycle(t *testing.T) {
	p, _ := newTestPipeline(nil, nil, nil)

	assert.Equal(t, StateIdle, p.Status().State)

	require.NoError(t, p.StartRecording())
	assert.Equal(t, StateRecording, p.Status().State)

	assert.ErrorIs(t, p.StartRecording(), ErrAlreadyRecording)

	text, err := p.StopRecording(context.Background(), "audio/webm", []byte("payload"))
	require.NoError(t, err)
	assert.Equal(t, "transcribed", text)
	assert.Equal(t, StateIdle, p.Status().State)
}

func TestStopRecordingWithoutStart(t *testing.T) {
	p, _ := newTestPipeline(nil, nil, nil)

	_, err := p.StopRecording(context.Background(), "audio/webm", nil)
	assert.ErrorIs(t, err, ErrNotRecording)
}

func TestTranscriptionFailureReturnsToIdle(t *testing.T) {
	p, _ := newTestPipeline(&stubTranscriber{err: errors.New("remote error")}, nil, nil)

	require.NoError(t, p.StartRecording())
	_, err := p.StopRecording(context.Background(), "audio/webm", []byte("payload"))
	assert.Error(t, err)
	assert.Equal(t, StateIdle, p.Status().State)
}

func TestRecordingRefusedWhileAwaitingReply(t *testing.T) {
	p, _ := newTestPipeline(nil, nil, func() bool { return true })

	assert.ErrorIs(t, p.StartRecording(), ErrAwaitingReply)
	assert.Equal(t, StateIdle, p.Status().State)
}

func TestRecordingStopsSpeech(t *testing.T) {
	p, playback := newTestPipeline(nil, nil, nil)

	id := uuid.New()
	require.NoError(t, p.Speak(context.Background(), id, "some reply"))
	assert.Equal(t, StateSpeaking, p.Status().State)

	require.NoError(t, p.StartRecording())

	status := p.Status()
	assert.Equal(t, StateRecording, status.State)
	assert.Equal(t, uuid.Nil, status.SpeakingMessageID)
	assert.Nil(t, playback.Buffered())
}

func TestSpeakStopsRecording(t *testing.T) {
	capture := &countingCapture{}
	playback := NewBufferPlayback()
	p := NewPipeline(capture, playback, &stubTranscriber{text: "transcribed"}, &stubSynthesizer{pcm: []byte{1, 2}}, nil)

	require.NoError(t, p.StartRecording())
	assert.Equal(t, 1, capture.started)

	// Speaking while recording discards the capture session first.
	require.NoError(t, p.Speak(context.Background(), uuid.New(), "some reply"))
	assert.Equal(t, 1, capture.stopped)
	assert.Equal(t, StateSpeaking, p.Status().State)

	// The discarded session cannot be finalized afterwards.
	_, err := p.StopRecording(context.Background(), "audio/webm", nil)
	assert.ErrorIs(t, err, ErrNotRecording)
	assert.Equal(t, StateSpeaking, p.Status().State)
}

func TestSpeakRefusedWhileTranscribing(t *testing.T) {
	transcriber := &blockingTranscriber{entered: make(chan struct{}), release: make(chan struct{})}
	p, playback := newTestPipeline(transcriber, nil, nil)

	require.NoError(t, p.StartRecording())

	done := make(chan error, 1)
	go func() {
		_, err := p.StopRecording(context.Background(), "audio/webm", []byte("payload"))
		done <- err
	}()
	<-transcriber.entered

	assert.Equal(t, StateTranscribing, p.Status().State)
	assert.ErrorIs(t, p.Speak(context.Background(), uuid.New(), "some reply"), ErrCaptureBusy)
	assert.Nil(t, playback.Buffered())

	close(transcriber.release)
	require.NoError(t, <-done)
	assert.Equal(t, StateIdle, p.Status().State)
}

func TestSpeakToggle(t *testing.T) {
	p, _ := newTestPipeline(nil, nil, nil)

	id := uuid.New()
	require.NoError(t, p.Speak(context.Background(), id, "some reply"))

	status := p.Status()
	assert.Equal(t, StateSpeaking, status.State)
	assert.Equal(t, id, status.SpeakingMessageID)
	assert.False(t, status.Paused)

	// Same id pauses, then resumes.
	require.NoError(t, p.Speak(context.Background(), id, "some reply"))
	assert.True(t, p.Status().Paused)

	require.NoError(t, p.Speak(context.Background(), id, "some reply"))
	assert.False(t, p.Status().Paused)
}

func TestSpeakReplacesOtherMessage(t *testing.T) {
	p, _ := newTestPipeline(nil, nil, nil)

	first := uuid.New()
	second := uuid.New()
	require.NoError(t, p.Speak(context.Background(), first, "first reply"))
	require.NoError(t, p.Speak(context.Background(), second, "second reply"))

	status := p.Status()
	assert.Equal(t, StateSpeaking, status.State)
	assert.Equal(t, second, status.SpeakingMessageID)
	assert.False(t, status.Paused)
}

func TestSynthesisFailureLeavesIdle(t *testing.T) {
	p, _ := newTestPipeline(nil, &stubSynthesizer{err: errors.New("remote error")}, nil)

	err := p.Speak(context.Background(), uuid.New(), "some reply")
	assert.Error(t, err)
	assert.Equal(t, StateIdle, p.Status().State)
}

func TestPauseResumeStop(t *testing.T) {
	p, playback := newTestPipeline(nil, nil, nil)

	assert.Error(t, p.PauseSpeech())
	assert.Error(t, p.ResumeSpeech())

	id := uuid.New()
	require.NoError(t, p.Speak(context.Background(), id, "some reply"))

	require.NoError(t, p.PauseSpeech())
	assert.True(t, p.Status().Paused)
	assert.Error(t, p.PauseSpeech())

	require.NoError(t, p.ResumeSpeech())
	assert.False(t, p.Status().Paused)

	p.StopSpeech()
	assert.Equal(t, StateIdle, p.Status().State)
	assert.Nil(t, playback.Buffered())
}

func TestCompleteSpeechIgnoresStaleID(t *testing.T) {
	p, _ := newTestPipeline(nil, nil, nil)

	id := uuid.New()
	require.NoError(t, p.Speak(context.Background(), id, "some reply"))

	p.CompleteSpeech(uuid.New())
	assert.Equal(t, StateSpeaking, p.Status().State)

	p.CompleteSpeech(id)
	assert.Equal(t, StateIdle, p.Status().State)
}
