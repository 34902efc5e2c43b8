package audio

import (
	"errors"
	"sync"
)

// CaptureDevice represents the microphone capture session. The default server
// deployment uses NullCapture because the actual capture happens on the
// client; the interface exists so acquisition failures follow the same path
// as a real device.
type CaptureDevice interface {
	Start() error
	Stop() error
}

// PlaybackDevice holds synthesized audio for delivery. Pausing suspends the
// playback clock without discarding buffered audio; stopping discards the
// in-flight source entirely.
type PlaybackDevice interface {
	Play(pcm []byte) error
	Pause() error
	Resume() error
	Stop() error
}

type NullCapture struct{}

func (NullCapture) Start() error { return nil }
func (NullCapture) Stop() error  { return nil }

var errNotPlaying = errors.New("no active playback")

// BufferPlayback buffers the synthesized PCM for the client to fetch.
type BufferPlayback struct {
	mu      sync.Mutex
	pcm     []byte
	playing bool
	paused  bool
}

func NewBufferPlayback() *BufferPlayback {
	return &BufferPlayback{}
}

func (p *BufferPlayback) Play(pcm []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pcm = pcm
	p.playing = true
	p.paused = false
	return nil
}

func (p *BufferPlayback) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.playing {
		return errNotPlaying
	}
	p.paused = true
	return nil
}

func (p *BufferPlayback) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.playing {
		return errNotPlaying
	}
	p.paused = false
	return nil
}

func (p *BufferPlayback) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pcm = nil
	p.playing = false
	p.paused = false
	return nil
}

// Buffered returns the current audio payload, or nil if playback was stopped.
func (p *BufferPlayback) Buffered() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pcm
}
