package tts

import (
	"context"

	"github.com/dgnsrekt/clipspeak/internal/audio"
	"github.com/dgnsrekt/clipspeak/internal/voice"
)

// Request is one synthesis call. Text is normalized and XML escaped; SSML is
// set when the provider takes a full speak document.
type Request struct {
	Text  string
	SSML  string
	Voice voice.Settings
}

// EngineInfo describes a synthesizer.
type EngineInfo struct {
	Name        string       // provider name, e.g. "azureai"
	Voice       string       // voice used when the provider ignores Settings
	Format      audio.Format // encoding of returned streams
	SSML        bool         // provider wants Request.SSML
	MaxTextSize int          // characters per request, 0 for no limit
}

// Synthesizer defines the contract for text-to-speech providers.
type Synthesizer interface {
	// Synthesize converts a request to audio. Failures are reported as
	// synthesis errors carrying provider detail.
	Synthesize(ctx context.Context, req Request) (*audio.Stream, error)

	// Info returns provider capabilities.
	Info() EngineInfo

	// Close releases any resources held by the engine.
	Close() error
}

// Player defines the contract for audio playback.
type Player interface {
	// Play blocks until the stream has played and takes ownership of it.
	Play(ctx context.Context, s *audio.Stream) error

	// Stop interrupts the clip currently playing.
	Stop() error

	// Close releases the output device.
	Close() error
}

// AudioCache stores synthesized clips by key.
type AudioCache interface {
	Get(key string) ([]byte, bool)
	Put(key string, value []byte) error
}

// VoiceSource yields the current voice settings.
type VoiceSource interface {
	Get() voice.Settings
}
