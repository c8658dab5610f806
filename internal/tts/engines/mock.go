package engines

import (
	"context"
	"encoding/binary"
	"math"
	"sync/atomic"
	"time"

	"github.com/dgnsrekt/clipspeak/internal/audio"
	"github.com/dgnsrekt/clipspeak/internal/tts"
)

const (
	mockSampleRate = 48000
	mockFrequency  = 440.0
	mockAmplitude  = 0.2
)

// MockConfig configures the tone generator.
type MockConfig struct {
	// Delay simulates provider latency.
	Delay time.Duration

	// MaxDuration caps the length of one tone. Zero means 3s.
	MaxDuration time.Duration

	// Err, when set, fails every call.
	Err error
}

// MockEngine produces a sine tone whose length follows the text length. It
// needs no network and gives the same audio for the same text.
type MockEngine struct {
	cfg   MockConfig
	calls atomic.Int64
}

// NewMock creates a tone generator.
func NewMock(cfg MockConfig) *MockEngine {
	if cfg.MaxDuration <= 0 {
		cfg.MaxDuration = 3 * time.Second
	}
	return &MockEngine{cfg: cfg}
}

// Synthesize returns mono 48 kHz PCM.
func (e *MockEngine) Synthesize(ctx context.Context, req tts.Request) (*audio.Stream, error) {
	e.calls.Add(1)

	if e.cfg.Delay > 0 {
		timer := time.NewTimer(e.cfg.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, tts.SynthesisError(ProviderMock, ctx.Err())
		case <-timer.C:
		}
	}
	if e.cfg.Err != nil {
		return nil, tts.SynthesisError(ProviderMock, e.cfg.Err)
	}
	if req.Text == "" {
		return nil, tts.SynthesisError(ProviderMock, tts.ErrEmptyText)
	}

	return audio.NewPCMStream(tone(e.duration(req.Text)), mockSampleRate, 1), nil
}

// Calls returns the number of Synthesize calls.
func (e *MockEngine) Calls() int64 { return e.calls.Load() }

// Info describes the engine.
func (e *MockEngine) Info() tts.EngineInfo {
	return tts.EngineInfo{
		Name:   ProviderMock,
		Voice:  "tone",
		Format: audio.FormatPCM,
	}
}

// Close is a no-op.
func (e *MockEngine) Close() error { return nil }

// duration estimates speaking time at about 150 words per minute.
func (e *MockEngine) duration(text string) time.Duration {
	words := len(text) / 5
	if words < 1 {
		words = 1
	}
	d := time.Duration(float64(words) * 60 / 150 * float64(time.Second))
	return min(d, e.cfg.MaxDuration)
}

func tone(d time.Duration) []byte {
	n := int(d.Seconds() * mockSampleRate)
	out := make([]byte, 2*n)
	for i := 0; i < n; i++ {
		v := mockAmplitude * math.Sin(2*math.Pi*mockFrequency*float64(i)/mockSampleRate)
		binary.LittleEndian.PutUint16(out[2*i:], uint16(int16(v*math.MaxInt16)))
	}
	return out
}
