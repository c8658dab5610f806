package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/ebitengine/oto/v3"
)

var (
	// ErrPlayerClosed is returned by Play after Close.
	ErrPlayerClosed = errors.New("player is closed")

	// ErrStopped is returned by Play when Stop interrupted it.
	ErrStopped = errors.New("playback stopped")
)

// PlayerState represents the current state of a player.
type PlayerState int32

// Player states.
const (
	StateStopped PlayerState = iota
	StatePlaying
	StateClosed
)

func (s PlayerState) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StatePlaying:
		return "playing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// PlayerConfig contains configuration for the audio player.
type PlayerConfig struct {
	SampleRate int // 44100 or 48000 Hz only
	Channels   int // 1 = mono, 2 = stereo
	BufferSize int // device buffer in bytes
	Volume     float64
}

// DefaultPlayerConfig matches the 48 kHz mono output requested from Azure.
func DefaultPlayerConfig() PlayerConfig {
	return PlayerConfig{
		SampleRate: 48000,
		Channels:   1,
		BufferSize: 8192,
		Volume:     1.0,
	}
}

// Player plays streams one at a time through a single oto context. oto only
// allows one context per process, so a Player should be created once.
type Player struct {
	context *oto.Context

	sampleRate int
	channels   int
	volume     float64

	// serializes Play
	playMu sync.Mutex

	mu      sync.Mutex
	current *oto.Player
	stream  *Stream
	stop    chan struct{}

	state atomic.Int32
}

// NewPlayer opens the output device.
func NewPlayer(config PlayerConfig) (*Player, error) {
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	op := &oto.NewContextOptions{
		SampleRate:   config.SampleRate,
		ChannelCount: config.Channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   time.Duration(config.BufferSize) * time.Second / time.Duration(config.SampleRate*config.Channels*2),
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-ready

	p := &Player{
		context:    ctx,
		sampleRate: config.SampleRate,
		channels:   config.Channels,
		volume:     config.Volume,
	}
	p.state.Store(int32(StateStopped))
	return p, nil
}

func validateConfig(config PlayerConfig) error {
	if config.SampleRate != 44100 && config.SampleRate != 48000 {
		return fmt.Errorf("sample rate must be 44100 or 48000 Hz, got %d", config.SampleRate)
	}
	if config.Channels != 1 && config.Channels != 2 {
		return fmt.Errorf("channels must be 1 (mono) or 2 (stereo), got %d", config.Channels)
	}
	if config.BufferSize <= 0 {
		return errors.New("buffer size must be positive")
	}
	if config.Volume < 0 || config.Volume > 1 {
		return fmt.Errorf("volume must be between 0.0 and 1.0, got %f", config.Volume)
	}
	return nil
}

// Play decodes s and blocks until it has been played, ctx is done, or Stop
// is called. The stream is closed before Play returns.
func (p *Player) Play(ctx context.Context, s *Stream) error {
	defer s.Close() //nolint:errcheck

	p.playMu.Lock()
	defer p.playMu.Unlock()

	if p.State() == StateClosed {
		return ErrPlayerClosed
	}

	pcm, err := Decode(s, p.sampleRate, p.channels)
	if err != nil {
		return err
	}
	log.Debug("Playing clip",
		"format", s.Format(),
		"size", humanize.Bytes(uint64(s.Size())),
		"duration", Duration(pcm, p.sampleRate, p.channels).Round(time.Millisecond))

	// The reader keeps pcm alive until the oto player is closed.
	player := p.context.NewPlayer(bytes.NewReader(pcm))
	player.SetVolume(p.volume)

	stop := make(chan struct{})
	p.mu.Lock()
	p.current = player
	p.stream = s
	p.stop = stop
	p.mu.Unlock()
	p.state.Store(int32(StatePlaying))

	defer p.release(player)

	player.Play()
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return ErrStopped
		case <-ticker.C:
			if player.IsPlaying() {
				continue
			}
			if err := player.Err(); err != nil {
				return fmt.Errorf("playback failed: %w", err)
			}
			return nil
		}
	}
}

func (p *Player) release(player *oto.Player) {
	player.Pause()
	if err := player.Close(); err != nil {
		log.Debug("Closing oto player", "err", err)
	}

	p.mu.Lock()
	if p.current == player {
		p.current = nil
		p.stream = nil
		p.stop = nil
	}
	p.mu.Unlock()

	p.state.CompareAndSwap(int32(StatePlaying), int32(StateStopped))
}

// Stop interrupts the clip currently playing, if any.
func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stop != nil {
		close(p.stop)
		p.stop = nil
	}
	return nil
}

// IsPlaying returns whether audio is currently playing.
func (p *Player) IsPlaying() bool {
	return p.State() == StatePlaying
}

// State returns the current player state.
func (p *Player) State() PlayerState {
	return PlayerState(p.state.Load())
}

// Close stops playback and refuses further clips. oto/v3 contexts cannot be
// closed, the device is released on process exit.
func (p *Player) Close() error {
	if err := p.Stop(); err != nil {
		return err
	}
	p.state.Store(int32(StateClosed))
	return nil
}
