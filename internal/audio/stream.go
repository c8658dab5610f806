package audio

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Format identifies the encoding of a Stream.
type Format string

// Supported stream formats.
const (
	FormatWAV Format = "wav"
	FormatMP3 Format = "mp3"
	FormatPCM Format = "pcm"
)

// ErrUnknownFormat is returned by ParseFormat.
var ErrUnknownFormat = errors.New("unknown audio format")

// ParseFormat maps a name such as "mp3" or "WAV" to a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatWAV, FormatMP3, FormatPCM:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Stream is a synthesized clip handed from a synthesizer to a player. The
// player owns it once Play is called and must Close it when done, which
// drops the reference to the audio data.
type Stream struct {
	data   []byte
	format Format

	// only meaningful for FormatPCM
	sampleRate int
	channels   int

	mu        sync.Mutex
	closed    bool
	closeOnce sync.Once
}

// NewStream wraps encoded audio data. The stream takes ownership of data.
func NewStream(data []byte, format Format) *Stream {
	return &Stream{data: data, format: format}
}

// NewPCMStream wraps raw signed 16-bit little endian samples.
func NewPCMStream(data []byte, sampleRate, channels int) *Stream {
	return &Stream{data: data, format: FormatPCM, sampleRate: sampleRate, channels: channels}
}

// ReadStream reads r to the end and wraps the result.
func ReadStream(r io.Reader, format Format) (*Stream, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("unable to read audio: %w", err)
	}
	return NewStream(data, format), nil
}

// Format returns the encoding of the stream.
func (s *Stream) Format() Format { return s.format }

// Bytes returns the encoded data, or nil once the stream is closed.
func (s *Stream) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data
}

// Size returns the encoded size in bytes.
func (s *Stream) Size() int {
	return len(s.Bytes())
}

// Close releases the audio data. It is safe to call more than once.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.closed = true
		s.data = nil
	})
	return nil
}

// IsClosed reports whether Close was called.
func (s *Stream) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
