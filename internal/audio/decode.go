package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/hajimehoshi/go-mp3"
)

var (
	// ErrEmptyAudio is returned when a stream carries no samples.
	ErrEmptyAudio = errors.New("audio data is empty")

	// ErrStreamClosed is returned when decoding a released stream.
	ErrStreamClosed = errors.New("audio stream is closed")

	// ErrNotWAV is returned for data without a RIFF/WAVE header.
	ErrNotWAV = errors.New("not a RIFF/WAVE file")

	// ErrUnsupportedWAV is returned for WAV encodings other than 16-bit PCM.
	ErrUnsupportedWAV = errors.New("unsupported WAV encoding")
)

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

// Decode turns a stream into signed 16-bit little endian samples at the
// given rate and channel count, ready to be fed to the output device.
func Decode(s *Stream, sampleRate, channels int) ([]byte, error) {
	if s.IsClosed() {
		return nil, ErrStreamClosed
	}
	data := s.Bytes()
	if len(data) == 0 {
		return nil, ErrEmptyAudio
	}

	var (
		samples []int16
		rate    int
		srcCh   int
		err     error
	)
	switch s.Format() {
	case FormatWAV:
		samples, rate, srcCh, err = decodeWAV(data)
	case FormatMP3:
		samples, rate, srcCh, err = decodeMP3(data)
	case FormatPCM:
		samples, rate, srcCh = bytesToSamples(data), s.sampleRate, s.channels
		if rate <= 0 || srcCh <= 0 {
			err = fmt.Errorf("raw pcm stream without rate or channels")
		}
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownFormat, s.Format())
	}
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, ErrEmptyAudio
	}

	samples = remix(samples, srcCh, channels)
	samples = resample(samples, channels, rate, sampleRate)
	return samplesToBytes(samples), nil
}

// Duration returns the play time of decoded pcm.
func Duration(pcm []byte, sampleRate, channels int) time.Duration {
	if sampleRate <= 0 || channels <= 0 {
		return 0
	}
	frames := len(pcm) / (2 * channels)
	return time.Duration(frames) * time.Second / time.Duration(sampleRate)
}

// decodeWAV walks the RIFF chunks and returns the samples of the data chunk.
func decodeWAV(b []byte) ([]int16, int, int, error) {
	if len(b) < 12 || string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" {
		return nil, 0, 0, ErrNotWAV
	}

	var (
		haveFmt  bool
		rate     int
		channels int
	)
	off := 12
	for off+8 <= len(b) {
		id := string(b[off : off+4])
		size := uint64(binary.LittleEndian.Uint32(b[off+4 : off+8]))
		off += 8

		// Streamed responses may carry a placeholder size.
		end := len(b)
		if uint64(off)+size <= uint64(len(b)) {
			end = off + int(size)
		}
		chunk := b[off:end]

		switch id {
		case "fmt ":
			if len(chunk) < 16 {
				return nil, 0, 0, fmt.Errorf("%w: short fmt chunk", ErrUnsupportedWAV)
			}
			format := binary.LittleEndian.Uint16(chunk[0:2])
			channels = int(binary.LittleEndian.Uint16(chunk[2:4]))
			rate = int(binary.LittleEndian.Uint32(chunk[4:8]))
			bits := binary.LittleEndian.Uint16(chunk[14:16])
			if (format != wavFormatPCM && format != wavFormatExtensible) || bits != 16 {
				return nil, 0, 0, fmt.Errorf("%w: format %d, %d bits", ErrUnsupportedWAV, format, bits)
			}
			if channels == 0 || rate == 0 {
				return nil, 0, 0, fmt.Errorf("%w: %d channels at %d Hz", ErrUnsupportedWAV, channels, rate)
			}
			haveFmt = true
		case "data":
			if !haveFmt {
				return nil, 0, 0, fmt.Errorf("%w: data before fmt chunk", ErrUnsupportedWAV)
			}
			return bytesToSamples(chunk), rate, channels, nil
		}

		off = end
		if size%2 == 1 {
			off++
		}
	}
	return nil, 0, 0, fmt.Errorf("%w: no data chunk", ErrNotWAV)
}

// decodeMP3 decodes an MP3 clip. go-mp3 always yields 16-bit stereo.
func decodeMP3(b []byte) ([]int16, int, int, error) {
	d, err := mp3.NewDecoder(bytes.NewReader(b))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("unable to decode mp3: %w", err)
	}
	pcm, err := io.ReadAll(d)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("unable to decode mp3: %w", err)
	}
	return bytesToSamples(pcm), d.SampleRate(), 2, nil
}

func bytesToSamples(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(b[2*i:]))
	}
	return out
}

func samplesToBytes(s []int16) []byte {
	out := make([]byte, 2*len(s))
	for i, v := range s {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(v))
	}
	return out
}

// remix converts interleaved samples between channel counts. Downmixing
// averages all source channels; upmixing copies the mono signal.
func remix(in []int16, from, to int) []int16 {
	if from == to {
		return in
	}
	frames := len(in) / from
	out := make([]int16, frames*to)
	for f := 0; f < frames; f++ {
		var sum int
		for c := 0; c < from; c++ {
			sum += int(in[f*from+c])
		}
		v := int16(sum / from)
		for c := 0; c < to; c++ {
			out[f*to+c] = v
		}
	}
	return out
}

// resample converts between sample rates with linear interpolation.
func resample(in []int16, channels, from, to int) []int16 {
	if from == to || len(in) == 0 {
		return in
	}
	frames := len(in) / channels
	outFrames := int(int64(frames) * int64(to) / int64(from))
	out := make([]int16, outFrames*channels)
	step := float64(from) / float64(to)

	for i := 0; i < outFrames; i++ {
		pos := float64(i) * step
		j := int(pos)
		frac := pos - float64(j)
		for c := 0; c < channels; c++ {
			a := float64(in[j*channels+c])
			b := a
			if j+1 < frames {
				b = float64(in[(j+1)*channels+c])
			}
			out[i*channels+c] = int16(a + (b-a)*frac)
		}
	}
	return out
}
