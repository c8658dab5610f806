package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
	"time"
)

// wavFile builds a 16-bit PCM WAV with an extra chunk before the data.
func wavFile(samples []int16, rate, channels int) []byte {
	var data bytes.Buffer
	for _, s := range samples {
		_ = binary.Write(&data, binary.LittleEndian, s)
	}

	var b bytes.Buffer
	b.WriteString("RIFF")
	_ = binary.Write(&b, binary.LittleEndian, uint32(4+(8+16)+(8+4)+8+data.Len()))
	b.WriteString("WAVE")

	b.WriteString("fmt ")
	_ = binary.Write(&b, binary.LittleEndian, uint32(16))
	_ = binary.Write(&b, binary.LittleEndian, uint16(wavFormatPCM))
	_ = binary.Write(&b, binary.LittleEndian, uint16(channels))
	_ = binary.Write(&b, binary.LittleEndian, uint32(rate))
	_ = binary.Write(&b, binary.LittleEndian, uint32(rate*channels*2))
	_ = binary.Write(&b, binary.LittleEndian, uint16(channels*2))
	_ = binary.Write(&b, binary.LittleEndian, uint16(16))

	b.WriteString("LIST")
	_ = binary.Write(&b, binary.LittleEndian, uint32(4))
	b.WriteString("INFO")

	b.WriteString("data")
	_ = binary.Write(&b, binary.LittleEndian, uint32(data.Len()))
	b.Write(data.Bytes())
	return b.Bytes()
}

func TestDecodeWAVPassthrough(t *testing.T) {
	samples := []int16{0, 100, -100, 32767, -32768}
	got, err := Decode(NewStream(wavFile(samples, 48000, 1), FormatWAV), 48000, 1)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !bytes.Equal(got, samplesToBytes(samples)) {
		t.Errorf("samples changed: %v", bytesToSamples(got))
	}
}

func TestDecodeWAVDownmix(t *testing.T) {
	stereo := []int16{100, 300, -50, -150}
	got, err := Decode(NewStream(wavFile(stereo, 48000, 2), FormatWAV), 48000, 1)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	want := []int16{200, -100}
	if s := bytesToSamples(got); len(s) != 2 || s[0] != want[0] || s[1] != want[1] {
		t.Errorf("downmix = %v, want %v", s, want)
	}
}

func TestDecodeResample(t *testing.T) {
	mono := make([]int16, 2400)
	got, err := Decode(NewPCMStream(samplesToBytes(mono), 24000, 1), 48000, 1)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if n := len(got) / 2; n != 4800 {
		t.Errorf("expected 4800 samples, got %d", n)
	}
	if d := Duration(got, 48000, 1); d != 100*time.Millisecond {
		t.Errorf("Duration = %v, want 100ms", d)
	}
}

func TestResampleInterpolates(t *testing.T) {
	got := resample([]int16{0, 100}, 1, 1, 2)
	want := []int16{0, 50, 100, 100}
	if len(got) != len(want) {
		t.Fatalf("resample length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("resample = %v, want %v", got, want)
			break
		}
	}
}

func TestRemixUpmix(t *testing.T) {
	got := remix([]int16{7, -7}, 1, 2)
	want := []int16{7, 7, -7, -7}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("remix = %v, want %v", got, want)
		}
	}
}

func TestDecodeErrors(t *testing.T) {
	closed := NewStream([]byte{1, 2}, FormatWAV)
	_ = closed.Close()

	noData := wavFile(nil, 48000, 1)
	noData = noData[:len(noData)-8] // drop the data chunk header

	eightBit := wavFile([]int16{1}, 48000, 1)
	binary.LittleEndian.PutUint16(eightBit[34:36], 8)

	tests := []struct {
		name   string
		stream *Stream
		want   error
	}{
		{"closed", closed, ErrStreamClosed},
		{"empty", NewStream(nil, FormatMP3), ErrEmptyAudio},
		{"not riff", NewStream([]byte("hello world, not audio"), FormatWAV), ErrNotWAV},
		{"no data chunk", NewStream(noData, FormatWAV), ErrNotWAV},
		{"8 bit", NewStream(eightBit, FormatWAV), ErrUnsupportedWAV},
		{"unknown format", NewStream([]byte{1, 2}, Format("ogg")), ErrUnknownFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.stream, 48000, 1); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestDecodeInvalidMP3(t *testing.T) {
	if _, err := Decode(NewStream([]byte("not an mp3 at all"), FormatMP3), 48000, 1); err == nil {
		t.Error("expected error for invalid mp3")
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"mp3": FormatMP3, " WAV ": FormatWAV, "pcm": FormatPCM} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("flac"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestStreamClose(t *testing.T) {
	s, err := ReadStream(bytes.NewReader([]byte{1, 2, 3}), FormatMP3)
	if err != nil {
		t.Fatal(err)
	}
	if s.Size() != 3 || s.Format() != FormatMP3 {
		t.Errorf("unexpected stream: size %d format %s", s.Size(), s.Format())
	}
	_ = s.Close()
	_ = s.Close()
	if !s.IsClosed() || s.Bytes() != nil {
		t.Error("Close did not release data")
	}
}
