package voice

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const sampleJSON = `{
  "voiceName": "en-GB-SoniaNeural",
  "options": {"style": "cheerful", "rate": "fast"},
  "ssmlDecorations": [
    {"type": "phoneme", "text": "Azure", "phonetic": "ˈæʒər"},
    {"type": "say-as", "text": "2024", "interpret-as": "date"},
    {"type": "sub", "original": "Dr.", "substitute": "Doctor"},
    {"type": "emphasis", "text": "really"}
  ]
}`

const sampleYAML = `voiceName: en-US-JennyNeural
language: en-GB
options:
  pitch: high
ssmlDecorations:
  - type: sub
    original: WHO
    substitute: World Health Organization
`

func TestParseJSON(t *testing.T) {
	s, err := Parse([]byte(sampleJSON), ".json")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if s.VoiceName != "en-GB-SoniaNeural" {
		t.Errorf("VoiceName = %q", s.VoiceName)
	}
	if s.Language != DefaultLanguage {
		t.Errorf("Language = %q, want default", s.Language)
	}
	if s.Options.Style != "cheerful" || s.Options.Rate != "fast" || s.Options.Pitch != DefaultPitch {
		t.Errorf("Options = %+v", s.Options)
	}
	if len(s.SSMLDecorations) != 4 {
		t.Fatalf("expected 4 decorations, got %d", len(s.SSMLDecorations))
	}
	if got := s.SSMLDecorations[1].InterpretAs; got != "date" {
		t.Errorf("interpret-as = %q", got)
	}
	if got := s.SSMLDecorations[2].Target(); got != "Dr." {
		t.Errorf("sub target = %q", got)
	}
}

func TestParseYAML(t *testing.T) {
	s, err := Parse([]byte(sampleYAML), ".yaml")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if s.VoiceName != "en-US-JennyNeural" || s.Language != "en-GB" {
		t.Errorf("unexpected settings: %+v", s)
	}
	if s.Options.Pitch != "high" || s.Options.Style != DefaultStyle {
		t.Errorf("Options = %+v", s.Options)
	}
	if len(s.SSMLDecorations) != 1 || s.SSMLDecorations[0].Substitute != "World Health Organization" {
		t.Errorf("decorations = %+v", s.SSMLDecorations)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr error
	}{
		{"default is valid", func(*Settings) {}, nil},
		{"missing voice", func(s *Settings) { s.VoiceName = " " }, ErrNoVoiceName},
		{"bad language", func(s *Settings) { s.Language = "not a tag!" }, ErrInvalidLanguage},
		{"phoneme without phonetic", func(s *Settings) {
			s.SSMLDecorations = []Decoration{{Type: DecorationPhoneme, Text: "x"}}
		}, ErrInvalidDecoration},
		{"sub without substitute", func(s *Settings) {
			s.SSMLDecorations = []Decoration{{Type: DecorationSub, Original: "x"}}
		}, ErrInvalidDecoration},
		{"unknown type accepted", func(s *Settings) {
			s.SSMLDecorations = []Decoration{{Type: "prosody"}}
		}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Default()
			tt.mutate(&s)
			err := s.Validate()
			if tt.wantErr == nil && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestParseRequiresVoiceName(t *testing.T) {
	if _, err := Parse([]byte(`{"options":{}}`), ".json"); !errors.Is(err, ErrNoVoiceName) {
		t.Errorf("expected ErrNoVoiceName, got %v", err)
	}
	if _, err := Parse([]byte(`{`), ".json"); err == nil {
		t.Error("expected error for malformed JSON")
	}
}

func TestStoreReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voiceSettings.json")
	if err := os.WriteFile(path, []byte(sampleJSON), 0o600); err != nil {
		t.Fatal(err)
	}

	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	if store.Get().VoiceName != "en-GB-SoniaNeural" {
		t.Fatalf("unexpected voice %q", store.Get().VoiceName)
	}

	// a broken file keeps the old settings
	if err := os.WriteFile(path, []byte(`{"voiceName": ""}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := store.Reload(); err == nil {
		t.Error("expected reload error")
	}
	if store.Get().VoiceName != "en-GB-SoniaNeural" {
		t.Error("failed reload replaced settings")
	}

	if err := os.WriteFile(path, []byte(`{"voiceName": "en-IE-EmilyNeural"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := store.Reload(); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if store.Get().VoiceName != "en-IE-EmilyNeural" {
		t.Errorf("reload not applied: %q", store.Get().VoiceName)
	}
}

func TestStoreGetReturnsCopy(t *testing.T) {
	s := Default()
	s.SSMLDecorations = []Decoration{{Type: DecorationSub, Original: "a", Substitute: "b"}}
	store := NewStaticStore(s)

	got := store.Get()
	got.SSMLDecorations[0].Substitute = "changed"
	if store.Get().SSMLDecorations[0].Substitute != "b" {
		t.Error("Get exposed internal slice")
	}
}

func TestNewStoreWithoutPath(t *testing.T) {
	store, err := NewStore("")
	if err != nil {
		t.Fatal(err)
	}
	if store.Get().VoiceName != DefaultVoiceName {
		t.Errorf("expected default voice, got %q", store.Get().VoiceName)
	}
	if err := store.Reload(); err != nil {
		t.Errorf("Reload without path should be a no-op: %v", err)
	}
}
