// Package voice loads the voice settings file: voice name, locale, speaking
// style, prosody and the SSML decoration rules applied before synthesis.
package voice

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Defaults mirror the stock Azure neural voice setup.
const (
	DefaultVoiceName = "en-AU-FreyaNeural"
	DefaultLanguage  = "en-US"
	DefaultStyle     = "assistant"
	DefaultRate      = "medium"
	DefaultPitch     = "medium"
)

// Decoration rule types.
const (
	DecorationPhoneme = "phoneme"
	DecorationSayAs   = "say-as"
	DecorationSub     = "sub"
)

var (
	// ErrNoVoiceName is returned when the settings do not name a voice.
	ErrNoVoiceName = errors.New("voice name is required")

	// ErrInvalidLanguage is returned when the locale is not a BCP 47 tag.
	ErrInvalidLanguage = errors.New("invalid language tag")

	// ErrInvalidDecoration is returned for a known rule type missing its fields.
	ErrInvalidDecoration = errors.New("invalid ssml decoration")
)

// Options holds the expressive style and prosody of the voice.
type Options struct {
	Style string `json:"style" yaml:"style"`
	Rate  string `json:"rate" yaml:"rate"`
	Pitch string `json:"pitch" yaml:"pitch"`
}

// Decoration is a single SSML decoration rule. Only the fields relevant to
// Type are used: Text and Phonetic for phoneme, Text and InterpretAs for
// say-as, Original and Substitute for sub.
type Decoration struct {
	Type        string `json:"type" yaml:"type"`
	Text        string `json:"text,omitempty" yaml:"text,omitempty"`
	Phonetic    string `json:"phonetic,omitempty" yaml:"phonetic,omitempty"`
	InterpretAs string `json:"interpret-as,omitempty" yaml:"interpret-as,omitempty"`
	Original    string `json:"original,omitempty" yaml:"original,omitempty"`
	Substitute  string `json:"substitute,omitempty" yaml:"substitute,omitempty"`
}

// Target returns the literal text the rule decorates.
func (d Decoration) Target() string {
	if d.Type == DecorationSub {
		return d.Original
	}
	return d.Text
}

// Settings is the voice configuration handed to the SSML composer and the
// synthesis engines.
type Settings struct {
	VoiceName       string       `json:"voiceName" yaml:"voiceName"`
	Language        string       `json:"language,omitempty" yaml:"language,omitempty"`
	Options         Options      `json:"options" yaml:"options"`
	SSMLDecorations []Decoration `json:"ssmlDecorations,omitempty" yaml:"ssmlDecorations,omitempty"`
}

// Default returns the built-in settings used when no file is configured.
func Default() Settings {
	return Settings{
		VoiceName: DefaultVoiceName,
		Language:  DefaultLanguage,
		Options: Options{
			Style: DefaultStyle,
			Rate:  DefaultRate,
			Pitch: DefaultPitch,
		},
	}
}

// Load reads settings from path. Files ending in .yml or .yaml are parsed as
// YAML, everything else as JSON. Missing optional fields take their defaults.
func Load(path string) (Settings, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("unable to read voice settings: %w", err)
	}
	return Parse(b, filepath.Ext(path))
}

// Parse decodes settings from b. ext selects the format the same way Load
// does.
func Parse(b []byte, ext string) (Settings, error) {
	s := Default()
	s.VoiceName = ""

	switch strings.ToLower(ext) {
	case ".yml", ".yaml":
		if err := yaml.Unmarshal(b, &s); err != nil {
			return Settings{}, fmt.Errorf("unable to parse voice settings: %w", err)
		}
	default:
		if err := json.Unmarshal(b, &s); err != nil {
			return Settings{}, fmt.Errorf("unable to parse voice settings: %w", err)
		}
	}

	s.applyDefaults()
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func (s *Settings) applyDefaults() {
	if s.Language == "" {
		s.Language = DefaultLanguage
	}
	if s.Options.Style == "" {
		s.Options.Style = DefaultStyle
	}
	if s.Options.Rate == "" {
		s.Options.Rate = DefaultRate
	}
	if s.Options.Pitch == "" {
		s.Options.Pitch = DefaultPitch
	}
}

// Validate checks the settings. Rules with an unknown type are accepted here
// and skipped when SSML is composed.
func (s Settings) Validate() error {
	if strings.TrimSpace(s.VoiceName) == "" {
		return ErrNoVoiceName
	}
	if _, err := language.Parse(s.Language); err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidLanguage, s.Language, err)
	}
	for i, d := range s.SSMLDecorations {
		switch d.Type {
		case DecorationPhoneme:
			if d.Text == "" || d.Phonetic == "" {
				return fmt.Errorf("%w #%d: phoneme needs text and phonetic", ErrInvalidDecoration, i)
			}
		case DecorationSayAs:
			if d.Text == "" || d.InterpretAs == "" {
				return fmt.Errorf("%w #%d: say-as needs text and interpret-as", ErrInvalidDecoration, i)
			}
		case DecorationSub:
			if d.Original == "" || d.Substitute == "" {
				return fmt.Errorf("%w #%d: sub needs original and substitute", ErrInvalidDecoration, i)
			}
		}
	}
	return nil
}

// Locale returns the canonical form of the language tag, falling back to
// DefaultLanguage when the tag cannot be parsed.
func (s Settings) Locale() string {
	tag, err := language.Parse(s.Language)
	if err != nil {
		return DefaultLanguage
	}
	return tag.String()
}
