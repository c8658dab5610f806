package engines

import (
	"bytes"
	"context"
	"encoding/json"
	"html"
	"net/http"
	"strings"

	"github.com/dgnsrekt/clipspeak/internal/audio"
	"github.com/dgnsrekt/clipspeak/internal/text"
	"github.com/dgnsrekt/clipspeak/internal/tts"
)

// OpenAI defaults.
const (
	OpenAIBaseURL = "https://api.openai.com/v1"
	OpenAIModel   = "tts-1"
	OpenAIVoice   = "shimmer"
)

// OpenAIConfig configures the OpenAI speech engine.
type OpenAIConfig struct {
	Key     string
	BaseURL string
	Model   string
	Voice   string
}

// OpenAIEngine synthesizes plain text with the OpenAI speech endpoint.
type OpenAIEngine struct {
	key   string
	url   string
	model string
	voice string
	http  httpOptions
}

type speechRequest struct {
	Model          string `json:"model"`
	Voice          string `json:"voice"`
	Input          string `json:"input"`
	ResponseFormat string `json:"response_format"`
}

// NewOpenAI creates an OpenAI engine from cfg.OpenAI. The key is required.
func NewOpenAI(c Config) (*OpenAIEngine, error) {
	cfg := c.OpenAI
	if cfg.Key == "" {
		return nil, tts.ConfigError("OPENAI_API_KEY is required for openai", tts.ErrMissingCredentials)
	}
	base := cfg.BaseURL
	if base == "" {
		base = OpenAIBaseURL
	}
	e := &OpenAIEngine{
		key:   cfg.Key,
		url:   strings.TrimRight(base, "/") + "/audio/speech",
		model: cfg.Model,
		voice: cfg.Voice,
		http:  c.options(),
	}
	if e.model == "" {
		e.model = OpenAIModel
	}
	if e.voice == "" {
		e.voice = OpenAIVoice
	}
	return e, nil
}

// Synthesize returns an MP3 stream for the request text. Queued text is XML
// escaped for SSML providers, so it is unescaped before sending.
func (e *OpenAIEngine) Synthesize(ctx context.Context, req tts.Request) (*audio.Stream, error) {
	body, err := json.Marshal(speechRequest{
		Model:          e.model,
		Voice:          e.voice,
		Input:          html.UnescapeString(req.Text),
		ResponseFormat: string(audio.FormatMP3),
	})
	if err != nil {
		return nil, tts.SynthesisError(ProviderOpenAI, err)
	}

	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return nil, tts.SynthesisError(ProviderOpenAI, err)
	}
	hreq.Header.Set("Authorization", "Bearer "+e.key)
	hreq.Header.Set("Content-Type", "application/json")

	return e.http.do(ctx, ProviderOpenAI, hreq, audio.FormatMP3)
}

// Info describes the engine.
func (e *OpenAIEngine) Info() tts.EngineInfo {
	return tts.EngineInfo{
		Name:        ProviderOpenAI,
		Voice:       e.voice,
		Format:      audio.FormatMP3,
		MaxTextSize: text.DefaultChunkSize,
	}
}

// Close is a no-op.
func (e *OpenAIEngine) Close() error { return nil }
