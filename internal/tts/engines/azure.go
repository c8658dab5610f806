package engines

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/dgnsrekt/clipspeak/internal/audio"
	"github.com/dgnsrekt/clipspeak/internal/ssml"
	"github.com/dgnsrekt/clipspeak/internal/tts"
)

// Azure defaults.
const (
	AzureOutputFormat = "riff-48khz-16bit-mono-pcm"

	// Azure caps a single request at ten minutes of audio; this keeps
	// each chunk comfortably below that.
	azureMaxTextSize = 5000
)

// AzureConfig configures the Azure Cognitive Speech engine.
type AzureConfig struct {
	Key    string
	Region string

	// Endpoint overrides the regional URL.
	Endpoint string
}

// AzureEngine synthesizes SSML documents with the Azure REST API.
type AzureEngine struct {
	key      string
	endpoint string
	http     httpOptions
}

// NewAzure creates an Azure engine from cfg.Azure. Key and region are
// required.
func NewAzure(c Config) (*AzureEngine, error) {
	cfg := c.Azure
	if cfg.Key == "" {
		return nil, tts.ConfigError("SPEECH_KEY is required for azureai", tts.ErrMissingCredentials)
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		if cfg.Region == "" {
			return nil, tts.ConfigError("SPEECH_REGION is required for azureai", tts.ErrMissingCredentials)
		}
		endpoint = fmt.Sprintf("https://%s.tts.speech.microsoft.com/cognitiveservices/v1", cfg.Region)
	}
	return &AzureEngine{key: cfg.Key, endpoint: endpoint, http: c.options()}, nil
}

// Synthesize posts the request's SSML and returns a WAV stream. A request
// without SSML is composed from its text and voice.
func (e *AzureEngine) Synthesize(ctx context.Context, req tts.Request) (*audio.Stream, error) {
	doc := req.SSML
	if doc == "" {
		doc = ssml.Compose(req.Text, req.Voice)
	}

	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, strings.NewReader(doc))
	if err != nil {
		return nil, tts.SynthesisError(ProviderAzure, err)
	}
	hreq.Header.Set("Ocp-Apim-Subscription-Key", e.key)
	hreq.Header.Set("Content-Type", "application/ssml+xml")
	hreq.Header.Set("X-Microsoft-OutputFormat", AzureOutputFormat)

	return e.http.do(ctx, ProviderAzure, hreq, audio.FormatWAV)
}

// Info describes the engine.
func (e *AzureEngine) Info() tts.EngineInfo {
	return tts.EngineInfo{
		Name:        ProviderAzure,
		Format:      audio.FormatWAV,
		SSML:        true,
		MaxTextSize: azureMaxTextSize,
	}
}

// Close is a no-op.
func (e *AzureEngine) Close() error { return nil }
