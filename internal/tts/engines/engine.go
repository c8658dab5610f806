package engines

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dgnsrekt/clipspeak/internal/audio"
	"github.com/dgnsrekt/clipspeak/internal/tts"
	"golang.org/x/time/rate"
)

// Provider names accepted by New.
const (
	ProviderAzure  = "azureai"
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"
)

const (
	defaultRequestsPerMinute = 60
	defaultHTTPTimeout       = 60 * time.Second

	// Response bodies larger than this are not audio we can play.
	maxResponseSize = 64 << 20
	maxErrorBody    = 4 << 10
)

// Config selects and configures a provider.
type Config struct {
	Provider string

	Azure  AzureConfig
	OpenAI OpenAIConfig
	Mock   MockConfig

	// RequestsPerMinute bounds provider calls. Zero uses the default.
	RequestsPerMinute int

	// HTTPClient overrides the client used for provider calls.
	HTTPClient *http.Client

	// UserAgent is sent with every provider request.
	UserAgent string
}

// New returns the synthesizer named by cfg.Provider.
func New(cfg Config) (tts.Synthesizer, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case ProviderAzure:
		e, err := NewAzure(cfg)
		if err != nil {
			return nil, err
		}
		return e, nil
	case ProviderOpenAI:
		e, err := NewOpenAI(cfg)
		if err != nil {
			return nil, err
		}
		return e, nil
	case ProviderMock:
		return NewMock(cfg.Mock), nil
	default:
		return nil, tts.ConfigError(fmt.Sprintf("unsupported TTS service %q", cfg.Provider), tts.ErrUnknownProvider).
			WithContext("supported", []string{ProviderAzure, ProviderOpenAI, ProviderMock})
	}
}

// httpOptions are shared by the REST engines.
type httpOptions struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
}

func (cfg Config) options() httpOptions {
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = defaultRequestsPerMinute
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = "clipspeak"
	}
	return httpOptions{
		client:    client,
		limiter:   rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1),
		userAgent: ua,
	}
}

// do waits for the rate limiter, sends req and reads the audio body. Any
// failure is returned as a synthesis error for provider.
func (o httpOptions) do(ctx context.Context, provider string, req *http.Request, format audio.Format) (*audio.Stream, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return nil, tts.SynthesisError(provider, fmt.Errorf("rate limit wait cancelled: %w", err))
	}

	req.Header.Set("User-Agent", o.userAgent)
	resp, err := o.client.Do(req.WithContext(ctx))
	if err != nil {
		return nil, tts.SynthesisError(provider, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, tts.SynthesisError(provider, fmt.Errorf("unexpected status %s", resp.Status)).
			WithContext("status", resp.StatusCode).
			WithContext("body", strings.TrimSpace(string(body)))
	}

	stream, err := audio.ReadStream(io.LimitReader(resp.Body, maxResponseSize), format)
	if err != nil {
		return nil, tts.SynthesisError(provider, fmt.Errorf("reading audio: %w", err))
	}
	if stream.Size() == 0 {
		return nil, tts.SynthesisError(provider, audio.ErrEmptyAudio)
	}
	return stream, nil
}
