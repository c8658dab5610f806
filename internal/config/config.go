// Package config assembles the runtime configuration from the config file,
// a .env file and the process environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/clipspeak/internal/cache"
	"github.com/dgnsrekt/clipspeak/internal/tts"
	"github.com/dgnsrekt/clipspeak/internal/tts/engines"
	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/viper"
)

// AppName names the config file, the env prefix and the app directories.
const AppName = "clipspeak"

// Config is the resolved configuration.
type Config struct {
	Port        int    `mapstructure:"port"`
	Host        string `mapstructure:"host"`
	TriggerWord string `mapstructure:"trigger_word"`
	Provider    string `mapstructure:"provider"`

	VoiceSettings      string `mapstructure:"voice_settings"`
	WatchVoiceSettings bool   `mapstructure:"watch_voice_settings"`

	LogLevel string `mapstructure:"log_level"`
	LogFile  bool   `mapstructure:"log_file"`

	Clipboard ClipboardConfig `mapstructure:"clipboard"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Azure     AzureConfig     `mapstructure:"azure"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Audio     AudioConfig     `mapstructure:"audio"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Timeouts  TimeoutConfig   `mapstructure:"timeouts"`
	Extract   ExtractConfig   `mapstructure:"extract"`

	RequestsPerMinute int `mapstructure:"requests_per_minute"`
}

// ClipboardConfig controls the clipboard poller.
type ClipboardConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
	Notify   bool          `mapstructure:"notify"`
}

// HTTPConfig controls the HTTP listener.
type HTTPConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Metrics bool `mapstructure:"metrics"`
}

// AzureConfig holds Azure Cognitive Speech credentials.
type AzureConfig struct {
	Key    string `mapstructure:"key"`
	Region string `mapstructure:"region"`
}

// OpenAIConfig holds OpenAI speech settings.
type OpenAIConfig struct {
	Key     string `mapstructure:"key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
	Voice   string `mapstructure:"voice"`
}

// AudioConfig configures the output device.
type AudioConfig struct {
	SampleRate int     `mapstructure:"sample_rate"`
	Volume     float64 `mapstructure:"volume"`
}

// CacheConfig configures the synthesized audio cache. Sizes are in MB.
type CacheConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Dir      string        `mapstructure:"dir"`
	MemoryMB int64         `mapstructure:"memory_mb"`
	DiskMB   int64         `mapstructure:"disk_mb"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// TimeoutConfig bounds each provider call and each clip's playback.
type TimeoutConfig struct {
	Synthesis time.Duration `mapstructure:"synthesis"`
	Playback  time.Duration `mapstructure:"playback"`
}

// ExtractConfig configures URL extraction.
type ExtractConfig struct {
	AllowPrivate bool          `mapstructure:"allow_private"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// Env holds the variables the listener has always read from the
// environment. Set values override the config file.
type Env struct {
	Port          int    `env:"PORT"`
	TriggerWord   string `env:"TRIGGER_WORD"`
	Service       string `env:"TTS_SERVICE"`
	SpeechKey     string `env:"SPEECH_KEY"`
	SpeechRegion  string `env:"SPEECH_REGION"`
	OpenAIKey     string `env:"OPENAI_API_KEY"`
	VoiceSettings string `env:"VOICE_SETTINGS"`
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("port", 3000)
	v.SetDefault("host", "")
	v.SetDefault("trigger_word", "TTS")
	v.SetDefault("provider", engines.ProviderAzure)
	v.SetDefault("voice_settings", "voiceSettings.json")
	v.SetDefault("watch_voice_settings", false)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", false)

	v.SetDefault("clipboard.enabled", true)
	v.SetDefault("clipboard.interval", time.Second)
	v.SetDefault("clipboard.notify", true)
	v.SetDefault("http.enabled", true)
	v.SetDefault("http.metrics", true)

	v.SetDefault("openai.base_url", engines.OpenAIBaseURL)
	v.SetDefault("openai.model", engines.OpenAIModel)
	v.SetDefault("openai.voice", engines.OpenAIVoice)

	v.SetDefault("audio.sample_rate", 48000)
	v.SetDefault("audio.volume", 1.0)

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.dir", "")
	v.SetDefault("cache.memory_mb", 64)
	v.SetDefault("cache.disk_mb", 512)
	v.SetDefault("cache.ttl", 7*24*time.Hour)

	v.SetDefault("timeouts.synthesis", tts.DefaultSynthesisTimeout)
	v.SetDefault("timeouts.playback", tts.DefaultPlaybackTimeout)

	v.SetDefault("extract.allow_private", false)
	v.SetDefault("extract.timeout", 15*time.Second)

	v.SetDefault("requests_per_minute", 60)
}

// Load reads a .env file from the working directory if there is one, then
// resolves v and the environment into a Config. It does not validate.
func Load(v *viper.Viper) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("Could not parse .env file", "err", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, tts.ConfigError("unable to decode configuration", err)
	}

	e, err := env.ParseAs[Env]()
	if err != nil {
		return cfg, tts.ConfigError("unable to parse environment", err)
	}
	cfg.applyEnv(e)

	if err := cfg.expandPaths(); err != nil {
		return cfg, tts.ConfigError("unable to expand paths", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv(e Env) {
	if e.Port != 0 {
		c.Port = e.Port
	}
	if e.TriggerWord != "" {
		c.TriggerWord = e.TriggerWord
	}
	if e.Service != "" {
		c.Provider = e.Service
	}
	if e.SpeechKey != "" {
		c.Azure.Key = e.SpeechKey
	}
	if e.SpeechRegion != "" {
		c.Azure.Region = e.SpeechRegion
	}
	if e.OpenAIKey != "" {
		c.OpenAI.Key = e.OpenAIKey
	}
	if e.VoiceSettings != "" {
		c.VoiceSettings = e.VoiceSettings
	}
}

func (c *Config) expandPaths() error {
	var err error
	if c.VoiceSettings, err = homedir.Expand(c.VoiceSettings); err != nil {
		return err
	}
	if c.Cache.Dir == "" {
		c.Cache.Dir, err = DefaultCacheDir()
		return err
	}
	c.Cache.Dir, err = homedir.Expand(c.Cache.Dir)
	return err
}

// Validate reports the first configuration problem as a config error.
func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return tts.ConfigError(fmt.Sprintf("port must be between 1 and 65535, got %d", c.Port), nil)
	}
	if strings.TrimSpace(c.TriggerWord) == "" {
		return tts.ConfigError("trigger word cannot be empty", nil)
	}

	switch strings.ToLower(c.Provider) {
	case engines.ProviderAzure:
		if c.Azure.Key == "" || c.Azure.Region == "" {
			return tts.ConfigError("SPEECH_KEY and SPEECH_REGION are required for azureai", tts.ErrMissingCredentials)
		}
	case engines.ProviderOpenAI:
		if c.OpenAI.Key == "" {
			return tts.ConfigError("OPENAI_API_KEY is required for openai", tts.ErrMissingCredentials)
		}
	case engines.ProviderMock:
	default:
		return tts.ConfigError(fmt.Sprintf("unsupported TTS service %q", c.Provider), tts.ErrUnknownProvider)
	}

	if c.Clipboard.Enabled && c.Clipboard.Interval <= 0 {
		return tts.ConfigError("clipboard interval must be positive", nil)
	}
	if c.Audio.SampleRate != 44100 && c.Audio.SampleRate != 48000 {
		return tts.ConfigError(fmt.Sprintf("audio sample rate must be 44100 or 48000, got %d", c.Audio.SampleRate), nil)
	}
	if c.Audio.Volume < 0 || c.Audio.Volume > 1 {
		return tts.ConfigError(fmt.Sprintf("audio volume must be between 0 and 1, got %.2f", c.Audio.Volume), nil)
	}
	if c.Cache.Enabled && (c.Cache.MemoryMB < 1 || c.Cache.DiskMB < 0) {
		return tts.ConfigError("cache sizes must be positive", nil)
	}
	if c.Timeouts.Synthesis <= 0 || c.Timeouts.Playback <= 0 {
		return tts.ConfigError("timeouts must be positive", nil)
	}
	return nil
}

// Addr returns the HTTP listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Engines returns the provider configuration.
func (c Config) Engines(userAgent string) engines.Config {
	return engines.Config{
		Provider: c.Provider,
		Azure: engines.AzureConfig{
			Key:    c.Azure.Key,
			Region: c.Azure.Region,
		},
		OpenAI: engines.OpenAIConfig{
			Key:     c.OpenAI.Key,
			BaseURL: c.OpenAI.BaseURL,
			Model:   c.OpenAI.Model,
			Voice:   c.OpenAI.Voice,
		},
		RequestsPerMinute: c.RequestsPerMinute,
		UserAgent:         userAgent,
	}
}

// CacheManager returns the audio cache configuration. A zero disk size
// keeps the cache in memory only.
func (c Config) CacheManager() cache.Config {
	cc := cache.DefaultConfig()
	cc.MemoryCapacity = c.Cache.MemoryMB << 20
	cc.DiskCapacity = c.Cache.DiskMB << 20
	cc.TTL = c.Cache.TTL
	if c.Cache.DiskMB > 0 {
		cc.DiskPath = filepath.Join(c.Cache.Dir, "audio")
	}
	return cc
}

// ConfigDirs returns the directories searched for clipspeak.yml, most
// specific first.
func ConfigDirs() ([]string, error) {
	dirs, err := gap.NewScope(gap.User, AppName).ConfigDirs()
	if err != nil {
		return nil, err
	}
	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, AppName)}, dirs...)
	}
	if c := os.Getenv("CLIPSPEAK_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}
	return dirs, nil
}

// DefaultCacheDir returns the per-user cache directory.
func DefaultCacheDir() (string, error) {
	return gap.NewScope(gap.User, AppName).CacheDir()
}

// LogPath returns the log file location.
func LogPath() (string, error) {
	return gap.NewScope(gap.User, AppName).LogPath(AppName + ".log")
}
