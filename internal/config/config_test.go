package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dgnsrekt/clipspeak/internal/tts"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

var envVars = []string{"PORT", "TRIGGER_WORD", "TTS_SERVICE", "SPEECH_KEY", "SPEECH_REGION", "OPENAI_API_KEY", "VOICE_SETTINGS"}

// clearEnv unsets the listener variables for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envVars {
		t.Setenv(k, "")
		_ = os.Unsetenv(k)
	}
	home := t.TempDir()
	t.Setenv("HOME", home)
	homedir.DisableCache = true
	t.Setenv("XDG_CACHE_HOME", filepath.Join(home, ".cache"))
}

func load(t *testing.T, yml string) Config {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	if yml != "" {
		v.SetConfigType("yaml")
		if err := v.ReadConfig(strings.NewReader(yml)); err != nil {
			t.Fatalf("ReadConfig() error = %v", err)
		}
	}
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return cfg
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg := load(t, "")

	if cfg.Port != 3000 || cfg.TriggerWord != "TTS" || cfg.Provider != "azureai" {
		t.Errorf("defaults = port %d trigger %q provider %q", cfg.Port, cfg.TriggerWord, cfg.Provider)
	}
	if cfg.Clipboard.Interval != time.Second || !cfg.Clipboard.Enabled {
		t.Errorf("clipboard = %+v", cfg.Clipboard)
	}
	if cfg.OpenAI.Model != "tts-1" || cfg.OpenAI.Voice != "shimmer" {
		t.Errorf("openai = %+v", cfg.OpenAI)
	}
	if cfg.Cache.Dir == "" {
		t.Error("cache dir should default to the user cache directory")
	}
	if cfg.Timeouts.Synthesis != tts.DefaultSynthesisTimeout {
		t.Errorf("synthesis timeout = %v", cfg.Timeouts.Synthesis)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8080")
	t.Setenv("TTS_SERVICE", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("SPEECH_REGION", "westus")

	cfg := load(t, `
port: 4000
trigger_word: "say"
provider: azureai
voice_settings: "~/voices.json"
azure:
  key: file-key
  region: eastus
clipboard:
  interval: 250ms
cache:
  dir: ~/tts-cache
  ttl: 1h
`)

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, env should win", cfg.Port)
	}
	if cfg.TriggerWord != "say" {
		t.Errorf("TriggerWord = %q", cfg.TriggerWord)
	}
	if cfg.Provider != "openai" || cfg.OpenAI.Key != "sk-env" {
		t.Errorf("provider = %q key = %q", cfg.Provider, cfg.OpenAI.Key)
	}
	if cfg.Azure.Key != "file-key" || cfg.Azure.Region != "westus" {
		t.Errorf("azure = %+v", cfg.Azure)
	}
	if cfg.Clipboard.Interval != 250*time.Millisecond || cfg.Cache.TTL != time.Hour {
		t.Errorf("durations = %v %v", cfg.Clipboard.Interval, cfg.Cache.TTL)
	}

	home := os.Getenv("HOME")
	if cfg.VoiceSettings != filepath.Join(home, "voices.json") {
		t.Errorf("VoiceSettings = %q", cfg.VoiceSettings)
	}
	if cfg.Cache.Dir != filepath.Join(home, "tts-cache") {
		t.Errorf("Cache.Dir = %q", cfg.Cache.Dir)
	}
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	base := load(t, "")
	base.Azure = AzureConfig{Key: "k", Region: "eastus"}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
		ok      bool
	}{
		{"valid azure", func(*Config) {}, nil, true},
		{"valid openai", func(c *Config) { c.Provider = "openai"; c.OpenAI.Key = "k" }, nil, true},
		{"valid mock", func(c *Config) { c.Provider = "mock"; c.Azure = AzureConfig{} }, nil, true},
		{"unknown provider", func(c *Config) { c.Provider = "polly" }, tts.ErrUnknownProvider, false},
		{"azure missing region", func(c *Config) { c.Azure.Region = "" }, tts.ErrMissingCredentials, false},
		{"openai missing key", func(c *Config) { c.Provider = "openai" }, tts.ErrMissingCredentials, false},
		{"bad port", func(c *Config) { c.Port = 70000 }, nil, false},
		{"empty trigger", func(c *Config) { c.TriggerWord = " " }, nil, false},
		{"zero interval", func(c *Config) { c.Clipboard.Interval = 0 }, nil, false},
		{"zero interval without clipboard", func(c *Config) { c.Clipboard.Enabled = false; c.Clipboard.Interval = 0 }, nil, true},
		{"bad sample rate", func(c *Config) { c.Audio.SampleRate = 22050 }, nil, false},
		{"bad volume", func(c *Config) { c.Audio.Volume = 1.5 }, nil, false},
		{"zero timeout", func(c *Config) { c.Timeouts.Playback = 0 }, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if !tts.IsKind(err, tts.KindConfig) {
				t.Fatalf("Validate() error = %v, want config error", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDerivedConfigs(t *testing.T) {
	clearEnv(t)
	cfg := load(t, "")
	cfg.Host = "127.0.0.1"

	if got := cfg.Addr(); got != "127.0.0.1:3000" {
		t.Errorf("Addr() = %q", got)
	}

	ec := cfg.Engines("clipspeak/test")
	if ec.Provider != "azureai" || ec.UserAgent != "clipspeak/test" || ec.RequestsPerMinute != 60 {
		t.Errorf("Engines() = %+v", ec)
	}

	cc := cfg.CacheManager()
	if cc.MemoryCapacity != 64<<20 || cc.DiskCapacity != 512<<20 {
		t.Errorf("CacheManager() sizes = %d %d", cc.MemoryCapacity, cc.DiskCapacity)
	}
	if cc.DiskPath != filepath.Join(cfg.Cache.Dir, "audio") {
		t.Errorf("DiskPath = %q", cc.DiskPath)
	}

	cfg.Cache.DiskMB = 0
	if cc := cfg.CacheManager(); cc.DiskPath != "" {
		t.Errorf("DiskPath = %q, want memory only", cc.DiskPath)
	}
}

func TestConfigDirsOverrides(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	t.Setenv("CLIPSPEAK_CONFIG_HOME", "/custom")

	dirs, err := ConfigDirs()
	if err != nil {
		t.Fatalf("ConfigDirs() error = %v", err)
	}
	if len(dirs) < 2 || dirs[0] != "/custom" || dirs[1] != filepath.Join("/xdg", AppName) {
		t.Errorf("ConfigDirs() = %v", dirs)
	}
}
