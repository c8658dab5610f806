package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfig = `# HTTP listener port (PORT)
port: 3000
# word that marks clipboard text for reading (TRIGGER_WORD)
trigger_word: "TTS"
# speech provider: azureai, openai or mock (TTS_SERVICE)
provider: "azureai"
# voice settings file, JSON or YAML (VOICE_SETTINGS)
# voice_settings: "voiceSettings.json"
# reload voice settings when the file changes
watch_voice_settings: false
# debug, info, warn or error
log_level: "info"
# also write logs to the user log directory
log_file: false

clipboard:
  enabled: true
  interval: "1s"
  # desktop notification when clipboard input is accepted
  notify: true

http:
  enabled: true
  # serve Prometheus metrics on /metrics
  metrics: true

azure:
  # SPEECH_KEY and SPEECH_REGION take precedence
  key: ""
  region: ""

openai:
  # OPENAI_API_KEY takes precedence
  key: ""
  base_url: "https://api.openai.com/v1"
  model: "tts-1"
  voice: "shimmer"

audio:
  # 44100 or 48000
  sample_rate: 48000
  # 0.0 to 1.0
  volume: 1.0

cache:
  enabled: true
  # dir: "~/.cache/clipspeak"
  memory_mb: 64
  # 0 keeps the cache in memory only
  disk_mb: 512
  ttl: "168h"

timeouts:
  synthesis: "30s"
  playback: "10m"

extract:
  # allow /extract-text to fetch from private networks
  allow_private: false
  timeout: "15s"

requests_per_minute: 60
`

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the clipspeak config file",
	Long:    paragraph(fmt.Sprintf("\n%s the clipspeak config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("clipspeak config\nclipspeak config --config path/to/config.yml"),
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("clipspeak", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
		if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil { //nolint:gosec
			return fmt.Errorf("could not write configuration file: %w", err)
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		// File doesn't exist yet, create all necessary directories and
		// write the default config file
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil { // some other error occurred
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
