// Package main provides the entry point for the clipspeak CLI application.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/clipspeak/internal/clipboard"
	"github.com/dgnsrekt/clipspeak/internal/config"
	"github.com/dgnsrekt/clipspeak/internal/extract"
	"github.com/dgnsrekt/clipspeak/internal/metrics"
	"github.com/dgnsrekt/clipspeak/internal/notify"
	"github.com/dgnsrekt/clipspeak/internal/queue"
	"github.com/dgnsrekt/clipspeak/internal/server"
	"github.com/dgnsrekt/clipspeak/internal/text"
	"github.com/dgnsrekt/clipspeak/internal/voice"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile    string
	debug         bool
	port          int
	triggerWord   string
	provider      string
	voiceSettings string
	noClipboard   bool
	noHTTP        bool

	// cfg is resolved before any command runs.
	cfg config.Config

	// voiceSettingsSet is true when the voice settings path was chosen
	// explicitly rather than left at its default.
	voiceSettingsSet bool

	rootCmd = &cobra.Command{
		Use:   "clipspeak",
		Short: "Read the clipboard and HTTP requests aloud",
		Long: paragraph(
			fmt.Sprintf("\nCopy text starting with %s, or POST it to %s, and hear it %s.",
				keyword("TTS"), keyword("/tts"), keyword("spoken")),
		),
		SilenceErrors:     false,
		SilenceUsage:      true,
		TraverseChildren:  true,
		Args:              cobra.NoArgs,
		PersistentPreRunE: loadConfig,
		RunE:              execute,
	}
)

// loadConfig resolves the configuration for every command that needs it.
func loadConfig(cmd *cobra.Command, _ []string) error {
	if cmd == configCmd || cmd == manCmd {
		return nil
	}

	if cmd.Flags().Changed("config") {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("unable to read config file: %w", err)
		}
	}

	var err error
	cfg, err = config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	applyFlags(cmd, &cfg)

	voiceSettingsSet = cmd.Flags().Changed("voice-settings") ||
		os.Getenv("VOICE_SETTINGS") != "" ||
		viper.InConfig("voice_settings")

	return applyLogConfig(cfg, debug)
}

// applyFlags lets flags set on the command line win over the config file
// and the environment.
func applyFlags(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("port") {
		c.Port = port
	}
	if flags.Changed("trigger") {
		c.TriggerWord = triggerWord
	}
	if flags.Changed("provider") {
		c.Provider = provider
	}
	if flags.Changed("voice-settings") {
		c.VoiceSettings = voiceSettings
	}
	if noClipboard {
		c.Clipboard.Enabled = false
	}
	if noHTTP {
		c.HTTP.Enabled = false
	}
}

func execute(cmd *cobra.Command, _ []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if !cfg.Clipboard.Enabled && !cfg.HTTP.Enabled {
		return errors.New("nothing to listen to: clipboard and HTTP are both disabled")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	sp, err := newSpeech(cfg, m)
	if err != nil {
		return err
	}
	defer sp.Close() //nolint:errcheck

	hub := server.NewHub()
	q := queue.New(sp.pipeline, queue.WithObserver(m), queue.WithObserver(hub))
	if err := q.Start(ctx); err != nil {
		return err
	}
	defer q.Close() //nolint:errcheck

	if cfg.WatchVoiceSettings {
		if err := voice.Watch(ctx, sp.voices); err != nil {
			log.Warn("Voice settings will not reload", "err", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Clipboard.Enabled {
		if clipboard.Supported() {
			poller := newClipboardPoller(q, m)
			g.Go(func() error {
				return ignoreCanceled(poller.Run(gctx))
			})
		} else {
			log.Warn("Clipboard is not supported on this system, only HTTP input is available")
		}
	}

	if cfg.HTTP.Enabled {
		ln, err := net.Listen("tcp", cfg.Addr())
		if err != nil {
			return fmt.Errorf("unable to listen on %s: %w", cfg.Addr(), err)
		}
		srv := newServer(q, m, reg, hub)
		fmt.Fprintln(os.Stderr, paragraph(keyword(server.Banner(cfg.Port))))
		g.Go(func() error {
			return srv.Serve(gctx, ln)
		})
	}

	err = g.Wait()
	stats := q.Stats()
	log.Info("Stopped", "enqueued", stats.TotalEnqueued, "processed", stats.TotalProcessed, "failed", stats.TotalFailed)
	return err
}

func newClipboardPoller(q *queue.Queue, m *metrics.Metrics) *clipboard.Poller {
	var n notify.Notifier = notify.Nop{}
	if cfg.Clipboard.Notify {
		n = notify.NewDesktop(config.AppName)
	}
	sink := func(s string) error {
		_, err := q.EnqueueFrom("clipboard", s)
		return err
	}
	return clipboard.NewPoller(clipboard.SystemReader{}, text.NewTrigger(cfg.TriggerWord), sink,
		clipboard.WithInterval(cfg.Clipboard.Interval),
		clipboard.WithNotifier(n),
		clipboard.OnAccept(m.RecordClipboardInput),
	)
}

func newServer(q *queue.Queue, m *metrics.Metrics, reg *prometheus.Registry, hub *server.Hub) *server.Server {
	extractOpts := []extract.URLOption{
		extract.WithTimeout(cfg.Extract.Timeout),
		extract.WithUserAgent(userAgent()),
	}
	if cfg.Extract.AllowPrivate {
		extractOpts = append(extractOpts, extract.AllowPrivate())
	}

	opts := []server.Option{
		server.WithExtractor(extract.NewURLExtractor(extractOpts...)),
		server.WithHub(hub),
	}
	if cfg.HTTP.Metrics {
		opts = append(opts, server.WithMetrics(m, reg))
	} else {
		opts = append(opts, server.WithMetrics(m, nil))
	}
	return server.New(q, opts...)
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	config.SetDefaults(viper.GetViper())
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "log debug output")
	rootCmd.PersistentFlags().StringVar(&provider, "provider", "", "speech provider: azureai, openai or mock")
	rootCmd.PersistentFlags().StringVar(&voiceSettings, "voice-settings", "", "voice settings file (JSON or YAML)")
	rootCmd.Flags().IntVarP(&port, "port", "p", 0, "HTTP listener port")
	rootCmd.Flags().StringVarP(&triggerWord, "trigger", "t", "", "word that marks clipboard text for reading")
	rootCmd.Flags().BoolVar(&noClipboard, "no-clipboard", false, "do not watch the clipboard")
	rootCmd.Flags().BoolVar(&noHTTP, "no-http", false, "do not start the HTTP listener")

	rootCmd.AddCommand(speakCmd, configCmd, manCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	dirs, err := config.ConfigDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName(config.AppName)
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix(config.AppName)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	if viper.ConfigFileUsed() == "" {
		configFile = filepath.Join(dirs[0], config.AppName+".yml")
	}
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
