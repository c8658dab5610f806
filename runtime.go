package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/clipspeak/internal/audio"
	"github.com/dgnsrekt/clipspeak/internal/cache"
	"github.com/dgnsrekt/clipspeak/internal/config"
	"github.com/dgnsrekt/clipspeak/internal/metrics"
	"github.com/dgnsrekt/clipspeak/internal/tts"
	"github.com/dgnsrekt/clipspeak/internal/tts/engines"
	"github.com/dgnsrekt/clipspeak/internal/voice"
	"github.com/dustin/go-humanize"
)

// speech holds the parts shared by the listener and one-shot reading.
type speech struct {
	voices   *voice.Store
	synth    tts.Synthesizer
	player   tts.Player
	cache    *cache.Manager // nil when disabled
	pipeline *tts.Pipeline
}

func newSpeech(cfg config.Config, m *metrics.Metrics) (*speech, error) {
	s := &speech{}

	voices, err := openVoiceStore(cfg)
	if err != nil {
		return nil, err
	}
	s.voices = voices

	s.synth, err = engines.New(cfg.Engines(userAgent()))
	if err != nil {
		return nil, err
	}

	pc := audio.DefaultPlayerConfig()
	pc.SampleRate = cfg.Audio.SampleRate
	pc.Volume = cfg.Audio.Volume
	player, err := audio.NewPlayer(pc)
	if err != nil {
		_ = s.synth.Close()
		return nil, tts.PlaybackError(err)
	}
	s.player = player

	opts := []tts.PipelineOption{
		tts.WithMetrics(m),
		tts.WithTimeouts(cfg.Timeouts.Synthesis, cfg.Timeouts.Playback),
	}
	if cfg.Cache.Enabled {
		cc := cfg.CacheManager()
		s.cache, err = cache.NewManager(cc)
		if err != nil {
			log.Warn("Audio cache disabled", "err", err)
		} else {
			opts = append(opts, tts.WithCache(s.cache))
			log.Debug("Audio cache enabled",
				"memory", humanize.Bytes(uint64(cc.MemoryCapacity)), //nolint:gosec
				"disk", cc.DiskPath)
		}
	}

	s.pipeline, err = tts.NewPipeline(s.synth, s.player, s.voices, opts...)
	if err != nil {
		_ = s.Close()
		return nil, err
	}

	info := s.synth.Info()
	log.Info("Speech ready", "provider", info.Name, "voice", voiceName(s.voices.Get(), info), "format", info.Format)
	return s, nil
}

// openVoiceStore loads the voice settings file. A missing file at the
// default location falls back to the built in voice.
func openVoiceStore(cfg config.Config) (*voice.Store, error) {
	path := cfg.VoiceSettings
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) && !voiceSettingsSet {
		log.Warn("Voice settings not found, using defaults", "path", path)
		return voice.NewStore("")
	}
	store, err := voice.NewStore(path)
	if err != nil {
		return nil, tts.ConfigError(fmt.Sprintf("unable to load voice settings from %s", path), err)
	}
	return store, nil
}

func voiceName(v voice.Settings, info tts.EngineInfo) string {
	if info.SSML {
		return v.VoiceName
	}
	return info.Voice
}

func (s *speech) Close() error {
	var errs []error
	switch {
	case s.pipeline != nil:
		errs = append(errs, s.pipeline.Close())
	default:
		if s.player != nil {
			errs = append(errs, s.player.Close())
		}
		if s.synth != nil {
			errs = append(errs, s.synth.Close())
		}
	}
	if s.cache != nil {
		errs = append(errs, s.cache.Close())
	}
	return errors.Join(errs...)
}

func userAgent() string {
	return config.AppName + "/" + Version
}
