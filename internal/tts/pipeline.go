package tts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/clipspeak/internal/audio"
	"github.com/dgnsrekt/clipspeak/internal/cache"
	"github.com/dgnsrekt/clipspeak/internal/metrics"
	"github.com/dgnsrekt/clipspeak/internal/queue"
	"github.com/dgnsrekt/clipspeak/internal/ssml"
	"github.com/dgnsrekt/clipspeak/internal/text"
	"github.com/dustin/go-humanize"
)

// Default per-step timeouts.
const (
	DefaultSynthesisTimeout = 30 * time.Second
	DefaultPlaybackTimeout  = 10 * time.Minute
)

// Pipeline turns one queued job into sound: it composes SSML when the
// provider wants it, consults the audio cache, synthesizes and plays each
// chunk in order. It implements queue.Processor and queue.Interrupter.
type Pipeline struct {
	synth   Synthesizer
	player  Player
	voices  VoiceSource
	cache   AudioCache
	metrics *metrics.Metrics

	synthesisTimeout time.Duration
	playbackTimeout  time.Duration

	stats   PipelineStats
	statsMu sync.RWMutex
}

// PipelineStats tracks pipeline activity.
type PipelineStats struct {
	JobsProcessed int64
	JobsFailed    int64
	Synthesized   int64
	CacheHits     int64
	PlaybackTime  time.Duration
	LastActivity  time.Time
	LastError     error
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithCache stores synthesized clips in c and reuses them for repeated text.
func WithCache(c AudioCache) PipelineOption {
	return func(p *Pipeline) { p.cache = c }
}

// WithMetrics records synthesis and playback metrics.
func WithMetrics(m *metrics.Metrics) PipelineOption {
	return func(p *Pipeline) { p.metrics = m }
}

// WithTimeouts bounds each synthesis call and each clip's playback. Zero
// keeps the default.
func WithTimeouts(synthesis, playback time.Duration) PipelineOption {
	return func(p *Pipeline) {
		if synthesis > 0 {
			p.synthesisTimeout = synthesis
		}
		if playback > 0 {
			p.playbackTimeout = playback
		}
	}
}

// NewPipeline creates a pipeline. The voice source is consulted once per
// job, so a reload applies from the next job on.
func NewPipeline(synth Synthesizer, player Player, voices VoiceSource, opts ...PipelineOption) (*Pipeline, error) {
	if synth == nil {
		return nil, ErrNoSynthesizer
	}
	if player == nil {
		return nil, ErrNoPlayer
	}
	if voices == nil {
		return nil, errors.New("voice source cannot be nil")
	}

	p := &Pipeline{
		synth:            synth,
		player:           player,
		voices:           voices,
		synthesisTimeout: DefaultSynthesisTimeout,
		playbackTimeout:  DefaultPlaybackTimeout,
		stats:            PipelineStats{LastActivity: time.Now()},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Process synthesizes and plays job. Long text is split into chunks the
// provider accepts; chunks play back to back.
func (p *Pipeline) Process(ctx context.Context, job queue.Job) error {
	if strings.TrimSpace(job.Text) == "" {
		return p.fail(InputError("job has no text").WithContext("job", job.ID.String()))
	}

	info := p.synth.Info()
	settings := p.voices.Get()
	chunks := text.Split(job.Text, info.MaxTextSize)

	log.Debug("Processing job", "job", job.ID, "provider", info.Name, "chunks", len(chunks))
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return p.fail(classify(err, KindCanceled, "job"))
		}

		req := Request{Text: chunk, Voice: settings}
		if info.SSML {
			req.SSML = ssml.Compose(chunk, settings)
		}

		stream, err := p.synthesize(ctx, info, req)
		if err != nil {
			return p.fail(withJob(err, job, i))
		}
		if err := p.play(ctx, stream); err != nil {
			return p.fail(withJob(err, job, i))
		}
	}

	p.statsMu.Lock()
	p.stats.JobsProcessed++
	p.stats.LastActivity = time.Now()
	p.statsMu.Unlock()
	return nil
}

// Interrupt stops the clip currently playing. The queue calls it on Clear.
func (p *Pipeline) Interrupt() {
	if err := p.player.Stop(); err != nil {
		log.Warn("Could not stop playback", "err", err)
	}
}

// Stats returns pipeline statistics.
func (p *Pipeline) Stats() PipelineStats {
	p.statsMu.RLock()
	defer p.statsMu.RUnlock()
	return p.stats
}

// Close releases the synthesizer and the player.
func (p *Pipeline) Close() error {
	return errors.Join(p.synth.Close(), p.player.Close())
}

func (p *Pipeline) synthesize(ctx context.Context, info EngineInfo, req Request) (*audio.Stream, error) {
	key := p.cacheKey(info, req)
	if p.cache != nil {
		if data, ok := p.cache.Get(key); ok {
			p.metrics.RecordCacheLookup(true)
			p.statsMu.Lock()
			p.stats.CacheHits++
			p.statsMu.Unlock()
			log.Debug("Using cached audio", "size", humanize.Bytes(uint64(len(data))))
			return audio.NewStream(data, info.Format), nil
		}
		p.metrics.RecordCacheLookup(false)
	}

	sctx, cancel := context.WithTimeout(ctx, p.synthesisTimeout)
	defer cancel()

	start := time.Now()
	stream, err := p.synth.Synthesize(sctx, req)
	if err != nil {
		return nil, classify(err, KindSynthesis, "synthesis")
	}
	p.metrics.ObserveSynthesis(info.Name, time.Since(start))
	p.statsMu.Lock()
	p.stats.Synthesized++
	p.statsMu.Unlock()

	if p.cache != nil {
		data := append([]byte(nil), stream.Bytes()...)
		if err := p.cache.Put(key, data); err != nil {
			log.Warn("Could not cache audio", "err", err)
		}
	}
	return stream, nil
}

func (p *Pipeline) play(ctx context.Context, stream *audio.Stream) error {
	pctx, cancel := context.WithTimeout(ctx, p.playbackTimeout)
	defer cancel()

	start := time.Now()
	err := p.player.Play(pctx, stream)
	elapsed := time.Since(start)
	p.metrics.ObservePlayback(elapsed)

	p.statsMu.Lock()
	p.stats.PlaybackTime += elapsed
	p.statsMu.Unlock()

	if errors.Is(err, audio.ErrStopped) {
		return NewError(KindCanceled, "playback interrupted", err)
	}
	return classify(err, KindPlayback, "playback")
}

func (p *Pipeline) cacheKey(info EngineInfo, req Request) string {
	if info.SSML {
		return cache.GenerateKey(info.Name, req.Voice.VoiceName, string(info.Format), req.SSML)
	}
	return cache.GenerateKey(info.Name, info.Voice, string(info.Format), req.Text)
}

func (p *Pipeline) fail(err error) error {
	p.statsMu.Lock()
	p.stats.JobsFailed++
	p.stats.LastError = err
	p.stats.LastActivity = time.Now()
	p.statsMu.Unlock()
	return err
}

func withJob(err error, job queue.Job, chunk int) error {
	var e *Error
	if errors.As(err, &e) {
		e.WithContext("job", job.ID.String()).WithContext("chunk", chunk)
		return err
	}
	return fmt.Errorf("job %s chunk %d: %w", job.ID, chunk, err)
}
