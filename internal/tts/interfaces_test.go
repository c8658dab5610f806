package tts_test

import (
	"context"
	"testing"

	"github.com/dgnsrekt/clipspeak/internal/audio"
	"github.com/dgnsrekt/clipspeak/internal/cache"
	"github.com/dgnsrekt/clipspeak/internal/queue"
	"github.com/dgnsrekt/clipspeak/internal/tts"
	"github.com/dgnsrekt/clipspeak/internal/tts/engines"
	"github.com/dgnsrekt/clipspeak/internal/voice"
)

// Compile-time interface compliance checks
var (
	_ tts.Synthesizer = (*engines.AzureEngine)(nil)
	_ tts.Synthesizer = (*engines.OpenAIEngine)(nil)
	_ tts.Synthesizer = (*engines.MockEngine)(nil)

	_ tts.Player = (*audio.Player)(nil)
	_ tts.Player = (*audio.MockPlayer)(nil)

	_ tts.AudioCache = (*cache.Manager)(nil)
	_ tts.AudioCache = (*cache.MemoryCache)(nil)
	_ tts.AudioCache = (*cache.DiskCache)(nil)

	_ tts.VoiceSource = (*voice.Store)(nil)

	_ queue.Processor   = (*tts.Pipeline)(nil)
	_ queue.Interrupter = (*tts.Pipeline)(nil)
)

// TestMockEngineThroughPipeline runs the tone engine through the pipeline
// the way the listener wires it.
func TestMockEngineThroughPipeline(t *testing.T) {
	synth, err := engines.New(engines.Config{Provider: engines.ProviderMock})
	if err != nil {
		t.Fatalf("engines.New() error = %v", err)
	}
	player := audio.NewMockPlayer(0)
	store := voice.NewStaticStore(voice.Default())

	p, err := tts.NewPipeline(synth, player, store, tts.WithCache(cache.NewMemoryCache(1<<20)))
	if err != nil {
		t.Fatalf("NewPipeline() error = %v", err)
	}
	defer p.Close() //nolint:errcheck

	q := queue.New(p)
	job, err := q.Enqueue("Hello there")
	if err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if err := p.Process(context.Background(), job); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if got := len(player.Played()); got != 1 {
		t.Errorf("played %d clips, want 1", got)
	}
	if got := p.Stats().JobsProcessed; got != 1 {
		t.Errorf("JobsProcessed = %d, want 1", got)
	}
}
