// Package clipboard watches the system clipboard for text that starts with
// the trigger word and hands the rest of it to a sink.
package clipboard

import (
	"context"
	"errors"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/clipspeak/internal/notify"
	"github.com/dgnsrekt/clipspeak/internal/text"
)

// DefaultInterval is how often the clipboard is read.
const DefaultInterval = time.Second

// Notification is shown when clipboard input is accepted.
const Notification = "New TTS input received."

// ErrUnsupported is returned by SystemReader when no clipboard utility is
// available.
var ErrUnsupported = errors.New("clipboard is not supported on this system")

// Reader reads the current clipboard text.
type Reader interface {
	ReadAll() (string, error)
}

// SystemReader reads the OS clipboard.
type SystemReader struct{}

// ReadAll returns the clipboard text.
func (SystemReader) ReadAll() (string, error) {
	if clipboard.Unsupported {
		return "", ErrUnsupported
	}
	return clipboard.ReadAll()
}

// Supported reports whether the system clipboard can be read.
func Supported() bool {
	return !clipboard.Unsupported
}

// Sink receives prepared text. It is the queue's enqueue in production.
type Sink func(text string) error

// Poller reads the clipboard on an interval and forwards triggered content.
type Poller struct {
	reader   Reader
	trigger  *text.Trigger
	sink     Sink
	notifier notify.Notifier
	interval time.Duration
	onAccept func()

	last string
}

// Option configures a Poller.
type Option func(*Poller)

// WithInterval sets the polling interval.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithNotifier shows a notification for each accepted input.
func WithNotifier(n notify.Notifier) Option {
	return func(p *Poller) { p.notifier = n }
}

// OnAccept registers a callback run after each accepted input.
func OnAccept(fn func()) Option {
	return func(p *Poller) { p.onAccept = fn }
}

// NewPoller creates a poller. A nil trigger uses text.DefaultTrigger.
func NewPoller(reader Reader, trigger *text.Trigger, sink Sink, opts ...Option) *Poller {
	if trigger == nil {
		trigger = text.NewTrigger("")
	}
	p := &Poller{
		reader:   reader,
		trigger:  trigger,
		sink:     sink,
		notifier: notify.Nop{},
		interval: DefaultInterval,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run polls until ctx is done.
func (p *Poller) Run(ctx context.Context) error {
	log.Info("Watching clipboard", "trigger", p.trigger.Word(), "interval", p.interval)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.Poll()
		}
	}
}

// Poll reads the clipboard once. It reports whether new triggered content
// was forwarded. Content identical to the last accepted snapshot is
// ignored, so copying the same request twice speaks it once.
func (p *Poller) Poll() bool {
	content, err := p.reader.ReadAll()
	if err != nil {
		log.Error("Could not read clipboard", "err", err)
		return false
	}
	if content == p.last || !p.trigger.Match(content) {
		return false
	}
	p.last = content

	rest, _ := p.trigger.Strip(content)
	prepared := text.Prepare(rest)
	if prepared == "" {
		log.Debug("Ignoring clipboard input with nothing to speak")
		return false
	}

	if err := p.sink(prepared); err != nil {
		log.Error("Could not queue clipboard input", "err", err)
		return false
	}
	if err := p.notifier.Notify(Notification); err != nil {
		log.Debug("Notification failed", "err", err)
	}
	if p.onAccept != nil {
		p.onAccept()
	}
	return true
}
