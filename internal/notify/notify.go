// Package notify shows desktop notifications.
package notify

import (
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gen2brain/beeep"
)

// DefaultTitle is used when a Desktop notifier has no title.
const DefaultTitle = "clipspeak"

// Notifier delivers a short message to the user.
type Notifier interface {
	Notify(message string) error
}

// Desktop sends notifications through the OS notification service.
type Desktop struct {
	Title string

	once sync.Once
}

// NewDesktop returns a desktop notifier with the given title.
func NewDesktop(title string) *Desktop {
	if title == "" {
		title = DefaultTitle
	}
	return &Desktop{Title: title}
}

// Notify shows message. Failures are returned; callers usually only log
// them since a missing notification daemon is common on headless hosts.
func (d *Desktop) Notify(message string) error {
	err := beeep.Notify(d.Title, message, "")
	if err != nil {
		d.once.Do(func() {
			log.Debug("Desktop notifications unavailable", "err", err)
		})
	}
	return err
}

// Nop discards notifications.
type Nop struct{}

// Notify does nothing.
func (Nop) Notify(string) error { return nil }

// Recorder keeps notifications in memory.
type Recorder struct {
	mu       sync.Mutex
	messages []string
}

// Notify records message.
func (r *Recorder) Notify(message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
	return nil
}

// Messages returns the recorded notifications in order.
func (r *Recorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.messages...)
}
