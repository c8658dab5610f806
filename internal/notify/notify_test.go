package notify

import "testing"

func TestRecorder(t *testing.T) {
	var n Notifier = &Recorder{}
	_ = n.Notify("one")
	_ = n.Notify("two")

	got := n.(*Recorder).Messages()
	if len(got) != 2 || got[0] != "one" || got[1] != "two" {
		t.Errorf("Messages() = %v", got)
	}
}

func TestNop(t *testing.T) {
	if err := (Nop{}).Notify("ignored"); err != nil {
		t.Errorf("Notify() error = %v", err)
	}
}

func TestNewDesktopTitle(t *testing.T) {
	if got := NewDesktop("").Title; got != DefaultTitle {
		t.Errorf("Title = %q, want %q", got, DefaultTitle)
	}
	if got := NewDesktop("tts").Title; got != "tts" {
		t.Errorf("Title = %q", got)
	}
}
