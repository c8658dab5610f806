package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/clipspeak/internal/extract"
	"github.com/dgnsrekt/clipspeak/internal/queue"
	"github.com/dgnsrekt/clipspeak/internal/text"
	"github.com/dgnsrekt/clipspeak/internal/tts"
	"github.com/dgnsrekt/clipspeak/ui"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	speakFile    string
	speakDir     string
	render       bool
	showAllFiles bool

	errNothingChosen = errors.New("no file chosen")

	speakCmd = &cobra.Command{
		Use:   "speak [TEXT...]",
		Short: "Read text or a file aloud once",
		Long: paragraph(fmt.Sprintf("\n%s text given as arguments, piped on stdin or read from a file. Without either, pick a .txt, .md, .pdf or .html file from a list.",
			keyword("Speak"))),
		Example: paragraph("clipspeak speak Hello there\nclipspeak speak --file notes.pdf\ncat notes.md | clipspeak speak\nclipspeak speak --dir ~/reading"),
		RunE:    runSpeak,
	}
)

func runSpeak(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	raw, name, err := speakSource(args)
	if errors.Is(err, errNothingChosen) {
		return nil
	}
	if err != nil {
		return err
	}

	if render {
		if err := renderDocument(os.Stdout, raw, name); err != nil {
			return err
		}
	}

	prepared := text.Prepare(raw)
	if prepared == "" {
		return tts.InputError("nothing to read")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sp, err := newSpeech(cfg, nil)
	if err != nil {
		return err
	}
	defer sp.Close() //nolint:errcheck

	job := queue.Job{
		ID:         uuid.New(),
		Text:       prepared,
		Source:     "cli",
		EnqueuedAt: time.Now(),
	}
	log.Info("Reading", "source", name, "chars", humanize.Comma(int64(len(prepared))))

	if err := sp.pipeline.Process(ctx, job); err != nil {
		if tts.IsKind(err, tts.KindCanceled) {
			return nil
		}
		return err
	}
	return nil
}

// speakSource returns the raw text to read and a name for it.
func speakSource(args []string) (string, string, error) {
	if speakFile != "" {
		s, err := extract.ReadFile(speakFile)
		return s, speakFile, err
	}

	if len(args) == 1 && args[0] == "-" {
		return readStdin()
	}
	if len(args) > 0 {
		return strings.Join(args, " "), "arguments", nil
	}

	if yes, err := stdinIsPipe(); err != nil {
		return "", "", err
	} else if yes {
		return readStdin()
	}

	uiCfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return "", "", fmt.Errorf("error parsing config: %v", err)
	}
	uiCfg.Dir = speakDir
	uiCfg.ShowAllFiles = showAllFiles

	f, ok, err := ui.Pick(uiCfg)
	if err != nil {
		return "", "", err
	}
	if !ok {
		return "", "", errNothingChosen
	}
	s, err := extract.ReadFile(f.Path)
	return s, f.Path, err
}

func readStdin() (string, string, error) {
	b, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", "", fmt.Errorf("unable to read from stdin: %w", err)
	}
	return string(b), "stdin", nil
}

func stdinIsPipe() (bool, error) {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false, fmt.Errorf("unable to open file: %w", err)
	}
	if stat.Mode()&os.ModeCharDevice == 0 || stat.Size() > 0 {
		return true, nil
	}
	return false, nil
}

// renderDocument prints the document before it is read. Markdown is rendered
// through glamour, everything else is printed as is.
func renderDocument(w io.Writer, raw, name string) error {
	if !isMarkdown(name) {
		_, err := fmt.Fprintln(w, raw)
		return err
	}

	isTerminal := term.IsTerminal(int(os.Stdout.Fd()))
	style := styles.NoTTYStyle
	if isTerminal {
		style = styles.LightStyle
		if termenv.HasDarkBackground() {
			style = styles.DarkStyle
		}
	}

	width := 80
	if isTerminal {
		if tw, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && tw > 0 {
			width = min(tw, 120)
		}
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithColorProfile(lipgloss.ColorProfile()),
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
		glamour.WithPreservedNewLines(),
	)
	if err != nil {
		return fmt.Errorf("unable to create renderer: %w", err)
	}
	out, err := r.Render(raw)
	if err != nil {
		return fmt.Errorf("unable to render markdown: %w", err)
	}
	_, err = fmt.Fprint(w, out)
	return err
}

func isMarkdown(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".md", ".markdown", ".mdown", ".mkd", ".mkdn":
		return true
	}
	return name == "arguments" || name == "stdin"
}

func init() {
	speakCmd.Flags().StringVarP(&speakFile, "file", "f", "", "read this file (.txt, .md, .pdf, .html)")
	speakCmd.Flags().StringVarP(&speakDir, "dir", "d", ".", "directory to pick a file from")
	speakCmd.Flags().BoolVarP(&render, "render", "r", false, "print the document before reading it")
	speakCmd.Flags().BoolVarP(&showAllFiles, "all", "a", false, "also list files ignored by git")
}
