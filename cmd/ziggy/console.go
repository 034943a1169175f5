package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
	assistant "github.com/koscakluka/ziggy/core"
	"github.com/koscakluka/ziggy/internal/config"
	"github.com/muesli/reflow/wordwrap"
)

const consoleWidth = 72

var (
	primary = lipgloss.Color("#00ff9f")
	dim     = lipgloss.Color("#6e7681")

	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(primary).Padding(0, 1)
	labelStyle  = lipgloss.NewStyle().Bold(true).Foreground(primary)
	dimStyle    = lipgloss.NewStyle().Foreground(dim)
	userStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#58a6ff"))
	ziggyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#e6edf3"))
	errorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff7b72"))
	bannerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primary).
			Padding(0, 1)
)

// console prints the conversation as it happens. Callbacks can arrive from
// the interruption listener goroutine, so writes are serialized.
type console struct {
	mu  sync.Mutex
	out io.Writer
}

func newConsole(out io.Writer) *console {
	return &console{out: out}
}

func (c *console) println(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, line)
}

func (c *console) Banner(cfg config.Config) {
	body := fmt.Sprintf("%s\n%s %q\n%s %q\n%s %s / %s / %s",
		titleStyle.Render("Ziggy"),
		labelStyle.Render("wake word:"), cfg.Assistant.WakeWord,
		labelStyle.Render("stop with:"), cfg.Assistant.ShutdownPhrase,
		labelStyle.Render("using:"), cfg.AudioBackend, cfg.SpeechToText.Provider, cfg.TextToSpeech.Provider,
	)
	c.println(bannerStyle.Render(body))
}

func (c *console) StateChanged(from, to assistant.State) {
	c.println(dimStyle.Render(fmt.Sprintf("· %s", to)))
}

func (c *console) Transcript(transcript string) {
	if transcript == "" {
		transcript = "(nothing heard)"
	}
	c.println(userStyle.Render(wrap("you: " + transcript)))
}

func (c *console) Response(response string) {
	c.println(ziggyStyle.Render(wrap("ziggy: " + response)))
}

func (c *console) Interruption(reason assistant.InterruptReason) {
	c.println(dimStyle.Render(fmt.Sprintf("· interrupted (%s)", reason)))
}

func wrap(text string) string {
	return wordwrap.String(text, consoleWidth)
}
