package main

import (
	"bytes"
	"strings"
	"testing"

	assistant "github.com/koscakluka/ziggy/core"
	"github.com/koscakluka/ziggy/internal/config"
)

func TestConsoleWrapsResponses(t *testing.T) {
	var out bytes.Buffer
	c := newConsole(&out)

	c.Response(strings.Repeat("qubits are strange ", 10))

	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		if len([]rune(stripANSI(line))) > consoleWidth {
			t.Fatalf("expected lines of at most %d runes, got %q", consoleWidth, line)
		}
	}
}

func TestConsolePrintsConversation(t *testing.T) {
	var out bytes.Buffer
	c := newConsole(&out)

	c.Banner(config.Default())
	c.StateChanged(assistant.StateListening, assistant.StateRecording)
	c.Transcript("")
	c.Interruption(assistant.InterruptWakeWord)

	printed := stripANSI(out.String())
	for _, expected := range []string{"ziggy", "take a break", "recording", "(nothing heard)", "wake_word"} {
		if !strings.Contains(printed, expected) {
			t.Fatalf("expected output to contain %q, got %q", expected, printed)
		}
	}
}

func stripANSI(s string) string {
	var b strings.Builder
	inEscape := false
	for _, r := range s {
		switch {
		case r == '\x1b':
			inEscape = true
		case inEscape && (r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'):
			inEscape = false
		case !inEscape:
			b.WriteRune(r)
		}
	}
	return b.String()
}
