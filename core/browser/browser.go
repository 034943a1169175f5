// Package browser opens web searches in the user's browser.
package browser

import (
	"context"
	"fmt"
	"net/url"
	"os/exec"

	"github.com/pkg/browser"
)

const searchURL = "https://duckduckgo.com/?q="

// SearchURL builds the search page address for a query.
func SearchURL(query string) string {
	return searchURL + url.QueryEscape(query)
}

type Browser struct {
	// command overrides the system default browser when set.
	command string
	open    func(ctx context.Context, url string) error
}

type Option func(*Browser)

// WithCommand opens pages with a specific program, e.g. "firefox".
func WithCommand(command string) Option {
	return func(b *Browser) { b.command = command }
}

func New(opts ...Option) *Browser {
	b := &Browser{}
	for _, opt := range opts {
		opt(b)
	}

	if b.command != "" {
		b.open = b.openWithCommand
	} else {
		b.open = func(_ context.Context, url string) error { return browser.OpenURL(url) }
	}
	return b
}

// Search opens the search page for query and returns the address it opened.
func (b *Browser) Search(ctx context.Context, query string) (string, error) {
	u := SearchURL(query)
	if err := b.open(ctx, u); err != nil {
		logger.Warn("failed to open browser", "url", u, "error", err)
		return u, fmt.Errorf("failed to open browser: %w", err)
	}
	logger.Info("opened web search", "url", u)
	return u, nil
}

// openWithCommand does not tie the browser to ctx, it must outlive the turn
// that opened it.
func (b *Browser) openWithCommand(_ context.Context, url string) error {
	cmd := exec.Command(b.command, url)
	cmd.Stdout = browser.Stdout
	cmd.Stderr = browser.Stderr
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
