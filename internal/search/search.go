// Package search builds music-search links for the current track.
package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/browser"
	"github.com/rs/zerolog/log"
)

const DefaultBaseURL = "https://music.youtube.com/search"

var ErrNoTrackAvailable = errors.New("no track available")

// Track is the subset of track metadata a search query is built from.
type Track struct {
	Artist string
	Title  string
}

// Builder maps track metadata onto a search endpoint.
type Builder struct {
	baseURL string
}

func NewBuilder(baseURL string) *Builder {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Builder{baseURL: strings.TrimRight(baseURL, "?")}
}

// Build returns <base>?q=<artist title>, percent-encoded.
func (b *Builder) Build(t Track) (string, error) {
	query := strings.TrimSpace(strings.Join(nonEmpty(t.Artist, t.Title), " "))
	if query == "" {
		return "", ErrNoTrackAvailable
	}

	// QueryEscape uses '+' for spaces; search providers expect %20.
	encoded := strings.ReplaceAll(url.QueryEscape(query), "+", "%20")
	return b.baseURL + "?q=" + encoded, nil
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// openURL is swapped in tests.
var openURL = browser.OpenURL

// openWait bounds how long Open waits for the URL handler to exit.
var openWait = 2 * time.Second

func init() {
	// Handler output would be drawn over the TUI.
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard
}

// Open hands link to the desktop's URL handler. A handler that is still
// running after openWait is left to finish on its own.
func Open(ctx context.Context, link string) error {
	done := make(chan error, 1)
	go func() {
		done <- openURL(link)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", link, err)
		}
	case <-time.After(openWait):
		log.Debug().Str("url", link).Msg("URL handler still running, not waiting")
	case <-ctx.Done():
		return ctx.Err()
	}

	log.Debug().Str("url", link).Msg("Opened search link")
	return nil
}
