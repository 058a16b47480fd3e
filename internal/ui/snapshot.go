package ui

import (
	"fmt"

	"github.com/glebovdev/nightride-cli/internal/metadata"
	"github.com/glebovdev/nightride-cli/internal/player"
	"github.com/muesli/reflow/truncate"
)

// Snapshot is everything the UI displays. It is produced by the main loop
// and must stay comparable.
type Snapshot struct {
	StationID    string
	StationName  string
	StationIndex int
	StationCount int
	Status       player.PlayerState
	Volume       int
	Track        metadata.TrackMetadata
	Message      string
	Fatal        string
}

func (s Snapshot) Muted() bool {
	return s.Volume == 0
}

func (s Snapshot) position() string {
	if s.StationIndex < 0 || s.StationCount == 0 {
		return ""
	}
	return fmt.Sprintf("%d/%d", s.StationIndex+1, s.StationCount)
}

// trackText returns the now-playing line, truncated to width cells.
// A width of zero or less disables truncation.
func trackText(t metadata.TrackMetadata, width int) string {
	text := t.String()
	if text == "" {
		text = "Waiting for track info..."
	}
	return fitWidth(text, width)
}

func albumText(t metadata.TrackMetadata, width int) string {
	if t.Album == "" {
		return ""
	}
	return fitWidth(t.Album, width)
}

func fitWidth(text string, width int) string {
	if width <= 0 {
		return text
	}
	return truncate.StringWithTail(text, uint(width), "…")
}
