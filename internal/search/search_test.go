package search

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"
)

func TestBuild(t *testing.T) {
	b := NewBuilder("https://music.example.com/search")

	tests := []struct {
		name     string
		track    Track
		expected string
	}{
		{
			name:     "reserved characters",
			track:    Track{Artist: "A&B", Title: "C D"},
			expected: "https://music.example.com/search?q=A%26B%20C%20D",
		},
		{
			name:     "title only",
			track:    Track{Title: "Midnight"},
			expected: "https://music.example.com/search?q=Midnight",
		},
		{
			name:     "artist only",
			track:    Track{Artist: "Kavinsky"},
			expected: "https://music.example.com/search?q=Kavinsky",
		},
		{
			name:     "surrounding whitespace",
			track:    Track{Artist: "  FM-84 ", Title: " Running in the Night  "},
			expected: "https://music.example.com/search?q=FM-84%20Running%20in%20the%20Night",
		},
		{
			name:     "plus, hash and question mark",
			track:    Track{Artist: "C+C", Title: "#1?"},
			expected: "https://music.example.com/search?q=C%2BC%20%231%3F",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := b.Build(tt.track)
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}
			if got != tt.expected {
				t.Errorf("Build() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestBuildRoundTripsQuery(t *testing.T) {
	b := NewBuilder("")

	link, err := b.Build(Track{Artist: "A&B", Title: "C D"})
	if err != nil {
		t.Fatal(err)
	}

	u, err := url.Parse(link)
	if err != nil {
		t.Fatalf("Build() produced an invalid URL: %v", err)
	}
	if u.Host != "music.youtube.com" {
		t.Errorf("host = %q, want music.youtube.com", u.Host)
	}
	if q := u.Query().Get("q"); q != "A&B C D" {
		t.Errorf("decoded query = %q, want %q", q, "A&B C D")
	}
}

func TestBuildUnknownTrack(t *testing.T) {
	b := NewBuilder("")

	for _, track := range []Track{{}, {Artist: " ", Title: "\t"}} {
		_, err := b.Build(track)
		if !errors.Is(err, ErrNoTrackAvailable) {
			t.Errorf("Build(%+v) error = %v, want ErrNoTrackAvailable", track, err)
		}
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	b := NewBuilder("")
	track := Track{Artist: "Perturbator", Title: "Future Club"}

	first, _ := b.Build(track)
	second, _ := b.Build(track)
	if first != second {
		t.Errorf("Build() not deterministic: %q != %q", first, second)
	}
}

func stubOpener(t *testing.T, fn func(string) error) {
	t.Helper()
	orig := openURL
	openURL = fn
	t.Cleanup(func() { openURL = orig })
}

func TestOpen(t *testing.T) {
	var opened string
	stubOpener(t, func(link string) error {
		opened = link
		return nil
	})

	if err := Open(context.Background(), "https://example.com/search?q=a%20b"); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if opened != "https://example.com/search?q=a%20b" {
		t.Errorf("opened %q", opened)
	}
}

func TestOpenHandlerFailure(t *testing.T) {
	errNoHandler := errors.New("no handler")
	stubOpener(t, func(string) error { return errNoHandler })

	err := Open(context.Background(), "https://example.com")
	if !errors.Is(err, errNoHandler) {
		t.Errorf("Open() error = %v, want wrapped %v", err, errNoHandler)
	}
}

func TestOpenDoesNotWaitForSlowHandler(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	stubOpener(t, func(string) error {
		<-release
		return nil
	})

	orig := openWait
	openWait = 20 * time.Millisecond
	t.Cleanup(func() { openWait = orig })

	start := time.Now()
	if err := Open(context.Background(), "https://example.com"); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Open() took %v, should return once openWait passes", elapsed)
	}
}
