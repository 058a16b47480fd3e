// Package metadata polls the now-playing endpoint of the active station.
package metadata

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/glebovdev/nightride-cli/internal/api"
	"github.com/glebovdev/nightride-cli/internal/station"
	"github.com/rs/zerolog/log"
)

const DefaultInterval = 15 * time.Second

var ErrMetadataFetchFailed = errors.New("metadata fetch failed")

// Fetcher retrieves the current track from a metadata URL.
type Fetcher interface {
	FetchTrack(ctx context.Context, url string) (api.Track, error)
}

// TrackMetadata is the last known track of the active station.
// The zero value means unknown.
type TrackMetadata struct {
	Artist      string
	Title       string
	Album       string
	RetrievedAt time.Time
}

func (t TrackMetadata) Known() bool {
	return t.Artist != "" || t.Title != ""
}

func (t TrackMetadata) String() string {
	switch {
	case t.Artist != "" && t.Title != "":
		return fmt.Sprintf("%s - %s", t.Artist, t.Title)
	case t.Title != "":
		return t.Title
	default:
		return t.Artist
	}
}

type result struct {
	track      api.Track
	generation uint64
}

// Poller fetches metadata in the background. Results are handed to the
// owner through Dispatch, so TrackMetadata is only mutated on the caller's
// goroutine.
type Poller struct {
	fetcher  Fetcher
	interval time.Duration

	mu         sync.Mutex
	generation uint64
	pending    *result
	cancel     context.CancelFunc
	current    TrackMetadata
	stationID  string

	wg sync.WaitGroup
}

func NewPoller(fetcher Fetcher, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		fetcher:  fetcher,
		interval: interval,
	}
}

// Restart abandons the running task, resets the metadata to unknown and
// starts polling s, fetching once immediately.
func (p *Poller) Restart(s station.Station) {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.generation++
	gen := p.generation
	p.pending = nil
	p.current = TrackMetadata{}
	p.stationID = s.ID

	if s.MetadataURL == "" {
		p.mu.Unlock()
		log.Debug().Str("station", s.ID).Msg("Station has no metadata URL, not polling")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.mu.Unlock()

	p.wg.Add(1)
	go p.run(ctx, gen, s.MetadataURL)

	log.Debug().Str("station", s.ID).Dur("interval", p.interval).Msg("Started metadata polling")
}

// Stop cancels the background task and waits for it to exit.
func (p *Poller) Stop() {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.generation++
	p.pending = nil
	p.mu.Unlock()

	p.wg.Wait()
	log.Debug().Msg("Stopped metadata polling")
}

// Dispatch applies the latest completed fetch, if any. Results from an
// abandoned station are discarded. It reports whether the metadata changed.
func (p *Poller) Dispatch() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	res := p.pending
	p.pending = nil
	if res == nil {
		return false
	}
	if res.generation != p.generation {
		log.Debug().Uint64("generation", res.generation).Msg("Discarding stale metadata")
		return false
	}

	next := TrackMetadata{
		Artist:      res.track.Artist,
		Title:       res.track.Title,
		Album:       res.track.Album,
		RetrievedAt: time.Now(),
	}
	changed := next.Artist != p.current.Artist || next.Title != p.current.Title || next.Album != p.current.Album
	p.current = next

	if changed {
		log.Debug().Str("station", p.stationID).Str("track", next.String()).Msg("Now playing")
	}
	return changed
}

func (p *Poller) Current() TrackMetadata {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

func (p *Poller) run(ctx context.Context, gen uint64, url string) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.poll(ctx, gen, url)

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

func (p *Poller) poll(ctx context.Context, gen uint64, url string) {
	track, err := p.fetcher.FetchTrack(ctx, url)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		err = fmt.Errorf("%w: %w", ErrMetadataFetchFailed, err)
		log.Warn().Err(err).Str("url", url).Msg("Metadata poll failed, keeping previous data")
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if gen != p.generation {
		return
	}
	p.pending = &result{track: track, generation: gen}
}
