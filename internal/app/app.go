// Package app runs the cooperative main loop that owns all player state.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebovdev/nightride-cli/internal/input"
	"github.com/glebovdev/nightride-cli/internal/metadata"
	"github.com/glebovdev/nightride-cli/internal/player"
	"github.com/glebovdev/nightride-cli/internal/search"
	"github.com/glebovdev/nightride-cli/internal/session"
	"github.com/glebovdev/nightride-cli/internal/station"
	"github.com/glebovdev/nightride-cli/internal/ui"
	"github.com/rs/zerolog/log"
)

const (
	DefaultTick       = 100 * time.Millisecond
	DefaultVolumeStep = 5
	statusTTL         = 4 * time.Second
	shutdownTimeout   = 3 * time.Second
)

// Renderer displays snapshots of the player. Implementations must not block.
type Renderer interface {
	Render(ui.Snapshot)
}

type Deps struct {
	Registry   *station.Registry
	Store      *session.Store
	Launcher   player.Launcher
	Poller     *metadata.Poller
	Search     *search.Builder
	Dispatcher *input.Dispatcher
	Renderer   Renderer
	// Open hands a search link to the desktop. Defaults to search.Open.
	Open func(ctx context.Context, link string) error
}

type Options struct {
	VolumeStep   int
	Tick         time.Duration
	StartStation string
	Player       player.Options
}

type App struct {
	Deps
	opts Options

	controller  *player.Controller
	saved       session.State
	status      string
	statusUntil time.Time
	last        ui.Snapshot
	rendered    bool
}

func New(deps Deps, opts Options) *App {
	if opts.VolumeStep <= 0 {
		opts.VolumeStep = DefaultVolumeStep
	}
	if opts.Tick <= 0 {
		opts.Tick = DefaultTick
	}
	if deps.Open == nil {
		deps.Open = search.Open
	}
	return &App{Deps: deps, opts: opts}
}

// Controller returns the player controller once Run has started.
func (a *App) Controller() *player.Controller {
	return a.controller
}

// Run restores the last session, starts playback and processes input until
// the user quits, ctx is canceled or the player fails fatally.
func (a *App) Run(ctx context.Context) error {
	restored := a.Store.Load()
	a.saved = restored

	current := a.Registry.Default()
	if s, ok := a.Registry.Find(restored.LastStationID); ok {
		current = s
	}
	if a.opts.StartStation != "" {
		if s, ok := a.Registry.Find(a.opts.StartStation); ok {
			current = s
		} else {
			log.Warn().Str("station", a.opts.StartStation).Msg("Unknown start station, ignoring")
			a.setStatus(fmt.Sprintf("Unknown station %q", a.opts.StartStation))
		}
	}

	log.Info().Str("station", current.ID).Int("volume", restored.LastVolume).Msg("Restoring session")
	a.controller = player.NewController(a.Launcher, restored.LastVolume, a.opts.Player)

	if err := a.switchTo(ctx, current); err != nil && player.IsFatal(err) {
		return a.finish(err)
	}
	a.save()
	a.render()

	for {
		if ctx.Err() != nil {
			return a.finish(nil)
		}

		if action, ok := a.Dispatcher.Poll(ctx, a.opts.Tick); ok {
			quit, err := a.handle(ctx, action)
			if err != nil && player.IsFatal(err) {
				return a.finish(err)
			}
			if quit {
				return a.finish(nil)
			}
		}

		a.Poller.Dispatch()
		a.render()
	}
}

func (a *App) handle(ctx context.Context, action input.Action) (bool, error) {
	log.Debug().Str("action", action.String()).Msg("Handling action")

	switch action {
	case input.Quit:
		return true, nil

	case input.TogglePause:
		if a.controller.State().Status == player.StateStopped {
			s, ok := a.Registry.Find(a.controller.State().StationID)
			if !ok {
				s = a.Registry.Default()
			}
			return false, a.switchTo(ctx, s)
		}
		err := a.controller.TogglePlayPause(ctx)
		if errors.Is(err, player.ErrInvalidState) {
			a.setStatus("Still loading")
			return false, nil
		}
		return false, err

	case input.VolumeUp, input.VolumeDown:
		delta := a.opts.VolumeStep
		if action == input.VolumeDown {
			delta = -delta
		}
		changed, err := a.controller.SetVolume(ctx, delta)
		if err != nil {
			if !player.IsFatal(err) {
				a.setStatus("Volume change failed")
			}
			return false, err
		}
		if changed {
			a.save()
		}
		return false, nil

	case input.NextStation:
		next := a.Registry.Next(a.controller.State().StationID)
		err := a.switchTo(ctx, next)
		if err == nil || !player.IsFatal(err) {
			a.save()
		}
		return false, err

	case input.OpenSearch:
		a.openSearch(ctx)
		return false, nil
	}

	return false, nil
}

// switchTo starts s and restarts metadata polling for it. A non-fatal load
// failure is reported on the status line.
func (a *App) switchTo(ctx context.Context, s station.Station) error {
	err := a.controller.Start(ctx, s)
	a.Poller.Restart(s)

	if err != nil && !player.IsFatal(err) {
		log.Warn().Err(err).Str("station", s.ID).Msg("Failed to start station")
		a.setStatus(fmt.Sprintf("Could not play %s", s.Name))
	}
	return err
}

func (a *App) openSearch(ctx context.Context) {
	track := a.Poller.Current()
	link, err := a.Search.Build(search.Track{Artist: track.Artist, Title: track.Title})
	if errors.Is(err, search.ErrNoTrackAvailable) {
		a.setStatus("No track info yet")
		return
	}
	if err != nil {
		log.Warn().Err(err).Msg("Failed to build search link")
		a.setStatus("Search unavailable")
		return
	}

	if err := a.Open(ctx, link); err != nil {
		log.Warn().Err(err).Str("link", link).Msg("Failed to open search link")
		a.setStatus("Could not open browser")
		return
	}
	a.setStatus("Searching for " + track.String())
}

// save persists the session when station or volume differ from the last save.
func (a *App) save() {
	state := session.State{
		LastStationID: a.controller.State().StationID,
		LastVolume:    a.controller.Volume(),
	}
	if state.LastStationID == "" || state == a.saved {
		return
	}

	if err := a.Store.Save(state); err != nil {
		log.Warn().Err(err).Msg("Failed to save session")
		a.setStatus("Could not save session")
		return
	}
	a.saved = state
}

func (a *App) setStatus(msg string) {
	a.status = msg
	a.statusUntil = time.Now().Add(statusTTL)
}

func (a *App) snapshot() ui.Snapshot {
	state := a.controller.State()
	s, _ := a.Registry.Find(state.StationID)

	snap := ui.Snapshot{
		StationID:    state.StationID,
		StationName:  s.Name,
		StationIndex: a.Registry.IndexOf(state.StationID),
		StationCount: a.Registry.Len(),
		Status:       state.Status,
		Volume:       state.Volume,
		Track:        a.Poller.Current(),
	}
	if a.status != "" && time.Now().Before(a.statusUntil) {
		snap.Message = a.status
	}
	if err := a.controller.Err(); err != nil {
		snap.Fatal = err.Error()
	}
	return snap
}

func (a *App) render() {
	if a.Renderer == nil {
		return
	}
	snap := a.snapshot()
	if a.rendered && snap == a.last {
		return
	}
	a.last = snap
	a.rendered = true
	a.Renderer.Render(snap)
}

// finish saves the session, stops background work and releases the player.
func (a *App) finish(runErr error) error {
	a.save()
	a.Poller.Stop()
	a.render()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.controller.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("Player shutdown incomplete")
	}

	if runErr != nil {
		log.Error().Err(runErr).Msg("Player stopped")
		return fmt.Errorf("player stopped: %w", runErr)
	}
	log.Debug().Msg("Main loop finished")
	return nil
}
