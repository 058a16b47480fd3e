package player

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebovdev/nightride-cli/internal/config"
	"github.com/glebovdev/nightride-cli/internal/station"
	"github.com/rs/zerolog/log"
)

const (
	DefaultReconnectAttempts = 3
	DefaultReconnectDelay    = 250 * time.Millisecond
	DefaultSpawnWait         = 3 * time.Second
	spawnPollInterval        = 100 * time.Millisecond
)

var (
	ErrChannelUnavailable = errors.New("control channel unavailable")
	ErrProcessSpawnFailed = errors.New("failed to launch player process")
	ErrInvalidState       = errors.New("command not valid in current state")
)

// IsFatal reports whether err ends the run.
func IsFatal(err error) bool {
	return errors.Is(err, ErrChannelUnavailable) || errors.Is(err, ErrProcessSpawnFailed)
}

type PlayerState int

const (
	StateStopped PlayerState = iota
	StateLoading
	StatePlaying
	StatePaused
)

func (s PlayerState) String() string {
	switch s {
	case StateStopped:
		return "STOPPED"
	case StateLoading:
		return "LOADING"
	case StatePlaying:
		return "PLAYING"
	case StatePaused:
		return "PAUSED"
	default:
		return "UNKNOWN"
	}
}

// Channel is the command surface of the external playback process.
// Transport failures must wrap ErrChannelUnavailable.
type Channel interface {
	Load(ctx context.Context, url string) error
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	SetVolume(ctx context.Context, volume int) error
	GetVolume(ctx context.Context) (int, error)
	Stop(ctx context.Context) error
	Close() error
}

// Launcher owns the external process and hands out control channels to it.
type Launcher interface {
	Dial(ctx context.Context) (Channel, error)
	Spawn(ctx context.Context, volume int) error
	Release() error
}

// PlaybackState is a snapshot of what the controller believes the player is doing.
type PlaybackState struct {
	StationID string
	Status    PlayerState
	Volume    int
}

// Playing reports whether audio is currently audible.
func (s PlaybackState) Playing() bool {
	return s.Status == StatePlaying
}

type Options struct {
	ReconnectAttempts int
	ReconnectDelay    time.Duration
	SpawnWait         time.Duration
}

// Controller drives the playback process. It is not safe for concurrent use;
// the main loop owns it.
type Controller struct {
	launcher Launcher
	channel  Channel
	spawned  bool
	state    PlaybackState
	current  *station.Station
	opts     Options
	fatal    error
}

func NewController(launcher Launcher, volume int, opts Options) *Controller {
	if opts.ReconnectAttempts <= 0 {
		opts.ReconnectAttempts = DefaultReconnectAttempts
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = DefaultReconnectDelay
	}
	if opts.SpawnWait <= 0 {
		opts.SpawnWait = DefaultSpawnWait
	}

	return &Controller{
		launcher: launcher,
		state: PlaybackState{
			Status: StateStopped,
			Volume: config.ClampVolume(volume),
		},
		opts: opts,
	}
}

func (c *Controller) State() PlaybackState {
	return c.state
}

func (c *Controller) Volume() int {
	return c.state.Volume
}

func (c *Controller) CurrentStation() *station.Station {
	return c.current
}

// Err returns the fatal error that stopped the controller, if any.
func (c *Controller) Err() error {
	return c.fatal
}

func (c *Controller) setStatus(s PlayerState) {
	if c.state.Status != s {
		log.Debug().Msgf("Player state: %s -> %s", c.state.Status, s)
		c.state.Status = s
	}
}

// Start begins playing s, spawning the player if no channel is available or
// switching the stream in place otherwise.
func (c *Controller) Start(ctx context.Context, s station.Station) error {
	if c.fatal != nil {
		return c.fatal
	}

	if c.channel == nil {
		if err := c.connect(ctx); err != nil {
			return c.fail(err)
		}
	}

	previous := c.state.StationID
	st := s
	c.current = &st
	c.state.StationID = s.ID
	c.setStatus(StateLoading)

	err := c.exec(ctx, func(ch Channel) error {
		if err := ch.Load(ctx, s.StreamURL); err != nil {
			return err
		}
		return ch.Play(ctx)
	})
	if err != nil {
		if IsFatal(err) {
			return err
		}
		c.setStatus(StateStopped)
		return fmt.Errorf("failed to load %s: %w", s.ID, err)
	}

	c.setStatus(StatePlaying)
	log.Info().Str("station", s.ID).Str("previous", previous).Msg("Station started")
	return nil
}

func (c *Controller) TogglePlayPause(ctx context.Context) error {
	if c.fatal != nil {
		return c.fatal
	}

	switch c.state.Status {
	case StatePlaying:
		if err := c.exec(ctx, func(ch Channel) error { return ch.Pause(ctx) }); err != nil {
			return err
		}
		c.setStatus(StatePaused)
	case StatePaused:
		if err := c.exec(ctx, func(ch Channel) error { return ch.Play(ctx) }); err != nil {
			return err
		}
		c.setStatus(StatePlaying)
	default:
		return fmt.Errorf("%w: toggle while %s", ErrInvalidState, c.state.Status)
	}
	return nil
}

// SetVolume adjusts the volume by delta, clamped to [0, 100]. It reports
// whether the volume changed. When stopped the value is only stored.
func (c *Controller) SetVolume(ctx context.Context, delta int) (bool, error) {
	if c.fatal != nil {
		return false, c.fatal
	}

	target := config.ClampVolume(c.state.Volume + delta)
	if target == c.state.Volume {
		return false, nil
	}

	if c.state.Status != StateStopped {
		if err := c.exec(ctx, func(ch Channel) error { return ch.SetVolume(ctx, target) }); err != nil {
			return false, err
		}
	}

	c.state.Volume = target
	log.Debug().Msgf("Volume set to %d%%", target)
	return true, nil
}

// Shutdown stops playback and releases the channel and the player process.
func (c *Controller) Shutdown(ctx context.Context) error {
	var errs []error

	if c.channel != nil {
		if err := c.channel.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop: %w", err))
		}
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close channel: %w", err))
		}
		c.channel = nil
	}

	if c.spawned {
		if err := c.launcher.Release(); err != nil {
			errs = append(errs, fmt.Errorf("release player: %w", err))
		}
		c.spawned = false
	}

	c.setStatus(StateStopped)
	log.Debug().Msg("Player shut down")
	return errors.Join(errs...)
}

// exec runs fn against the channel. A channel failure drops the channel and
// retries once after a bounded reconnect; exhausting the reconnect is fatal.
func (c *Controller) exec(ctx context.Context, fn func(Channel) error) error {
	for attempt := 0; ; attempt++ {
		if c.channel == nil {
			if err := c.reconnect(ctx); err != nil {
				return c.fail(err)
			}
		}

		err := fn(c.channel)
		if err == nil || !errors.Is(err, ErrChannelUnavailable) {
			return err
		}

		log.Warn().Err(err).Msg("Control channel lost")
		c.dropChannel()

		if attempt >= 1 {
			return c.fail(err)
		}
	}
}

func (c *Controller) dropChannel() {
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
}

// connect attaches to a running player or spawns a new one.
func (c *Controller) connect(ctx context.Context) error {
	if ch, err := c.launcher.Dial(ctx); err == nil {
		c.channel = ch
		if err := c.applyVolume(ctx); err == nil {
			log.Debug().Msg("Attached to running player")
			return nil
		}
		c.dropChannel()
	}

	if err := c.launcher.Spawn(ctx, c.state.Volume); err != nil {
		return fmt.Errorf("%w: %v", ErrProcessSpawnFailed, err)
	}
	c.spawned = true

	ch, err := c.dialUntil(ctx, c.opts.SpawnWait)
	if err != nil {
		return err
	}
	c.channel = ch
	return nil
}

func (c *Controller) dialUntil(ctx context.Context, wait time.Duration) (Channel, error) {
	deadline := time.Now().Add(wait)
	var lastErr error

	for {
		ch, err := c.launcher.Dial(ctx)
		if err == nil {
			return ch, nil
		}
		lastErr = err

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: player socket did not appear: %v", ErrChannelUnavailable, lastErr)
		}
		if err := sleepCtx(ctx, spawnPollInterval); err != nil {
			return nil, err
		}
	}
}

// reconnect re-dials with exponential backoff, bounded by ReconnectAttempts.
func (c *Controller) reconnect(ctx context.Context) error {
	delay := c.opts.ReconnectDelay
	var lastErr error

	for attempt := 1; attempt <= c.opts.ReconnectAttempts; attempt++ {
		log.Warn().Msgf("Reconnecting to player in %v... (%d/%d)", delay, attempt, c.opts.ReconnectAttempts)
		if err := sleepCtx(ctx, delay); err != nil {
			return err
		}
		delay *= 2

		ch, err := c.launcher.Dial(ctx)
		if err != nil {
			lastErr = err
			continue
		}

		c.channel = ch
		if err := c.applyVolume(ctx); err != nil {
			lastErr = err
			c.dropChannel()
			continue
		}
		log.Info().Int("attempt", attempt).Msg("Reconnected to player")
		return nil
	}

	return fmt.Errorf("%w: reconnect failed after %d attempts: %v",
		ErrChannelUnavailable, c.opts.ReconnectAttempts, lastErr)
}

// applyVolume pushes the controller's volume when the player disagrees.
func (c *Controller) applyVolume(ctx context.Context) error {
	current, err := c.channel.GetVolume(ctx)
	if err != nil {
		if errors.Is(err, ErrChannelUnavailable) {
			return err
		}
		log.Debug().Err(err).Msg("Could not read player volume")
	} else if current == c.state.Volume {
		return nil
	}

	if err := c.channel.SetVolume(ctx, c.state.Volume); err != nil && errors.Is(err, ErrChannelUnavailable) {
		return err
	}
	return nil
}

func (c *Controller) fail(err error) error {
	if !IsFatal(err) {
		return err
	}
	c.fatal = err
	c.dropChannel()
	c.setStatus(StateStopped)
	log.Error().Err(err).Msg("Player failed")
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
