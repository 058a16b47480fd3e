package player

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/glebovdev/nightride-cli/internal/station"
)

type fakeChannel struct {
	commands []string
	volume   int
	broken   bool
	closed   bool
	loadErr  error
}

func (f *fakeChannel) do(cmd string) error {
	if f.broken {
		return fmt.Errorf("%w: broken pipe", ErrChannelUnavailable)
	}
	f.commands = append(f.commands, cmd)
	return nil
}

func (f *fakeChannel) Load(_ context.Context, url string) error {
	if err := f.do("load " + url); err != nil {
		return err
	}
	return f.loadErr
}
func (f *fakeChannel) Play(context.Context) error  { return f.do("play") }
func (f *fakeChannel) Pause(context.Context) error { return f.do("pause") }
func (f *fakeChannel) Stop(context.Context) error  { return f.do("stop") }

func (f *fakeChannel) SetVolume(_ context.Context, v int) error {
	if err := f.do(fmt.Sprintf("volume %d", v)); err != nil {
		return err
	}
	f.volume = v
	return nil
}

func (f *fakeChannel) GetVolume(context.Context) (int, error) {
	if err := f.do("get_volume"); err != nil {
		return 0, err
	}
	return f.volume, nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

type fakeLauncher struct {
	running    bool // a player is already listening before Spawn
	spawnErr   error
	dialErr    error
	dials      int
	spawns     int
	released   int
	channels   []*fakeChannel
	spawnedVol int
}

func (l *fakeLauncher) Dial(context.Context) (Channel, error) {
	l.dials++
	if l.dialErr != nil {
		return nil, l.dialErr
	}
	if !l.running {
		return nil, errors.New("connect: no such file or directory")
	}
	ch := &fakeChannel{volume: l.spawnedVol}
	l.channels = append(l.channels, ch)
	return ch, nil
}

func (l *fakeLauncher) Spawn(_ context.Context, volume int) error {
	l.spawns++
	if l.spawnErr != nil {
		return l.spawnErr
	}
	l.running = true
	l.spawnedVol = volume
	return nil
}

func (l *fakeLauncher) Release() error {
	l.released++
	l.running = false
	return nil
}

func (l *fakeLauncher) last() *fakeChannel {
	return l.channels[len(l.channels)-1]
}

var (
	stationA = station.Station{ID: "a", StreamURL: "http://example.com/a.ogg"}
	stationB = station.Station{ID: "b", StreamURL: "http://example.com/b.ogg"}
)

func fastOptions() Options {
	return Options{
		ReconnectAttempts: 3,
		ReconnectDelay:    time.Millisecond,
		SpawnWait:         50 * time.Millisecond,
	}
}

func startedController(t *testing.T, volume int) (*Controller, *fakeLauncher) {
	t.Helper()
	l := &fakeLauncher{}
	c := NewController(l, volume, fastOptions())
	if err := c.Start(context.Background(), stationA); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	return c, l
}

func TestPlayerStateString(t *testing.T) {
	tests := []struct {
		state    PlayerState
		expected string
	}{
		{StateStopped, "STOPPED"},
		{StateLoading, "LOADING"},
		{StatePlaying, "PLAYING"},
		{StatePaused, "PAUSED"},
		{PlayerState(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.state.String(); got != tt.expected {
				t.Errorf("PlayerState(%d).String() = %q, want %q", tt.state, got, tt.expected)
			}
		})
	}
}

func TestNewControllerClampsVolume(t *testing.T) {
	tests := []struct {
		input    int
		expected int
	}{
		{-5, 0},
		{50, 50},
		{250, 100},
	}

	for _, tt := range tests {
		c := NewController(&fakeLauncher{}, tt.input, Options{})
		if c.Volume() != tt.expected {
			t.Errorf("NewController(volume=%d).Volume() = %d, want %d", tt.input, c.Volume(), tt.expected)
		}
		if c.State().Status != StateStopped {
			t.Errorf("new controller status = %s, want STOPPED", c.State().Status)
		}
	}
}

func TestStartSpawnsAndPlays(t *testing.T) {
	c, l := startedController(t, 40)

	if l.spawns != 1 {
		t.Errorf("spawns = %d, want 1", l.spawns)
	}
	if l.spawnedVol != 40 {
		t.Errorf("spawned with volume %d, want 40", l.spawnedVol)
	}

	st := c.State()
	if st.Status != StatePlaying || !st.Playing() {
		t.Errorf("status = %s, want PLAYING", st.Status)
	}
	if st.StationID != "a" {
		t.Errorf("StationID = %q, want a", st.StationID)
	}

	want := []string{"load http://example.com/a.ogg", "play"}
	if got := l.last().commands; strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("commands = %v, want %v", got, want)
	}
}

func TestStartSwitchesInPlace(t *testing.T) {
	c, l := startedController(t, 50)
	ch := l.last()

	if err := c.Start(context.Background(), stationB); err != nil {
		t.Fatalf("Start(b) error = %v", err)
	}

	if l.spawns != 1 {
		t.Errorf("spawns = %d, want 1 (switch must not respawn)", l.spawns)
	}
	if len(l.channels) != 1 {
		t.Errorf("channels = %d, want 1", len(l.channels))
	}
	if c.State().StationID != "b" {
		t.Errorf("StationID = %q, want b", c.State().StationID)
	}
	if c.CurrentStation() == nil || c.CurrentStation().ID != "b" {
		t.Errorf("CurrentStation() = %+v, want b", c.CurrentStation())
	}
	last := ch.commands[len(ch.commands)-2]
	if last != "load http://example.com/b.ogg" {
		t.Errorf("load command = %q", last)
	}
}

func TestStartAttachesToRunningPlayer(t *testing.T) {
	l := &fakeLauncher{running: true, spawnedVol: 80}
	c := NewController(l, 30, fastOptions())

	if err := c.Start(context.Background(), stationA); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if l.spawns != 0 {
		t.Errorf("spawns = %d, want 0", l.spawns)
	}
	ch := l.last()
	if ch.volume != 30 {
		t.Errorf("player volume = %d, want controller volume 30 applied on attach", ch.volume)
	}

	if err := c.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
	if l.released != 0 {
		t.Error("Shutdown() must not release a process it did not spawn")
	}
}

func TestStartSpawnFailureIsFatal(t *testing.T) {
	l := &fakeLauncher{spawnErr: errors.New(`exec: "mpv": executable file not found in $PATH`)}
	c := NewController(l, 50, fastOptions())

	err := c.Start(context.Background(), stationA)
	if !errors.Is(err, ErrProcessSpawnFailed) {
		t.Fatalf("Start() error = %v, want ErrProcessSpawnFailed", err)
	}
	if !IsFatal(err) {
		t.Error("spawn failure should be fatal")
	}
	if l.spawns != 1 {
		t.Errorf("spawns = %d, want exactly 1 (no retry)", l.spawns)
	}
	if c.Err() == nil {
		t.Error("Err() should report the fatal error")
	}
	if err := c.Start(context.Background(), stationA); !errors.Is(err, ErrProcessSpawnFailed) {
		t.Errorf("Start() after fatal = %v, want the fatal error", err)
	}
}

func TestStartLoadCommandError(t *testing.T) {
	c, l := startedController(t, 50)
	l.last().loadErr = errors.New("loading failed")

	err := c.Start(context.Background(), stationB)
	if err == nil {
		t.Fatal("Start() should fail when load is rejected")
	}
	if IsFatal(err) {
		t.Error("a rejected load should not be fatal")
	}
	if c.State().Status != StateStopped {
		t.Errorf("status = %s, want STOPPED", c.State().Status)
	}
}

func TestTogglePlayPause(t *testing.T) {
	c, l := startedController(t, 50)
	ctx := context.Background()

	if err := c.TogglePlayPause(ctx); err != nil {
		t.Fatal(err)
	}
	if c.State().Status != StatePaused {
		t.Errorf("status = %s, want PAUSED", c.State().Status)
	}

	if err := c.TogglePlayPause(ctx); err != nil {
		t.Fatal(err)
	}
	if c.State().Status != StatePlaying {
		t.Errorf("status = %s, want PLAYING", c.State().Status)
	}

	cmds := l.last().commands
	if cmds[len(cmds)-2] != "pause" || cmds[len(cmds)-1] != "play" {
		t.Errorf("commands = %v, want ... pause, play", cmds)
	}
}

func TestTogglePlayPauseWhenStopped(t *testing.T) {
	c := NewController(&fakeLauncher{}, 50, fastOptions())

	err := c.TogglePlayPause(context.Background())
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("TogglePlayPause() error = %v, want ErrInvalidState", err)
	}
	if IsFatal(err) {
		t.Error("invalid state should not be fatal")
	}
}

func TestSetVolumeClamping(t *testing.T) {
	tests := []struct {
		name     string
		start    int
		deltas   []int
		expected int
	}{
		{"step up", 50, []int{5}, 55},
		{"step down", 50, []int{-5}, 45},
		{"clamp at 100", 95, []int{10, 10}, 100},
		{"clamp at 0", 3, []int{-10}, 0},
		{"huge positive", 10, []int{1 << 20}, 100},
		{"huge negative", 90, []int{-(1 << 20)}, 0},
		{"mixed", 50, []int{30, 30, -200, 7}, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, l := startedController(t, tt.start)
			for _, d := range tt.deltas {
				if _, err := c.SetVolume(context.Background(), d); err != nil {
					t.Fatalf("SetVolume(%d) error = %v", d, err)
				}
				if v := c.Volume(); v < 0 || v > 100 {
					t.Fatalf("volume %d out of range", v)
				}
			}
			if c.Volume() != tt.expected {
				t.Errorf("Volume() = %d, want %d", c.Volume(), tt.expected)
			}
			if c.Volume() != l.last().volume && tt.expected != tt.start {
				t.Errorf("player volume = %d, want %d", l.last().volume, c.Volume())
			}
		})
	}
}

func TestSetVolumeSaturationIsNoop(t *testing.T) {
	c, l := startedController(t, 100)
	ch := l.last()
	before := len(ch.commands)

	changed, err := c.SetVolume(context.Background(), 10)
	if err != nil {
		t.Fatalf("SetVolume() error = %v", err)
	}
	if changed {
		t.Error("SetVolume() at saturation should report no change")
	}
	if len(ch.commands) != before {
		t.Errorf("SetVolume() at saturation sent %v", ch.commands[before:])
	}
}

func TestSetVolumeWhileStoppedIsStored(t *testing.T) {
	l := &fakeLauncher{}
	c := NewController(l, 50, fastOptions())

	changed, err := c.SetVolume(context.Background(), -20)
	if err != nil || !changed {
		t.Fatalf("SetVolume() = %v, %v", changed, err)
	}
	if l.dials != 0 {
		t.Error("SetVolume() while stopped should not touch the player")
	}

	if err := c.Start(context.Background(), stationA); err != nil {
		t.Fatal(err)
	}
	if l.spawnedVol != 30 {
		t.Errorf("spawned volume = %d, want 30", l.spawnedVol)
	}
}

func TestReconnectAfterDisconnect(t *testing.T) {
	c, l := startedController(t, 60)
	l.last().broken = true

	if err := c.TogglePlayPause(context.Background()); err != nil {
		t.Fatalf("TogglePlayPause() error = %v", err)
	}

	if len(l.channels) != 2 {
		t.Fatalf("channels = %d, want a fresh channel after reconnect", len(l.channels))
	}
	if !l.channels[0].closed {
		t.Error("broken channel should be closed")
	}
	fresh := l.last()
	if fresh.volume != 60 {
		t.Errorf("volume after reconnect = %d, want 60 re-applied", fresh.volume)
	}
	if fresh.commands[len(fresh.commands)-1] != "pause" {
		t.Errorf("commands = %v, want pause retried on new channel", fresh.commands)
	}
	if c.State().Status != StatePaused {
		t.Errorf("status = %s, want PAUSED", c.State().Status)
	}
}

func TestReconnectExhaustionIsFatal(t *testing.T) {
	c, l := startedController(t, 50)
	l.last().broken = true
	l.dialErr = errors.New("connection refused")
	dialsBefore := l.dials

	done := make(chan error, 1)
	go func() {
		_, err := c.SetVolume(context.Background(), 5)
		done <- err
	}()

	var err error
	select {
	case err = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("SetVolume() hung instead of failing")
	}

	if !errors.Is(err, ErrChannelUnavailable) || !IsFatal(err) {
		t.Fatalf("SetVolume() error = %v, want fatal ErrChannelUnavailable", err)
	}
	if got := l.dials - dialsBefore; got != 3 {
		t.Errorf("reconnect dials = %d, want 3", got)
	}
	if c.State().Status != StateStopped {
		t.Errorf("status = %s, want STOPPED", c.State().Status)
	}
	if c.Volume() != 50 {
		t.Errorf("volume = %d, want unchanged 50", c.Volume())
	}

	if err := c.TogglePlayPause(context.Background()); !errors.Is(err, ErrChannelUnavailable) {
		t.Errorf("command after fatal = %v, want the fatal error", err)
	}
}

func TestReconnectHonoursContext(t *testing.T) {
	l := &fakeLauncher{}
	c := NewController(l, 50, Options{ReconnectAttempts: 3, ReconnectDelay: time.Hour, SpawnWait: time.Millisecond})
	if err := c.Start(context.Background(), stationA); err != nil {
		t.Fatal(err)
	}
	l.last().broken = true

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.TogglePlayPause(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("TogglePlayPause() error = %v, want context.Canceled", err)
	}
	if c.Err() != nil {
		t.Error("a cancelled reconnect should not be fatal")
	}
}

func TestShutdown(t *testing.T) {
	c, l := startedController(t, 50)
	ch := l.last()

	if err := c.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	if ch.commands[len(ch.commands)-1] != "stop" {
		t.Errorf("last command = %q, want stop", ch.commands[len(ch.commands)-1])
	}
	if !ch.closed {
		t.Error("channel should be closed")
	}
	if l.released != 1 {
		t.Errorf("released = %d, want 1", l.released)
	}
	if c.State().Status != StateStopped {
		t.Errorf("status = %s, want STOPPED", c.State().Status)
	}

	if err := c.Shutdown(context.Background()); err != nil {
		t.Errorf("second Shutdown() error = %v", err)
	}
	if l.released != 1 {
		t.Error("second Shutdown() should not release again")
	}
}

func TestShutdownAfterFatalReleasesProcess(t *testing.T) {
	c, l := startedController(t, 50)
	l.last().broken = true
	l.dialErr = errors.New("connection refused")

	_ = c.TogglePlayPause(context.Background())
	if c.Err() == nil {
		t.Fatal("expected fatal error")
	}

	if err := c.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
	if l.released != 1 {
		t.Errorf("released = %d, want 1", l.released)
	}
}

func TestSpawnedPlayerNeverListens(t *testing.T) {
	l := &fakeLauncher{dialErr: errors.New("no such file")}
	c := NewController(l, 50, fastOptions())

	err := c.Start(context.Background(), stationA)
	if !errors.Is(err, ErrChannelUnavailable) {
		t.Fatalf("Start() error = %v, want ErrChannelUnavailable", err)
	}
	if l.spawns != 1 {
		t.Errorf("spawns = %d, want 1", l.spawns)
	}
}
