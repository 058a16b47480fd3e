package mpv

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/glebovdev/nightride-cli/internal/player"
	"github.com/rs/zerolog/log"
)

const releaseTimeout = 2 * time.Second

// Launcher starts mpv in idle mode with an IPC server and connects to it.
type Launcher struct {
	Binary         string
	SocketPath     string
	CommandTimeout time.Duration

	mu   sync.Mutex
	cmd  *exec.Cmd
	done chan struct{}
}

var _ player.Launcher = (*Launcher)(nil)

func NewLauncher(binary, socketPath string, commandTimeout time.Duration) *Launcher {
	if binary == "" {
		binary = "mpv"
	}
	return &Launcher{
		Binary:         binary,
		SocketPath:     socketPath,
		CommandTimeout: commandTimeout,
	}
}

func (l *Launcher) Dial(ctx context.Context) (player.Channel, error) {
	client, err := Dial(ctx, l.SocketPath, l.CommandTimeout)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func (l *Launcher) args(volume int) []string {
	return []string{
		"--idle=yes",
		"--no-video",
		"--no-terminal",
		"--force-window=no",
		fmt.Sprintf("--input-ipc-server=%s", l.SocketPath),
		fmt.Sprintf("--volume=%d", volume),
	}
}

// Spawn starts mpv. The process is not bound to ctx; Release stops it.
func (l *Launcher) Spawn(_ context.Context, volume int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cmd != nil {
		return errors.New("player already running")
	}

	path, err := exec.LookPath(l.Binary)
	if err != nil {
		return fmt.Errorf("%s not found: %w", l.Binary, err)
	}

	// A stale socket from a crashed run would make mpv fail to listen.
	if err := os.Remove(l.SocketPath); err != nil && !os.IsNotExist(err) {
		log.Debug().Err(err).Str("socket", l.SocketPath).Msg("Failed to remove stale socket")
	}

	cmd := exec.Command(path, l.args(volume)...)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", path, err)
	}

	done := make(chan struct{})
	go func() {
		err := cmd.Wait()
		log.Debug().Err(err).Int("pid", cmd.Process.Pid).Msg("mpv exited")
		close(done)
	}()

	l.cmd = cmd
	l.done = done
	log.Info().Int("pid", cmd.Process.Pid).Str("socket", l.SocketPath).Msg("mpv started")
	return nil
}

// Release terminates the spawned process, killing it if it does not exit in time.
func (l *Launcher) Release() error {
	l.mu.Lock()
	cmd, done := l.cmd, l.done
	l.cmd, l.done = nil, nil
	l.mu.Unlock()

	if cmd == nil {
		return nil
	}

	defer os.Remove(l.SocketPath)

	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
		log.Debug().Err(err).Msg("Failed to signal mpv, killing")
		return cmd.Process.Kill()
	}

	select {
	case <-done:
		return nil
	case <-time.After(releaseTimeout):
		log.Warn().Msg("mpv did not exit in time, killing")
		if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			return fmt.Errorf("failed to kill mpv: %w", err)
		}
		<-done
		return nil
	}
}
