// Package mpv controls an mpv process through its JSON IPC socket.
package mpv

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net"
	"sync"
	"time"

	"github.com/glebovdev/nightride-cli/internal/player"
	"github.com/rs/zerolog/log"
)

const (
	DefaultCommandTimeout = 2 * time.Second
	maxLineSize           = 1 << 20
)

// CommandError is returned when mpv answers a request with an error status.
type CommandError struct {
	Command string
	Status  string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("mpv %s: %s", e.Command, e.Status)
}

type request struct {
	Command   []any `json:"command"`
	RequestID int64 `json:"request_id"`
}

type response struct {
	Error     string          `json:"error"`
	Data      json.RawMessage `json:"data"`
	RequestID *int64          `json:"request_id"`
	Event     string          `json:"event"`
}

// Client is a player.Channel over an mpv IPC socket. Every call is a single
// request/response round trip bounded by the command timeout.
type Client struct {
	conn    net.Conn
	reader  *bufio.Reader
	timeout time.Duration
	nextID  int64
	mu      sync.Mutex
}

var _ player.Channel = (*Client)(nil)

// Dial connects to the mpv socket at path.
func Dial(ctx context.Context, path string, timeout time.Duration) (*Client, error) {
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}

	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "unix", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", player.ErrChannelUnavailable, err)
	}

	return &Client{
		conn:    conn,
		reader:  bufio.NewReaderSize(conn, 4096),
		timeout: timeout,
	}, nil
}

func (c *Client) Load(ctx context.Context, url string) error {
	_, err := c.command(ctx, "loadfile", url, "replace")
	return err
}

func (c *Client) Play(ctx context.Context) error {
	_, err := c.command(ctx, "set_property", "pause", false)
	return err
}

func (c *Client) Pause(ctx context.Context) error {
	_, err := c.command(ctx, "set_property", "pause", true)
	return err
}

func (c *Client) SetVolume(ctx context.Context, volume int) error {
	_, err := c.command(ctx, "set_property", "volume", volume)
	return err
}

func (c *Client) GetVolume(ctx context.Context) (int, error) {
	data, err := c.command(ctx, "get_property", "volume")
	if err != nil {
		return 0, err
	}

	var volume float64
	if err := json.Unmarshal(data, &volume); err != nil {
		return 0, fmt.Errorf("failed to parse volume %q: %w", string(data), err)
	}
	return int(math.Round(volume)), nil
}

func (c *Client) Stop(ctx context.Context) error {
	_, err := c.command(ctx, "stop")
	return err
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) command(ctx context.Context, args ...any) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	id := c.nextID
	name := fmt.Sprint(args[0])

	payload, err := json.Marshal(request{Command: args, RequestID: id})
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", name, err)
	}
	payload = append(payload, '\n')

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetDeadline(deadline); err != nil {
		return nil, fmt.Errorf("%w: %v", player.ErrChannelUnavailable, err)
	}

	if _, err := c.conn.Write(payload); err != nil {
		return nil, fmt.Errorf("%w: write %s: %v", player.ErrChannelUnavailable, name, err)
	}

	for {
		line, err := c.readLine()
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", player.ErrChannelUnavailable, name, err)
		}

		var resp response
		if err := json.Unmarshal(line, &resp); err != nil {
			log.Debug().Err(err).Str("line", string(line)).Msg("Skipping unparsable mpv message")
			continue
		}
		if resp.Event != "" || resp.RequestID == nil || *resp.RequestID != id {
			continue
		}

		if resp.Error != "success" {
			return nil, &CommandError{Command: name, Status: resp.Error}
		}
		log.Debug().Str("cmd", name).Msg("mpv command acknowledged")
		return resp.Data, nil
	}
}

func (c *Client) readLine() ([]byte, error) {
	var line []byte
	for {
		chunk, isPrefix, err := c.reader.ReadLine()
		if err != nil {
			return nil, err
		}
		line = append(line, chunk...)
		if len(line) > maxLineSize {
			return nil, fmt.Errorf("message exceeds %d bytes", maxLineSize)
		}
		if !isPrefix {
			return line, nil
		}
	}
}
