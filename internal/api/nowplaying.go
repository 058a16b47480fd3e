// Package api provides the HTTP client for the Nightride now-playing endpoint.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/glebovdev/nightride-cli/internal/config"
	"github.com/go-resty/resty/v2"
)

const requestTimeout = 10 * time.Second

// StatusError is returned when the endpoint answers with a non-2xx status.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api returned status %d: %s", e.Code, e.Status)
}

// Track is the now-playing entry of a station. Empty fields are unknown.
type Track struct {
	Artist string `json:"artist"`
	Title  string `json:"title"`
	Album  string `json:"album"`
}

// Empty reports whether the endpoint returned nothing usable.
func (t Track) Empty() bool {
	return t.Artist == "" && t.Title == "" && t.Album == ""
}

// Client fetches track metadata over HTTP.
type Client struct {
	client *resty.Client
}

func NewClient() *Client {
	return &Client{
		client: resty.New().
			SetTimeout(requestTimeout).
			SetHeader("User-Agent", fmt.Sprintf("nightride-cli/%s", config.AppVersion)).
			SetHeader("Cache-Control", "no-store"),
	}
}

// FetchTrack fetches and parses the now-playing document at url.
func (c *Client) FetchTrack(ctx context.Context, url string) (Track, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		return Track{}, fmt.Errorf("failed to fetch %s: %w", url, err)
	}

	if !resp.IsSuccess() {
		return Track{}, &StatusError{Code: resp.StatusCode(), Status: resp.Status()}
	}

	var track Track
	if err := json.Unmarshal(resp.Body(), &track); err != nil {
		return Track{}, fmt.Errorf("failed to parse track response: %w", err)
	}

	track.Artist = strings.TrimSpace(track.Artist)
	track.Title = strings.TrimSpace(track.Title)
	track.Album = strings.TrimSpace(track.Album)
	return track, nil
}
