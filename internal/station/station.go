// Package station defines the Nightride FM station catalog.
package station

import (
	"errors"
	"fmt"
	"strings"
)

const streamBaseURL = "https://stream.nightride.fm/"

// DefaultIDs is the built-in station order.
var DefaultIDs = []string{
	"nightride",
	"chillsynth",
	"datawave",
	"spacesynth",
	"darksynth",
	"horrorsynth",
	"ebsm",
}

var (
	ErrNoStations  = errors.New("no stations configured")
	ErrDuplicateID = errors.New("duplicate station id")
)

// Station is a named radio stream together with its now-playing endpoint.
type Station struct {
	ID          string
	Name        string
	StreamURL   string
	MetadataURL string
}

// Registry is the immutable, ordered station catalog for a run.
type Registry struct {
	stations []Station
	index    map[string]int
}

// NewRegistry builds a registry preserving the given order.
func NewRegistry(stations []Station) (*Registry, error) {
	if len(stations) == 0 {
		return nil, ErrNoStations
	}

	r := &Registry{
		stations: make([]Station, len(stations)),
		index:    make(map[string]int, len(stations)),
	}
	for i, st := range stations {
		if st.ID == "" {
			return nil, fmt.Errorf("station %d has an empty id", i)
		}
		if _, ok := r.index[st.ID]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, st.ID)
		}
		r.stations[i] = st
		r.index[st.ID] = i
	}
	return r, nil
}

// Defaults returns the built-in Nightride stations. metadataURL maps a
// station id to its now-playing endpoint.
func Defaults(metadataURL func(id string) string) []Station {
	stations := make([]Station, 0, len(DefaultIDs))
	for _, id := range DefaultIDs {
		stations = append(stations, Station{
			ID:          id,
			Name:        displayName(id),
			StreamURL:   streamBaseURL + id + ".ogg",
			MetadataURL: metadataURL(id),
		})
	}
	return stations
}

func displayName(id string) string {
	switch id {
	case "nightride":
		return "Nightride FM"
	case "ebsm":
		return "EBSM"
	}
	return strings.ToUpper(id[:1]) + id[1:]
}

// Default returns the first configured station.
func (r *Registry) Default() Station {
	return r.stations[0]
}

// Find looks up a station by id.
func (r *Registry) Find(id string) (Station, bool) {
	i, ok := r.index[id]
	if !ok {
		return Station{}, false
	}
	return r.stations[i], true
}

// Contains reports whether id names a configured station.
func (r *Registry) Contains(id string) bool {
	_, ok := r.index[id]
	return ok
}

// Next returns the station after currentID, wrapping to the first one.
// An unknown id yields the first station.
func (r *Registry) Next(currentID string) Station {
	i, ok := r.index[currentID]
	if !ok {
		return r.stations[0]
	}
	return r.stations[(i+1)%len(r.stations)]
}

// IndexOf returns the position of id, or -1.
func (r *Registry) IndexOf(id string) int {
	if i, ok := r.index[id]; ok {
		return i
	}
	return -1
}

func (r *Registry) Len() int {
	return len(r.stations)
}

// All returns a copy of the stations in configured order.
func (r *Registry) All() []Station {
	result := make([]Station, len(r.stations))
	copy(result, r.stations)
	return result
}
