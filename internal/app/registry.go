package app

import (
	"fmt"

	"github.com/glebovdev/nightride-cli/internal/config"
	"github.com/glebovdev/nightride-cli/internal/station"
)

// BuildRegistry returns the configured station list, or the built-in
// catalog when the config names no stations.
func BuildRegistry(cfg *config.Config) (*station.Registry, error) {
	if len(cfg.Stations) == 0 {
		return station.NewRegistry(station.Defaults(cfg.MetadataURLFor))
	}

	stations := make([]station.Station, 0, len(cfg.Stations))
	for _, e := range cfg.Stations {
		if e.StreamURL == "" {
			return nil, fmt.Errorf("station %q has no stream_url", e.ID)
		}
		s := station.Station{
			ID:          e.ID,
			Name:        e.Name,
			StreamURL:   e.StreamURL,
			MetadataURL: e.MetadataURL,
		}
		if s.Name == "" {
			s.Name = e.ID
		}
		if s.MetadataURL == "" {
			s.MetadataURL = cfg.MetadataURLFor(e.ID)
		}
		stations = append(stations, s)
	}
	return station.NewRegistry(stations)
}
