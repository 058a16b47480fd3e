// Package session persists the last played station and volume between runs.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebovdev/nightride-cli/internal/config"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

const FileName = "session.yml"

var ErrPersistenceUnavailable = errors.New("session persistence unavailable")

// State is the durable part of the playback state.
type State struct {
	LastStationID string `yaml:"last_station_id"`
	LastVolume    int    `yaml:"last_volume"`
}

// StationLookup reports whether a station id is known.
type StationLookup interface {
	Contains(id string) bool
}

// Store reads and writes the session file.
type Store struct {
	path     string
	defaults State
	stations StationLookup
}

// NewStore creates a store at path. defaults is returned by Load whenever
// the file cannot be used.
func NewStore(path string, defaults State, stations StationLookup) *Store {
	return &Store{
		path:     path,
		defaults: defaults,
		stations: stations,
	}
}

// DefaultPath returns the session file location under the user data dir.
func DefaultPath() (string, error) {
	dataDir, err := config.GetDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, FileName), nil
}

func (s *Store) Path() string {
	return s.path
}

// Load returns the persisted state. It never fails: a missing, unreadable or
// invalid file yields the defaults.
func (s *Store) Load() State {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Debug().Str("file", s.path).Msg("No session file, using defaults")
		} else {
			log.Warn().Err(err).Str("file", s.path).Msg("Failed to read session file, using defaults")
		}
		return s.defaults
	}

	var st State
	if err := yaml.Unmarshal(data, &st); err != nil {
		log.Warn().Err(err).Str("file", s.path).Msg("Failed to parse session file, using defaults")
		return s.defaults
	}

	if err := s.validate(st); err != nil {
		log.Warn().Err(err).Str("file", s.path).Msg("Invalid session file, using defaults")
		return s.defaults
	}

	log.Debug().Str("station", st.LastStationID).Int("volume", st.LastVolume).Msg("Session loaded")
	return st
}

func (s *Store) validate(st State) error {
	if st.LastVolume < config.MinVolume || st.LastVolume > config.MaxVolume {
		return fmt.Errorf("volume %d out of range", st.LastVolume)
	}
	if st.LastStationID == "" {
		return errors.New("missing station id")
	}
	if s.stations != nil && !s.stations.Contains(st.LastStationID) {
		return fmt.Errorf("unknown station %q", st.LastStationID)
	}
	return nil
}

// Save writes the state atomically using temp file + rename.
func (s *Store) Save(st State) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("%w: failed to create session directory: %v", ErrPersistenceUnavailable, err)
	}

	data, err := yaml.Marshal(st)
	if err != nil {
		return fmt.Errorf("%w: failed to marshal session: %v", ErrPersistenceUnavailable, err)
	}

	tmpFile, err := os.CreateTemp(dir, ".session-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: failed to create temp file: %v", ErrPersistenceUnavailable, err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		if tmpPath != "" {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("%w: failed to write temp file: %v", ErrPersistenceUnavailable, err)
	}

	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("%w: failed to sync temp file: %v", ErrPersistenceUnavailable, err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("%w: failed to close temp file: %v", ErrPersistenceUnavailable, err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("%w: failed to rename session file: %v", ErrPersistenceUnavailable, err)
	}

	tmpPath = "" // Prevent defer from removing the final file
	log.Debug().Str("station", st.LastStationID).Int("volume", st.LastVolume).Msg("Session saved")
	return nil
}
