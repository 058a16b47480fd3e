package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/gdamore/tcell/v2"
	"gopkg.in/yaml.v3"
)

const (
	AppName        = "Nightride CLI"
	AppTagline     = "Terminal synthwave radio"
	AppDescription = "A terminal-based player for Nightride FM radio stations"
	AppProjectURL  = "https://github.com/glebovdev/nightride-cli"

	ConfigDir      = ".config/nightride"
	ConfigFileName = "config.yml"
	DataDirName    = "nightride"
	DefaultVolume  = 50
	MinVolume      = 0
	MaxVolume      = 100
)

// ClampVolume ensures volume is within the valid range [0, 100].
func ClampVolume(volume int) int {
	if volume < MinVolume {
		return MinVolume
	}
	if volume > MaxVolume {
		return MaxVolume
	}
	return volume
}

// AppVersion can be overridden at build time using ldflags:
// go build -ldflags "-X github.com/glebovdev/nightride-cli/internal/config.AppVersion=1.0.0"
var AppVersion = "dev"

type Theme struct {
	Background       string `yaml:"background" default:"#14101f"`
	Foreground       string `yaml:"foreground" default:"#c9b8e8"`
	Borders          string `yaml:"borders" default:"#3d2f5c"`
	Highlight        string `yaml:"highlight" default:"#ff4fa3"`
	MutedVolume      string `yaml:"muted_volume" default:"#fe0702"`
	HeaderBackground string `yaml:"header_background" default:"#2b1b47"`
	HelpBackground   string `yaml:"help_background" default:"#241a3a"`
	HelpForeground   string `yaml:"help_foreground" default:"#9a8bc6"`
	HelpHotkey       string `yaml:"help_hotkey" default:"#36f9f6"`
	ModalBackground  string `yaml:"modal_background" default:"#1e1630"`
}

// StationEntry is a user-defined station. An empty MetadataURL is derived from
// Config.MetadataURLTemplate.
type StationEntry struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	StreamURL   string `yaml:"stream_url"`
	MetadataURL string `yaml:"metadata_url"`
}

type Config struct {
	MpvPath             string         `yaml:"mpv_path" default:"mpv"`
	SocketPath          string         `yaml:"socket_path" default:"/tmp/nightride.sock"`
	VolumeStep          int            `yaml:"volume_step" default:"5"`
	PollInterval        time.Duration  `yaml:"poll_interval" default:"15s"`
	CommandTimeout      time.Duration  `yaml:"command_timeout" default:"2s"`
	ReconnectAttempts   int            `yaml:"reconnect_attempts" default:"3"`
	SearchURL           string         `yaml:"search_url" default:"https://music.youtube.com/search"`
	MetadataURLTemplate string         `yaml:"metadata_url_template" default:"https://nightride.fm/meta/{id}.json"`
	Stations            []StationEntry `yaml:"stations"`
	Theme               Theme          `yaml:"theme"`
}

func GetConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	configPath := filepath.Join(home, ConfigDir, ConfigFileName)
	return configPath, nil
}

// GetDataDir returns the per-user data directory, honouring XDG_DATA_HOME.
func GetDataDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, DataDirName), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", DataDirName), nil
}

// GetCacheDir returns the platform-specific cache directory, used for the debug log.
func GetCacheDir() (string, error) {
	userCacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user cache directory: %w", err)
	}
	return filepath.Join(userCacheDir, DataDirName), nil
}

// Load reads the config from the default location.
func Load() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return DefaultConfig(), err
	}
	return LoadFrom(configPath)
}

// LoadFrom reads the config at path. A missing file is not an error; any other
// failure returns the defaults together with the error.
func LoadFrom(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return DefaultConfig(), fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := defaults.Set(cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("failed to apply config defaults: %w", err)
	}

	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	if c.VolumeStep <= 0 {
		c.VolumeStep = 5
	}
	if c.VolumeStep > MaxVolume {
		c.VolumeStep = MaxVolume
	}
	if c.PollInterval < time.Second {
		c.PollInterval = time.Second
	}
	if c.CommandTimeout <= 0 {
		c.CommandTimeout = 2 * time.Second
	}
	if c.ReconnectAttempts < 1 {
		c.ReconnectAttempts = 1
	}
}

// MetadataURLFor expands the metadata template for a station id.
func (c *Config) MetadataURLFor(stationID string) string {
	return strings.ReplaceAll(c.MetadataURLTemplate, "{id}", stationID)
}

func DefaultConfig() *Config {
	cfg := &Config{}
	// Only fails for unsupported field types, which Config does not have.
	_ = defaults.Set(cfg)
	return cfg
}

func GetColor(colorStr string) tcell.Color {
	if colorStr == "" || colorStr == "default" {
		return tcell.ColorDefault
	}
	return tcell.GetColor(colorStr)
}
