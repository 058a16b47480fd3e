package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/glebovdev/nightride-cli/internal/api"
	"github.com/glebovdev/nightride-cli/internal/app"
	"github.com/glebovdev/nightride-cli/internal/config"
	"github.com/glebovdev/nightride-cli/internal/input"
	"github.com/glebovdev/nightride-cli/internal/metadata"
	"github.com/glebovdev/nightride-cli/internal/mpv"
	"github.com/glebovdev/nightride-cli/internal/player"
	"github.com/glebovdev/nightride-cli/internal/search"
	"github.com/glebovdev/nightride-cli/internal/session"
	"github.com/glebovdev/nightride-cli/internal/ui"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
)

var (
	versionFlag = flag.Bool("version", false, "Show version information")
	debugFlag   = flag.Bool("debug", false, "Enable debug logging")
	stationFlag = flag.String("station", "", "Start with the given station id")
	configFlag  = flag.String("config", "", "Path to an alternative config file")
)

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s v%s - %s\n\n", config.AppName, config.AppVersion, config.AppDescription)
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()

		configPath, err := config.GetConfigPath()
		if err == nil {
			if _, statErr := os.Stat(configPath); statErr == nil {
				fmt.Fprintf(os.Stderr, "\nConfig file: %s\n", configPath)
			} else {
				fmt.Fprintf(os.Stderr, "\nNo config file at %s, using defaults.\n", configPath)
			}
		}
	}
}

func setupLogging(debug bool) {
	if !debug {
		// Anything written to the terminal would corrupt the TUI
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
		logFile, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0644)
		if err == nil {
			log.Logger = log.Output(logFile)
		}
		return
	}

	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	cacheDir, err := config.GetCacheDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not get cache dir: %v\n", err)
		cacheDir = os.TempDir()
	}
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log dir: %v\n", err)
	}
	logPath := filepath.Join(cacheDir, "debug.log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log file: %v\n", err)
		logFile = os.Stderr
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: logFile, TimeFormat: "15:04:05"})
	fmt.Printf("Debug log: %s\n", logPath)
	log.Info().Msgf("Starting %s v%s (debug mode)", config.AppName, config.AppVersion)
}

func loadConfig() *config.Config {
	var (
		cfg *config.Config
		err error
	)
	if *configFlag != "" {
		cfg, err = config.LoadFrom(*configFlag)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load config, using defaults")
	}
	return cfg
}

func sessionPath() string {
	path, err := session.DefaultPath()
	if err != nil {
		log.Warn().Err(err).Msg("No data directory, keeping session in temp dir")
		return filepath.Join(os.TempDir(), config.DataDirName, session.FileName)
	}
	return path
}

func main() {
	flag.Parse()

	if *versionFlag {
		fmt.Printf("%s v%s\n", config.AppName, config.AppVersion)
		fmt.Println(config.AppDescription)
		fmt.Println(config.AppProjectURL)
		os.Exit(0)
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintf(os.Stderr, "%s needs an interactive terminal\n", config.AppName)
		os.Exit(1)
	}

	setupLogging(*debugFlag)

	cfg := loadConfig()
	registry, err := app.BuildRegistry(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid station list: %v\n", err)
		os.Exit(1)
	}

	store := session.NewStore(sessionPath(), session.State{
		LastStationID: registry.Default().ID,
		LastVolume:    config.DefaultVolume,
	}, registry)
	log.Debug().Str("session", store.Path()).Int("stations", registry.Len()).Msg("Initialized")

	dispatcher := input.NewDispatcher()
	tui := ui.NewUI(cfg, registry.All(), dispatcher)

	radio := app.New(app.Deps{
		Registry:   registry,
		Store:      store,
		Launcher:   mpv.NewLauncher(cfg.MpvPath, cfg.SocketPath, cfg.CommandTimeout),
		Poller:     metadata.NewPoller(api.NewClient(), cfg.PollInterval),
		Search:     search.NewBuilder(cfg.SearchURL),
		Dispatcher: dispatcher,
		Renderer:   tui,
	}, app.Options{
		VolumeStep:   cfg.VolumeStep,
		StartStation: *stationFlag,
		Player: player.Options{
			ReconnectAttempts: cfg.ReconnectAttempts,
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("Received shutdown signal, cleaning up...")
		cancel()
		tui.Stop()
	}()

	appDone := make(chan error, 1)
	go func() {
		err := radio.Run(ctx)
		if err != nil {
			log.Error().Err(err).Msg("Player stopped")
			tui.ShowFatal(err.Error())
		} else {
			tui.Stop()
		}
		appDone <- err
	}()

	uiErr := tui.Run()
	cancel()
	runErr := <-appDone

	if uiErr != nil {
		log.Error().Err(uiErr).Msg("Error running UI")
		fmt.Fprintf(os.Stderr, "UI error: %v\n", uiErr)
		os.Exit(1)
	}
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "%v\n", runErr)
		os.Exit(1)
	}
	log.Info().Msgf("%s stopped", config.AppName)
}
