package ui

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/glebovdev/nightride-cli/internal/config"
	"github.com/glebovdev/nightride-cli/internal/input"
	"github.com/glebovdev/nightride-cli/internal/player"
	"github.com/glebovdev/nightride-cli/internal/station"
	"github.com/rivo/tview"
	"github.com/rs/zerolog/log"
)

const (
	HeaderHeight       = 3
	FooterHeightWide   = 3 // one text row, padded above and below
	FooterHeightNarrow = 6 // hotkeys and status stacked
	PlayerPanelHeight  = 12
	FooterBreakpoint   = 110
)

// PauseIcon falls back to plain bars on Windows, where ⏸ renders as an emoji.
var PauseIcon = func() string {
	if runtime.GOOS == "windows" {
		return "❚❚"
	}
	return "⏸"
}()

type palette struct {
	background       tcell.Color
	foreground       tcell.Color
	borders          tcell.Color
	highlight        tcell.Color
	mutedVolume      tcell.Color
	headerBackground tcell.Color
	helpBackground   tcell.Color
	helpForeground   tcell.Color
	helpHotkey       tcell.Color
	modalBackground  tcell.Color
}

func newPalette(t config.Theme) palette {
	return palette{
		background:       config.GetColor(t.Background),
		foreground:       config.GetColor(t.Foreground),
		borders:          config.GetColor(t.Borders),
		highlight:        config.GetColor(t.Highlight),
		mutedVolume:      config.GetColor(t.MutedVolume),
		headerBackground: config.GetColor(t.HeaderBackground),
		helpBackground:   config.GetColor(t.HelpBackground),
		helpForeground:   config.GetColor(t.HelpForeground),
		helpHotkey:       config.GetColor(t.HelpHotkey),
		modalBackground:  config.GetColor(t.ModalBackground),
	}
}

// UI renders snapshots of the player and forwards key presses to the
// dispatcher. All widget access happens on the tview event goroutine.
type UI struct {
	app        *tview.Application
	dispatcher *input.Dispatcher
	config     *config.Config
	stations   []station.Station
	colors     palette

	pages           *tview.Pages
	mainLayout      *tview.Flex
	contentLayout   *tview.Flex
	helpPanel       *tview.Box
	stationList     *tview.Table
	stationNameView *tview.TextView
	trackView       *tview.TextView
	albumView       *tview.TextView
	volumeView      *tview.TextView

	current         Snapshot
	lastVolume      int
	lastFooterWidth int
	animationFrame  int
	playingSpinner  *PlayingSpinner
	statusRenderer  *StatusRenderer

	// Written by Render and ShowFatal, drained by pump on the UI side.
	mu      sync.Mutex
	latest  *Snapshot
	fatal   string
	pending chan struct{}

	stopped  atomic.Bool
	quit     chan struct{}
	stopOnce sync.Once
}

func NewUI(cfg *config.Config, stations []station.Station, dispatcher *input.Dispatcher) *UI {
	ui := &UI{
		app:            tview.NewApplication(),
		dispatcher:     dispatcher,
		config:         cfg,
		stations:       stations,
		colors:         newPalette(cfg.Theme),
		current:        Snapshot{StationIndex: -1},
		lastVolume:     -1,
		playingSpinner: NewPlayingSpinner(),
		statusRenderer: NewStatusRenderer(),
		pending:        make(chan struct{}, 1),
		quit:           make(chan struct{}),
	}
	ui.statusRenderer.SetPrimaryColor(ui.colors.highlight.String())

	ui.build()
	return ui
}

// Run blocks until the UI is stopped.
func (ui *UI) Run() error {
	bg := tcell.StyleDefault.Background(ui.colors.background)
	ui.app.SetBeforeDrawFunc(func(screen tcell.Screen) bool {
		screen.SetStyle(bg)
		screen.Clear()
		return false
	})
	var titled sync.Once
	ui.app.SetAfterDrawFunc(func(screen tcell.Screen) {
		titled.Do(func() { screen.SetTitle(config.AppName) })
	})

	go ui.animate()
	go ui.pump()

	err := ui.app.SetRoot(ui.pages, true).Run()
	ui.stopped.Store(true)
	ui.stopOnce.Do(func() { close(ui.quit) })
	return err
}

// Stop ends Run. It is safe to call from any goroutine.
func (ui *UI) Stop() {
	if ui.stopped.Swap(true) {
		return
	}
	ui.stopOnce.Do(func() { close(ui.quit) })
	ui.app.Stop()
}

// Render records s for display and returns at once. Snapshots that arrive
// faster than the screen is drawn are coalesced; only the newest is shown.
func (ui *UI) Render(s Snapshot) {
	if ui.stopped.Load() {
		return
	}
	ui.mu.Lock()
	ui.latest = &s
	ui.mu.Unlock()
	ui.signal()
}

func (ui *UI) signal() {
	select {
	case ui.pending <- struct{}{}:
	default:
	}
}

// pump moves recorded updates onto the tview event goroutine.
func (ui *UI) pump() {
	for {
		select {
		case <-ui.quit:
			return
		case <-ui.pending:
			if ui.stopped.Load() {
				return
			}
			ui.app.QueueUpdateDraw(ui.flush)
		}
	}
}

// flush applies whatever Render and ShowFatal recorded. It runs on the
// tview event goroutine.
func (ui *UI) flush() {
	ui.mu.Lock()
	snap, fatal := ui.latest, ui.fatal
	ui.latest, ui.fatal = nil, ""
	ui.mu.Unlock()

	if snap != nil {
		ui.apply(*snap)
	}
	if fatal != "" {
		ui.showFatalModal(friendlyErrorMessage(fatal))
	}
}

// pad surrounds p with fixed gaps along dir, filled with bg.
func pad(p tview.Primitive, dir, before, after int, bg tcell.Color) *tview.Flex {
	f := tview.NewFlex().SetDirection(dir)
	if before > 0 {
		f.AddItem(tview.NewBox().SetBackgroundColor(bg), before, 0, false)
	}
	f.AddItem(p, 0, 1, true)
	if after > 0 {
		f.AddItem(tview.NewBox().SetBackgroundColor(bg), after, 0, false)
	}
	f.SetBackgroundColor(bg)
	return f
}

func (ui *UI) build() {
	bg := ui.colors.background

	ui.stationList = ui.createStationListTable()
	ui.helpPanel = ui.createFooter()

	ui.contentLayout = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(ui.createHeader(), HeaderHeight, 0, false).
		AddItem(nil, 1, 0, false).
		AddItem(ui.createContentPanel(), PlayerPanelHeight, 0, false).
		AddItem(nil, 1, 0, false).
		AddItem(ui.stationList, 0, 1, false).
		AddItem(ui.helpPanel, FooterHeightWide, 0, false)
	ui.contentLayout.SetBackgroundColor(bg)

	ui.mainLayout = pad(pad(ui.contentLayout, tview.FlexColumn, 3, 3, bg), tview.FlexRow, 1, 1, bg)

	ui.pages = tview.NewPages().AddPage("main", ui.mainLayout, true, true)
	ui.pages.SetBackgroundColor(bg)

	ui.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		// Open modals handle their own keys.
		if ui.pages.HasPage(modalPage) {
			return event
		}
		return ui.globalInputHandler(event)
	})
}

func (ui *UI) globalInputHandler(event *tcell.EventKey) *tcell.EventKey {
	if event.Key() == tcell.KeyRune && event.Rune() == '?' {
		ui.showHelpModal()
		return nil
	}
	if ui.dispatcher != nil && ui.dispatcher.Feed(event) {
		return nil
	}
	return event
}

// createHeader draws the app name on the left and the version on the right
// of a single coloured bar.
func (ui *UI) createHeader() tview.Primitive {
	box := tview.NewBox().SetBackgroundColor(ui.colors.headerBackground)
	box.SetDrawFunc(func(screen tcell.Screen, x, y, width, height int) (int, int, int, int) {
		row := y + height/2
		inner := width - 4
		title := config.AppName
		if inner >= 60 {
			title += " · " + config.AppTagline
		}
		tview.Print(screen, title, x+2, row, inner, tview.AlignLeft, ui.colors.foreground)
		tview.Print(screen, "v"+config.AppVersion, x+2, row, inner, tview.AlignRight, ui.colors.foreground)
		return x, y, width, height
	})
	return box
}

func (ui *UI) textView(color tcell.Color, bold bool) *tview.TextView {
	tv := tview.NewTextView().SetWrap(false)
	tv.SetTextColor(color)
	tv.SetBackgroundColor(ui.colors.background)
	if bold {
		tv.SetDynamicColors(true)
		tv.SetTextStyle(tcell.StyleDefault.Background(ui.colors.background).Attributes(tcell.AttrBold))
	}
	return tv
}

func (ui *UI) createContentPanel() *tview.Flex {
	ui.stationNameView = ui.textView(ui.colors.highlight, true)
	ui.trackView = ui.textView(ui.colors.highlight, true)
	ui.albumView = ui.textView(ui.colors.foreground, true)

	info := tview.NewFlex().SetDirection(tview.FlexRow)
	fields := []struct {
		label string
		value *tview.TextView
	}{
		{" Station:", ui.stationNameView},
		{" Now playing:", ui.trackView},
		{" Album:", ui.albumView},
	}
	for i, f := range fields {
		if i > 0 {
			info.AddItem(nil, 1, 0, false)
		}
		info.AddItem(ui.textView(ui.colors.foreground, false).SetText(f.label), 1, 0, false).
			AddItem(f.value, 1, 0, false)
	}
	info.AddItem(nil, 0, 1, false)
	info.SetBackgroundColor(ui.colors.background)

	ui.volumeView = ui.createGraphicalVolumeBar(0)

	row := tview.NewFlex().SetDirection(tview.FlexColumn).
		AddItem(info, 0, 1, false).
		AddItem(ui.volumeView, 7, 0, false)
	row.SetBackgroundColor(ui.colors.background)

	return pad(row, tview.FlexColumn, 4, 4, ui.colors.background)
}

func (ui *UI) apply(s Snapshot) {
	ui.current = s

	ui.stationNameView.SetText(fmt.Sprintf(" [%s]%s[-]",
		ui.colors.highlight.String(),
		tview.Escape(s.StationName)))

	_, _, width, _ := ui.trackView.GetInnerRect()
	ui.trackView.SetText(" " + tview.Escape(trackText(s.Track, width-1)))

	_, _, width, _ = ui.albumView.GetInnerRect()
	ui.albumView.SetText(" " + tview.Escape(albumText(s.Track, width-1)))

	if s.Volume != ui.lastVolume {
		ui.updateVolumeDisplay(s.Volume)
		ui.lastVolume = s.Volume
	}

	ui.updateStationList(s)
}

type PlayingSpinner struct {
	Frames []string
	FPS    time.Duration
}

func NewPlayingSpinner() *PlayingSpinner {
	return &PlayingSpinner{
		Frames: []string{"⣾ ", "⣽ ", "⣻ ", "⢿ ", "⡿ ", "⣟ ", "⣯ ", "⣷ "},
		FPS:    time.Second / 10,
	}
}

func (ui *UI) getPlayingIndicator() string {
	return ui.playingSpinner.Frames[ui.animationFrame%len(ui.playingSpinner.Frames)]
}

// animate advances the spinner while a stream is playing or loading.
func (ui *UI) animate() {
	ticker := time.NewTicker(ui.playingSpinner.FPS)
	defer ticker.Stop()

	for {
		select {
		case <-ui.quit:
			log.Debug().Msg("UI animation stopped")
			return
		case <-ticker.C:
			if ui.stopped.Load() {
				return
			}
			ui.app.QueueUpdateDraw(ui.stepAnimation)
		}
	}
}

func (ui *UI) stepAnimation() {
	switch ui.current.Status {
	case player.StatePlaying, player.StateLoading:
		ui.animationFrame++
		ui.statusRenderer.AdvanceAnimation()
		ui.updateStationList(ui.current)
	}
}
