package ui

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/glebovdev/nightride-cli/internal/player"
	"github.com/rivo/tview"
)

var (
	loadingFrames = []string{"◐", "◓", "◑", "◒"}
	liveFrames    = []string{"●", "◉", "○", "◉"}
)

// StatusRenderer builds the right-hand footer text. Its animation runs slower
// than the station spinner.
type StatusRenderer struct {
	animFrame     int
	maxAnimFrame  int
	tickCount     int
	ticksPerFrame int

	primaryColor string
}

func NewStatusRenderer() *StatusRenderer {
	return &StatusRenderer{
		maxAnimFrame:  len(loadingFrames),
		ticksPerFrame: 8,
	}
}

func (s *StatusRenderer) SetPrimaryColor(color string) {
	s.primaryColor = color
}

func (s *StatusRenderer) AdvanceAnimation() {
	s.tickCount++
	if s.tickCount >= s.ticksPerFrame {
		s.tickCount = 0
		s.animFrame = (s.animFrame + 1) % s.maxAnimFrame
	}
}

func (s *StatusRenderer) Render(snap Snapshot) string {
	if snap.Fatal != "" {
		return s.renderError(snap.Fatal)
	}

	var parts []string
	switch snap.Status {
	case player.StateLoading:
		parts = append(parts, s.renderLoading())
	case player.StatePlaying:
		parts = append(parts, s.renderPlaying())
	case player.StatePaused:
		parts = append(parts, PauseIcon+" PAUSED")
	default:
		parts = append(parts, "○ STOPPED")
	}

	if snap.Muted() {
		parts = append(parts, "[red]MUTED[-]")
	}
	if pos := snap.position(); pos != "" {
		parts = append(parts, pos)
	}
	if snap.Message != "" {
		parts = append(parts, snap.Message)
	}

	return joinParts(parts)
}

func (s *StatusRenderer) renderLoading() string {
	return loadingFrames[s.animFrame] + " LOADING"
}

func (s *StatusRenderer) renderPlaying() string {
	dot := liveFrames[s.animFrame]
	if s.primaryColor != "" {
		dot = fmt.Sprintf("[%s]%s[-]", s.primaryColor, dot)
	}
	return dot + " LIVE"
}

func (s *StatusRenderer) renderError(msg string) string {
	return "✗ " + friendlyErrorMessage(msg)
}

func joinParts(parts []string) string {
	return strings.Join(parts, " │ ")
}

func playbackHint(keyColor string, status player.PlayerState) string {
	verb := "play"
	switch status {
	case player.StatePaused:
		verb = "resume"
	case player.StatePlaying, player.StateLoading:
		verb = "pause"
	}
	return fmt.Sprintf("[%s]p[-] %s", keyColor, verb)
}

func (ui *UI) getHelpText(status player.PlayerState) string {
	key := ui.colors.helpHotkey.String()
	hints := []string{playbackHint(key, status)}
	for _, h := range [][2]string{{"+/-", "vol"}, {"n", "next"}, {"y", "search"}, {"?", "help"}, {"q", "quit"}} {
		hints = append(hints, fmt.Sprintf("[%s]%s[-] %s", key, h[0], h[1]))
	}
	return " " + strings.Join(hints, "  ") + " "
}

// handleFooterResize switches the footer between one and two rows when the
// terminal crosses FooterBreakpoint.
func (ui *UI) handleFooterResize(width int) {
	isWide := width >= FooterBreakpoint
	wasWide := ui.lastFooterWidth >= FooterBreakpoint

	if ui.lastFooterWidth > 0 && isWide != wasWide && ui.contentLayout != nil {
		height := FooterHeightNarrow
		if isWide {
			height = FooterHeightWide
		}
		ui.contentLayout.ResizeItem(ui.helpPanel, height, 0)
	}
	ui.lastFooterWidth = width
}

func fillRect(screen tcell.Screen, x, y, width, height int, bg tcell.Color) {
	style := tcell.StyleDefault.Background(bg)
	for row := y; row < y+height; row++ {
		for col := x; col < x+width; col++ {
			screen.SetContent(col, row, ' ', nil, style)
		}
	}
}

func (ui *UI) drawFooter(screen tcell.Screen, x, y, width, height int) {
	snap := ui.current
	help := ui.getHelpText(snap.Status)
	status := " " + ui.statusRenderer.Render(snap) + " "

	if width >= FooterBreakpoint {
		// hotkeys on the left half, status on the right
		height = min(height, FooterHeightWide)
		half := width / 2
		fillRect(screen, x, y, half, height, ui.colors.helpBackground)
		fillRect(screen, x+half, y, width-half, height, ui.colors.background)

		mid := y + height/2
		tview.Print(screen, help, x, mid, half, tview.AlignCenter, ui.colors.helpForeground)
		tview.Print(screen, status, x+half, mid, width-half-2, tview.AlignRight, ui.colors.foreground)
		return
	}

	helpHeight := max(height/2, 1)
	statusHeight := height - helpHeight
	fillRect(screen, x, y, width, helpHeight, ui.colors.helpBackground)
	fillRect(screen, x, y+helpHeight, width, statusHeight, ui.colors.background)

	tview.Print(screen, help, x, y+helpHeight/2, width, tview.AlignCenter, ui.colors.helpForeground)
	if statusHeight > 0 {
		tview.Print(screen, status, x, y+helpHeight+statusHeight/2, width-2, tview.AlignRight, ui.colors.foreground)
	}
}

func (ui *UI) createFooter() *tview.Box {
	box := tview.NewBox().SetBackgroundColor(ui.colors.background)
	box.SetDrawFunc(func(screen tcell.Screen, x, y, width, height int) (int, int, int, int) {
		ui.handleFooterResize(width)
		ui.drawFooter(screen, x, y, width, height)
		return x, y, width, height
	})
	return box
}
