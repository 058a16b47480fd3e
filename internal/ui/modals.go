package ui

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/glebovdev/nightride-cli/internal/config"
	"github.com/muesli/reflow/truncate"
	"github.com/rivo/tview"
)

const modalPage = "modal"

// friendlyErrorMessage maps player failures to something a listener can act on.
func friendlyErrorMessage(errStr string) string {
	switch {
	case strings.Contains(errStr, "executable file not found"), strings.Contains(errStr, "not found:"):
		return "mpv was not found.\nInstall mpv or set mpv_path in the config."
	case strings.Contains(errStr, "failed to launch player process"):
		return "Could not start mpv."
	case strings.Contains(errStr, "socket did not appear"):
		return "mpv started but its control socket never appeared."
	case strings.Contains(errStr, "reconnect failed"):
		return "Lost connection to mpv."
	case strings.Contains(errStr, "connection refused"):
		return "mpv refused the connection."
	}

	if idx := strings.Index(errStr, ": dial"); idx > 0 {
		return errStr[:idx]
	}
	return truncate.StringWithTail(errStr, 100, "...")
}

type modalSpec struct {
	title  string
	body   string
	hint   string
	align  int
	border tcell.Color
	width  int
	height int
	onKey  func()
}

// openModal shows spec on top of the main page. Any key runs spec.onKey.
func (ui *UI) openModal(spec modalSpec) {
	bg := ui.colors.modalBackground

	body := tview.NewTextView().
		SetTextAlign(spec.align).
		SetDynamicColors(true).
		SetWordWrap(true).
		SetText(spec.body)
	body.SetTextColor(ui.colors.foreground)
	body.SetBackgroundColor(bg)

	hint := tview.NewTextView().
		SetTextAlign(tview.AlignCenter).
		SetDynamicColors(true).
		SetText("[::d]" + spec.hint + "[::-]")
	hint.SetTextColor(tcell.ColorDarkGray)
	hint.SetBackgroundColor(bg)

	content := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(body, 0, 1, false).
		AddItem(nil, 1, 0, false).
		AddItem(hint, 1, 0, false).
		AddItem(nil, 1, 0, false)
	content.SetBackgroundColor(bg)

	frame := tview.NewFrame(content).SetBorders(1, 0, 0, 0, 2, 2)
	frame.SetBorder(true).
		SetBorderColor(spec.border).
		SetBackgroundColor(bg).
		SetTitle(" " + spec.title + " ").
		SetTitleColor(ui.colors.highlight).
		SetTitleAlign(tview.AlignCenter)

	modal := centered(frame, spec.width, spec.height)
	modal.SetBackgroundColor(ui.colors.background)
	modal.SetInputCapture(func(*tcell.EventKey) *tcell.EventKey {
		spec.onKey()
		return nil
	})

	ui.pages.AddPage(modalPage, modal, true, true)
	ui.app.SetFocus(modal)
}

// ShowFatal replaces the screen with msg and stops the UI on the next key
// press. Like Render it does not wait for the screen to be drawn.
func (ui *UI) ShowFatal(msg string) {
	if ui.stopped.Load() {
		return
	}
	ui.mu.Lock()
	ui.fatal = msg
	ui.mu.Unlock()
	ui.signal()
}

func (ui *UI) showFatalModal(message string) {
	height := 9 + strings.Count(message, "\n")
	ui.openModal(modalSpec{
		title:  "Error",
		body:   "[::b]Player Error[::-]\n\n" + tview.Escape(message),
		hint:   "Press any key to quit",
		align:  tview.AlignCenter,
		border: ui.colors.highlight,
		width:  50,
		height: min(height, 15),
		onKey:  ui.Stop,
	})
}

func (ui *UI) showHelpModal() {
	key := ui.colors.helpHotkey.String()
	line := func(keys, what string) string {
		parts := strings.Fields(keys)
		gap := max(1, 12-len([]rune(strings.Join(parts, " / "))))
		for i, k := range parts {
			parts[i] = fmt.Sprintf("[%s]%s[-]", key, k)
		}
		return "  " + strings.Join(parts, " / ") + strings.Repeat(" ", gap) + what + "\n"
	}
	section := func(name string) string {
		return fmt.Sprintf("\n[%s]%s[-]\n", key, name)
	}

	var b strings.Builder
	b.WriteString("[::b]KEYBOARD SHORTCUTS[::-]\n")
	b.WriteString(section("PLAYBACK"))
	b.WriteString(line("p Space", "Pause / Resume"))
	b.WriteString(line("n >", "Next station"))
	b.WriteString(section("VOLUME"))
	b.WriteString(line("+ -", "Volume up / down"))
	b.WriteString(line("V v", "Volume up / down"))
	b.WriteString(line("→ ←", "Volume up / down"))
	b.WriteString(section("TRACK"))
	b.WriteString(line("y s", "Search current track"))
	b.WriteString(section("APPLICATION"))
	b.WriteString(line("?", "Show this help"))
	b.WriteString(line("q Esc", "Quit"))
	if path, err := config.GetConfigPath(); err == nil {
		fmt.Fprintf(&b, "\n[%s]CONFIG[-]: %s", key, tview.Escape(path))
	}

	text := b.String()
	ui.openModal(modalSpec{
		title:  "Help",
		body:   text,
		hint:   "Press any key to close",
		align:  tview.AlignLeft,
		border: ui.colors.borders,
		width:  48,
		height: min(strings.Count(text, "\n")+8, 38),
		onKey: func() {
			ui.pages.RemovePage(modalPage)
			ui.app.SetFocus(ui.mainLayout)
		},
	})
}

func centered(p tview.Primitive, width, height int) *tview.Flex {
	column := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(nil, 0, 1, false).
		AddItem(p, height, 0, true).
		AddItem(nil, 0, 1, false)
	return tview.NewFlex().
		AddItem(nil, 0, 1, false).
		AddItem(column, width, 0, true).
		AddItem(nil, 0, 1, false)
}
