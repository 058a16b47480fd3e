package ui

import (
	"fmt"
	"strings"

	"github.com/glebovdev/nightride-cli/internal/config"
	"github.com/rivo/tview"
)

const volumeBarHeight = 10

// volumeLevels splits the bar into empty and filled rows for volume.
func volumeLevels(volume int) (empty, filled int) {
	filled = (config.ClampVolume(volume) * volumeBarHeight) / 100
	return volumeBarHeight - filled, filled
}

// volumeBarText draws a vertical gauge, top to bottom, with the percentage
// beside the highest filled row.
func (ui *UI) volumeBarText(volume int) string {
	empty, filled := volumeLevels(volume)
	fg := ui.colors.foreground.String()
	hl := ui.colors.highlight.String()

	var b strings.Builder
	fmt.Fprintf(&b, "[%s]   max\n", fg)
	for i := 0; i < empty; i++ {
		fmt.Fprintf(&b, "[%s]     ░░\n", fg)
	}
	for i := 0; i < filled; i++ {
		label := "    "
		if i == 0 {
			label = fmt.Sprintf("%3d%%", volume)
		}
		fmt.Fprintf(&b, "[%s]%s ██\n", hl, label)
	}
	if volume == 0 {
		fmt.Fprintf(&b, "[%s]  mute[-]", ui.colors.mutedVolume.String())
	} else {
		fmt.Fprintf(&b, "[%s]   min[-]", fg)
	}
	return b.String()
}

func (ui *UI) createGraphicalVolumeBar(volume int) *tview.TextView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false)
	tv.SetBackgroundColor(ui.colors.background)
	tv.SetText(ui.volumeBarText(volume))
	return tv
}

func (ui *UI) updateVolumeDisplay(volume int) {
	if ui.volumeView != nil {
		ui.volumeView.SetText(ui.volumeBarText(volume))
	}
}
