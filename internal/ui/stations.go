package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/glebovdev/nightride-cli/internal/player"
	"github.com/rivo/tview"
)

const maxNameWidth = 35

func (ui *UI) createStationListTable() *tview.Table {
	table := tview.NewTable().
		SetBorders(false).
		SetSeparator(' ').
		SetSelectable(false, false).
		SetFixed(1, 0)

	table.SetBorder(true).
		SetTitle(fmt.Sprintf("Stations (%d)", len(ui.stations))).
		SetBorderColor(ui.colors.borders).
		SetTitleColor(ui.colors.foreground).
		SetBackgroundColor(ui.colors.background).
		SetBorderPadding(1, 0, 1, 1)

	headers := []string{" ", "Name", "Stream"}
	for col, text := range headers {
		cell := tview.NewTableCell(text).
			SetTextColor(ui.colors.foreground).
			SetAttributes(tcell.AttrBold).
			SetSelectable(false)
		if col > 0 {
			cell.SetExpansion(1)
		} else {
			cell.SetMaxWidth(2)
		}
		table.SetCell(0, col, cell)
	}

	for i := range ui.stations {
		ui.setStationRow(table, i, Snapshot{StationIndex: -1})
	}

	return table
}

func (ui *UI) setStationRow(table *tview.Table, index int, snap Snapshot) {
	s := ui.stations[index]
	row := index + 1
	active := index == snap.StationIndex

	fg, bg := ui.colors.foreground, ui.colors.background
	if active {
		fg, bg = ui.colors.background, ui.colors.highlight
	}

	table.SetCell(row, 0, tview.NewTableCell(stationIcon(active, snap.Status)).
		SetTextColor(fg).
		SetBackgroundColor(bg).
		SetMaxWidth(2))

	name := s.Name
	if active && snap.Status == player.StatePlaying {
		name = fitWidth(name, maxNameWidth-3) + " " + ui.getPlayingIndicator()
	}
	table.SetCell(row, 1, tview.NewTableCell(name).
		SetTextColor(fg).
		SetBackgroundColor(bg).
		SetMaxWidth(maxNameWidth).
		SetExpansion(2))

	table.SetCell(row, 2, tview.NewTableCell(s.StreamURL).
		SetTextColor(fg).
		SetBackgroundColor(bg).
		SetExpansion(1))
}

func stationIcon(active bool, status player.PlayerState) string {
	if !active {
		return " "
	}
	switch status {
	case player.StatePaused:
		return PauseIcon
	case player.StateStopped:
		return "■"
	default:
		return "➤"
	}
}

func (ui *UI) updateStationList(snap Snapshot) {
	if ui.stationList == nil {
		return
	}
	for i := range ui.stations {
		ui.setStationRow(ui.stationList, i, snap)
	}
}
