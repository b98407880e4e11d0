package main

import (
	"hash/fnv"

	"github.com/charmbracelet/lipgloss"
)

// Colors
var (
	colorPrimary   = lipgloss.Color("#7B68EE")
	colorSecondary = lipgloss.Color("#5B5682")
	colorMuted     = lipgloss.Color("#636363")
	colorStatusBg  = lipgloss.Color("#24283B")
	colorWhite     = lipgloss.Color("#C0CAF5")
	colorGreen     = lipgloss.Color("#9ECE6A")
	colorRed       = lipgloss.Color("#F7768E")
)

// Layout constants
const (
	inputMinHeight = 1
	inputMaxHeight = 5
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary).
			Padding(0, 1)

	chatOwnAuthorStyle = lipgloss.NewStyle().
				Foreground(colorGreen).
				Bold(true)

	chatTimestampStyle = lipgloss.NewStyle().
				Foreground(colorMuted)

	chatPendingStyle = lipgloss.NewStyle().
				Foreground(colorMuted).
				Italic(true)

	chatReactionStyle = lipgloss.NewStyle().
				Foreground(colorSecondary)

	chatSystemStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(colorWhite).
			Background(colorStatusBg).
			Padding(0, 1)

	statusConnectedStyle = lipgloss.NewStyle().
				Foreground(colorGreen)

	statusErrorStyle = lipgloss.NewStyle().
				Foreground(colorRed)
)

// authorPalette gives other participants stable, distinct colors.
var authorPalette = []lipgloss.Color{
	"#F7768E", "#FF9E64", "#E0AF68", "#9ECE6A",
	"#73DACA", "#7DCFFF", "#BB9AF7", "#C0CAF5",
}

func colorForPubkey(pubkey string) lipgloss.Color {
	h := fnv.New32a()
	h.Write([]byte(pubkey))
	return authorPalette[h.Sum32()%uint32(len(authorPalette))]
}

// shortPK abbreviates a hex pubkey for display when no profile is known.
func shortPK(pk string) string {
	if len(pk) <= 8 {
		return pk
	}
	return pk[:8]
}
