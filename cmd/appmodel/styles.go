// SPDX-License-Identifier: MPL-2.0

package cmd

import "github.com/charmbracelet/lipgloss"

// Output styles. Adaptive colors keep text readable on light and dark
// terminal backgrounds; lipgloss drops them when stdout is not a terminal.
var (
	// TitleStyle renders section titles.
	TitleStyle = lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#5B21B6", Dark: "#A78BFA"})

	// SubtitleStyle renders secondary text.
	SubtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#4B5563", Dark: "#9CA3AF"})

	// SuccessStyle renders resolved values.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#047857", Dark: "#34D399"})

	// ErrorStyle renders the error prefix.
	ErrorStyle = lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#F87171"})

	// WarningStyle marks pending modules.
	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FBBF24"})

	// CoordsStyle renders package coordinates and config keys.
	CoordsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#1D4ED8", Dark: "#60A5FA"})
)
