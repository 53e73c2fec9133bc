package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/recallq/recallq/internal/recall"
)

// Color palette - asitop-inspired lime green theme
// Single accent color for professional, distinctive look
const (
	ColorLime     = "154" // Primary accent (#AFFF00) - bright lime green
	ColorLimeDim  = "106" // Dimmed lime for inactive/borders
	ColorWhite    = "255" // Headers, important text
	ColorGray     = "245" // Secondary text, labels
	ColorDarkGray = "238" // Box borders, separators
	ColorRed      = "196" // Errors, failure items
	ColorYellow   = "220" // Warnings, decision items
)

// Styles holds all UI styles for TUI rendering.
type Styles struct {
	Header  lipgloss.Style
	Title   lipgloss.Style
	Score   lipgloss.Style
	Tags    lipgloss.Style
	Snippet lipgloss.Style
	Status  lipgloss.Style
	Cached  lipgloss.Style
	Error   lipgloss.Style
	Dim     lipgloss.Style
	Border  lipgloss.Style
	Panel   lipgloss.Style

	// Per-item-type badges
	Pattern  lipgloss.Style
	Decision lipgloss.Style
	Failure  lipgloss.Style
}

// DefaultStyles returns styled components for TUI mode.
func DefaultStyles() Styles {
	return Styles{
		Header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorLime)),
		Title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorWhite)),
		Score:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorLimeDim)),
		Tags:    lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
		Snippet: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
		Status:  lipgloss.NewStyle().Foreground(lipgloss.Color(ColorLime)),
		Cached:  lipgloss.NewStyle().Foreground(lipgloss.Color(ColorLimeDim)),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRed)),
		Dim:     lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDarkGray)),
		Border:  lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDarkGray)),
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(ColorDarkGray)).
			Padding(0, 1),

		Pattern:  lipgloss.NewStyle().Foreground(lipgloss.Color(ColorLime)),
		Decision: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorYellow)),
		Failure:  lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRed)),
	}
}

// NoColorStyles returns unstyled components for plain mode.
func NoColorStyles() Styles {
	return Styles{
		Header:   lipgloss.NewStyle(),
		Title:    lipgloss.NewStyle(),
		Score:    lipgloss.NewStyle(),
		Tags:     lipgloss.NewStyle(),
		Snippet:  lipgloss.NewStyle(),
		Status:   lipgloss.NewStyle(),
		Cached:   lipgloss.NewStyle(),
		Error:    lipgloss.NewStyle(),
		Dim:      lipgloss.NewStyle(),
		Border:   lipgloss.NewStyle(),
		Panel:    lipgloss.NewStyle(),
		Pattern:  lipgloss.NewStyle(),
		Decision: lipgloss.NewStyle(),
		Failure:  lipgloss.NewStyle(),
	}
}

// GetStyles returns the appropriate styles based on color preference.
func GetStyles(noColor bool) Styles {
	if noColor {
		return NoColorStyles()
	}
	return DefaultStyles()
}

// badge returns the styled type marker for a result.
func (s Styles) badge(t recall.ItemType) string {
	switch t {
	case recall.ItemDecision:
		return s.Decision.Render("[decision]")
	case recall.ItemFailure:
		return s.Failure.Render("[failure]")
	default:
		return s.Pattern.Render("[pattern]")
	}
}
