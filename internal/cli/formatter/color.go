package formatter

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/timekeeper/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

// Gruvbox-inspired color palette.
var (
	ColorGreen  = lipgloss.Color("#8ec07c")
	ColorYellow = lipgloss.Color("#fabd2f")
	ColorRed    = lipgloss.Color("#fb4934")
	ColorBlue   = lipgloss.Color("#83a598")
	ColorPurple = lipgloss.Color("#d3869b")
	ColorDim    = lipgloss.Color("#928374")
	ColorFg     = lipgloss.Color("#ebdbb2")
	ColorHeader = lipgloss.Color("#fe8019")
)

var (
	StyleGreen  = lipgloss.NewStyle().Foreground(ColorGreen)
	StyleYellow = lipgloss.NewStyle().Foreground(ColorYellow)
	StyleRed    = lipgloss.NewStyle().Foreground(ColorRed)
	StyleBlue   = lipgloss.NewStyle().Foreground(ColorBlue)
	StylePurple = lipgloss.NewStyle().Foreground(ColorPurple)
	StyleDim    = lipgloss.NewStyle().Foreground(ColorDim)
	StyleFg     = lipgloss.NewStyle().Foreground(ColorFg)
	StyleHeader = lipgloss.NewStyle().Foreground(ColorHeader).Bold(true)
	StyleBold   = lipgloss.NewStyle().Foreground(ColorFg).Bold(true)
)

// StatusPill returns a colored indicator such as "● RUNNING".
func StatusPill(status domain.SessionStatus) string {
	switch status {
	case domain.StatusRunning:
		return StyleGreen.Render("● RUNNING")
	case domain.StatusPaused:
		return StyleYellow.Render("‖ PAUSED")
	case domain.StatusCompleted:
		return StyleBlue.Render("✔ COMPLETED")
	case domain.StatusCancelled:
		return StyleDim.Render("✖ CANCELLED")
	default:
		return StyleDim.Render(string(status))
	}
}

// SeverityBadge colors a severity label; empty severities render as "--".
func SeverityBadge(s domain.Severity) string {
	switch s {
	case domain.SeverityCritical:
		return StyleRed.Render(string(s))
	case domain.SeverityHigh:
		return StyleYellow.Render(string(s))
	case domain.SeverityMedium, domain.SeverityLow:
		return StyleFg.Render(string(s))
	default:
		return StyleDim.Render("--")
	}
}

// Header renders a section header with the orange header style and an underline.
func Header(text string) string {
	upper := strings.ToUpper(text)
	line := strings.Repeat("─", lipgloss.Width(upper))
	return fmt.Sprintf("%s\n%s", StyleHeader.Render(upper), StyleDim.Render(line))
}

func Dim(text string) string {
	return StyleDim.Render(text)
}

func Bold(text string) string {
	return StyleBold.Render(text)
}

// Warn renders text in the warning color.
func Warn(text string) string {
	return StyleYellow.Render(text)
}
