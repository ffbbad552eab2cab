package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/existflow/projectmate/internal/model"
)

// Color palette
var (
	// Priority colors
	PriorityHigh   = lipgloss.Color("#FF6B6B") // Red
	PriorityMedium = lipgloss.Color("#FFE66D") // Yellow
	PriorityLow    = lipgloss.Color("#4ECDC4") // Blue

	// Status colors
	Completed = lipgloss.Color("#95E1A3") // Green
	Overdue   = lipgloss.Color("#FF6B6B") // Red
	Failure   = lipgloss.Color("#FF6B6B") // Red

	// UI colors
	Primary    = lipgloss.Color("#4ECDC4")
	Secondary  = lipgloss.Color("#6C757D")
	Background = lipgloss.Color("#1a1a2e")
	Surface    = lipgloss.Color("#16213e")
	Text       = lipgloss.Color("#FFFFFF")
	TextMuted  = lipgloss.Color("#888888")
	Border     = lipgloss.Color("#333333")
	Highlight  = lipgloss.Color("#4ECDC4")
)

// projectColors maps the project palette to terminal colors.
var projectColors = map[string]lipgloss.Color{
	"blue":   lipgloss.Color("#4E9CF5"),
	"green":  lipgloss.Color("#95E1A3"),
	"red":    lipgloss.Color("#FF6B6B"),
	"purple": lipgloss.Color("#B388FF"),
	"yellow": lipgloss.Color("#FFE66D"),
	"indigo": lipgloss.Color("#7986CB"),
	"pink":   lipgloss.Color("#F48FB1"),
	"gray":   lipgloss.Color("#9E9E9E"),
}

// Styles
var (
	// Header
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary).
			Padding(0, 1)

	// Lanes
	LaneStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(Border).
			Padding(0, 1)

	LaneActiveStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(Primary).
			Padding(0, 1)

	LaneTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Text)

	// Task item
	TaskItemStyle = lipgloss.NewStyle()

	TaskItemSelectedStyle = lipgloss.NewStyle().
				Background(Surface).
				Bold(true)

	TaskDoneStyle = lipgloss.NewStyle().
			Foreground(TextMuted).
			Strikethrough(true)

	// Priority badges
	PriorityHighStyle   = lipgloss.NewStyle().Foreground(PriorityHigh).Bold(true)
	PriorityMediumStyle = lipgloss.NewStyle().Foreground(PriorityMedium)
	PriorityLowStyle    = lipgloss.NewStyle().Foreground(PriorityLow)

	OverdueStyle = lipgloss.NewStyle().Foreground(Overdue).Bold(true)

	// Status bar
	StatusBarStyle = lipgloss.NewStyle().
			Foreground(TextMuted).
			Padding(0, 1).
			BorderStyle(lipgloss.NormalBorder()).
			BorderTop(true).
			BorderForeground(Border)

	ErrorStyle = lipgloss.NewStyle().Foreground(Failure)

	// Input modal
	ModalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Primary).
			Padding(1, 2)

	// Help text
	HelpStyle = lipgloss.NewStyle().
			Foreground(TextMuted)
)

// GetPriorityStyle returns the style for a given priority
func GetPriorityStyle(priority model.Priority) lipgloss.Style {
	switch priority {
	case model.PriorityHigh:
		return PriorityHighStyle
	case model.PriorityMedium:
		return PriorityMediumStyle
	default:
		return PriorityLowStyle
	}
}

// FormatPriority returns a formatted priority badge
func FormatPriority(priority model.Priority) string {
	style := GetPriorityStyle(priority)
	switch priority {
	case model.PriorityHigh:
		return style.Render("▲")
	case model.PriorityMedium:
		return style.Render("●")
	default:
		return style.Render("▽")
	}
}

// ProjectColor returns the terminal color of a palette name.
func ProjectColor(name string) lipgloss.Color {
	if c, ok := projectColors[name]; ok {
		return c
	}
	return Primary
}
