package render

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/example/aninfo/internal/appstate"
)

// Palette is one colour scheme.
type Palette struct {
	Accent lipgloss.Color
	Text   lipgloss.Color
	Dim    lipgloss.Color
	Good   lipgloss.Color
	Warn   lipgloss.Color
	Bad    lipgloss.Color
}

var (
	DarkPalette = Palette{
		Accent: lipgloss.Color("#E5A00D"),
		Text:   lipgloss.Color("#F9FAFB"),
		Dim:    lipgloss.Color("#9CA3AF"),
		Good:   lipgloss.Color("#10B981"),
		Warn:   lipgloss.Color("#E5A00D"),
		Bad:    lipgloss.Color("#EF4444"),
	}
	LightPalette = Palette{
		Accent: lipgloss.Color("#2E51A2"),
		Text:   lipgloss.Color("#1F2937"),
		Dim:    lipgloss.Color("#6B7280"),
		Good:   lipgloss.Color("#047857"),
		Warn:   lipgloss.Color("#B45309"),
		Bad:    lipgloss.Color("#B91C1C"),
	}
)

type styles struct {
	title    lipgloss.Style
	heading  lipgloss.Style
	text     lipgloss.Style
	dim      lipgloss.Style
	accent   lipgloss.Style
	good     lipgloss.Style
	warn     lipgloss.Style
	bad      lipgloss.Style
	selected lipgloss.Style
	page     lipgloss.Style
	errBox   lipgloss.Style
}

// paletteFor resolves Auto against the terminal background.
func paletteFor(r *lipgloss.Renderer, t appstate.Theme) Palette {
	switch t {
	case appstate.Light:
		return LightPalette
	case appstate.Auto:
		if !r.HasDarkBackground() {
			return LightPalette
		}
	}
	return DarkPalette
}

func newStyles(r *lipgloss.Renderer, p Palette) styles {
	return styles{
		title: r.NewStyle().
			Foreground(p.Accent).
			Bold(true),
		heading: r.NewStyle().
			Foreground(p.Text).
			Bold(true).
			Underline(true),
		text:   r.NewStyle().Foreground(p.Text),
		dim:    r.NewStyle().Foreground(p.Dim),
		accent: r.NewStyle().Foreground(p.Accent),
		good:   r.NewStyle().Foreground(p.Good),
		warn:   r.NewStyle().Foreground(p.Warn),
		bad:    r.NewStyle().Foreground(p.Bad),
		selected: r.NewStyle().
			Foreground(p.Accent).
			Bold(true),
		page: r.NewStyle().Foreground(p.Dim),
		errBox: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.Bad).
			Padding(0, 1),
	}
}
