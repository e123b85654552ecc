package cli

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/dmitrijs2005/fieldcrm/internal/client/models"
	"github.com/dmitrijs2005/fieldcrm/internal/client/notify"
)

// palette is the set of colours one theme uses.
type palette struct {
	Text    string
	Muted   string
	Accent  string
	Success string
	Warning string
	Danger  string
	Info    string
	Border  string
}

var palettes = map[models.Theme]palette{
	models.ThemeLight: {
		Text:    "#1f2328",
		Muted:   "#6e7781",
		Accent:  "#0969da",
		Success: "#1a7f37",
		Warning: "#9a6700",
		Danger:  "#cf222e",
		Info:    "#0550ae",
		Border:  "#d0d7de",
	},
	models.ThemeDark: {
		Text:    "#e6edf3",
		Muted:   "#8b949e",
		Accent:  "#58a6ff",
		Success: "#3fb950",
		Warning: "#d29922",
		Danger:  "#f85149",
		Info:    "#79c0ff",
		Border:  "#30363d",
	},
}

type styles struct {
	Text    lipgloss.Style
	Muted   lipgloss.Style
	Accent  lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Danger  lipgloss.Style
	Info    lipgloss.Style
	Card    lipgloss.Style
}

func stylesFor(t models.Theme) styles {
	p, ok := palettes[t]
	if !ok {
		p = palettes[models.ThemeLight]
	}
	return styles{
		Text:    lipgloss.NewStyle().Foreground(lipgloss.Color(p.Text)),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color(p.Muted)),
		Accent:  lipgloss.NewStyle().Foreground(lipgloss.Color(p.Accent)).Bold(true),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color(p.Success)).Bold(true),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color(p.Warning)),
		Danger:  lipgloss.NewStyle().Foreground(lipgloss.Color(p.Danger)).Bold(true),
		Info:    lipgloss.NewStyle().Foreground(lipgloss.Color(p.Info)),
		Card: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(p.Border)).
			Padding(0, 1),
	}
}

// toast renders a bus toast in the palette of the current theme.
func (s styles) toast(t notify.Toast) string {
	var line string
	switch t.Level {
	case notify.LevelSuccess:
		line = s.Success.Render("✓ " + t.Text)
	case notify.LevelWarning:
		line = s.Warning.Render("! " + t.Text)
	case notify.LevelError:
		line = s.Danger.Render("✗ " + t.Text)
	default:
		line = s.Info.Render("• " + t.Text)
	}
	if t.Route != "" {
		line += " " + s.Muted.Render("("+t.Route+")")
	}
	return line
}
