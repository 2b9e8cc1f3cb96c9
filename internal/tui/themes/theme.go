// Package themes holds the color schemes for the journal review screen.
package themes

import (
	"sort"

	"github.com/charmbracelet/lipgloss"
)

// Theme defines the visual style for the TUI.
type Theme struct {
	Selected      lipgloss.Style
	Header        lipgloss.Style
	StatusError   lipgloss.Style
	StatusSuccess lipgloss.Style
	TabActive     lipgloss.Style
	TabInactive   lipgloss.Style
	Title         lipgloss.Style
	Subtitle      lipgloss.Style
	Normal        lipgloss.Style
	Name          string
}

// palette is the handful of colors a theme is derived from.
type palette struct {
	accent     lipgloss.Color
	onAccent   lipgloss.Color
	foreground lipgloss.Color
	subtle     lipgloss.Color
	border     lipgloss.Color
	good       lipgloss.Color
	bad        lipgloss.Color
}

func newTheme(name string, p palette) Theme {
	return Theme{
		Name:     name,
		Title:    lipgloss.NewStyle().Bold(true).Foreground(p.foreground),
		Subtitle: lipgloss.NewStyle().Foreground(p.subtle),
		Normal:   lipgloss.NewStyle().Foreground(p.foreground),
		Header: lipgloss.NewStyle().
			Bold(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(p.border).
			Padding(0, 1),
		Selected: lipgloss.NewStyle().
			Background(p.accent).
			Foreground(p.onAccent).
			Bold(true),
		StatusSuccess: lipgloss.NewStyle().Foreground(p.good).Bold(true),
		StatusError:   lipgloss.NewStyle().Foreground(p.bad).Bold(true),
		TabActive: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.onAccent).
			Background(p.accent).
			Padding(0, 1),
		TabInactive: lipgloss.NewStyle().Foreground(p.subtle).Padding(0, 1),
	}
}

var (
	// Default is the default theme.
	Default = newTheme("default", palette{
		accent:     "#7c3aed",
		onAccent:   "#fafafa",
		foreground: "#fafafa",
		subtle:     "#a3a3a3",
		border:     "#404040",
		good:       "#10b981",
		bad:        "#ef4444",
	})

	// CatppuccinMocha is the Catppuccin Mocha theme.
	CatppuccinMocha = newTheme("catppuccin-mocha", palette{
		accent:     "#cba6f7",
		onAccent:   "#1e1e2e",
		foreground: "#cdd6f4",
		subtle:     "#a6adc8",
		border:     "#45475a",
		good:       "#a6e3a1",
		bad:        "#f38ba8",
	})

	// Ledger is a green-on-paper theme for light terminals.
	Ledger = newTheme("ledger", palette{
		accent:     "#166534",
		onAccent:   "#f0fdf4",
		foreground: "#1c1917",
		subtle:     "#57534e",
		border:     "#a8a29e",
		good:       "#15803d",
		bad:        "#b91c1c",
	})
)

var registry = map[string]Theme{
	Default.Name:         Default,
	CatppuccinMocha.Name: CatppuccinMocha,
	Ledger.Name:          Ledger,
}

// GetTheme returns a theme by name, falling back to Default.
func GetTheme(name string) Theme {
	if t, ok := registry[name]; ok {
		return t
	}
	return Default
}

// Names lists the registered theme names.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
