package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/bookrack/internal/models"
)

var themes = map[string]*Palette{
	models.ThemeLight: NewPalette("#5A3FC0", "#027A48", "#C01048", "#B54708", "#667085"),
	models.ThemeDark:  NewPalette("#B9A6FF", "#32D583", "#F97066", "#FDB022", "#98A2B3"),
}

// paletteFor returns the palette of a theme name, falling back to the light theme.
func paletteFor(theme string) *Palette {
	if p, ok := themes[theme]; ok {
		return p
	}
	return themes[models.ThemeLight]
}

// interface Painter defines coloring text with [lipgloss] styles
type Painter interface {
	On(string, lipgloss.Color) string // Sets background color
	As(string, lipgloss.Color) string // Sets foreground color
}

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	accent  lipgloss.Color
	title   lipgloss.Style
	ok      lipgloss.Style
	err     lipgloss.Style
	warn    lipgloss.Style
	help    lipgloss.Style
	sidebar lipgloss.Style
}

var _ Painter = (*Palette)(nil)

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		accent:  lipgloss.Color(t),
		title:   NewBold(t).MarginBottom(1),
		ok:      NewBold(s),
		err:     NewBold(e),
		warn:    NewStyle(w),
		help:    NewEm(h),
		sidebar: lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color(h)).Padding(0, 1).MarginRight(1),
	}
}

func (p *Palette) On(s string, c lipgloss.Color) string {
	return lipgloss.NewStyle().Background(c).Render(s)
}

func (p *Palette) As(s string, c lipgloss.Color) string {
	return lipgloss.NewStyle().Foreground(c).Render(s)
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}
