package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Palette groups the [lipgloss.Style] values used by the renderers.
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
}

var styles = Palette{
	title: NewBold("#7D56F4").MarginBottom(1),
	ok:    NewBold("#04B575"),
	err:   NewBold("#FF5F56"),
	warn:  NewStyle("#FFA500"),
	help:  NewEm("#626262"),
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
