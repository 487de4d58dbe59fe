package main

import "github.com/charmbracelet/lipgloss"

type palette struct {
	Primary  lipgloss.Color
	Accept   lipgloss.Color
	Reject   lipgloss.Color
	Warning  lipgloss.Color
	Inactive lipgloss.Color
	Text     lipgloss.Color
}

var defaultPalette = palette{
	Primary:  lipgloss.Color("99"),
	Accept:   lipgloss.Color("42"),
	Reject:   lipgloss.Color("196"),
	Warning:  lipgloss.Color("214"),
	Inactive: lipgloss.Color("240"),
	Text:     lipgloss.Color("252"),
}

type styles struct {
	app        lipgloss.Style
	header     lipgloss.Style
	category   lipgloss.Style
	selected   lipgloss.Style
	card       lipgloss.Style
	cardAccept lipgloss.Style
	cardReject lipgloss.Style
	title      lipgloss.Style
	payment    lipgloss.Style
	label      lipgloss.Style
	accept     lipgloss.Style
	reject     lipgloss.Style
	info       lipgloss.Style
	success    lipgloss.Style
	error      lipgloss.Style
	inactive   lipgloss.Style
	spinner    lipgloss.Style
}

func newStyles(p palette) styles {
	card := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(p.Primary).
		Foreground(p.Text).
		Padding(1, 2).
		Width(cardWidth)

	return styles{
		app:        lipgloss.NewStyle().Padding(1, 2),
		header:     lipgloss.NewStyle().Bold(true).Foreground(p.Primary),
		category:   lipgloss.NewStyle().Foreground(p.Inactive).Padding(0, 1),
		selected:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(p.Primary).Padding(0, 1),
		card:       card,
		cardAccept: card.BorderForeground(p.Accept),
		cardReject: card.BorderForeground(p.Reject),
		title:      lipgloss.NewStyle().Bold(true),
		payment:    lipgloss.NewStyle().Bold(true).Foreground(p.Warning),
		label:      lipgloss.NewStyle().Foreground(p.Inactive),
		accept:     lipgloss.NewStyle().Bold(true).Foreground(p.Accept),
		reject:     lipgloss.NewStyle().Bold(true).Foreground(p.Reject),
		info:       lipgloss.NewStyle().Foreground(p.Primary),
		success:    lipgloss.NewStyle().Foreground(p.Accept),
		error:      lipgloss.NewStyle().Foreground(p.Reject),
		inactive:   lipgloss.NewStyle().Foreground(p.Inactive),
		spinner:    lipgloss.NewStyle().Foreground(p.Primary),
	}
}
