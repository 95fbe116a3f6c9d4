package main

import "github.com/charmbracelet/lipgloss"

var (
	salmonPink = lipgloss.Color("#FFB3BA") // failures
	mintGreen  = lipgloss.Color("#A8E6CF") // passes
	mutedGray  = lipgloss.Color("#6B7280") // secondary text
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(salmonPink).
			Bold(true)

	passStyle = lipgloss.NewStyle().
			Foreground(mintGreen)

	failStyle = lipgloss.NewStyle().
			Foreground(salmonPink).
			Bold(true)

	skipStyle = lipgloss.NewStyle().
			Foreground(mutedGray)

	detailStyle = lipgloss.NewStyle().
			Foreground(mutedGray).
			PaddingLeft(4)

	reportBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedGray).
			Padding(0, 1)
)
