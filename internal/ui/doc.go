// Package ui provides the color themes of terminal output. Themes are
// lipgloss colors; CurrentStyles turns the active one into styles for the
// CLI presenter.
package ui
