package ui

import (
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Theme defines the colors of terminal output.
type Theme struct {
	// Name is the identifier of the theme.
	Name string
	// Accent highlights strategy names and headings.
	Accent lipgloss.TerminalColor
	// Value highlights durations and numbers.
	Value lipgloss.TerminalColor
	// Success marks completed computations.
	Success lipgloss.TerminalColor
	// Warning marks cancelled computations.
	Warning lipgloss.TerminalColor
	// Error marks failures.
	Error lipgloss.TerminalColor
	// Dim is used for secondary text.
	Dim lipgloss.TerminalColor
}

var (
	// DarkTheme is optimized for dark terminal backgrounds.
	DarkTheme = Theme{
		Name:    "dark",
		Accent:  lipgloss.Color("39"),
		Value:   lipgloss.Color("220"),
		Success: lipgloss.Color("82"),
		Warning: lipgloss.Color("214"),
		Error:   lipgloss.Color("196"),
		Dim:     lipgloss.Color("245"),
	}

	// LightTheme is optimized for light terminal backgrounds.
	LightTheme = Theme{
		Name:    "light",
		Accent:  lipgloss.Color("27"),
		Value:   lipgloss.Color("130"),
		Success: lipgloss.Color("28"),
		Warning: lipgloss.Color("166"),
		Error:   lipgloss.Color("124"),
		Dim:     lipgloss.Color("240"),
	}

	// NoColorTheme disables all color output.
	// Used when NO_COLOR is set or --no-color flag is provided.
	NoColorTheme = Theme{
		Name:    "none",
		Accent:  lipgloss.NoColor{},
		Value:   lipgloss.NoColor{},
		Success: lipgloss.NoColor{},
		Warning: lipgloss.NoColor{},
		Error:   lipgloss.NoColor{},
		Dim:     lipgloss.NoColor{},
	}

	currentTheme = DarkTheme
	themeMutex   sync.RWMutex
)

// GetCurrentTheme returns the currently active theme in a thread-safe manner.
func GetCurrentTheme() Theme {
	themeMutex.RLock()
	defer themeMutex.RUnlock()
	return currentTheme
}

// SetCurrentTheme sets the currently active theme in a thread-safe manner.
// This is primarily used for testing purposes to restore state.
func SetCurrentTheme(t Theme) {
	themeMutex.Lock()
	defer themeMutex.Unlock()
	currentTheme = t
}

// SetTheme changes the active theme by name.
// Valid names are: "dark", "light", "none". Unknown names select dark.
func SetTheme(name string) {
	switch name {
	case "light":
		SetCurrentTheme(LightTheme)
	case "none":
		SetCurrentTheme(NoColorTheme)
	default:
		SetCurrentTheme(DarkTheme)
	}
}

// InitTheme initializes the theme based on the noColor flag and environment.
// It respects the NO_COLOR environment variable (https://no-color.org/) for
// accessibility. If noColor is true or NO_COLOR is set, colors are disabled.
func InitTheme(noColor bool) {
	if _, exists := os.LookupEnv("NO_COLOR"); noColor || exists {
		SetCurrentTheme(NoColorTheme)
		return
	}
	SetCurrentTheme(DarkTheme)
}

// Styles are the lipgloss styles derived from the active theme.
type Styles struct {
	Header  lipgloss.Style
	Name    lipgloss.Style
	Value   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Dim     lipgloss.Style
}

// CurrentStyles builds the styles of the active theme.
func CurrentStyles() Styles {
	t := GetCurrentTheme()
	return Styles{
		Header:  lipgloss.NewStyle().Bold(true).Underline(true),
		Name:    lipgloss.NewStyle().Foreground(t.Accent),
		Value:   lipgloss.NewStyle().Foreground(t.Value),
		Success: lipgloss.NewStyle().Foreground(t.Success),
		Warning: lipgloss.NewStyle().Foreground(t.Warning),
		Error:   lipgloss.NewStyle().Foreground(t.Error),
		Dim:     lipgloss.NewStyle().Foreground(t.Dim),
	}
}
