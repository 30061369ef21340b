// Package theme holds the colors and styles shared by the TUI components.
package theme

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// DefaultName is the palette used when no theme is configured.
const DefaultName = "default"

// Palette is the set of colors a theme is built from.
type Palette struct {
	Primary       lipgloss.TerminalColor
	Success       lipgloss.TerminalColor
	Error         lipgloss.TerminalColor
	Border        lipgloss.TerminalColor
	Muted         lipgloss.TerminalColor
	Highlight     lipgloss.TerminalColor
	BarBackground lipgloss.TerminalColor
	BarForeground lipgloss.TerminalColor
}

var palettes = map[string]Palette{
	DefaultName: {
		Primary:       lipgloss.Color("37"),
		Success:       lipgloss.Color("42"),
		Error:         lipgloss.Color("196"),
		Border:        lipgloss.Color("238"),
		Muted:         lipgloss.Color("245"),
		Highlight:     lipgloss.Color("229"),
		BarBackground: lipgloss.Color("236"),
		BarForeground: lipgloss.Color("252"),
	},
	"light": {
		Primary:       lipgloss.Color("30"),
		Success:       lipgloss.Color("28"),
		Error:         lipgloss.Color("160"),
		Border:        lipgloss.Color("250"),
		Muted:         lipgloss.Color("243"),
		Highlight:     lipgloss.Color("130"),
		BarBackground: lipgloss.Color("254"),
		BarForeground: lipgloss.Color("235"),
	},
	"mono": {
		Primary:       lipgloss.NoColor{},
		Success:       lipgloss.NoColor{},
		Error:         lipgloss.NoColor{},
		Border:        lipgloss.NoColor{},
		Muted:         lipgloss.NoColor{},
		Highlight:     lipgloss.NoColor{},
		BarBackground: lipgloss.NoColor{},
		BarForeground: lipgloss.NoColor{},
	},
}

// Colors of the active palette.
var (
	ColorPrimary   lipgloss.TerminalColor
	ColorSuccess   lipgloss.TerminalColor
	ColorError     lipgloss.TerminalColor
	ColorBorder    lipgloss.TerminalColor
	ColorMuted     lipgloss.TerminalColor
	ColorHighlight lipgloss.TerminalColor
)

// Shared styles, rebuilt by Apply.
var (
	StyleBorder       lipgloss.Style
	StyleActiveBorder lipgloss.Style
	StyleTitle        lipgloss.Style
	StylePaneTitle    lipgloss.Style
	StyleSelected     lipgloss.Style
	StyleMuted        lipgloss.Style
	StyleError        lipgloss.Style
	StyleSuccess      lipgloss.Style
	StyleStatusBar    lipgloss.Style
)

func init() {
	build(palettes[DefaultName])
}

// Names lists the available themes.
func Names() []string {
	names := make([]string, 0, len(palettes))
	for n := range palettes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Apply switches the shared styles to the named palette. An empty name
// selects the default. Components read the styles when rendering, so Apply
// must run before the program starts.
func Apply(name string) error {
	if name == "" {
		name = DefaultName
	}
	p, ok := palettes[name]
	if !ok {
		return fmt.Errorf("unknown theme %q (known: %s)", name, strings.Join(Names(), ", "))
	}
	build(p)
	return nil
}

func build(p Palette) {
	ColorPrimary = p.Primary
	ColorSuccess = p.Success
	ColorError = p.Error
	ColorBorder = p.Border
	ColorMuted = p.Muted
	ColorHighlight = p.Highlight

	rounded := lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder())
	StyleBorder = rounded.BorderForeground(p.Border)
	StyleActiveBorder = rounded.BorderForeground(p.Primary)

	StyleTitle = lipgloss.NewStyle().Foreground(p.Primary).Bold(true)
	StylePaneTitle = StyleTitle.Padding(0, 1)
	StyleSelected = lipgloss.NewStyle().Foreground(p.Highlight).Bold(true)
	StyleMuted = lipgloss.NewStyle().Foreground(p.Muted)
	StyleError = lipgloss.NewStyle().Foreground(p.Error)
	StyleSuccess = lipgloss.NewStyle().Foreground(p.Success)
	StyleStatusBar = lipgloss.NewStyle().
		Background(p.BarBackground).
		Foreground(p.BarForeground).
		Padding(0, 1)
}
