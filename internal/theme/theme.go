// Package theme holds the lipgloss styles used by smartvault's terminal
// output: run summaries, highlighted schema scripts and the generation
// progress bar.
package theme

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme holds lipgloss.Style values for every element smartvault prints.
type Theme struct {
	Name string

	// Summaries
	Title   lipgloss.Style
	Label   lipgloss.Style
	Value   lipgloss.Style
	Path    lipgloss.Style
	Box     lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Muted   lipgloss.Style

	// SQL syntax highlighting
	SQLKeyword    lipgloss.Style
	SQLString     lipgloss.Style
	SQLNumber     lipgloss.Style
	SQLComment    lipgloss.Style
	SQLOperator   lipgloss.Style
	SQLFunction   lipgloss.Style
	SQLType       lipgloss.Style
	SQLIdentifier lipgloss.Style

	// Progress bar gradient
	ProgressStart string
	ProgressEnd   string
}

// palette is the handful of colours a theme is built from.
type palette struct {
	border, title, label, text, path    string
	success, warning, error, muted      string
	keyword, str, number, function, typ string
	progressStart, progressEnd          string
}

func build(name string, p palette) *Theme {
	fg := func(c string) lipgloss.Style { return lipgloss.NewStyle().Foreground(lipgloss.Color(c)) }
	return &Theme{
		Name: name,

		Title: fg(p.title).Bold(true),
		Label: fg(p.label).Width(16),
		Value: fg(p.text).Bold(true),
		Path:  fg(p.path).Underline(true),
		Box: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(p.border)).
			Padding(0, 1),
		Success: fg(p.success),
		Warning: fg(p.warning),
		Error:   fg(p.error).Bold(true),
		Muted:   fg(p.muted),

		SQLKeyword:    fg(p.keyword).Bold(true),
		SQLString:     fg(p.str),
		SQLNumber:     fg(p.number),
		SQLComment:    fg(p.muted).Italic(true),
		SQLOperator:   fg(p.text),
		SQLFunction:   fg(p.function),
		SQLType:       fg(p.typ),
		SQLIdentifier: fg(p.label),

		ProgressStart: p.progressStart,
		ProgressEnd:   p.progressEnd,
	}
}

func newDefaultTheme() *Theme {
	return build("default", palette{
		border: "#3C3C3C", title: "#569CD6", label: "#9CDCFE", text: "#D4D4D4", path: "#4EC9B0",
		success: "#6A9955", warning: "#DCDCAA", error: "#F44747", muted: "#808080",
		keyword: "#569CD6", str: "#CE9178", number: "#B5CEA8", function: "#DCDCAA", typ: "#4EC9B0",
		progressStart: "#264F78", progressEnd: "#569CD6",
	})
}

func newLightTheme() *Theme {
	return build("light", palette{
		border: "#CCCCCC", title: "#0000FF", label: "#001080", text: "#000000", path: "#267F99",
		success: "#008000", warning: "#795E26", error: "#CD3131", muted: "#6E6E6E",
		keyword: "#0000FF", str: "#A31515", number: "#098658", function: "#795E26", typ: "#267F99",
		progressStart: "#ADD6FF", progressEnd: "#0000FF",
	})
}

func newMonokaiTheme() *Theme {
	return build("monokai", palette{
		border: "#49483E", title: "#F92672", label: "#66D9EF", text: "#F8F8F2", path: "#A6E22E",
		success: "#A6E22E", warning: "#E6DB74", error: "#F92672", muted: "#75715E",
		keyword: "#F92672", str: "#E6DB74", number: "#AE81FF", function: "#A6E22E", typ: "#66D9EF",
		progressStart: "#F92672", progressEnd: "#A6E22E",
	})
}

// ---------------------------------------------------------------------------
// Rendering helpers
// ---------------------------------------------------------------------------

// Field is one label/value line of a summary.
type Field struct {
	Label string
	Value string
}

// Summary renders a titled box of label/value lines.
func (t *Theme) Summary(title string, fields ...Field) string {
	var b strings.Builder
	b.WriteString(t.Title.Render(title))
	for _, f := range fields {
		b.WriteByte('\n')
		b.WriteString(t.Label.Render(f.Label))
		b.WriteString(t.Value.Render(f.Value))
	}
	return t.Box.Render(b.String())
}

// ---------------------------------------------------------------------------
// Registry and accessors
// ---------------------------------------------------------------------------

// Themes maps theme names to their Theme definitions.
var Themes = map[string]*Theme{
	"default": newDefaultTheme(),
	"light":   newLightTheme(),
	"monokai": newMonokaiTheme(),
}

// Default returns the default dark theme.
func Default() *Theme {
	return Themes["default"]
}

// Get returns the theme identified by name. If no theme with that name exists
// it falls back to the default theme.
func Get(name string) *Theme {
	if t, ok := Themes[name]; ok {
		return t
	}
	return Default()
}
