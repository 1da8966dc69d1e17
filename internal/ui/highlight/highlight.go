// Package highlight renders schema definition scripts with SQL syntax
// colouring for the `smartvault schema` listing.
package highlight

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/smartvault/internal/theme"
)

// Highlighter tokenises SQL with chroma and styles it from one theme.
type Highlighter struct {
	lexer chroma.Lexer
	th    *theme.Theme
}

// New creates a Highlighter for th. A nil theme renders text unchanged.
func New(th *theme.Theme) *Highlighter {
	l := lexers.Get("SQL")
	if l == nil {
		l = lexers.Fallback
	}
	return &Highlighter{lexer: chroma.Coalesce(l), th: th}
}

// Render returns script with every recognised token styled. Newlines are
// emitted unstyled so multi-line scripts keep their layout.
func (h *Highlighter) Render(script string) string {
	if h.th == nil {
		return script
	}

	iter, err := h.lexer.Tokenise(nil, script)
	if err != nil {
		return script
	}

	var b strings.Builder
	b.Grow(len(script) * 2)
	for _, tok := range iter.Tokens() {
		if tok.Value == "" {
			continue
		}
		style, ok := h.styleFor(tok.Type)
		if !ok {
			b.WriteString(tok.Value)
			continue
		}
		for i, line := range strings.Split(tok.Value, "\n") {
			if i > 0 {
				b.WriteByte('\n')
			}
			if line != "" {
				b.WriteString(style.Render(line))
			}
		}
	}
	return b.String()
}

// Indent renders script and prefixes every line with prefix.
func (h *Highlighter) Indent(script, prefix string) string {
	lines := strings.Split(h.Render(script), "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

// styleFor maps a token type to a theme style. KeywordType is checked
// before the keyword category so column types get their own colour.
func (h *Highlighter) styleFor(tt chroma.TokenType) (lipgloss.Style, bool) {
	switch {
	case tt == chroma.KeywordType:
		return h.th.SQLType, true
	case tt == chroma.NameFunction || tt == chroma.NameBuiltin:
		return h.th.SQLFunction, true
	case tt.InCategory(chroma.Keyword):
		return h.th.SQLKeyword, true
	case tt.InSubCategory(chroma.LiteralString):
		return h.th.SQLString, true
	case tt.InSubCategory(chroma.LiteralNumber):
		return h.th.SQLNumber, true
	case tt.InCategory(chroma.Comment):
		return h.th.SQLComment, true
	case tt == chroma.Operator || tt == chroma.OperatorWord:
		return h.th.SQLOperator, true
	case tt == chroma.Name:
		return h.th.SQLIdentifier, true
	}
	return lipgloss.Style{}, false
}
