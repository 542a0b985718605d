// Package format builds Telegram HTML fragments.
package format

import (
	"html"
	"strings"
)

// Escape escapes text for Telegram's HTML parse mode.
func Escape(s string) string {
	return html.EscapeString(s)
}

// Bold wraps escaped text in <b>.
func Bold(s string) string {
	return "<b>" + Escape(s) + "</b>"
}

// Code wraps escaped text in <code>.
func Code(s string) string {
	return "<code>" + Escape(s) + "</code>"
}

// Pre renders a preformatted block, optionally tagged with a language.
func Pre(s, lang string) string {
	if lang == "" {
		return "<pre>" + Escape(s) + "</pre>"
	}
	return `<pre><code class="language-` + Escape(lang) + `">` + Escape(s) + "</code></pre>"
}

// Lines accumulates "label: value" rows, skipping empty values.
type Lines struct {
	b strings.Builder
}

// Title adds a bold heading.
func (l *Lines) Title(s string) *Lines {
	l.newline()
	l.b.WriteString(Bold(s))
	return l
}

// Field adds "label: <code>value</code>" when value is not empty.
func (l *Lines) Field(label, value string) *Lines {
	if strings.TrimSpace(value) == "" {
		return l
	}
	l.newline()
	l.b.WriteString(Escape(label))
	l.b.WriteString(": ")
	l.b.WriteString(Code(value))
	return l
}

// Text adds an escaped line.
func (l *Lines) Text(s string) *Lines {
	l.newline()
	l.b.WriteString(Escape(s))
	return l
}

// Blank adds an empty line.
func (l *Lines) Blank() *Lines {
	l.newline()
	l.b.WriteString("\n")
	return l
}

func (l *Lines) newline() {
	if l.b.Len() > 0 && !strings.HasSuffix(l.b.String(), "\n") {
		l.b.WriteByte('\n')
	}
}

func (l *Lines) String() string {
	return l.b.String()
}

// Truncate cuts s to at most max runes, marking the cut with an ellipsis.
func Truncate(s string, max int) string {
	r := []rune(s)
	if max <= 0 || len(r) <= max {
		return s
	}
	if max == 1 {
		return "…"
	}
	return string(r[:max-1]) + "…"
}
