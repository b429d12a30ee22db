package clifmt

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/term"
)

const (
	defaultTableWidth    = 100
	defaultMinLastColumn = 24
)

// TableOptions describes a table whose last column wraps to the terminal
// width. Rows shorter than Headers are padded with empty cells.
type TableOptions struct {
	Title        string
	Headers      []string
	Rows         [][]string
	EmptyText    string
	DefaultWidth int
}

func PrintTable(out io.Writer, opts TableOptions) {
	if out == nil {
		out = os.Stdout
	}
	if title := strings.TrimSpace(opts.Title); title != "" {
		fmt.Fprintln(out, Headerf("%s (%d)", title, len(opts.Rows)))
	}
	if len(opts.Rows) == 0 {
		empty := strings.TrimSpace(opts.EmptyText)
		if empty == "" {
			empty = "No entries."
		}
		fmt.Fprintln(out, Warn(empty))
		return
	}

	cols := len(opts.Headers)
	for _, row := range opts.Rows {
		cols = max(cols, len(row))
	}
	if cols == 0 {
		return
	}
	cell := func(row []string, i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	widths := make([]int, cols)
	for i := 0; i < cols-1; i++ {
		widths[i] = utf8.RuneCountInString(cell(opts.Headers, i))
		for _, row := range opts.Rows {
			widths[i] = max(widths[i], utf8.RuneCountInString(cell(row, i)))
		}
	}
	used := 0
	for _, w := range widths[:cols-1] {
		used += w + 2
	}
	widths[cols-1] = max(terminalWidth(out, opts.DefaultWidth)-used, defaultMinLastColumn)

	if len(opts.Headers) > 0 {
		var head, rule []string
		for i := 0; i < cols; i++ {
			head = append(head, Key(padRightRunes(cell(opts.Headers, i), widths[i])))
			rule = append(rule, Dim(strings.Repeat("-", widths[i])))
		}
		fmt.Fprintln(out, strings.TrimRight(strings.Join(head, "  "), " "))
		fmt.Fprintln(out, strings.Join(rule, "  "))
	}

	indent := strings.Repeat(" ", used)
	for _, row := range opts.Rows {
		var prefix []string
		for i := 0; i < cols-1; i++ {
			text := padRightRunes(cell(row, i), widths[i])
			if i == 0 {
				text = Success(text)
			}
			prefix = append(prefix, text)
		}
		lines := wrapTextRunes(cell(row, cols-1), widths[cols-1])
		lead := ""
		if len(prefix) > 0 {
			lead = strings.Join(prefix, "  ") + "  "
		}
		fmt.Fprintln(out, strings.TrimRight(lead+lines[0], " "))
		for _, line := range lines[1:] {
			fmt.Fprintln(out, indent+line)
		}
	}
}

func terminalWidth(out io.Writer, fallback int) int {
	if fallback <= 0 {
		fallback = defaultTableWidth
	}
	if file, ok := out.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		if w, _, err := term.GetSize(int(file.Fd())); err == nil && w > 0 {
			return w
		}
	}
	return fallback
}

func padRightRunes(s string, width int) string {
	missing := width - utf8.RuneCountInString(s)
	if missing <= 0 {
		return s
	}
	return s + strings.Repeat(" ", missing)
}

func wrapTextRunes(text string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 || width <= 0 {
		return []string{strings.TrimSpace(text)}
	}
	var lines []string
	current := ""
	for _, word := range words {
		for utf8.RuneCountInString(word) > width {
			if current != "" {
				lines = append(lines, current)
				current = ""
			}
			runes := []rune(word)
			lines = append(lines, string(runes[:width]))
			word = string(runes[width:])
		}
		switch {
		case current == "":
			current = word
		case utf8.RuneCountInString(current)+1+utf8.RuneCountInString(word) <= width:
			current += " " + word
		default:
			lines = append(lines, current)
			current = word
		}
	}
	if current != "" {
		lines = append(lines, current)
	}
	if len(lines) == 0 {
		return []string{""}
	}
	return lines
}
