// Package render draws monospaced text tables for chat replies.
package render

import (
	"html"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/Proton-105/strike-bot/internal/dataset"
)

// Table is a titled grid of cells.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// Empty reports whether the table has no data rows.
func (t *Table) Empty() bool {
	return t == nil || len(t.Rows) == 0
}

// String draws the table with box borders sized by display width.
func (t *Table) String() string {
	if t == nil {
		return ""
	}

	cols := len(t.Headers)
	for _, row := range t.Rows {
		if len(row) > cols {
			cols = len(row)
		}
	}
	if cols == 0 {
		return t.Title
	}

	widths := make([]int, cols)
	measure := func(row []string) {
		for i, cell := range row {
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}
	measure(t.Headers)
	for _, row := range t.Rows {
		measure(row)
	}

	var b strings.Builder
	divider := dividerLine(widths)

	if t.Title != "" {
		b.WriteString(t.Title)
		b.WriteByte('\n')
	}
	b.WriteString(divider)
	if len(t.Headers) > 0 {
		writeRow(&b, t.Headers, widths)
		b.WriteString(divider)
	}
	for _, row := range t.Rows {
		writeRow(&b, row, widths)
	}
	b.WriteString(divider)

	return b.String()
}

// HTML wraps the table in a pre block for Telegram HTML parse mode.
func (t *Table) HTML() string {
	return "<pre>" + html.EscapeString(t.String()) + "</pre>"
}

// Events builds a table of betting lines.
func Events(title string, events []dataset.Event) *Table {
	t := &Table{
		Title:   title,
		Headers: []string{"Player", "Stat", "Line", "Opponent"},
		Rows:    make([][]string, 0, len(events)),
	}
	for _, e := range events {
		t.Rows = append(t.Rows, []string{e.PlayerName, e.StatType, e.LineValue.String(), e.Opponent})
	}
	return t
}

func dividerLine(widths []int) string {
	var b strings.Builder
	b.WriteByte('+')
	for _, w := range widths {
		b.WriteString(strings.Repeat("-", w+2))
		b.WriteByte('+')
	}
	b.WriteByte('\n')
	return b.String()
}

func writeRow(b *strings.Builder, row []string, widths []int) {
	b.WriteByte('|')
	for i, w := range widths {
		cell := ""
		if i < len(row) {
			cell = row[i]
		}
		b.WriteByte(' ')
		b.WriteString(runewidth.FillRight(cell, w))
		b.WriteString(" |")
	}
	b.WriteByte('\n')
}
