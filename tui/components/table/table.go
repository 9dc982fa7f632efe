// Package table renders record listings and key/value panels with lipgloss tables.
package table

import (
	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"
	"github.com/grovetools/recordsync/tui/theme"
)

// Options configures a table.
type Options struct {
	Bordered bool
	Width    int
	Theme    *theme.Theme
}

// DefaultOptions returns a bordered table using the default theme.
func DefaultOptions() Options {
	return Options{
		Bordered: true,
		Theme:    theme.DefaultTheme,
	}
}

// Builder provides a fluent interface for creating styled tables.
type Builder struct {
	headers []string
	rows    [][]string
	options Options
}

// NewBuilder creates a new table builder.
func NewBuilder() *Builder {
	return &Builder{options: DefaultOptions()}
}

// WithTheme sets the theme.
func (b *Builder) WithTheme(t *theme.Theme) *Builder {
	b.options.Theme = t
	return b
}

// WithBorder enables or disables the border.
func (b *Builder) WithBorder(bordered bool) *Builder {
	b.options.Bordered = bordered
	return b
}

// WithWidth caps the rendered width. Zero leaves the table at its natural width.
func (b *Builder) WithWidth(width int) *Builder {
	b.options.Width = width
	return b
}

// WithHeaders sets the table headers.
func (b *Builder) WithHeaders(headers ...string) *Builder {
	b.headers = headers
	return b
}

// WithRows appends rows.
func (b *Builder) WithRows(rows ...[]string) *Builder {
	b.rows = append(b.rows, rows...)
	return b
}

// Build creates the styled table.
func (b *Builder) Build() *ltable.Table {
	th := b.options.Theme
	if th == nil {
		th = theme.DefaultTheme
	}

	t := ltable.New()
	if b.options.Bordered {
		t = t.Border(lipgloss.RoundedBorder()).BorderStyle(th.TableBorder)
	} else {
		t = t.Border(lipgloss.HiddenBorder()).
			BorderTop(false).
			BorderBottom(false).
			BorderLeft(false).
			BorderRight(false).
			BorderHeader(false).
			BorderColumn(false)
	}
	if len(b.headers) > 0 {
		t = t.Headers(b.headers...)
	}
	if b.options.Width > 0 {
		t = t.Width(b.options.Width)
	}

	// Headers are styled separately; StyleFunc data rows start at 0.
	t = t.StyleFunc(func(row, col int) lipgloss.Style {
		if row == ltable.HeaderRow {
			return th.TableHeader
		}
		return th.TableRow
	})

	for _, r := range b.rows {
		t = t.Row(r...)
	}
	return t
}

// String renders the table.
func (b *Builder) String() string {
	return b.Build().String()
}

// SimpleTable renders a bordered table with headers and rows.
func SimpleTable(headers []string, rows [][]string) string {
	return NewBuilder().WithHeaders(headers...).WithRows(rows...).String()
}

// StatusTable renders label/value pairs without borders, labels muted.
func StatusTable(items [][]string) string {
	th := theme.DefaultTheme
	b := NewBuilder().WithBorder(false)
	for _, item := range items {
		if len(item) < 2 {
			continue
		}
		b = b.WithRows([]string{th.Muted.Render(item[0] + ":"), item[1]})
	}
	return b.String()
}
