package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"

	"github.com/goliatone/go-procure/pkg/form"
	"github.com/goliatone/go-procure/pkg/table"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	mutedStyle   = lipgloss.NewStyle().Faint(true)
	successStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))
)

// renderView draws the visible columns and rows of a view followed by a
// pagination footer.
func renderView[T any](w io.Writer, view table.View[T]) error {
	headers := make([]string, 0, len(view.Columns))
	for _, col := range view.Columns {
		headers = append(headers, col.Label)
	}
	rows := make([][]string, 0, len(view.Rows))
	for _, row := range view.Rows {
		cells := make([]string, 0, len(view.Columns))
		for _, col := range view.Columns {
			cells = append(cells, col.Value(row))
		}
		rows = append(rows, cells)
	}

	t := ltable.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == ltable.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	footer := fmt.Sprintf("page %d/%d, %d of %d rows", view.Page+1, max(view.Pages, 1), view.Filtered, view.Total)
	_, err := fmt.Fprintf(w, "%s\n%s\n", t.Render(), mutedStyle.Render(footer))
	return err
}

func renderNotification(w io.Writer, n form.Notification) error {
	style := successStyle
	if n.Level == form.LevelError {
		style = errorStyle
	}
	_, err := fmt.Fprintln(w, style.Render(n.Message))
	return err
}

// renderErrors lists field errors in key order.
func renderErrors(w io.Writer, errs map[string]string) error {
	keys := make([]string, 0, len(errs))
	for k := range errs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s %s\n", errorStyle.Render(k+":"), errs[k])
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// renderPayload prints a payload as aligned key/value lines.
func renderPayload(w io.Writer, payload map[string]any) error {
	keys := make([]string, 0, len(payload))
	width := 0
	for k := range payload {
		keys = append(keys, k)
		width = max(width, len(k))
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s %v\n", headerStyle.Render(fmt.Sprintf("%-*s", width, k)), payload[k])
	}
	_, err := io.WriteString(w, b.String())
	return err
}
