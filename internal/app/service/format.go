package service

import (
	"bytes"
	"encoding/csv"
	"strings"
	"unicode/utf8"
)

// FormatTable renders an aligned ASCII table: "=" rules around the
// header, a "-" rule after the last row. Returns the placeholder when
// there are no rows.
func FormatTable(headers []string, rows [][]string, placeholder string, codeBlock bool) string {
	if len(rows) == 0 {
		return placeholder
	}

	// Widths count runes, not bytes, so accented account names and
	// CJK characters keep the columns aligned.
	widths := make([]int, len(headers))
	for i, header := range headers {
		widths[i] = utf8.RuneCountInString(header)
	}
	for _, row := range rows {
		for i, cell := range row {
			if n := utf8.RuneCountInString(cell); i < len(widths) && n > widths[i] {
				widths[i] = n
			}
		}
	}

	formatRow := func(row []string) string {
		var sb strings.Builder
		sb.WriteString("|")
		for i := range headers {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			sb.WriteString(" " + cell + strings.Repeat(" ", widths[i]-utf8.RuneCountInString(cell)) + " |")
		}
		return sb.String()
	}
	divider := func(char string) string {
		var sb strings.Builder
		sb.WriteString("+")
		for _, width := range widths {
			sb.WriteString(strings.Repeat(char, width+2) + "+")
		}
		return sb.String()
	}

	lines := []string{divider("="), formatRow(headers), divider("=")}
	for _, row := range rows {
		lines = append(lines, formatRow(row))
	}
	lines = append(lines, divider("-"))
	table := strings.Join(lines, "\n")
	if codeBlock {
		return "```\n" + table + "\n```"
	}
	return table
}

// FormatList renders items as "- item" lines, or the placeholder.
func FormatList(items []string, placeholder string) string {
	if len(items) == 0 {
		return placeholder
	}
	var sb strings.Builder
	for i, item := range items {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("- " + item)
	}
	return sb.String()
}

// FormatCSV renders a header plus rows as RFC 4180 CSV for file
// attachments.
func FormatCSV(headers []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(headers); err != nil {
		return nil, err
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// TruncateText caps a string at limit runes with a trailing ellipsis.
func TruncateText(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return strings.TrimRight(string(runes[:limit-1]), " \n") + "…"
}
