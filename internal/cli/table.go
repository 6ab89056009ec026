package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"github.com/patrickenfuego/chapterize/internal/lang"
	"github.com/patrickenfuego/chapterize/internal/segment"
)

// openEndLabel marks the last chapter, which runs to the end of the file.
const openEndLabel = "EOF"

// renderSegmentTable prints the detected chapters before splitting starts, so
// an interrupted run still shows the user what was found.
func renderSegmentTable(w io.Writer, segments []segment.Segment) {
	headers := []string{"Track", "Start", "End", "Title"}
	rows := make([][]string, 0, len(segments))
	for i, seg := range segments {
		end := seg.End
		if !seg.HasEnd() {
			end = openEndLabel
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			seg.Start,
			end,
			seg.Label,
		})
	}
	renderTable(w, headers, rows)
}

// renderLanguageTable prints the supported languages and their codes.
func renderLanguageTable(w io.Writer) {
	headers := []string{"Language", "Code"}
	rows := make([][]string, 0, len(lang.Supported()))
	for _, l := range lang.Supported() {
		rows = append(rows, []string{l.Name, l.Code})
	}
	renderTable(w, headers, rows)
}

// renderTable writes an aligned two-dimensional table. Column widths use
// display width rather than byte length so CJK chapter titles line up.
func renderTable(w io.Writer, headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if cw := runewidth.StringWidth(cell); cw > widths[i] {
				widths[i] = cw
			}
		}
	}

	bold := color.New(color.Bold)
	headerCells := make([]string, len(headers))
	for i, h := range headers {
		headerCells[i] = bold.Sprint(runewidth.FillRight(h, widths[i]))
	}
	fmt.Fprintln(w, strings.Join(headerCells, "  "))

	rules := make([]string, len(headers))
	for i, width := range widths {
		rules[i] = strings.Repeat("-", width)
	}
	fmt.Fprintln(w, strings.Join(rules, "  "))

	for _, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = runewidth.FillRight(cell, widths[i])
		}
		fmt.Fprintln(w, strings.Join(cells, "  "))
	}
}
