// Package banner prints the one-line status banners that mark progress
// through a watch iteration.
package banner

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Prefix starts every banner line.
const Prefix = "==>"

// Printer writes banners to a single writer.
type Printer struct {
	out     io.Writer
	noColor bool

	prefix  lipgloss.Style
	text    lipgloss.Style
	success lipgloss.Style
	failure lipgloss.Style
}

// New creates a Printer. Colours are used only when noColor is false and
// out is a terminal that supports them.
func New(out io.Writer, noColor bool) *Printer {
	r := lipgloss.NewRenderer(out)

	return &Printer{
		out:     out,
		noColor: noColor,
		prefix:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("6")),
		text:    r.NewStyle().Bold(true),
		success: r.NewStyle().Bold(true).Foreground(lipgloss.Color("2")),
		failure: r.NewStyle().Bold(true).Foreground(lipgloss.Color("1")),
	}
}

// ChangeDetected announces that a watched file was written.
func (p *Printer) ChangeDetected(path string) {
	p.line(p.text, "change detected: "+path)
}

// Formatting announces the formatter run.
func (p *Printer) Formatting(cmdline string) {
	p.line(p.text, "formatting: "+cmdline)
}

// Running announces the downstream program run with its literal command line.
func (p *Printer) Running(cmdline string) {
	p.line(p.text, "running: "+cmdline)
}

// Exited reports the downstream program's exit status.
func (p *Printer) Exited(code int) {
	style := p.success
	if code != 0 {
		style = p.failure
	}

	p.line(style, fmt.Sprintf("exited with code %d", code))
}

// Note prints text below the current banner, indenting every line.
func (p *Printer) Note(text string) {
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		fmt.Fprintf(p.out, "    %s\n", line)
	}
}

func (p *Printer) line(style lipgloss.Style, text string) {
	if p.noColor {
		fmt.Fprintf(p.out, "%s %s\n", Prefix, text)
		return
	}

	fmt.Fprintf(p.out, "%s %s\n", p.prefix.Render(Prefix), style.Render(text))
}
