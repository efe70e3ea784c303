package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"mediaconv/internal/conversion"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	minStatusLabelWidth = 10
	statusIndent        = "  "
)

// Same palette as the browse view.
var statusStyles = map[statusKind]lipgloss.Style{
	statusInfo:  lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	statusOK:    lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
	statusWarn:  lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),
	statusError: lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true),
}

// statusPrinter writes "label: [KIND] message" lines with labels padded to
// the widest one it was created with. Tags are colored only on terminals.
type statusPrinter struct {
	out      io.Writer
	colorize bool
	width    int
}

func newStatusPrinter(out io.Writer, labels ...string) *statusPrinter {
	width := minStatusLabelWidth
	for _, label := range labels {
		if w := lipgloss.Width(label) + 1; w > width {
			width = w
		}
	}
	return &statusPrinter{out: out, colorize: shouldColorize(out), width: width}
}

func (p *statusPrinter) print(label string, kind statusKind, message string) {
	fmt.Fprintln(p.out, p.render(label, kind, message))
}

func (p *statusPrinter) render(label string, kind statusKind, message string) string {
	tag := "[" + statusKindLabel(kind) + "]"
	if p.colorize {
		tag = statusStyles[kind].Render(tag)
	}
	var b strings.Builder
	b.WriteString(statusIndent)
	b.WriteString(label + ":")
	if pad := p.width - lipgloss.Width(label) - 1; pad > 0 {
		b.WriteString(strings.Repeat(" ", pad))
	}
	b.WriteString(" ")
	b.WriteString(tag)
	if message != "" {
		b.WriteString(" ")
		b.WriteString(message)
	}
	return b.String()
}

// printJob renders one conversion transition. Idle jobs print nothing.
func (p *statusPrinter) printJob(label string, job conversion.Job) {
	switch job.Status {
	case conversion.StatusSubmitting:
		p.print(label, statusInfo, "submitting")
	case conversion.StatusAwaitingArtifact:
		msg := "converted, fetching audio"
		if job.Filename != "" {
			msg += " (" + job.Filename + ")"
		}
		p.print(label, statusInfo, msg)
	case conversion.StatusReady:
		msg := "ready"
		if job.Handle != nil {
			msg += ", " + formatSize(int64(job.Handle.Size()))
		}
		p.print(label, statusOK, msg)
	case conversion.StatusFailed:
		p.print(label, statusError, job.ErrorMessage)
	}
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func stdinIsTerminal() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
