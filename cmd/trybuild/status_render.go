package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/mattn/go-isatty"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// severity tags one line of the status report.
type severity struct {
	tag   string
	color string
}

var (
	sevInfo  = severity{tag: "INFO", color: "\x1b[34m"}
	sevOK    = severity{tag: "OK", color: "\x1b[32m"}
	sevWarn  = severity{tag: "WARN", color: "\x1b[33m"}
	sevError = severity{tag: "ERROR", color: "\x1b[31m"}
)

const ansiReset = "\x1b[0m"

// statusPrinter writes the aligned report of `trybuild status`. Colour is
// only used when out is a terminal.
type statusPrinter struct {
	out   io.Writer
	color bool
}

func newStatusPrinter(out io.Writer) *statusPrinter {
	return &statusPrinter{out: out, color: isTerminal(out)}
}

func (p *statusPrinter) heading(title string) {
	title = strings.TrimSpace(title)
	p.paint(sevInfo.color, title)
	p.paint(sevInfo.color, strings.Repeat("=", utf8.RuneCountInString(title)))
}

func (p *statusPrinter) item(sev severity, label, detail string) {
	text := fmt.Sprintf("  %-14s [%s]", label+":", sev.tag)
	if detail != "" {
		text += " " + detail
	}
	p.paint(sev.color, text)
}

func (p *statusPrinter) plain(text string) {
	fmt.Fprintln(p.out, text)
}

func (p *statusPrinter) paint(color, text string) {
	if p.color {
		text = color + text + ansiReset
	}
	fmt.Fprintln(p.out, text)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

var titleCaser = cases.Title(language.Und)

// statusLabel turns a stored value such as "timed_out" into "Timed Out".
func statusLabel(value string) string {
	return titleCaser.String(strings.ReplaceAll(value, "_", " "))
}
