package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"golang.org/x/term"
)

// formatter colours a piece of output unless colour is disabled.
type formatter struct {
	color *color.Color
}

func (f formatter) Sprint(a ...any) string {
	text := fmt.Sprint(a...)
	if noColor() {
		return text
	}
	return f.color.Sprint(text)
}

func (f formatter) Sprintf(format string, a ...any) string {
	return f.Sprint(fmt.Sprintf(format, a...))
}

func noColor() bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return true
	}
	return color.NoColor
}

var (
	success   = formatter{color.New(color.FgGreen)}
	errorText = formatter{color.New(color.FgRed)}
	warning   = formatter{color.New(color.FgYellow)}
	hint      = formatter{color.New(color.Faint)}
	label     = formatter{color.New(color.Bold)}
	secret    = formatter{color.New(color.FgCyan)}
)

// strengthText colours a zxcvbn score.
func strengthText(score int, name string) string {
	switch {
	case score >= 3:
		return success.Sprint(name)
	case score == 2:
		return warning.Sprint(name)
	default:
		return errorText.Sprint(name)
	}
}

// startSpinner shows message while a slow step runs. It stays silent when
// stderr is not a terminal or logging is verbose. The returned func stops it.
func (a *app) startSpinner(message string) func() {
	if a.verbose || a.debug || !isTerminal(os.Stderr) {
		return func() {}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " " + message
	if err := s.Color("cyan"); err != nil {
		a.log.Debug().Err(err).Msg("spinner colour")
	}
	s.Start()
	return s.Stop
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func printField(w io.Writer, name, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(w, "%s %s\n", label.Sprintf("%-10s", name+":"), value)
}
