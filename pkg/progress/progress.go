// Package progress reports the state of long running lookups to the user.
package progress

import (
	"io"

	"github.com/pterm/pterm"
)

// Reporter receives progress events from a lookup
type Reporter interface {
	Start(message string)
	Warn(message string)
	Success(message string)
	Fail(message string)
}

// Nop discards every event
type Nop struct{}

func (Nop) Start(string)   {}
func (Nop) Warn(string)    {}
func (Nop) Success(string) {}
func (Nop) Fail(string)    {}

// OrNop returns r, or a Nop reporter when r is nil
func OrNop(r Reporter) Reporter {
	if r == nil {
		return Nop{}
	}
	return r
}

// Spinner shows an animated spinner while a lookup runs and prints
// warnings on their own line.
type Spinner struct {
	writer  io.Writer
	spinner *pterm.SpinnerPrinter
}

// NewSpinner creates a spinner reporter writing to w
func NewSpinner(w io.Writer) *Spinner {
	return &Spinner{writer: w}
}

// Start starts a new spinner, stopping any previous one
func (s *Spinner) Start(message string) {
	s.stop()
	sp, err := pterm.DefaultSpinner.WithWriter(s.writer).WithRemoveWhenDone(false).Start(message)
	if err != nil {
		return
	}
	s.spinner = sp
}

// Warn prints a warning without stopping the spinner
func (s *Spinner) Warn(message string) {
	pterm.Warning.WithWriter(s.writer).Println(message)
}

// Success stops the spinner with a ✔
func (s *Spinner) Success(message string) {
	if s.spinner == nil {
		pterm.Success.WithWriter(s.writer).Println(message)
		return
	}
	s.spinner.Success("✔ " + message)
	s.spinner = nil
}

// Fail stops the spinner with a ✖
func (s *Spinner) Fail(message string) {
	if s.spinner == nil {
		pterm.Error.WithWriter(s.writer).Println(message)
		return
	}
	s.spinner.Fail("✖ " + message)
	s.spinner = nil
}

func (s *Spinner) stop() {
	if s.spinner != nil {
		_ = s.spinner.Stop()
		s.spinner = nil
	}
}
