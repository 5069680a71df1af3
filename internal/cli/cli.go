// Package cli implements the interactive shell around the resolver: manifest
// selection, progress narration, and the overwrite/cleanup confirmations
// spec.md §6 requires before any file on disk is touched.
package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/AlecAivazis/survey/v2"
	"github.com/fatih/color"
)

// ErrUserExit is returned by Select when the user declines to pick a
// manifest, signalling a clean exit rather than a failure.
var ErrUserExit = errors.New("cli: user declined selection")

// Prompter is the subset of survey's package-level functions the shell
// needs, narrowed to an interface so tests can drive it without a real
// terminal.
type Prompter interface {
	Select(message string, options []string) (string, error)
	Confirm(message string, defaultValue bool) (bool, error)
}

// SurveyPrompter is the production Prompter, backed by AlecAivazis/survey/v2
// reading from the process's real stdin/stdout.
type SurveyPrompter struct{}

const exitOption = "<exit>"

// Select lists options plus a trailing "exit" choice and asks the user to
// pick one. Choosing exit returns ErrUserExit.
func (SurveyPrompter) Select(message string, options []string) (string, error) {
	choices := append(append([]string{}, options...), exitOption)
	var picked string
	prompt := &survey.Select{
		Message: message,
		Options: choices,
	}
	if err := survey.AskOne(prompt, &picked); err != nil {
		return "", fmt.Errorf("prompting for selection: %w", err)
	}
	if picked == exitOption {
		return "", ErrUserExit
	}
	return picked, nil
}

// Confirm asks a yes/no question, defaulting to defaultValue.
func (SurveyPrompter) Confirm(message string, defaultValue bool) (bool, error) {
	var ok bool
	prompt := &survey.Confirm{
		Message: message,
		Default: defaultValue,
	}
	if err := survey.AskOne(prompt, &ok); err != nil {
		return false, fmt.Errorf("prompting for confirmation: %w", err)
	}
	return ok, nil
}

// Shell wires a Prompter to colorized output on out, matching spec.md §6's
// five CLI responsibilities: enumerate (by the caller, via internal/discover),
// select, run (by the caller, via internal/resolver), confirm-overwrite, and
// confirm-cleanup.
type Shell struct {
	Prompter Prompter
	Out      io.Writer
}

// NewShell builds a Shell with the real interactive Prompter.
func NewShell(out io.Writer) *Shell {
	return &Shell{Prompter: SurveyPrompter{}, Out: out}
}

// SelectManifest asks the user to choose one of the discovered manifest
// paths, or returns ErrUserExit if none exist or the user declines.
func (s *Shell) SelectManifest(paths []string) (string, error) {
	if len(paths) == 0 {
		fmt.Fprintln(s.Out, color.YellowString("no package manifests found"))
		return "", ErrUserExit
	}
	return s.Prompter.Select("Select a manifest to resolve:", paths)
}

// ConfirmOverwrite asks before the manifest on disk is rewritten.
func (s *Shell) ConfirmOverwrite(path string) (bool, error) {
	return s.Prompter.Confirm(fmt.Sprintf("Overwrite %s with resolved versions?", path), true)
}

// ConfirmCleanup asks before the manifest backup and sidecar files are
// removed after a successful run.
func (s *Shell) ConfirmCleanup() (bool, error) {
	return s.Prompter.Confirm("Delete the backup and sidecar files?", false)
}

// Success prints a green status line.
func (s *Shell) Success(format string, args ...interface{}) {
	fmt.Fprintln(s.Out, color.GreenString(format, args...))
}

// Notice prints a yellow status line, for stale-dependency and added-peer
// notices.
func (s *Shell) Notice(format string, args ...interface{}) {
	fmt.Fprintln(s.Out, color.YellowString(format, args...))
}

// Failure prints a red status line.
func (s *Shell) Failure(format string, args ...interface{}) {
	fmt.Fprintln(s.Out, color.RedString(format, args...))
}
