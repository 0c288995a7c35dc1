// SPDX-License-Identifier: MPL-2.0

// Package tui provides the interactive prompts used by destructive and
// ambiguous operations: yes/no confirmation and explicit numeric
// selection. Prompts write to stderr so their output is never captured by
// command substitution, and both reader and writer are injectable for
// tests.
package tui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ErrNoSelection is returned when the user declines to pick an option.
var ErrNoSelection = errors.New("no selection made")

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	optionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#3B82F6"))
	hintStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
)

// Prompter asks questions on out and reads answers from in.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPrompter creates a Prompter. Nil in/out default to stdin/stderr.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stderr
	}
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// Confirm asks a yes/no question. Only an explicit "y"/"yes" answers true;
// everything else, including an empty line or a closed input, answers
// false.
func (p *Prompter) Confirm(question string) (bool, error) {
	fmt.Fprintf(p.out, "%s %s ", titleStyle.Render(question), hintStyle.Render("[y/N]"))

	line, err := p.readLine()
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// ChooseIndex presents options numbered from 1 and returns the index of
// the explicit selection. There is no default: an empty or out-of-range
// answer is re-asked up to three times, then ErrNoSelection.
func (p *Prompter) ChooseIndex(title string, options []string) (int, error) {
	if len(options) == 0 {
		return 0, ErrNoSelection
	}

	fmt.Fprintln(p.out, titleStyle.Render(title))
	for i, opt := range options {
		fmt.Fprintf(p.out, "  %s %s\n", optionStyle.Render(fmt.Sprintf("%d)", i+1)), opt)
	}

	for tries := 0; tries < 3; tries++ {
		fmt.Fprintf(p.out, "%s ", hintStyle.Render(fmt.Sprintf("Select [1-%d]:", len(options))))

		line, err := p.readLine()
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(strings.TrimSpace(line))
		if err == nil && n >= 1 && n <= len(options) {
			return n - 1, nil
		}
		fmt.Fprintln(p.out, hintStyle.Render("Invalid selection."))
	}

	return 0, ErrNoSelection
}

// readLine reads one line from the prompter's input. A closed input
// (EOF before any byte) is reported as ErrNoSelection so callers treat it
// as a refusal rather than a transport failure.
func (p *Prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		if errors.Is(err, io.EOF) {
			return "", ErrNoSelection
		}
		return "", err
	}
	return line, nil
}
