// Package prompt implements the interactive questions asked during a release.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"

	"github.com/tss-calculator/release-tools/pkg/release/application/service"
)

var (
	questionStyle = lipgloss.NewStyle().Bold(true)
	optionStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
)

func NewTerminalPrompter(in io.Reader, out io.Writer) *TerminalPrompter {
	return &TerminalPrompter{
		reader: bufio.NewReader(in),
		out:    out,
	}
}

var _ service.Prompter = (*TerminalPrompter)(nil)

type TerminalPrompter struct {
	reader *bufio.Reader
	out    io.Writer
}

// Confirm answers true only for an explicit "y" or "yes". Closed input
// counts as "no".
func (p *TerminalPrompter) Confirm(question string) (bool, error) {
	fmt.Fprintf(p.out, "%v [y/N]: ", questionStyle.Render(question))
	answer, err := p.readLine()
	if errors.Is(err, io.EOF) {
		fmt.Fprintln(p.out)
		return false, nil
	}
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// Select asks until a valid option number is given and returns its index.
func (p *TerminalPrompter) Select(question string, options []string) (int, error) {
	if len(options) == 0 {
		return 0, errors.New("nothing to select from")
	}
	fmt.Fprintln(p.out, questionStyle.Render(question))
	for i, option := range options {
		fmt.Fprintf(p.out, "  %v %v\n", optionStyle.Render(strconv.Itoa(i+1)+")"), option)
	}
	for {
		fmt.Fprintf(p.out, "Choice [1-%d]: ", len(options))
		answer, err := p.readLine()
		if err != nil {
			return 0, err
		}
		choice, err := strconv.Atoi(answer)
		if err == nil && choice >= 1 && choice <= len(options) {
			return choice - 1, nil
		}
		fmt.Fprintf(p.out, "invalid choice %q\n", answer)
	}
}

func (p *TerminalPrompter) Input(question string) (string, error) {
	fmt.Fprintf(p.out, "%v: ", questionStyle.Render(question))
	return p.readLine()
}

func (p *TerminalPrompter) readLine() (string, error) {
	line, err := p.reader.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", errors.Wrap(err, "failed to read answer")
	}
	return strings.TrimSpace(line), nil
}
