// Package report renders the outcome of a run for humans and for CI.
package report

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/tss-calculator/release-tools/pkg/release/application/model"
	"github.com/tss-calculator/release-tools/pkg/release/application/service"
)

var (
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)
	titleStyle = lipgloss.NewStyle().Bold(true)
	labelStyle = lipgloss.NewStyle().Faint(true)
)

// NewReporter prints to out and, when summaryFile is set, also writes the
// summary there as YAML.
func NewReporter(out io.Writer, summaryFile string) service.Reporter {
	return &reporter{out: out, summaryFile: summaryFile}
}

type reporter struct {
	out         io.Writer
	summaryFile string
}

func (r *reporter) Report(summary model.Summary) error {
	_, err := fmt.Fprintln(r.out, Render(summary))
	if err != nil {
		return errors.Wrap(err, "failed to print summary")
	}
	if r.summaryFile == "" {
		return nil
	}
	body, err := yaml.Marshal(summary)
	if err != nil {
		return errors.Wrap(err, "failed to encode summary")
	}
	return errors.Wrapf(os.WriteFile(r.summaryFile, body, 0o644), "failed to write summary file %v", r.summaryFile)
}

func Render(summary model.Summary) string {
	title := fmt.Sprintf("%v %v", summary.Mode, summary.Version)
	if summary.DryRun {
		title += " (dry-run)"
	}
	rows := [][2]string{
		{"version", summary.Version},
		{"branch", summary.Branch},
		{"tag", summary.Tag},
		{"merge request", summary.MergeRequestURL},
		{"deploy dir", summary.DeployDir},
		{"module file", summary.ModuleFile},
	}
	lines := []string{titleStyle.Render(title)}
	for _, row := range rows {
		if row[1] == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("%v %v", labelStyle.Render(fmt.Sprintf("%-14v", row[0]+":")), row[1]))
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}
