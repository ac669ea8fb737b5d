// Package prompter asks the user to confirm persistent grants.
package prompter

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/reglet-dev/permstore/domain/entities"
	"github.com/reglet-dev/permstore/domain/ports"
)

var (
	resourceColor = color.New(color.FgCyan, color.Bold)
	warnColor     = color.New(color.FgYellow)
)

// CliPrompter implements ports.Prompter for CLI environments.
type CliPrompter struct {
	in  *bufio.Reader
	raw io.Reader
	out io.Writer
}

var _ ports.Prompter = (*CliPrompter)(nil)

// NewCliPrompter creates a new CliPrompter.
func NewCliPrompter(in io.Reader, out io.Writer) *CliPrompter {
	return &CliPrompter{in: bufio.NewReader(in), raw: in, out: out}
}

// IsInteractive checks if the input is a terminal.
func (p *CliPrompter) IsInteractive() bool {
	if f, ok := p.raw.(*os.File); ok {
		stat, err := f.Stat()
		if err != nil {
			return false
		}
		return (stat.Mode() & os.ModeCharDevice) != 0
	}
	return false
}

// ConfirmGrant asks whether a single resource should keep access across
// restarts. Anything but yes denies.
func (p *CliPrompter) ConfirmGrant(resource entities.ResourceID) (bool, error) {
	_, _ = fmt.Fprintf(p.out, "Grant persistent access to %s? [y/n]: ", resourceColor.Sprint(resource))

	answer, err := p.readAnswer()
	if err != nil {
		return false, err
	}
	return answer == "y" || answer == "yes", nil
}

// ConfirmGrants lists resources and asks once. Answering "each" asks per
// resource. The approved resources are returned in input order.
func (p *CliPrompter) ConfirmGrants(resources []entities.ResourceID) ([]entities.ResourceID, error) {
	if len(resources) == 0 {
		return nil, nil
	}

	_, _ = fmt.Fprintf(p.out, "The following resources will keep access across restarts:\n")
	for _, r := range resources {
		_, _ = fmt.Fprintf(p.out, "- %s\n", resourceColor.Sprint(r))
	}
	_, _ = fmt.Fprintf(p.out, "Grant all? [y/n/each]: ")

	answer, err := p.readAnswer()
	if err != nil {
		return nil, err
	}
	switch answer {
	case "y", "yes":
		return append([]entities.ResourceID(nil), resources...), nil
	case "e", "each":
		approved := make([]entities.ResourceID, 0, len(resources))
		for _, r := range resources {
			ok, err := p.ConfirmGrant(r)
			if err != nil {
				return approved, err
			}
			if ok {
				approved = append(approved, r)
			}
		}
		return approved, nil
	default:
		// Default deny
		_, _ = warnColor.Fprintln(p.out, "No grants recorded.")
		return nil, nil
	}
}

func (p *CliPrompter) readAnswer() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(line)), nil
}

// FormatNonInteractiveError explains why resources could not be granted
// without a terminal.
func (p *CliPrompter) FormatNonInteractiveError(resources []entities.ResourceID) error {
	names := make([]string, 0, len(resources))
	for _, r := range resources {
		names = append(names, r.String())
	}
	return fmt.Errorf("confirmation required for %s in non-interactive mode; rerun with --yes", strings.Join(names, ", "))
}
