package foxter

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

const (
	docsBegin = "<!-- BEGIN:COMMANDS -->"
	docsEnd   = "<!-- END:COMMANDS -->"
)

var flagDocsFile string

// gendocs regenerates the command reference in README.md between the
// markers <!-- BEGIN:COMMANDS --> and <!-- END:COMMANDS -->.
func init() {
	cmd := &cobra.Command{
		Use:    "gendocs",
		Short:  "Regenerate the README command reference",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			b, err := os.ReadFile(flagDocsFile)
			if err != nil {
				return err
			}
			out, err := spliceDocs(b, commandReference(rootCmd))
			if err != nil {
				return fmt.Errorf("%s: %w", flagDocsFile, err)
			}
			return os.WriteFile(flagDocsFile, out, 0644)
		},
	}
	cmd.Flags().StringVar(&flagDocsFile, "file", "README.md", "markdown file to update")
	rootCmd.AddCommand(cmd)
}

func spliceDocs(b []byte, section string) ([]byte, error) {
	start, end := []byte(docsBegin), []byte(docsEnd)
	i := bytes.Index(b, start)
	j := bytes.Index(b, end)
	if i < 0 || j < 0 || j <= i {
		return nil, fmt.Errorf("markers not found")
	}
	var nb bytes.Buffer
	nb.Write(b[:i])
	nb.Write(start)
	nb.WriteString("\n")
	nb.WriteString(section)
	nb.Write(end)
	nb.Write(b[j+len(end):])
	return nb.Bytes(), nil
}

// commandReference lists every visible command, subcommands indented under
// their parent.
func commandReference(root *cobra.Command) string {
	var out strings.Builder
	out.WriteString("\n")
	var walk func(c *cobra.Command, depth int)
	walk = func(c *cobra.Command, depth int) {
		for _, sub := range c.Commands() {
			if sub.Hidden || !sub.IsAvailableCommand() && !sub.HasAvailableSubCommands() {
				continue
			}
			fmt.Fprintf(&out, "%s- `%s` - %s\n", strings.Repeat("  ", depth), sub.CommandPath(), sub.Short)
			walk(sub, depth+1)
		}
	}
	walk(root, 0)
	out.WriteString("\n")
	return out.String()
}
