package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fractalic-run/fractalic/parser"
)

// NewValidateCmd creates the "validate" subcommand: parses and schema-checks
// a document per the parser's operation-parameter validation, without
// executing it. Exit code 1 on any parse failure.
func NewValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Parse and validate a document without executing it",
		Args:  cobra.ExactArgs(1),
		RunE:  runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	docPath := args[0]

	// #nosec G304 -- docPath is the CLI's required positional document argument.
	data, err := os.ReadFile(docPath)
	if err != nil {
		if os.IsNotExist(err) {
			return exitError(ExitValidation, "file not found: %s", docPath)
		}
		return exitError(ExitRuntime, "reading %s: %v", docPath, err)
	}

	if _, err := parser.Parse(data); err != nil {
		return exitError(ExitValidation, "%v", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "valid")
	return nil
}
