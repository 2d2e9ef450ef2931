package cmd

import (
	"fmt"

	"github.com/abdul-hamid-achik/runspec/packages/loader"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file|directory>",
	Short: "Validate runspec suite files for errors",
	Long: `Validate suite files against the schema and bind their actions
without executing anything.

Examples:
  runspec validate checkout.runspec.yaml
  runspec validate ./suites/`,
	Args: cobra.MinimumNArgs(1),
	RunE: validateCommand,
}

func validateCommand(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return err
	}

	if len(files) == 0 {
		return fmt.Errorf("no .runspec.yaml files found")
	}

	l := loader.New()
	hasErrors := false
	for _, file := range files {
		_, err := l.LoadFile(file)
		if err != nil {
			fmt.Fprintf(cmd.OutOrStderr(), "Error in %s: %v\n", file, err)
			hasErrors = true
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Valid: %s\n", file)
		}
	}

	if hasErrors {
		return fmt.Errorf("validation failed")
	}

	return nil
}
