package cmd

import (
	"fmt"

	"github.com/abdul-hamid-achik/runspec/packages/loader"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list <file|directory>",
	Short: "List all scenarios in runspec suite files",
	Long: `List all scenarios defined in .runspec.yaml suite files.

Examples:
  runspec list checkout.runspec.yaml
  runspec list ./suites/`,
	Args: cobra.MinimumNArgs(1),
	RunE: listCommand,
}

func listCommand(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return err
	}

	if len(files) == 0 {
		return fmt.Errorf("no .runspec.yaml files found")
	}

	l := loader.New()
	for _, file := range files {
		defs, err := l.LoadFile(file)
		if err != nil {
			fmt.Fprintf(cmd.OutOrStderr(), "Error loading %s: %v\n", file, err)
			continue
		}

		fmt.Fprintf(cmd.OutOrStdout(), "\n%s:\n", file)
		for _, def := range defs {
			fmt.Fprintf(cmd.OutOrStdout(), "  - %s (%d steps)\n", def.Name, len(def.Steps))
			if len(def.Tags) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "    tags: %v\n", def.Tags)
			}
		}
	}

	return nil
}
