package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/abdul-hamid-achik/runspec/packages/core/config"
	"github.com/spf13/cobra"
)

var forceInit bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new runspec project",
	Long: `Initialize a new runspec project in the current directory.

This creates:
  - runspec.config.json      - Configuration file with run defaults
  - example.runspec.yaml     - Example suite file

Examples:
  runspec init
  runspec init --force`,
	RunE: initCommand,
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite existing files")
}

func initCommand(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	configFile := filepath.Join(cwd, "runspec.config.json")
	exampleFile := filepath.Join(cwd, "example.runspec.yaml")

	if !forceInit {
		for _, f := range []string{configFile, exampleFile} {
			if _, err := os.Stat(f); err == nil {
				return fmt.Errorf("file already exists: %s (use --force to overwrite)", f)
			}
		}
	}

	cfg := config.DefaultConfig()
	if err := cfg.SaveConfig(configFile); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", configFile)

	exampleContent := `suite: example
vars:
  GREETING: hello

scenarios:
  - name: kv round trip
    tags: [smoke]
    timeout: 30s
    steps:
      - name: db
        kind: resource
        action: kv.open
        with:
          path: ":memory:"

      - name: seed
        kind: setup
        action: kv.put
        with:
          store: db
          key: greeting
          value: "{{GREETING}}"

      - name: read greeting
        action: kv.get
        with:
          store: db
          key: greeting
        timeout: 5s
        retry:
          maxAttempts: 3
          backoff: exponential
          baseDelay: 100ms

  - name: queue round trip
    tags: [smoke]
    steps:
      - name: q
        kind: resource
        action: queue.open
        with:
          capacity: 8

      - name: publish
        action: queue.publish
        with:
          queue: q
          body: '{"status": "ok"}'

      - name: consume
        action: queue.consume
        with:
          queue: q

      - name: verify
        action: expect.json
        with:
          equals:
            status: ok
`

	if err := os.WriteFile(exampleFile, []byte(exampleContent), 0644); err != nil {
		return fmt.Errorf("failed to create example file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", exampleFile)

	fmt.Fprintf(cmd.OutOrStdout(), "\nrunspec project initialized!\n")
	fmt.Fprintf(cmd.OutOrStdout(), "Run 'runspec run example.runspec.yaml' to execute the example suite.\n")

	return nil
}
