package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapcheck/internal/cli/config"
	"github.com/leapstack-labs/leapcheck/internal/cli/output"
	intconfig "github.com/leapstack-labs/leapcheck/internal/config"
	"github.com/leapstack-labs/leapcheck/pkg/rules"
)

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool
	var example bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new leapcheck project",
		Long: `Initialize a leapcheck project with a configuration file and a rules file.

This creates:
  - leapcheck.yaml  project configuration
  - rules.yaml      validation rules (the default rule set)
  - .gitignore      ignores the .leapcheck/ history directory

Use --example to also create data/people.csv, a small dataset with a
violation of every kind, and rules that exercise each check.`,
		Example: `  # Initialize in current directory
  leapcheck init

  # Initialize with a working example
  leapcheck init --example

  # Initialize in a new directory
  leapcheck init my-project --example

  # Overwrite existing files
  leapcheck init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			cfg := getConfig()
			r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))
			return runInit(r, dir, force, example)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files")
	cmd.Flags().BoolVar(&example, "example", false, "Create an example project with sample data")

	return cmd
}

func runInit(r *output.Renderer, dir string, force, example bool) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	configPath := filepath.Join(dir, intconfig.ConfigFileName)
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", intconfig.ConfigFileName)
	}

	tmpl := "minimal"
	if example {
		tmpl = "example"
	}
	files, err := copyTemplate(tmpl, dir, force)
	if err != nil {
		return fmt.Errorf("failed to initialize project: %w", err)
	}

	// The minimal template takes its rules from the built-in defaults.
	if !example {
		written, err := writeDefaultRules(dir, force)
		if err != nil {
			return err
		}
		if written {
			files = append(files, config.DefaultRulesFile)
		}
	}

	r.Header(2, "Created")
	for _, f := range files {
		r.StatusLine(f, "success", "")
	}
	r.Println("")

	if example {
		r.Success("leapcheck project initialized with example data!")
		r.Println("")
		r.Println("Next steps:")
		r.Println("  leapcheck validate          Validate data/people.csv")
		r.Println("  leapcheck browse            Browse the issues interactively")
		r.Println("  leapcheck history list      See recorded runs")
		return nil
	}

	r.Success("leapcheck project initialized!")
	r.Println("")
	r.Println("Next steps:")
	r.Println("  1. Point source.path in leapcheck.yaml at your data")
	r.Println("  2. Adjust the rules in rules.yaml")
	r.Println("  3. Run 'leapcheck validate'")
	return nil
}

func writeDefaultRules(dir string, force bool) (bool, error) {
	path := filepath.Join(dir, config.DefaultRulesFile)
	if _, err := os.Stat(path); err == nil && !force {
		return false, nil
	}
	data, err := rules.Marshal(rules.Default())
	if err != nil {
		return false, err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return false, fmt.Errorf("failed to write rules: %w", err)
	}
	return true, nil
}
