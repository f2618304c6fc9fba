package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapcheck/internal/cli/output"
	"github.com/leapstack-labs/leapcheck/pkg/rules"
)

// NewRulesCommand creates the rules command.
func NewRulesCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Show the effective validation rules",
		Long: `Print the rules validate would use, after defaults are applied.

Formats:
  yaml  the rules file form (default)
  text  the line syntax accepted by the HTTP API form fields
  json  the line syntax fields as JSON`,
		Example: `  leapcheck rules
  leapcheck rules --format text
  leapcheck rules --rules other.yaml --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx := NewCommandContextWithoutEngine(cmd)
			rs, err := loadRules(cmd, cmdCtx.Cfg, cmdCtx.Logger)
			if err != nil {
				return err
			}
			r := cmdCtx.Renderer

			switch format {
			case "yaml", "":
				data, err := rules.Marshal(rs)
				if err != nil {
					return err
				}
				r.Printf("%s", data)
			case "text":
				t := rules.ToText(rs)
				for _, f := range []struct{ name, value string }{
					{"required", t.Required},
					{"unique_key", t.UniqueKey},
					{"types", t.Types},
					{"ranges", t.Ranges},
					{"allowed", t.Allowed},
					{"email", t.Email},
				} {
					r.Header(3, f.name)
					if r.EffectiveMode() == output.ModeMarkdown {
						r.Println(output.FormatCodeBlock("", f.value))
					} else {
						r.Println(f.value)
					}
					r.Println("")
				}
				if len(rs.Checks) > 0 {
					r.Muted(fmt.Sprintf("%s not expressible in line syntax", plural(len(rs.Checks), "custom check")))
				}
			case "json":
				return r.JSON(rules.ToText(rs))
			default:
				return fmt.Errorf("unknown format %q (want yaml, text or json)", format)
			}
			r.Muted("# rules hash " + rules.Hash(rs))
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "Output format: yaml, text, json")
	return cmd
}
