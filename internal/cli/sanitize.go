package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentgate/agentgate/internal/classify"
	"github.com/agentgate/agentgate/internal/config"
)

func newSanitizeCmd() *cobra.Command {
	var (
		configPath string
		strategy   string
		quiet      bool
	)

	cmd := &cobra.Command{
		Use:   "sanitize [text]",
		Short: "Redact sensitive data shapes from text",
		Long: `Redact sensitive data shapes from text using the configured
classification rules.

Text is taken from the arguments, or from stdin when no arguments are given.
The sanitized text is written to stdout; a match summary goes to stderr
unless --quiet is set. Session taint tracking only exists inside a running
gateway, so this command applies the pattern classifier alone.

Examples:
  agentgate sanitize "card 4111-1111-1111-1111 and mail a@b.example"
  cat output.txt | agentgate sanitize --strategy=mask`,
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			cfg, err := loadLocalConfig(configPath)
			if err != nil {
				return err
			}

			st := cfg.Security.RedactionStrategy
			if strategy != "" {
				switch config.RedactionStrategy(strategy) {
				case config.RedactMask, config.RedactRemove, config.RedactHash:
					st = config.RedactionStrategy(strategy)
				default:
					return fmt.Errorf("invalid strategy %q: use mask, remove or hash", strategy)
				}
			}

			classifier, err := classify.New(cfg.Security.ClassificationRules)
			if err != nil {
				return err
			}

			res := classifier.Classify(input)
			fmt.Fprint(cmd.OutOrStdout(), classifier.Redact(input, st))

			if !quiet && len(res.Matches) > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "redacted %d match(es), max level %s\n",
					len(res.Matches), res.OverallLevel)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to config YAML")
	cmd.Flags().StringVar(&strategy, "strategy", "", "Redaction strategy: mask, remove or hash (default from config)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress the match summary")
	return cmd
}
