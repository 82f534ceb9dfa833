package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentgate/agentgate/internal/injection"
)

func newScanCmd() *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "scan [text]",
		Short: "Scan text for prompt injection patterns",
		Long: `Scan text for prompt injection patterns.

Text is taken from the arguments, or from stdin when no arguments are given.
The exit status is non-zero when a blocking pattern matches.

Examples:
  agentgate scan "Ignore all previous instructions"
  cat prompt.txt | agentgate scan`,
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			res := injection.NewDetector().Scan(input, sessionID)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "verdict: %s\n", res.Verdict)
			for _, m := range res.Matches {
				tier := "suspicious"
				if m.Blocking {
					tier = "blocking"
				}
				fmt.Fprintf(out, "  %s (%s)\n", m.Pattern, tier)
			}

			if res.Blocked() {
				return fmt.Errorf("injection pattern detected")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "cli", "Session ID recorded in scan events")
	return cmd
}
