// Package cli implements the agentgate command tree.
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentgate/agentgate/internal/config"
)

func NewRoot(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "agentgate",
		Short:         "agentgate: leakage prevention for AI agent sessions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Version = version
	cmd.SetVersionTemplate("agentgate {{.Version}}\n")

	cmd.AddCommand(newScanCmd())
	cmd.AddCommand(newSanitizeCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}

// loadLocalConfig resolves the config file: an explicit --config path must
// exist, otherwise the first well-known location found is used, otherwise
// defaults apply.
func loadLocalConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	for _, p := range []string{"./agentgate.yml", "./agentgate.yaml", "/etc/agentgate/config.yaml"} {
		if _, err := os.Stat(p); err == nil {
			return config.Load(p)
		}
	}
	return config.Default(), nil
}

// readInput returns the joined args, or stdin when no args were given.
func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	b, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(b), nil
}
