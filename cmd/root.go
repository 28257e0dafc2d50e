package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/intake-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "intake-cli",
	Short: "Customer complaint intake and resolution routing",
	Long:  "Collects complaint dialogues, detects the target company, verifies the customer, and routes each case to direct resolution or a named escalation specialist.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
