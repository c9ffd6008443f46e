package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/formscan/internal/config"
)

// NewRootCmd creates the root command for formscan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "formscan",
		Short: "Detect and classify the fields of business registration forms",
		Long: `formscan reads HTML pages, finds their form fields and classifies each one
(business name, entity type, EIN, registered agent, address and so on).

It resolves a human-readable label for every field, collapses radio and
checkbox groups, splits the form into titled sections and decides whether
the page is a business registration form. State-specific vocabulary is
applied when the page belongs to a known US jurisdiction.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().String("log-format", "text", "Log format: text or json")
	cmd.PersistentFlags().String("db-dir", config.XDGDataDir(), "Directory of the detection history database")

	cmd.AddCommand(NewDetectCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewCompareCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
