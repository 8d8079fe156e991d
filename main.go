package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/bagumbayan/brgydocs/internal/config"
)

var (
	configPath string
	cfg        *config.Config
	logger     *slog.Logger
	closeLog   = func() {}
)

var rootCmd = &cobra.Command{
	Use:   "brgydocs",
	Short: "Barangay e-services document portal",
	Long: `brgydocs lets residents register, request a barangay clearance,
certificate of residency or certificate of indigency, and download the
generated .docx (or a PDF print copy).

Run "brgydocs serve" to start the web portal.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return err
		}
		logger, closeLog, err = config.SetupLogger(cfg, os.Stderr)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		closeLog()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (default $DOCS_CONFIG)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(inspectCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
