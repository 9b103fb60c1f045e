package cmd

import (
	"fmt"
	"os"

	"github.com/driftsec/hostsentry/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "hostsentry",
	Short: "Host compromise triage coordinator",
	Long: "\nhostsentry runs a set of read-only detectors against the local host, " +
		"correlates their findings into a single risk assessment, and renders a " +
		"sanitized triage report.\n\n" +
		"Detectors run in bounded-concurrency phases; when phase-one evidence points " +
		"at a specific domain (wallet artifacts, crypto network activity) an adaptive " +
		"phase digs deeper. Reports go to stdout, logging to stderr.",
	PersistentPreRunE: runInit,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to configuration file (default: ~/.hostsentry/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", config.DefaultConfig.Logging.Level, "Logging level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", config.DefaultConfig.Logging.Format, "Logging format (json, text)")

	// Bind flags to viper
	viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))

	// Add subcommands
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(versionCmd)

	// Enable --version flag on root command
	rootCmd.Version = version
	rootCmd.SetVersionTemplate("hostsentry version {{.Version}}\n")
}

func runInit(cmd *cobra.Command, args []string) error {
	// Get custom config path if provided
	configPath, _ := cmd.Flags().GetString("config")

	err := config.InitConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to initialize configuration; %w", err)
	}

	return nil
}

func Execute() error {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	err := rootCmd.Execute()

	if err != nil {
		cmd, _, _ := rootCmd.Find(os.Args[1:])
		if cmd == nil {
			cmd = rootCmd
		}

		fmt.Printf("Error: %v\n", err)
		if !cmd.SilenceUsage {
			fmt.Printf("\n")
			cmd.SetOut(os.Stdout)
			cmd.Usage()
		}

		return err
	}

	return nil
}
