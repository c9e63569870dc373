// ABOUTME: Entry point for coven-control, a terminal control client for a coven gateway
// ABOUTME: Mirrors gateway state into a local cache and keeps the event journal in sync

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// Version is set by goreleaser at build time.
var version = "dev"

var (
	configPath string
	logLevel   string
	jsonOutput bool

	ctl *app
)

var rootCmd = &cobra.Command{
	Use:           "coven-control <command>",
	Short:         "Control client for a coven gateway",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), configPath, logLevel)
		if err != nil {
			return err
		}
		ctl = a
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $COVEN_CONTROL_CONFIG or $XDG_CONFIG_HOME/coven/control.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	rootCmd.AddGroup(
		&cobra.Group{ID: "views", Title: "Views:"},
		&cobra.Group{ID: "sync", Title: "Sync:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)
	cobra.EnableCommandSorting = false

	// Views
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(agentsCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(usageCmd)
	rootCmd.AddCommand(cronCmd)
	rootCmd.AddCommand(skillsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(eventsCmd)

	// Sync
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(reconcileCmd)

	// System
	rootCmd.AddCommand(connectCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(verifyUpdateCmd)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	err := rootCmd.ExecuteContext(ctx)

	endpoint := ""
	if ctl != nil {
		endpoint = ctl.conn.Current().BaseURL
		ctl.Close()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, color.New(color.FgRed, color.Bold).Sprint("Error: ")+errorMessage(err, endpoint))
		os.Exit(1)
	}
}
