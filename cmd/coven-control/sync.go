// ABOUTME: sync and reconcile commands driving the realtime engine
// ABOUTME: sync follows the live stream; reconcile merges a backlog file

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2389/coven-control/internal/event"
)

const banner = `
                                                   _             _
  ___ _____   _____ _ __         ___ ___  _ __ | |_ _ __ ___ | |
 / __/ _ \ \ / / _ \ '_ \ _____ / __/ _ \| '_ \| __| '__/ _ \| |
| (_| (_) \ V /  __/ | | |_____| (_| (_) | | | | |_| | | (_) | |
 \___\___/ \_/ \___|_| |_|      \___\___/|_| |_|\__|_|  \___/|_|
`

var (
	syncOnce     bool
	syncQuiet    bool
	syncChannels []string
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	Short:   "Follow the gateway event stream into the local journal",
	GroupID: "sync",
	Long: `Follow the gateway event stream into the local journal.

The socket transport is tried first, with the server-sent event stream as
fallback. The session reconnects after a clean end or a failure until
interrupted or until realtime.max_reconnect_attempts consecutive failures.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		channels := syncChannels
		if len(channels) == 0 {
			channels = ctl.cfg.Realtime.Channels
		}
		subs := event.Subscriptions(channels...)

		if !syncQuiet && !jsonOutput {
			color.New(color.FgCyan).Print(banner)
			color.New(color.FgHiBlack).Printf("    version: %s\n\n", version)
		}
		if ctl.cfg.Metrics.Enabled {
			ctl.metricsSrv = startMetricsServer(ctl.cfg.Metrics.Addr, ctl.logger)
		}

		engine := ctl.engine()
		if !syncQuiet && !jsonOutput {
			engine.OnApplied = func(env event.Envelope) {
				fmt.Printf("%s %s %s\n",
					color.HiBlackString(env.OccurredAt.Local().Format("15:04:05")),
					color.CyanString(env.EventType),
					env.EventID,
				)
			}
		}

		ctl.logger.Info("starting sync",
			"endpoint", ctl.client.Endpoint(),
			"channels", channels,
			"once", syncOnce,
		)

		var (
			applied int
			err     error
		)
		if syncOnce {
			applied, err = engine.RunOnce(ctx, subs)
		} else {
			applied, err = engine.RunWithReconnect(ctx, subs,
				ctl.cfg.Realtime.MaxReconnectAttempts,
				ctl.cfg.Realtime.ReconnectDelay,
			)
		}

		if jsonOutput {
			if jerr := printJSON(map[string]any{"applied": applied, "state": engine.State().String()}); jerr != nil {
				return jerr
			}
		} else {
			fmt.Printf("Applied %d new events (%s)\n", applied, engine.State())
		}
		return err
	},
}

var reconcileFile string

var reconcileCmd = &cobra.Command{
	Use:     "reconcile --file <backlog.json>",
	Short:   "Merge a backlog of events into the local journal",
	GroupID: "sync",
	Long: `Merge a backlog of events into the local journal.

The file holds a JSON array of event envelopes ("-" reads stdin). Events
are applied oldest first and events already in the journal are skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		backlog, err := readBacklog(reconcileFile)
		if err != nil {
			return err
		}
		applied, err := ctl.engine().Reconcile(cmd.Context(), backlog)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(map[string]int{"received": len(backlog), "applied": applied})
		}
		fmt.Printf("Applied %d of %d backlog events\n", applied, len(backlog))
		return nil
	},
}

func readBacklog(path string) ([]event.Envelope, error) {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening backlog: %w", err)
		}
		defer f.Close()
		r = f
	}

	var backlog []event.Envelope
	if err := json.NewDecoder(r).Decode(&backlog); err != nil {
		return nil, fmt.Errorf("parsing backlog: %w", err)
	}
	for i, env := range backlog {
		if err := env.Validate(); err != nil {
			return nil, fmt.Errorf("backlog entry %d: %w", i, err)
		}
	}
	return backlog, nil
}

func init() {
	syncCmd.Flags().BoolVar(&syncOnce, "once", false, "consume a single connection and exit")
	syncCmd.Flags().BoolVarP(&syncQuiet, "quiet", "q", false, "do not print applied events")
	syncCmd.Flags().StringSliceVar(&syncChannels, "channel", nil, "channel to subscribe to (repeatable; default realtime.channels)")

	reconcileCmd.Flags().StringVarP(&reconcileFile, "file", "f", "", "backlog JSON file, or - for stdin")
	_ = reconcileCmd.MarkFlagRequired("file")
}
