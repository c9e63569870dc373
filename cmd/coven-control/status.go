// ABOUTME: status command: dashboard tiles and needs-attention items
// ABOUTME: Falls back to the cached view when the gateway is unreachable

package main

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2389/coven-control/internal/fault"
	"github.com/2389/coven-control/internal/service"
)

var statusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Show gateway health and what needs attention",
	GroupID: "views",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		dash := ctl.dashboard()

		snap, err := dash.Snapshot(ctx)
		if err != nil {
			if !errors.Is(err, fault.ErrTransientNetwork) && !errors.Is(err, fault.ErrCircuitOpen) {
				return err
			}
			cached, cerr := dash.CachedSnapshot(ctx)
			if cerr != nil {
				return err
			}
			notice("%s", fault.UserMessage(err, ctl.client.Endpoint()))
			notice("Showing cached state.")
			snap = cached
		}

		if jsonOutput {
			return printJSON(snap)
		}
		printSnapshot(snap)
		return nil
	},
}

func printSnapshot(snap *service.Snapshot) {
	cyan := color.New(color.FgCyan)

	for _, t := range snap.Tiles {
		fmt.Printf("  %-9s %-14s %-8s %s\n", cyan.Sprint(t.Title), t.Value, colorState(t.Status), t.Detail)
	}

	if len(snap.NeedsAttention) == 0 {
		fmt.Println()
		color.Green("  Nothing needs attention.")
		return
	}

	fmt.Println()
	color.Yellow("  Needs attention")
	for _, item := range snap.NeedsAttention {
		fmt.Printf("  [%s] %s: %s\n", item.Category, item.Title, item.Detail)
	}
}
