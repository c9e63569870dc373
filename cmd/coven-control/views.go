// ABOUTME: Read-only listing commands: agents, runs, usage, cron, skills, config, events

package main

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/2389/coven-control/internal/fault"
)

// OperatorPinSecret is the secret checked before sensitive values are shown.
const OperatorPinSecret = "operator.pin"

var agentsCmd = &cobra.Command{
	Use:     "agents",
	Short:   "List agents known to the gateway",
	GroupID: "views",
	RunE: func(cmd *cobra.Command, args []string) error {
		list, err := ctl.agents().List(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(list)
		}
		if list.FromCache {
			notice("Gateway unreachable; showing cached agents.")
		}
		w := newTable("ID", "NAME", "STATUS", "HEARTBEAT")
		for _, a := range list.Agents {
			row(w, a.ID, a.Name, colorState(a.Status), ago(a.LastHeartbeat))
		}
		return w.Flush()
	},
}

var runsCmd = &cobra.Command{
	Use:     "runs",
	Short:   "List active agent runs",
	GroupID: "views",
	RunE: func(cmd *cobra.Command, args []string) error {
		runs, err := ctl.tasks().ActiveRuns(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(runs)
		}
		w := newTable("ID", "AGENT", "STATE", "STARTED")
		for _, r := range runs {
			row(w, r.ID, r.AgentName, colorState(r.State), ago(r.StartedAt))
		}
		return w.Flush()
	},
}

var usageCmd = &cobra.Command{
	Use:     "usage",
	Short:   "Show token usage and estimated cost",
	GroupID: "views",
	RunE: func(cmd *cobra.Command, args []string) error {
		u, err := ctl.tasks().Usage(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(u)
		}
		fmt.Printf("Prompt tokens:     %s\n", humanize.Comma(u.PromptTokens))
		fmt.Printf("Completion tokens: %s\n", humanize.Comma(u.CompletionTokens))
		fmt.Printf("Total tokens:      %s\n", humanize.Comma(u.TotalTokens()))
		fmt.Printf("Estimated cost:    $%s\n", humanize.CommafWithDigits(u.EstimatedCostUSD, 2))
		return nil
	},
}

var cronCmd = &cobra.Command{
	Use:     "cron",
	Short:   "List scheduled jobs",
	GroupID: "views",
	RunE: func(cmd *cobra.Command, args []string) error {
		jobs, err := ctl.client.GetCronJobs(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(jobs)
		}
		w := newTable("ID", "NAME", "SCHEDULE", "STATE", "LAST RUN")
		for _, j := range jobs {
			last := "never"
			if j.LastRun != nil {
				last = ago(*j.LastRun)
			}
			row(w, j.ID, j.Name, j.Schedule, colorState(enabledText(j.Enabled)), last)
		}
		return w.Flush()
	},
}

var skillsCmd = &cobra.Command{
	Use:     "skills",
	Short:   "List installed skills",
	GroupID: "views",
	RunE: func(cmd *cobra.Command, args []string) error {
		skills, err := ctl.client.GetSkills(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(skills)
		}
		w := newTable("ID", "NAME", "STATE", "SOURCE", "HEALTH")
		for _, s := range skills {
			row(w, s.ID, s.Name, colorState(enabledText(s.Enabled)), s.Source, colorState(s.Health))
		}
		return w.Flush()
	},
}

var (
	configReveal bool
	configPin    string
)

var configCmd = &cobra.Command{
	Use:     "config",
	Short:   "Show the gateway configuration",
	GroupID: "views",
	Long: `Show the gateway configuration as flattened key/value pairs.

Sensitive values are masked. --reveal shows them after the operator PIN
(set with "connect --pin") is confirmed with --pin.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if configReveal {
			ok, err := ctl.security().RequireReauth(ctx, uuid.NewString(), OperatorPinSecret, configPin)
			if err != nil {
				return err
			}
			if !ok {
				return fault.Validation("operator PIN did not match")
			}
		}

		entries, err := ctl.client.GetConfigEntries(ctx)
		if err != nil {
			return err
		}
		if jsonOutput {
			if !configReveal {
				for i := range entries {
					entries[i].Value = entries[i].DisplayValue()
				}
			}
			return printJSON(entries)
		}
		w := newTable("KEY", "VALUE", "SOURCE")
		for _, e := range entries {
			v := e.DisplayValue()
			if configReveal {
				v = e.Value
			}
			row(w, e.Key, v, e.Source)
		}
		return w.Flush()
	},
}

var eventsLimit int

var eventsCmd = &cobra.Command{
	Use:     "events",
	Short:   "Show the most recent journaled events",
	GroupID: "views",
	RunE: func(cmd *cobra.Command, args []string) error {
		events, err := ctl.tasks().RecentEvents(cmd.Context(), eventsLimit)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(events)
		}
		w := newTable("OCCURRED", "TYPE", "ID", "VERSION")
		for _, e := range events {
			row(w, ago(e.OccurredAt), e.EventType, e.EventID, strconv.Itoa(e.Version))
		}
		return w.Flush()
	},
}

func init() {
	configCmd.Flags().BoolVar(&configReveal, "reveal", false, "show sensitive values")
	configCmd.Flags().StringVar(&configPin, "pin", "", "operator PIN required by --reveal")
	eventsCmd.Flags().IntVarP(&eventsLimit, "limit", "n", 25, "number of events to show")
}
