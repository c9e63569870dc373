// ABOUTME: doctor command: diagnose config, local store, token and gateway reachability
// ABOUTME: Reports the runtime mode derived from the pull and push paths

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2389/coven-control/internal/connection"
	"github.com/2389/coven-control/internal/event"
	"github.com/2389/coven-control/internal/fault"
	"github.com/2389/coven-control/internal/realtime"
	"github.com/2389/coven-control/internal/reliability"
)

const realtimeProbeTimeout = 3 * time.Second

var doctorExpectHash string

type doctorReport struct {
	ConfigPath          string     `json:"configPath"`
	Endpoint            string     `json:"endpoint"`
	Store               string     `json:"store"`
	DatabaseSize        int64      `json:"databaseSize"`
	DatabaseHash        string     `json:"databaseHash,omitempty"`
	HashMatches         *bool      `json:"hashMatches,omitempty"`
	TokenSet            bool       `json:"tokenSet"`
	TokenExpiresAt      *time.Time `json:"tokenExpiresAt,omitempty"`
	TokenExpired        bool       `json:"tokenExpired"`
	GatewayReachable    bool       `json:"gatewayReachable"`
	GatewayVersion      string     `json:"gatewayVersion,omitempty"`
	GatewayError        string     `json:"gatewayError,omitempty"`
	RealtimeConnected   bool       `json:"realtimeConnected"`
	ConsecutiveFailures int64      `json:"consecutiveFailures"`
	Mode                string     `json:"mode"`
}

var doctorCmd = &cobra.Command{
	Use:     "doctor",
	Short:   "Diagnose the local setup and the gateway connection",
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		opts := ctl.conn.Current()

		r := doctorReport{
			ConfigPath: ctl.configPath,
			Endpoint:   opts.BaseURL,
			Store:      ctl.store.Health(ctx),
			TokenSet:   opts.Token != "",
		}

		if fi, err := os.Stat(ctl.cfg.Database.Path); err == nil {
			r.DatabaseSize = fi.Size()
			if hash, err := reliability.ComputeFileHash(ctl.cfg.Database.Path); err == nil {
				r.DatabaseHash = hash
			}
			if doctorExpectHash != "" {
				ok, err := reliability.VerifyFileHash(ctl.cfg.Database.Path, doctorExpectHash)
				if err != nil {
					return err
				}
				r.HashMatches = &ok
			}
		}

		if exp, ok := connection.TokenExpiry(opts.Token); ok {
			r.TokenExpiresAt = &exp
			r.TokenExpired = connection.TokenExpired(opts.Token, time.Now())
		}

		if status, err := ctl.client.GetStatus(ctx); err != nil {
			r.GatewayError = fault.UserMessage(err, opts.BaseURL)
		} else {
			r.GatewayReachable = true
			r.GatewayVersion = status.Version
		}
		r.ConsecutiveFailures = ctl.governor.ConsecutiveFailures()

		r.RealtimeConnected = probeRealtime(ctx, ctl.transport, event.Subscriptions(ctl.cfg.Realtime.Channels...))
		r.Mode = reliability.EvaluateRuntimeMode(r.GatewayReachable, r.RealtimeConnected).String()

		if jsonOutput {
			return printJSON(r)
		}
		printDoctor(r)
		return nil
	},
}

// probeRealtime reports whether a realtime stream delivers an event or
// stays open for realtimeProbeTimeout.
func probeRealtime(ctx context.Context, t *realtime.Transport, subs []event.Subscription) bool {
	ctx, cancel := context.WithTimeout(ctx, realtimeProbeTimeout)
	defer cancel()

	s := t.Connect(ctx, subs)
	connected := false
	select {
	case _, ok := <-s.Events():
		connected = ok
	case <-ctx.Done():
		connected = true
	}
	cancel()
	for range s.Events() {
	}
	if err := s.Err(); err != nil && !connected {
		ctl.logger.Debug("realtime probe failed", "error", err)
	}
	return connected
}

func printDoctor(r doctorReport) {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)

	check := func(ok bool, format string, args ...any) {
		if ok {
			green.Print("  ✓ ")
		} else {
			red.Print("  ✗ ")
		}
		fmt.Printf(format+"\n", args...)
	}

	check(true, "Config:   %s", r.ConfigPath)
	check(r.Store == "ok", "Store:    %s (%s)", r.Store, humanize.Bytes(uint64(r.DatabaseSize)))
	if r.DatabaseHash != "" {
		fmt.Printf("            sha256 %s\n", r.DatabaseHash)
	}
	if r.HashMatches != nil {
		check(*r.HashMatches, "Database hash matches expected value")
	}

	switch {
	case !r.TokenSet:
		yellow.Print("  - ")
		fmt.Println("Token:    not set")
	case r.TokenExpiresAt == nil:
		check(true, "Token:    set (no expiry)")
	default:
		check(!r.TokenExpired, "Token:    expires %s", ago(*r.TokenExpiresAt))
	}

	if r.GatewayReachable {
		check(true, "Gateway:  %s (v%s)", r.Endpoint, r.GatewayVersion)
	} else {
		check(false, "Gateway:  %s", r.Endpoint)
		fmt.Printf("            %s\n", r.GatewayError)
	}
	check(r.RealtimeConnected, "Realtime: %s", map[bool]string{true: "connected", false: "unavailable"}[r.RealtimeConnected])
	if r.ConsecutiveFailures > 0 {
		yellow.Printf("  ! %d consecutive gateway failures\n", r.ConsecutiveFailures)
	}

	fmt.Println()
	fmt.Printf("  Mode: %s\n", colorState(r.Mode))
}
