// ABOUTME: connect command: repoint the client at a gateway and save credentials
// ABOUTME: The token is sealed in the local secret store, never written to the preferences file

package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2389/coven-control/internal/connection"
)

var (
	connectURL       string
	connectToken     string
	connectSocketURL string
	connectStreamURL string
	connectClear     bool
	connectPin       string
	connectVerify    bool
)

var connectCmd = &cobra.Command{
	Use:     "connect",
	Short:   "Point the client at a gateway",
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		current := ctl.conn.Current()

		baseURL := current.BaseURL
		if connectURL != "" {
			baseURL = connectURL
		}
		token := current.Token
		switch {
		case connectClear:
			token = ""
		case connectToken != "":
			token = connectToken
		}

		opts, err := connection.NewOptions(baseURL, token)
		if err != nil {
			return err
		}
		if err := ctl.conn.Update(opts); err != nil {
			return err
		}

		prefs := connection.Preferences{
			BaseURL:   opts.BaseURL,
			SocketURL: connectSocketURL,
			StreamURL: connectStreamURL,
		}
		if err := connection.SavePreferences(ctl.prefsPath, prefs); err != nil {
			return err
		}

		switch {
		case connectClear:
			if err := ctl.store.DeleteSecret(ctx, connection.TokenSecretKey); err != nil {
				return fmt.Errorf("clearing token: %w", err)
			}
		case connectToken != "":
			if err := ctl.store.StoreSecret(ctx, connection.TokenSecretKey, connectToken); err != nil {
				return fmt.Errorf("saving token: %w", err)
			}
		}
		if connectPin != "" {
			if err := ctl.store.StoreSecret(ctx, OperatorPinSecret, connectPin); err != nil {
				return fmt.Errorf("saving operator PIN: %w", err)
			}
		}

		details := fmt.Sprintf("base=%s token=%s", opts.BaseURL, token)
		if err := ctl.security().RecordMutation(ctx, "cli", "connect", opts.BaseURL, details); err != nil {
			ctl.logger.Warn("failed to audit connect", "error", err)
		}

		green := color.New(color.FgGreen)
		green.Print("  ✓ ")
		fmt.Printf("Gateway: %s\n", opts.BaseURL)
		if exp, ok := connection.TokenExpiry(opts.Token); ok {
			green.Print("  ✓ ")
			fmt.Printf("Token expires %s\n", ago(exp))
		}

		if !connectVerify {
			return nil
		}
		status, err := ctl.client.GetStatus(ctx)
		if err != nil {
			return err
		}
		green.Print("  ✓ ")
		fmt.Printf("Connected to %s gateway v%s\n", status.Environment, status.Version)
		return nil
	},
}

func init() {
	connectCmd.Flags().StringVar(&connectURL, "url", "", "gateway base URL")
	connectCmd.Flags().StringVar(&connectToken, "token", "", "gateway bearer token")
	connectCmd.Flags().StringVar(&connectSocketURL, "socket-url", "", "override the realtime socket URL")
	connectCmd.Flags().StringVar(&connectStreamURL, "stream-url", "", "override the realtime event stream URL")
	connectCmd.Flags().BoolVar(&connectClear, "clear-token", false, "forget the saved token")
	connectCmd.Flags().StringVar(&connectPin, "pin", "", "set the operator PIN used to reveal sensitive config")
	connectCmd.Flags().BoolVar(&connectVerify, "verify", true, "check the gateway status after saving")
}
