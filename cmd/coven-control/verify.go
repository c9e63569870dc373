// ABOUTME: verify-update command: check an update package against its detached RSA signature
// ABOUTME: Exits non-zero when the signature does not match the payload

package main

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	verifyPayload   string
	verifySignature string
	verifyPublicKey string
)

var errSignatureMismatch = errors.New("update signature does not match")

type verifyReport struct {
	Payload string `json:"payload"`
	SHA256  string `json:"sha256"`
	Valid   bool   `json:"valid"`
}

var verifyUpdateCmd = &cobra.Command{
	Use:     "verify-update",
	Short:   "Verify a signed update package",
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, err := os.ReadFile(verifyPayload)
		if err != nil {
			return fmt.Errorf("reading payload: %w", err)
		}
		sig, err := os.ReadFile(verifySignature)
		if err != nil {
			return fmt.Errorf("reading signature: %w", err)
		}
		keyPEM, err := os.ReadFile(verifyPublicKey)
		if err != nil {
			return fmt.Errorf("reading public key: %w", err)
		}

		sec := ctl.security()
		valid, err := sec.VerifySignedUpdate(payload, sig, string(keyPEM))
		if err != nil {
			return err
		}

		sum := sha256.Sum256(payload)
		r := verifyReport{Payload: filepath.Base(verifyPayload), SHA256: hex.EncodeToString(sum[:]), Valid: valid}
		outcome := "valid"
		if !valid {
			outcome = "invalid"
		}
		if err := sec.RecordMutation(cmd.Context(), "cli", "verify-update", r.Payload, "sha256="+r.SHA256+" "+outcome); err != nil {
			ctl.logger.Warn("failed to audit update verification", "error", err)
		}

		if jsonOutput {
			if err := printJSON(r); err != nil {
				return err
			}
		} else if valid {
			color.New(color.FgGreen).Print("  ✓ ")
			fmt.Printf("%s signature valid (sha256 %s)\n", r.Payload, r.SHA256)
		}
		if !valid {
			return fmt.Errorf("%s: %w", r.Payload, errSignatureMismatch)
		}
		return nil
	},
}

func init() {
	verifyUpdateCmd.Flags().StringVar(&verifyPayload, "payload", "", "update package to check")
	verifyUpdateCmd.Flags().StringVar(&verifySignature, "signature", "", "detached binary signature (PKCS#1 v1.5, SHA-256)")
	verifyUpdateCmd.Flags().StringVar(&verifyPublicKey, "public-key", "", "PEM encoded RSA public key")
	_ = verifyUpdateCmd.MarkFlagRequired("payload")
	_ = verifyUpdateCmd.MarkFlagRequired("signature")
	_ = verifyUpdateCmd.MarkFlagRequired("public-key")
}
