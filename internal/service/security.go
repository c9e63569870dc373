// ABOUTME: Re-authentication for sensitive actions, secret redaction, mutation audit
// ABOUTME: and RSA signature checks for update packages.

package service

import (
	"context"
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/subtle"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/2389/coven-control/internal/fault"
	"github.com/2389/coven-control/internal/reliability"
	"github.com/2389/coven-control/internal/store"
)

// OperatorActor is the audit actor for interactive actions.
const OperatorActor = "operator"

var secretPattern = regexp.MustCompile(`(?i)\b(token|password|secret)=([^\s;,&]+)`)

// RedactSecrets masks token=, password= and secret= values.
func RedactSecrets(s string) string {
	return secretPattern.ReplaceAllString(s, "$1=***")
}

// Security guards sensitive operations.
type Security struct {
	audit    store.AuditTrail
	secrets  store.SecretStore
	governor *reliability.Governor
	logger   *slog.Logger
}

// NewSecurity creates a Security service. logger may be nil.
func NewSecurity(audit store.AuditTrail, secrets store.SecretStore, governor *reliability.Governor, logger *slog.Logger) *Security {
	if logger == nil {
		logger = slog.Default()
	}
	return &Security{
		audit:    audit,
		secrets:  secrets,
		governor: governor,
		logger:   logger.With("component", "security"),
	}
}

// RequireReauth checks provided against the stored secret secretName.
// Each promptID may be answered once; a second answer is a validation
// error. The outcome is audited either way.
func (s *Security) RequireReauth(ctx context.Context, promptID, secretName, provided string) (bool, error) {
	key := "reauth:" + promptID
	if !s.governor.TryRegisterIdempotencyKey(key) {
		return false, fault.Validation(fmt.Sprintf("reauth prompt %s was already answered", promptID))
	}

	stored, ok, err := s.secrets.RetrieveSecret(ctx, secretName)
	if err != nil {
		s.governor.ReleaseIdempotencyKey(key)
		return false, fmt.Errorf("reading secret %s: %w", secretName, err)
	}

	passed := ok && subtle.ConstantTimeCompare([]byte(stored), []byte(provided)) == 1
	outcome := "failed"
	if passed {
		outcome = "passed"
	}
	if err := s.audit.RecordMutation(ctx, OperatorActor, "reauth", secretName, outcome); err != nil {
		return false, fmt.Errorf("auditing reauth: %w", err)
	}
	if !passed {
		s.logger.Warn("reauth failed", "secret", secretName, "prompt", promptID)
	}
	return passed, nil
}

// RecordMutation audits a mutation with secrets redacted from details.
func (s *Security) RecordMutation(ctx context.Context, actor, action, target, details string) error {
	return s.audit.RecordMutation(ctx, actor, action, target, RedactSecrets(details))
}

// VerifySignedUpdate checks an RSA PKCS#1 v1.5 SHA-256 signature of payload
// against a PEM public key. A well-formed key that does not match the
// signature reports false with a nil error; an unusable key is a
// validation error.
func (s *Security) VerifySignedUpdate(payload, sig []byte, publicKeyPEM string) (bool, error) {
	pub, err := parseRSAPublicKey(publicKeyPEM)
	if err != nil {
		return false, err
	}
	digest := sha256.Sum256(payload)
	if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], sig); err != nil {
		if errors.Is(err, rsa.ErrVerification) {
			s.logger.Warn("update signature mismatch", "payload_bytes", len(payload))
			return false, nil
		}
		return false, fmt.Errorf("verifying update signature: %w", err)
	}
	return true, nil
}

// parseRSAPublicKey accepts SubjectPublicKeyInfo ("PUBLIC KEY") and
// PKCS#1 ("RSA PUBLIC KEY") blocks.
func parseRSAPublicKey(publicKeyPEM string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(publicKeyPEM))
	if block == nil {
		return nil, fault.Validation("public key is not PEM encoded")
	}
	switch block.Type {
	case "RSA PUBLIC KEY":
		pub, err := x509.ParsePKCS1PublicKey(block.Bytes)
		if err != nil {
			return nil, fault.Validation(fmt.Sprintf("parsing RSA public key: %v", err))
		}
		return pub, nil
	case "PUBLIC KEY":
		key, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, fault.Validation(fmt.Sprintf("parsing public key: %v", err))
		}
		pub, ok := key.(*rsa.PublicKey)
		if !ok {
			return nil, fault.Validation(fmt.Sprintf("public key is %T, want RSA", key))
		}
		return pub, nil
	default:
		return nil, fault.Validation(fmt.Sprintf("unsupported PEM block %q", block.Type))
	}
}
