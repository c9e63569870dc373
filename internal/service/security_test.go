package service

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-control/internal/fault"
	"github.com/2389/coven-control/internal/reliability"
	"github.com/2389/coven-control/internal/store"
)

func newTestSecurity(t *testing.T) (*Security, *store.MockStore) {
	t.Helper()
	ms := store.NewMockStore()
	g := reliability.NewGovernor()
	t.Cleanup(g.Close)
	return NewSecurity(ms, ms, g, nil), ms
}

func TestRequireReauth(t *testing.T) {
	sec, ms := newTestSecurity(t)
	ctx := context.Background()
	require.NoError(t, ms.StoreSecret(ctx, "operator.pin", "4242"))

	ok, err := sec.RequireReauth(ctx, "prompt-1", "operator.pin", "4242")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = sec.RequireReauth(ctx, "prompt-2", "operator.pin", "0000")
	require.NoError(t, err)
	assert.False(t, ok)

	audit, err := ms.ListAudit(ctx, 10)
	require.NoError(t, err)
	require.Len(t, audit, 2)
	assert.Equal(t, "failed", audit[0].Details)
	assert.Equal(t, "passed", audit[1].Details)
	assert.Equal(t, OperatorActor, audit[1].Actor)
	assert.Equal(t, "reauth", audit[1].Action)
	assert.Equal(t, "operator.pin", audit[1].Target)
}

func TestRequireReauth_PromptAnsweredOnce(t *testing.T) {
	sec, ms := newTestSecurity(t)
	ctx := context.Background()
	require.NoError(t, ms.StoreSecret(ctx, "operator.pin", "4242"))

	_, err := sec.RequireReauth(ctx, "prompt-1", "operator.pin", "4242")
	require.NoError(t, err)

	ok, err := sec.RequireReauth(ctx, "prompt-1", "operator.pin", "4242")
	assert.False(t, ok)
	assert.ErrorIs(t, err, fault.ErrValidation)
}

func TestRequireReauth_MissingSecretFails(t *testing.T) {
	sec, _ := newTestSecurity(t)

	ok, err := sec.RequireReauth(context.Background(), "prompt-1", "absent", "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRequireReauth_StoreErrorReleasesPrompt(t *testing.T) {
	sec, ms := newTestSecurity(t)
	ctx := context.Background()
	require.NoError(t, ms.StoreSecret(ctx, "operator.pin", "4242"))

	ms.Fail = errors.New("locked")
	_, err := sec.RequireReauth(ctx, "prompt-1", "operator.pin", "4242")
	require.Error(t, err)

	ms.Fail = nil
	ok, err := sec.RequireReauth(ctx, "prompt-1", "operator.pin", "4242")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedactSecrets(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"token=abc123", "token=***"},
		{"user=bob password=hunter2;next", "user=bob password=***;next"},
		{"SECRET=x&token=y", "SECRET=***&token=***"},
		{"mytoken=abc", "mytoken=abc"},
		{"", ""},
		{"no secrets here", "no secrets here"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, RedactSecrets(tt.in))
		})
	}
}

func TestSecurity_RecordMutationRedacts(t *testing.T) {
	sec, ms := newTestSecurity(t)
	ctx := context.Background()

	require.NoError(t, sec.RecordMutation(ctx, "cli", "connect", "gateway", "base=http://gw token=s3cr3t"))
	audit, err := ms.ListAudit(ctx, 1)
	require.NoError(t, err)
	require.Len(t, audit, 1)
	assert.Equal(t, "base=http://gw token=***", audit[0].Details)
}

func signedUpdate(t *testing.T, payload []byte) (*rsa.PrivateKey, []byte) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	digest := sha256.Sum256(payload)
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
	require.NoError(t, err)
	return key, sig
}

func pkixPEM(t *testing.T, pub any) string {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(pub)
	require.NoError(t, err)
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
}

func TestVerifySignedUpdate(t *testing.T) {
	sec, _ := newTestSecurity(t)
	payload := []byte("coven-control 1.4.0")
	key, sig := signedUpdate(t, payload)
	pkcs1 := string(pem.EncodeToMemory(&pem.Block{Type: "RSA PUBLIC KEY", Bytes: x509.MarshalPKCS1PublicKey(&key.PublicKey)}))

	for name, keyPEM := range map[string]string{"pkix": pkixPEM(t, &key.PublicKey), "pkcs1": pkcs1} {
		t.Run(name, func(t *testing.T) {
			ok, err := sec.VerifySignedUpdate(payload, sig, keyPEM)
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = sec.VerifySignedUpdate([]byte("coven-control 1.4.1"), sig, keyPEM)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestVerifySignedUpdate_WrongKeyOrTruncatedSignature(t *testing.T) {
	sec, _ := newTestSecurity(t)
	payload := []byte("bundle")
	_, sig := signedUpdate(t, payload)
	other, _ := signedUpdate(t, payload)
	otherPEM := pkixPEM(t, &other.PublicKey)

	ok, err := sec.VerifySignedUpdate(payload, sig, otherPEM)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = sec.VerifySignedUpdate(payload, sig[:10], otherPEM)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifySignedUpdate_UnusableKey(t *testing.T) {
	sec, _ := newTestSecurity(t)
	ec, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	keys := map[string]string{
		"not pem":     "ssh-rsa AAAA",
		"wrong block": string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: []byte{1}})),
		"garbage der": string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: []byte{1, 2, 3}})),
		"ecdsa key":   pkixPEM(t, &ec.PublicKey),
	}
	for name, keyPEM := range keys {
		t.Run(name, func(t *testing.T) {
			ok, err := sec.VerifySignedUpdate([]byte("x"), []byte("sig"), keyPEM)
			assert.False(t, ok)
			assert.ErrorIs(t, err, fault.ErrValidation)
		})
	}
}
