package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerGenerateAndParse(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate("plan-1", "plans/plan-1/agreement.pdf")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.False(t, expiresAt.IsZero())

	owner, path, err := signer.Parse(token)
	require.NoError(t, err)
	require.Equal(t, "plan-1", owner)
	require.Equal(t, "plans/plan-1/agreement.pdf", path)
}

func TestSignedURLSignerExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	signer.now = func() time.Time { return base }
	token, _, err := signer.Generate("plan-1", "plans/file.pdf")
	require.NoError(t, err)

	signer.now = func() time.Time { return base.Add(2 * time.Minute) }
	_, _, err = signer.Parse(token)
	require.ErrorContains(t, err, "expired")
}

func TestSignedURLSignerTampered(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("plan-1", "plans/file.pdf")
	require.NoError(t, err)

	tampered := strings.Replace(token, "plan-1", "plan-2", 1)
	_, _, err = signer.Parse(tampered)
	require.ErrorContains(t, err, "signature")

	_, _, err = NewSignedURLSigner("other", time.Hour).Parse(token)
	require.Error(t, err)

	_, _, err = signer.Parse("not-a-token")
	require.Error(t, err)
}

func TestSignedURLSignerRequiresInputs(t *testing.T) {
	_, _, err := NewSignedURLSigner("secret", time.Hour).Generate("", "x")
	require.Error(t, err)
	_, _, err = NewSignedURLSigner("", time.Hour).Generate("plan-1", "x")
	require.Error(t, err)
}
