package backend

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFingerprintStableAndSensitiveToFields(t *testing.T) {
	a := Target{Provider: "azure-cosmos", Endpoint: "https://x", Database: "claude-mem", Container: "memory-records"}
	b := a

	fpA, err := Fingerprint(a)
	require.NoError(t, err)
	fpB, err := Fingerprint(b)
	require.NoError(t, err)
	require.Equal(t, fpA, fpB)

	b.Container = "other-container"
	fpB2, err := Fingerprint(b)
	require.NoError(t, err)
	require.NotEqual(t, fpA, fpB2)
}

func TestRegistryUnknownProvider(t *testing.T) {
	r := NewRegistry()
	_, err := r.Build(Config{Provider: "nope"})
	require.ErrorIs(t, err, ErrUnknownProvider)
}

func TestRegistryBuildsRegisteredProvider(t *testing.T) {
	r := NewRegistry()
	r.Register("fake", func(cfg Config) (Backend, error) {
		return NewMemoryBackend(cfg), nil
	})

	b, err := r.Build(Config{Provider: "fake", Endpoint: "e", Database: "d", Container: "c"})
	require.NoError(t, err)
	require.NotEmpty(t, b.TargetFingerprint())
}
