package profile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestValidateDefaults(t *testing.T) {
	p := &Profile{DSN: "postgres://localhost/curio"}
	require.NoError(t, p.Validate())

	require.Equal(t, "dev", p.Mode)
	require.Equal(t, 8090, p.Port)
	require.Equal(t, 10, p.PoolSize)
	require.Equal(t, 2*time.Second, p.AcquireTimeout)
	require.Equal(t, "text-embedding-3-small", p.EmbeddingModel)
	require.Equal(t, p.DSN, p.VectorDSN, "vector DSN falls back to the relational DSN")
}

func TestValidateRequiresVectorDSN(t *testing.T) {
	p := &Profile{}
	require.Error(t, p.Validate())
}

func TestValidateKeepsExplicitValues(t *testing.T) {
	p := &Profile{
		Mode:      "prod",
		Port:      9000,
		DSN:       "postgres://a",
		VectorDSN: "postgres://b",
		PoolSize:  4,
	}
	require.NoError(t, p.Validate())

	require.Equal(t, "prod", p.Mode)
	require.False(t, p.IsDev())
	require.Equal(t, 9000, p.Port)
	require.Equal(t, 4, p.PoolSize)
	require.Equal(t, "postgres://b", p.VectorDSN)
}

func TestFromEnv(t *testing.T) {
	t.Setenv("CURIO_MODE", "prod")
	t.Setenv("CURIO_PORT", "9999")
	t.Setenv("CURIO_POOL_ACQUIRE_TIMEOUT", "500ms")

	p := &Profile{}
	p.FromEnv()

	require.Equal(t, "prod", p.Mode)
	require.Equal(t, 9999, p.Port)
	require.Equal(t, 500*time.Millisecond, p.AcquireTimeout)
}
