package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnv_ProcessEnvironment(t *testing.T) {
	t.Setenv("CLIQUEFS_LIVENESS_ADDR", ":9999")
	t.Setenv("CLIQUEFS_RETRY_ATTEMPTS", "9")
	t.Setenv("CLIQUEFS_OPERATION_TIMEOUT", "250ms")

	cfg := defaults()
	parseEnv(cfg, filepath.Join(t.TempDir(), "absent.env"))

	assert.Equal(t, ":9999", cfg.LivenessAddr)
	assert.Equal(t, 9, cfg.RetryAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.OperationTimeout)
	assert.Equal(t, ":50051", cfg.EndpointAddrGRPC)
}

func TestParseEnv_DotenvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("CLIQUEFS_EVENTS_QUEUE=from-file\nCLIQUEFS_SECRET_KEY=from-file\n"), 0o600))

	// godotenv.Load never overrides variables that are already set;
	// registering both through t.Setenv restores them after the test.
	t.Setenv("CLIQUEFS_SECRET_KEY", "from-process")
	t.Setenv("CLIQUEFS_EVENTS_QUEUE", "")
	require.NoError(t, os.Unsetenv("CLIQUEFS_EVENTS_QUEUE"))

	cfg := defaults()
	parseEnv(cfg, path)

	assert.Equal(t, "from-file", cfg.EventsQueue)
	assert.Equal(t, "from-process", cfg.SecretKey)
}

func TestParseEnv_MalformedValuePanics(t *testing.T) {
	t.Setenv("CLIQUEFS_MAX_OPEN_CONNS", "many")

	require.Panics(t, func() { parseEnv(defaults(), filepath.Join(t.TempDir(), "absent.env")) })
}
