package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// parseEnv loads dotenvPath into the process environment when it exists and
// then applies CLIQUEFS_* variables. Variables already set in the
// environment win over the file. Malformed numbers or durations panic, the
// same way a broken JSON file does.
func parseEnv(config *Config, dotenvPath string) {
	if err := godotenv.Load(dotenvPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}

	envString(&config.LivenessAddr, "CLIQUEFS_LIVENESS_ADDR")
	envString(&config.EndpointAddrGRPC, "CLIQUEFS_GRPC_ADDR")
	envString(&config.DatabaseDSN, "CLIQUEFS_DATABASE_DSN")
	envInt(&config.MaxOpenConns, "CLIQUEFS_MAX_OPEN_CONNS")
	envInt(&config.MaxIdleConns, "CLIQUEFS_MAX_IDLE_CONNS")
	envDuration(&config.ConnMaxLifetime, "CLIQUEFS_CONN_MAX_LIFETIME")
	envDuration(&config.OperationTimeout, "CLIQUEFS_OPERATION_TIMEOUT")
	envInt(&config.RetryAttempts, "CLIQUEFS_RETRY_ATTEMPTS")
	envDuration(&config.RetryBaseDelay, "CLIQUEFS_RETRY_BASE_DELAY")
	envString(&config.SecretKey, "CLIQUEFS_SECRET_KEY")
	envDuration(&config.AccessTokenValidityDuration, "CLIQUEFS_ACCESS_TOKEN_VALIDITY")
	envString(&config.RedisAddr, "CLIQUEFS_REDIS_ADDR")
	envInt(&config.VerifyAttemptLimit, "CLIQUEFS_VERIFY_ATTEMPT_LIMIT")
	envDuration(&config.VerifyAttemptWindow, "CLIQUEFS_VERIFY_ATTEMPT_WINDOW")
	envString(&config.AMQPURL, "CLIQUEFS_AMQP_URL")
	envString(&config.EventsQueue, "CLIQUEFS_EVENTS_QUEUE")
}

func envString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func envInt(dst *int, key string) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		panic(err)
	}
	*dst = n
}

func envDuration(dst *time.Duration, key string) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		panic(err)
	}
	*dst = d
}
