package config

import (
	"flag"
	"os"
	"slices"
	"time"

	"github.com/dmitrijs2005/cliquefs/internal/flagx"
)

var serverFlags = []string{"-a", "-l", "-d", "-s", "-t", "-o", "-n", "-redis", "-amqp"}

// FlagNames lists every flag LoadConfig consumes, including -c/-config.
// Tools sharing os.Args with the config use it to find their own arguments.
func FlagNames() []string {
	return append(slices.Clone(serverFlags), "-c", "-config", "--config")
}

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags:
//
//	-a string     gRPC health bind address (e.g., ":50051")
//	-l string     liveness listener bind address (e.g., ":7070")
//	-d string     PostgreSQL DSN
//	-s string     JWT HMAC secret key
//	-t int        access token validity, minutes
//	-o duration   per-operation timeout
//	-n int        retry attempts for conflicting appends
//	-redis string Redis address for verification throttling
//	-amqp string  AMQP URL for relation events
//
// os.Args is filtered with flagx.FilterArgs first so flags owned by other
// layers (-c/-config) do not break parsing.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], serverFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "gRPC health address")
	fs.StringVar(&config.LivenessAddr, "l", config.LivenessAddr, "liveness listener address")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")

	fs.DurationVar(&config.OperationTimeout, "o", config.OperationTimeout, "per-operation timeout")
	fs.IntVar(&config.RetryAttempts, "n", config.RetryAttempts, "retry attempts for conflicting appends")
	fs.StringVar(&config.RedisAddr, "redis", config.RedisAddr, "redis address (empty disables throttling)")
	fs.StringVar(&config.AMQPURL, "amqp", config.AMQPURL, "AMQP URL (empty disables events)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
}
