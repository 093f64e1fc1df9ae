package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/cliquefs/internal/flagx"
	"github.com/dmitrijs2005/cliquefs/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Duration
// fields accept "1s" style strings or integer nanoseconds. Absent keys leave
// the corresponding Config field untouched.
type JsonConfig struct {
	LivenessAddr                *string         `json:"liveness_addr"`
	EndpointAddrGRPC            *string         `json:"endpoint_addr_grpc"`
	DatabaseDSN                 *string         `json:"database_dsn"`
	MaxOpenConns                *int            `json:"max_open_conns"`
	MaxIdleConns                *int            `json:"max_idle_conns"`
	ConnMaxLifetime             *timex.Duration `json:"conn_max_lifetime"`
	OperationTimeout            *timex.Duration `json:"operation_timeout"`
	RetryAttempts               *int            `json:"retry_attempts"`
	RetryBaseDelay              *timex.Duration `json:"retry_base_delay"`
	SecretKey                   *string         `json:"secret_key"`
	AccessTokenValidityDuration *timex.Duration `json:"access_token_validity_duration"`
	RedisAddr                   *string         `json:"redis_addr"`
	VerifyAttemptLimit          *int            `json:"verify_attempt_limit"`
	VerifyAttemptWindow         *timex.Duration `json:"verify_attempt_window"`
	AMQPURL                     *string         `json:"amqp_url"`
	EventsQueue                 *string         `json:"events_queue"`
}

// parseJson overlays the JSON file named by -c/-config onto config. No flag
// means no file. An unreadable or invalid file panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.ConfigFile()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	set(&config.LivenessAddr, c.LivenessAddr)
	set(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	set(&config.DatabaseDSN, c.DatabaseDSN)
	set(&config.MaxOpenConns, c.MaxOpenConns)
	set(&config.MaxIdleConns, c.MaxIdleConns)
	setDuration(&config.ConnMaxLifetime, c.ConnMaxLifetime)
	setDuration(&config.OperationTimeout, c.OperationTimeout)
	set(&config.RetryAttempts, c.RetryAttempts)
	setDuration(&config.RetryBaseDelay, c.RetryBaseDelay)
	set(&config.SecretKey, c.SecretKey)
	setDuration(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration)
	set(&config.RedisAddr, c.RedisAddr)
	set(&config.VerifyAttemptLimit, c.VerifyAttemptLimit)
	setDuration(&config.VerifyAttemptWindow, c.VerifyAttemptWindow)
	set(&config.AMQPURL, c.AMQPURL)
	set(&config.EventsQueue, c.EventsQueue)
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
