// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

// Package config loads Warden configuration.
//
// Sources are layered, later ones overriding earlier ones:
//
//  1. Default()
//  2. a YAML file (--config, or $XDG_CONFIG_HOME/warden/config.yaml if present)
//  3. the legacy DATABASE_URL variable
//  4. WARDEN_* environment variables, with "__" separating sections
//     (WARDEN_TOKEN__SECRET sets token.secret)
//  5. command-line flags the user actually set
package config

import (
	"time"

	"github.com/wardenauth/warden/internal/auth"
	"github.com/wardenauth/warden/internal/delivery"
)

// Config is the full Warden configuration.
type Config struct {
	HTTP      HTTPConfig      `koanf:"http"`
	Metrics   MetricsConfig   `koanf:"metrics"`
	Log       LogConfig       `koanf:"log"`
	Database  DatabaseConfig  `koanf:"database"`
	Token     TokenConfig     `koanf:"token"`
	Hash      HashConfig      `koanf:"hash"`
	Reset     ResetConfig     `koanf:"reset"`
	Delivery  DeliveryConfig  `koanf:"delivery"`
	Superuser SuperuserConfig `koanf:"superuser"`
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Addr            string        `koanf:"addr" validate:"required"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

// MetricsConfig configures the observability server. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// LogConfig selects log output.
type LogConfig struct {
	Format string `koanf:"format" validate:"oneof=json text"`
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
}

// DatabaseConfig configures PostgreSQL access.
type DatabaseConfig struct {
	URL             string        `koanf:"url" validate:"required"`
	MaxConns        int32         `koanf:"max_conns" validate:"gte=0"`
	MinConns        int32         `koanf:"min_conns" validate:"gte=0"`
	MaxConnLifetime time.Duration `koanf:"max_conn_lifetime" validate:"gte=0"`
	MaxConnIdleTime time.Duration `koanf:"max_conn_idle_time" validate:"gte=0"`
	StoreTimeout    time.Duration `koanf:"store_timeout" validate:"gt=0"`
	AutoMigrate     bool          `koanf:"auto_migrate"`
}

// TokenConfig configures bearer tokens.
type TokenConfig struct {
	Secret    string        `koanf:"secret" validate:"required,min=16"`
	Algorithm string        `koanf:"algorithm" validate:"oneof=HS256 HS384 HS512"`
	TTL       time.Duration `koanf:"ttl" validate:"gt=0"`
	Issuer    string        `koanf:"issuer"`
}

// HashConfig selects the password hashing scheme. Hashes made by the other
// scheme still verify and are upgraded on the next login.
type HashConfig struct {
	Scheme     string       `koanf:"scheme" validate:"oneof=argon2id bcrypt"`
	BcryptCost int          `koanf:"bcrypt_cost" validate:"min=4,max=31"`
	Argon2id   Argon2Config `koanf:"argon2id"`
}

// Argon2Config tunes argon2id.
type Argon2Config struct {
	Time    uint32 `koanf:"time" validate:"gte=1"`
	Memory  uint32 `koanf:"memory" validate:"gte=1024"`
	Threads uint8  `koanf:"threads" validate:"gte=1"`
}

// ResetConfig configures the reset code flow.
type ResetConfig struct {
	// PurgeInterval is how often expired codes are deleted. Zero disables purging.
	PurgeInterval time.Duration `koanf:"purge_interval" validate:"gte=0"`
}

// DeliveryConfig selects how reset codes leave the process.
type DeliveryConfig struct {
	// Mode is "log", "smtp" or "amqp".
	Mode       string        `koanf:"mode" validate:"oneof=log smtp amqp"`
	QueueSize  int           `koanf:"queue_size" validate:"gt=0"`
	Workers    int           `koanf:"workers" validate:"gt=0"`
	Timeout    time.Duration `koanf:"timeout" validate:"gt=0"`
	MaxRetries uint64        `koanf:"max_retries"`
	RetryBase  time.Duration `koanf:"retry_base" validate:"gt=0"`
	SMTP       SMTPConfig    `koanf:"smtp"`
	AMQP       AMQPConfig    `koanf:"amqp"`
}

// SMTPConfig configures the mail server. Required for smtp mode and the relay.
type SMTPConfig struct {
	Host               string `koanf:"host"`
	Port               int    `koanf:"port" validate:"gte=0,lte=65535"`
	Username           string `koanf:"username"`
	Password           string `koanf:"password"`
	From               string `koanf:"from"`
	Subject            string `koanf:"subject"`
	InsecureSkipVerify bool   `koanf:"insecure_skip_verify"`
}

// AMQPConfig configures the broker. Required for amqp mode and the relay.
type AMQPConfig struct {
	URL      string `koanf:"url"`
	Queue    string `koanf:"queue" validate:"required"`
	Prefetch int    `koanf:"prefetch" validate:"gte=0"`
}

// SuperuserConfig is created at startup when both fields are set.
type SuperuserConfig struct {
	Username string `koanf:"username"`
	Password string `koanf:"password"`
}

// Default returns the built-in configuration. It lacks a database URL and a
// token secret, so it does not validate on its own.
func Default() Config {
	argon := auth.DefaultArgon2idParams()
	return Config{
		HTTP: HTTPConfig{
			Addr:            ":8000",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Metrics: MetricsConfig{Addr: "127.0.0.1:9100"},
		Log:     LogConfig{Format: "json", Level: "info"},
		Database: DatabaseConfig{
			MaxConns:        10,
			MinConns:        2,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: 30 * time.Minute,
			StoreTimeout:    auth.DefaultStoreTimeout,
			AutoMigrate:     true,
		},
		Token: TokenConfig{
			Algorithm: auth.DefaultTokenAlgorithm,
			TTL:       auth.DefaultTokenTTL,
		},
		Hash: HashConfig{
			Scheme:     "argon2id",
			BcryptCost: 10,
			Argon2id: Argon2Config{
				Time:    argon.Time,
				Memory:  argon.Memory,
				Threads: argon.Threads,
			},
		},
		Reset: ResetConfig{PurgeInterval: 10 * time.Minute},
		Delivery: DeliveryConfig{
			Mode:       "log",
			QueueSize:  delivery.DefaultQueueSize,
			Workers:    delivery.DefaultWorkers,
			Timeout:    delivery.DefaultTimeout,
			MaxRetries: delivery.DefaultMaxRetries,
			RetryBase:  delivery.DefaultRetryBase,
			SMTP: SMTPConfig{
				Port:    465,
				Subject: delivery.DefaultSubject,
			},
			AMQP: AMQPConfig{
				Queue:    delivery.DefaultQueue,
				Prefetch: 8,
			},
		},
	}
}
