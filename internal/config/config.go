package config

import (
	"net"
	"strconv"
	"time"

	"go.uber.org/zap/zapcore"
)

const (
	defaultHost           = "localhost"
	defaultPort           = 1460
	defaultLogLevel       = "info"
	defaultLogFormat      = "json"
	defaultRateLimitRPS   = 25.0
	defaultRateLimitBurst = 50
)

// Config is the fully resolved startup configuration. It holds no reference
// types, so every copy is independent of the value it was copied from.
type Config struct {
	Host                 string
	Port                 int
	LogLevel             string
	LogFormat            string
	ShutdownGracePeriod  time.Duration
	ReadHeaderTimeout    time.Duration
	WriteTimeout         time.Duration
	IdleTimeout          time.Duration
	EnableRequestLogging bool
	RateLimitRPS         float64
	RateLimitBurst       int
	ConfigFile           string
}

// Default returns the configuration produced by resolving an empty argument list.
func Default() Config {
	return Config{
		Host:                 defaultHost,
		Port:                 defaultPort,
		LogLevel:             defaultLogLevel,
		LogFormat:            defaultLogFormat,
		ShutdownGracePeriod:  10 * time.Second,
		ReadHeaderTimeout:    5 * time.Second,
		WriteTimeout:         15 * time.Second,
		IdleTimeout:          60 * time.Second,
		EnableRequestLogging: true,
		RateLimitRPS:         defaultRateLimitRPS,
		RateLimitBurst:       defaultRateLimitBurst,
	}
}

// Addr returns the host:port pair the sidecar server listens on.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Args encodes the configuration as command-line arguments that resolve back
// to an equal value. The config file is omitted: its settings are already
// folded into the other fields.
func (c Config) Args() []string {
	options := schema()
	args := make([]string, 0, len(options))
	for _, opt := range options {
		if opt.name == configOptionName {
			continue
		}
		value := opt.get(c)
		if opt.boolean {
			if value == "true" {
				args = append(args, "--"+opt.name)
			} else {
				args = append(args, "--no-"+opt.name)
			}
			continue
		}
		args = append(args, "--"+opt.name+"="+value)
	}
	return args
}

// MarshalLogObject lets the configuration be logged with zap.Object.
func (c Config) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	for _, opt := range schema() {
		enc.AddString(opt.name, opt.get(c))
	}
	return nil
}
