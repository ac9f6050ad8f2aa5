package config

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
)

const configOptionName = "config"

var (
	errEmpty    = errors.New("value must not be empty")
	errNegative = errors.New("value must not be negative")
)

// option describes one named, typed setting of the schema. set parses raw and
// stores it into cfg; get renders the current value in a form set accepts.
type option struct {
	name        string
	short       rune
	help        string
	expected    string
	placeholder string
	boolean     bool
	set         func(cfg *Config, raw string) error
	get         func(cfg Config) string
}

func schema() []option {
	return []option{
		stringOption("host", "Interface the sidecar server binds to.", false,
			func(c *Config) *string { return &c.Host }),
		withShort('p', intOption("port", "TCP port exposed by the sidecar server (0 picks a free port).", 0, 65535,
			func(c *Config) *int { return &c.Port })),
		enumOption("log-level", "Minimum log level.", []string{"debug", "info", "warn", "error"},
			func(c *Config) *string { return &c.LogLevel }),
		enumOption("log-format", "Log encoding.", []string{"json", "console"},
			func(c *Config) *string { return &c.LogFormat }),
		durationOption("shutdown-grace", "Time allowed for in-flight requests on shutdown.",
			func(c *Config) *time.Duration { return &c.ShutdownGracePeriod }),
		durationOption("read-header-timeout", "Maximum time to read request headers.",
			func(c *Config) *time.Duration { return &c.ReadHeaderTimeout }),
		durationOption("write-timeout", "Maximum time to write a response.",
			func(c *Config) *time.Duration { return &c.WriteTimeout }),
		durationOption("idle-timeout", "Maximum keep-alive idle time.",
			func(c *Config) *time.Duration { return &c.IdleTimeout }),
		boolOption("request-logging", "Emit an access log line per request.",
			func(c *Config) *bool { return &c.EnableRequestLogging }),
		floatOption("rate-limit-rps", "Requests per second allowed (0 disables the limiter).",
			func(c *Config) *float64 { return &c.RateLimitRPS }),
		intOption("rate-limit-burst", "Burst capacity of the rate limiter (0 disables the limiter).", 0, math.MaxInt32,
			func(c *Config) *int { return &c.RateLimitBurst }),
		withPlaceholder("FILE", withShort('c', stringOption(configOptionName, "Path to a YAML file with option values.", true,
			func(c *Config) *string { return &c.ConfigFile }))),
	}
}

func withShort(short rune, opt option) option {
	opt.short = short
	return opt
}

func withPlaceholder(placeholder string, opt option) option {
	opt.placeholder = placeholder
	return opt
}

func stringOption(name, help string, allowEmpty bool, field func(*Config) *string) option {
	expected := "non-empty string"
	if allowEmpty {
		expected = "string"
	}
	return option{
		name:     name,
		help:     help,
		expected: expected,
		set: func(cfg *Config, raw string) error {
			value := strings.TrimSpace(raw)
			if value == "" && !allowEmpty {
				return errEmpty
			}
			*field(cfg) = value
			return nil
		},
		get: func(cfg Config) string { return *field(&cfg) },
	}
}

func intOption(name, help string, lo, hi int, field func(*Config) *int) option {
	return option{
		name:     name,
		help:     help,
		expected: fmt.Sprintf("integer in [%d, %d]", lo, hi),
		set: func(cfg *Config, raw string) error {
			value, err := strconv.Atoi(strings.TrimSpace(raw))
			if err != nil {
				return err
			}
			if value < lo || value > hi {
				return fmt.Errorf("%d is out of range", value)
			}
			*field(cfg) = value
			return nil
		},
		get: func(cfg Config) string { return strconv.Itoa(*field(&cfg)) },
	}
}

func floatOption(name, help string, field func(*Config) *float64) option {
	return option{
		name:     name,
		help:     help,
		expected: "non-negative number",
		set: func(cfg *Config, raw string) error {
			value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if err != nil {
				return err
			}
			if math.IsNaN(value) || math.IsInf(value, 0) {
				return fmt.Errorf("%v is not a finite number", value)
			}
			if value < 0 {
				return errNegative
			}
			*field(cfg) = value
			return nil
		},
		get: func(cfg Config) string { return strconv.FormatFloat(*field(&cfg), 'g', -1, 64) },
	}
}

func durationOption(name, help string, field func(*Config) *time.Duration) option {
	return option{
		name:     name,
		help:     help,
		expected: "non-negative duration such as 10s or 1m30s",
		set: func(cfg *Config, raw string) error {
			value, err := time.ParseDuration(strings.TrimSpace(raw))
			if err != nil {
				return err
			}
			if value < 0 {
				return errNegative
			}
			*field(cfg) = value
			return nil
		},
		get: func(cfg Config) string { return field(&cfg).String() },
	}
}

func boolOption(name, help string, field func(*Config) *bool) option {
	return option{
		name:     name,
		help:     help,
		expected: "boolean",
		boolean:  true,
		set: func(cfg *Config, raw string) error {
			value, err := strconv.ParseBool(strings.TrimSpace(raw))
			if err != nil {
				return err
			}
			*field(cfg) = value
			return nil
		},
		get: func(cfg Config) string { return strconv.FormatBool(*field(&cfg)) },
	}
}

func enumOption(name, help string, values []string, field func(*Config) *string) option {
	return option{
		name:     name,
		help:     help,
		expected: "one of " + strings.Join(values, ", "),
		set: func(cfg *Config, raw string) error {
			value := strings.ToLower(strings.TrimSpace(raw))
			if !slices.Contains(values, value) {
				return fmt.Errorf("%q is not a recognised value", raw)
			}
			*field(cfg) = value
			return nil
		},
		get: func(cfg Config) string { return *field(&cfg) },
	}
}
