// Package config resolves the process argument list into an immutable Config.
// Values come from command-line flags, an optional YAML file named by --config
// and, when enabled, DAIS_* environment variables, with precedence: flags >
// config file > environment > defaults. Every failure is reported as a typed
// error naming the offending option.
package config
