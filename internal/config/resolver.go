package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"slices"
	"strings"

	"github.com/alecthomas/kingpin/v2"
)

const (
	defaultAppName = "dais"
	defaultAppHelp = "Dais desktop application - local sidecar runtime"
)

var (
	unknownFlagPattern  = regexp.MustCompile(`^unknown (?:long|short) flag '(.+)'$`)
	unexpectedPattern   = regexp.MustCompile(`^unexpected (?:argument '(.*)'|(.*))$`)
	missingValuePattern = regexp.MustCompile(`^expected argument for flag '(.+)'$`)
	repeatedFlagPattern = regexp.MustCompile(`^flag '(.+)' cannot be repeated$`)
)

func init() {
	// @file argument expansion would make resolution read arbitrary files.
	kingpin.EnableFileExpansion = false
}

// Resolver turns a process argument list into a Config. A Resolver keeps no
// state between calls: resolving the same inputs twice yields equal values.
type Resolver struct {
	name      string
	help      string
	version   string
	usage     io.Writer
	lookupEnv func(string) (string, bool)
	readFile  func(string) ([]byte, error)
	required  []string
}

// ResolverOption configures NewResolver.
type ResolverOption func(*Resolver)

// WithName sets the application name used in usage output and environment
// variable prefixes.
func WithName(name string) ResolverOption {
	return func(r *Resolver) {
		r.name = name
	}
}

// WithVersion adds a --version flag printing version.
func WithVersion(version string) ResolverOption {
	return func(r *Resolver) {
		r.version = version
	}
}

// WithUsageWriter sets the destination of --help and --version output.
func WithUsageWriter(w io.Writer) ResolverOption {
	return func(r *Resolver) {
		r.usage = w
	}
}

// WithEnv enables the environment layer. Variables are named
// <NAME>_<OPTION>, e.g. DAIS_LOG_LEVEL.
func WithEnv(lookup func(string) (string, bool)) ResolverOption {
	return func(r *Resolver) {
		r.lookupEnv = lookup
	}
}

// WithReadFile overrides how the --config file is read (primarily for tests).
func WithReadFile(readFile func(string) ([]byte, error)) ResolverOption {
	return func(r *Resolver) {
		r.readFile = readFile
	}
}

// WithRequired marks options that must be supplied by a flag, the config file
// or the environment.
func WithRequired(names ...string) ResolverOption {
	return func(r *Resolver) {
		r.required = append(r.required, names...)
	}
}

// NewResolver creates a Resolver. Without options it only reads the argument
// list and discards help output.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		name:     defaultAppName,
		help:     defaultAppHelp,
		usage:    io.Discard,
		readFile: os.ReadFile,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Name returns the application name.
func (r *Resolver) Name() string {
	return r.name
}

// Resolve validates args against the option schema and returns the resulting
// Config. Precedence: flags > config file > environment > defaults.
//
// Failures are reported as *UnknownOptionError, *MissingRequiredOptionError or
// *InvalidValueError; ErrHelpRequested signals --help or --version. On any
// error the returned Config is the zero value.
func (r *Resolver) Resolve(args []string) (Config, error) {
	options := schema()
	index := make(map[string]*option, len(options))
	for i := range options {
		index[options[i].name] = &options[i]
	}
	for _, name := range r.required {
		if _, ok := index[name]; !ok {
			return Config{}, &UnknownOptionError{Name: name, Source: "required options"}
		}
	}

	flags, err := r.parseFlags(args, options)
	if err != nil {
		return Config{}, err
	}

	env := r.envLayer(options)
	layers := []layer{env}

	path, fromFlag := flags.values[configOptionName]
	if !fromFlag {
		path = env.values[configOptionName]
	}
	if path = strings.TrimSpace(path); path != "" {
		file, err := r.fileLayer(path, index)
		if err != nil {
			return Config{}, err
		}
		layers = append(layers, file)
	}
	layers = append(layers, flags)

	cfg := Default()
	supplied := make(map[string]bool, len(options))
	for _, l := range layers {
		for _, opt := range options {
			raw, ok := l.values[opt.name]
			if !ok {
				continue
			}
			if err := opt.set(&cfg, raw); err != nil {
				return Config{}, &InvalidValueError{
					Name:     opt.name,
					Value:    raw,
					Expected: opt.expected,
					Source:   l.source(opt.name),
					Err:      err,
				}
			}
			supplied[opt.name] = true
		}
	}

	for _, name := range r.required {
		if !supplied[name] {
			return Config{}, &MissingRequiredOptionError{Name: name}
		}
	}

	return cfg, nil
}

func (r *Resolver) parseFlags(args []string, options []option) (layer, error) {
	flags := layer{
		values: make(map[string]string, len(options)),
		source: func(name string) string { return "flag --" + name },
	}

	exited := false
	app := kingpin.New(r.name, r.help)
	app.UsageWriter(r.usage)
	app.ErrorWriter(io.Discard)
	app.Terminate(func(int) { exited = true })
	app.HelpFlag.Short('h')
	if r.version != "" {
		app.Version(r.version)
	}

	defaults := Default()
	byToken := make(map[string]*option, 2*len(options))
	for i := range options {
		opt := &options[i]
		flag := app.Flag(opt.name, opt.help)
		byToken["--"+opt.name] = opt
		if opt.short != 0 {
			flag.Short(opt.short)
			byToken["-"+string(opt.short)] = opt
		}
		if !opt.boolean {
			placeholder := opt.placeholder
			if placeholder == "" {
				placeholder = opt.get(defaults)
			}
			flag.PlaceHolder(placeholder)
		}
		flag.SetValue(&flagValue{option: opt, layer: flags})
	}

	args, err := attachBoolValues(args, byToken)
	if err != nil {
		return layer{}, err
	}

	_, err = app.Parse(args)
	if exited {
		return layer{}, ErrHelpRequested
	}
	if err != nil {
		return layer{}, classifyParseError(err, args, byToken)
	}
	return flags, nil
}

// attachBoolValues rewrites --name=value and --no-name=value for boolean
// options into --name or --no-name. kingpin never passes an attached value to
// a boolean flag and would report it as a stray argument instead.
func attachBoolValues(args []string, byToken map[string]*option) ([]string, error) {
	var out []string
	for i, arg := range args {
		if arg == "--" {
			break
		}
		token, raw, ok := strings.Cut(arg, "=")
		if !ok || !strings.HasPrefix(token, "--") {
			continue
		}
		negated := false
		opt, known := byToken[token]
		if !known {
			opt, known = byToken["--"+strings.TrimPrefix(token, "--no-")]
			negated = known
		}
		if !known || !opt.boolean {
			continue
		}

		var scratch Config
		if err := opt.set(&scratch, raw); err != nil {
			return nil, &InvalidValueError{
				Name:     opt.name,
				Value:    raw,
				Expected: opt.expected,
				Source:   "flag --" + opt.name,
				Err:      err,
			}
		}
		enabled := opt.get(scratch) == "true"
		if negated {
			enabled = !enabled
		}

		if out == nil {
			out = slices.Clone(args)
		}
		if enabled {
			out[i] = "--" + opt.name
		} else {
			out[i] = "--no-" + opt.name
		}
	}
	if out == nil {
		return args, nil
	}
	return out, nil
}

// classifyParseError maps kingpin's parse failures onto the resolver's error
// types. Unrecognised failures are wrapped as they are.
func classifyParseError(err error, args []string, byToken map[string]*option) error {
	var invalid *InvalidValueError
	if errors.As(err, &invalid) {
		return invalid
	}

	msg := err.Error()
	if m := unknownFlagPattern.FindStringSubmatch(msg); m != nil {
		return &UnknownOptionError{Name: m[1]}
	}
	if m := unexpectedPattern.FindStringSubmatch(msg); m != nil {
		name := m[1]
		if name == "" {
			name = m[2]
		}
		return &UnknownOptionError{Name: name}
	}
	if m := missingValuePattern.FindStringSubmatch(msg); m != nil {
		if opt, ok := byToken[m[1]]; ok {
			invalid := &InvalidValueError{
				Name:     opt.name,
				Expected: opt.expected,
				Source:   "flag " + m[1],
				Err:      errors.New("flag given without a value"),
			}
			if raw, ok := dashedValue(args, m[1]); ok {
				invalid.Value = raw
				invalid.Err = fmt.Errorf("value %q is read as a flag, pass it as --%s=%s", raw, opt.name, raw)
			}
			return invalid
		}
	}
	if m := repeatedFlagPattern.FindStringSubmatch(msg); m != nil {
		if opt, ok := byToken["--"+m[1]]; ok {
			return &InvalidValueError{
				Name:     opt.name,
				Expected: "a single occurrence of " + opt.expected,
				Source:   "flag --" + opt.name,
				Err:      errors.New("flag given more than once"),
			}
		}
	}
	return fmt.Errorf("parse arguments: %w", err)
}

// dashedValue finds the token following flag when it starts with a dash.
// kingpin lexes such a token as a flag, leaving the flag without a value.
func dashedValue(args []string, flag string) (string, bool) {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == "--" {
			break
		}
		next := args[i+1]
		if args[i] == flag && next != "--" && strings.HasPrefix(next, "-") {
			return next, true
		}
	}
	return "", false
}

// flagValue adapts an option to kingpin.Value. Values are validated as they
// are parsed and recorded raw, to be applied in precedence order later.
type flagValue struct {
	option  *option
	layer   layer
	scratch Config
}

func (v *flagValue) Set(raw string) error {
	if err := v.option.set(&v.scratch, raw); err != nil {
		return &InvalidValueError{
			Name:     v.option.name,
			Value:    raw,
			Expected: v.option.expected,
			Source:   v.layer.source(v.option.name),
			Err:      err,
		}
	}
	v.layer.values[v.option.name] = raw
	return nil
}

func (v *flagValue) String() string {
	return v.layer.values[v.option.name]
}

func (v *flagValue) IsBoolFlag() bool {
	return v.option.boolean
}
