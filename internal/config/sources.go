package config

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// layer holds raw option values supplied by one source, keyed by option name.
type layer struct {
	values map[string]string
	source func(name string) string
}

func (r *Resolver) envLayer(options []option) layer {
	l := layer{
		values: make(map[string]string),
		source: func(name string) string { return "environment variable " + r.envVar(name) },
	}
	if r.lookupEnv == nil {
		return l
	}
	for _, opt := range options {
		raw, ok := r.lookupEnv(r.envVar(opt.name))
		if !ok || strings.TrimSpace(raw) == "" {
			continue
		}
		l.values[opt.name] = raw
	}
	return l
}

// fileLayer reads a YAML mapping of option names to scalar values. Keys may
// use dashes or underscores.
func (r *Resolver) fileLayer(path string, index map[string]*option) (layer, error) {
	source := "config file " + path
	l := layer{
		values: make(map[string]string),
		source: func(string) string { return source },
	}

	invalidFile := func(err error) error {
		return &InvalidValueError{
			Name:     configOptionName,
			Value:    path,
			Expected: "readable YAML mapping of option names to values",
			Err:      err,
		}
	}

	data, err := r.readFile(path)
	if err != nil {
		return layer{}, invalidFile(err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return layer{}, invalidFile(err)
	}
	if len(doc.Content) == 0 {
		return l, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return layer{}, invalidFile(errors.New("top-level value is not a mapping"))
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]
		name := strings.ReplaceAll(strings.TrimSpace(key.Value), "_", "-")
		opt, ok := index[name]
		if !ok {
			return layer{}, &UnknownOptionError{Name: key.Value, Source: source}
		}
		if name == configOptionName {
			return layer{}, &InvalidValueError{
				Name:     opt.name,
				Value:    value.Value,
				Expected: "no config key inside a config file",
				Source:   source,
				Err:      errors.New("config files cannot name another config file"),
			}
		}
		if _, seen := l.values[opt.name]; seen {
			return layer{}, &InvalidValueError{
				Name:     opt.name,
				Value:    value.Value,
				Expected: "a single occurrence of " + opt.expected,
				Source:   source,
				Err:      fmt.Errorf("key %q repeats option %s (line %d)", key.Value, opt.name, key.Line),
			}
		}
		if value.Kind != yaml.ScalarNode {
			return layer{}, &InvalidValueError{
				Name:     opt.name,
				Expected: opt.expected,
				Source:   source,
				Err:      errors.New("value is not a scalar"),
			}
		}
		l.values[opt.name] = value.Value
	}
	return l, nil
}

// envVar returns the environment variable for an option, e.g. DAIS_LOG_LEVEL.
func (r *Resolver) envVar(name string) string {
	return envName(r.name) + "_" + envName(name)
}

func envName(name string) string {
	return strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}
