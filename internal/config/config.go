// Package config loads layered settings: defaults, an optional YAML file,
// then APISCOPE_* environment variables.
package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	env "github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/mark3labs/apiscope/internal/endpoint"
)

// EnvPrefix prefixes environment overrides, e.g. APISCOPE_BASE_URL.
const EnvPrefix = "APISCOPE_"

// Config is the merged configuration.
type Config struct {
	Input       string        `koanf:"input"`
	BaseURL     string        `koanf:"baseURL"`
	Timeout     time.Duration `koanf:"timeout"`
	Retries     int           `koanf:"retries"`
	Strict      bool          `koanf:"strict"`
	BodyMethods []string      `koanf:"bodyMethods"`
	IncludeTags []string      `koanf:"includeTags"`
	ExcludeTags []string      `koanf:"excludeTags"`
	Concurrency int           `koanf:"concurrency"`
	Log         Log           `koanf:"log"`
}

type Log struct {
	Level  string `koanf:"level"`
	Pretty bool   `koanf:"pretty"`
}

// Error is a configuration problem the user can fix.
type Error struct {
	Path    string
	Key     string
	Message string
}

func (e *Error) Error() string {
	switch {
	case e.Path != "" && e.Key != "":
		return fmt.Sprintf("config file %q: field %q: %s", e.Path, e.Key, e.Message)
	case e.Path != "":
		return fmt.Sprintf("config file %q: %s", e.Path, e.Message)
	case e.Key != "":
		return fmt.Sprintf("config %q: %s", e.Key, e.Message)
	default:
		return "config: " + e.Message
	}
}

type keyKind int

const (
	kindString keyKind = iota
	kindList
	kindBool
	kindInt
	kindDuration
)

// keys maps normalized spellings to canonical keys.
var keys = map[string]struct {
	canonical string
	kind      keyKind
}{
	"input":       {"input", kindString},
	"baseurl":     {"baseURL", kindString},
	"timeout":     {"timeout", kindDuration},
	"retries":     {"retries", kindInt},
	"strict":      {"strict", kindBool},
	"bodymethods": {"bodyMethods", kindList},
	"includetags": {"includeTags", kindList},
	"excludetags": {"excludeTags", kindList},
	"concurrency": {"concurrency", kindInt},
	"log.level":   {"log.level", kindString},
	"log.pretty":  {"log.pretty", kindBool},
}

// Defaults returns the lowest configuration layer.
func Defaults() map[string]any {
	return map[string]any{
		"timeout":     "30s",
		"retries":     2,
		"strict":      false,
		"bodyMethods": []string{string(endpoint.POST)},
		"concurrency": 4,
		"log.level":   "info",
		"log.pretty":  false,
	}
}

// Load merges defaults, the YAML file at path (skipped when empty) and the
// environment. Unknown file keys are rejected.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}

	if path = strings.TrimSpace(path); path != "" {
		fk := koanf.New(".")
		if err := fk.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, &Error{Path: path, Message: err.Error()}
		}
		canon, err := canonicalize(fk.All())
		if err != nil {
			err.Path = path
			return nil, err
		}
		if err := k.Load(confmap.Provider(canon, "."), nil); err != nil {
			return nil, fmt.Errorf("config: merge %s: %w", path, err)
		}
	}

	var envErr *Error
	provider := env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, value string) (string, any) {
			name := strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
			name = strings.Replace(name, "log_", "log.", 1)
			spec, ok := keys[normalizeKey(name)]
			if !ok {
				return "", nil
			}
			v, err := coerce(spec.kind, value)
			if err != nil && envErr == nil {
				envErr = &Error{Key: key, Message: err.Error()}
			}
			return spec.canonical, v
		},
	})
	if err := k.Load(provider, nil); err != nil {
		return nil, fmt.Errorf("config: load environment: %w", err)
	}
	if envErr != nil {
		return nil, envErr
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, &Error{Message: err.Error()}
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func canonicalize(flat map[string]any) (map[string]any, *Error) {
	names := make([]string, 0, len(flat))
	for name := range flat {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make(map[string]any, len(flat))
	for _, name := range names {
		spec, ok := keys[normalizeKey(name)]
		if !ok {
			return nil, &Error{Key: name, Message: "unknown field"}
		}
		v, err := coerceValue(spec.kind, flat[name])
		if err != nil {
			return nil, &Error{Key: name, Message: err.Error()}
		}
		out[spec.canonical] = v
	}
	return out, nil
}

func normalizeKey(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	lowered = strings.ReplaceAll(lowered, "-", "")
	return strings.ReplaceAll(lowered, "_", "")
}

func coerceValue(kind keyKind, v any) (any, error) {
	if s, ok := v.(string); ok {
		return coerce(kind, s)
	}
	switch kind {
	case kindList:
		items, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("expected string or list, got %T", v)
		}
		out := make([]string, 0, len(items))
		for i, item := range items {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("element %d: expected string, got %T", i, item)
			}
			out = append(out, s)
		}
		return out, nil
	case kindBool:
		if _, ok := v.(bool); !ok {
			return nil, fmt.Errorf("expected boolean, got %T", v)
		}
	case kindInt:
		switch n := v.(type) {
		case int, int64:
		case float64:
			return int(n), nil
		default:
			return nil, fmt.Errorf("expected integer, got %T", v)
		}
	case kindDuration:
		switch n := v.(type) {
		case int, int64:
			return fmt.Sprintf("%ds", n), nil
		case float64:
			return fmt.Sprintf("%gs", n), nil
		default:
			return nil, fmt.Errorf("expected duration, got %T", v)
		}
	case kindString:
		if v != nil {
			return nil, fmt.Errorf("expected string, got %T", v)
		}
		return "", nil
	}
	return v, nil
}

func coerce(kind keyKind, s string) (any, error) {
	s = strings.TrimSpace(s)
	switch kind {
	case kindList:
		var out []string
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out, nil
	case kindBool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, fmt.Errorf("invalid boolean value %q", s)
		}
		return b, nil
	case kindInt:
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("invalid integer value %q", s)
		}
		return n, nil
	case kindDuration:
		if _, err := time.ParseDuration(s); err != nil {
			return nil, fmt.Errorf("invalid duration %q", s)
		}
		return s, nil
	default:
		return s, nil
	}
}

// Normalize trims values and drops empty or duplicate list entries.
func (c *Config) Normalize() {
	c.Input = strings.TrimSpace(c.Input)
	c.BaseURL = strings.TrimSpace(c.BaseURL)
	c.IncludeTags = SanitizeList(c.IncludeTags)
	c.ExcludeTags = SanitizeList(c.ExcludeTags)
	methods := SanitizeList(c.BodyMethods)
	for i, m := range methods {
		methods[i] = strings.ToUpper(m)
	}
	c.BodyMethods = methods
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
}

// Validate reports settings that cannot work together.
func (c *Config) Validate() error {
	if c.Concurrency < 1 {
		return &Error{Key: "concurrency", Message: "must be at least 1"}
	}
	if c.Retries < 0 {
		return &Error{Key: "retries", Message: "must not be negative"}
	}
	if c.Timeout < 0 {
		return &Error{Key: "timeout", Message: "must not be negative"}
	}
	if _, err := c.Methods(); err != nil {
		return err
	}
	if overlap := intersect(c.IncludeTags, c.ExcludeTags); len(overlap) > 0 {
		return &Error{Message: "include/exclude tags overlap: " + strings.Join(overlap, ", ")}
	}
	return nil
}

// Methods parses BodyMethods.
func (c *Config) Methods() ([]endpoint.Method, error) {
	out := make([]endpoint.Method, 0, len(c.BodyMethods))
	for _, raw := range c.BodyMethods {
		m, ok := endpoint.ParseMethod(raw)
		if !ok {
			return nil, &Error{Key: "bodyMethods", Message: fmt.Sprintf("unsupported method %q", raw)}
		}
		out = append(out, m)
	}
	return out, nil
}

// SanitizeList trims entries and drops empty and duplicate ones.
func SanitizeList(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if _, dup := seen[item]; dup {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func intersect(a, b []string) []string {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(a))
	for _, item := range a {
		set[item] = struct{}{}
	}
	var out []string
	for _, item := range b {
		if _, ok := set[item]; ok {
			out = append(out, item)
		}
	}
	return out
}
