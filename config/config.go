// Package config holds the hierarchical configuration a catalog is built
// from. Values come from YAML documents; typed sections are decoded with
// mapstructure.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/mitchellh/go-homedir"
	"github.com/mwantia/fdb/data"
	"gopkg.in/yaml.v3"
)

// HomeEnv overrides the directory "~fdb" expands to.
const HomeEnv = "FDB_HOME"

type Config struct {
	origin string
	values map[string]any
	parent *Config
}

// New wraps an already decoded value tree.
func New(values map[string]any) *Config {
	if values == nil {
		values = make(map[string]any)
	}
	return &Config{values: values}
}

// Load reads a YAML configuration file. The file path becomes the origin.
func Load(path string) (*Config, error) {
	path, err := homedir.Expand(path)
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config '%s': %w", path, err)
	}

	cfg, err := Parse(raw)
	if err != nil {
		return nil, data.ConfigurationError(path, "%v", err)
	}

	cfg.origin = path
	return cfg, nil
}

// Parse decodes a YAML document.
func Parse(raw []byte) (*Config, error) {
	values := make(map[string]any)
	if err := yaml.Unmarshal(raw, &values); err != nil {
		return nil, err
	}

	return New(values), nil
}

// Origin is the file this configuration was loaded from, if any.
func (c *Config) Origin() string {
	if c.origin == "" && c.parent != nil {
		return c.parent.Origin()
	}
	return c.origin
}

func (c *Config) Has(key string) bool {
	_, ok := c.lookup(key)
	return ok
}

// Get returns the raw decoded value, e.g. a []any for a YAML list.
func (c *Config) Get(key string) (any, bool) {
	return c.lookup(key)
}

func (c *Config) lookup(key string) (any, bool) {
	var current any = c.values
	for _, part := range strings.Split(key, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		if current, ok = m[part]; !ok {
			return nil, false
		}
	}
	return current, true
}

// GetString returns a scalar as string; dotted keys walk nested sections.
func (c *Config) GetString(key, def string) string {
	v, ok := c.lookup(key)
	if !ok || v == nil {
		return def
	}
	switch t := v.(type) {
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

func (c *Config) GetBool(key string, def bool) bool {
	v, ok := c.lookup(key)
	if !ok {
		return def
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, err := ParseBool(t)
		if err != nil {
			return def
		}
		return b
	default:
		return def
	}
}

func (c *Config) GetInt(key string, def int) int {
	v, ok := c.lookup(key)
	if !ok {
		return def
	}
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	case string:
		i, err := strconv.Atoi(t)
		if err != nil {
			return def
		}
		return i
	default:
		return def
	}
}

// GetStrings returns a list of scalars. A single scalar is a one element list.
func (c *Config) GetStrings(key string) []string {
	v, ok := c.lookup(key)
	if !ok || v == nil {
		return nil
	}
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			out = append(out, fmt.Sprint(item))
		}
		return out
	case []string:
		return t
	default:
		return []string{fmt.Sprint(t)}
	}
}

// Sub returns a nested section, or an empty one when absent.
func (c *Config) Sub(key string) *Config {
	sub := &Config{values: map[string]any{}, parent: c}
	if v, ok := c.lookup(key); ok {
		if m, ok := v.(map[string]any); ok {
			sub.values = m
		}
	}
	return sub
}

// Subs returns a list of nested sections, e.g. the sub-catalogs of a select
// catalog. Entries that are not sections are skipped.
func (c *Config) Subs(key string) []*Config {
	v, ok := c.lookup(key)
	if !ok {
		return nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil
	}

	subs := make([]*Config, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			subs = append(subs, &Config{values: m, parent: c})
		}
	}
	return subs
}

// Decode fills a typed struct from this section.
func (c *Config) Decode(out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		TagName:          "config",
	})
	if err != nil {
		return err
	}
	return decoder.Decode(c.values)
}

// Resource resolves a setting: the config value wins, then the environment
// variable, then the default.
func (c *Config) Resource(key, env, def string) string {
	if v := c.GetString(key, ""); v != "" {
		return v
	}
	if env != "" {
		if v := os.Getenv(env); v != "" {
			return v
		}
	}
	return def
}

// Home is the directory "~fdb" expands to.
func (c *Config) Home() string {
	if c.parent != nil && !c.Has("home") {
		return c.parent.Home()
	}

	home := c.Resource("home", HomeEnv, "")
	if home == "" {
		if dir, err := homedir.Dir(); err == nil {
			home = filepath.Join(dir, "fdb")
		}
	}

	expanded, err := homedir.Expand(home)
	if err != nil {
		return home
	}
	return expanded
}

// ExpandPath resolves "~fdb" to Home and "~" to the user's home directory.
func (c *Config) ExpandPath(path string) string {
	if path == "~fdb" || strings.HasPrefix(path, "~fdb/") {
		return filepath.Join(c.Home(), strings.TrimPrefix(path, "~fdb"))
	}

	expanded, err := homedir.Expand(path)
	if err != nil {
		return path
	}
	return expanded
}

// ParseBool accepts the spellings used in roots files next to strconv's.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "on", "y":
		return true, nil
	case "no", "off", "n":
		return false, nil
	}
	return strconv.ParseBool(s)
}
