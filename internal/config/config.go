// Package config defines the JSON dashboard config and a loosely-typed
// Options bag shared by source backends.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Dashboard is the top-level config for the dashboard binaries.
type Dashboard struct {
	Job    string `json:"job"`
	Source Source `json:"source"`
}

// Source selects and configures a table source backend.
type Source struct {
	// Kind: "csvdir" | "sqlite" | "postgres" | "mssql"
	Kind    string  `json:"kind"`
	Options Options `json:"options"`
}

// Load reads and decodes a Dashboard config file.
func Load(path string) (Dashboard, error) {
	var d Dashboard
	f, err := os.Open(path)
	if err != nil {
		return d, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(&d); err != nil {
		return d, fmt.Errorf("decode config %s: %w", path, err)
	}
	if d.Source.Kind == "" {
		return d, fmt.Errorf("config %s: source.kind must be set", path)
	}
	return d, nil
}

// Options is a JSON object with typed accessors. Unknown or mistyped keys
// fall back to the provided default; backends validate what they require.
type Options map[string]any

// Any returns the raw value or nil.
func (o Options) Any(key string) any {
	if o == nil {
		return nil
	}
	return o[key]
}

// String returns a string option, with JSON numbers rendered back to text.
func (o Options) String(key, def string) string {
	v := o.Any(key)
	switch t := v.(type) {
	case nil:
		return def
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return def
	}
}

// Bool returns a bool option; accepts JSON bools and "true"/"false" strings.
func (o Options) Bool(key string, def bool) bool {
	switch t := o.Any(key).(type) {
	case bool:
		return t
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(t)); err == nil {
			return b
		}
	}
	return def
}

// Int returns an int option; JSON numbers arrive as float64.
func (o Options) Int(key string, def int) int {
	switch t := o.Any(key).(type) {
	case float64:
		return int(t)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			return n
		}
	}
	return def
}

// Rune returns the first rune of a string option.
func (o Options) Rune(key string, def rune) rune {
	s := o.String(key, "")
	if s == "" {
		return def
	}
	return []rune(s)[0]
}

// StringMap returns a map[string]string option (JSON object of strings).
// Non-string values are skipped.
func (o Options) StringMap(key string) map[string]string {
	raw, ok := o.Any(key).(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}
