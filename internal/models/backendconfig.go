package models

import "strings"

// ConfigEntry is one key=value pair of a widget's backend configuration
type ConfigEntry struct {
	Key   string
	Value string
}

// BackendConfig is an ordered list of configuration entries. The wire form
// is newline-delimited key=value lines; newlines inside values are escaped
// as the two characters `\n` so the pair list survives the round trip.
type BackendConfig []ConfigEntry

// ParseBackendConfig decodes the newline-delimited key=value wire form.
// Blank lines are skipped. A line without '=' becomes a key with an empty
// value. Escaped newlines in values are restored.
func ParseBackendConfig(raw string) BackendConfig {
	var cfg BackendConfig
	for _, line := range strings.Split(raw, "\n") {
		if line == "" {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			cfg = append(cfg, ConfigEntry{Key: line})
			continue
		}
		cfg = append(cfg, ConfigEntry{Key: key, Value: unescapeValue(value)})
	}
	return cfg
}

// Encode produces the wire form, escaping newlines and backslashes in values
func (c BackendConfig) Encode() string {
	lines := make([]string, 0, len(c))
	for _, entry := range c {
		lines = append(lines, entry.Key+"="+escapeValue(entry.Value))
	}
	return strings.Join(lines, "\n")
}

// Get returns the value for key and whether it was present. The first
// matching entry wins.
func (c BackendConfig) Get(key string) (string, bool) {
	for _, entry := range c {
		if entry.Key == key {
			return entry.Value, true
		}
	}
	return "", false
}

// Set replaces the value of an existing key or appends a new entry
func (c BackendConfig) Set(key, value string) BackendConfig {
	for i, entry := range c {
		if entry.Key == key {
			c[i].Value = value
			return c
		}
	}
	return append(c, ConfigEntry{Key: key, Value: value})
}

func escapeValue(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	return strings.ReplaceAll(v, "\n", `\n`)
}

func unescapeValue(v string) string {
	var b strings.Builder
	for i := 0; i < len(v); i++ {
		if v[i] == '\\' && i+1 < len(v) {
			switch v[i+1] {
			case 'n':
				b.WriteByte('\n')
				i++
				continue
			case '\\':
				b.WriteByte('\\')
				i++
				continue
			}
		}
		b.WriteByte(v[i])
	}
	return b.String()
}
