package vasp

import (
	"fmt"
	"strconv"
	"strings"
)

// Settings is an ordered INCAR mapping. Keys are stored upper-case; values are
// bool, int, float64, string or []any.
type Settings struct {
	keys   []string
	values map[string]any
}

// NewSettings returns an empty settings mapping.
func NewSettings() *Settings {
	return &Settings{values: make(map[string]any)}
}

// ParseIncar parses INCAR text. Comments start with '!' or '#'; ';' separates
// several assignments on one line.
func ParseIncar(text string) (*Settings, error) {
	s := NewSettings()
	for n, raw := range strings.Split(text, "\n") {
		line := raw
		if i := strings.IndexAny(line, "!#"); i >= 0 {
			line = line[:i]
		}
		for _, stmt := range strings.Split(line, ";") {
			stmt = strings.TrimSpace(stmt)
			if stmt == "" {
				continue
			}
			key, val, ok := strings.Cut(stmt, "=")
			if !ok {
				return nil, fmt.Errorf("incar: line %d: missing '=' in %q", n+1, stmt)
			}
			key = strings.TrimSpace(key)
			if key == "" {
				return nil, fmt.Errorf("incar: line %d: empty key", n+1)
			}
			s.Set(key, parseValue(strings.TrimSpace(val)))
		}
	}
	return s, nil
}

// Set assigns key (upper-cased). Overwriting keeps the original position.
func (s *Settings) Set(key string, v any) {
	key = strings.ToUpper(key)
	if _, ok := s.values[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.values[key] = v
}

// Get returns the value for key (case-insensitive).
func (s *Settings) Get(key string) (any, bool) {
	v, ok := s.values[strings.ToUpper(key)]
	return v, ok
}

// Keys returns keys in insertion order.
func (s *Settings) Keys() []string {
	return append([]string(nil), s.keys...)
}

// Len returns the number of keys.
func (s *Settings) Len() int { return len(s.keys) }

// Update merges other into s; other wins.
func (s *Settings) Update(other *Settings) {
	if other == nil {
		return
	}
	for _, k := range other.keys {
		s.Set(k, other.values[k])
	}
}

// Clone returns a deep copy.
func (s *Settings) Clone() *Settings {
	c := NewSettings()
	for _, k := range s.keys {
		c.Set(k, cloneValue(s.values[k]))
	}
	return c
}

// String renders the settings in INCAR form, one assignment per line.
func (s *Settings) String() string {
	var b strings.Builder
	for _, k := range s.keys {
		fmt.Fprintf(&b, "%s = %s\n", k, FormatValue(s.values[k]))
	}
	return b.String()
}

// FormatValue renders a settings value the way INCAR expects it.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case bool:
		if x {
			return ".TRUE."
		}
		return ".FALSE."
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case string:
		return x
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = FormatValue(e)
		}
		return strings.Join(parts, " ")
	default:
		return fmt.Sprint(x)
	}
}

func parseValue(raw string) any {
	fields := strings.Fields(raw)
	switch len(fields) {
	case 0:
		return ""
	case 1:
		return parseScalar(fields[0])
	}
	out := make([]any, len(fields))
	for i, f := range fields {
		out[i] = parseScalar(f)
	}
	return out
}

func parseScalar(tok string) any {
	switch strings.ToUpper(strings.Trim(tok, ".")) {
	case "TRUE", "T":
		return true
	case "FALSE", "F":
		return false
	}
	if n, err := strconv.Atoi(tok); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(tok, 64); err == nil {
		return f
	}
	return tok
}

func cloneValue(v any) any {
	if list, ok := v.([]any); ok {
		c := make([]any, len(list))
		for i, e := range list {
			c[i] = cloneValue(e)
		}
		return c
	}
	return v
}
