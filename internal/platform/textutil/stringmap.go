package textutil

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// MapLimits bounds a normalised map. Lengths are in runes; zero disables a bound.
type MapLimits struct {
	MaxKeyLen   int
	MaxValueLen int
	MaxEntries  int
}

// NormalizeStringMap trims keys and values and drops entries where either ends up empty. Keys and
// values are truncated to the limits; when MaxEntries is exceeded the lexically first keys win.
func NormalizeStringMap(values map[string]string, limits MapLimits) map[string]string {
	if len(values) == 0 {
		return nil
	}
	keys := make([]string, 0, len(values))
	trimmed := make(map[string]string, len(values))
	for key, value := range values {
		k := Truncate(strings.TrimSpace(key), limits.MaxKeyLen)
		v := Truncate(strings.TrimSpace(value), limits.MaxValueLen)
		if k == "" || v == "" {
			continue
		}
		if _, dup := trimmed[k]; !dup {
			keys = append(keys, k)
		}
		trimmed[k] = v
	}
	if len(keys) == 0 {
		return nil
	}
	sort.Strings(keys)
	if limits.MaxEntries > 0 && len(keys) > limits.MaxEntries {
		keys = keys[:limits.MaxEntries]
	}
	result := make(map[string]string, len(keys))
	for _, k := range keys {
		result[k] = trimmed[k]
	}
	return result
}

// Truncate cuts s to at most n runes. n <= 0 returns s unchanged.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
