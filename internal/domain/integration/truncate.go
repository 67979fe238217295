package integration

import (
	"encoding/json"
	"unicode/utf8"
)

// Truncate cuts s to at most max characters, keeping the beginning.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}

// TruncateLeft cuts s to at most max characters, keeping the end.
func TruncateLeft(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[len(runes)-max:])
}

// SerializePayload renders v as JSON and truncates it to max characters.
// Strings and byte slices are used verbatim.
func SerializePayload(v any, max int) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return Truncate(val, max)
	case []byte:
		return Truncate(string(val), max)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return Truncate(err.Error(), max)
	}
	return Truncate(string(data), max)
}
