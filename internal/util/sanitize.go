package util

import (
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"
)

var controlChars = regexp.MustCompile(`[\x00-\x1F\x7F]+`)

// SanitizeForLog removes control characters and newlines from user content before logging.
func SanitizeForLog(s string) string {
	if s == "" {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return controlChars.ReplaceAllString(s, " ")
}

// Truncate shortens s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

// TruncateWords keeps the first n whitespace-separated words, appending an
// ellipsis when anything was cut.
func TruncateWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:n], " ") + "..."
}

// HeaderSnapshot copies the named headers, sanitised, for forensic storage.
// Absent headers are omitted.
func HeaderSnapshot(h http.Header, names []string) map[string]string {
	snap := make(map[string]string, len(names))
	for _, name := range names {
		if v := h.Get(name); v != "" {
			snap[name] = Truncate(SanitizeForLog(v), 512)
		}
	}
	return snap
}
