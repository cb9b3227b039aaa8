package util

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab", Truncate("abc", 2))
	assert.Equal(t, "", Truncate("abc", 0))
	assert.Equal(t, "ñá", Truncate("ñáé", 2))
	assert.Len(t, []rune(Truncate(strings.Repeat("x", 900), 500)), 500)
}

func TestTruncateWords(t *testing.T) {
	assert.Equal(t, "one two", TruncateWords("one  two", 5))
	assert.Equal(t, "one two...", TruncateWords("one two three", 2))
}

func TestHeaderSnapshot(t *testing.T) {
	h := http.Header{}
	h.Set("X-Forwarded-For", "1.2.3.4,\n5.6.7.8")
	h.Set("Cookie", "secret")

	snap := HeaderSnapshot(h, []string{"X-Forwarded-For", "X-Real-IP"})
	assert.Equal(t, map[string]string{"X-Forwarded-For": "1.2.3.4, 5.6.7.8"}, snap)
}
