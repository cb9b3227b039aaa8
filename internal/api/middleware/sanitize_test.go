package middleware

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeHeaders(t *testing.T) {
	h := http.Header{}
	h.Set("Authorization", "Bearer x")
	h.Set("Cookie", "geogate_session=abc")
	h.Set("User-Agent", "evil\r\nInjected: yes")
	h.Set("X-Long", strings.Repeat("a", 500))

	out := SanitizeHeaders(h)
	assert.Equal(t, []string{"<redacted>"}, out["Authorization"])
	assert.Equal(t, []string{"<redacted>"}, out["Cookie"])
	assert.NotContains(t, out["User-Agent"][0], "\n")
	assert.Len(t, out["X-Long"][0], maxLoggedValue)
	assert.Nil(t, SanitizeHeaders(nil))
}

func TestSanitizePath(t *testing.T) {
	assert.Equal(t, "/login", SanitizePath("/login?emergency_bypass=secret"))
	assert.NotContains(t, SanitizePath("/a\nb"), "\n")
}
