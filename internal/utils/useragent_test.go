package utils

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestParseUserAgent(t *testing.T) {
	t.Run("Desktop Chrome", func(t *testing.T) {
		info := ParseUserAgent("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36", "203.0.113.9")

		assert.Equal(t, "desktop", info["device_type"])
		assert.Equal(t, "Chrome", info["browser"])
		assert.Equal(t, "windows", info["platform"])
		assert.Equal(t, "203.0.113.9", info["ip"])
		assert.Equal(t, false, info["is_bot"])
	})

	t.Run("Tablet", func(t *testing.T) {
		info := ParseUserAgent("Mozilla/5.0 (iPad; CPU OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1", "")

		assert.Equal(t, "tablet", info["device_type"])
		assert.NotContains(t, info, "ip")
	})

	t.Run("Bot", func(t *testing.T) {
		info := ParseUserAgent("Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)", "")

		assert.Equal(t, true, info["is_bot"])
	})

	t.Run("Unknown", func(t *testing.T) {
		info := ParseUserAgent("Unknown", "198.51.100.7")

		assert.Equal(t, "unknown", info["device_type"])
		assert.Equal(t, "Unknown", info["raw"])
	})
}

func TestGetRealIP(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"Public Real IP", map[string]string{"X-Real-IP": "198.51.100.7"}, "198.51.100.7"},
		{"Skips Private Hops", map[string]string{"X-Forwarded-For": "10.0.0.4, 203.0.113.9"}, "203.0.113.9"},
		{"Only Private Hops", map[string]string{"X-Forwarded-For": "192.168.1.20"}, "192.168.1.20"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest("GET", "/", nil)
			for k, v := range tt.headers {
				c.Request.Header.Set(k, v)
			}

			assert.Equal(t, tt.want, GetRealIP(c))
		})
	}
}
