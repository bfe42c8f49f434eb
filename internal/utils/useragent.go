package utils

import (
	"strings"

	ua "github.com/mssola/user_agent"
	"github.com/tourbooking/booking-backend/internal/models"
)

// ParseUserAgent extracts the device metadata stored with a booking
func ParseUserAgent(userAgent, ip string) models.DeviceInfo {
	info := models.DeviceInfo{"raw": userAgent}
	if ip != "" {
		info["ip"] = ip
	}

	if userAgent == "" || userAgent == "Unknown" {
		info["device_type"] = "unknown"
		info["os"] = "Unknown"
		info["browser"] = "Unknown"
		info["platform"] = "unknown"
		info["is_bot"] = false
		return info
	}

	parser := ua.New(userAgent)
	browser, version := parser.Browser()
	if browser == "" {
		browser = "Unknown"
	}

	info["device_type"] = deviceType(parser)
	info["os"] = osName(parser)
	info["browser"] = browser
	info["browser_ver"] = version
	info["platform"] = platform(parser)
	info["is_bot"] = parser.Bot()
	return info
}

var tabletIndicators = []string{"ipad", "tablet", "kindle", "playbook", "nexus 7", "nexus 9", "nexus 10", "xoom", "sm-t"}

func deviceType(parser *ua.UserAgent) string {
	if !parser.Mobile() {
		return "desktop"
	}
	lower := strings.ToLower(parser.UA())
	for _, indicator := range tabletIndicators {
		if strings.Contains(lower, indicator) {
			return "tablet"
		}
	}
	return "mobile"
}

func osName(parser *ua.UserAgent) string {
	osInfo := parser.OSInfo()
	if osInfo.Name == "" {
		return "Unknown"
	}
	if osInfo.Version != "" {
		return osInfo.Name + " " + osInfo.Version
	}
	return osInfo.Name
}

// platform checks are ordered; "mac os x" must not be read as "ios"
var platforms = []struct{ key, name string }{
	{"android", "android"},
	{"iphone os", "ios"},
	{"mac os x", "mac"},
	{"macos", "mac"},
	{"ios", "ios"},
	{"windows", "windows"},
	{"chrome os", "chromeos"},
	{"ubuntu", "linux"},
	{"linux", "linux"},
}

func platform(parser *ua.UserAgent) string {
	name := strings.ToLower(parser.OSInfo().Name)
	for _, p := range platforms {
		if strings.Contains(name, p.key) {
			return p.name
		}
	}
	return "unknown"
}
