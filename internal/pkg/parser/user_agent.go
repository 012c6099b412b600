// Package parser extracts coarse client details recorded with logins.
package parser

import "strings"

type Client struct {
	OS      string `json:"os"`
	Browser string `json:"browser"`
}

var osRules = []struct{ needle, name string }{
	// iOS and Android user agents also mention Mac OS and Linux.
	{"iphone", "iOS"},
	{"ipad", "iOS"},
	{"android", "Android"},
	{"windows", "Windows"},
	{"mac os", "macOS"},
	{"linux", "Linux"},
}

var browserRules = []struct{ needle, name string }{
	{"edg/", "Edge"},
	{"edge", "Edge"},
	{"opr/", "Opera"},
	{"firefox", "Firefox"},
	{"chrome", "Chrome"},
	{"crios", "Chrome"},
	{"safari", "Safari"},
}

func ParseUserAgent(ua string) Client {
	lower := strings.ToLower(ua)
	return Client{
		OS:      match(lower, osRules),
		Browser: match(lower, browserRules),
	}
}

func match(ua string, rules []struct{ needle, name string }) string {
	for _, r := range rules {
		if strings.Contains(ua, r.needle) {
			return r.name
		}
	}
	return "Unknown"
}
