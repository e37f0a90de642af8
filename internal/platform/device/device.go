// Package device turns raw User-Agent strings into short display names for
// audit records ("Chrome on Mac OS X", "Safari on iPhone").
package device

import (
	"fmt"

	"github.com/mssola/useragent"
)

// ParseUserAgent returns a human-readable device name. Deterministic for a
// given input; unknown agents still produce a "<browser> on <platform>" form.
func ParseUserAgent(raw string) string {
	if raw == "" {
		return "Unknown Device"
	}

	ua := useragent.New(raw)

	browser, _ := ua.Browser()
	if browser == "" {
		browser = "Unknown Browser"
	}

	platform := ua.OSInfo().Name
	if ua.Mobile() && ua.Platform() != "" {
		platform = ua.Platform()
	}
	if platform == "" {
		platform = ua.OS()
	}
	if platform == "" {
		platform = "Unknown OS"
	}

	return fmt.Sprintf("%s on %s", browser, platform)
}
