// Loginwatch - Login Event Anomaly Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loginwatch

package features

import "strings"

// Family names returned by ParseUserAgent.
const (
	FamilyUnknown = "Unknown"

	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceDesktop = "desktop"
)

// UserAgentInfo is the coarse classification of a user agent string.
type UserAgentInfo struct {
	Browser string
	OS      string
	Device  string
}

// ParseUserAgent classifies a user agent into browser, OS and device families.
// Order matters: Edge and Opera carry a Chrome token, and Chrome carries a
// Safari token.
func ParseUserAgent(userAgent string) UserAgentInfo {
	ua := strings.ToLower(userAgent)
	if strings.TrimSpace(ua) == "" {
		return UserAgentInfo{Browser: FamilyUnknown, OS: FamilyUnknown, Device: FamilyUnknown}
	}

	info := UserAgentInfo{}

	switch {
	case strings.Contains(ua, "edg/") || strings.Contains(ua, "edge/"):
		info.Browser = "Edge"
	case strings.Contains(ua, "opr/") || strings.Contains(ua, "opera"):
		info.Browser = "Opera"
	case strings.Contains(ua, "firefox/") || strings.Contains(ua, "fxios/"):
		info.Browser = "Firefox"
	case strings.Contains(ua, "chrome/") || strings.Contains(ua, "crios/"):
		info.Browser = "Chrome"
	case strings.Contains(ua, "safari/"):
		info.Browser = "Safari"
	default:
		info.Browser = FamilyUnknown
	}

	switch {
	case strings.Contains(ua, "iphone") || strings.Contains(ua, "ipad") || strings.Contains(ua, "ios"):
		info.OS = "iOS"
	case strings.Contains(ua, "android"):
		info.OS = "Android"
	case strings.Contains(ua, "windows"):
		info.OS = "Windows"
	case strings.Contains(ua, "mac os x") || strings.Contains(ua, "macintosh"):
		info.OS = "macOS"
	case strings.Contains(ua, "linux") || strings.Contains(ua, "x11"):
		info.OS = "Linux"
	default:
		info.OS = FamilyUnknown
	}

	switch {
	case strings.Contains(ua, "ipad") || strings.Contains(ua, "tablet"):
		info.Device = DeviceTablet
	case strings.Contains(ua, "android") && !strings.Contains(ua, "mobile"):
		info.Device = DeviceTablet
	case strings.Contains(ua, "mobile") || strings.Contains(ua, "iphone"):
		info.Device = DeviceMobile
	default:
		info.Device = DeviceDesktop
	}

	return info
}
