// Loginwatch - Login Event Anomaly Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loginwatch

package features

import "testing"

func TestParseUserAgent(t *testing.T) {
	tests := []struct {
		name string
		ua   string
		want UserAgentInfo
	}{
		{
			name: "chrome on windows",
			ua:   chromeUA,
			want: UserAgentInfo{Browser: "Chrome", OS: "Windows", Device: DeviceDesktop},
		},
		{
			name: "edge on windows",
			ua:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.2210.91",
			want: UserAgentInfo{Browser: "Edge", OS: "Windows", Device: DeviceDesktop},
		},
		{
			name: "safari on iphone",
			ua:   "Mozilla/5.0 (iPhone; CPU iPhone OS 17_2 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Mobile/15E148 Safari/604.1",
			want: UserAgentInfo{Browser: "Safari", OS: "iOS", Device: DeviceMobile},
		},
		{
			name: "firefox on linux",
			ua:   "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0",
			want: UserAgentInfo{Browser: "Firefox", OS: "Linux", Device: DeviceDesktop},
		},
		{
			name: "chrome on android phone",
			ua:   "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.6099.144 Mobile Safari/537.36",
			want: UserAgentInfo{Browser: "Chrome", OS: "Android", Device: DeviceMobile},
		},
		{
			name: "safari on ipad",
			ua:   "Mozilla/5.0 (iPad; CPU OS 17_2 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Mobile/15E148 Safari/604.1",
			want: UserAgentInfo{Browser: "Safari", OS: "iOS", Device: DeviceTablet},
		},
		{
			name: "opera on macos",
			ua:   "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 OPR/106.0.0.0",
			want: UserAgentInfo{Browser: "Opera", OS: "macOS", Device: DeviceDesktop},
		},
		{
			name: "empty",
			ua:   "",
			want: UserAgentInfo{Browser: FamilyUnknown, OS: FamilyUnknown, Device: FamilyUnknown},
		},
		{
			name: "script client",
			ua:   "python-requests/2.31.0",
			want: UserAgentInfo{Browser: FamilyUnknown, OS: FamilyUnknown, Device: DeviceDesktop},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseUserAgent(tt.ua); got != tt.want {
				t.Errorf("ParseUserAgent() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
