// Loginwatch - Login Event Anomaly Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loginwatch

package geo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/loginwatch/internal/models"
)

func TestIPAPIProvider_Lookup(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("fields") != ipAPIFields {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/json/81.2.69.142":
			fmt.Fprint(w, `{"status":"success","country":"United Kingdom","countryCode":"GB","city":"London","lat":51.5074,"lon":-0.1278,"isp":"British Telecom","as":"AS2856 British Telecommunications PLC","proxy":false,"hosting":true,"query":"81.2.69.142"}`)
		case "/json/203.0.113.9":
			fmt.Fprint(w, `{"status":"fail","message":"reserved range","query":"203.0.113.9"}`)
		default:
			w.WriteHeader(http.StatusTooManyRequests)
		}
	}))
	defer server.Close()

	provider := NewIPAPIProvider(server.URL+"/json/", time.Second)
	ctx := context.Background()

	point, err := provider.Lookup(ctx, "81.2.69.142")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if point.City != "London" || point.CountryCode != "GB" || point.ASN != 2856 {
		t.Errorf("unexpected point %+v", point)
	}
	if !point.IsProxySuspect {
		t.Error("hosting flag should mark the point as a proxy suspect")
	}
	if point.Source != "ip-api.com" {
		t.Errorf("Source = %q", point.Source)
	}

	if _, err := provider.Lookup(ctx, "203.0.113.9"); !errors.Is(err, ErrNoResult) {
		t.Errorf("fail status error = %v, want ErrNoResult", err)
	}

	_, err = provider.Lookup(ctx, "198.51.100.1")
	if err == nil || isPermanent(err) {
		t.Errorf("HTTP 429 error = %v, want a transient error", err)
	}

	if _, err := provider.Lookup(ctx, "10.0.0.1"); !errors.Is(err, ErrPrivateAddress) {
		t.Errorf("private address error = %v, want ErrPrivateAddress", err)
	}
}

func TestParseASN(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"AS15169 Google LLC", 15169},
		{"as24940 Hetzner", 24940},
		{"AS13335", 13335},
		{"", 0},
		{"Google LLC", 0},
		{"ASX Broken", 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := parseASN(tt.in); got != tt.want {
				t.Errorf("parseASN(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestStaticProvider(t *testing.T) {
	provider := NewStaticProvider([]models.GeoPoint{at("81.2.69.142", london)})
	ctx := context.Background()

	point, err := provider.Lookup(ctx, "81.2.69.142")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if point.City != "London" || point.Source != "static" {
		t.Errorf("unexpected point %+v", point)
	}

	point.City = "Changed"
	again, _ := provider.Lookup(ctx, "81.2.69.142")
	if again.City != "London" {
		t.Error("Lookup must return a copy of the table entry")
	}

	if _, err := provider.Lookup(ctx, "81.2.69.143"); !errors.Is(err, ErrNoResult) {
		t.Errorf("miss error = %v, want ErrNoResult", err)
	}
}

func TestLoadStaticProvider(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "geo.json")
	table := `[{"ip_address":"203.0.113.7","latitude":35.6762,"longitude":139.6503,"city":"Tokyo","country_code":"JP"}]`
	if err := os.WriteFile(path, []byte(table), 0o600); err != nil {
		t.Fatal(err)
	}

	provider, err := LoadStaticProvider(path)
	if err != nil {
		t.Fatalf("LoadStaticProvider: %v", err)
	}
	point, err := provider.Lookup(context.Background(), "203.0.113.7")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if point.City != "Tokyo" || !point.Known() {
		t.Errorf("unexpected point %+v", point)
	}

	if _, err := LoadStaticProvider(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadStaticProvider(bad); err == nil || !strings.Contains(err.Error(), "bad.json") {
		t.Errorf("parse error = %v, want it to name the file", err)
	}
}

func TestValidatePublicIP(t *testing.T) {
	tests := []struct {
		ip   string
		want error
	}{
		{"81.2.69.142", nil},
		{"2a00:1450:4009:81f::200e", nil},
		{"10.1.2.3", ErrPrivateAddress},
		{"192.168.0.10", ErrPrivateAddress},
		{"127.0.0.1", ErrPrivateAddress},
		{"::1", ErrPrivateAddress},
		{"169.254.10.1", ErrPrivateAddress},
		{"::ffff:10.0.0.1", ErrPrivateAddress},
		{"0.0.0.0", ErrPrivateAddress},
		{"999.1.1.1", ErrInvalidAddress},
		{"", ErrInvalidAddress},
	}
	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			err := ValidatePublicIP(tt.ip)
			if tt.want == nil {
				if err != nil {
					t.Errorf("ValidatePublicIP(%q) = %v, want nil", tt.ip, err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("ValidatePublicIP(%q) = %v, want %v", tt.ip, err, tt.want)
			}
		})
	}
}
