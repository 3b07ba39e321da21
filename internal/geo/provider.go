// Loginwatch - Login Event Anomaly Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loginwatch

package geo

import (
	"context"
	"fmt"
	"net/http"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/loginwatch/internal/models"
)

// Provider resolves a single IP address to a location.
type Provider interface {
	// Lookup returns the location of ipAddress. Errors wrapping ErrNoResult,
	// ErrInvalidAddress or ErrPrivateAddress are permanent and not retried.
	Lookup(ctx context.Context, ipAddress string) (*models.GeoPoint, error)

	// Name returns the provider name for logging and metrics.
	Name() string
}

// Source values recorded on GeoPoint.
const (
	SourceUnknown = "unknown"
	SourceLocal   = "local"
)

// ========================================
// ip-api.com Provider (Free, No API Key)
// ========================================

// DefaultIPAPIURL is the free ip-api.com JSON endpoint.
const DefaultIPAPIURL = "http://ip-api.com/json"

// ipAPIFields limits the response to what GeoPoint needs.
const ipAPIFields = "status,message,country,countryCode,city,lat,lon,isp,as,proxy,hosting,query"

// IPAPIProvider implements Provider using the ip-api.com service.
// Throttling is left to the Resolver's RateLimiter.
type IPAPIProvider struct {
	client  *http.Client
	baseURL string
}

// ipAPIResponse represents the JSON response from ip-api.com
type ipAPIResponse struct {
	Status      string  `json:"status"`      // "success" or "fail"
	Message     string  `json:"message"`     // Error message if status is "fail"
	Country     string  `json:"country"`     // Country name
	CountryCode string  `json:"countryCode"` // ISO 3166-1 alpha-2 country code
	City        string  `json:"city"`        // City name
	Lat         float64 `json:"lat"`         // Latitude
	Lon         float64 `json:"lon"`         // Longitude
	ISP         string  `json:"isp"`         // ISP name
	AS          string  `json:"as"`          // "AS15169 Google LLC"
	Proxy       bool    `json:"proxy"`       // Proxy, VPN or Tor exit
	Hosting     bool    `json:"hosting"`     // Hosting, colocation or data center
	Query       string  `json:"query"`       // IP address queried
}

// NewIPAPIProvider creates an ip-api.com provider. An empty baseURL uses DefaultIPAPIURL.
func NewIPAPIProvider(baseURL string, timeout time.Duration) *IPAPIProvider {
	if baseURL == "" {
		baseURL = DefaultIPAPIURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &IPAPIProvider{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Name returns the provider name.
func (p *IPAPIProvider) Name() string {
	return "ip-api.com"
}

// Lookup queries ip-api.com for the location of ipAddress.
func (p *IPAPIProvider) Lookup(ctx context.Context, ipAddress string) (*models.GeoPoint, error) {
	if err := ValidatePublicIP(ipAddress); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/%s?fields=%s", p.baseURL, ipAddress, ipAPIFields)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query ip-api.com: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ip-api.com returned status %d", resp.StatusCode)
	}

	var result ipAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode ip-api.com response: %w", err)
	}

	if result.Status != "success" {
		return nil, fmt.Errorf("ip-api.com: %s: %w", result.Message, ErrNoResult)
	}

	return &models.GeoPoint{
		IPAddress:      ipAddress,
		Latitude:       result.Lat,
		Longitude:      result.Lon,
		Country:        result.Country,
		CountryCode:    result.CountryCode,
		City:           result.City,
		ISP:            result.ISP,
		ASN:            parseASN(result.AS),
		IsProxySuspect: result.Proxy || result.Hosting,
		Source:         p.Name(),
	}, nil
}

// parseASN extracts the number from an "AS15169 Google LLC" string.
func parseASN(as string) int {
	field, _, _ := strings.Cut(strings.TrimSpace(as), " ")
	if !strings.HasPrefix(strings.ToUpper(field), "AS") {
		return 0
	}
	n, err := strconv.Atoi(field[2:])
	if err != nil {
		return 0
	}
	return n
}

// ========================================
// Static Provider (offline table)
// ========================================

// StaticProvider resolves IPs from a fixed in-memory table. The table can
// be swapped at runtime with Replace or Reload.
type StaticProvider struct {
	mu      sync.RWMutex
	entries map[string]models.GeoPoint
}

// NewStaticProvider creates a provider over the given points, keyed by their IPAddress.
func NewStaticProvider(points []models.GeoPoint) *StaticProvider {
	p := &StaticProvider{}
	p.Replace(points)
	return p
}

// LoadStaticProvider reads a JSON array of GeoPoint from path.
func LoadStaticProvider(path string) (*StaticProvider, error) {
	points, err := readStaticTable(path)
	if err != nil {
		return nil, err
	}
	return NewStaticProvider(points), nil
}

func readStaticTable(path string) ([]models.GeoPoint, error) {
	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied table path
	if err != nil {
		return nil, fmt.Errorf("read static geolocation table: %w", err)
	}
	var points []models.GeoPoint
	if err := json.Unmarshal(data, &points); err != nil {
		return nil, fmt.Errorf("parse static geolocation table %s: %w", path, err)
	}
	return points, nil
}

// Replace swaps the whole table.
func (p *StaticProvider) Replace(points []models.GeoPoint) {
	entries := make(map[string]models.GeoPoint, len(points))
	for _, pt := range points {
		entries[pt.IPAddress] = pt
	}
	p.mu.Lock()
	p.entries = entries
	p.mu.Unlock()
}

// Reload re-reads the table from path. On error the current table is kept.
func (p *StaticProvider) Reload(path string) (int, error) {
	points, err := readStaticTable(path)
	if err != nil {
		return 0, err
	}
	p.Replace(points)
	return len(points), nil
}

// Len returns the number of table entries.
func (p *StaticProvider) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.entries)
}

// Name returns the provider name.
func (p *StaticProvider) Name() string {
	return "static"
}

// Lookup returns the table entry for ipAddress.
func (p *StaticProvider) Lookup(ctx context.Context, ipAddress string) (*models.GeoPoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.RLock()
	point, ok := p.entries[ipAddress]
	p.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s not in static table: %w", ipAddress, ErrNoResult)
	}
	point.IPAddress = ipAddress
	if point.Source == "" {
		point.Source = p.Name()
	}
	return &point, nil
}

// ValidatePublicIP returns ErrInvalidAddress for malformed input and
// ErrPrivateAddress for addresses that cannot be geolocated.
func ValidatePublicIP(ipAddress string) error {
	addr, err := netip.ParseAddr(ipAddress)
	if err != nil {
		return fmt.Errorf("%q: %w", ipAddress, ErrInvalidAddress)
	}
	if IsPrivateAddr(addr) {
		return fmt.Errorf("%s: %w", ipAddress, ErrPrivateAddress)
	}
	return nil
}

// IsPrivateAddr reports whether addr is private, loopback, link-local,
// multicast or unspecified.
func IsPrivateAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	return addr.IsPrivate() ||
		addr.IsLoopback() ||
		addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() ||
		addr.IsMulticast() ||
		addr.IsUnspecified()
}

// unknownPoint is the location recorded for an IP that could not be resolved.
func unknownPoint(ipAddress, source string) *models.GeoPoint {
	return &models.GeoPoint{IPAddress: ipAddress, Source: source}
}
