// Loginwatch - Login Event Anomaly Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loginwatch

package geo

import (
	"fmt"
	"net/netip"
	"strings"

	"github.com/tomtom215/loginwatch/internal/models"
)

// DefaultHostingASNs are networks that mostly carry cloud, hosting or
// commercial VPN traffic rather than residential users.
var DefaultHostingASNs = []int{
	13335,  // Cloudflare
	14061,  // DigitalOcean
	14618,  // Amazon AWS
	16276,  // OVH
	16509,  // Amazon AWS
	20473,  // Vultr (Choopa)
	24940,  // Hetzner
	396982, // Google Cloud
	60068,  // CDN77 / Datacamp
	63949,  // Akamai Linode
	8075,   // Microsoft Azure
	9009,   // M247
	212238, // Datacamp
}

// ispMarkers are lower-case ISP name fragments that indicate proxy or hosting use.
var ispMarkers = []string{"vpn", "proxy", "hosting", "datacenter", "data center", "colocation", "vps"}

// HostingDetector classifies resolved locations as proxy suspects.
type HostingDetector struct {
	asns     map[int]struct{}
	prefixes []netip.Prefix
}

// NewHostingDetector builds a detector from ASNs and CIDR prefixes.
// A nil asns uses DefaultHostingASNs.
func NewHostingDetector(asns []int, cidrs []string) (*HostingDetector, error) {
	if asns == nil {
		asns = DefaultHostingASNs
	}
	d := &HostingDetector{asns: make(map[int]struct{}, len(asns))}
	for _, asn := range asns {
		d.asns[asn] = struct{}{}
	}
	for _, cidr := range cidrs {
		prefix, err := netip.ParsePrefix(strings.TrimSpace(cidr))
		if err != nil {
			return nil, fmt.Errorf("hosting prefix %q: %w", cidr, err)
		}
		d.prefixes = append(d.prefixes, prefix.Masked())
	}
	return d, nil
}

// IsProxySuspect reports whether the point is a proxy suspect: flagged by
// the provider, on a hosting ASN, inside a hosting prefix, or operated by
// an ISP whose name carries a proxy marker.
func (d *HostingDetector) IsProxySuspect(point *models.GeoPoint) bool {
	if point == nil {
		return false
	}
	if point.IsProxySuspect {
		return true
	}
	if _, ok := d.asns[point.ASN]; ok && point.ASN != 0 {
		return true
	}
	if d.inPrefix(point.IPAddress) {
		return true
	}
	isp := strings.ToLower(point.ISP)
	for _, marker := range ispMarkers {
		if strings.Contains(isp, marker) {
			return true
		}
	}
	return false
}

func (d *HostingDetector) inPrefix(ipAddress string) bool {
	if len(d.prefixes) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(ipAddress)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range d.prefixes {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// Classify sets point.IsProxySuspect from the detector's rules.
func (d *HostingDetector) Classify(point *models.GeoPoint) {
	if point != nil {
		point.IsProxySuspect = d.IsProxySuspect(point)
	}
}
