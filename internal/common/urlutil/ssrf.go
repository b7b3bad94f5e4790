package urlutil

import (
	"fmt"
	"net"
)

// privateRanges holds the private and reserved IP ranges outbound
// fetches must never reach.
var privateRanges = mustParseCIDRs(
	// IPv4
	"127.0.0.0/8",    // loopback
	"10.0.0.0/8",     // RFC 1918
	"172.16.0.0/12",  // RFC 1918
	"192.168.0.0/16", // RFC 1918
	"169.254.0.0/16", // link-local
	"100.64.0.0/10",  // CGNAT (RFC 6598)
	"0.0.0.0/8",      // "this" network
	"224.0.0.0/4",    // multicast

	// IPv6
	"::1/128",   // loopback
	"fe80::/10", // link-local
	"fc00::/7",  // unique local
	"ff00::/8",  // multicast
)

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, cidr := range cidrs {
		_, ipNet, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Sprintf("invalid CIDR in private ranges: %s", cidr))
		}
		nets = append(nets, ipNet)
	}
	return nets
}

// IsPrivateIP returns true if the given IP belongs to a private or
// reserved range.
func IsPrivateIP(ip net.IP) bool {
	if ip == nil {
		return false
	}

	for _, ipNet := range privateRanges {
		if ipNet.Contains(ip) {
			return true
		}
	}
	return false
}

// ValidateHostNotPrivateIP rejects hostnames that are private IP
// literals. It performs no DNS resolution: domain names pass through,
// so callers must also run ValidateResolvedIP on the addresses DNS
// actually returns.
func ValidateHostNotPrivateIP(hostname string) error {
	ip := net.ParseIP(hostname)
	if ip == nil {
		return nil
	}

	if IsPrivateIP(ip) {
		return fmt.Errorf("hostname is a private/reserved IP address: %s", hostname)
	}
	return nil
}

// ValidateResolvedIP rejects resolved addresses in private or reserved
// ranges. Running it after DNS resolution closes the rebinding hole
// that hostname checks alone leave open.
func ValidateResolvedIP(ip net.IP) error {
	if IsPrivateIP(ip) {
		return fmt.Errorf("resolved IP is in a private/reserved range: %s", ip.String())
	}
	return nil
}
