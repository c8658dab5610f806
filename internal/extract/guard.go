package extract

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"syscall"
)

var (
	// ErrUnsupportedScheme is returned for URLs that are not http or https.
	ErrUnsupportedScheme = errors.New("URL scheme not allowed; use http or https")

	// ErrPrivateAddress is returned when a URL resolves to a private,
	// loopback or otherwise reserved address.
	ErrPrivateAddress = errors.New("URL resolves to a private or reserved address")
)

var reservedNets = func() []*net.IPNet {
	cidrs := []string{
		"0.0.0.0/8",          // "this" network
		"100.64.0.0/10",      // shared address space (CGN)
		"192.0.0.0/24",       // IETF protocol assignments
		"192.0.2.0/24",       // TEST-NET-1
		"198.18.0.0/15",      // benchmarking
		"198.51.100.0/24",    // TEST-NET-2
		"203.0.113.0/24",     // TEST-NET-3
		"240.0.0.0/4",        // reserved
		"255.255.255.255/32", // broadcast
	}
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			panic(fmt.Sprintf("invalid CIDR %q: %v", c, err))
		}
		nets = append(nets, n)
	}
	return nets
}()

// ValidateURL checks that rawURL is an absolute http(s) URL with a host.
// Address checks happen when the connection is dialed, so redirects and
// DNS answers are covered too.
func ValidateURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, errors.New("URL must have a hostname")
	}
	return u, nil
}

// isReserved reports whether ip must not be fetched from.
func isReserved(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() || ip.IsMulticast() {
		return true
	}
	for _, n := range reservedNets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// dialControl rejects connections to reserved addresses. It runs after DNS
// resolution for every dial, including redirects.
func dialControl(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return fmt.Errorf("%w: %s", ErrPrivateAddress, host)
	}
	if isReserved(ip) {
		return fmt.Errorf("%w: %s", ErrPrivateAddress, ip)
	}
	return nil
}
