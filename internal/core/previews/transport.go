package previews

import (
	"fmt"
	"net"
	"net/http"
	"syscall"
	"time"

	apperrors "github.com/lueurxax/vrental/internal/core/errors"
)

const (
	dialTimeout         = 10 * time.Second
	dialKeepAlive       = 30 * time.Second
	idleConnTimeout     = 90 * time.Second
	tlsHandshakeTimeout = 10 * time.Second
	maxIdleConns        = 100
)

var privateNetworks = mustParseCIDRs(
	"0.0.0.0/8",
	"10.0.0.0/8",
	"100.64.0.0/10",
	"127.0.0.0/8",
	"169.254.0.0/16",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"255.255.255.255/32",
	"::/128",
	"::1/128",
	"fc00::/7",
	"fe80::/10",
)

// newTransport returns the outbound transport. Unless allowPrivate is set,
// connections to loopback, private and link-local addresses are refused at
// dial time, which also covers redirects and hosts resolving to such addresses.
func newTransport(allowPrivate bool) *http.Transport {
	dialer := &net.Dialer{
		Timeout:   dialTimeout,
		KeepAlive: dialKeepAlive,
	}

	if !allowPrivate {
		dialer.Control = refusePrivate
	}

	return &http.Transport{
		DialContext:         dialer.DialContext,
		MaxIdleConns:        maxIdleConns,
		IdleConnTimeout:     idleConnTimeout,
		TLSHandshakeTimeout: tlsHandshakeTimeout,
	}
}

func refusePrivate(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("split dial address %q: %w", address, err)
	}

	if isPrivateIP(net.ParseIP(host)) {
		return fmt.Errorf("%w: %s", apperrors.ErrPrivateHost, host)
	}

	return nil
}

// isPrivateIP reports whether ip is not publicly routable. Unparseable
// addresses count as private.
func isPrivateIP(ip net.IP) bool {
	if ip == nil {
		return true
	}

	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsUnspecified() {
		return true
	}

	for _, block := range privateNetworks {
		if block.Contains(ip) {
			return true
		}
	}

	return false
}

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	out := make([]*net.IPNet, len(cidrs))

	for i, cidr := range cidrs {
		_, block, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Sprintf("parse cidr %q: %v", cidr, err))
		}

		out[i] = block
	}

	return out
}
