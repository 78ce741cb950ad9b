package acquire

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

var (
	// ErrInvalidURL covers malformed input and unsupported schemes.
	ErrInvalidURL = errors.New("invalid url")
	// ErrPrivateAddress is returned when the target resolves to a
	// loopback, link-local, or private address.
	ErrPrivateAddress = errors.New("private address not allowed")
)

// resolver is the DNS lookup seam used by ValidateURL.
type resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// ValidateURL rejects targets that could reach internal infrastructure.
// Only http and https are allowed, and every address the host resolves
// to must be public. Runs before any network I/O on the target itself.
func ValidateURL(ctx context.Context, rawURL string, res resolver) error {
	if strings.TrimSpace(rawURL) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidURL)
	}
	if len(rawURL) > 2048 {
		return fmt.Errorf("%w: exceeds maximum length", ErrInvalidURL)
	}
	if strings.Contains(rawURL, "..") {
		return fmt.Errorf("%w: dangerous pattern", ErrInvalidURL)
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%w: only http and https allowed", ErrInvalidURL)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidURL)
	}

	host := parsed.Hostname()
	if strings.Contains(host, "metadata") {
		return fmt.Errorf("%w: metadata host", ErrPrivateAddress)
	}
	if isBlockedHostname(host) {
		return fmt.Errorf("%w: %s", ErrPrivateAddress, host)
	}

	// Literal IP: no lookup needed.
	if ip := net.ParseIP(host); ip != nil {
		if isBlockedIP(ip) {
			return fmt.Errorf("%w: %s", ErrPrivateAddress, host)
		}
		return nil
	}

	if res == nil {
		res = net.DefaultResolver
	}
	addrs, err := res.LookupIPAddr(ctx, host)
	if err != nil {
		return fmt.Errorf("%w: resolve %s: %v", ErrInvalidURL, host, err)
	}
	for _, addr := range addrs {
		if isBlockedIP(addr.IP) {
			return fmt.Errorf("%w: %s resolves to %s", ErrPrivateAddress, host, addr.IP)
		}
	}
	return nil
}

func isBlockedHostname(host string) bool {
	lower := strings.ToLower(host)
	return lower == "localhost" || strings.HasSuffix(lower, ".localhost") || strings.HasSuffix(lower, ".local") || strings.HasSuffix(lower, ".internal")
}

func isBlockedIP(ip net.IP) bool {
	return ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsUnspecified()
}
