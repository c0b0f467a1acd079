// Package netaddr enumerates local IPv4 addresses a stream can bind to.
package netaddr

import (
	"context"
	"log/slog"
	"net"
	"os"
	"strings"
)

// FallbackAddress is returned when no usable address is found.
const FallbackAddress = "127.0.0.1"

// Resolver resolves a host name to addresses. *net.Resolver satisfies it.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// Enumerator lists candidate local addresses.
type Enumerator struct {
	hostname   func() (string, error)
	resolver   Resolver
	interfaces func() ([]net.Addr, error) // nil disables the interface scan
	logger     *slog.Logger
}

// Option configures an Enumerator.
type Option func(*Enumerator)

// WithResolver replaces the name resolver.
func WithResolver(r Resolver) Option {
	return func(e *Enumerator) { e.resolver = r }
}

// WithHostname replaces the local hostname source.
func WithHostname(fn func() (string, error)) Option {
	return func(e *Enumerator) { e.hostname = fn }
}

// WithInterfaces adds addresses bound to local interfaces after the
// resolved hostname addresses. Pass nil to disable.
func WithInterfaces(fn func() ([]net.Addr, error)) Option {
	return func(e *Enumerator) { e.interfaces = fn }
}

// New creates an Enumerator that resolves os.Hostname via the default
// resolver. Interface scanning is off unless WithInterfaces is given.
func New(logger *slog.Logger, opts ...Option) *Enumerator {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Enumerator{
		hostname: os.Hostname,
		resolver: net.DefaultResolver,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewHost creates the Enumerator used in production: hostname resolution
// followed by the addresses of the host's interfaces.
func NewHost(logger *slog.Logger, opts ...Option) *Enumerator {
	return New(logger, append([]Option{WithInterfaces(net.InterfaceAddrs)}, opts...)...)
}

// ListLocalAddresses returns local IPv4 addresses in first-seen order,
// without duplicates, loopback or IPv6 entries. It never fails: if nothing
// usable is found it logs why and returns []string{FallbackAddress}.
func (e *Enumerator) ListLocalAddresses(ctx context.Context) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(candidate string) {
		if !usable(candidate) {
			return
		}
		if _, dup := seen[candidate]; dup {
			return
		}
		seen[candidate] = struct{}{}
		out = append(out, candidate)
	}

	for _, addr := range e.resolveHostname(ctx) {
		add(addr)
	}

	if e.interfaces != nil {
		addrs, err := e.interfaces()
		if err != nil {
			e.logger.Warn("Failed to list interface addresses", "error", err)
		}
		for _, a := range addrs {
			add(hostPart(a))
		}
	}

	if len(out) == 0 {
		e.logger.Warn("No usable local address found, falling back", "fallback", FallbackAddress)
		return []string{FallbackAddress}
	}
	return out
}

func (e *Enumerator) resolveHostname(ctx context.Context) []string {
	host, err := e.hostname()
	if err != nil {
		e.logger.Warn("Failed to read local hostname", "error", err)
		return nil
	}
	addrs, err := e.resolver.LookupHost(ctx, host)
	if err != nil {
		e.logger.Warn("Failed to resolve local hostname", "host", host, "error", err)
		return nil
	}
	e.logger.Debug("Resolved local hostname", "host", host, "addresses", addrs)
	return addrs
}

// usable reports whether s is a non-loopback dotted-quad IPv4 literal.
func usable(s string) bool {
	if strings.Contains(s, ":") {
		return false
	}
	ip := net.ParseIP(s)
	if ip == nil || ip.To4() == nil {
		return false
	}
	return !ip.IsLoopback()
}

func hostPart(a net.Addr) string {
	switch v := a.(type) {
	case *net.IPNet:
		return v.IP.String()
	case *net.IPAddr:
		return v.IP.String()
	}
	s := a.String()
	if i := strings.IndexByte(s, '/'); i != -1 {
		s = s[:i]
	}
	return s
}
