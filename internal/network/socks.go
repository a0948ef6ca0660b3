// Package network provides proxy dialers shared by the network sinks.
package network

import (
	"context"
	"fmt"
	"net"

	"golang.org/x/net/proxy"

	"hostwatch/internal/config"
)

// DialContextFunc matches http.Transport.DialContext and redis.Options.Dialer.
type DialContextFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// ProxyEnabled reports whether cfg names a usable SOCKS5 proxy.
func ProxyEnabled(cfg config.SOCKSConfig) bool {
	return cfg.Host != "" && cfg.Port > 0
}

// NewSOCKS5Dialer creates a SOCKS5 proxy dialer. It returns nil without an
// error when no proxy is configured.
func NewSOCKS5Dialer(cfg config.SOCKSConfig) (proxy.Dialer, error) {
	if !ProxyEnabled(cfg) {
		return nil, nil
	}
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	dialer, err := proxy.SOCKS5("tcp", addr, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer for %s: %w", addr, err)
	}
	return dialer, nil
}

// DialContext returns a context-aware dial function routed through the
// configured SOCKS5 proxy, or nil when no proxy is configured.
func DialContext(cfg config.SOCKSConfig) (DialContextFunc, error) {
	dialer, err := NewSOCKS5Dialer(cfg)
	if err != nil || dialer == nil {
		return nil, err
	}
	if cd, ok := dialer.(proxy.ContextDialer); ok {
		return cd.DialContext, nil
	}
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return dialer.Dial(network, addr)
	}, nil
}
