// Package netutil holds small network helpers shared by the upstream
// transports.
package netutil

import (
	"context"
	"net"
	"time"
)

// PreferIPv4Dialer returns a DialContext that tries IPv4 first and falls back
// to the default dual-stack dial when the v4 attempt fails. The upstream
// endpoint resolves to both families and the v6 path is unreliable from some
// hosting providers.
func PreferIPv4Dialer(timeout, keepAlive time.Duration) func(ctx context.Context, network, addr string) (net.Conn, error) {
	d := &net.Dialer{Timeout: timeout, KeepAlive: keepAlive}
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		if network == "tcp" {
			if conn, err := d.DialContext(ctx, "tcp4", addr); err == nil {
				return conn, nil
			}
		}
		return d.DialContext(ctx, network, addr)
	}
}
