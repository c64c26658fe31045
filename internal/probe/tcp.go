package probe

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"
)

// tcpDialTimeout bounds a single connection attempt.
const tcpDialTimeout = 2 * time.Second

// WaitForTCP waits until host:port accepts TCP connections, checking every
// interval until timeout.
func WaitForTCP(ctx context.Context, host string, port int, interval, timeout time.Duration) error {
	address := net.JoinHostPort(host, strconv.Itoa(port))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	dialer := net.Dialer{Timeout: tcpDialTimeout}
	try := func() bool {
		conn, err := dialer.DialContext(ctx, "tcp", address)
		if err != nil {
			return false
		}
		_ = conn.Close()
		return true
	}

	if try() {
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				return fmt.Errorf("timeout waiting for %s", address)
			}
			return ctx.Err()
		case <-ticker.C:
			if try() {
				return nil
			}
		}
	}
}
