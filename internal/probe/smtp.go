package probe

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"gopkg.in/gomail.v2"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

// DefaultSMTPPort is the port Postal's SMTP Service listens on.
const DefaultSMTPPort = 25

// SMTPResult describes a successful SMTP handshake.
type SMTPResult struct {
	Address string
	Elapsed time.Duration
}

// SMTPChecker dials SMTP servers with gomail.
type SMTPChecker struct {
	// LocalName is sent in EHLO. Empty means gomail's default.
	LocalName string
}

// Check connects to host:port, performs the EHLO handshake and STARTTLS
// when offered, then quits. It does not send mail.
func (c *SMTPChecker) Check(ctx context.Context, host string, port int) (*SMTPResult, error) {
	if port == 0 {
		port = DefaultSMTPPort
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	logger := log.FromContext(ctx).WithValues("address", addr)

	d := gomail.NewDialer(host, port, "", "")
	d.LocalName = c.LocalName

	type dialed struct {
		closer gomail.SendCloser
		err    error
	}
	done := make(chan dialed, 1)
	start := time.Now()
	go func() {
		sc, err := d.Dial()
		done <- dialed{closer: sc, err: err}
	}()

	select {
	case <-ctx.Done():
		// The dial goroutine finishes on gomail's own timeout.
		return nil, fmt.Errorf("SMTP check of %s cancelled: %w", addr, ctx.Err())
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("SMTP handshake with %s failed: %w", addr, r.err)
		}
		if err := r.closer.Close(); err != nil {
			logger.V(1).Info("SMTP quit failed", "error", err.Error())
		}
		elapsed := time.Since(start)
		logger.V(1).Info("SMTP endpoint answered", "elapsed", elapsed.String())
		return &SMTPResult{Address: addr, Elapsed: elapsed}, nil
	}
}
