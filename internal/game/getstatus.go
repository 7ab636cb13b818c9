// Package game queries DarkPlaces based game servers (Xonotic, Nexuiz) with the getstatus request.
package game

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/xsstat/internal/config"
)

var (
	// ErrTimeout is returned when no status response arrived before the deadline.
	ErrTimeout = errors.New("query timeout")

	// ErrInvalidResponse is returned for datagrams that are not a getstatus reply.
	ErrInvalidResponse = errors.New("invalid status response")
)

// Out-of-band packets start with four 0xFF bytes.
var oobPrefix = []byte{0xFF, 0xFF, 0xFF, 0xFF}

var (
	statusRequest  = append(bytes.Clone(oobPrefix), "getstatus"...)
	statusResponse = []byte("statusResponse")
)

// QueryServer sends a single getstatus request to host:port and waits for the reply
// until opts.Timeout or ctx expires. Datagrams from other source addresses are ignored.
// The returned payload has the out-of-band prefix removed and starts at the
// statusResponse header line.
func QueryServer(ctx context.Context, host string, port int, opts config.Query) ([]byte, error) {
	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve host: %w", err)
	}

	network := "udp4"
	if addr.IP.To4() == nil {
		network = "udp6"
	}

	conn, err := net.ListenUDP(network, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open socket: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	deadline, _ := ctx.Deadline()
	if err := conn.SetDeadline(deadline); err != nil {
		return nil, fmt.Errorf("failed to set deadline: %w", err)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	start := time.Now()
	if _, err := conn.WriteToUDP(statusRequest, addr); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	buffer := make([]byte, opts.BufferSize)
	for {
		n, from, err := conn.ReadFromUDP(buffer)
		if err != nil {
			return nil, readError(ctx, err, opts.Timeout)
		}

		if !from.IP.Equal(addr.IP) {
			log.Debug().
				Str("from", from.String()).
				Str("expected", addr.String()).
				Msg("Ignoring datagram from unexpected address")
			continue
		}

		log.Debug().
			Str("address", addr.String()).
			Int("bytes", n).
			Dur("duration", time.Since(start)).
			Msg("Status response received")

		return parseDatagram(buffer[:n])
	}
}

// parseDatagram checks the out-of-band prefix and header and strips the prefix.
func parseDatagram(data []byte) ([]byte, error) {
	if !bytes.HasPrefix(data, oobPrefix) {
		return nil, fmt.Errorf("%w: missing out-of-band prefix", ErrInvalidResponse)
	}

	payload := data[len(oobPrefix):]
	if !bytes.HasPrefix(payload, statusResponse) {
		return nil, fmt.Errorf("%w: unexpected header", ErrInvalidResponse)
	}

	return bytes.Clone(payload), nil
}

func readError(ctx context.Context, err error, timeout time.Duration) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: no response after %s", ErrTimeout, timeout)
	}

	return fmt.Errorf("failed to read response: %w", err)
}
