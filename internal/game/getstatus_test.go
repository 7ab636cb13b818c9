package game

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/woozymasta/xsstat/internal/config"
)

var testOpts = config.Query{Timeout: 500 * time.Millisecond, BufferSize: 2048}

// serve answers every request on a local socket with reply.
func serve(t *testing.T, reply func(req []byte) []byte) (string, int) {
	t.Helper()

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	go func() {
		buf := make([]byte, 1024)
		for {
			n, from, err := conn.ReadFromUDP(buf)
			if err != nil {
				return
			}
			if out := reply(buf[:n]); out != nil {
				_, _ = conn.WriteToUDP(out, from)
			}
		}
	}()

	addr := conn.LocalAddr().(*net.UDPAddr)
	return addr.IP.String(), addr.Port
}

func TestQueryServer(t *testing.T) {
	got := make(chan []byte, 1)
	host, port := serve(t, func(req []byte) []byte {
		select {
		case got <- append([]byte(nil), req...):
		default:
		}
		return []byte("\xff\xff\xff\xffstatusResponse\n\\hostname\\srv\n")
	})

	payload, err := QueryServer(context.Background(), host, port, testOpts)
	require.NoError(t, err)
	assert.Equal(t, "statusResponse\n\\hostname\\srv\n", string(payload))
	assert.Equal(t, "\xff\xff\xff\xffgetstatus", string(<-got))
}

func TestQueryServerTimeout(t *testing.T) {
	host, port := serve(t, func([]byte) []byte { return nil })

	opts := testOpts
	opts.Timeout = 100 * time.Millisecond

	start := time.Now()
	_, err := QueryServer(context.Background(), host, port, opts)
	require.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestQueryServerCanceled(t *testing.T) {
	host, port := serve(t, func([]byte) []byte { return nil })

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	opts := testOpts
	opts.Timeout = 5 * time.Second

	_, err := QueryServer(ctx, host, port, opts)
	require.ErrorIs(t, err, context.Canceled)
}

func TestQueryServerInvalidResponse(t *testing.T) {
	host, port := serve(t, func([]byte) []byte {
		return []byte("\xff\xff\xff\xffinfoResponse\n")
	})

	_, err := QueryServer(context.Background(), host, port, testOpts)
	require.ErrorIs(t, err, ErrInvalidResponse)
}

func TestParseDatagram(t *testing.T) {
	_, err := parseDatagram([]byte("statusResponse\n"))
	require.ErrorIs(t, err, ErrInvalidResponse)

	_, err = parseDatagram([]byte{0xFF, 0xFF})
	require.ErrorIs(t, err, ErrInvalidResponse)

	payload, err := parseDatagram([]byte("\xff\xff\xff\xffstatusResponse"))
	require.NoError(t, err)
	assert.Equal(t, []byte("statusResponse"), payload)
}
