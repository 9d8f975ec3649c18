package tlsutil

import (
	"crypto/tls"
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/prasenjit/go-pact/internal/logging"
)

// a TLS record carrying a handshake starts with this byte
const tlsHandshakeRecord = 0x16

const sniffTimeout = 5 * time.Second

// DualListener accepts plain HTTP and TLS connections on one port. TLS
// connections are returned as *tls.Conn so http.Server handles them as HTTPS.
type DualListener struct {
	inner     net.Listener
	tlsConfig *tls.Config
	logger    *slog.Logger

	conns     chan net.Conn
	closeOnce sync.Once
	closed    chan struct{}
}

// NewDualListener wraps inner and starts sniffing its connections
func NewDualListener(inner net.Listener, tlsConfig *tls.Config, logger *slog.Logger) *DualListener {
	l := &DualListener{
		inner:     inner,
		tlsConfig: tlsConfig,
		logger:    logging.OrNop(logger).With("component", "tls"),
		conns:     make(chan net.Conn, 128),
		closed:    make(chan struct{}),
	}
	go l.acceptLoop()
	return l
}

func (l *DualListener) acceptLoop() {
	for {
		conn, err := l.inner.Accept()
		if err != nil {
			select {
			case <-l.closed:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			l.logger.Warn("accept failed", "error", err)
			continue
		}
		go l.dispatch(conn)
	}
}

func (l *DualListener) dispatch(conn net.Conn) {
	buf := make([]byte, 1)
	_ = conn.SetReadDeadline(time.Now().Add(sniffTimeout))
	n, err := conn.Read(buf)
	_ = conn.SetReadDeadline(time.Time{})
	if err != nil || n == 0 {
		conn.Close()
		return
	}

	var out net.Conn = &peekedConn{Conn: conn, peeked: buf[:n]}
	if buf[0] == tlsHandshakeRecord {
		out = tls.Server(out, l.tlsConfig)
	}

	select {
	case l.conns <- out:
	case <-l.closed:
		out.Close()
	}
}

// Accept returns the next sniffed connection
func (l *DualListener) Accept() (net.Conn, error) {
	select {
	case conn := <-l.conns:
		return conn, nil
	case <-l.closed:
		return nil, net.ErrClosed
	}
}

// Close stops accepting connections
func (l *DualListener) Close() error {
	var err error
	l.closeOnce.Do(func() {
		close(l.closed)
		err = l.inner.Close()
	})
	return err
}

// Addr returns the listener's network address
func (l *DualListener) Addr() net.Addr {
	return l.inner.Addr()
}

// peekedConn replays the sniffed bytes before reading from the connection
type peekedConn struct {
	net.Conn
	peeked []byte
}

func (c *peekedConn) Read(b []byte) (int, error) {
	if len(c.peeked) > 0 {
		n := copy(b, c.peeked)
		c.peeked = c.peeked[n:]
		return n, nil
	}
	return c.Conn.Read(b)
}
