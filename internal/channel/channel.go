// Package channel wraps a net.Conn with the per-version cipher and framing
// codec into a single read/write unit: an async writer goroutine draining a
// send queue (grounded on the teacher's internal/gameserver/client.go
// writePump) plus a synchronous Recv that decodes whatever the socket has
// produced so far into framing.Messages.
package channel

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fuzzpoint/psoserver/internal/cipher"
	"github.com/fuzzpoint/psoserver/internal/framing"
	"github.com/fuzzpoint/psoserver/internal/version"
)

const (
	defaultSendQueueSize = 64
	defaultWriteTimeout  = 10 * time.Second
	defaultReadBufSize   = 16 * 1024
)

// ErrQueueFull is returned by Send when the outbound queue is saturated —
// the caller should treat the peer as stuck and disconnect it.
var ErrQueueFull = errors.New("channel: send queue full")

// ErrClosed is returned by Send/Recv once the channel has been closed.
var ErrClosed = errors.New("channel: closed")

// Channel is a single client connection: raw socket, per-direction cipher,
// and version-specific framing, exposed as decode/encode of framing.Message
// values instead of bytes.
type Channel struct {
	conn net.Conn
	v    version.Version
	ip   string

	encOut cipher.Stream // applied to bytes as they leave
	encIn  cipher.Stream // applied to bytes as they arrive

	logger *slog.Logger

	sendCh  chan []byte
	closeCh chan struct{}
	closed  atomic.Bool
	once    sync.Once

	writeTimeout time.Duration

	readMu  sync.Mutex
	readBuf []byte
}

// New wraps conn for version v. outKey/inKey are the keystream seeds for the
// outbound and inbound directions; for the DC/GC/XB/PC families these are
// the same bytes exchanged during the plaintext handshake, for BB they are
// the two halves of the negotiated key block (see internal/session).
func New(conn net.Conn, v version.Version, outKey, inKey []byte, logger *slog.Logger) (*Channel, error) {
	encOut, err := cipher.NewStream(v, outKey)
	if err != nil {
		return nil, fmt.Errorf("channel: out cipher: %w", err)
	}
	encIn, err := cipher.NewStream(v, inKey)
	if err != nil {
		return nil, fmt.Errorf("channel: in cipher: %w", err)
	}

	host := conn.RemoteAddr().String()
	if h, _, splitErr := net.SplitHostPort(host); splitErr == nil {
		host = h
	}

	if logger == nil {
		logger = slog.Default()
	}

	c := &Channel{
		conn:         conn,
		v:            v,
		ip:           host,
		encOut:       encOut,
		encIn:        encIn,
		logger:       logger,
		sendCh:       make(chan []byte, defaultSendQueueSize),
		closeCh:      make(chan struct{}),
		writeTimeout: defaultWriteTimeout,
	}
	go c.writeLoop()
	return c, nil
}

// NewNoCipher wraps conn for a pre-handshake exchange where no cipher has
// been negotiated yet (the very first plaintext command on every version).
func NewNoCipher(conn net.Conn, v version.Version, logger *slog.Logger) *Channel {
	if logger == nil {
		logger = slog.Default()
	}
	host := conn.RemoteAddr().String()
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	c := &Channel{
		conn:         conn,
		v:            v,
		ip:           host,
		logger:       logger,
		sendCh:       make(chan []byte, defaultSendQueueSize),
		closeCh:      make(chan struct{}),
		writeTimeout: defaultWriteTimeout,
	}
	go c.writeLoop()
	return c
}

// SetCiphers installs the negotiated ciphers after a plaintext handshake
// command has been exchanged on a NewNoCipher channel. Must be called
// before any further Recv/Send.
func (c *Channel) SetCiphers(outKey, inKey []byte) error {
	encOut, err := cipher.NewStream(c.v, outKey)
	if err != nil {
		return fmt.Errorf("channel: out cipher: %w", err)
	}
	encIn, err := cipher.NewStream(c.v, inKey)
	if err != nil {
		return fmt.Errorf("channel: in cipher: %w", err)
	}
	c.encOut = encOut
	c.encIn = encIn
	return nil
}

// IP returns the peer's remote address without the port.
func (c *Channel) IP() string { return c.ip }

// Version returns the protocol version this channel was constructed for.
func (c *Channel) Version() version.Version { return c.v }

// RemoteAddr exposes the underlying connection's address, e.g. for ban
// list checks before the handshake completes.
func (c *Channel) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

func (c *Channel) writeLoop() {
	for {
		select {
		case pkt, ok := <-c.sendCh:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
				c.logger.Warn("set write deadline failed", "client", c.ip, "error", err)
				return
			}
			if _, err := c.conn.Write(pkt); err != nil {
				c.logger.Warn("write failed", "client", c.ip, "error", err)
				return
			}
		case <-c.closeCh:
			return
		}
	}
}

// Send encodes (cmd, flag, payload) per the channel's version, encrypts it
// with the outbound cipher, and queues it for the write goroutine. Send is
// non-blocking: a saturated queue means a stuck peer, and the caller should
// disconnect rather than pile up memory.
func (c *Channel) Send(cmd uint16, flag uint32, payload []byte) error {
	if c.closed.Load() {
		return ErrClosed
	}
	buf, err := framing.Encode(c.v, cmd, flag, payload)
	if err != nil {
		return err
	}
	if c.encOut != nil {
		c.encOut.Encrypt(buf)
	}
	select {
	case c.sendCh <- buf:
		return nil
	default:
		c.Close()
		return ErrQueueFull
	}
}

// SendRaw queues already-framed, already-encrypted bytes verbatim — used by
// the proxy session when relaying bytes captured from the real server
// without re-encoding them.
func (c *Channel) SendRaw(buf []byte) error {
	if c.closed.Load() {
		return ErrClosed
	}
	select {
	case c.sendCh <- buf:
		return nil
	default:
		c.Close()
		return ErrQueueFull
	}
}

// Recv blocks on a single socket read, decrypts whatever arrived with the
// inbound cipher, and returns every complete framing.Message the read
// produced (zero or more — a short read can complete zero frames, a large
// one can complete several). Callers should loop calling Recv until it
// returns an error.
func (c *Channel) Recv() ([]framing.Message, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	chunk := make([]byte, defaultReadBufSize)
	n, err := c.conn.Read(chunk)
	if n > 0 {
		plain := chunk[:n]
		if c.encIn != nil {
			c.encIn.Decrypt(plain)
		}
		c.readBuf = append(c.readBuf, plain...)
	}
	if err != nil {
		return nil, err
	}

	msgs, consumed, decErr := framing.Decode(c.v, c.readBuf)
	if decErr != nil {
		return nil, decErr
	}
	remaining := len(c.readBuf) - consumed
	copy(c.readBuf, c.readBuf[consumed:])
	c.readBuf = c.readBuf[:remaining]
	return msgs, nil
}

// SetReadDeadline forwards to the underlying connection, letting callers
// enforce per-version idle timeouts (the patch and login phases are much
// shorter-lived than an open lobby session).
func (c *Channel) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}

// Close closes the socket and stops the write goroutine. Safe to call more
// than once and from more than one goroutine.
func (c *Channel) Close() error {
	c.once.Do(func() {
		c.closed.Store(true)
		close(c.closeCh)
	})
	return c.conn.Close()
}

// Closed reports whether Close has been called.
func (c *Channel) Closed() bool {
	return c.closed.Load()
}
