package server

import (
	"bufio"
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/cardroom/dealerd/internal/game"
	"github.com/cardroom/dealerd/internal/protocol"
)

const (
	// Time allowed to write a frame to the peer before the connection is
	// considered dead.
	writeWait = 10 * time.Second

	// Maximum line length accepted from a client.
	maxLineSize = 8192

	sendBuffer    = 256
	inboundBuffer = 64
)

// ErrConnectionClosed is returned when sending on a closed client.
var ErrConnectionClosed = errors.New("server: connection closed")

// Transport frames wire lines over some byte stream. The TCP transport
// splits a socket on LF; the WebSocket transport maps one text frame to
// one line. Both feed the same codec.
type Transport interface {
	// ReadLine returns the next wire line, without any framing guarantees
	// about trailing newline bytes.
	ReadLine() ([]byte, error)
	// WriteLine writes one encoded line, newline included.
	WriteLine(line []byte) error
	Close() error
	RemoteAddr() string
}

type tcpTransport struct {
	conn   net.Conn
	reader *bufio.Reader
}

// NewTCPTransport wraps a stream socket in line framing.
func NewTCPTransport(conn net.Conn) Transport {
	return &tcpTransport{
		conn:   conn,
		reader: bufio.NewReaderSize(conn, maxLineSize),
	}
}

func (t *tcpTransport) ReadLine() ([]byte, error) {
	return t.reader.ReadBytes('\n')
}

func (t *tcpTransport) WriteLine(line []byte) error {
	if err := t.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	_, err := t.conn.Write(line)
	return err
}

func (t *tcpTransport) Close() error       { return t.conn.Close() }
func (t *tcpTransport) RemoteAddr() string { return t.conn.RemoteAddr().String() }

type wsTransport struct {
	conn *websocket.Conn
}

// NewWSTransport adapts a WebSocket connection: each text frame carries
// exactly one JSON line.
func NewWSTransport(conn *websocket.Conn) Transport {
	conn.SetReadLimit(maxLineSize)
	return &wsTransport{conn: conn}
}

func (t *wsTransport) ReadLine() ([]byte, error) {
	_, data, err := t.conn.ReadMessage()
	return data, err
}

func (t *wsTransport) WriteLine(line []byte) error {
	if err := t.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return t.conn.WriteMessage(websocket.TextMessage, line)
}

func (t *wsTransport) Close() error       { return t.conn.Close() }
func (t *wsTransport) RemoteAddr() string { return t.conn.RemoteAddr().String() }

// readEvent is one parsed inbound record, or the parse failure the
// driver must report back to the client.
type readEvent struct {
	Env protocol.Envelope
	Err error
}

// Client is one connected player: a transport plus its pumps. Outbound
// sends are buffered and best-effort; inbound records are queued for the
// driver to consume when it solicits this player.
type Client struct {
	ID   game.PlayerID
	Name string

	transport Transport
	logger    *log.Logger

	send    chan []byte
	inbound chan readEvent

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewClient wraps a transport for the given player id.
func NewClient(id game.PlayerID, name string, transport Transport, logger *log.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		ID:        id,
		Name:      name,
		transport: transport,
		logger:    logger.WithPrefix("conn").With("player", id),
		send:      make(chan []byte, sendBuffer),
		inbound:   make(chan readEvent, inboundBuffer),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start launches the read and write pumps.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

// Close shuts the connection down exactly once.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		err = c.transport.Close()
	})
	return err
}

// Closed reports whether the client has been shut down.
func (c *Client) Closed() bool {
	select {
	case <-c.ctx.Done():
		return true
	default:
		return false
	}
}

// Send encodes and enqueues one message. A full buffer means the peer
// has stopped reading; the connection is closed rather than stalling the
// driver.
func (c *Client) Send(t protocol.Type, payload any) error {
	line, err := protocol.Encode(t, payload)
	if err != nil {
		return err
	}
	select {
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
	}
	select {
	case c.send <- line:
		return nil
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
		c.logger.Warn("send buffer full, closing connection")
		_ = c.Close()
		return ErrConnectionClosed
	}
}

// Inbound returns the channel of parsed records from this client. It is
// closed when the connection drops.
func (c *Client) Inbound() <-chan readEvent {
	return c.inbound
}

// Drain discards any queued inbound records, so stale actions from a
// previous turn (late arrivals after a timeout) are never mistaken for a
// reply to a new solicitation.
func (c *Client) Drain() {
	for {
		select {
		case _, ok := <-c.inbound:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		_ = c.Close()
		close(c.inbound)
	}()

	for {
		line, err := c.transport.ReadLine()
		if err != nil {
			if !c.Closed() {
				c.logger.Debug("read failed", "error", err)
			}
			return
		}
		env, err := protocol.Decode(line)
		if errors.Is(err, protocol.ErrEmptyLine) {
			continue
		}
		if err == nil && !env.Type.Known() {
			c.logger.Warn("ignoring unknown message type", "type", int(env.Type))
			continue
		}

		select {
		case c.inbound <- readEvent{Env: env, Err: err}:
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Client) writePump() {
	defer func() { _ = c.Close() }()

	for {
		select {
		case line := <-c.send:
			if err := c.transport.WriteLine(line); err != nil {
				c.logger.Debug("write failed", "error", err)
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}
