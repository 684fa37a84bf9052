// Package transport provides the TCP plumbing shared by seeds and peers:
// a newline-framed listener that hands every parsed message to a handler,
// and short-lived client helpers. Outbound requests open a fresh connection,
// send one frame, optionally read up to the first reply, and close; there is
// no pipelining across unrelated requests.
package transport

import (
	"bufio"
	"context"
	"net"
	"time"

	"github.com/pkg/errors"

	"gossipnet/pkg/identity"
	"gossipnet/pkg/wire"
)

// connReadTimeout bounds how long an idle inbound connection is held open.
const connReadTimeout = 10 * time.Second

// Handler processes one parsed inbound message. Replies, when the protocol
// calls for them, are written back on the same connection.
type Handler interface {
	HandleMessage(msg *wire.Message, conn net.Conn)
}

// Server accepts connections and dispatches newline-framed messages.
type Server struct {
	ln      net.Listener
	handler Handler
	ctx     context.Context
	cancel  context.CancelFunc
}

// Listen binds host:port and starts the accept loop.
func Listen(host string, port int, handler Handler) (*Server, error) {
	ln, err := net.Listen("tcp", identity.PeerID(host, port))
	if err != nil {
		return nil, errors.Wrapf(err, "transport: bind %s:%d", host, port)
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{ln: ln, handler: handler, ctx: ctx, cancel: cancel}
	go s.acceptLoop()
	return s, nil
}

// Addr returns the bound listener address.
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Close shuts the listener down. In-flight connection handlers finish on
// their own read deadlines.
func (s *Server) Close() error {
	s.cancel()
	return s.ln.Close()
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			continue
		}
		go s.handleConn(conn)
	}
}

// handleConn reads frames until the peer closes, the deadline passes, or the
// server stops. Malformed frames are dropped without aborting the
// connection.
func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}
		conn.SetReadDeadline(time.Now().Add(connReadTimeout))
		line, err := r.ReadBytes(wire.Delimiter)
		if len(line) > 0 {
			if msg, perr := wire.Parse(line); perr == nil {
				s.handler.HandleMessage(msg, conn)
			}
		}
		if err != nil {
			return
		}
	}
}

// Write encodes msg and writes it to an already-open connection, bounded by
// timeout.
func Write(conn net.Conn, msg *wire.Message, timeout time.Duration) error {
	data, err := msg.Encode()
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(timeout))
	if _, err := conn.Write(data); err != nil {
		return errors.Wrapf(err, "transport: write %s", msg.Type)
	}
	return nil
}

// Send opens a short-lived connection to addr, sends one frame and closes.
// Delivery is best-effort; the caller decides whether a failure matters.
func Send(addr string, msg *wire.Message, timeout time.Duration) error {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return errors.Wrapf(err, "transport: dial %s", addr)
	}
	defer conn.Close()
	return Write(conn, msg, timeout)
}

// SendReceive opens a short-lived connection, sends one frame and waits for
// the first well-formed reply, then closes. The timeout bounds the dial, and
// a second deadline of the same length covers the write and the read.
func SendReceive(addr string, msg *wire.Message, timeout time.Duration) (*wire.Message, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, errors.Wrapf(err, "transport: dial %s", addr)
	}
	defer conn.Close()

	deadline := time.Now().Add(timeout)
	conn.SetDeadline(deadline)
	if err := Write(conn, msg, timeout); err != nil {
		return nil, err
	}

	r := bufio.NewReader(conn)
	for {
		line, err := r.ReadBytes(wire.Delimiter)
		if len(line) > 0 {
			if reply, perr := wire.Parse(line); perr == nil {
				return reply, nil
			}
		}
		if err != nil {
			return nil, errors.Wrapf(err, "transport: read %s", addr)
		}
	}
}
