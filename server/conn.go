package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/kjk/ringlog/device"
	"github.com/kjk/ringlog/linebuf"
	"github.com/kjk/ringlog/log"
)

var (
	// ErrTransportClosed is returned when the connection was closed under
	// a blocked read or write, e.g. on shutdown
	ErrTransportClosed = errors.New("transport closed")
	// ErrShortTransfer is returned when a write made no progress
	ErrShortTransfer = errors.New("short transfer")
)

// conn serves one client. Bytes are reassembled into records privately,
// each complete record is published and the full content of the device
// is sent back.
type conn struct {
	dev   *device.Device
	nc    net.Conn
	peer  string
	lines *linebuf.Reassembler
	rbuf  []byte
	// reused for every response
	out []byte

	nPublished int
}

func newConn(dev *device.Device, nc net.Conn, opts *Options) *conn {
	return &conn{
		dev:   dev,
		nc:    nc,
		peer:  peerIP(nc.RemoteAddr()),
		lines: linebuf.New('\n', opts.MaxPending),
		rbuf:  make([]byte, opts.ReadBufferSize),
	}
}

// peerIP returns address of the peer without the port
func peerIP(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	s := addr.String()
	host, _, err := net.SplitHostPort(s)
	if err != nil {
		return s
	}
	return host
}

// writeAll writes all of d, w may accept it in pieces
func writeAll(w io.Writer, d []byte) error {
	for len(d) > 0 {
		n, err := w.Write(d)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrShortTransfer
		}
		d = d[n:]
	}
	return nil
}

func transportErr(err error) error {
	if errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("%w: %w", ErrTransportClosed, err)
	}
	return err
}

// publishRecords publishes every complete record and sends the content
// after each one. The lock is never held while writing to the network.
func (c *conn) publishRecords(ctx context.Context) error {
	for rec := range c.lines.Drain() {
		var err error
		c.out, err = c.dev.Publish(ctx, rec, c.out[:0])
		if errors.Is(err, device.ErrMirror) {
			log.Errorf("conn %s: %s", c.peer, err)
		} else if err != nil {
			return err
		}
		c.nPublished++
		if err = writeAll(c.nc, c.out); err != nil {
			return transportErr(err)
		}
	}
	return nil
}

// serve reads until the peer closes its side. Returns nil on clean EOF.
// An unterminated line at EOF is discarded.
func (c *conn) serve(ctx context.Context) error {
	for {
		n, err := c.nc.Read(c.rbuf)
		if n > 0 {
			if aerr := c.lines.Append(c.rbuf[:n]); aerr != nil {
				return fmt.Errorf("line longer than %d bytes: %w", c.lines.Pending()+n, aerr)
			}
			if perr := c.publishRecords(ctx); perr != nil {
				return perr
			}
		}
		if err == io.EOF {
			if pending := c.lines.Pending(); pending > 0 {
				log.Verbosef("conn %s: discarding %d bytes of unterminated line\n", c.peer, pending)
			}
			return nil
		}
		if err != nil {
			return transportErr(err)
		}
	}
}

// handleConn serves nc until EOF, an error or cancellation of ctx
func (s *Server) handleConn(ctx context.Context, nc net.Conn) {
	timeStart := time.Now()
	c := newConn(s.dev, nc, &s.opts)
	log.Logf("Accepted connection from %s\n", c.peer)
	log.Event("conn_accepted", "peer", c.peer)

	// unblocks Read on shutdown
	stop := context.AfterFunc(ctx, func() {
		nc.Close()
	})
	err := c.serve(ctx)
	stop()
	nc.Close()

	if ctx.Err() != nil && (errors.Is(err, ErrTransportClosed) || errors.Is(err, device.ErrInterrupted)) {
		err = nil
	}
	log.IfErrf(err, "conn %s: %s", c.peer, err)
	log.Logf("Closed connection from %s\n", c.peer)
	log.EventWithDuration("conn_closed", time.Since(timeStart), "peer", c.peer, "records", c.nPublished)
}
