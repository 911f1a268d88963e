// Package server serves a device over TCP. Every newline terminated
// line sent by a client is appended to the device and the full content
// of the device is sent back. An optional Injector appends a timestamp
// record on a fixed interval.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"code.cloudfoundry.org/clock"

	"github.com/kjk/ringlog/device"
	"github.com/kjk/ringlog/log"
)

const (
	DefaultPort           = 9000
	DefaultReadBufferSize = 256
)

type Options struct {
	// e.g. ":9000"
	Addr string
	// size of a single read from a connection
	ReadBufferSize int
	// limit on unterminated bytes per connection, 0 means no limit
	MaxPending int

	// if true, runs an Injector
	Timestamps bool
	Interval   time.Duration
	// used by the Injector, real clock if nil
	Clock clock.Clock
}

// Server accepts connections and serves them until its context is cancelled
type Server struct {
	opts    Options
	dev     *device.Device
	ln      net.Listener
	tracker Tracker
}

// New creates a server for dev. Call Listen and Serve, or Run.
func New(dev *device.Device, opts Options) *Server {
	if opts.Addr == "" {
		opts.Addr = fmt.Sprintf(":%d", DefaultPort)
	}
	if opts.ReadBufferSize <= 0 {
		opts.ReadBufferSize = DefaultReadBufferSize
	}
	return &Server{
		opts: opts,
		dev:  dev,
	}
}

// Listen opens the listening socket
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("listening on '%s' failed: %w", s.opts.Addr, err)
	}
	s.ln = ln
	return nil
}

// Addr returns address of the listening socket. Only valid after Listen
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Serve accepts connections until ctx is cancelled or accepting fails.
// Returns after all connection goroutines and the injector finished.
// Returns nil on cancellation.
func (s *Server) Serve(ctx context.Context) error {
	if s.ln == nil {
		return errors.New("must call Listen() first")
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stop := context.AfterFunc(ctx, func() {
		s.ln.Close()
	})
	defer stop()

	log.Logf("server: listening on %s\n", s.ln.Addr())
	if s.opts.Timestamps {
		inj := &Injector{
			Device:   s.dev,
			Interval: s.opts.Interval,
			Clock:    s.opts.Clock,
		}
		s.tracker.Go(func() error {
			return inj.Run(ctx)
		})
	}

	var err error
	for {
		var nc net.Conn
		nc, err = s.ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				err = nil
			}
			break
		}
		s.tracker.Go(func() error {
			s.handleConn(ctx, nc)
			return nil
		})
	}

	// stop connections if accept failed
	cancel()
	if n := s.tracker.Running(); n > 0 {
		log.Verbosef("server: waiting for %d goroutines\n", n)
	}
	werr := s.tracker.Wait()
	if err != nil {
		return fmt.Errorf("accept failed: %w", err)
	}
	return werr
}

// Run listens on opts.Addr and serves dev until ctx is cancelled
func Run(ctx context.Context, dev *device.Device, opts Options) error {
	s := New(dev, opts)
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}
