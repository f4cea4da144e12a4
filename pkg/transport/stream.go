package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/aretw0/conformer/pkg/domain"
)

// ErrProtocol is returned when the server writes something that is not a
// stream of JSON objects.
var ErrProtocol = errors.New("malformed packet")

// Conn is the message-level view of a connection to the debug server.
type Conn interface {
	// Send encodes msg as one JSON object.
	Send(ctx context.Context, msg domain.Message) error
	// SendRaw writes data without any framing.
	SendRaw(ctx context.Context, data []byte) error
	// Receive blocks until the next packet arrives. It returns io.EOF once
	// the stream has ended.
	Receive(ctx context.Context) (domain.Message, error)
	// Close releases the connection. It unblocks pending receives.
	Close() error
}

type packet struct {
	msg domain.Message
	err error
}

// Stream implements Conn over any byte stream carrying concatenated JSON
// objects. A single reader goroutine decodes packets so Receive can honour
// context cancellation.
type Stream struct {
	rwc     io.ReadWriteCloser
	dec     *json.Decoder
	packets chan packet
	done    chan struct{}

	writeMu   sync.Mutex
	startOnce sync.Once
	closeOnce sync.Once
}

// NewStream wraps rwc. The stream owns rwc and closes it on Close.
func NewStream(rwc io.ReadWriteCloser) *Stream {
	return &Stream{
		rwc:     rwc,
		dec:     json.NewDecoder(rwc),
		packets: make(chan packet),
		done:    make(chan struct{}),
	}
}

// NewPipeStream joins separate read and write ends, such as a child
// process's stdout and stdin, into one Stream.
func NewPipeStream(r io.ReadCloser, w io.WriteCloser) *Stream {
	return NewStream(&duplex{ReadCloser: r, WriteCloser: w})
}

func (s *Stream) initPump() {
	s.startOnce.Do(func() {
		go s.pump()
	})
}

func (s *Stream) pump() {
	defer close(s.packets)
	for {
		var v any
		if err := s.dec.Decode(&v); err != nil {
			s.deliver(packet{err: err})
			return
		}
		obj, ok := v.(map[string]any)
		if !ok {
			s.deliver(packet{err: fmt.Errorf("%w: expected a JSON object, got %T", ErrProtocol, v)})
			return
		}
		if !s.deliver(packet{msg: domain.Message(obj)}) {
			return
		}
	}
}

func (s *Stream) deliver(p packet) bool {
	select {
	case s.packets <- p:
		return true
	case <-s.done:
		return false
	}
}

// Receive implements Conn.
func (s *Stream) Receive(ctx context.Context) (domain.Message, error) {
	s.initPump()
	select {
	case p, ok := <-s.packets:
		if !ok {
			return nil, io.EOF
		}
		if p.err != nil {
			if isClosed(p.err) {
				return nil, io.EOF
			}
			return nil, p.err
		}
		return p.msg, nil
	case <-s.done:
		return nil, io.EOF
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Send implements Conn.
func (s *Stream) Send(ctx context.Context, msg domain.Message) error {
	data, err := json.Marshal(map[string]any(msg))
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	return s.SendRaw(ctx, data)
}

// SendRaw implements Conn.
func (s *Stream) SendRaw(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if dl, ok := ctx.Deadline(); ok {
		if c, ok := s.rwc.(interface{ SetWriteDeadline(time.Time) error }); ok {
			_ = c.SetWriteDeadline(dl)
			defer c.SetWriteDeadline(time.Time{})
		}
	}

	if _, err := s.rwc.Write(data); err != nil {
		if isClosed(err) {
			return fmt.Errorf("write: %w", io.EOF)
		}
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// Close implements Conn.
func (s *Stream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.rwc.Close()
	})
	return err
}

func isClosed(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, os.ErrClosed) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNRESET)
}

type duplex struct {
	io.ReadCloser
	io.WriteCloser
}

func (d *duplex) Close() error {
	werr := d.WriteCloser.Close()
	rerr := d.ReadCloser.Close()
	if werr != nil {
		return werr
	}
	return rerr
}
