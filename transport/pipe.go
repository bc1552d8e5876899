package transport

import (
	"bytes"
	"io"
	"sync"

	"github.com/juju/errors"
)

// Pipe transports frames over a pair of host file descriptors — typically
// stdin/stdout when Badgelink itself is invoked as a subprocess, or a pair
// of in-memory pipes in tests.
type Pipe struct {
	out io.Writer
	in  io.Reader

	mu     sync.Mutex
	buf    bytes.Buffer
	readCh chan []byte
	errCh  chan error
	done   chan struct{}
}

// NewPipe starts a background reader over in and returns a Pipe that writes
// to out. The background reader is necessary because ReadAll must not block
// waiting for more bytes than are currently available, which a bare
// io.Reader.Read on a pipe cannot guarantee.
func NewPipe(in io.Reader, out io.Writer) *Pipe {
	p := &Pipe{
		in:     in,
		out:    out,
		readCh: make(chan []byte, 16),
		errCh:  make(chan error, 1),
		done:   make(chan struct{}),
	}
	go p.pump()
	return p
}

func (p *Pipe) pump() {
	b := make([]byte, 4096)
	for {
		n, err := p.in.Read(b)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, b[:n])
			select {
			case p.readCh <- chunk:
			case <-p.done:
				return
			}
		}
		if err != nil {
			select {
			case p.errCh <- err:
			default:
			}
			return
		}
	}
}

func (p *Pipe) Write(data []byte) error {
	_, err := p.out.Write(data)
	if err != nil {
		return errors.Trace(err)
	}
	return nil
}

func (p *Pipe) Flush() error {
	if f, ok := p.out.(interface{ Flush() error }); ok {
		return errors.Trace(f.Flush())
	}
	return nil
}

// ReadAll drains every chunk the background pump has queued so far without
// blocking for more.
func (p *Pipe) ReadAll() ([]byte, error) {
	var out []byte
	for {
		select {
		case chunk := <-p.readCh:
			out = append(out, chunk...)
		case err := <-p.errCh:
			if err == io.EOF {
				return out, nil
			}
			return out, errors.Trace(err)
		default:
			return out, nil
		}
	}
}

func (p *Pipe) Close() error {
	close(p.done)
	if c, ok := p.in.(io.Closer); ok {
		c.Close()
	}
	if c, ok := p.out.(io.Closer); ok {
		return errors.Trace(c.Close())
	}
	return nil
}
