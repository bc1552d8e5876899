package conn

import (
	"math/rand"
	"time"

	"github.com/golang/glog"
	"github.com/juju/errors"

	"github.com/mongoose-os/badgelink/frame"
	"github.com/mongoose-os/badgelink/proto"
	"github.com/mongoose-os/badgelink/transport"
)

// Default timeouts for the three Connection operation classes.
const (
	DefaultTimeout      = 250 * time.Millisecond
	DefaultChunkTimeout = 500 * time.Millisecond
	DefaultXferTimeout  = 10 * time.Second

	// ChunkMaxSize is the largest data payload carried by a single
	// upload_chunk request or download_chunk response.
	ChunkMaxSize = 4096

	syncTries = 3
)

// Connection drives the request/response state machine over a Transport:
// frame send/receive, the serial-number sync handshake, and SimpleRequest's
// retry and error-mapping rules.
type Connection struct {
	transport transport.Transport
	rxbuf     []byte
	serialNo  uint32

	// DumpRaw logs, at V(3), the payload and encoded frame bytes of every
	// sent frame and the payload bytes of every received frame.
	DumpRaw bool

	DefTimeout   time.Duration
	ChunkTimeout time.Duration
	XferTimeout  time.Duration

	Metrics *Metrics
}

// Connect performs the handshake sequence a new connection requires: flush a
// delimiter to desynchronise the badge from whatever it may have been
// sending before, discard any bytes already in flight, then perform the
// serial-number sync handshake.
func Connect(t transport.Transport) (*Connection, error) {
	c := &Connection{
		transport:    t,
		DefTimeout:   DefaultTimeout,
		ChunkTimeout: DefaultChunkTimeout,
		XferTimeout:  DefaultXferTimeout,
	}
	if err := c.transport.Write([]byte{0x00}); err != nil {
		return nil, disconnectedErr(err)
	}
	if err := c.transport.Flush(); err != nil {
		return nil, disconnectedErr(err)
	}
	if _, err := c.transport.ReadAll(); err != nil {
		return nil, disconnectedErr(err)
	}
	if err := c.sync(); err != nil {
		return nil, err
	}
	return c, nil
}

// sync (re-)establishes the serial number the host and badge agree on, by
// picking a new random one and sending it in a sync packet until the badge
// echoes it back.
func (c *Connection) sync() error {
	c.serialNo = rand.Uint32()
	c.Metrics.observeResync()
	var lastErr error
	for i := 0; i < syncTries; i++ {
		if err := c.sendPacket(proto.NewSyncPacket(c.serialNo)); err != nil {
			return err
		}
		resp, err := c.recvPacket(500 * time.Millisecond)
		if err != nil {
			lastErr = err
			continue
		}
		if !resp.HasSync || resp.Serial != c.serialNo {
			return communicationErr("invalid sync response")
		}
		glog.V(1).Infof("synced with serial %#08x", c.serialNo)
		return nil
	}
	return lastErr
}

func (c *Connection) sendPacket(p proto.Packet) error {
	payload := p.Marshal()
	wire := frame.Encode(payload)
	if c.DumpRaw {
		glog.V(3).Infof("tx payload: % x", payload)
		glog.V(3).Infof("tx frame: % x", wire)
	}
	if err := c.transport.Write(wire); err != nil {
		return disconnectedErr(err)
	}
	if err := c.transport.Flush(); err != nil {
		return disconnectedErr(err)
	}
	return nil
}

// recvPacket waits up to timeout for a single complete, valid frame and
// decodes it as a Packet. A malformed frame is a communication error, not a
// reason to keep waiting — the caller decides whether to retry.
func (c *Connection) recvPacket(timeout time.Duration) (proto.Packet, error) {
	deadline := time.Now().Add(timeout)
	for {
		payload, rest, found, err := frame.Extract(c.rxbuf)
		if found {
			c.rxbuf = rest
			if err != nil {
				return proto.Packet{}, communicationErr("%s", err)
			}
			if c.DumpRaw {
				glog.V(3).Infof("rx payload: % x", payload)
			}
			p, perr := proto.Unmarshal(payload)
			if perr != nil {
				return proto.Packet{}, malformedErr("%s", perr)
			}
			return p, nil
		}
		c.rxbuf = rest
		if time.Now().After(deadline) {
			return proto.Packet{}, timeoutErr(errors.New("receive timed out"))
		}
		more, err := c.transport.ReadAll()
		if err != nil {
			return proto.Packet{}, disconnectedErr(err)
		}
		if len(more) == 0 {
			time.Sleep(time.Millisecond)
			continue
		}
		c.rxbuf = append(c.rxbuf, more...)
	}
}

// SimpleRequest sends req and waits for its matching response, making up to
// 3 attempts in all and retrying only on timeout or a badge resync. toFind, if non-empty, names the resource a
// StatusNotFound error should report as missing. It maps every badge status
// code other than StatusOk to a *Error with Kind KindBadge.
func (c *Connection) SimpleRequest(req proto.Request, toFind string, timeout time.Duration) (proto.Response, error) {
	c.serialNo++

	var reqPacket, respPacket proto.Packet
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			c.Metrics.observeRetry()
		}
		// Rebuilt every attempt: a resync between attempts (the badge
		// rebooted mid-request) changes c.serialNo, and the retried request
		// must carry the new one.
		reqPacket = proto.NewRequestPacket(c.serialNo, req)
		if err := c.sendPacket(reqPacket); err != nil {
			c.Metrics.observeRequest("disconnected")
			return proto.Response{}, err
		}
		resp, err := c.recvPacket(timeout)
		if err != nil {
			lastErr = err
			if e, ok := err.(*Error); ok && e.Kind != KindTimeout {
				c.Metrics.observeRequest("error")
				return proto.Response{}, err
			}
			continue
		}
		if resp.HasSync {
			// The badge rebooted: it no longer recognises our serial
			// number. Resync and let this retry loop re-send.
			if err := c.sync(); err != nil {
				return proto.Response{}, err
			}
			lastErr = timeoutErr(errors.New("badge resynced mid-request"))
			continue
		}
		respPacket = resp
		lastErr = nil
		break
	}
	if lastErr != nil {
		c.Metrics.observeTimeout()
		c.Metrics.observeRequest("timeout")
		return proto.Response{}, lastErr
	}

	if respPacket.Serial != reqPacket.Serial {
		c.Metrics.observeRequest("error")
		return proto.Response{}, communicationErr("serial mismatch: received %d, expected %d", respPacket.Serial, reqPacket.Serial)
	}
	if !respPacket.HasResponse {
		c.Metrics.observeRequest("error")
		return proto.Response{}, malformedErr("packet is missing response")
	}
	resp := respPacket.Response
	if resp.Status != proto.StatusOk {
		c.Metrics.observeRequest("badge_error")
		return proto.Response{}, badgeErr(resp.Status, toFind)
	}
	c.Metrics.observeRequest("ok")
	return resp, nil
}

// SetDumpRaw turns raw frame logging for this connection on or off.
func (c *Connection) SetDumpRaw(v bool) { c.DumpRaw = v }
